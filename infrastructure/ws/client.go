package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lantalk/domain/event"
	"lantalk/services"
)

// The relay lives on a trusted LAN and the page is served from the same
// host, so cross-origin upgrades are accepted.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Client is one connected browser. Events for it are queued on send and
// written by a single writer goroutine; inbound events are dispatched from
// a single reader goroutine, so events from one sender stay ordered.
type Client struct {
	hub  *Hub
	svc  *services.ChatService
	conn *websocket.Conn
	log  *slog.Logger
	ip   string

	send chan []byte
	done chan struct{}
	once sync.Once
}

// Serve returns the handler that upgrades a connection and runs its pumps.
func Serve(hub *Hub, svc *services.ChatService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", "error", err)
			return
		}
		c := &Client{
			hub:  hub,
			svc:  svc,
			conn: conn,
			log:  log,
			ip:   ClientIP(r),
			send: make(chan []byte, hub.opts.SendBufferSize),
			done: make(chan struct{}),
		}
		hub.register(c)
		go c.writePump()
		go c.readPump()
	}
}

func (c *Client) IP() string {
	return c.ip
}

// Send queues an event for this client only.
func (c *Client) Send(name event.Name, payload any) {
	raw, err := event.Wrap(name, payload)
	if err != nil {
		c.log.Error("event encoding failed", "event", name, "error", err)
		return
	}
	c.push(raw)
}

// push enqueues without ever blocking the caller. A client that cannot
// drain its queue loses events, not the whole relay.
func (c *Client) push(raw []byte) {
	select {
	case c.send <- raw:
	case <-c.done:
	default:
		c.log.Warn("send queue full, dropping event", "ip", c.ip)
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.close()
	}()

	pongWait := 2 * c.hub.opts.PingInterval
	c.conn.SetReadLimit(c.hub.opts.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("read failed", "ip", c.ip, "error", err)
			}
			return
		}
		var env event.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Warn("unparseable frame", "ip", c.ip, "error", err)
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env event.Envelope) {
	switch env.Event {
	case event.FileChunk:
		var p event.ChunkPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.Send(event.FileChunkAck, event.AckPayload{Success: false, Error: "malformed chunk payload"})
			return
		}
		c.svc.HandleChunk(c, p)
	case event.FileUploadComplete:
		var p event.CompletePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.log.Warn("malformed completion payload", "ip", c.ip, "error", err)
			return
		}
		c.svc.HandleUploadComplete(c, p)
	case event.SendMessage:
		var p event.MessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.log.Warn("malformed message payload", "ip", c.ip, "error", err)
			return
		}
		c.svc.HandleSendMessage(c, p)
	default:
		c.log.Debug("unknown event", "ip", c.ip, "event", env.Event)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case raw := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
