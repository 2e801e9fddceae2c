// Package ws is the persistent bidirectional channel: one websocket per
// client, named JSON events in both directions, and a hub that owns the
// online-user table and all broadcasting.
package ws

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"lantalk/domain"
	"lantalk/domain/event"
)

type HistoryProvider interface {
	Global() []domain.Message
}

type Options struct {
	SendBufferSize  int
	MaxMessageBytes int64
	WriteTimeout    time.Duration
	PingInterval    time.Duration
}

func (o Options) withDefaults() Options {
	if o.SendBufferSize <= 0 {
		o.SendBufferSize = 64
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 8 << 20
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	return o
}

// Hub tracks connected clients and delivers events to one, some or all of
// them. Delivery to each client goes through that client's buffered send
// queue; a full queue drops the event rather than blocking the hub.
type Hub struct {
	log     *slog.Logger
	history HistoryProvider
	opts    Options

	mu      sync.Mutex
	clients map[*Client]struct{}
}

func NewHub(log *slog.Logger, history HistoryProvider, opts Options) *Hub {
	return &Hub{
		log:     log,
		history: history,
		opts:    opts.withDefaults(),
		clients: make(map[*Client]struct{}),
	}
}

// Count is the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast delivers one event to every connected client.
func (h *Hub) Broadcast(name event.Name, payload any) {
	raw, err := event.Wrap(name, payload)
	if err != nil {
		h.log.Error("broadcast encoding failed", "event", name, "error", err)
		return
	}
	for _, c := range h.snapshot() {
		c.push(raw)
	}
}

// register adds the client, replays history to it, tells everyone else it
// joined, and gives it the current online count.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.log.Info("client connected", "ip", c.ip, "online", count)

	c.Send(event.History, event.HistoryPayload{Messages: h.history.Global()})
	h.sendToOthers(c, event.UserStatus, event.StatusPayload{
		Type:        "join",
		IP:          c.ip,
		Timestamp:   time.Now().Format("15:04:05"),
		OnlineCount: count,
	})
	c.Send(event.OnlineCountUpdate, event.CountPayload{Count: count})
}

// unregister removes the client and announces the departure plus the new
// online count. Idempotent so a double close is harmless.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	h.log.Info("client disconnected", "ip", c.ip, "online", count)

	h.sendToOthers(c, event.UserStatus, event.StatusPayload{
		Type:        "leave",
		IP:          c.ip,
		Timestamp:   time.Now().Format("15:04:05"),
		OnlineCount: count,
	})
	h.Broadcast(event.OnlineCountUpdate, event.CountPayload{Count: count})
}

func (h *Hub) sendToOthers(except *Client, name event.Name, payload any) {
	raw, err := event.Wrap(name, payload)
	if err != nil {
		h.log.Error("event encoding failed", "event", name, "error", err)
		return
	}
	for _, c := range h.snapshot() {
		if c != except {
			c.push(raw)
		}
	}
}

func (h *Hub) snapshot() []*Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	return lo.Keys(h.clients)
}

// ClientIP resolves the client address the same way everywhere: the first
// X-Forwarded-For entry when a proxy is involved, the socket address
// otherwise.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
