package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"lantalk/codec"
	"lantalk/domain"
	"lantalk/domain/event"
	"lantalk/repositories"
	"lantalk/services"
	"lantalk/storage"
)

type nopMeta struct{}

func (nopMeta) Put(string, domain.StoredFile) error { return nil }

type relay struct {
	server   *httptest.Server
	filesDir string
	history  *repositories.HistoryRepository
}

func newTestRelay(t *testing.T) relay {
	t.Helper()
	req := require.New(t)
	log := slog.Default()

	filesDir := t.TempDir()
	disk, err := storage.NewDisk(filesDir, log)
	req.NoError(err)
	history, err := repositories.NewHistoryRepository(filepath.Join(t.TempDir(), "chat_data.json"), log)
	req.NoError(err)

	hub := NewHub(log, history, Options{PingInterval: time.Minute})
	svc := services.NewChatService(log, services.NewChunkStore(log), services.NewReassembler(log),
		disk, nopMeta{}, history, hub)

	server := httptest.NewServer(Serve(hub, svc, log))
	t.Cleanup(server.Close)
	return relay{server: server, filesDir: filesDir, history: history}
}

func dial(t *testing.T, r relay, ip string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(r.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"X-Forwarded-For": {ip}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) event.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env event.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func decode[T any](t *testing.T, env event.Envelope) T {
	t.Helper()
	var payload T
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	return payload
}

func send(t *testing.T, conn *websocket.Conn, name event.Name, payload any) {
	t.Helper()
	raw, err := event.Wrap(name, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

func Test_Connect_Replays_History_And_Tracks_Presence(t *testing.T) {
	req := require.New(t)
	r := newTestRelay(t)
	req.NoError(r.history.Append(domain.NewMessage("10.0.0.1", "earlier", domain.KindText)))

	alice := dial(t, r, "10.0.0.5")

	env := readEvent(t, alice)
	req.Equal(event.History, env.Event)
	history := decode[event.HistoryPayload](t, env)
	req.Len(history.Messages, 1)
	req.Equal("earlier", history.Messages[0].Body)

	env = readEvent(t, alice)
	req.Equal(event.OnlineCountUpdate, env.Event)
	req.Equal(1, decode[event.CountPayload](t, env).Count)

	bob := dial(t, r, "10.0.0.7")
	readEvent(t, bob) // history
	env = readEvent(t, bob)
	req.Equal(event.OnlineCountUpdate, env.Event)
	req.Equal(2, decode[event.CountPayload](t, env).Count)

	// Alice is told about the join; Bob was not (the join went to others).
	env = readEvent(t, alice)
	req.Equal(event.UserStatus, env.Event)
	status := decode[event.StatusPayload](t, env)
	req.Equal("join", status.Type)
	req.Equal("10.0.0.7", status.IP)
	req.Equal(2, status.OnlineCount)

	req.NoError(bob.Close())

	env = readEvent(t, alice)
	req.Equal(event.UserStatus, env.Event)
	status = decode[event.StatusPayload](t, env)
	req.Equal("leave", status.Type)
	req.Equal("10.0.0.7", status.IP)

	env = readEvent(t, alice)
	req.Equal(event.OnlineCountUpdate, env.Event)
	req.Equal(1, decode[event.CountPayload](t, env).Count)
}

func Test_SendMessage_Confirms_Sender_Then_Broadcasts(t *testing.T) {
	req := require.New(t)
	r := newTestRelay(t)

	alice := dial(t, r, "10.0.0.5")
	readEvent(t, alice) // history
	readEvent(t, alice) // online count
	bob := dial(t, r, "10.0.0.7")
	readEvent(t, bob)   // history
	readEvent(t, bob)   // online count
	readEvent(t, alice) // bob joined

	send(t, alice, event.SendMessage, event.MessagePayload{Message: "hello all"})

	env := readEvent(t, alice)
	req.Equal(event.MessageSent, env.Event)
	req.Equal("10.0.0.5", decode[event.SentPayload](t, env).IP)

	env = readEvent(t, alice)
	req.Equal(event.NewMessage, env.Event)

	env = readEvent(t, bob)
	req.Equal(event.NewMessage, env.Event)
	msg := decode[domain.Message](t, env)
	req.Equal("hello all", msg.Body)
	req.Equal("10.0.0.5", msg.IP)
}

func Test_Chunked_Upload_Over_The_Channel(t *testing.T) {
	req := require.New(t)
	r := newTestRelay(t)

	alice := dial(t, r, "10.0.0.5")
	readEvent(t, alice) // history
	readEvent(t, alice) // online count

	parts := []string{"abc", "def", "ghi"}
	for i, part := range parts {
		index := i
		send(t, alice, event.FileChunk, event.ChunkPayload{
			FileID:      "t1",
			ChunkIndex:  &index,
			TotalChunks: len(parts),
			FileName:    "note.txt",
			FileSize:    9,
			FileType:    "text/plain",
			Data:        strings.TrimRight(codec.Encode([]byte(part)), "="),
		})
	}
	for i := range parts {
		env := readEvent(t, alice)
		req.Equal(event.FileChunkAck, env.Event)
		ack := decode[event.AckPayload](t, env)
		req.True(ack.Success)
		req.Equal(i, *ack.ChunkIndex)
	}

	send(t, alice, event.FileUploadComplete, event.CompletePayload{FileID: "t1", Message: "notes attached"})

	env := readEvent(t, alice)
	req.Equal(event.MessageSent, env.Event)
	env = readEvent(t, alice)
	req.Equal(event.NewMessage, env.Event)
	msg := decode[domain.Message](t, env)
	req.Equal(domain.KindFile, msg.Kind)
	req.NotNil(msg.File)
	req.Equal("note.txt", msg.File.Name)

	content, err := os.ReadFile(filepath.Join(r.filesDir, msg.File.StoredName))
	req.NoError(err)
	req.Equal([]byte("abcdefghi"), content)
}
