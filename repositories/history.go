package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"lantalk/domain"
)

// document is the persisted layout: the global ordered log plus a per-address
// copy of each sender's own messages. The whole document is rewritten on
// every mutation.
type document struct {
	ChatHistory    map[string][]domain.Message `json:"chat_history"`
	GlobalMessages []domain.Message            `json:"global_messages"`
}

// HistoryRepository owns the chat history document. Appends are serialized
// by a mutex so concurrent senders cannot lose writes.
type HistoryRepository struct {
	path string
	log  *slog.Logger

	mu  sync.Mutex
	doc document
}

// NewHistoryRepository loads the document from disk. A missing file starts
// an empty history; a corrupt one is logged and replaced rather than
// blocking startup.
func NewHistoryRepository(path string, log *slog.Logger) (*HistoryRepository, error) {
	r := &HistoryRepository{
		path: path,
		log:  log,
		doc:  document{ChatHistory: make(map[string][]domain.Message)},
	}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		log.Info("no chat history yet, starting empty", "path", path)
		return r, nil
	case err != nil:
		return nil, fmt.Errorf("reading chat history: %w", err)
	}

	if err := json.Unmarshal(raw, &r.doc); err != nil {
		log.Warn("chat history unreadable, starting empty", "path", path, "error", err)
		r.doc = document{ChatHistory: make(map[string][]domain.Message)}
		return r, nil
	}
	if r.doc.ChatHistory == nil {
		r.doc.ChatHistory = make(map[string][]domain.Message)
	}
	log.Info("chat history loaded",
		"path", path,
		"senders", len(r.doc.ChatHistory),
		"messages", len(r.doc.GlobalMessages))
	return r, nil
}

// Append records the message in the global log and the sender's own list,
// then rewrites the document.
func (r *HistoryRepository) Append(m domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doc.GlobalMessages = append(r.doc.GlobalMessages, m)
	r.doc.ChatHistory[m.IP] = append(r.doc.ChatHistory[m.IP], m)

	return r.flush()
}

// Global returns a snapshot of the global message log, oldest first.
func (r *HistoryRepository) Global() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make([]domain.Message, len(r.doc.GlobalMessages))
	copy(snapshot, r.doc.GlobalMessages)
	return snapshot
}

// flush writes to a sibling temp file and renames it into place so a crash
// mid-write never truncates the existing document. Caller holds the mutex.
func (r *HistoryRepository) flush() error {
	raw, err := json.MarshalIndent(r.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding chat history: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing chat history: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replacing chat history: %w", err)
	}
	return nil
}
