package services

import (
	"log/slog"
	"sync"
	"time"

	"lantalk/codec"
	"lantalk/domain"
	"lantalk/domain/event"
	lanterrors "lantalk/errors"
)

// ChunkStore handles concurrent accumulation of chunked uploads.
// It owns every in-progress Transfer until reassembly takes it or the
// sweeper evicts it. Mutations run under the write lock so puts for the
// same transfer are serialized and receivedCount can never lose updates.
type ChunkStore struct {
	mu        sync.RWMutex
	transfers map[string]*domain.Transfer
	log       *slog.Logger
}

func NewChunkStore(log *slog.Logger) *ChunkStore {
	return &ChunkStore{
		transfers: make(map[string]*domain.Transfer),
		log:       log,
	}
}

// PutChunk validates the payload, lazily creates the transfer on its first
// chunk, and stores the encoded payload at its index. Duplicates overwrite.
// A data URL header is stripped on ingest so the stored table is canonical
// base64 regardless of which chunk carried it. Returns the current
// (receivedCount, totalChunks) pair.
func (s *ChunkStore) PutChunk(p event.ChunkPayload) (received, total int, err error) {
	if err := p.Validate(); err != nil {
		return 0, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transfers[p.FileID]
	if !ok {
		t = &domain.Transfer{
			ID:           p.FileID,
			FileName:     p.FileName,
			DeclaredSize: p.FileSize,
			MimeType:     p.FileType,
			TotalChunks:  p.TotalChunks,
			Chunks:       make(map[int]string, p.TotalChunks),
		}
		s.transfers[p.FileID] = t
		s.log.Debug("transfer started",
			"transfer_id", p.FileID,
			"file_name", p.FileName,
			"total_chunks", p.TotalChunks,
			"declared_size", p.FileSize)
	}

	t.Chunks[*p.ChunkIndex] = codec.StripDataURL(p.Data)
	t.LastTouched = time.Now()

	return t.ReceivedCount(), t.TotalChunks, nil
}

// IsComplete reports whether every declared chunk of the transfer arrived.
// Unknown transfers are simply not complete.
func (s *ChunkStore) IsComplete(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transfers[id]
	return ok && t.Complete()
}

// TakeForReassembly atomically removes and returns a complete transfer.
// The removal is what makes a duplicate completion signal a no-op: the
// second caller gets ErrTransferNotFound instead of a double reassembly.
func (s *ChunkStore) TakeForReassembly(id string) (*domain.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transfers[id]
	if !ok {
		return nil, lanterrors.ErrTransferNotFound
	}
	if !t.Complete() {
		return nil, lanterrors.ErrTransferIncomplete
	}
	delete(s.transfers, id)
	return t, nil
}

// Evict drops a transfer if present. Safe to call for unknown ids.
func (s *ChunkStore) Evict(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transfers, id)
}

// EvictStale removes transfers untouched for longer than ttl and returns
// their ids. Called by the sweeper to reclaim abandoned uploads.
func (s *ChunkStore) EvictStale(ttl time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	var evicted []string
	for id, t := range s.transfers {
		if t.LastTouched.Before(cutoff) {
			delete(s.transfers, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// Len is the number of in-progress transfers.
func (s *ChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transfers)
}
