package domain

import "time"

// Transfer tracks one in-progress chunked upload. Metadata is fixed by the
// first chunk; Chunks accumulates text-encoded payloads keyed by index,
// duplicates simply overwriting. The owning store serializes access.
type Transfer struct {
	ID           string
	FileName     string
	DeclaredSize int64
	MimeType     string
	TotalChunks  int
	Chunks       map[int]string
	LastTouched  time.Time
}

// ReceivedCount is the number of distinct chunk indices present.
// Re-sent chunks never inflate it past the map size.
func (t *Transfer) ReceivedCount() int {
	return len(t.Chunks)
}

// Complete reports whether every declared chunk has arrived.
func (t *Transfer) Complete() bool {
	return len(t.Chunks) == t.TotalChunks
}
