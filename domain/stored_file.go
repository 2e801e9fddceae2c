package domain

import "time"

// StoredFile is the durable record kept alongside a reassembled file so a
// download can carry the real original name instead of re-deriving it from
// the unique stored name.
type StoredFile struct {
	OriginalName string    `json:"original_name"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mime_type"`
	StoredAt     time.Time `json:"stored_at"`
}
