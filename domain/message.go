// Package domain contains core concepts of the chat relay.
// This file defines chat messages and their file metadata.
// Messages are immutable once appended to history.
package domain

import "time"

type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindFile  Kind = "file"
)

// TimestampLayout matches the wire format clients render directly.
const TimestampLayout = "2006-01-02 15:04:05"

// FileMeta describes a stored file attached to a message. StoredName is
// the unique on-disk name, decoupled from the client-supplied Name to
// avoid collisions and path traversal.
type FileMeta struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	Type        string `json:"type"`
	StoredName  string `json:"filename"`
	DownloadURL string `json:"download_url"`
}

// Message is one unit of conversation history.
type Message struct {
	IP        string    `json:"ip"`
	Body      string    `json:"message"`
	Timestamp string    `json:"timestamp"`
	Kind      Kind      `json:"type"`
	ImageData string    `json:"image_data,omitempty"`
	File      *FileMeta `json:"file_data,omitempty"`
}

// NewMessage stamps a message with the current wall-clock time.
func NewMessage(ip, body string, kind Kind) Message {
	return Message{
		IP:        ip,
		Body:      body,
		Timestamp: time.Now().Format(TimestampLayout),
		Kind:      kind,
	}
}
