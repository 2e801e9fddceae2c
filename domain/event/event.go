// Package event defines the named events exchanged on the persistent
// channel and their payload shapes. Inbound payloads are validated before
// they reach a service; outbound payloads mirror what the web client
// renders verbatim.
package event

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"lantalk/domain"
	lanterrors "lantalk/errors"
)

type Name string

// Inbound events (client to server).
const (
	FileChunk          Name = "file_chunk"
	FileUploadComplete Name = "file_upload_complete"
	SendMessage        Name = "send_message"
)

// Outbound events (server to client).
const (
	FileChunkAck      Name = "file_chunk_ack"
	History           Name = "history"
	UserStatus        Name = "user_status"
	OnlineCountUpdate Name = "online_count_update"
	NewMessage        Name = "new_message"
	MessageSent       Name = "message_sent"
)

// Envelope frames every message on the channel.
type Envelope struct {
	Event Name            `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Wrap marshals a payload into a framed wire message.
func Wrap(name Name, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return json.Marshal(Envelope{Event: name, Data: data})
}

var validate = validator.New()

// ChunkPayload carries one piece of a chunked upload. ChunkIndex is a
// pointer so index zero survives the required check.
type ChunkPayload struct {
	FileID      string `json:"fileId" validate:"required"`
	ChunkIndex  *int   `json:"chunkIndex" validate:"required,min=0"`
	TotalChunks int    `json:"totalChunks" validate:"required,min=1"`
	FileName    string `json:"fileName" validate:"required"`
	FileSize    int64  `json:"fileSize" validate:"min=0"`
	FileType    string `json:"fileType"`
	Data        string `json:"data" validate:"required"`
}

func (p ChunkPayload) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", lanterrors.ErrValidation, err)
	}
	return nil
}

// CompletePayload is the explicit "no more chunks" signal.
type CompletePayload struct {
	FileID  string `json:"fileId" validate:"required"`
	Message string `json:"message"`
}

func (p CompletePayload) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", lanterrors.ErrValidation, err)
	}
	return nil
}

// InlineFilePayload is a small file carried whole inside send_message,
// bypassing the chunked path.
type InlineFilePayload struct {
	Name string `json:"name" validate:"required"`
	Size int64  `json:"size"`
	Type string `json:"type"`
	Data string `json:"data" validate:"required"`
}

func (p InlineFilePayload) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", lanterrors.ErrValidation, err)
	}
	return nil
}

// MessagePayload is the inline text/image/small-file path.
type MessagePayload struct {
	Message   string             `json:"message"`
	Type      string             `json:"type"`
	ImageData string             `json:"image_data"`
	FileData  *InlineFilePayload `json:"file_data"`
}

// AckPayload answers each chunk, to the sender only.
type AckPayload struct {
	Success    bool   `json:"success"`
	ChunkIndex *int   `json:"chunkIndex,omitempty"`
	Error      string `json:"error,omitempty"`
}

// HistoryPayload is sent once per connection.
type HistoryPayload struct {
	Messages []domain.Message `json:"messages"`
}

// StatusPayload announces a join or leave to the other clients.
type StatusPayload struct {
	Type        string `json:"type"`
	IP          string `json:"ip"`
	Timestamp   string `json:"timestamp"`
	OnlineCount int    `json:"online_count"`
}

type CountPayload struct {
	Count int `json:"count"`
}

type SentPayload struct {
	IP string `json:"ip"`
}
