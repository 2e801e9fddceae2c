package services

import (
	"errors"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"lantalk/codec"
	"lantalk/domain"
	"lantalk/domain/event"
	lanterrors "lantalk/errors"
)

// Peer is one connected client as seen from the service: an address and a
// way to push an event to that client only.
type Peer interface {
	IP() string
	Send(name event.Name, payload any)
}

// Broadcaster fans an event out to every connected client.
type Broadcaster interface {
	Broadcast(name event.Name, payload any)
}

type HistoryAppender interface {
	Append(m domain.Message) error
}

type FileSaver interface {
	Save(data []byte, originalName string) (string, error)
}

type MetaWriter interface {
	Put(storedName string, meta domain.StoredFile) error
}

// ChatService drives the transfer session protocol and the inline message
// path. Per-chunk acks go to the sender only; a broadcast happens once a
// message is actually produced.
type ChatService struct {
	log         *slog.Logger
	store       *ChunkStore
	reassembler *Reassembler
	files       FileSaver
	meta        MetaWriter
	history     HistoryAppender
	hub         Broadcaster
}

func NewChatService(log *slog.Logger, store *ChunkStore, reassembler *Reassembler,
	files FileSaver, meta MetaWriter, history HistoryAppender, hub Broadcaster) *ChatService {
	return &ChatService{
		log:         log,
		store:       store,
		reassembler: reassembler,
		files:       files,
		meta:        meta,
		history:     history,
		hub:         hub,
	}
}

// HandleChunk stores one chunk and acks it back to the sender. A rejected
// chunk leaves the transfer untouched so the sender may retry it.
func (s *ChatService) HandleChunk(sender Peer, p event.ChunkPayload) {
	received, total, err := s.store.PutChunk(p)
	if err != nil {
		s.log.Warn("chunk rejected", "ip", sender.IP(), "error", err)
		sender.Send(event.FileChunkAck, event.AckPayload{Success: false, Error: err.Error()})
		return
	}
	sender.Send(event.FileChunkAck, event.AckPayload{Success: true, ChunkIndex: p.ChunkIndex})

	if received%10 == 0 || received == total {
		s.log.Info("chunk progress",
			"transfer_id", p.FileID,
			"file_name", p.FileName,
			"received", received,
			"total", total)
	}
}

// HandleUploadComplete reacts to the explicit completion signal. Unknown or
// incomplete transfers are logged no-ops, which makes duplicate and early
// signals harmless. A complete transfer is reassembled, persisted, recorded
// in history and broadcast, in that order.
func (s *ChatService) HandleUploadComplete(sender Peer, p event.CompletePayload) {
	if err := p.Validate(); err != nil {
		s.log.Warn("malformed completion signal", "ip", sender.IP(), "error", err)
		return
	}

	t, err := s.store.TakeForReassembly(p.FileID)
	switch {
	case errors.Is(err, lanterrors.ErrTransferNotFound):
		s.log.Info("completion signal for unknown transfer, ignoring", "transfer_id", p.FileID)
		return
	case errors.Is(err, lanterrors.ErrTransferIncomplete):
		s.log.Info("completion signal before all chunks arrived, ignoring", "transfer_id", p.FileID)
		return
	case err != nil:
		s.log.Error("taking transfer failed", "transfer_id", p.FileID, "error", err)
		return
	}

	result, err := s.reassembler.Reassemble(t)
	if err != nil {
		s.log.Error("reassembly failed", "transfer_id", t.ID, "file_name", t.FileName, "error", err)
		sender.Send(event.FileChunkAck, event.AckPayload{Success: false, Error: err.Error()})
		return
	}

	storedName, err := s.files.Save(result.Bytes, t.FileName)
	if err != nil {
		s.log.Error("saving reassembled file failed", "transfer_id", t.ID, "error", err)
		sender.Send(event.FileChunkAck, event.AckPayload{Success: false, Error: "file could not be saved"})
		return
	}
	s.recordFileMeta(storedName, t.FileName, int64(len(result.Bytes)), t.MimeType)

	msg := domain.NewMessage(sender.IP(), p.Message, domain.KindFile)
	msg.File = &domain.FileMeta{
		Name:        t.FileName,
		Size:        t.DeclaredSize,
		Type:        t.MimeType,
		StoredName:  storedName,
		DownloadURL: "/files/" + storedName,
	}
	s.appendAndBroadcast(sender, msg)

	s.log.Info("file upload complete",
		"transfer_id", t.ID,
		"file_name", t.FileName,
		"stored_name", storedName,
		"bytes", len(result.Bytes),
		"size_mismatch", result.SizeMismatch)
}

// HandleSendMessage covers the inline path: plain text, images carried in
// the payload, and small files that skip the chunked protocol.
func (s *ChatService) HandleSendMessage(sender Peer, p event.MessagePayload) {
	kind := domain.Kind(lo.Ternary(p.Type == "", "text", p.Type))
	msg := domain.NewMessage(sender.IP(), p.Message, kind)

	if kind == domain.KindImage {
		msg.ImageData = p.ImageData
	}

	if p.FileData != nil {
		if err := p.FileData.Validate(); err != nil {
			s.log.Warn("malformed inline file", "ip", sender.IP(), "error", err)
			return
		}
		data, err := codec.Decode(codec.StripDataURL(p.FileData.Data))
		if err != nil {
			s.log.Warn("inline file decode failed", "ip", sender.IP(), "name", p.FileData.Name, "error", err)
			return
		}
		storedName, err := s.files.Save(data, p.FileData.Name)
		if err != nil {
			s.log.Error("saving inline file failed", "name", p.FileData.Name, "error", err)
			return
		}
		s.recordFileMeta(storedName, p.FileData.Name, int64(len(data)), p.FileData.Type)
		msg.File = &domain.FileMeta{
			Name:        p.FileData.Name,
			Size:        p.FileData.Size,
			Type:        p.FileData.Type,
			StoredName:  storedName,
			DownloadURL: "/files/" + storedName,
		}
	}

	s.appendAndBroadcast(sender, msg)
}

func (s *ChatService) recordFileMeta(storedName, originalName string, size int64, mimeType string) {
	meta := domain.StoredFile{
		OriginalName: originalName,
		Size:         size,
		MimeType:     mimeType,
		StoredAt:     time.Now().UTC(),
	}
	if err := s.meta.Put(storedName, meta); err != nil {
		// Download falls back to the stored name; not worth failing the upload.
		s.log.Error("recording file metadata failed", "stored_name", storedName, "error", err)
	}
}

// appendAndBroadcast persists then delivers. A persistence failure degrades
// to broadcast-without-persist: availability over durability.
func (s *ChatService) appendAndBroadcast(sender Peer, msg domain.Message) {
	if err := s.history.Append(msg); err != nil {
		s.log.Error("history append failed, broadcasting anyway", "ip", msg.IP, "error", err)
	}
	sender.Send(event.MessageSent, event.SentPayload{IP: msg.IP})
	s.hub.Broadcast(event.NewMessage, msg)
}
