package services

import (
	"fmt"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"

	"lantalk/codec"
	"lantalk/domain"
	lanterrors "lantalk/errors"
)

// ReassemblyResult carries the reconstructed bytes plus the findings that
// are recorded rather than thrown: a declared-size mismatch and the mime
// type sniffed from the actual content.
type ReassemblyResult struct {
	Bytes        []byte
	SizeMismatch bool
	SniffedMime  string
}

// Reassembler turns a complete Transfer back into the original byte
// sequence: decode each chunk on its own, then concatenate raw segments
// in index order.
type Reassembler struct {
	log *slog.Logger
}

func NewReassembler(log *slog.Logger) *Reassembler {
	return &Reassembler{log: log}
}

func (r *Reassembler) Reassemble(t *domain.Transfer) (ReassemblyResult, error) {
	segments := make([][]byte, 0, t.TotalChunks)
	size := 0
	for i := 0; i < t.TotalChunks; i++ {
		raw, ok := t.Chunks[i]
		if !ok {
			// Unreachable after TakeForReassembly; a hole here means
			// the completeness invariant was broken.
			return ReassemblyResult{}, lanterrors.MissingChunkError{Index: i}
		}
		decoded, err := codec.Decode(codec.StripDataURL(raw))
		if err != nil {
			return ReassemblyResult{}, fmt.Errorf("chunk %d of %s: %w", i, t.ID, err)
		}
		segments = append(segments, decoded)
		size += len(decoded)
	}

	data := make([]byte, 0, size)
	for _, seg := range segments {
		data = append(data, seg...)
	}

	result := ReassemblyResult{
		Bytes:        data,
		SizeMismatch: int64(len(data)) != t.DeclaredSize,
		SniffedMime:  mimetype.Detect(data).String(),
	}
	if result.SizeMismatch {
		r.log.Warn("reassembled size differs from declared size",
			"transfer_id", t.ID,
			"file_name", t.FileName,
			"declared", t.DeclaredSize,
			"actual", len(data))
	}
	if t.MimeType != "" && result.SniffedMime != t.MimeType {
		r.log.Debug("sniffed mime type differs from declared",
			"transfer_id", t.ID,
			"declared", t.MimeType,
			"sniffed", result.SniffedMime)
	}
	return result, nil
}
