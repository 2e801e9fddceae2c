package services

import (
	"log/slog"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"lantalk/codec"
	"lantalk/domain/event"
	lanterrors "lantalk/errors"
)

func chunkPayload(id string, index, total int, data string) event.ChunkPayload {
	return event.ChunkPayload{
		FileID:      id,
		ChunkIndex:  lo.ToPtr(index),
		TotalChunks: total,
		FileName:    "report.pdf",
		FileSize:    9,
		FileType:    "application/pdf",
		Data:        data,
	}
}

func Test_PutChunk_Counts_Distinct_Indices_Only(t *testing.T) {
	req := require.New(t)
	store := NewChunkStore(slog.Default())

	received, total, err := store.PutChunk(chunkPayload("t1", 1, 3, codec.Encode([]byte("def"))))
	req.NoError(err)
	req.Equal(1, received)
	req.Equal(3, total)

	received, _, err = store.PutChunk(chunkPayload("t1", 0, 3, codec.Encode([]byte("abc"))))
	req.NoError(err)
	req.Equal(2, received)

	// Network resend of chunk 1 must not inflate the count.
	received, _, err = store.PutChunk(chunkPayload("t1", 1, 3, codec.Encode([]byte("def"))))
	req.NoError(err)
	req.Equal(2, received)
	req.False(store.IsComplete("t1"))

	received, _, err = store.PutChunk(chunkPayload("t1", 2, 3, codec.Encode([]byte("ghi"))))
	req.NoError(err)
	req.Equal(3, received)
	req.True(store.IsComplete("t1"))
}

func Test_PutChunk_Rejects_Malformed_Payload(t *testing.T) {
	req := require.New(t)
	store := NewChunkStore(slog.Default())

	p := chunkPayload("", 0, 3, "YWJj")
	_, _, err := store.PutChunk(p)
	req.ErrorIs(err, lanterrors.ErrValidation)
	req.Equal(0, store.Len())

	p = chunkPayload("t1", 0, 3, "YWJj")
	p.ChunkIndex = nil
	_, _, err = store.PutChunk(p)
	req.ErrorIs(err, lanterrors.ErrValidation)
}

func Test_PutChunk_Strips_Data_URL_On_Ingest(t *testing.T) {
	req := require.New(t)
	store := NewChunkStore(slog.Default())

	encoded := codec.Encode([]byte("abc"))
	_, _, err := store.PutChunk(chunkPayload("t1", 0, 1, "data:application/pdf;base64,"+encoded))
	req.NoError(err)

	transfer, err := store.TakeForReassembly("t1")
	req.NoError(err)
	req.Equal(encoded, transfer.Chunks[0])
}

func Test_TakeForReassembly_Succeeds_At_Most_Once(t *testing.T) {
	req := require.New(t)
	store := NewChunkStore(slog.Default())

	_, _, err := store.PutChunk(chunkPayload("t1", 0, 1, codec.Encode([]byte("abc"))))
	req.NoError(err)

	transfer, err := store.TakeForReassembly("t1")
	req.NoError(err)
	req.Equal("t1", transfer.ID)
	req.Equal(0, store.Len())

	_, err = store.TakeForReassembly("t1")
	req.ErrorIs(err, lanterrors.ErrTransferNotFound)
}

func Test_TakeForReassembly_Refuses_Incomplete_Transfer(t *testing.T) {
	req := require.New(t)
	store := NewChunkStore(slog.Default())

	_, _, err := store.PutChunk(chunkPayload("t1", 0, 3, codec.Encode([]byte("abc"))))
	req.NoError(err)

	_, err = store.TakeForReassembly("t1")
	req.ErrorIs(err, lanterrors.ErrTransferIncomplete)
	req.Equal(1, store.Len(), "a refused take must leave the transfer accumulating")

	_, err = store.TakeForReassembly("unknown")
	req.ErrorIs(err, lanterrors.ErrTransferNotFound)
}

func Test_Evict_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	store := NewChunkStore(slog.Default())

	_, _, err := store.PutChunk(chunkPayload("t1", 0, 3, "YWJj"))
	req.NoError(err)

	store.Evict("t1")
	store.Evict("t1")
	store.Evict("never-existed")
	req.Equal(0, store.Len())
}

func Test_EvictStale_Only_Touches_Idle_Transfers(t *testing.T) {
	req := require.New(t)
	store := NewChunkStore(slog.Default())

	_, _, err := store.PutChunk(chunkPayload("t1", 0, 3, "YWJj"))
	req.NoError(err)
	_, _, err = store.PutChunk(chunkPayload("t2", 0, 3, "YWJj"))
	req.NoError(err)

	req.Empty(store.EvictStale(time.Hour))
	req.Equal(2, store.Len())

	evicted := store.EvictStale(-time.Second)
	req.ElementsMatch([]string{"t1", "t2"}, evicted)
	req.Equal(0, store.Len())
}
