package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"lantalk/domain"
	lanterrors "lantalk/errors"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_FileMeta_Roundtrip(t *testing.T) {
	req := require.New(t)
	repo := NewFileMetaRepository(openTestDB(t), slog.Default())

	meta := domain.StoredFile{
		OriginalName: "holiday photos.zip",
		Size:         1 << 20,
		MimeType:     "application/zip",
		StoredAt:     time.Now().UTC().Truncate(time.Second),
	}
	req.NoError(repo.Put("9f2c.zip", meta))

	fetched, err := repo.Get("9f2c.zip")
	req.NoError(err)
	req.Equal(meta.OriginalName, fetched.OriginalName)
	req.Equal(meta.Size, fetched.Size)
	req.Equal(meta.MimeType, fetched.MimeType)
	req.True(meta.StoredAt.Equal(fetched.StoredAt))
}

func Test_FileMeta_Overwrite_Keeps_Latest(t *testing.T) {
	req := require.New(t)
	repo := NewFileMetaRepository(openTestDB(t), slog.Default())

	req.NoError(repo.Put("a.bin", domain.StoredFile{OriginalName: "old.bin"}))
	req.NoError(repo.Put("a.bin", domain.StoredFile{OriginalName: "new.bin"}))

	fetched, err := repo.Get("a.bin")
	req.NoError(err)
	req.Equal("new.bin", fetched.OriginalName)
}

func Test_FileMeta_Missing_Key(t *testing.T) {
	req := require.New(t)
	repo := NewFileMetaRepository(openTestDB(t), slog.Default())

	_, err := repo.Get("never-stored.bin")
	req.ErrorIs(err, lanterrors.ErrFileNotFound)
}
