package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"lantalk/domain"
	lanterrors "lantalk/errors"
)

const fileMetaPrefix = "file:"

type IFileMetaRepository interface {
	Put(storedName string, meta domain.StoredFile) error
	Get(storedName string) (domain.StoredFile, error)
}

// FileMetaRepository persists stored-file metadata in BadgerDB, keyed by the
// unique on-disk name. It exists so downloads can restore the original
// filename instead of guessing it from the stored one.
type FileMetaRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewFileMetaRepository(db *badger.DB, log *slog.Logger) *FileMetaRepository {
	return &FileMetaRepository{db: db, log: log}
}

func (f *FileMetaRepository) Put(storedName string, meta domain.StoredFile) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding file metadata: %w", err)
	}
	return f.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(fileMetaPrefix+storedName), data)
	})
}

func (f *FileMetaRepository) Get(storedName string) (domain.StoredFile, error) {
	var meta domain.StoredFile
	err := f.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(fileMetaPrefix + storedName))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return lanterrors.ErrFileNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if err != nil {
		return domain.StoredFile{}, err
	}
	return meta, nil
}
