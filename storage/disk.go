// Package storage keeps reassembled files on the local filesystem under
// freshly generated unique names.
package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	lanterrors "lantalk/errors"
)

type Disk struct {
	dir string
	log *slog.Logger
}

func NewDisk(dir string, log *slog.Logger) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating files directory %s: %w", dir, err)
	}
	return &Disk{dir: dir, log: log}, nil
}

// Save writes the bytes under a uuid-based name that keeps only the
// original extension. The client-supplied name never touches the
// filesystem.
func (d *Disk) Save(data []byte, originalName string) (string, error) {
	storedName := uuid.NewString() + filepath.Ext(originalName)
	path := filepath.Join(d.dir, storedName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", storedName, err)
	}
	d.log.Info("file stored", "original_name", originalName, "stored_name", storedName, "bytes", len(data))
	return storedName, nil
}

// Open returns the stored file for streaming. Names that try to escape the
// files directory are treated as absent.
func (d *Disk) Open(storedName string) (*os.File, error) {
	if storedName == "" || strings.ContainsAny(storedName, `/\`) || strings.Contains(storedName, "..") {
		return nil, lanterrors.ErrFileNotFound
	}
	f, err := os.Open(filepath.Join(d.dir, storedName))
	if os.IsNotExist(err) {
		return nil, lanterrors.ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", storedName, err)
	}
	return f, nil
}
