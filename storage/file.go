package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBlobs stores blobs as files below a root directory.
type FileBlobs struct {
	Dir string
}

func NewFileBlobs(dir string) *FileBlobs {
	return &FileBlobs{Dir: dir}
}

func (b *FileBlobs) path(key string) string {
	return filepath.Join(b.Dir, filepath.FromSlash(key))
}

func (b *FileBlobs) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errBlobNotFound
	}
	return data, err
}

// Save writes to a temporary file first so readers never see a partial document.
func (b *FileBlobs) Save(ctx context.Context, key string, data []byte) error {
	p := b.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

func (b *FileBlobs) Delete(ctx context.Context, key string) error {
	err := os.Remove(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return errBlobNotFound
	}
	return err
}

// FileStore is a PlanStore backed by JSON files in a directory.
type FileStore struct {
	*documentStore
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{documentStore: newDocumentStore(NewFileBlobs(dir))}
}
