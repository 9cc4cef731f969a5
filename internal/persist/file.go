package persist

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// FileRepository implements Repository with one file per key under a directory.
// Writes go to a temporary file that is renamed into place.
type FileRepository struct {
	dir string
}

// NewFileRepository creates the directory if needed.
func NewFileRepository(dir string) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	return &FileRepository{dir: dir}, nil
}

func (f *FileRepository) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

// Load reads the file for key.
func (f *FileRepository) Load(_ context.Context, key string) ([]byte, error) {
	blob, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return blob, nil
}

// Save writes the file for key.
func (f *FileRepository) Save(_ context.Context, key string, blob []byte) error {
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes the file for key.
func (f *FileRepository) Delete(_ context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Ping checks that the storage directory is still accessible.
func (f *FileRepository) Ping(_ context.Context) error {
	if _, err := os.Stat(f.dir); err != nil {
		return fmt.Errorf("storage directory unavailable: %w", err)
	}
	return nil
}
