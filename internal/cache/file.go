// ABOUTME: File-backed cache backend storing one JSON payload per key.
// ABOUTME: Keys are path-escaped into file names under a single directory.
package cache

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/2389-research/futurefeed/internal/fsutil"
)

const fileSuffix = ".json"

// FileBackend stores payloads as files in dir.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a file backend rooted at dir. The directory is created on first write.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	return &FileBackend{dir: dir}, nil
}

func (f *FileBackend) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(strings.ReplaceAll(key, ":", "~"))+fileSuffix)
}

func (f *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMiss
		}
		return nil, err
	}
	return data, nil
}

func (f *FileBackend) Set(_ context.Context, key string, payload []byte) error {
	return fsutil.AtomicWrite(f.path(key), payload)
}

func (f *FileBackend) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (f *FileBackend) Clear(_ context.Context) error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (f *FileBackend) Close() error {
	return nil
}
