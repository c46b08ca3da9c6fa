// Package storage is the persistence port for the research service.
// Components depend on this interface rather than touching the data
// directory directly, so tests can swap in the in-memory implementation.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Storage persists opaque values under string keys. Load reports whether
// the key existed; a missing key is not an error.
type Storage interface {
	Load(key string) ([]byte, bool)
	Save(key string, data []byte) error
	Delete(key string) error
}

// FileStorage writes each key to <dir>/<key>.json. Keys are restricted to
// a safe character set so a key can never escape the data directory.
type FileStorage struct {
	dir string
}

// NewFileStorage creates the data directory if needed.
func NewFileStorage(dir string) (*FileStorage, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("could not resolve data directory %q: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("could not create data directory %q: %w", abs, err)
	}
	return &FileStorage{dir: abs}, nil
}

// Dir returns the absolute data directory path.
func (f *FileStorage) Dir() string {
	return f.dir
}

// FileForKey returns the path a key persists to, or an error for keys
// containing anything outside [a-z0-9_].
func (f *FileStorage) FileForKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("storage key must not be empty")
	}
	for _, r := range key {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return "", fmt.Errorf("storage key %q contains invalid character %q", key, r)
		}
	}
	path := filepath.Join(f.dir, key+".json")
	if !strings.HasPrefix(path, f.dir) {
		return "", fmt.Errorf("storage key %q escapes data directory", key)
	}
	return path, nil
}

func (f *FileStorage) Load(key string) ([]byte, bool) {
	path, err := f.FileForKey(key)
	if err != nil {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (f *FileStorage) Save(key string, data []byte) error {
	path, err := f.FileForKey(key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	return nil
}

func (f *FileStorage) Delete(key string) error {
	path, err := f.FileForKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not remove %s: %w", path, err)
	}
	return nil
}

// MemoryStorage is the in-process implementation used by tests.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte

	// FailSaves makes every Save return an error, for exercising the
	// swallow-and-stay-authoritative failure path.
	FailSaves bool
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (m *MemoryStorage) Load(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

func (m *MemoryStorage) Save(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSaves {
		return fmt.Errorf("save disabled for key %q", key)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.data[key] = cp
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
