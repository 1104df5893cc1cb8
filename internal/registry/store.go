package registry

import (
	"os"
	"path/filepath"
	"sync"

	"sintesi/internal/errors"
)

// Store abstracts the registry's persistence so the orchestrator and
// tests can swap the backing medium.
type Store interface {
	// Read returns the raw registry bytes. A missing backing file is
	// reported via os.IsNotExist on the returned error.
	Read() ([]byte, error)
	// Write persists the raw registry bytes atomically enough for a
	// single-writer CLI: temp file in the same directory, then rename.
	Write(data []byte) error
	// Path names the backing location for log and error messages.
	Path() string
}

// FileStore persists the registry to a JSON file on disk.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Read() ([]byte, error) {
	return os.ReadFile(s.path)
}

func (s *FileStore) Write(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.New(errors.RegistryError, "failed to create registry directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".doctype-map-*.json")
	if err != nil {
		return errors.New(errors.RegistryError, "failed to create temp registry file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.New(errors.RegistryError, "failed to write registry", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.New(errors.RegistryError, "failed to close registry file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.New(errors.RegistryError, "failed to replace registry file", err)
	}
	return nil
}

func (s *FileStore) Path() string {
	return s.path
}

// MemStore holds the registry in memory for tests and dry runs.
type MemStore struct {
	mu   sync.Mutex
	data []byte
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Read() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, os.ErrNotExist
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}

func (s *MemStore) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make([]byte, len(data))
	copy(s.data, data)
	return nil
}

func (s *MemStore) Path() string {
	return "<memory>"
}
