// Package memory stores page archives in-memory for development.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// BlobStore keeps saved pages in a map and returns pseudo URIs.
type BlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{data: make(map[string][]byte)}
}

// Save implements jobs.Archiver.
func (s *BlobStore) Save(_ context.Context, path string, _ string, data []byte) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", path), nil
}

// Get returns the saved content, for inspection in tests.
func (s *BlobStore) Get(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[path]
	return data, ok
}
