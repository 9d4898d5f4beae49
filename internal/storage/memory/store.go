// Package memory provides an in-process snapshot store for development and
// tests.
package memory

import (
	"context"
	"sync"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
)

// Store keeps board and settings snapshots in process memory. Contents are
// lost on restart.
type Store struct {
	mu       sync.Mutex
	board    jobs.BoardSnapshot
	settings jobs.Settings
}

// NewStore builds an empty store.
func NewStore() *Store {
	return &Store{}
}

// SaveBoard implements jobs.SnapshotStore.
func (s *Store) SaveBoard(_ context.Context, snap jobs.BoardSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.board = cloneBoard(snap)
	return nil
}

// LoadBoard implements jobs.SnapshotStore. An empty store returns an empty
// snapshot, never an error.
func (s *Store) LoadBoard(context.Context) (jobs.BoardSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return jobs.BoardSnapshot{}, nil
	}
	return cloneBoard(s.board), nil
}

// SaveSettings implements jobs.SnapshotStore.
func (s *Store) SaveSettings(_ context.Context, settings jobs.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return nil
}

// LoadSettings implements jobs.SnapshotStore.
func (s *Store) LoadSettings(context.Context) (jobs.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func cloneBoard(snap jobs.BoardSnapshot) jobs.BoardSnapshot {
	out := make(jobs.BoardSnapshot, len(snap))
	for category, postings := range snap {
		column := make([]jobs.ClassifiedPosting, len(postings))
		copy(column, postings)
		out[category] = column
	}
	return out
}
