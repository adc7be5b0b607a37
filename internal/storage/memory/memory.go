// Package memory provides an in-process Store and Journal, used for ephemeral
// sessions and tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/cory-johannsen/slot/internal/storage"
)

// Store keeps values in a map. Nothing survives the process.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{values: make(map[string]string)}
}

// Get implements storage.Store.
func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

// Set implements storage.Store.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Close implements storage.Store.
func (s *Store) Close() error { return nil }

// Journal keeps the most recent spins in a bounded ring.
type Journal struct {
	mu      sync.Mutex
	limit   int
	records []storage.SpinRecord
	seen    map[uuid.UUID]struct{}
}

// NewJournal returns a Journal retaining at most limit records.
//
// Precondition: limit >= 1.
func NewJournal(limit int) *Journal {
	return &Journal{limit: limit, seen: make(map[uuid.UUID]struct{})}
}

// Append implements storage.Journal.
func (j *Journal) Append(_ context.Context, rec storage.SpinRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, dup := j.seen[rec.ID]; dup {
		return nil
	}
	j.seen[rec.ID] = struct{}{}
	j.records = append(j.records, rec)
	if len(j.records) > j.limit {
		delete(j.seen, j.records[0].ID)
		j.records = j.records[1:]
	}
	return nil
}

// Recent implements storage.Journal.
func (j *Journal) Recent(_ context.Context, limit int) ([]storage.SpinRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := min(limit, len(j.records))
	out := make([]storage.SpinRecord, 0, n)
	for i := len(j.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, j.records[i])
	}
	return out, nil
}
