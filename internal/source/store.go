package source

import (
	"context"
	"errors"
	"sync"
)

// ErrNoSnapshot is returned before the first successful refresh.
var ErrNoSnapshot = errors.New("source: no snapshot loaded yet")

// Store holds the current snapshot and swaps it atomically on refresh.
// Readers keep whatever snapshot they obtained for the duration of one
// query; a refresh never mutates a snapshot already handed out.
type Store struct {
	provider Provider

	mu      sync.RWMutex
	current *Snapshot
}

// NewStore builds a store over the provider. No snapshot is loaded until
// the first Refresh.
func NewStore(provider Provider) *Store {
	return &Store{provider: provider}
}

// Current returns the latest snapshot.
func (s *Store) Current(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoSnapshot
	}
	return s.current, nil
}

// Refresh loads a new snapshot and makes it current. On failure the
// previous snapshot stays in place.
func (s *Store) Refresh(ctx context.Context) (*Snapshot, error) {
	snap, err := Load(ctx, s.provider)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
	return snap, nil
}

// Seed installs a preloaded snapshot, used by tests and warm starts.
func (s *Store) Seed(snap *Snapshot) {
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
}
