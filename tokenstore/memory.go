package tokenstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-inventory-client/token"
)

// MemoryStore keeps the pair in process memory. It does not survive a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	pair token.Pair
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, pair token.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context) (token.Pair, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, !s.pair.IsZero(), nil
}

// SetAccess implements Store.
func (s *MemoryStore) SetAccess(_ context.Context, access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair.Access = access
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = token.Pair{}
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return s.Clear(context.Background())
}
