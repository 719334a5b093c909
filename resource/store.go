package resource

import (
	"context"
	"net/url"
	"slices"
	"sync"

	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/jrsteele09/go-inventory-client/inventory"
	"github.com/rs/zerolog"
)

// Snapshot is a point-in-time copy of a store.
type Snapshot[T inventory.Entity] struct {
	Items   []T              `json:"items" yaml:"items"`
	Loading bool             `json:"loading" yaml:"loading"`
	Error   *errors.APIError `json:"error,omitempty" yaml:"error,omitempty"`
}

// Store is the client-side collection of one entity type. Items change only when the matching
// repository call succeeds; a failed call records its error and leaves the items as they were.
type Store[T inventory.Entity] struct {
	repo   Repository[T]
	logger zerolog.Logger

	mu      sync.RWMutex
	items   []T
	pending int
	err     *errors.APIError
}

func NewStore[T inventory.Entity](repo Repository[T], logger zerolog.Logger) *Store[T] {
	return &Store[T]{repo: repo, logger: logger, items: []T{}}
}

// FetchAll replaces the items with the server's list.
func (s *Store[T]) FetchAll(ctx context.Context, query url.Values) error {
	s.begin()
	items, err := s.repo.FetchAll(ctx, query)
	return s.finish(err, func() {
		s.items = slices.Clone(items)
	})
}

// Create appends the created entity as returned by the server.
func (s *Store[T]) Create(ctx context.Context, entity T) (T, error) {
	s.begin()
	created, err := s.repo.Create(ctx, entity)
	return created, s.finish(err, func() {
		s.items = append(s.items, created)
	})
}

// Update replaces the entry with the same id, if present.
func (s *Store[T]) Update(ctx context.Context, id int64, entity T) (T, error) {
	s.begin()
	updated, err := s.repo.Update(ctx, id, entity)
	return updated, s.finish(err, func() {
		s.replaceLocked(updated)
	})
}

// Delete removes the entry with the given id.
func (s *Store[T]) Delete(ctx context.Context, id int64) error {
	s.begin()
	err := s.repo.Delete(ctx, id)
	return s.finish(err, func() {
		s.items = slices.DeleteFunc(s.items, func(item T) bool { return item.GetID() == id })
	})
}

// Get reads a single entity without changing the collection.
func (s *Store[T]) Get(ctx context.Context, id int64) (T, error) {
	s.begin()
	item, err := s.repo.Get(ctx, id)
	return item, s.finish(err, nil)
}

func (s *Store[T]) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending++
	s.err = nil
}

// finish applies mutate on success and records the classified error on failure.
func (s *Store[T]) finish(err error, mutate func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--

	if err != nil {
		s.err = errors.Classify(err)
		s.logger.Debug().Err(s.err).Int("status", s.err.Status).Msg("resource call failed")
		return s.err
	}
	if mutate != nil {
		mutate()
	}
	return nil
}

// replaceLocked swaps in item for the entry with the same id.
func (s *Store[T]) replaceLocked(item T) {
	for i := range s.items {
		if s.items[i].GetID() == item.GetID() {
			s.items[i] = item
			return
		}
	}
}

// Items returns a copy of the collection in server order.
func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Find returns the entry with the given id.
func (s *Store[T]) Find(id int64) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.GetID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Loading reports whether any call is in flight.
func (s *Store[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending > 0
}

// Err returns the last failure, or nil.
func (s *Store[T]) Err() *errors.APIError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Store[T]) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
}

func (s *Store[T]) Snapshot() Snapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot[T]{
		Items:   slices.Clone(s.items),
		Loading: s.pending > 0,
		Error:   s.err,
	}
}
