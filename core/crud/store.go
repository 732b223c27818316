package crud

import (
	"context"
	"sync"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

// RefreshError reports a failed List. The snapshot it relates to is stale but intact.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string { return "listing records: " + e.Err.Error() }
func (e *RefreshError) Unwrap() error { return e.Err }

// Store is the Entity Store: the snapshot of the last successful List.
// Every mutation goes through the adapter and is followed by a full refresh; the snapshot is never
// patched locally. Calls on one Store are serialised.
type Store[T Record[T]] struct {
	adapter Adapter[T]

	op sync.Mutex // one adapter call in flight

	mu      sync.RWMutex
	items   []T
	loading bool
	err     error
	loaded  bool
}

func NewStore[T Record[T]](adapter Adapter[T]) *Store[T] {
	vala.BeginValidation().Validate(
		core.IsSet(adapter, "adapter"),
	).CheckAndPanic()

	return &Store[T]{adapter: adapter, items: make([]T, 0)}
}

// Refresh replaces the snapshot with a fresh List. On failure the previous snapshot is kept
// and the error is recorded (see Err) and returned.
func (s *Store[T]) Refresh(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()
	return s.refresh(ctx)
}

func (s *Store[T]) refresh(ctx context.Context) error {
	s.setLoading(true)
	items, err := s.adapter.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.err = &RefreshError{Err: err}
		return s.err
	}
	if items == nil {
		items = make([]T, 0)
	}
	s.items = items
	s.err = nil
	s.loaded = true
	return nil
}

// Create persists draft and refreshes. The returned id is the one assigned by the adapter.
// If the adapter fails the snapshot is untouched.
func (s *Store[T]) Create(ctx context.Context, draft T) (string, error) {
	s.op.Lock()
	defer s.op.Unlock()

	id, err := s.mutate(func() (string, error) { return s.adapter.Create(ctx, draft) })
	if err != nil {
		return "", errors.Wrap(err, "creating record")
	}
	return id, s.refresh(ctx)
}

func (s *Store[T]) Update(ctx context.Context, id string, draft T) error {
	s.op.Lock()
	defer s.op.Unlock()

	if _, err := s.mutate(func() (string, error) { return id, s.adapter.Update(ctx, id, draft) }); err != nil {
		return errors.Wrap(err, "updating record")
	}
	return s.refresh(ctx)
}

func (s *Store[T]) Delete(ctx context.Context, id string) error {
	s.op.Lock()
	defer s.op.Unlock()

	if _, err := s.mutate(func() (string, error) { return id, s.adapter.Delete(ctx, id) }); err != nil {
		return errors.Wrap(err, "deleting record")
	}
	return s.refresh(ctx)
}

// mutate runs call with Loading set. On success the flag stays up for the refresh that follows.
func (s *Store[T]) mutate(call func() (string, error)) (string, error) {
	s.setLoading(true)
	id, err := call()
	if err != nil {
		s.setLoading(false)
	}
	return id, err
}

func (s *Store[T]) setLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
}

// Items returns deep copies of the snapshot, in adapter order.
func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it.Clone())
	}
	return out
}

func (s *Store[T]) Find(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, it := range s.items {
		if it.Key() == id {
			return it.Clone(), true
		}
	}
	var zero T
	return zero, false
}

// Filter is a linear scan over the snapshot.
func (s *Store[T]) Filter(pred func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0)
	for _, it := range s.items {
		if pred(it) {
			out = append(out, it.Clone())
		}
	}
	return out
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Err is the error of the last failed Refresh, nil once a Refresh succeeds.
func (s *Store[T]) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Store[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Loaded reports whether at least one Refresh succeeded.
func (s *Store[T]) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}
