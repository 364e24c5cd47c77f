package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ecotermo/internal/database"
	"ecotermo/internal/eco"
)

// ErrInjected is returned by the failing test doubles.
var ErrInjected = errors.New("injected failure")

// NewTestStore creates a migrated in-memory SQLite store.
// The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) *database.SQLiteStore {
	t.Helper()

	store, err := database.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// FaultyStore wraps a Store, counts calls and injects failures.
type FaultyStore struct {
	eco.Store

	mu sync.Mutex
	// FailBatchAt makes the Nth BatchWrite call (1-based) fail. Zero disables.
	FailBatchAt int
	// FailGetAll makes every GetAll call fail.
	FailGetAll bool

	batchCalls int
	batchSizes []int
}

// NewFaultyStore wraps inner.
func NewFaultyStore(inner eco.Store) *FaultyStore {
	return &FaultyStore{Store: inner}
}

func (s *FaultyStore) GetAll(ctx context.Context, collection string) (map[string][]byte, error) {
	s.mu.Lock()
	fail := s.FailGetAll
	s.mu.Unlock()
	if fail {
		return nil, ErrInjected
	}
	return s.Store.GetAll(ctx, collection)
}

func (s *FaultyStore) BatchWrite(ctx context.Context, ops []eco.WriteOp) error {
	s.mu.Lock()
	s.batchCalls++
	s.batchSizes = append(s.batchSizes, len(ops))
	fail := s.FailBatchAt != 0 && s.batchCalls == s.FailBatchAt
	s.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return s.Store.BatchWrite(ctx, ops)
}

// BatchCalls returns how many BatchWrite calls were made.
func (s *FaultyStore) BatchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batchCalls
}

// BatchSizes returns the op count of each BatchWrite call in call order.
func (s *FaultyStore) BatchSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.batchSizes...)
}

// Reset clears the counters and injected failures.
func (s *FaultyStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailBatchAt = 0
	s.FailGetAll = false
	s.batchCalls = 0
	s.batchSizes = nil
}
