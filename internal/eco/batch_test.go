package eco

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// memStore is a minimal Store for exercising the chunked writer.
type memStore struct {
	mu       sync.Mutex
	docs     map[string][]byte
	calls    int
	failAt   map[int]bool
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string][]byte), failAt: make(map[int]bool)}
}

func (s *memStore) GetAll(_ context.Context, collection string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte)
	for path, body := range s.docs {
		if c, id, ok := SplitPath(path); ok && c == collection {
			out[id] = body
		}
	}
	return out, nil
}

func (s *memStore) BatchWrite(_ context.Context, ops []WriteOp) error {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		seen := s.maxSeen.Load()
		if n <= seen || s.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(s.delay)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failAt[s.calls] {
		return fmt.Errorf("write %d rejected", s.calls)
	}
	for _, op := range ops {
		if op.Kind == WriteDelete {
			delete(s.docs, op.Path)
		} else {
			s.docs[op.Path] = op.Value
		}
	}
	return nil
}

func (s *memStore) Remove(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, path)
	return nil
}

func setOps(n int) []WriteOp {
	ops := make([]WriteOp, n)
	for i := range ops {
		ops[i] = WriteOp{Path: DocPath(CollectionAssets, fmt.Sprintf("id-%03d", i)), Kind: WriteSet, Value: []byte("{}")}
	}
	return ops
}

func TestWriteChunks(t *testing.T) {
	tests := []struct {
		name      string
		ops       int
		size      int
		wantCalls int
	}{
		{name: "empty", ops: 0, size: 2, wantCalls: 0},
		{name: "exact multiple", ops: 4, size: 2, wantCalls: 2},
		{name: "remainder", ops: 5, size: 2, wantCalls: 3},
		{name: "default size", ops: 401, size: 0, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			if err := writeChunks(context.Background(), store, setOps(tt.ops), tt.size, 1, nil); err != nil {
				t.Fatalf("writeChunks() error = %v", err)
			}
			if store.calls != tt.wantCalls {
				t.Errorf("BatchWrite calls = %d, want %d", store.calls, tt.wantCalls)
			}
			if len(store.docs) != tt.ops {
				t.Errorf("stored docs = %d, want %d", len(store.docs), tt.ops)
			}
		})
	}
}

func TestWriteChunks_ConcurrencyLimit(t *testing.T) {
	store := newMemStore()
	store.delay = 5 * time.Millisecond

	if err := writeChunks(context.Background(), store, setOps(20), 2, 3, nil); err != nil {
		t.Fatalf("writeChunks() error = %v", err)
	}
	if got := store.maxSeen.Load(); got > 3 {
		t.Errorf("max chunks in flight = %d, want at most 3", got)
	}
	if len(store.docs) != 20 {
		t.Errorf("stored docs = %d, want 20", len(store.docs))
	}
}

func TestWriteChunks_FailureReportsAppliedChunks(t *testing.T) {
	store := newMemStore()
	store.failAt[3] = true

	err := writeChunks(context.Background(), store, setOps(10), 2, 1, nil)
	var bwErr *BatchWriteError
	if !errors.As(err, &bwErr) {
		t.Fatalf("writeChunks() error = %v, want *BatchWriteError", err)
	}
	if bwErr.Chunks != 5 || bwErr.Applied != 2 {
		t.Errorf("BatchWriteError = %+v, want 2 of 5 applied", bwErr)
	}
	if store.calls != 3 {
		t.Errorf("BatchWrite calls = %d, want 3 (later chunks skipped)", store.calls)
	}
	if len(store.docs) != 4 {
		t.Errorf("stored docs = %d, want the 4 from applied chunks", len(store.docs))
	}
}

func TestWriteChunks_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newMemStore()
	err := writeChunks(ctx, store, setOps(3), 2, 1, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("writeChunks() error = %v, want context.Canceled", err)
	}
	if store.calls != 0 {
		t.Errorf("BatchWrite calls = %d with cancelled context, want 0", store.calls)
	}
}
