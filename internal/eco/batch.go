package eco

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the largest number of operations sent in one
// Store.BatchWrite call.
const DefaultBatchSize = 400

// ProgressFunc is called after each committed chunk with the number of
// operations written so far.
type ProgressFunc func(done, total int)

// writeChunks splits ops into chunks of at most size operations and waits
// for all of them. Up to concurrency chunks are in flight at once; with a
// concurrency of 1 chunks are committed in order.
//
// There is no cross-chunk atomicity: when a chunk fails, chunks committed
// before it stay applied and the returned *BatchWriteError says how many.
func writeChunks(ctx context.Context, store Store, ops []WriteOp, size, concurrency int, progress ProgressFunc) error {
	if len(ops) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var chunks [][]WriteOp
	for start := 0; start < len(ops); start += size {
		chunks = append(chunks, ops[start:min(start+size, len(ops))])
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var (
		mu      sync.Mutex
		errs    []error
		applied int
		written int
	)
	for i, chunk := range chunks {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if err := store.BatchWrite(gctx, chunk); err != nil {
				err = fmt.Errorf("chunk %d: %w", i+1, err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return err
			}
			mu.Lock()
			applied++
			written += len(chunk)
			done := written
			mu.Unlock()
			if progress != nil {
				progress(done, len(ops))
			}
			return nil
		})
	}
	_ = g.Wait()

	if applied == len(chunks) {
		return nil
	}
	if len(errs) == 0 {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return &BatchWriteError{Chunks: len(chunks), Applied: applied, Err: errors.Join(errs...)}
}
