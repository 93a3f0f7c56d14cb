// Package batch runs independent work items through bounded worker pools,
// one fixed-size batch at a time, with a fixed pause between batches.
package batch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options controls batch size, concurrency and pacing
type Options struct {
	BatchSize int
	Workers   int
	Delay     time.Duration // pause after every batch
	// OnBatch is called after each batch with the number of items processed so far
	OnBatch func(done, total int)
}

// Result pairs the output of one item with its error
type Result[R any] struct {
	Value R
	Err   error
}

// Run applies fn to every item. Result i always belongs to items[i], and a
// failed item never stops its batch. Run returns early with ctx.Err() when the
// context is cancelled between batches; results for unprocessed items are zero.
func Run[T, R any](ctx context.Context, items []T, opts Options, fn func(ctx context.Context, item T) (R, error)) ([]Result[R], error) {
	results := make([]Result[R], len(items))

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = len(items)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	for start := 0; start < len(items); start += batchSize {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		end := min(start+batchSize, len(items))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := start; i < end; i++ {
			g.Go(func() error {
				v, err := fn(gctx, items[i])
				results[i] = Result[R]{Value: v, Err: err}
				return nil
			})
		}
		_ = g.Wait()

		if opts.OnBatch != nil {
			opts.OnBatch(end, len(items))
		}

		if err := Sleep(ctx, opts.Delay); err != nil {
			return results, err
		}
	}

	return results, nil
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
