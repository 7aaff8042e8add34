// Package fetch provides the bounded-concurrency worker pool used for
// per-link detail fetches. Workers share a cursor and each pulls the next
// unclaimed item, so slow items never stall a fixed partition.
package fetch

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Worker fetches one item. A nil-equivalent result is signalled by returning
// a non-nil error; errors never propagate out of the pool.
type Worker[T, R any] func(ctx context.Context, item T) (R, error)

// PoolOptions configures RunPool behavior.
type PoolOptions struct {
	Concurrency int           // max simultaneous workers, capped to len(items)
	Timeout     time.Duration // per-attempt timeout, 0 means no timeout
	MaxRetries  int           // retries after the first attempt
	BaseDelay   time.Duration // backoff is BaseDelay * 2^attempt
}

// DefaultPoolOptions returns the options used for product detail fetches.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		Concurrency: 4,
		Timeout:     30 * time.Second,
		MaxRetries:  1,
		BaseDelay:   500 * time.Millisecond,
	}
}

// RunPool runs worker over every item with at most opts.Concurrency in
// flight. Each item gets opts.MaxRetries retries with exponential backoff;
// an item that exhausts its retry budget is dropped. Results come back in
// item order with failed items filtered out. RunPool never returns an error
// and never hangs: an empty item list yields an empty slice, and concurrency
// larger than the item count is capped.
func RunPool[T, R any](ctx context.Context, items []T, worker Worker[T, R], opts PoolOptions) []R {
	if len(items) == 0 {
		return []R{}
	}

	workers := opts.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	type slot struct {
		value R
		ok    bool
	}
	slots := make([]slot, len(items))

	var cursor int64 = -1
	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1))
				if i >= len(items) {
					return
				}
				if ctx.Err() != nil {
					return
				}
				if value, ok := runWithRetry(ctx, items[i], worker, opts); ok {
					slots[i] = slot{value: value, ok: true}
				}
			}
		}()
	}
	wg.Wait()

	results := make([]R, 0, len(items))
	for _, s := range slots {
		if s.ok {
			results = append(results, s.value)
		}
	}
	return results
}

// runWithRetry performs one item's attempt loop. Timeouts count as failures
// against the retry budget like any other error.
func runWithRetry[T, R any](ctx context.Context, item T, worker Worker[T, R], opts PoolOptions) (R, bool) {
	var zero R
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		attemptCtx := ctx
		cancel := func() {}
		if opts.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		}
		value, err := worker(attemptCtx, item)
		cancel()
		if err == nil {
			return value, true
		}

		if ctx.Err() != nil {
			// Session cancelled, not worth retrying.
			return zero, false
		}

		if attempt < opts.MaxRetries {
			delay := opts.BaseDelay * (1 << attempt)
			log.Printf("🔄 fetch retry %d/%d in %v: %v", attempt+1, opts.MaxRetries, delay, err)
			if !sleepCtx(ctx, delay) {
				return zero, false
			}
		} else {
			log.Printf("❌ fetch gave up after %d attempts: %v", opts.MaxRetries+1, err)
		}
	}
	return zero, false
}

// sleepCtx sleeps for d unless ctx ends first. Returns false if it did.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
