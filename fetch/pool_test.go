package fetch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func fastOpts() PoolOptions {
	return PoolOptions{
		Concurrency: 3,
		Timeout:     time.Second,
		MaxRetries:  2,
		BaseDelay:   time.Millisecond,
	}
}

func TestRunPoolCollectsSuccesses(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	results := RunPool(context.Background(), items, func(ctx context.Context, n int) (int, error) {
		return n * 10, nil
	}, fastOpts())

	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	// Results keep item order regardless of which worker ran them.
	for i, r := range results {
		if r != (i+1)*10 {
			t.Errorf("result[%d] = %d; want %d", i, r, (i+1)*10)
		}
	}
}

func TestRunPoolFailedItemsAreDropped(t *testing.T) {
	// 10 items, concurrency 3, items 2 and 7 fail all retries:
	// exactly 8 results and no hang.
	items := make([]int, 10)
	for i := range items {
		items[i] = i
	}

	done := make(chan []int, 1)
	go func() {
		done <- RunPool(context.Background(), items, func(ctx context.Context, n int) (int, error) {
			if n == 2 || n == 7 {
				return 0, errors.New("permanent failure")
			}
			return n, nil
		}, fastOpts())
	}()

	select {
	case results := <-done:
		if len(results) != 8 {
			t.Fatalf("expected 8 results, got %d: %v", len(results), results)
		}
		for _, r := range results {
			if r == 2 || r == 7 {
				t.Errorf("failed item %d leaked into results", r)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pool hung")
	}
}

func TestRunPoolEmptyItems(t *testing.T) {
	results := RunPool(context.Background(), nil, func(ctx context.Context, n int) (int, error) {
		t.Error("worker must not be called for empty input")
		return 0, nil
	}, fastOpts())

	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil result slice, got %v", results)
	}
}

func TestRunPoolConcurrencyLargerThanItems(t *testing.T) {
	opts := fastOpts()
	opts.Concurrency = 50

	var peak, current int64
	results := RunPool(context.Background(), []int{1, 2}, func(ctx context.Context, n int) (int, error) {
		c := atomic.AddInt64(&current, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if c <= p || atomic.CompareAndSwapInt64(&peak, p, c) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&current, -1)
		return n, nil
	}, opts)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if peak > 2 {
		t.Errorf("pool spawned %d workers for 2 items", peak)
	}
}

func TestRunPoolRetriesThenSucceeds(t *testing.T) {
	var attempts int64
	results := RunPool(context.Background(), []string{"x"}, func(ctx context.Context, s string) (string, error) {
		if atomic.AddInt64(&attempts, 1) < 3 {
			return "", errors.New("transient")
		}
		return s, nil
	}, fastOpts())

	if len(results) != 1 || results[0] != "x" {
		t.Fatalf("expected recovered result, got %v", results)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRunPoolTimeoutCountsAsFailure(t *testing.T) {
	opts := fastOpts()
	opts.Timeout = 20 * time.Millisecond
	opts.MaxRetries = 1

	var attempts int64
	results := RunPool(context.Background(), []int{1}, func(ctx context.Context, n int) (int, error) {
		atomic.AddInt64(&attempts, 1)
		select {
		case <-time.After(time.Second):
			return n, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}, opts)

	if len(results) != 0 {
		t.Errorf("expected no results, got %v", results)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts (1 retry), got %d", attempts)
	}
}

func TestRunPoolStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	items := make([]int, 100)
	var ran int64
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	opts := fastOpts()
	opts.Concurrency = 1
	RunPool(ctx, items, func(ctx context.Context, n int) (int, error) {
		atomic.AddInt64(&ran, 1)
		time.Sleep(5 * time.Millisecond)
		return n, nil
	}, opts)

	if ran >= 100 {
		t.Error("pool ignored context cancellation")
	}
}
