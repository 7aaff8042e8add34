package handlers

import (
	"context"
	"testing"
	"time"

	"pricehunter/aggregator"
	"pricehunter/models"
	"pricehunter/sources"
)

// slowAdapter emits one offer per search after a delay, long enough that
// queued tasks overlap in time.
type slowAdapter struct {
	delay time.Duration
}

func (s *slowAdapter) Name() string { return models.StoreAmazon }

func (s *slowAdapter) Search(ctx context.Context, query string, emit sources.Emit) error {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	price := 99.0
	emit(models.Offer{
		Store:    models.StoreAmazon,
		Title:    query,
		Price:    &price,
		Currency: models.DefaultCurrency,
		Link:     "https://amazon.ae/" + query,
	})
	return nil
}

func testHandlers() *Handlers {
	newAgg := func() *aggregator.Aggregator {
		return aggregator.New([]sources.Adapter{&slowAdapter{delay: 100 * time.Millisecond}}, aggregator.LogSink{}, aggregator.Options{})
	}
	return NewHandlers(newAgg(), newAgg, 5, false)
}

// Queued searches are independent jobs: tasks running at the same time must
// all complete, with none failing because a sibling started later.
func TestConcurrentAsyncTasksAllComplete(t *testing.T) {
	h := testHandlers()
	defer h.Close()

	tm := h.GetTaskManager()
	first := tm.SubmitTask("tv")
	time.Sleep(30 * time.Millisecond)
	second := tm.SubmitTask("laptop")

	deadline := time.Now().Add(3 * time.Second)
	for _, id := range []string{first.ID, second.ID} {
		for {
			task, ok := tm.GetTask(id)
			if !ok {
				t.Fatalf("task %s not found", id)
			}
			if task.IsCompleted() {
				if task.Status != models.TaskStatusCompleted {
					t.Fatalf("task %s failed: %s", id, task.Error)
				}
				if task.Result == nil || task.Result.TotalOffers != 1 {
					t.Errorf("task %s missing its result: %+v", id, task.Result)
				}
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("task %s never completed", id)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// The interactive aggregator is not shared with the task path, so a queued
// task must never supersede a user's in-flight synchronous search.
func TestAsyncTaskDoesNotSupersedeInteractiveSearch(t *testing.T) {
	h := testHandlers()
	defer h.Close()

	type outcome struct {
		result *models.SearchResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := h.agg.Search(context.Background(), "monitor")
		done <- outcome{r, err}
	}()

	time.Sleep(20 * time.Millisecond)
	task := h.GetTaskManager().SubmitTask("keyboard")

	got := <-done
	if got.err != nil {
		t.Fatalf("interactive search failed: %v", got.err)
	}
	if got.result.TotalOffers != 1 {
		t.Errorf("interactive search lost offers: %d", got.result.TotalOffers)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		snap, _ := h.GetTaskManager().GetTask(task.ID)
		if snap != nil && snap.IsCompleted() {
			if snap.Status != models.TaskStatusCompleted {
				t.Fatalf("async task failed: %s", snap.Error)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("async task never completed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
