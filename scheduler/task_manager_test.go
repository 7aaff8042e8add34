package scheduler

import (
	"encoding/json"
	"testing"
	"time"

	"pricehunter/models"
)

func waitForStatus(t *testing.T, tm *TaskManager, taskID string, want models.TaskStatus) *models.SearchTask {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if task, ok := tm.GetTask(taskID); ok && task.Status == want {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	task, _ := tm.GetTask(taskID)
	t.Fatalf("task %s never reached %s (last: %+v)", taskID, want, task)
	return nil
}

func TestGetTaskReturnsSnapshot(t *testing.T) {
	release := make(chan struct{})
	tm := NewTaskManager(func(query string) (*models.SearchResult, error) {
		<-release
		return &models.SearchResult{Query: query}, nil
	}, 2)
	defer tm.Stop()

	submitted := tm.SubmitTask("camera")
	waitForStatus(t, tm, submitted.ID, models.TaskStatusProcessing)

	// Mutating the returned copy must not leak into manager state.
	snap, ok := tm.GetTask(submitted.ID)
	if !ok {
		t.Fatal("task not found")
	}
	snap.Status = models.TaskStatusFailed
	snap.Error = "mutated by caller"

	again, _ := tm.GetTask(submitted.ID)
	if again.Status != models.TaskStatusProcessing || again.Error != "" {
		t.Errorf("caller mutation leaked into stored task: %+v", again)
	}

	close(release)
	done := waitForStatus(t, tm, submitted.ID, models.TaskStatusCompleted)
	if done.Result == nil || done.Result.Query != "camera" {
		t.Errorf("completed task missing result: %+v", done.Result)
	}
}

// Status polling happens while a worker is mutating the task; the snapshots
// handed out must always encode cleanly.
func TestTaskStatusReadableWhileRunning(t *testing.T) {
	tm := NewTaskManager(func(query string) (*models.SearchResult, error) {
		time.Sleep(100 * time.Millisecond)
		return &models.SearchResult{Query: query}, nil
	}, 2)
	defer tm.Stop()

	submitted := tm.SubmitTask("tv stand")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		task, ok := tm.GetTask(submitted.ID)
		if !ok {
			t.Fatal("task disappeared")
		}
		if _, err := json.Marshal(task); err != nil {
			t.Fatalf("snapshot failed to encode: %v", err)
		}
		if task.IsCompleted() {
			if task.Status != models.TaskStatusCompleted {
				t.Fatalf("task failed: %s", task.Error)
			}
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("task never completed")
}

func TestWorkerCountSettlesAfterTasks(t *testing.T) {
	tm := NewTaskManager(func(query string) (*models.SearchResult, error) {
		time.Sleep(20 * time.Millisecond)
		return &models.SearchResult{Query: query}, nil
	}, 3)
	defer tm.Stop()

	ids := make([]string, 0, 5)
	for _, q := range []string{"a", "b", "c", "d", "e"} {
		ids = append(ids, tm.SubmitTask(q).ID)
	}
	for _, id := range ids {
		waitForStatus(t, tm, id, models.TaskStatusCompleted)
	}

	// Workers release their slot just after the task flips to completed.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if tm.GetStats()["active_workers"].(int) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("active_workers = %v after all tasks finished, want 0", tm.GetStats()["active_workers"])
}
