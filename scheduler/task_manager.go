package scheduler

import (
	"log"
	"sync"
	"time"

	"pricehunter/models"
)

// SearchFunc runs one aggregated search for a query.
type SearchFunc func(query string) (*models.SearchResult, error)

// TaskManager manages async search tasks
type TaskManager struct {
	tasks      map[string]*models.SearchTask
	taskQueue  chan *models.SearchTask
	workers    int
	maxWorkers int
	searchFunc SearchFunc
	mutex      sync.RWMutex
	stopChan   chan bool
}

// NewTaskManager creates a new task manager
func NewTaskManager(searchFunc SearchFunc, maxWorkers int) *TaskManager {
	tm := &TaskManager{
		tasks:      make(map[string]*models.SearchTask),
		taskQueue:  make(chan *models.SearchTask, 100), // Buffer for 100 tasks
		workers:    0,
		maxWorkers: maxWorkers,
		searchFunc: searchFunc,
		stopChan:   make(chan bool),
	}

	go tm.processTasks()
	log.Printf("🚀 Task manager started with %d max workers", maxWorkers)
	return tm
}

// SubmitTask submits a new async search task
func (tm *TaskManager) SubmitTask(query string) *models.SearchTask {
	task := models.NewSearchTask(query)

	tm.mutex.Lock()
	tm.tasks[task.ID] = task
	tm.mutex.Unlock()

	// Submit to queue
	select {
	case tm.taskQueue <- task:
		log.Printf("📝 Task %s submitted for query %q", task.ID, query)
	default:
		tm.failTask(task, "Task queue is full")
		log.Printf("❌ Failed to submit task %s - queue full", task.ID)
	}

	return tm.snapshot(task)
}

// GetTask returns a snapshot of a task by ID. Tasks mutate while workers
// run them, so callers get a copy they can read and encode freely.
func (tm *TaskManager) GetTask(taskID string) (*models.SearchTask, bool) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	task, exists := tm.tasks[taskID]
	if !exists {
		return nil, false
	}
	copied := *task
	return &copied, true
}

// GetActiveTasks returns snapshots of all active tasks
func (tm *TaskManager) GetActiveTasks() []*models.SearchTask {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	var activeTasks []*models.SearchTask
	for _, task := range tm.tasks {
		if task.IsActive() {
			copied := *task
			activeTasks = append(activeTasks, &copied)
		}
	}

	return activeTasks
}

// snapshot copies a task under the lock.
func (tm *TaskManager) snapshot(task *models.SearchTask) *models.SearchTask {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	copied := *task
	return &copied
}

// failTask marks a task failed under the lock.
func (tm *TaskManager) failTask(task *models.SearchTask, msg string) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	task.Fail(msg)
}

// CleanupOldTasks removes completed tasks older than specified duration
func (tm *TaskManager) CleanupOldTasks(maxAge time.Duration) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for taskID, task := range tm.tasks {
		if task.IsCompleted() && task.CreatedAt.Before(cutoff) {
			delete(tm.tasks, taskID)
			log.Printf("🧹 Cleaned up old task: %s", taskID)
		}
	}
}

// processTasks processes tasks from the queue
func (tm *TaskManager) processTasks() {
	ticker := time.NewTicker(5 * time.Second) // Cleanup every 5 seconds
	defer ticker.Stop()

	for {
		select {
		case task := <-tm.taskQueue:
			// Start a new worker if we haven't reached max
			if tm.claimWorker() {
				go tm.worker(task)
			} else {
				// Re-queue the task if we're at max workers
				go func() {
					time.Sleep(1 * time.Second) // Wait a bit before re-queuing
					select {
					case tm.taskQueue <- task:
						log.Printf("🔄 Re-queued task %s (max workers reached)", task.ID)
					default:
						tm.failTask(task, "System overloaded, unable to process task")
						log.Printf("❌ Failed to re-queue task %s", task.ID)
					}
				}()
			}

		case <-ticker.C:
			// Periodic cleanup
			tm.CleanupOldTasks(1 * time.Hour) // Keep tasks for 1 hour

		case <-tm.stopChan:
			log.Println("🛑 Task manager stopped")
			return
		}
	}
}

// claimWorker reserves a worker slot if one is free.
func (tm *TaskManager) claimWorker() bool {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	if tm.workers >= tm.maxWorkers {
		return false
	}
	tm.workers++
	return true
}

// releaseWorker frees a worker slot and returns the remaining count.
func (tm *TaskManager) releaseWorker() int {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	tm.workers--
	return tm.workers
}

// worker processes a single task. All task mutation happens under the
// manager's lock; status readers see snapshots, never the live struct.
func (tm *TaskManager) worker(task *models.SearchTask) {
	defer func() {
		log.Printf("👷 Worker finished, active workers: %d", tm.releaseWorker())
	}()

	log.Printf("👷 Worker started processing task %s for query %q", task.ID, task.Query)

	tm.mutex.Lock()
	task.Start()
	tm.mutex.Unlock()

	result, err := tm.searchFunc(task.Query)

	tm.mutex.Lock()
	if err != nil {
		task.Fail("Search failed: " + err.Error())
	} else {
		task.Complete(result)
	}
	duration := task.Duration()
	tm.mutex.Unlock()

	if err == nil {
		log.Printf("✅ Task %s completed successfully in %v", task.ID, duration)
	}
}

// Stop stops the task manager
func (tm *TaskManager) Stop() {
	close(tm.stopChan)
	log.Println("🛑 Task manager stopping...")
}

// GetStats returns task manager statistics
func (tm *TaskManager) GetStats() map[string]interface{} {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	stats := map[string]interface{}{
		"total_tasks":    len(tm.tasks),
		"active_workers": tm.workers,
		"max_workers":    tm.maxWorkers,
		"queue_size":     len(tm.taskQueue),
	}

	// Count tasks by status
	statusCounts := make(map[string]int)
	for _, task := range tm.tasks {
		status := string(task.Status)
		statusCounts[status]++
	}
	stats["tasks_by_status"] = statusCounts

	return stats
}
