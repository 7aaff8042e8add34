package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pricehunter/aggregator"
	"pricehunter/models"
	"pricehunter/repository"
	"pricehunter/scheduler"

	"github.com/gorilla/mux"
)

type Handlers struct {
	agg         *aggregator.Aggregator
	newAgg      func() *aggregator.Aggregator
	taskManager *scheduler.TaskManager
	searchRepo  *repository.SearchRepository
	watchRepo   *repository.WatchRepository
	dbEnabled   bool
}

// NewHandlers wires the HTTP surface. agg serves interactive searches, where
// a newer query supersedes an older one; newAgg builds an aggregator for one
// background task, because queued tasks run concurrently and each must
// complete on its own. When dbEnabled is false the history and watch
// endpoints return 503 and completed searches are not recorded.
func NewHandlers(agg *aggregator.Aggregator, newAgg func() *aggregator.Aggregator, maxTaskWorkers int, dbEnabled bool) *Handlers {
	h := &Handlers{
		agg:       agg,
		newAgg:    newAgg,
		dbEnabled: dbEnabled,
	}
	if dbEnabled {
		h.searchRepo = repository.NewSearchRepository()
		h.watchRepo = repository.NewWatchRepository()
	}

	h.taskManager = scheduler.NewTaskManager(h.performSearch, maxTaskWorkers)

	return h
}

// Close shuts down the handlers
func (h *Handlers) Close() {
	if h.taskManager != nil {
		h.taskManager.Stop()
	}
}

// GetTaskManager returns the task manager
func (h *Handlers) GetTaskManager() *scheduler.TaskManager {
	return h.taskManager
}

// performSearch runs an aggregated search and records it (used by TaskManager).
// Each task gets a fresh aggregator: tasks are independent jobs, and sharing
// one would make concurrent tasks supersede each other.
func (h *Handlers) performSearch(query string) (*models.SearchResult, error) {
	result, err := h.newAgg().Search(context.Background(), query)
	if err != nil {
		return nil, err
	}
	h.recordSearch(result)
	return result, nil
}

func (h *Handlers) recordSearch(result *models.SearchResult) {
	if !h.dbEnabled {
		return
	}
	if _, err := h.searchRepo.RecordSearch(result); err != nil {
		log.Printf("❌ Failed to record search history: %v", err)
	}
}

// HealthCheck returns a simple health check response
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   "pricehunter",
		"version":   "1.0.0",
	}
	writeJSON(w, http.StatusOK, response)
}

// Search runs a synchronous aggregated search across all stores
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query parameter 'q' is required")
		return
	}

	result, err := h.agg.Search(r.Context(), query)
	if err != nil {
		if err == aggregator.ErrSuperseded {
			writeError(w, http.StatusConflict, "Search superseded by a newer query")
			return
		}
		log.Printf("Search failed for %q: %v", query, err)
		writeError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	h.recordSearch(result)

	response := map[string]interface{}{
		"session_id":   result.SessionID,
		"query":        result.Query,
		"groups":       result.Groups,
		"total_offers": result.TotalOffers,
		"debug":        result.Debug,
		"completed_at": result.CompletedAt,
	}
	if result.TotalOffers == 0 {
		response["message"] = "no priced products found"
	}

	writeJSON(w, http.StatusOK, response)
}

// SearchAsync starts an async search and returns a task ID
func (h *Handlers) SearchAsync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}

	task := h.taskManager.SubmitTask(req.Query)

	log.Printf("🚀 Async search started for %q (Task ID: %s)", req.Query, task.ID)

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"task_id": task.ID,
		"status":  task.Status,
		"message": "Search queued for processing",
		"query":   req.Query,
	})
}

// GetTaskStatus returns the status of an async search task
func (h *Handlers) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	taskID := vars["taskId"]

	task, exists := h.taskManager.GetTask(taskID)
	if !exists {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// GetTaskStats returns statistics about the task manager
func (h *Handlers) GetTaskStats(w http.ResponseWriter, r *http.Request) {
	stats := h.taskManager.GetStats()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats":     stats,
		"timestamp": time.Now(),
	})
}

// GetSearchHistory returns recent searches
func (h *Handlers) GetSearchHistory(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	records, err := h.searchRepo.GetRecentSearches(limit)
	if err != nil {
		log.Printf("Failed to get search history: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get search history")
		return
	}

	out := make([]interface{}, 0, len(records))
	for i := range records {
		out = append(out, records[i].ToJSON())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"history": out,
		"count":   len(out),
	})
}

// GetPriceTrend returns recorded best prices for a query, oldest first
func (h *Handlers) GetPriceTrend(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query parameter 'q' is required")
		return
	}

	records, err := h.searchRepo.GetPriceTrend(query, 0)
	if err != nil {
		log.Printf("Failed to get price trend: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get price trend")
		return
	}

	out := make([]interface{}, 0, len(records))
	for i := range records {
		out = append(out, records[i].ToJSON())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query": query,
		"trend": out,
	})
}

// AddWatch saves a search query for scheduled re-checking
func (h *Handlers) AddWatch(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}

	var req struct {
		Query       string   `json:"query"`
		TargetPrice *float64 `json:"target_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}
	if req.TargetPrice != nil && *req.TargetPrice <= 0 {
		writeError(w, http.StatusBadRequest, "Target price must be positive")
		return
	}

	saved, err := h.watchRepo.AddSavedSearch(req.Query, req.TargetPrice)
	if err != nil {
		log.Printf("Failed to add saved search: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save search")
		return
	}

	writeJSON(w, http.StatusCreated, saved.ToJSON())
}

// GetWatches returns all active saved searches
func (h *Handlers) GetWatches(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}

	searches, err := h.watchRepo.GetActiveSavedSearches()
	if err != nil {
		log.Printf("Failed to get saved searches: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get saved searches")
		return
	}

	out := make([]interface{}, 0, len(searches))
	for i := range searches {
		out = append(out, searches[i].ToJSON())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"watches": out,
		"count":   len(out),
	})
}

// DeleteWatch deactivates a saved search
func (h *Handlers) DeleteWatch(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}

	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid watch ID")
		return
	}

	if _, err := h.watchRepo.GetSavedSearchByID(id); err != nil {
		writeError(w, http.StatusNotFound, "Saved search not found")
		return
	}

	if err := h.watchRepo.DeleteSavedSearch(id); err != nil {
		log.Printf("Failed to delete saved search: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete saved search")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Saved search deleted"})
}

func (h *Handlers) requireDB(w http.ResponseWriter) bool {
	if !h.dbEnabled {
		writeError(w, http.StatusServiceUnavailable, "Persistence is not configured")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
