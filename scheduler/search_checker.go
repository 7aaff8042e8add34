package scheduler

import (
	"context"
	"log"

	"pricehunter/aggregator"
	"pricehunter/models"
	"pricehunter/repository"

	"github.com/robfig/cron/v3"
)

// SearchChecker re-runs saved searches on a schedule and logs when a
// tracked query drops to or below its target price. It uses its own
// Aggregator so scheduled runs never supersede interactive searches.
type SearchChecker struct {
	cron       *cron.Cron
	agg        *aggregator.Aggregator
	watchRepo  *repository.WatchRepository
	searchRepo *repository.SearchRepository
}

func NewSearchChecker(agg *aggregator.Aggregator) *SearchChecker {
	return &SearchChecker{
		cron:       cron.New(cron.WithSeconds()),
		agg:        agg,
		watchRepo:  repository.NewWatchRepository(),
		searchRepo: repository.NewSearchRepository(),
	}
}

// Start starts the scheduled search checking
func (sc *SearchChecker) Start() {
	// Re-check saved searches every 12 hours (at 00:00 and 12:00)
	_, err := sc.cron.AddFunc("0 0 */12 * * *", sc.checkAllSearches)
	if err != nil {
		log.Printf("Failed to schedule search checker: %v", err)
		return
	}

	// Also run immediately on startup
	go sc.checkAllSearches()

	sc.cron.Start()
	log.Println("Search checker scheduled to run every 12 hours")
}

// Stop stops the scheduled search checking
func (sc *SearchChecker) Stop() {
	if sc.cron != nil {
		sc.cron.Stop()
	}
}

// checkAllSearches re-runs every active saved search. Searches run one at
// a time: each Search call on the shared checker aggregator supersedes the
// previous one, so running them concurrently would discard results.
func (sc *SearchChecker) checkAllSearches() {
	log.Println("Starting scheduled check for all saved searches")

	searches, err := sc.watchRepo.GetActiveSavedSearches()
	if err != nil {
		log.Printf("Failed to get saved searches: %v", err)
		return
	}

	if len(searches) == 0 {
		log.Println("No saved searches to check")
		return
	}

	log.Printf("Checking %d saved searches", len(searches))

	for _, saved := range searches {
		sc.checkSearch(saved)
	}
}

// checkSearch runs one saved search and records the outcome
func (sc *SearchChecker) checkSearch(saved models.SavedSearch) {
	log.Printf("Checking saved search: %q", saved.Query)

	result, err := sc.agg.Search(context.Background(), saved.Query)
	if err != nil {
		log.Printf("Failed to run saved search %q: %v", saved.Query, err)
		return
	}

	best, store := result.BestOverall()
	if best == nil {
		log.Printf("No priced offers for %q this check", saved.Query)
	} else {
		log.Printf("Current best for %q: %.2f %s at %s", saved.Query, *best, models.DefaultCurrency, store)
	}

	if _, err := sc.searchRepo.RecordSearch(result); err != nil {
		log.Printf("Failed to record search history for %q: %v", saved.Query, err)
	}

	if err := sc.watchRepo.UpdateCheckResult(saved.ID, best); err != nil {
		log.Printf("Failed to update check result for %q: %v", saved.Query, err)
	}

	// Target price alert
	if best != nil && saved.HasTarget() && *best <= saved.GetTargetPrice() {
		log.Printf("🚨 ALERT TRIGGERED for %q: best price %.2f %s at %s", saved.Query, *best, models.DefaultCurrency, store)
		log.Printf("   Target price: %.2f", saved.GetTargetPrice())
	}

	// Log price movement against the previous check
	if best != nil && saved.LastBestPrice.Valid && *best != saved.LastBestPrice.Float64 {
		prev := saved.LastBestPrice.Float64
		change := *best - prev
		changePercent := (change / prev) * 100

		if change < 0 {
			log.Printf("📉 Price DROPPED for %q: %.2f → %.2f (%.1f%%)",
				saved.Query, prev, *best, changePercent)
		} else {
			log.Printf("📈 Price INCREASED for %q: %.2f → %.2f (+%.1f%%)",
				saved.Query, prev, *best, changePercent)
		}
	}
}

// ManualCheck allows manual triggering of saved search checks
func (sc *SearchChecker) ManualCheck() {
	log.Println("Manual saved search check triggered")
	sc.checkAllSearches()
}
