package repository

import (
	"database/sql"
	"fmt"
	"time"

	"pricehunter/database"
	"pricehunter/models"
)

type WatchRepository struct{}

func NewWatchRepository() *WatchRepository {
	return &WatchRepository{}
}

// AddSavedSearch saves a query for scheduled re-checking. targetPrice is
// optional; without one the check only records the price, never alerts.
func (r *WatchRepository) AddSavedSearch(searchQuery string, targetPrice *float64) (*models.SavedSearch, error) {
	query := `
		INSERT INTO saved_searches (query, target_price, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (query) DO UPDATE SET target_price = EXCLUDED.target_price, is_active = TRUE
		RETURNING id, query, target_price, last_checked, last_best_price, created_at, is_active
	`

	var target sql.NullFloat64
	if targetPrice != nil {
		target = sql.NullFloat64{Float64: *targetPrice, Valid: true}
	}

	var saved models.SavedSearch
	err := database.DB.QueryRow(query, searchQuery, target, time.Now()).Scan(
		&saved.ID, &saved.Query, &saved.TargetPrice,
		&saved.LastChecked, &saved.LastBestPrice, &saved.CreatedAt, &saved.IsActive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add saved search: %v", err)
	}

	return &saved, nil
}

// GetActiveSavedSearches returns all saved searches the checker should run.
func (r *WatchRepository) GetActiveSavedSearches() ([]models.SavedSearch, error) {
	query := `
		SELECT id, query, target_price, last_checked, last_best_price, created_at, is_active
		FROM saved_searches
		WHERE is_active = true
		ORDER BY created_at DESC
	`

	rows, err := database.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get saved searches: %v", err)
	}
	defer rows.Close()

	var searches []models.SavedSearch
	for rows.Next() {
		var saved models.SavedSearch
		err := rows.Scan(
			&saved.ID, &saved.Query, &saved.TargetPrice,
			&saved.LastChecked, &saved.LastBestPrice, &saved.CreatedAt, &saved.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved search: %v", err)
		}
		searches = append(searches, saved)
	}

	return searches, nil
}

// GetSavedSearchByID returns one saved search.
func (r *WatchRepository) GetSavedSearchByID(id int) (*models.SavedSearch, error) {
	query := `
		SELECT id, query, target_price, last_checked, last_best_price, created_at, is_active
		FROM saved_searches
		WHERE id = $1 AND is_active = true
	`

	var saved models.SavedSearch
	err := database.DB.QueryRow(query, id).Scan(
		&saved.ID, &saved.Query, &saved.TargetPrice,
		&saved.LastChecked, &saved.LastBestPrice, &saved.CreatedAt, &saved.IsActive,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("saved search not found")
		}
		return nil, fmt.Errorf("failed to get saved search: %v", err)
	}

	return &saved, nil
}

// UpdateCheckResult records the outcome of a scheduled check.
func (r *WatchRepository) UpdateCheckResult(id int, bestPrice *float64) error {
	query := `
		UPDATE saved_searches
		SET last_checked = $2, last_best_price = $3
		WHERE id = $1
	`

	var price sql.NullFloat64
	if bestPrice != nil {
		price = sql.NullFloat64{Float64: *bestPrice, Valid: true}
	}

	_, err := database.DB.Exec(query, id, time.Now(), price)
	if err != nil {
		return fmt.Errorf("failed to update check result: %v", err)
	}

	return nil
}

// DeleteSavedSearch deactivates a saved search.
func (r *WatchRepository) DeleteSavedSearch(id int) error {
	query := `UPDATE saved_searches SET is_active = false WHERE id = $1`
	_, err := database.DB.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete saved search: %v", err)
	}
	return nil
}
