package repository

import (
	"database/sql"
	"fmt"
	"time"

	"pricehunter/database"
	"pricehunter/models"
)

type SearchRepository struct{}

func NewSearchRepository() *SearchRepository {
	return &SearchRepository{}
}

// RecordSearch persists a completed search result and a snapshot of its
// offers. The aggregator never reads any of this back; history is a
// side record only.
func (r *SearchRepository) RecordSearch(result *models.SearchResult) (*models.SearchRecord, error) {
	best, store := result.BestOverall()

	query := `
		INSERT INTO search_history (query, session_id, total_offers, total_groups, best_price, best_store, currency, elapsed_ms, searched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, query, session_id, total_offers, total_groups, best_price, best_store, currency, elapsed_ms, searched_at
	`

	var bestPrice sql.NullFloat64
	var bestStore sql.NullString
	if best != nil {
		bestPrice = sql.NullFloat64{Float64: *best, Valid: true}
		bestStore = sql.NullString{String: store, Valid: true}
	}

	var record models.SearchRecord
	err := database.DB.QueryRow(query,
		result.Query, result.SessionID, result.TotalOffers, len(result.Groups),
		bestPrice, bestStore, models.DefaultCurrency, result.Debug.ElapsedMs, result.CompletedAt,
	).Scan(
		&record.ID, &record.Query, &record.SessionID, &record.TotalOffers, &record.TotalGroups,
		&record.BestPrice, &record.BestStore, &record.Currency, &record.ElapsedMs, &record.SearchedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record search: %v", err)
	}

	if err := r.addSnapshots(record.ID, result); err != nil {
		return nil, err
	}

	return &record, nil
}

func (r *SearchRepository) addSnapshots(searchID int, result *models.SearchResult) error {
	query := `
		INSERT INTO offer_snapshots (search_id, store, title, price, currency, link, group_key, is_best)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, group := range result.Groups {
		for i, offer := range group.Offers {
			var price sql.NullFloat64
			if offer.Price != nil {
				price = sql.NullFloat64{Float64: *offer.Price, Valid: true}
			}
			_, err := database.DB.Exec(query,
				searchID, offer.Store, offer.Title, price, offer.Currency,
				offer.Link, group.Key, group.IsBest(i),
			)
			if err != nil {
				return fmt.Errorf("failed to snapshot offer: %v", err)
			}
		}
	}

	return nil
}

// GetRecentSearches returns the most recent history entries.
func (r *SearchRepository) GetRecentSearches(limit int) ([]models.SearchRecord, error) {
	if limit <= 0 {
		limit = 20 // default limit
	}

	query := `
		SELECT id, query, session_id, total_offers, total_groups, best_price, best_store, currency, elapsed_ms, searched_at
		FROM search_history
		ORDER BY searched_at DESC
		LIMIT $1
	`

	rows, err := database.DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get search history: %v", err)
	}
	defer rows.Close()

	var records []models.SearchRecord
	for rows.Next() {
		var record models.SearchRecord
		err := rows.Scan(
			&record.ID, &record.Query, &record.SessionID, &record.TotalOffers, &record.TotalGroups,
			&record.BestPrice, &record.BestStore, &record.Currency, &record.ElapsedMs, &record.SearchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search record: %v", err)
		}
		records = append(records, record)
	}

	return records, nil
}

// GetPriceTrend returns the recorded best prices for a query, oldest first.
func (r *SearchRepository) GetPriceTrend(searchQuery string, limit int) ([]models.SearchRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, query, session_id, total_offers, total_groups, best_price, best_store, currency, elapsed_ms, searched_at
		FROM search_history
		WHERE query = $1 AND best_price IS NOT NULL
		ORDER BY searched_at DESC
		LIMIT $2
	`

	rows, err := database.DB.Query(query, searchQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get price trend: %v", err)
	}
	defer rows.Close()

	var records []models.SearchRecord
	for rows.Next() {
		var record models.SearchRecord
		err := rows.Scan(
			&record.ID, &record.Query, &record.SessionID, &record.TotalOffers, &record.TotalGroups,
			&record.BestPrice, &record.BestStore, &record.Currency, &record.ElapsedMs, &record.SearchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search record: %v", err)
		}
		records = append(records, record)
	}

	// Reverse to oldest-first for charting.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	return records, nil
}

// PruneHistory removes history entries older than the cutoff.
func (r *SearchRepository) PruneHistory(olderThan time.Duration) (int64, error) {
	query := `DELETE FROM search_history WHERE searched_at < $1`

	res, err := database.DB.Exec(query, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %v", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
