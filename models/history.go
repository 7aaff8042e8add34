package models

import (
	"database/sql"
	"time"
)

// SearchRecord is one completed search persisted to history. Prices are
// nullable: a search can complete with zero priced offers.
type SearchRecord struct {
	ID          int             `json:"id"`
	Query       string          `json:"query"`
	SessionID   int64           `json:"session_id"`
	TotalOffers int             `json:"total_offers"`
	TotalGroups int             `json:"total_groups"`
	BestPrice   sql.NullFloat64 `json:"-"`
	BestStore   sql.NullString  `json:"-"`
	Currency    string          `json:"currency"`
	ElapsedMs   int64           `json:"elapsed_ms"`
	SearchedAt  time.Time       `json:"searched_at"`
}

type searchRecordJSON struct {
	ID          int       `json:"id"`
	Query       string    `json:"query"`
	SessionID   int64     `json:"session_id"`
	TotalOffers int       `json:"total_offers"`
	TotalGroups int       `json:"total_groups"`
	BestPrice   *float64  `json:"best_price"`
	BestStore   *string   `json:"best_store"`
	Currency    string    `json:"currency"`
	ElapsedMs   int64     `json:"elapsed_ms"`
	SearchedAt  time.Time `json:"searched_at"`
}

// ToJSON converts the record to its wire shape, mapping SQL nulls to
// JSON nulls rather than zeroes.
func (s *SearchRecord) ToJSON() interface{} {
	out := searchRecordJSON{
		ID:          s.ID,
		Query:       s.Query,
		SessionID:   s.SessionID,
		TotalOffers: s.TotalOffers,
		TotalGroups: s.TotalGroups,
		Currency:    s.Currency,
		ElapsedMs:   s.ElapsedMs,
		SearchedAt:  s.SearchedAt,
	}
	if s.BestPrice.Valid {
		out.BestPrice = &s.BestPrice.Float64
	}
	if s.BestStore.Valid {
		out.BestStore = &s.BestStore.String
	}
	return out
}
