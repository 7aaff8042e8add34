package models

import (
	"database/sql"
	"time"
)

// SavedSearch is a query the user wants re-checked on a schedule, optionally
// with a target price that triggers an alert log when met.
type SavedSearch struct {
	ID            int             `json:"id"`
	Query         string          `json:"query"`
	TargetPrice   sql.NullFloat64 `json:"-"`
	LastChecked   *time.Time      `json:"last_checked,omitempty"`
	LastBestPrice sql.NullFloat64 `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
	IsActive      bool            `json:"is_active"`
}

// GetTargetPrice returns the target price, or 0 if none is set.
func (s *SavedSearch) GetTargetPrice() float64 {
	if s.TargetPrice.Valid {
		return s.TargetPrice.Float64
	}
	return 0.0
}

// HasTarget returns true if the saved search has a target price.
func (s *SavedSearch) HasTarget() bool {
	return s.TargetPrice.Valid
}

// GetLastBestPrice returns the best price found on the previous check, or 0.
func (s *SavedSearch) GetLastBestPrice() float64 {
	if s.LastBestPrice.Valid {
		return s.LastBestPrice.Float64
	}
	return 0.0
}

// savedSearchJSON is the wire shape for SavedSearch, with nullable floats
// rendered as JSON null instead of sql.Null* objects.
type savedSearchJSON struct {
	ID            int        `json:"id"`
	Query         string     `json:"query"`
	TargetPrice   *float64   `json:"target_price"`
	LastChecked   *time.Time `json:"last_checked,omitempty"`
	LastBestPrice *float64   `json:"last_best_price"`
	CreatedAt     time.Time  `json:"created_at"`
	IsActive      bool       `json:"is_active"`
}

// ToJSON converts the saved search to its wire representation.
func (s *SavedSearch) ToJSON() interface{} {
	out := savedSearchJSON{
		ID:          s.ID,
		Query:       s.Query,
		LastChecked: s.LastChecked,
		CreatedAt:   s.CreatedAt,
		IsActive:    s.IsActive,
	}
	if s.TargetPrice.Valid {
		v := s.TargetPrice.Float64
		out.TargetPrice = &v
	}
	if s.LastBestPrice.Valid {
		v := s.LastBestPrice.Float64
		out.LastBestPrice = &v
	}
	return out
}
