package models

import "time"

// Store names as reported in results. Adapters fall back to these when the
// upstream record carries no store field.
const (
	StoreAmazon = "Amazon.ae"
	StoreNoon   = "Noon"
	StoreSharaf = "SharafDG"
)

// DefaultCurrency is used when a source record has no currency code.
const DefaultCurrency = "AED"

// RawRecord is a loosely-typed product record as returned by a store worker.
// No schema is guaranteed beyond "a JSON object, possibly containing
// title/price/image/link under varying key names".
type RawRecord map[string]interface{}

// Offer is a single store's normalized listing for a search term.
// Price is nil when the source had no usable price, never zero.
type Offer struct {
	Store    string    `json:"store"`
	Title    string    `json:"title,omitempty"`
	Price    *float64  `json:"price"`
	Currency string    `json:"currency"`
	Image    string    `json:"image,omitempty"`
	Link     string    `json:"link,omitempty"`
	Raw      RawRecord `json:"raw,omitempty"`
}

// HasPrice returns true if the offer carries a usable price.
func (o *Offer) HasPrice() bool {
	return o.Price != nil
}

// PriceValue returns the price as float64, or 0 if the offer is unpriced.
func (o *Offer) PriceValue() float64 {
	if o.Price != nil {
		return *o.Price
	}
	return 0.0
}

// ProductGroup is a cluster of offers believed to represent the same product.
// Offers keeps insertion order for stable rendering. BestOffers holds the
// indexes into Offers of every offer achieving BestPrice (all ties flagged).
type ProductGroup struct {
	Key            string   `json:"key"`
	CanonicalTitle string   `json:"title"`
	Offers         []Offer  `json:"offers"`
	BestPrice      *float64 `json:"best_price"`
	BestOffers     []int    `json:"best_offers,omitempty"`
}

// IsBest returns true if the offer at index i holds the group's best price.
func (g *ProductGroup) IsBest(i int) bool {
	for _, b := range g.BestOffers {
		if b == i {
			return true
		}
	}
	return false
}

// StoreCount holds per-store diagnostics for one search.
type StoreCount struct {
	Store  string `json:"store"`
	Offers int    `json:"offers"`
	Failed bool   `json:"failed,omitempty"`
}

// SearchDebug carries diagnostic info returned alongside results.
// Informational only, never drives logic.
type SearchDebug struct {
	ElapsedMs int64        `json:"elapsed_ms"`
	Stores    []StoreCount `json:"stores"`
}

// SearchResult is the final grouped view of one completed search session.
type SearchResult struct {
	SessionID   int64          `json:"session_id"`
	Query       string         `json:"query"`
	Groups      []ProductGroup `json:"groups"`
	TotalOffers int            `json:"total_offers"`
	Debug       SearchDebug    `json:"debug"`
	CompletedAt time.Time      `json:"completed_at"`
}

// BestOverall returns the lowest best price across all groups and the store
// offering it, or (nil, "") when no group has a priced offer.
func (r *SearchResult) BestOverall() (*float64, string) {
	var best *float64
	store := ""
	for gi := range r.Groups {
		g := &r.Groups[gi]
		if g.BestPrice == nil {
			continue
		}
		if best == nil || *g.BestPrice < *best {
			best = g.BestPrice
			if len(g.BestOffers) > 0 {
				store = g.Offers[g.BestOffers[0]].Store
			}
		}
	}
	return best, store
}
