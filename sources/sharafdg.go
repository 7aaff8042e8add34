package sources

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"pricehunter/fetch"
	"pricehunter/models"
)

// SharafAdapter is the two-phase store: its search worker only returns
// product page links, and each link needs a separate detail fetch to yield a
// priced offer. The cheap link search runs up front; only the expensive
// per-link stage goes through the bounded pool. Offers are emitted one by
// one as details resolve, and an individual failed detail is skipped rather
// than failing the batch.
type SharafAdapter struct {
	client     *Client
	searchURL  string
	productURL string

	searchTimeout time.Duration
	maxLinks      int
	pool          fetch.PoolOptions
}

// NewSharafAdapter creates the SharafDG adapter. maxLinks caps how many
// product pages one search is willing to fetch.
func NewSharafAdapter(client *Client, searchURL, productURL string, searchTimeout time.Duration, maxLinks int, pool fetch.PoolOptions) *SharafAdapter {
	return &SharafAdapter{
		client:        client,
		searchURL:     searchURL,
		productURL:    productURL,
		searchTimeout: searchTimeout,
		maxLinks:      maxLinks,
		pool:          pool,
	}
}

func (s *SharafAdapter) Name() string { return models.StoreSharaf }

// Search runs the link search, then resolves each link through the pool.
func (s *SharafAdapter) Search(ctx context.Context, query string, emit Emit) error {
	links, err := s.searchLinks(ctx, query)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		return nil
	}
	if len(links) > s.maxLinks {
		links = links[:s.maxLinks]
	}
	log.Printf("SharafDG: resolving %d product links for %q", len(links), query)

	resolved := fetch.RunPool(ctx, links, func(ctx context.Context, link string) (models.Offer, error) {
		offer, err := s.fetchDetail(ctx, link)
		if err != nil {
			return models.Offer{}, err
		}
		emit(offer)
		return offer, nil
	}, s.pool)

	if len(resolved) < len(links) {
		log.Printf("SharafDG: %d/%d product pages failed for %q", len(links)-len(resolved), len(links), query)
	}
	return nil
}

// searchLinks performs the cheap first phase.
func (s *SharafAdapter) searchLinks(ctx context.Context, query string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.searchTimeout)
	defer cancel()

	var resp searchResponse
	if err := s.client.GetJSON(ctx, s.searchURL+"?q="+url.QueryEscape(query), &resp); err != nil {
		return nil, err
	}

	links := make([]string, 0, len(resp.Results))
	for _, rec := range resp.Results {
		if link := recordString(rec, "link", "url"); link != "" {
			links = append(links, link)
		}
	}
	return links, nil
}

// fetchDetail resolves one product page into an offer. Per-attempt timeout
// and retries are the pool's job; this only does one request.
func (s *SharafAdapter) fetchDetail(ctx context.Context, link string) (models.Offer, error) {
	var rec models.RawRecord
	if err := s.client.GetJSON(ctx, s.productURL+"?url="+url.QueryEscape(link), &rec); err != nil {
		return models.Offer{}, err
	}

	offer := models.Offer{
		Store:    models.StoreSharaf,
		Title:    recordString(rec, "title", "name"),
		Price:    recordPrice(rec, "price"),
		Currency: recordString(rec, "currency"),
		Image:    firstImage(rec),
		Link:     recordString(rec, "link"),
		Raw:      rec,
	}
	if offer.Currency == "" {
		offer.Currency = models.DefaultCurrency
	}
	if offer.Link == "" {
		offer.Link = link
	}
	// A detail response with no price, title, or image is a blocked or empty
	// page; treat it as a fetch failure so the pool's retry budget applies.
	if offer.Price == nil && offer.Title == "" && offer.Image == "" {
		return models.Offer{}, fmt.Errorf("empty product payload for %s", link)
	}
	return offer, nil
}
