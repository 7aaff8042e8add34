package sources

import (
	"context"
	"net/url"
	"time"

	"pricehunter/models"
)

// AmazonAdapter queries the Amazon.ae search worker. It is a fast store: one
// round trip yields the full result list, emitted as a single batch in the
// source's original order.
type AmazonAdapter struct {
	client  *Client
	baseURL string
	timeout time.Duration
}

// NewAmazonAdapter creates the Amazon.ae adapter.
func NewAmazonAdapter(client *Client, baseURL string, timeout time.Duration) *AmazonAdapter {
	return &AmazonAdapter{client: client, baseURL: baseURL, timeout: timeout}
}

func (a *AmazonAdapter) Name() string { return models.StoreAmazon }

// Search fetches and normalizes one batch of results.
func (a *AmazonAdapter) Search(ctx context.Context, query string, emit Emit) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var resp searchResponse
	if err := a.client.GetJSON(ctx, a.baseURL+"?q="+url.QueryEscape(query), &resp); err != nil {
		return err
	}

	for _, rec := range resp.Results {
		if offer, ok := a.normalize(rec); ok {
			emit(offer)
		}
	}
	return nil
}

// normalize maps one raw Amazon record onto the Offer shape. Records with
// neither title, price, nor link carry no information and are dropped.
func (a *AmazonAdapter) normalize(rec models.RawRecord) (models.Offer, bool) {
	offer := models.Offer{
		Store:    models.StoreAmazon,
		Title:    recordString(rec, "title", "name"),
		Price:    recordPrice(rec, "price"),
		Currency: recordString(rec, "currency"),
		Image:    firstImage(rec),
		Link:     recordString(rec, "link", "url"),
		Raw:      rec,
	}
	if offer.Currency == "" {
		offer.Currency = models.DefaultCurrency
	}
	if offer.Link == "" {
		if asin := recordString(rec, "asin"); asin != "" {
			offer.Link = "https://www.amazon.ae/dp/" + asin
		}
	}
	if offer.Title == "" && offer.Price == nil && offer.Link == "" {
		return models.Offer{}, false
	}
	return offer, true
}
