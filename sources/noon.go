package sources

import (
	"context"
	"net/url"
	"time"

	"pricehunter/models"
)

const (
	noonSite     = "https://www.noon.com"
	noonImageCDN = "https://z.nooncdn.com/products/tr:n-t_240/"
)

// NoonAdapter queries the Noon search worker, a fast store. Noon's payload
// is the messiest of the three: prices nest under varying keys (sometimes in
// cents), images may be a key into their CDN, and links may be relative.
type NoonAdapter struct {
	client  *Client
	baseURL string
	timeout time.Duration
}

// NewNoonAdapter creates the Noon adapter.
func NewNoonAdapter(client *Client, baseURL string, timeout time.Duration) *NoonAdapter {
	return &NoonAdapter{client: client, baseURL: baseURL, timeout: timeout}
}

func (n *NoonAdapter) Name() string { return models.StoreNoon }

// Search fetches and normalizes one batch of results.
func (n *NoonAdapter) Search(ctx context.Context, query string, emit Emit) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	var resp searchResponse
	if err := n.client.GetJSON(ctx, n.baseURL+"?q="+url.QueryEscape(query), &resp); err != nil {
		return err
	}

	for _, rec := range resp.Results {
		if offer, ok := n.normalize(rec); ok {
			emit(offer)
		}
	}
	return nil
}

func (n *NoonAdapter) normalize(rec models.RawRecord) (models.Offer, bool) {
	offer := models.Offer{
		Store:    models.StoreNoon,
		Title:    recordString(rec, "name", "title", "product_name"),
		Price:    n.extractPrice(rec),
		Currency: recordString(rec, "currency"),
		Image:    n.extractImage(rec),
		Link:     absoluteURL(recordString(rec, "link", "url", "product_url", "secondary_url"), noonSite),
		Raw:      rec,
	}
	if offer.Currency == "" {
		offer.Currency = models.DefaultCurrency
	}
	// Records without any of title/price/link are extraction noise.
	if offer.Title == "" && offer.Price == nil && offer.Link == "" {
		return models.Offer{}, false
	}
	return offer, true
}

// extractPrice handles Noon's nested price objects. Only values pulled out
// of the nested object may be quoted in cents, so the cents heuristic stays
// on that path; a plain top-level numeric or string price is already whole
// currency however large it is.
func (n *NoonAdapter) extractPrice(rec models.RawRecord) *float64 {
	if obj, ok := rec["price"].(map[string]interface{}); ok {
		price := CoercePrice(obj)
		if price == nil {
			price = CoercePrice(obj["selling_price_in_cents"])
		}
		if price != nil && *price > 100000 {
			scaled := *price / 100
			return &scaled
		}
		return price
	}
	return recordPrice(rec, "price", "selling_price")
}

func (n *NoonAdapter) extractImage(rec models.RawRecord) string {
	if key := recordString(rec, "image_key"); key != "" {
		return noonImageCDN + key + ".jpg"
	}
	return firstImage(rec)
}
