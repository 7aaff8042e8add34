// Package sources wraps the per-store worker endpoints and normalizes their
// heterogeneous responses into the common Offer shape. Each store's actual
// scraping lives behind its worker; here a store is only an unreliable HTTP
// collaborator returning loosely-typed JSON.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"pricehunter/models"
)

// Emit delivers one normalized offer to the aggregation pipeline. Adapters
// call it zero or more times per search, possibly from several goroutines at
// once; the callback owns staleness checks and locking.
type Emit func(models.Offer)

// Adapter is one store's search entry point. A returned error means the
// store contributed nothing this round; it never aborts other stores.
type Adapter interface {
	Name() string
	Search(ctx context.Context, query string, emit Emit) error
}

// searchResponse is the common envelope the store workers return.
type searchResponse struct {
	Results []models.RawRecord `json:"results"`
}

// Client is a thin JSON HTTP client shared by all adapters. Timeouts are
// applied per call through the context, not here.
type Client struct {
	http *http.Client
}

// NewClient creates a Client.
func NewClient() *Client {
	return &Client{http: &http.Client{}}
}

// GetJSON fetches rawURL and decodes the JSON body into out. Non-2xx
// responses and malformed bodies are errors.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %v", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %v", rawURL, err)
	}
	return nil
}
