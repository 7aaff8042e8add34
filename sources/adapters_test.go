package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"pricehunter/fetch"
	"pricehunter/models"
)

func collectOffers() (Emit, *[]models.Offer) {
	var mu sync.Mutex
	offers := &[]models.Offer{}
	return func(o models.Offer) {
		mu.Lock()
		defer mu.Unlock()
		*offers = append(*offers, o)
	}, offers
}

func testPoolOpts() fetch.PoolOptions {
	return fetch.PoolOptions{
		Concurrency: 4,
		Timeout:     2 * time.Second,
		MaxRetries:  1,
		BaseDelay:   time.Millisecond,
	}
}

func TestAmazonAdapterNormalizesBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "iphone 15" {
			t.Errorf("query = %q; want %q", got, "iphone 15")
		}
		w.Write([]byte(`{"results": [
			{"title": "iPhone 15", "price": "3,199", "asin": "B0TEST123", "currency": "AED"},
			{"title": "iPhone 15 Case", "price": 49.5, "link": "https://www.amazon.ae/dp/B0CASE", "image": "https://img/case.jpg"},
			{"sponsored": true}
		]}`))
	}))
	defer srv.Close()

	a := NewAmazonAdapter(NewClient(), srv.URL, 2*time.Second)
	emit, offers := collectOffers()

	if err := a.Search(context.Background(), "iphone 15", emit); err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if len(*offers) != 2 {
		t.Fatalf("expected 2 offers (empty record dropped), got %d", len(*offers))
	}

	first := (*offers)[0]
	if first.Price == nil || *first.Price != 3199 {
		t.Errorf("string price not coerced: %v", first.Price)
	}
	if first.Link != "https://www.amazon.ae/dp/B0TEST123" {
		t.Errorf("missing asin-derived link: %q", first.Link)
	}
	if first.Store != models.StoreAmazon {
		t.Errorf("store = %q", first.Store)
	}
}

func TestNoonAdapterHandlesNestedShapes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [
			{"name": "Galaxy S24", "price": {"selling_price": 2899.0}, "image_key": "v123/abc", "url": "/uae-en/galaxy-s24"},
			{"name": "Galaxy Buds", "price": {"selling_price_in_cents": 24900000}, "url": "https://www.noon.com/buds"},
			{"name": "No price item"},
			{"name": "Patek Philippe Nautilus", "price": 189000, "url": "https://www.noon.com/nautilus"}
		]}`))
	}))
	defer srv.Close()

	n := NewNoonAdapter(NewClient(), srv.URL, 2*time.Second)
	emit, offers := collectOffers()

	if err := n.Search(context.Background(), "galaxy", emit); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(*offers) != 4 {
		t.Fatalf("expected 4 offers, got %d", len(*offers))
	}

	first := (*offers)[0]
	if first.Price == nil || *first.Price != 2899 {
		t.Errorf("nested selling_price not extracted: %v", first.Price)
	}
	if first.Image != "https://z.nooncdn.com/products/tr:n-t_240/v123/abc.jpg" {
		t.Errorf("image_key not expanded: %q", first.Image)
	}
	if first.Link != "https://www.noon.com/uae-en/galaxy-s24" {
		t.Errorf("relative link not absolutized: %q", first.Link)
	}

	second := (*offers)[1]
	if second.Price == nil || *second.Price != 249000 {
		t.Errorf("cents price not scaled: %v", second.Price)
	}

	third := (*offers)[2]
	if third.Price != nil {
		t.Errorf("missing price must stay nil, got %v", *third.Price)
	}
	if third.Currency != models.DefaultCurrency {
		t.Errorf("currency not defaulted: %q", third.Currency)
	}

	// A six-figure top-level price is whole currency; the cents scaling
	// applies only inside the nested price object.
	fourth := (*offers)[3]
	if fourth.Price == nil || *fourth.Price != 189000 {
		t.Errorf("plain six-figure price was scaled: %v", fourth.Price)
	}
}

func TestSharafAdapterTwoPhase(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [
			{"store": "SharafDG", "link": "https://sharafdg.com/p/1"},
			{"store": "SharafDG", "link": "https://sharafdg.com/p/2"},
			{"store": "SharafDG", "link": "https://sharafdg.com/p/broken"}
		]}`))
	})
	mux.HandleFunc("/product", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("url") {
		case "https://sharafdg.com/p/1":
			w.Write([]byte(`{"title": "Apple iPhone 15 128GB", "price": 3099, "link": "https://sharafdg.com/p/1"}`))
		case "https://sharafdg.com/p/2":
			w.Write([]byte(`{"title": "iPhone 15 Screen Protector", "price": "29.00"}`))
		default:
			// Blocked page: empty payload must count as a failed fetch.
			w.Write([]byte(`{}`))
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewSharafAdapter(NewClient(), srv.URL+"/search", srv.URL+"/product",
		2*time.Second, 10, testPoolOpts())
	emit, offers := collectOffers()

	if err := s.Search(context.Background(), "iphone", emit); err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if len(*offers) != 2 {
		t.Fatalf("expected 2 offers (broken detail skipped), got %d", len(*offers))
	}
	for _, o := range *offers {
		if o.Store != models.StoreSharaf {
			t.Errorf("store = %q", o.Store)
		}
		if o.Link == "" {
			t.Error("detail offers must keep their page link")
		}
	}
}

func TestSharafAdapterTruncatesLinks(t *testing.T) {
	var detailCalls int32
	var mu sync.Mutex

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [
			{"link": "https://sharafdg.com/p/1"}, {"link": "https://sharafdg.com/p/2"},
			{"link": "https://sharafdg.com/p/3"}, {"link": "https://sharafdg.com/p/4"},
			{"link": "https://sharafdg.com/p/5"}
		]}`))
	})
	mux.HandleFunc("/product", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		detailCalls++
		mu.Unlock()
		w.Write([]byte(`{"title": "Thing", "price": 10}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewSharafAdapter(NewClient(), srv.URL+"/search", srv.URL+"/product",
		2*time.Second, 2, testPoolOpts())
	emit, offers := collectOffers()

	if err := s.Search(context.Background(), "tv", emit); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(*offers) != 2 {
		t.Errorf("expected 2 offers after truncation, got %d", len(*offers))
	}
	if detailCalls != 2 {
		t.Errorf("expected 2 detail fetches, got %d", detailCalls)
	}
}

func TestAdapterSearchFailureReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream blocked", http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewAmazonAdapter(NewClient(), srv.URL, time.Second)
	emit, offers := collectOffers()

	if err := a.Search(context.Background(), "tv", emit); err == nil {
		t.Fatal("expected error from non-200 response")
	}
	if len(*offers) != 0 {
		t.Errorf("failed search must emit nothing, got %d offers", len(*offers))
	}
}
