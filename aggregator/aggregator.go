// Package aggregator orchestrates one search across all store adapters:
// fan-out, session supersession, incremental grouping, and completion.
package aggregator

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"pricehunter/grouping"
	"pricehunter/models"
	"pricehunter/sources"
)

// ErrSuperseded is returned when a newer search started before this one
// finished. The superseded search's offers were discarded on arrival.
var ErrSuperseded = errors.New("search superseded by a newer query")

// Options are the grouping knobs. Zero values fall back to the defaults the
// heuristic was tuned with; neither number is known to be optimal.
type Options struct {
	OverlapThreshold int
	TitleMaxTokens   int
}

func (o Options) withDefaults() Options {
	if o.OverlapThreshold <= 0 {
		o.OverlapThreshold = 2
	}
	if o.TitleMaxTokens <= 0 {
		o.TitleMaxTokens = 6
	}
	return o
}

// session is one in-flight aggregation. All mutation happens under the
// aggregator's lock; adapters only reach it through accept.
type session struct {
	id      int64
	query   string
	state   models.SessionState
	cancel  context.CancelFunc
	grouper *grouping.Grouper
	counts  map[string]*models.StoreCount
	order   []string
	started time.Time
}

// Aggregator owns the current-session state shared between searches. It is
// the single writer: adapters consult it only through the accept callback,
// which checks session currency at delivery time, not dispatch time.
type Aggregator struct {
	adapters []sources.Adapter
	sink     EventSink
	opts     Options

	mu      sync.Mutex
	nextID  int64
	current *session
}

// New creates an Aggregator over the given adapters. Instances are
// independent: a scheduled background search should use its own Aggregator
// so it cannot supersede an interactive one.
func New(adapters []sources.Adapter, sink EventSink, opts Options) *Aggregator {
	if sink == nil {
		sink = LogSink{}
	}
	return &Aggregator{
		adapters: adapters,
		sink:     sink,
		opts:     opts.withDefaults(),
	}
}

// IsCurrent reports whether sessionID is still the newest session. Every
// shared-state mutation on behalf of a session goes through this check.
func (a *Aggregator) IsCurrent(sessionID int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != nil && a.current.id == sessionID
}

// Session returns a snapshot of the current session, if any.
func (a *Aggregator) Session() (models.SearchSession, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return models.SearchSession{}, false
	}
	return models.SearchSession{ID: a.current.id, Query: a.current.query, State: a.current.state}, true
}

// Search runs one full aggregation: all adapters fan out in parallel
// (including the two-phase store's cheap link search), offers are grouped
// and re-priced as they arrive, and the grouped result is returned once
// every adapter settles. Starting a new Search supersedes any running one;
// the superseded call returns ErrSuperseded. Adapter failures are logged
// and reduce to zero offers for that store, never to an error here.
func (a *Aggregator) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	sess, sessCtx := a.begin(ctx, query)
	log.Printf("🔎 search session %d: %q", sess.id, query)

	g, _ := errgroup.WithContext(sessCtx)
	for _, adapter := range a.adapters {
		adapter := adapter
		g.Go(func() error {
			emit := func(offer models.Offer) {
				a.accept(sess, adapter.Name(), offer)
			}
			if err := adapter.Search(sessCtx, query, emit); err != nil {
				log.Printf("⚠️  %s search failed for session %d: %v", adapter.Name(), sess.id, err)
				a.markFailed(sess, adapter.Name())
			}
			return nil
		})
	}
	g.Wait()

	return a.finish(sess)
}

// begin assigns the next session id and supersedes the previous session.
// The old session's context is cancelled as well; its adapters may still
// deliver late offers, which accept discards by id.
func (a *Aggregator) begin(ctx context.Context, query string) (*session, context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if prev := a.current; prev != nil && prev.state == models.SessionRunning {
		prev.state = models.SessionSuperseded
		prev.cancel()
		a.sink.OnSearchSuperseded(prev.id)
	}

	a.nextID++
	sessCtx, cancel := context.WithCancel(ctx)
	normalizer := grouping.NewNormalizer(a.opts.TitleMaxTokens)
	strategy := grouping.OverlapStrategy{Threshold: a.opts.OverlapThreshold}

	sess := &session{
		id:      a.nextID,
		query:   query,
		state:   models.SessionRunning,
		cancel:  cancel,
		grouper: grouping.NewGrouper(normalizer, strategy),
		counts:  make(map[string]*models.StoreCount),
		started: time.Now(),
	}
	for _, adapter := range a.adapters {
		sess.counts[adapter.Name()] = &models.StoreCount{Store: adapter.Name()}
		sess.order = append(sess.order, adapter.Name())
	}
	a.current = sess
	return sess, sessCtx
}

// accept delivers one offer into the session's result set. The currency
// check happens here, at delivery time, so offers dispatched before a
// supersession but arriving after it are dropped.
func (a *Aggregator) accept(sess *session, store string, offer models.Offer) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != sess || sess.state != models.SessionRunning {
		log.Printf("stale offer from %s dropped (session %d)", store, sess.id)
		return
	}

	idx, added := sess.grouper.Add(offer)
	if !added {
		return // duplicate link
	}
	if c := sess.counts[store]; c != nil {
		c.Offers++
	}

	group := sess.grouper.Group(idx)
	gid := groupID(idx, group)
	a.sink.OnOfferAdded(gid, offer)

	if grouping.Resolve(group) && group.BestPrice != nil {
		ids := make([]string, 0, len(group.BestOffers))
		for _, bi := range group.BestOffers {
			ids = append(ids, offerID(bi, &group.Offers[bi]))
		}
		a.sink.OnGroupBestPriceChanged(gid, *group.BestPrice, ids)
	}
}

func (a *Aggregator) markFailed(sess *session, store string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c := sess.counts[store]; c != nil {
		c.Failed = true
	}
}

// finish seals the session. Only the still-current session completes;
// anything else was superseded while its adapters were draining.
func (a *Aggregator) finish(sess *session) (*models.SearchResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != sess || sess.state != models.SessionRunning {
		return nil, ErrSuperseded
	}
	sess.state = models.SessionCompleted

	groups := make([]models.ProductGroup, 0, sess.grouper.Len())
	for _, g := range sess.grouper.Groups() {
		groups = append(groups, *g)
	}
	grouping.SortGroups(groups)

	counts := make([]models.StoreCount, 0, len(sess.order))
	for _, store := range sess.order {
		counts = append(counts, *sess.counts[store])
	}

	result := &models.SearchResult{
		SessionID:   sess.id,
		Query:       sess.query,
		Groups:      groups,
		TotalOffers: sess.grouper.TotalOffers(),
		Debug: models.SearchDebug{
			ElapsedMs: time.Since(sess.started).Milliseconds(),
			Stores:    counts,
		},
		CompletedAt: time.Now(),
	}

	a.sink.OnSearchCompleted(sess.id, len(result.Groups), result.TotalOffers)
	return result, nil
}

func groupID(idx int, group *models.ProductGroup) string {
	if group.Key != "" {
		return group.Key
	}
	return "group-" + strconv.Itoa(idx)
}

func offerID(idx int, offer *models.Offer) string {
	if offer.Link != "" {
		return offer.Link
	}
	return "offer-" + strconv.Itoa(idx)
}
