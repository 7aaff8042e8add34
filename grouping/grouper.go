package grouping

import (
	"sort"
	"strings"

	"pricehunter/models"
)

// Strategy decides whether two canonical token sequences refer to the same
// product. The token-overlap default can both over-merge (generic tokens) and
// under-merge (very different phrasings); that is an accepted approximation,
// and alternatives (trigram similarity, external ID mapping) can be swapped
// in without touching the aggregator.
type Strategy interface {
	Matches(a, b []string) bool
}

// OverlapStrategy matches titles sharing at least Threshold tokens.
type OverlapStrategy struct {
	Threshold int
}

// Matches reports whether a and b share Threshold or more tokens.
func (s OverlapStrategy) Matches(a, b []string) bool {
	if s.Threshold <= 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	shared := 0
	for _, t := range b {
		if _, ok := set[t]; ok {
			shared++
			if shared >= s.Threshold {
				return true
			}
		}
	}
	return false
}

// Grouper incrementally clusters offers into product groups. Every offer
// belongs to exactly one group. An incoming offer joins every group it is
// sufficiently similar to; when that is more than one, those groups are
// merged, so membership is always the connected components of the pairwise
// similarity relation and cannot depend on arrival order.
type Grouper struct {
	normalizer *Normalizer
	strategy   Strategy

	groups  []*models.ProductGroup
	members [][][]string   // canonical tokens per member offer, same index as groups
	byKey   map[string]int // exact canonical key -> group index
	byLink  map[string]int // offer link -> group index, for dedup
}

// NewGrouper creates a Grouper with the given normalizer and strategy.
func NewGrouper(n *Normalizer, s Strategy) *Grouper {
	return &Grouper{
		normalizer: n,
		strategy:   s,
		byKey:      make(map[string]int),
		byLink:     make(map[string]int),
	}
}

// Add places the offer into a group: exact canonical-key match plus every
// existing group with a sufficiently overlapping member. No match starts a
// new group; several matches merge into one. Returns the group index.
// Offers whose link was already seen are dropped as duplicates and reported
// with ok=false.
func (g *Grouper) Add(offer models.Offer) (int, bool) {
	if offer.Link != "" {
		if _, dup := g.byLink[offer.Link]; dup {
			return -1, false
		}
	}

	tokens := g.normalizer.Tokens(offer.Title)
	key := strings.Join(tokens, " ")

	matches := g.matchingGroups(key, tokens)

	var idx int
	switch len(matches) {
	case 0:
		g.groups = append(g.groups, &models.ProductGroup{Key: key})
		g.members = append(g.members, nil)
		idx = len(g.groups) - 1
	case 1:
		idx = matches[0]
	default:
		idx = g.mergeGroups(matches)
	}

	group := g.groups[idx]
	group.Offers = append(group.Offers, offer)
	g.members[idx] = append(g.members[idx], tokens)
	if key != "" {
		if _, seen := g.byKey[key]; !seen {
			g.byKey[key] = idx
		}
	}
	if offer.Link != "" {
		g.byLink[offer.Link] = idx
	}

	// Representative title: longest non-empty wins, first-seen on ties.
	if len(offer.Title) > len(group.CanonicalTitle) {
		group.CanonicalTitle = offer.Title
	}

	return idx, true
}

// matchingGroups returns, ascending, every group the offer belongs with:
// the exact canonical-key group plus any group containing a member whose
// tokens overlap enough. Matching against members rather than a single
// group representative keeps merged groups reachable through all of their
// titles.
func (g *Grouper) matchingGroups(key string, tokens []string) []int {
	seen := make(map[int]struct{})
	if key != "" {
		if i, ok := g.byKey[key]; ok {
			seen[i] = struct{}{}
		}
	}
	if len(tokens) > 0 {
		for i, members := range g.members {
			if _, done := seen[i]; done {
				continue
			}
			for _, m := range members {
				if g.strategy.Matches(m, tokens) {
					seen[i] = struct{}{}
					break
				}
			}
		}
	}

	matches := make([]int, 0, len(seen))
	for i := range seen {
		matches = append(matches, i)
	}
	sort.Ints(matches)
	return matches
}

// mergeGroups folds the matched groups into the lowest-indexed one. An offer
// bridging several groups means they were the same product all along.
func (g *Grouper) mergeGroups(matches []int) int {
	target := matches[0]
	dst := g.groups[target]

	for k := len(matches) - 1; k >= 1; k-- {
		i := matches[k]
		src := g.groups[i]
		dst.Offers = append(dst.Offers, src.Offers...)
		g.members[target] = append(g.members[target], g.members[i]...)
		if len(src.CanonicalTitle) > len(dst.CanonicalTitle) {
			dst.CanonicalTitle = src.CanonicalTitle
		}
		g.groups = append(g.groups[:i], g.groups[i+1:]...)
		g.members = append(g.members[:i], g.members[i+1:]...)
	}

	// Removals shifted group indices; rebuild the lookup maps.
	g.byKey = make(map[string]int, len(g.byKey))
	g.byLink = make(map[string]int, len(g.byLink))
	for i, group := range g.groups {
		for _, o := range group.Offers {
			if o.Link != "" {
				g.byLink[o.Link] = i
			}
		}
		for _, m := range g.members[i] {
			if k := strings.Join(m, " "); k != "" {
				if _, seen := g.byKey[k]; !seen {
					g.byKey[k] = i
				}
			}
		}
	}

	// target is the smallest matched index, so the removals never moved it.
	return target
}

// Group returns the group at index i.
func (g *Grouper) Group(i int) *models.ProductGroup {
	return g.groups[i]
}

// Groups returns all groups in insertion order.
func (g *Grouper) Groups() []*models.ProductGroup {
	return g.groups
}

// Len returns the number of groups.
func (g *Grouper) Len() int {
	return len(g.groups)
}

// TotalOffers returns the number of offers across all groups.
func (g *Grouper) TotalOffers() int {
	total := 0
	for _, group := range g.groups {
		total += len(group.Offers)
	}
	return total
}
