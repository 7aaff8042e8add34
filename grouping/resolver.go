package grouping

import (
	"sort"

	"pricehunter/models"
)

// Resolve recomputes a group's best price from its full offer list. It runs
// on every group mutation, so the stored value can never drift from
// min(offers[].price): recomputation from scratch is the incremental update.
// All offers tied at the minimum are flagged. Returns true when BestPrice or
// the flagged set changed.
func Resolve(g *models.ProductGroup) bool {
	var best *float64
	var bestIdx []int

	for i := range g.Offers {
		o := &g.Offers[i]
		if !o.HasPrice() {
			continue
		}
		p := *o.Price
		switch {
		case best == nil || p < *best:
			best = &p
			bestIdx = []int{i}
		case p == *best:
			bestIdx = append(bestIdx, i)
		}
	}

	changed := !samePrice(g.BestPrice, best) || !sameInts(g.BestOffers, bestIdx)
	g.BestPrice = best
	g.BestOffers = bestIdx
	return changed
}

// SortGroups orders groups for rendering: best price ascending, priced
// groups before unpriced ones, then title. Matches the presentation order
// users see in the result list.
func SortGroups(groups []models.ProductGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].BestPrice, groups[j].BestPrice
		switch {
		case a != nil && b != nil:
			if *a != *b {
				return *a < *b
			}
			return groups[i].CanonicalTitle < groups[j].CanonicalTitle
		case a != nil:
			return true
		case b != nil:
			return false
		default:
			return groups[i].CanonicalTitle < groups[j].CanonicalTitle
		}
	})
}

func samePrice(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
