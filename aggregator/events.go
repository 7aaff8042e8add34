package aggregator

import (
	"log"

	"pricehunter/models"
)

// EventSink receives incremental updates as a search progresses, enabling
// progressive rendering while slower stores are still in flight. Callbacks
// fire under the aggregator's lock, so implementations must return quickly
// and must not call back into the aggregator.
type EventSink interface {
	OnOfferAdded(groupID string, offer models.Offer)
	OnGroupBestPriceChanged(groupID string, bestPrice float64, bestOfferIDs []string)
	OnSearchCompleted(sessionID int64, totalGroups, totalOffers int)
	OnSearchSuperseded(sessionID int64)
}

// LogSink is the default sink: it just logs the pipeline's progress.
type LogSink struct{}

func (LogSink) OnOfferAdded(groupID string, offer models.Offer) {
	if offer.HasPrice() {
		log.Printf("offer: [%s] %s - %.2f %s (group %s)", offer.Store, offer.Title, *offer.Price, offer.Currency, groupID)
		return
	}
	log.Printf("offer: [%s] %s - no price (group %s)", offer.Store, offer.Title, groupID)
}

func (LogSink) OnGroupBestPriceChanged(groupID string, bestPrice float64, bestOfferIDs []string) {
	log.Printf("📉 best price for group %s is now %.2f (%d offer(s))", groupID, bestPrice, len(bestOfferIDs))
}

func (LogSink) OnSearchCompleted(sessionID int64, totalGroups, totalOffers int) {
	log.Printf("✅ search session %d completed: %d groups, %d offers", sessionID, totalGroups, totalOffers)
}

func (LogSink) OnSearchSuperseded(sessionID int64) {
	log.Printf("⏭️  search session %d superseded", sessionID)
}
