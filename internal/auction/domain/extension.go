package domain

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExtensionRecord is the append-only audit trail of one deadline push.
type ExtensionRecord struct {
	ID              uuid.UUID
	AuctionID       uuid.UUID
	BidID           uuid.UUID
	PreviousEndTime time.Time
	NewEndTime      time.Time
	ExtendedAt      time.Time
}

// ExtendForBid applies the auto-extension rule for one accepted bid: with
// remaining = end_time - bid.PlacedAt, a bid landing inside the window
// (0 < remaining < window) pushes the deadline to bid.PlacedAt + window.
// The deadline only ever moves forward, a computed end time at or before the
// current one is a no-op. The rule is a function of the bid, it fires at most
// once per qualifying bid and needs no pressure signal to trigger.
//
// The caller must hold the auction's critical section, two extensions computed
// from concurrently accepted bids must each see the other's (possibly already
// extended) end time.
func (a *Auction) ExtendForBid(bid *Bid) (*ExtensionRecord, bool) {
	if a.AutoExtendWindow <= 0 {
		return nil, false
	}

	remaining := a.EndTime.Sub(bid.PlacedAt)
	if remaining <= 0 || remaining >= a.AutoExtendWindow {
		return nil, false
	}

	newEndTime := bid.PlacedAt.Add(a.AutoExtendWindow)
	if !newEndTime.After(a.EndTime) {
		return nil, false
	}

	previous := a.EndTime
	a.EndTime = newEndTime
	extendedAt := bid.PlacedAt
	a.LastExtendedAt = &extendedAt

	log.Info("Auction deadline extended",
		zap.String("auctionID", a.ID.String()),
		zap.String("bidID", bid.ID.String()),
		zap.Time("previousEndTime", previous),
		zap.Time("newEndTime", newEndTime),
		zap.Duration("window", a.AutoExtendWindow),
	)

	return &ExtensionRecord{
		ID:              uuid.New(),
		AuctionID:       a.ID,
		BidID:           bid.ID,
		PreviousEndTime: previous,
		NewEndTime:      newEndTime,
		ExtendedAt:      extendedAt,
	}, true
}
