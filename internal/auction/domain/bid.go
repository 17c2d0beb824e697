package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BidStatus marks a bid's place in the ledger. Status only moves forward:
// active -> outbid, never back.
type BidStatus string

const (
	BidStatusActive   BidStatus = "active"
	BidStatusOutbid   BidStatus = "outbid"
	BidStatusRejected BidStatus = "rejected"
)

// Bid represents an individual bid in an auction ledger. At most one bid per
// auction holds BidStatusActive at any instant, it is the current high bid.
// Immutable except for Status.
type Bid struct {
	ID         uuid.UUID
	AuctionID  uuid.UUID
	BidderID   uuid.UUID
	Amount     decimal.Decimal
	IsAutoBid  bool
	AutoBidMax *decimal.Decimal
	Status     BidStatus
	PlacedAt   time.Time
	CreatedAt  time.Time
}

// NewBid creates an accepted bid holding the current high position.
func NewBid(id, auctionID, bidderID uuid.UUID, amount decimal.Decimal, isAutoBid bool, autoBidMax *decimal.Decimal, placedAt time.Time) *Bid {
	return &Bid{
		ID:         id,
		AuctionID:  auctionID,
		BidderID:   bidderID,
		Amount:     amount,
		IsAutoBid:  isAutoBid,
		AutoBidMax: autoBidMax,
		Status:     BidStatusActive,
		PlacedAt:   placedAt,
	}
}

// MarkOutbid flips the bid out of the high position. A no-op unless the bid is
// currently active.
func (b *Bid) MarkOutbid() {
	if b.Status == BidStatusActive {
		b.Status = BidStatusOutbid
	}
}
