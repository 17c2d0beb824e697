package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType identifies a ledger delta broadcast to auction subscribers.
type EventType string

const (
	EventBidAccepted      EventType = "bid_accepted"
	EventPriceChanged     EventType = "price_changed"
	EventStatusChanged    EventType = "status_changed"
	EventDeadlineExtended EventType = "deadline_extended"
)

// Event is one ledger delta on an auction topic. Sequence is per-auction and
// strictly increasing, assigned inside the commit path so subscribers can
// verify FIFO delivery and never observe an earlier bid after a later one.
type Event struct {
	Type       EventType     `json:"type"`
	AuctionID  uuid.UUID     `json:"auction_id"`
	Sequence   uint64        `json:"sequence"`
	OccurredAt time.Time     `json:"occurred_at"`
	Status     AuctionStatus `json:"status,omitempty"`

	BidID    *uuid.UUID       `json:"bid_id,omitempty"`
	BidderID *uuid.UUID       `json:"bidder_id,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`

	CurrentPrice *decimal.Decimal `json:"current_price,omitempty"`
	BidCount     int              `json:"bid_count,omitempty"`
	EndTime      *time.Time       `json:"end_time,omitempty"`
}

func NewBidAcceptedEvent(a *Auction, bid *Bid) *Event {
	amount := bid.Amount
	bidID := bid.ID
	bidderID := bid.BidderID
	return &Event{
		Type:       EventBidAccepted,
		AuctionID:  a.ID,
		OccurredAt: bid.PlacedAt,
		BidID:      &bidID,
		BidderID:   &bidderID,
		Amount:     &amount,
		BidCount:   a.BidCount,
	}
}

func NewPriceChangedEvent(a *Auction, at time.Time) *Event {
	price := a.CurrentPrice
	return &Event{
		Type:         EventPriceChanged,
		AuctionID:    a.ID,
		OccurredAt:   at,
		CurrentPrice: &price,
		BidCount:     a.BidCount,
	}
}

func NewStatusChangedEvent(a *Auction, at time.Time) *Event {
	return &Event{
		Type:       EventStatusChanged,
		AuctionID:  a.ID,
		OccurredAt: at,
		Status:     a.Status,
	}
}

func NewDeadlineExtendedEvent(a *Auction, rec *ExtensionRecord) *Event {
	endTime := rec.NewEndTime
	bidID := rec.BidID
	return &Event{
		Type:       EventDeadlineExtended,
		AuctionID:  a.ID,
		OccurredAt: rec.ExtendedAt,
		BidID:      &bidID,
		EndTime:    &endTime,
	}
}
