package domain

import (
	"time"

	"github.com/cristianortiz/bidstream/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionStatus represents the lifecycle state of an auction
type AuctionStatus string

const (
	StatusDraft     AuctionStatus = "draft"
	StatusScheduled AuctionStatus = "scheduled"
	StatusActive    AuctionStatus = "active"
	StatusEnded     AuctionStatus = "ended"
	StatusCompleted AuctionStatus = "completed"
	StatusCancelled AuctionStatus = "cancelled"
)

// Auction is the aggregate root of one auction ledger: the mutable lifecycle
// fields plus the pricing rules every bid is validated against. Serialization
// of concurrent writers is handled above the aggregate (per-auction lock in the
// application layer plus a row lock in the store), the methods here assume the
// caller already holds exclusive access.
type Auction struct {
	ID               uuid.UUID
	SellerID         uuid.UUID
	Title            string
	Description      string
	StartingPrice    decimal.Decimal
	BidIncrement     decimal.Decimal
	ReservePrice     *decimal.Decimal
	CurrentPrice     decimal.Decimal
	BidCount         int
	StartTime        time.Time
	EndTime          time.Time
	Status           AuctionStatus
	AutoExtendWindow time.Duration
	LastExtendedAt   *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewAuction creates an auction in draft. Current price starts at the starting
// price until the first bid lands.
func NewAuction(id, sellerID uuid.UUID, title, description string, startingPrice, bidIncrement decimal.Decimal, reservePrice *decimal.Decimal, startTime, endTime time.Time, autoExtendWindow time.Duration) *Auction {
	return &Auction{
		ID:               id,
		SellerID:         sellerID,
		Title:            title,
		Description:      description,
		StartingPrice:    startingPrice,
		BidIncrement:     bidIncrement,
		ReservePrice:     reservePrice,
		CurrentPrice:     startingPrice,
		StartTime:        startTime,
		EndTime:          endTime,
		Status:           StatusDraft,
		AutoExtendWindow: autoExtendWindow,
	}
}

// MinimumBid returns the lowest amount the next bid must reach: the starting
// price while no bid exists, current price plus increment afterwards.
func (a *Auction) MinimumBid() decimal.Decimal {
	if a.BidCount == 0 {
		return a.StartingPrice
	}
	return a.CurrentPrice.Add(a.BidIncrement)
}

// AcceptBid validates a submission in the contract order and, on success,
// commits it against the aggregate: current price becomes the bid amount and
// the bid count grows. The returned bid holds the active position, flipping the
// previous active bid to outbid is the ledger's job (see BidRepository).
// The end-time check happens here at commit time regardless of any cached
// status the caller saw, a borderline bid is rejected rather than accepted late.
func (a *Auction) AcceptBid(bidderID uuid.UUID, amount decimal.Decimal, isAutoBid bool, autoBidMax *decimal.Decimal, now time.Time) (*Bid, error) {
	if a.Status != StatusActive || !now.Before(a.EndTime) {
		log.Warn("Bid rejected: auction not active",
			zap.String("auctionID", a.ID.String()),
			zap.String("status", string(a.Status)),
			zap.Time("endTime", a.EndTime),
			zap.String("bidderID", bidderID.String()),
		)
		return nil, ErrAuctionNotActive
	}

	if bidderID == a.SellerID {
		log.Warn("Bid rejected: seller bidding on own auction",
			zap.String("auctionID", a.ID.String()),
			zap.String("bidderID", bidderID.String()),
		)
		return nil, ErrSelfBidForbidden
	}

	if minimum := a.MinimumBid(); amount.LessThan(minimum) {
		log.Warn("Bid rejected: amount too low",
			zap.String("auctionID", a.ID.String()),
			zap.String("bidAmount", amount.String()),
			zap.String("minimum", minimum.String()),
			zap.String("bidderID", bidderID.String()),
		)
		return nil, &BidTooLowError{Minimum: minimum}
	}

	if isAutoBid && (autoBidMax == nil || autoBidMax.LessThan(amount)) {
		log.Warn("Bid rejected: invalid auto bid",
			zap.String("auctionID", a.ID.String()),
			zap.String("bidAmount", amount.String()),
			zap.String("bidderID", bidderID.String()),
		)
		return nil, ErrInvalidAutoBid
	}

	a.CurrentPrice = amount
	a.BidCount++
	newBid := NewBid(uuid.New(), a.ID, bidderID, amount, isAutoBid, autoBidMax, now)

	log.Info("Bid accepted",
		zap.String("auctionID", a.ID.String()),
		zap.String("bidID", newBid.ID.String()),
		zap.String("bidderID", bidderID.String()),
		zap.String("amount", amount.String()),
		zap.Int("bidCount", a.BidCount),
	)

	return newBid, nil
}

// Publish moves a draft auction into scheduled or active depending on the
// clock. A draft whose end time already passed stays draft and the caller gets
// a validation error, never a silent activation into a dead window.
func (a *Auction) Publish(now time.Time) error {
	if a.Status != StatusDraft {
		log.Warn("Publish rejected: auction not in draft",
			zap.String("auctionID", a.ID.String()),
			zap.String("status", string(a.Status)),
		)
		return ErrAuctionNotDraft
	}
	if !a.EndTime.After(now) {
		log.Warn("Publish rejected: stale schedule",
			zap.String("auctionID", a.ID.String()),
			zap.Time("endTime", a.EndTime),
		)
		return ErrStaleSchedule
	}

	if a.StartTime.After(now) {
		a.Status = StatusScheduled
	} else {
		a.Status = StatusActive
	}
	log.Info("Auction published",
		zap.String("auctionID", a.ID.String()),
		zap.String("status", string(a.Status)),
		zap.Time("startTime", a.StartTime),
		zap.Time("endTime", a.EndTime),
	)
	return nil
}

// Cancel refuses once any bid exists, existing bidders' expectations must not
// be invalidated.
func (a *Auction) Cancel() error {
	switch a.Status {
	case StatusDraft, StatusScheduled, StatusActive:
	default:
		log.Warn("Cancel rejected: auction already final",
			zap.String("auctionID", a.ID.String()),
			zap.String("status", string(a.Status)),
		)
		return ErrAuctionAlreadyFinal
	}
	if a.BidCount > 0 {
		log.Warn("Cancel rejected: auction has bids",
			zap.String("auctionID", a.ID.String()),
			zap.Int("bidCount", a.BidCount),
		)
		return ErrCancellationBlocked
	}

	a.Status = StatusCancelled
	log.Info("Auction cancelled", zap.String("auctionID", a.ID.String()))
	return nil
}

// Complete settles an ended auction. Settlement itself (payment, reserve
// enforcement) lives outside the engine, this transition only closes the
// lifecycle.
func (a *Auction) Complete() error {
	if a.Status != StatusEnded {
		return ErrAuctionNotEnded
	}
	a.Status = StatusCompleted
	log.Info("Auction completed",
		zap.String("auctionID", a.ID.String()),
		zap.String("finalPrice", a.CurrentPrice.String()),
	)
	return nil
}

// RefreshStatus applies the time-driven transitions lazily: scheduled->active
// at start time, active->ended at end time. Returns true when the status
// changed so the caller can persist and broadcast it.
func (a *Auction) RefreshStatus(now time.Time) bool {
	switch a.Status {
	case StatusScheduled:
		if !now.Before(a.StartTime) {
			a.Status = StatusActive
			// active can expire in the same observation if the window
			// already closed
			if !now.Before(a.EndTime) {
				a.Status = StatusEnded
			}
			return true
		}
	case StatusActive:
		if !now.Before(a.EndTime) {
			a.Status = StatusEnded
			log.Info("Auction ended",
				zap.String("auctionID", a.ID.String()),
				zap.String("finalPrice", a.CurrentPrice.String()),
				zap.Int("bidCount", a.BidCount),
			)
			return true
		}
	}
	return false
}

// ReserveMet reports whether the current price reached the reserve. Advisory
// only, a reserve never blocks bid acceptance, settlement enforces it.
func (a *Auction) ReserveMet() bool {
	if a.ReservePrice == nil {
		return true
	}
	return a.BidCount > 0 && !a.CurrentPrice.LessThan(*a.ReservePrice)
}
