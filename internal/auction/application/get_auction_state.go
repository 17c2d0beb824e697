package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/bidstream/internal/auction/domain"
	"github.com/cristianortiz/bidstream/internal/shared/clock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionSnapshot is the output DTO exposing auction state to HTTP/WS
// consumers: the authoritative ledger fields plus the derived advisory
// signals (time phase, bidding pressure).
type AuctionSnapshot struct {
	AuctionID        uuid.UUID        `json:"auction_id"`
	SellerID         uuid.UUID        `json:"seller_id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	StartingPrice    decimal.Decimal  `json:"starting_price"`
	BidIncrement     decimal.Decimal  `json:"bid_increment"`
	ReservePrice     *decimal.Decimal `json:"reserve_price,omitempty"`
	ReserveMet       bool             `json:"reserve_met"`
	CurrentPrice     decimal.Decimal  `json:"current_price"`
	MinimumBid       decimal.Decimal  `json:"minimum_bid"`
	BidCount         int              `json:"bid_count"`
	StartTime        time.Time        `json:"start_time"`
	EndTime          time.Time        `json:"end_time"`
	Status           string           `json:"status"`
	TimePhase        string           `json:"time_phase"`
	Pressure         string           `json:"pressure"`
	PressureBidCount int              `json:"pressure_bid_count"`

	LastBidAmount   *decimal.Decimal `json:"last_bid_amount,omitempty"`
	LastBidderID    *uuid.UUID       `json:"last_bidder_id,omitempty"`
	LastBidPlacedAt *time.Time       `json:"last_bid_placed_at,omitempty"`
}

// GetAuctionStateUseCase builds a read-only snapshot of one auction. Lazy
// time-driven transitions are reflected in the snapshot without persisting,
// the sweeper and the bid path own the durable transition.
type GetAuctionStateUseCase struct {
	auctionRepo domain.AuctionRepository
	bidRepo     domain.BidRepository
	pressure    *domain.PressureBook
	clock       clock.Clock
}

func NewGetAuctionStateUseCase(auctionRepo domain.AuctionRepository, bidRepo domain.BidRepository, pressure *domain.PressureBook, clk clock.Clock) *GetAuctionStateUseCase {
	return &GetAuctionStateUseCase{
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		pressure:    pressure,
		clock:       clk,
	}
}

func (uc *GetAuctionStateUseCase) Execute(ctx context.Context, auctionID uuid.UUID) (*AuctionSnapshot, error) {
	auction, err := uc.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get auction state: %w", err)
	}

	now := uc.clock.Now()
	auction.RefreshStatus(now)

	level, count := uc.pressure.Classify(auctionID, now)

	snapshot := &AuctionSnapshot{
		AuctionID:        auction.ID,
		SellerID:         auction.SellerID,
		Title:            auction.Title,
		Description:      auction.Description,
		StartingPrice:    auction.StartingPrice,
		BidIncrement:     auction.BidIncrement,
		ReservePrice:     auction.ReservePrice,
		ReserveMet:       auction.ReserveMet(),
		CurrentPrice:     auction.CurrentPrice,
		MinimumBid:       auction.MinimumBid(),
		BidCount:         auction.BidCount,
		StartTime:        auction.StartTime,
		EndTime:          auction.EndTime,
		Status:           string(auction.Status),
		TimePhase:        string(domain.PhaseFor(auction.EndTime, now)),
		Pressure:         string(level),
		PressureBidCount: count,
	}

	if bid, err := uc.bidRepo.GetActiveBid(ctx, auctionID); err == nil && bid != nil {
		amount := bid.Amount
		bidderID := bid.BidderID
		placedAt := bid.PlacedAt
		snapshot.LastBidAmount = &amount
		snapshot.LastBidderID = &bidderID
		snapshot.LastBidPlacedAt = &placedAt
	}

	return snapshot, nil
}
