package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type AuctionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Auction, error)
	// GetByIDForUpdate loads the auction inside tx holding a row lock, the
	// read-validate-commit unit of a bid must see no concurrent writer.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Auction, error)
	Save(ctx context.Context, tx pgx.Tx, auction *Auction) error
	GetScheduledToActivate(ctx context.Context, now time.Time) ([]*Auction, error)
	GetActiveToEnd(ctx context.Context, now time.Time) ([]*Auction, error)
}

type BidRepository interface {
	Save(ctx context.Context, tx pgx.Tx, bid *Bid) error
	// MarkActiveOutbid flips every active bid of the auction except the new
	// one to outbid (the outbid cascade).
	MarkActiveOutbid(ctx context.Context, tx pgx.Tx, auctionID, exceptBidID uuid.UUID) error
	GetActiveBid(ctx context.Context, auctionID uuid.UUID) (*Bid, error)
	GetBidsByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error)
}

type ExtensionRepository interface {
	Append(ctx context.Context, tx pgx.Tx, record *ExtensionRecord) error
	GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*ExtensionRecord, error)
}

// EventPublisher delivers ledger deltas to the subscribers of an auction
// topic. Publish must preserve per-auction FIFO order for deltas published
// from inside the auction's critical section.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event)
}
