package postgres

import (
	"context"
	"errors"

	"github.com/cristianortiz/bidstream/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BidRepository implements domain.BidRepository
type BidRepository struct {
	pool *pgxpool.Pool
}

func NewBidRepository(pool *pgxpool.Pool) *BidRepository {
	return &BidRepository{pool: pool}
}

// Save inserts a new bid, the surrounding transaction also updates the auction
// so both land or neither does.
func (r *BidRepository) Save(ctx context.Context, tx pgx.Tx, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (id, auction_id, bidder_id, amount, is_auto_bid, auto_bid_max_amount, status, placed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := tx.Exec(ctx, query,
		bid.ID,
		bid.AuctionID,
		bid.BidderID,
		bid.Amount,
		bid.IsAutoBid,
		bid.AutoBidMax,
		bid.Status,
		bid.PlacedAt,
	)
	return err
}

// MarkActiveOutbid flips the previously active bid (if any) to outbid. Status
// only moves forward, the WHERE clause never touches outbid rows.
func (r *BidRepository) MarkActiveOutbid(ctx context.Context, tx pgx.Tx, auctionID, exceptBidID uuid.UUID) error {
	query := `
        UPDATE bids SET status = $1
        WHERE auction_id = $2 AND status = $3 AND id <> $4
    `
	_, err := tx.Exec(ctx, query, domain.BidStatusOutbid, auctionID, domain.BidStatusActive, exceptBidID)
	return err
}

// GetActiveBid returns the current high bid, nil when the auction has none.
func (r *BidRepository) GetActiveBid(ctx context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	query := `
        SELECT id, auction_id, bidder_id, amount, is_auto_bid, auto_bid_max_amount, status, placed_at, created_at
        FROM bids
        WHERE auction_id = $1 AND status = $2
        ORDER BY placed_at DESC
        LIMIT 1
    `
	bid := &domain.Bid{}
	err := r.pool.QueryRow(ctx, query, auctionID, domain.BidStatusActive).Scan(
		&bid.ID,
		&bid.AuctionID,
		&bid.BidderID,
		&bid.Amount,
		&bid.IsAutoBid,
		&bid.AutoBidMax,
		&bid.Status,
		&bid.PlacedAt,
		&bid.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return bid, nil
}

func (r *BidRepository) GetBidsByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	query := `
        SELECT id, auction_id, bidder_id, amount, is_auto_bid, auto_bid_max_amount, status, placed_at, created_at
        FROM bids
        WHERE auction_id = $1
        ORDER BY placed_at ASC
    `
	rows, err := r.pool.Query(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		bid := &domain.Bid{}
		err := rows.Scan(
			&bid.ID,
			&bid.AuctionID,
			&bid.BidderID,
			&bid.Amount,
			&bid.IsAutoBid,
			&bid.AutoBidMax,
			&bid.Status,
			&bid.PlacedAt,
			&bid.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bids, nil
}
