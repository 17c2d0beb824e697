package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cristianortiz/bidstream/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const auctionColumns = `id, seller_id, title, description, starting_price, bid_increment, reserve_price,
        current_price, bid_count, start_time, end_time, status, auto_extend_window, last_extended_at,
        created_at, updated_at`

// AuctionRepository implements domain.AuctionRepository
type AuctionRepository struct {
	pool *pgxpool.Pool
}

func NewAuctionRepository(pool *pgxpool.Pool) *AuctionRepository {
	return &AuctionRepository{pool: pool}
}

// Save inserts or updates the auction. INSERT ON CONFLICT handles both
// creation and update, created_at/updated_at come from the DB defaults.
func (r *AuctionRepository) Save(ctx context.Context, tx pgx.Tx, auction *domain.Auction) error {
	query := `
        INSERT INTO auctions (id, seller_id, title, description, starting_price, bid_increment, reserve_price,
            current_price, bid_count, start_time, end_time, status, auto_extend_window, last_extended_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        ON CONFLICT (id) DO UPDATE
        SET
            current_price = EXCLUDED.current_price,
            bid_count = EXCLUDED.bid_count,
            end_time = EXCLUDED.end_time,
            status = EXCLUDED.status,
            last_extended_at = EXCLUDED.last_extended_at,
            updated_at = NOW();
    `
	_, err := tx.Exec(ctx, query,
		auction.ID,
		auction.SellerID,
		auction.Title,
		auction.Description,
		auction.StartingPrice,
		auction.BidIncrement,
		auction.ReservePrice,
		auction.CurrentPrice,
		auction.BidCount,
		auction.StartTime,
		auction.EndTime,
		auction.Status,
		auction.AutoExtendWindow.Nanoseconds(),
		auction.LastExtendedAt,
	)
	return err
}

func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id)
	return scanAuction(row)
}

// GetByIDForUpdate loads the auction inside tx holding the row lock, so the
// read-validate-commit unit of a bid serializes across processes too.
func (r *AuctionRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Auction, error) {
	row := tx.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1 FOR UPDATE`, id)
	return scanAuction(row)
}

// GetScheduledToActivate lists scheduled auctions whose start time passed.
func (r *AuctionRepository) GetScheduledToActivate(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE status = $1 AND start_time <= $2`
	return r.queryAuctions(ctx, query, domain.StatusScheduled, now)
}

// GetActiveToEnd lists active auctions whose end time passed.
func (r *AuctionRepository) GetActiveToEnd(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE status = $1 AND end_time <= $2`
	return r.queryAuctions(ctx, query, domain.StatusActive, now)
}

func (r *AuctionRepository) queryAuctions(ctx context.Context, query string, args ...any) ([]*domain.Auction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, auction)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return auctions, nil
}

func scanAuction(row pgx.Row) (*domain.Auction, error) {
	auction := &domain.Auction{}
	var autoExtendNanos int64
	var lastExtendedAt *time.Time

	err := row.Scan(
		&auction.ID,
		&auction.SellerID,
		&auction.Title,
		&auction.Description,
		&auction.StartingPrice,
		&auction.BidIncrement,
		&auction.ReservePrice,
		&auction.CurrentPrice,
		&auction.BidCount,
		&auction.StartTime,
		&auction.EndTime,
		&auction.Status,
		&autoExtendNanos,
		&lastExtendedAt,
		&auction.CreatedAt,
		&auction.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, err
	}

	auction.AutoExtendWindow = time.Duration(autoExtendNanos)
	auction.LastExtendedAt = lastExtendedAt
	return auction, nil
}
