package postgres

import (
	"context"

	"github.com/cristianortiz/bidstream/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExtensionRepository implements domain.ExtensionRepository, an append-only
// audit trail of deadline pushes.
type ExtensionRepository struct {
	pool *pgxpool.Pool
}

func NewExtensionRepository(pool *pgxpool.Pool) *ExtensionRepository {
	return &ExtensionRepository{pool: pool}
}

func (r *ExtensionRepository) Append(ctx context.Context, tx pgx.Tx, record *domain.ExtensionRecord) error {
	query := `
        INSERT INTO auction_extensions (id, auction_id, bid_id, previous_end_time, new_end_time, extended_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := tx.Exec(ctx, query,
		record.ID,
		record.AuctionID,
		record.BidID,
		record.PreviousEndTime,
		record.NewEndTime,
		record.ExtendedAt,
	)
	return err
}

func (r *ExtensionRepository) GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*domain.ExtensionRecord, error) {
	query := `
        SELECT id, auction_id, bid_id, previous_end_time, new_end_time, extended_at
        FROM auction_extensions
        WHERE auction_id = $1
        ORDER BY extended_at ASC
    `
	rows, err := r.pool.Query(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.ExtensionRecord
	for rows.Next() {
		record := &domain.ExtensionRecord{}
		err := rows.Scan(
			&record.ID,
			&record.AuctionID,
			&record.BidID,
			&record.PreviousEndTime,
			&record.NewEndTime,
			&record.ExtendedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
