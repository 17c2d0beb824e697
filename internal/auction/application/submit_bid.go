package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/cristianortiz/bidstream/internal/auction/domain"
	"github.com/cristianortiz/bidstream/internal/shared/clock"
	"github.com/cristianortiz/bidstream/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// maxCommitAttempts bounds the internal retry on store-level write conflicts
// before ErrConcurrentModification surfaces to the caller.
const maxCommitAttempts = 3

// TxBeginner starts a store transaction, satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SubmitBidDTO is the input for SubmitBidUseCase.
type SubmitBidDTO struct {
	AuctionID  uuid.UUID
	BidderID   uuid.UUID
	Amount     decimal.Decimal
	IsAutoBid  bool
	AutoBidMax *decimal.Decimal
}

// SubmitBidUseCase validates and commits one bid submission against the
// auction ledger. Side effects are strictly ordered: ledger commit, then
// extension evaluation (inside the same transaction and per-auction lock),
// then broadcast. A broadcast is never sent for a commit that did not happen.
type SubmitBidUseCase struct {
	auctionRepo domain.AuctionRepository
	bidRepo     domain.BidRepository
	extRepo     domain.ExtensionRepository
	db          TxBeginner
	locks       *LockRegistry
	sequencer   *Sequencer
	publisher   domain.EventPublisher
	pressure    *domain.PressureBook
	clock       clock.Clock
}

func NewSubmitBidUseCase(
	auctionRepo domain.AuctionRepository,
	bidRepo domain.BidRepository,
	extRepo domain.ExtensionRepository,
	db TxBeginner,
	locks *LockRegistry,
	sequencer *Sequencer,
	publisher domain.EventPublisher,
	pressure *domain.PressureBook,
	clk clock.Clock,
) *SubmitBidUseCase {
	return &SubmitBidUseCase{
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		extRepo:     extRepo,
		db:          db,
		locks:       locks,
		sequencer:   sequencer,
		publisher:   publisher,
		pressure:    pressure,
		clock:       clk,
	}
}

func (uc *SubmitBidUseCase) Execute(ctx context.Context, cmd SubmitBidDTO) (*domain.Bid, error) {
	// no amount pre-check here: a missing auction must report not-found
	// before anything else, and a non-positive amount is always below the
	// minimum so the validation chain rejects it with the retry minimum

	// serialize all writers of this auction, other auctions never contend
	unlock := uc.locks.Lock(cmd.AuctionID)
	defer unlock()

	var (
		bid    *domain.Bid
		events []*domain.Event
		err    error
	)
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		bid, events, err = uc.attempt(ctx, cmd)
		if err != nil && isRetryableTxError(err) {
			log.Warn("SubmitBidUseCase: retrying after write conflict",
				zap.String("auctionID", cmd.AuctionID.String()),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}
		break
	}
	if err != nil {
		if isRetryableTxError(err) {
			return nil, fmt.Errorf("submit bid: %w", domain.ErrConcurrentModification)
		}
		return nil, err
	}

	// post-commit, in order: pressure sample, then the deltas. The per-auction
	// lock is still held, so deltas of consecutive commits reach the
	// publisher in commit order.
	uc.pressure.Record(bid.AuctionID, bid.PlacedAt)
	for _, event := range events {
		uc.publisher.Publish(ctx, event)
	}

	return bid, nil
}

// attempt runs one read-validate-commit unit inside a transaction holding the
// auction row lock.
func (uc *SubmitBidUseCase) attempt(ctx context.Context, cmd SubmitBidDTO) (_ *domain.Bid, _ []*domain.Event, err error) {
	tx, err := uc.db.Begin(ctx)
	if err != nil {
		log.Error("SubmitBidUseCase: failed to begin transaction",
			zap.String("auctionID", cmd.AuctionID.String()),
			zap.Error(err),
		)
		return nil, nil, fmt.Errorf("submit bid: failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			log.Error("SubmitBidUseCase: failed to commit transaction",
				zap.String("auctionID", cmd.AuctionID.String()),
				zap.Error(commitErr),
			)
			err = fmt.Errorf("submit bid: failed to commit transaction: %w", commitErr)
		}
	}()

	auction, err := uc.auctionRepo.GetByIDForUpdate(ctx, tx, cmd.AuctionID)
	if err != nil {
		return nil, nil, fmt.Errorf("submit bid: failed to load auction %s: %w", cmd.AuctionID, err)
	}

	now := uc.clock.Now()

	// lazy time-driven transition: a scheduled auction whose start has passed
	// becomes active within this same commit, an expired one is rejected here
	// and persisted as ended by the sweeper
	statusChanged := auction.RefreshStatus(now)

	bid, err := auction.AcceptBid(cmd.BidderID, cmd.Amount, cmd.IsAutoBid, cmd.AutoBidMax, now)
	if err != nil {
		return nil, nil, fmt.Errorf("submit bid: bid failed for auction %s: %w", cmd.AuctionID, err)
	}

	// outbid cascade before inserting the new active bid, the partial unique
	// index on (auction_id) WHERE status='active' enforces the invariant
	if err = uc.bidRepo.MarkActiveOutbid(ctx, tx, auction.ID, bid.ID); err != nil {
		return nil, nil, fmt.Errorf("submit bid: failed to flip previous bid for auction %s: %w", cmd.AuctionID, err)
	}
	if err = uc.bidRepo.Save(ctx, tx, bid); err != nil {
		return nil, nil, fmt.Errorf("submit bid: failed to save bid for auction %s: %w", cmd.AuctionID, err)
	}

	// extension is subordinate to the commit and re-reads the possibly
	// already-extended end time under the same lock
	record, extended := auction.ExtendForBid(bid)
	if extended {
		if err = uc.extRepo.Append(ctx, tx, record); err != nil {
			return nil, nil, fmt.Errorf("submit bid: failed to append extension record for auction %s: %w", cmd.AuctionID, err)
		}
	}

	if err = uc.auctionRepo.Save(ctx, tx, auction); err != nil {
		return nil, nil, fmt.Errorf("submit bid: failed to save auction %s: %w", cmd.AuctionID, err)
	}

	events := make([]*domain.Event, 0, 4)
	if statusChanged {
		events = append(events, domain.NewStatusChangedEvent(auction, now))
	}
	events = append(events,
		domain.NewBidAcceptedEvent(auction, bid),
		domain.NewPriceChangedEvent(auction, now),
	)
	if extended {
		events = append(events, domain.NewDeadlineExtendedEvent(auction, record))
	}
	for _, event := range events {
		event.Sequence = uc.sequencer.Next(auction.ID)
	}

	return bid, events, nil
}

// isRetryableTxError reports postgres serialization and deadlock failures,
// which are safe to retry against the fresh state.
func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
