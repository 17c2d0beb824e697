package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/bidstream/internal/auction/domain"
	"github.com/cristianortiz/bidstream/internal/shared/clock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateAuctionDTO is the input for creating a draft auction.
type CreateAuctionDTO struct {
	SellerID         uuid.UUID
	Title            string
	Description      string
	StartingPrice    decimal.Decimal
	BidIncrement     decimal.Decimal
	ReservePrice     *decimal.Decimal
	StartTime        time.Time
	EndTime          time.Time
	AutoExtendWindow time.Duration
}

// LifecycleUseCase owns the command-driven transitions of the auction state
// machine: create (draft), publish, cancel and complete. Time-driven
// transitions belong to the sweeper and to the bid commit path.
type LifecycleUseCase struct {
	auctionRepo domain.AuctionRepository
	db          TxBeginner
	locks       *LockRegistry
	sequencer   *Sequencer
	publisher   domain.EventPublisher
	pressure    *domain.PressureBook
	clock       clock.Clock
}

func NewLifecycleUseCase(
	auctionRepo domain.AuctionRepository,
	db TxBeginner,
	locks *LockRegistry,
	sequencer *Sequencer,
	publisher domain.EventPublisher,
	pressure *domain.PressureBook,
	clk clock.Clock,
) *LifecycleUseCase {
	return &LifecycleUseCase{
		auctionRepo: auctionRepo,
		db:          db,
		locks:       locks,
		sequencer:   sequencer,
		publisher:   publisher,
		pressure:    pressure,
		clock:       clk,
	}
}

// Create stores a new draft auction. Drafts accept any schedule, staleness is
// checked at publish time.
func (uc *LifecycleUseCase) Create(ctx context.Context, cmd CreateAuctionDTO) (_ *domain.Auction, err error) {
	if !cmd.StartingPrice.IsPositive() || !cmd.BidIncrement.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	auction := domain.NewAuction(
		uuid.New(), cmd.SellerID, cmd.Title, cmd.Description,
		cmd.StartingPrice, cmd.BidIncrement, cmd.ReservePrice,
		cmd.StartTime, cmd.EndTime, cmd.AutoExtendWindow,
	)

	tx, err := uc.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("create auction: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("create auction: failed to commit transaction: %w", commitErr)
		}
	}()

	if err = uc.auctionRepo.Save(ctx, tx, auction); err != nil {
		return nil, fmt.Errorf("create auction: failed to save auction: %w", err)
	}

	log.Info("Auction created",
		zap.String("auctionID", auction.ID.String()),
		zap.String("sellerID", auction.SellerID.String()),
	)
	return auction, nil
}

// Publish moves a draft into scheduled or active depending on the clock.
func (uc *LifecycleUseCase) Publish(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error) {
	return uc.transition(ctx, auctionID, func(a *domain.Auction, now time.Time) error {
		return a.Publish(now)
	})
}

// Cancel withdraws an auction, refused once any bid exists.
func (uc *LifecycleUseCase) Cancel(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error) {
	auction, err := uc.transition(ctx, auctionID, func(a *domain.Auction, now time.Time) error {
		return a.Cancel()
	})
	if err != nil {
		return nil, err
	}
	uc.pressure.Forget(auctionID)
	return auction, nil
}

// Complete settles an ended auction (external settlement command).
func (uc *LifecycleUseCase) Complete(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error) {
	return uc.transition(ctx, auctionID, func(a *domain.Auction, now time.Time) error {
		return a.Complete()
	})
}

// transition runs one lifecycle command under the auction's lock and row lock,
// broadcasting the status delta only after the commit succeeded.
func (uc *LifecycleUseCase) transition(ctx context.Context, auctionID uuid.UUID, apply func(a *domain.Auction, now time.Time) error) (*domain.Auction, error) {
	unlock := uc.locks.Lock(auctionID)
	defer unlock()

	auction, err := uc.commitTransition(ctx, auctionID, apply)
	if err != nil {
		return nil, err
	}

	event := domain.NewStatusChangedEvent(auction, uc.clock.Now())
	event.Sequence = uc.sequencer.Next(auction.ID)
	uc.publisher.Publish(ctx, event)

	return auction, nil
}

func (uc *LifecycleUseCase) commitTransition(ctx context.Context, auctionID uuid.UUID, apply func(a *domain.Auction, now time.Time) error) (_ *domain.Auction, err error) {
	tx, err := uc.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("auction lifecycle: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("auction lifecycle: failed to commit transaction: %w", commitErr)
		}
	}()

	auction, err := uc.auctionRepo.GetByIDForUpdate(ctx, tx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("auction lifecycle: failed to load auction %s: %w", auctionID, err)
	}

	now := uc.clock.Now()
	auction.RefreshStatus(now)
	if err = apply(auction, now); err != nil {
		return nil, fmt.Errorf("auction lifecycle: transition failed for auction %s: %w", auctionID, err)
	}

	if err = uc.auctionRepo.Save(ctx, tx, auction); err != nil {
		return nil, fmt.Errorf("auction lifecycle: failed to save auction %s: %w", auctionID, err)
	}

	return auction, nil
}
