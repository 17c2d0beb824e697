package application

import (
	"context"
	"fmt"

	"github.com/cristianortiz/bidstream/internal/auction/domain"
	"github.com/cristianortiz/bidstream/internal/shared/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LifecycleSweeper applies the time-driven transitions periodically:
// scheduled auctions activate at start time, active auctions end at end time.
// The bid path also re-checks the deadline at commit time, so the sweeper
// running late never lets a bid through, it only delays the durable status
// flip and its broadcast.
type LifecycleSweeper struct {
	auctionRepo domain.AuctionRepository
	db          TxBeginner
	locks       *LockRegistry
	sequencer   *Sequencer
	publisher   domain.EventPublisher
	pressure    *domain.PressureBook
	clock       clock.Clock
}

func NewLifecycleSweeper(
	auctionRepo domain.AuctionRepository,
	db TxBeginner,
	locks *LockRegistry,
	sequencer *Sequencer,
	publisher domain.EventPublisher,
	pressure *domain.PressureBook,
	clk clock.Clock,
) *LifecycleSweeper {
	return &LifecycleSweeper{
		auctionRepo: auctionRepo,
		db:          db,
		locks:       locks,
		sequencer:   sequencer,
		publisher:   publisher,
		pressure:    pressure,
		clock:       clk,
	}
}

// Sweep runs one pass. Each auction transitions under its own lock, a failure
// on one auction does not stop the pass.
func (s *LifecycleSweeper) Sweep(ctx context.Context) {
	now := s.clock.Now()

	toActivate, err := s.auctionRepo.GetScheduledToActivate(ctx, now)
	if err != nil {
		log.Error("LifecycleSweeper: failed to list scheduled auctions", zap.Error(err))
	}
	for _, auction := range toActivate {
		s.sweepOne(ctx, auction.ID)
	}

	toEnd, err := s.auctionRepo.GetActiveToEnd(ctx, now)
	if err != nil {
		log.Error("LifecycleSweeper: failed to list expiring auctions", zap.Error(err))
	}
	for _, auction := range toEnd {
		s.sweepOne(ctx, auction.ID)
	}
}

func (s *LifecycleSweeper) sweepOne(ctx context.Context, auctionID uuid.UUID) {
	unlock := s.locks.Lock(auctionID)
	defer unlock()

	auction, changed, err := s.commitRefresh(ctx, auctionID)
	if err != nil {
		log.Error("LifecycleSweeper: failed to refresh auction",
			zap.String("auctionID", auctionID.String()),
			zap.Error(err),
		)
		return
	}
	if !changed {
		// another writer already applied the transition
		return
	}

	event := domain.NewStatusChangedEvent(auction, s.clock.Now())
	event.Sequence = s.sequencer.Next(auction.ID)
	s.publisher.Publish(ctx, event)

	if auction.Status == domain.StatusEnded {
		s.pressure.Forget(auction.ID)
	}
}

func (s *LifecycleSweeper) commitRefresh(ctx context.Context, auctionID uuid.UUID) (_ *domain.Auction, _ bool, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("lifecycle sweep: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("lifecycle sweep: failed to commit transaction: %w", commitErr)
		}
	}()

	auction, err := s.auctionRepo.GetByIDForUpdate(ctx, tx, auctionID)
	if err != nil {
		return nil, false, fmt.Errorf("lifecycle sweep: failed to load auction %s: %w", auctionID, err)
	}

	if !auction.RefreshStatus(s.clock.Now()) {
		return auction, false, nil
	}

	if err = s.auctionRepo.Save(ctx, tx, auction); err != nil {
		return nil, false, fmt.Errorf("lifecycle sweep: failed to save auction %s: %w", auctionID, err)
	}

	return auction, true, nil
}
