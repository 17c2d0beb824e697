package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cristianortiz/bidstream/internal/auction/domain"
	"github.com/cristianortiz/bidstream/internal/shared/clock"
	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

type lifecycleFixture struct {
	uc       *LifecycleUseCase
	auctions *memAuctionRepo
	pub      *recordingPublisher
	pressure *domain.PressureBook
	clk      *clock.Fake
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	f := &lifecycleFixture{
		auctions: newMemAuctionRepo(),
		pub:      &recordingPublisher{},
		pressure: domain.NewPressureBook(),
		clk:      clock.NewFake(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)),
	}
	f.uc = NewLifecycleUseCase(
		f.auctions, &fakeDB{}, NewLockRegistry(), NewSequencer(),
		f.pub, f.pressure, f.clk,
	)
	return f
}

func (f *lifecycleFixture) createDraft(t *testing.T, startIn, endIn time.Duration) *domain.Auction {
	t.Helper()
	now := f.clk.Now()
	auction, err := f.uc.Create(context.Background(), CreateAuctionDTO{
		SellerID:         uuid.New(),
		Title:            "lot",
		StartingPrice:    dec("100"),
		BidIncrement:     dec("10"),
		StartTime:        now.Add(startIn),
		EndTime:          now.Add(endIn),
		AutoExtendWindow: 5 * time.Minute,
	})
	assert.Nil(t, err)
	return auction
}

func TestLifecycle_CreateStoresDraft(t *testing.T) {
	f := newLifecycleFixture(t)
	auction := f.createDraft(t, time.Hour, 2*time.Hour)

	check.Equal(t, domain.StatusDraft, auction.Status)
	stored := f.auctions.get(auction.ID)
	assert.True(t, stored != nil)
	check.Equal(t, domain.StatusDraft, stored.Status)
	check.True(t, stored.CurrentPrice.Equal(dec("100")))
	// creation broadcasts nothing, drafts have no subscribers
	check.Equal(t, 0, len(f.pub.all()))
}

func TestLifecycle_CreateRejectsNonPositivePrices(t *testing.T) {
	f := newLifecycleFixture(t)
	now := f.clk.Now()

	_, err := f.uc.Create(context.Background(), CreateAuctionDTO{
		SellerID:      uuid.New(),
		StartingPrice: dec("0"),
		BidIncrement:  dec("10"),
		StartTime:     now,
		EndTime:       now.Add(time.Hour),
	})
	check.True(t, errors.Is(err, domain.ErrInvalidAmount))

	_, err = f.uc.Create(context.Background(), CreateAuctionDTO{
		SellerID:      uuid.New(),
		StartingPrice: dec("100"),
		BidIncrement:  dec("-1"),
		StartTime:     now,
		EndTime:       now.Add(time.Hour),
	})
	check.True(t, errors.Is(err, domain.ErrInvalidAmount))
}

func TestLifecycle_PublishFutureStartSchedules(t *testing.T) {
	f := newLifecycleFixture(t)
	auction := f.createDraft(t, time.Hour, 2*time.Hour)

	published, err := f.uc.Publish(context.Background(), auction.ID)
	assert.Nil(t, err)
	check.Equal(t, domain.StatusScheduled, published.Status)
	check.Equal(t, domain.StatusScheduled, f.auctions.get(auction.ID).Status)

	events := f.pub.all()
	assert.Equal(t, 1, len(events))
	check.Equal(t, domain.EventStatusChanged, events[0].Type)
	check.Equal(t, domain.StatusScheduled, events[0].Status)
}

func TestLifecycle_PublishPastStartActivates(t *testing.T) {
	f := newLifecycleFixture(t)
	auction := f.createDraft(t, -time.Minute, time.Hour)

	published, err := f.uc.Publish(context.Background(), auction.ID)
	assert.Nil(t, err)
	check.Equal(t, domain.StatusActive, published.Status)
}

func TestLifecycle_PublishStaleSchedule(t *testing.T) {
	f := newLifecycleFixture(t)
	auction := f.createDraft(t, -2*time.Hour, -time.Hour)

	_, err := f.uc.Publish(context.Background(), auction.ID)
	check.True(t, errors.Is(err, domain.ErrStaleSchedule))
	check.Equal(t, domain.StatusDraft, f.auctions.get(auction.ID).Status)
	check.Equal(t, 0, len(f.pub.all()))
}

func TestLifecycle_PublishUnknownAuction(t *testing.T) {
	f := newLifecycleFixture(t)
	_, err := f.uc.Publish(context.Background(), uuid.New())
	check.True(t, errors.Is(err, domain.ErrAuctionNotFound))
}

func TestLifecycle_CancelWithoutBids(t *testing.T) {
	f := newLifecycleFixture(t)
	auction := f.createDraft(t, time.Hour, 2*time.Hour)

	cancelled, err := f.uc.Cancel(context.Background(), auction.ID)
	assert.Nil(t, err)
	check.Equal(t, domain.StatusCancelled, cancelled.Status)

	events := f.pub.all()
	assert.Equal(t, 1, len(events))
	check.Equal(t, domain.StatusCancelled, events[0].Status)
}

func TestLifecycle_CancelBlockedByBids(t *testing.T) {
	f := newLifecycleFixture(t)
	auction := f.createDraft(t, -time.Minute, time.Hour)
	_, err := f.uc.Publish(context.Background(), auction.ID)
	assert.Nil(t, err)

	// simulate a committed bid
	stored := f.auctions.get(auction.ID)
	stored.BidCount = 1
	stored.CurrentPrice = dec("100")
	f.auctions.put(stored)

	_, err = f.uc.Cancel(context.Background(), auction.ID)
	check.True(t, errors.Is(err, domain.ErrCancellationBlocked))
	check.Equal(t, domain.StatusActive, f.auctions.get(auction.ID).Status)
}

func TestLifecycle_CompleteRequiresEnded(t *testing.T) {
	f := newLifecycleFixture(t)
	auction := f.createDraft(t, -time.Minute, time.Hour)
	_, err := f.uc.Publish(context.Background(), auction.ID)
	assert.Nil(t, err)

	_, err = f.uc.Complete(context.Background(), auction.ID)
	check.True(t, errors.Is(err, domain.ErrAuctionNotEnded))

	// past the deadline the transition refreshes to ended first, then
	// completes in the same commit
	f.clk.Set(f.auctions.get(auction.ID).EndTime)
	completed, err := f.uc.Complete(context.Background(), auction.ID)
	assert.Nil(t, err)
	check.Equal(t, domain.StatusCompleted, completed.Status)
	check.Equal(t, domain.StatusCompleted, f.auctions.get(auction.ID).Status)
}
