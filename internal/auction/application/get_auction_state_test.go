package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cristianortiz/bidstream/internal/auction/domain"
	"github.com/cristianortiz/bidstream/internal/shared/clock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

type stateFixture struct {
	uc       *GetAuctionStateUseCase
	auctions *memAuctionRepo
	bids     *memBidRepo
	pressure *domain.PressureBook
	clk      *clock.Fake
}

func newStateFixture(t *testing.T) *stateFixture {
	t.Helper()
	f := &stateFixture{
		auctions: newMemAuctionRepo(),
		bids:     newMemBidRepo(),
		pressure: domain.NewPressureBook(),
		clk:      clock.NewFake(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)),
	}
	f.uc = NewGetAuctionStateUseCase(f.auctions, f.bids, f.pressure, f.clk)
	return f
}

func (f *stateFixture) seedActive(t *testing.T) *domain.Auction {
	t.Helper()
	now := f.clk.Now()
	a := domain.NewAuction(
		uuid.New(), uuid.New(), "lot", "a description",
		dec("100"), dec("10"), nil,
		now.Add(-time.Hour), now.Add(time.Hour), 5*time.Minute,
	)
	assert.Nil(t, a.Publish(now))
	f.auctions.put(a)
	return a
}

func TestGetAuctionState_Snapshot(t *testing.T) {
	f := newStateFixture(t)
	a := f.seedActive(t)

	snapshot, err := f.uc.Execute(context.Background(), a.ID)
	assert.Nil(t, err)

	check.Equal(t, a.ID, snapshot.AuctionID)
	check.Equal(t, string(domain.StatusActive), snapshot.Status)
	check.True(t, snapshot.CurrentPrice.Equal(dec("100")))
	check.True(t, snapshot.MinimumBid.Equal(dec("100")))
	check.Equal(t, 0, snapshot.BidCount)
	check.Equal(t, string(domain.PhaseSafe), snapshot.TimePhase)
	check.Equal(t, string(domain.PressureLow), snapshot.Pressure)
	check.True(t, snapshot.LastBidAmount == nil)
	check.True(t, snapshot.ReserveMet) // no reserve configured
}

func TestGetAuctionState_ReflectsLedgerAndSignals(t *testing.T) {
	f := newStateFixture(t)
	a := f.seedActive(t)

	// a committed bid: ledger fields plus the active-bid summary
	bid := domain.NewBid(uuid.New(), a.ID, uuid.New(), dec("120"), false, nil, f.clk.Now())
	assert.Nil(t, f.bids.Save(context.Background(), nil, bid))
	stored := f.auctions.get(a.ID)
	stored.CurrentPrice = dec("120")
	stored.BidCount = 1
	f.auctions.put(stored)
	f.pressure.Record(a.ID, f.clk.Now())
	f.pressure.Record(a.ID, f.clk.Now())

	snapshot, err := f.uc.Execute(context.Background(), a.ID)
	assert.Nil(t, err)

	check.True(t, snapshot.CurrentPrice.Equal(dec("120")))
	check.True(t, snapshot.MinimumBid.Equal(dec("130")))
	check.Equal(t, 1, snapshot.BidCount)
	check.Equal(t, string(domain.PressureMedium), snapshot.Pressure)
	check.Equal(t, 2, snapshot.PressureBidCount)
	assert.True(t, snapshot.LastBidAmount != nil)
	check.True(t, snapshot.LastBidAmount.Equal(dec("120")))
	check.Equal(t, bid.BidderID, *snapshot.LastBidderID)
}

func TestGetAuctionState_LazyEndedWithoutPersisting(t *testing.T) {
	f := newStateFixture(t)
	a := f.seedActive(t)

	f.clk.Set(a.EndTime.Add(time.Second))
	snapshot, err := f.uc.Execute(context.Background(), a.ID)
	assert.Nil(t, err)

	// the snapshot already reports ended and the matching phase, but the
	// stored row is untouched until the sweeper commits the flip
	check.Equal(t, string(domain.StatusEnded), snapshot.Status)
	check.Equal(t, string(domain.PhaseEnded), snapshot.TimePhase)
	check.Equal(t, domain.StatusActive, f.auctions.get(a.ID).Status)
}

func TestGetAuctionState_IdempotentWithoutBids(t *testing.T) {
	f := newStateFixture(t)
	a := f.seedActive(t)

	first, err := f.uc.Execute(context.Background(), a.ID)
	assert.Nil(t, err)
	second, err := f.uc.Execute(context.Background(), a.ID)
	assert.Nil(t, err)
	check.Equal(t, first, second, cmp.Comparer(func(a, b decimal.Decimal) bool {
		return a.Equal(b)
	}))
}

func TestGetAuctionState_NotFound(t *testing.T) {
	f := newStateFixture(t)
	_, err := f.uc.Execute(context.Background(), uuid.New())
	check.True(t, errors.Is(err, domain.ErrAuctionNotFound))
}
