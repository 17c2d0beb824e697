package application

import (
	"context"
	"testing"
	"time"

	"github.com/cristianortiz/bidstream/internal/auction/domain"
	"github.com/cristianortiz/bidstream/internal/shared/clock"
	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

type sweeperFixture struct {
	sweeper  *LifecycleSweeper
	auctions *memAuctionRepo
	pub      *recordingPublisher
	pressure *domain.PressureBook
	clk      *clock.Fake
}

func newSweeperFixture(t *testing.T) *sweeperFixture {
	t.Helper()
	f := &sweeperFixture{
		auctions: newMemAuctionRepo(),
		pub:      &recordingPublisher{},
		pressure: domain.NewPressureBook(),
		clk:      clock.NewFake(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)),
	}
	f.sweeper = NewLifecycleSweeper(
		f.auctions, &fakeDB{}, NewLockRegistry(), NewSequencer(),
		f.pub, f.pressure, f.clk,
	)
	return f
}

func (f *sweeperFixture) seed(t *testing.T, status domain.AuctionStatus, start, end time.Time) *domain.Auction {
	t.Helper()
	a := domain.NewAuction(
		uuid.New(), uuid.New(), "lot", "",
		dec("100"), dec("10"), nil, start, end, 5*time.Minute,
	)
	a.Status = status
	f.auctions.put(a)
	return a
}

func TestSweep_ActivatesScheduled(t *testing.T) {
	f := newSweeperFixture(t)
	now := f.clk.Now()
	due := f.seed(t, domain.StatusScheduled, now.Add(-time.Minute), now.Add(time.Hour))
	notYet := f.seed(t, domain.StatusScheduled, now.Add(time.Hour), now.Add(2*time.Hour))

	f.sweeper.Sweep(context.Background())

	check.Equal(t, domain.StatusActive, f.auctions.get(due.ID).Status)
	check.Equal(t, domain.StatusScheduled, f.auctions.get(notYet.ID).Status)

	events := f.pub.all()
	assert.Equal(t, 1, len(events))
	check.Equal(t, domain.EventStatusChanged, events[0].Type)
	check.Equal(t, due.ID, events[0].AuctionID)
	check.Equal(t, domain.StatusActive, events[0].Status)
}

func TestSweep_EndsExpiredAndForgetsPressure(t *testing.T) {
	f := newSweeperFixture(t)
	now := f.clk.Now()
	expired := f.seed(t, domain.StatusActive, now.Add(-2*time.Hour), now.Add(-time.Second))
	running := f.seed(t, domain.StatusActive, now.Add(-time.Hour), now.Add(time.Hour))

	f.pressure.Record(expired.ID, now)
	f.pressure.Record(expired.ID, now)

	f.sweeper.Sweep(context.Background())

	check.Equal(t, domain.StatusEnded, f.auctions.get(expired.ID).Status)
	check.Equal(t, domain.StatusActive, f.auctions.get(running.ID).Status)

	level, count := f.pressure.Classify(expired.ID, now)
	check.Equal(t, domain.PressureLow, level)
	check.Equal(t, 0, count)

	events := f.pub.all()
	assert.Equal(t, 1, len(events))
	check.Equal(t, domain.StatusEnded, events[0].Status)
}

func TestSweep_NoDueAuctionsIsQuiet(t *testing.T) {
	f := newSweeperFixture(t)
	now := f.clk.Now()
	f.seed(t, domain.StatusActive, now.Add(-time.Hour), now.Add(time.Hour))
	f.seed(t, domain.StatusScheduled, now.Add(time.Hour), now.Add(2*time.Hour))

	f.sweeper.Sweep(context.Background())
	check.Equal(t, 0, len(f.pub.all()))
}

func TestSweep_SecondPassIsIdempotent(t *testing.T) {
	f := newSweeperFixture(t)
	now := f.clk.Now()
	f.seed(t, domain.StatusActive, now.Add(-2*time.Hour), now.Add(-time.Second))

	f.sweeper.Sweep(context.Background())
	f.sweeper.Sweep(context.Background())

	// the second pass finds no active auction past its deadline, one delta
	check.Equal(t, 1, len(f.pub.all()))
}
