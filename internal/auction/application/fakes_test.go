package application

import (
	"context"
	"sync"
	"time"

	"github.com/cristianortiz/bidstream/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeTx satisfies pgx.Tx through embedding, only Commit and Rollback are
// exercised by the use cases with the in-memory repositories below. Repository
// writes are staged on the transaction and applied only by a successful
// Commit, a Rollback or a failed Commit discards them, so no partial state
// survives the way it would not in the real store.
type fakeTx struct {
	pgx.Tx
	db     *fakeDB
	mu     sync.Mutex
	staged []func()
}

var _ pgx.Tx = (*fakeTx)(nil)

func (t *fakeTx) stage(write func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.staged = append(t.staged, write)
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.db != nil && t.db.takeCommitFailure() {
		t.staged = nil
		return &pgconn.PgError{Code: "40001", Message: "serialization failure"}
	}
	for _, write := range t.staged {
		write()
	}
	t.staged = nil
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.staged = nil
	return nil
}

// stageOrApply defers a repository write to the transaction's commit when one
// is present, read-side tests passing a nil tx apply immediately.
func stageOrApply(tx pgx.Tx, write func()) {
	if ftx, ok := tx.(*fakeTx); ok && ftx != nil {
		ftx.stage(write)
		return
	}
	write()
}

// fakeDB hands out fake transactions, optionally failing the next N commits
// with a retryable serialization error.
type fakeDB struct {
	mu          sync.Mutex
	failCommits int
}

func (db *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return &fakeTx{db: db}, nil
}

func (db *fakeDB) takeCommitFailure() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.failCommits > 0 {
		db.failCommits--
		return true
	}
	return false
}

func cloneAuction(a *domain.Auction) *domain.Auction {
	c := *a
	if a.ReservePrice != nil {
		reserve := *a.ReservePrice
		c.ReservePrice = &reserve
	}
	if a.LastExtendedAt != nil {
		at := *a.LastExtendedAt
		c.LastExtendedAt = &at
	}
	return &c
}

func cloneBid(b *domain.Bid) *domain.Bid {
	c := *b
	if b.AutoBidMax != nil {
		max := *b.AutoBidMax
		c.AutoBidMax = &max
	}
	return &c
}

// memAuctionRepo stores auctions by value so every load observes the last
// saved state, like a row read would.
type memAuctionRepo struct {
	mu       sync.Mutex
	auctions map[uuid.UUID]*domain.Auction
}

func newMemAuctionRepo() *memAuctionRepo {
	return &memAuctionRepo{auctions: make(map[uuid.UUID]*domain.Auction)}
}

func (r *memAuctionRepo) put(a *domain.Auction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions[a.ID] = cloneAuction(a)
}

func (r *memAuctionRepo) get(id uuid.UUID) *domain.Auction {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.auctions[id]; ok {
		return cloneAuction(a)
	}
	return nil
}

func (r *memAuctionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	if a := r.get(id); a != nil {
		return a, nil
	}
	return nil, domain.ErrAuctionNotFound
}

func (r *memAuctionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Auction, error) {
	return r.GetByID(ctx, id)
}

func (r *memAuctionRepo) Save(ctx context.Context, tx pgx.Tx, auction *domain.Auction) error {
	saved := cloneAuction(auction)
	stageOrApply(tx, func() { r.put(saved) })
	return nil
}

func (r *memAuctionRepo) GetScheduledToActivate(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Auction
	for _, a := range r.auctions {
		if a.Status == domain.StatusScheduled && !a.StartTime.After(now) {
			out = append(out, cloneAuction(a))
		}
	}
	return out, nil
}

func (r *memAuctionRepo) GetActiveToEnd(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Auction
	for _, a := range r.auctions {
		if a.Status == domain.StatusActive && !a.EndTime.After(now) {
			out = append(out, cloneAuction(a))
		}
	}
	return out, nil
}

type memBidRepo struct {
	mu   sync.Mutex
	bids map[uuid.UUID][]*domain.Bid
}

func newMemBidRepo() *memBidRepo {
	return &memBidRepo{bids: make(map[uuid.UUID][]*domain.Bid)}
}

func (r *memBidRepo) Save(ctx context.Context, tx pgx.Tx, bid *domain.Bid) error {
	saved := cloneBid(bid)
	stageOrApply(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.bids[saved.AuctionID] = append(r.bids[saved.AuctionID], saved)
	})
	return nil
}

func (r *memBidRepo) MarkActiveOutbid(ctx context.Context, tx pgx.Tx, auctionID, exceptBidID uuid.UUID) error {
	stageOrApply(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for _, b := range r.bids[auctionID] {
			if b.ID != exceptBidID {
				b.MarkOutbid()
			}
		}
	})
	return nil
}

func (r *memBidRepo) GetActiveBid(ctx context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bids[auctionID] {
		if b.Status == domain.BidStatusActive {
			return cloneBid(b), nil
		}
	}
	return nil, nil
}

func (r *memBidRepo) GetBidsByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Bid, 0, len(r.bids[auctionID]))
	for _, b := range r.bids[auctionID] {
		out = append(out, cloneBid(b))
	}
	return out, nil
}

func (r *memBidRepo) activeCount(auctionID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, b := range r.bids[auctionID] {
		if b.Status == domain.BidStatusActive {
			count++
		}
	}
	return count
}

type memExtensionRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID][]*domain.ExtensionRecord
}

func newMemExtensionRepo() *memExtensionRepo {
	return &memExtensionRepo{records: make(map[uuid.UUID][]*domain.ExtensionRecord)}
}

func (r *memExtensionRepo) Append(ctx context.Context, tx pgx.Tx, record *domain.ExtensionRecord) error {
	copied := *record
	stageOrApply(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.records[copied.AuctionID] = append(r.records[copied.AuctionID], &copied)
	})
	return nil
}

func (r *memExtensionRepo) GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*domain.ExtensionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.ExtensionRecord, 0, len(r.records[auctionID]))
	for _, rec := range r.records[auctionID] {
		copied := *rec
		out = append(out, &copied)
	}
	return out, nil
}

// recordingPublisher captures deltas in publish order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event *domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) all() []*domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*domain.Event, len(p.events))
	copy(out, p.events)
	return out
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
