package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// PressureLevel is the advisory bidding intensity over the trailing window.
// It never affects bid acceptance, displays and callers consume it.
type PressureLevel string

const (
	PressureLow     PressureLevel = "low"
	PressureMedium  PressureLevel = "medium"
	PressureHigh    PressureLevel = "high"
	PressureExtreme PressureLevel = "extreme"
)

// PressureWindow is the trailing window pressure is classified over.
const PressureWindow = 60 * time.Second

// ClassifyPressure buckets the accepted-bid timestamps that fall inside the
// strictly trailing window (now-60s, now] and returns the level plus the
// count behind it. Thresholds: 0-1 low, 2-3 medium, 4-7 high, 8+ extreme.
func ClassifyPressure(timestamps []time.Time, now time.Time) (PressureLevel, int) {
	cutoff := now.Add(-PressureWindow)
	count := 0
	for _, ts := range timestamps {
		if ts.After(cutoff) && !ts.After(now) {
			count++
		}
	}

	switch {
	case count >= 8:
		return PressureExtreme, count
	case count >= 4:
		return PressureHigh, count
	case count >= 2:
		return PressureMedium, count
	default:
		return PressureLow, count
	}
}

// pressureTracker keeps the recent accepted-bid timestamps for one auction.
// Stale samples are dropped on each classification, not retained.
type pressureTracker struct {
	mu      sync.Mutex
	samples []time.Time
}

func (t *pressureTracker) record(ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = append(t.samples, ts)
}

func (t *pressureTracker) classify(now time.Time) (PressureLevel, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-PressureWindow)
	kept := t.samples[:0]
	for _, ts := range t.samples {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	t.samples = kept

	return ClassifyPressure(t.samples, now)
}

// PressureBook tracks bidding pressure per auction. Ephemeral and derived,
// never persisted and never authoritative.
type PressureBook struct {
	mu       sync.RWMutex
	trackers map[uuid.UUID]*pressureTracker
}

func NewPressureBook() *PressureBook {
	return &PressureBook{trackers: make(map[uuid.UUID]*pressureTracker)}
}

// Record notes one accepted bid for the auction.
func (b *PressureBook) Record(auctionID uuid.UUID, ts time.Time) {
	b.mu.Lock()
	tracker, ok := b.trackers[auctionID]
	if !ok {
		tracker = &pressureTracker{}
		b.trackers[auctionID] = tracker
	}
	b.mu.Unlock()

	tracker.record(ts)
}

// Classify returns the current level and count for the auction.
func (b *PressureBook) Classify(auctionID uuid.UUID, now time.Time) (PressureLevel, int) {
	b.mu.RLock()
	tracker, ok := b.trackers[auctionID]
	b.mu.RUnlock()
	if !ok {
		return PressureLow, 0
	}
	return tracker.classify(now)
}

// Forget drops the tracker for an auction that no longer accepts bids.
func (b *PressureBook) Forget(auctionID uuid.UUID) {
	b.mu.Lock()
	delete(b.trackers, auctionID)
	b.mu.Unlock()
}
