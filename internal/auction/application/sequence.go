package application

import (
	"sync"

	"github.com/google/uuid"
)

// Sequencer hands out per-auction event sequence numbers. Numbers are assigned
// inside the auction's critical section so they follow commit order, gaps may
// appear when a commit fails after a number was taken, subscribers only rely
// on the strictly increasing property.
type Sequencer struct {
	mu   sync.Mutex
	next map[uuid.UUID]uint64
}

func NewSequencer() *Sequencer {
	return &Sequencer{next: make(map[uuid.UUID]uint64)}
}

// Next returns the next sequence number for the auction, starting at 1.
func (s *Sequencer) Next(auctionID uuid.UUID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next[auctionID]++
	return s.next[auctionID]
}
