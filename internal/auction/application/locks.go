package application

import (
	"sync"

	"github.com/google/uuid"
)

const lockShards = 32

// LockRegistry serializes writers per auction id. Contention is bursty (many
// bidders racing one deadline) and correctness needs true mutual exclusion per
// auction, while different auctions must never contend with each other, hence
// one mutex per auction id behind sharded bookkeeping.
type LockRegistry struct {
	shards [lockShards]lockShard
}

type lockShard struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewLockRegistry() *LockRegistry {
	r := &LockRegistry{}
	for i := range r.shards {
		r.shards[i].locks = make(map[uuid.UUID]*sync.Mutex)
	}
	return r
}

// Lock acquires the auction's mutex and returns the unlock function.
func (r *LockRegistry) Lock(auctionID uuid.UUID) func() {
	shard := &r.shards[auctionID[0]%lockShards]

	shard.mu.Lock()
	mu, ok := shard.locks[auctionID]
	if !ok {
		mu = &sync.Mutex{}
		shard.locks[auctionID] = mu
	}
	shard.mu.Unlock()

	mu.Lock()
	return mu.Unlock
}
