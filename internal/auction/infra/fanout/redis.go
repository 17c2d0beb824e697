package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cristianortiz/bidstream/internal/auction/domain"
	wsinfra "github.com/cristianortiz/bidstream/internal/auction/infra/websocket"
	sharedws "github.com/cristianortiz/bidstream/internal/shared/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisChannelPrefix = "auction_events:"

// RedisPublisher mirrors ledger deltas onto Redis Pub/Sub, one channel per
// auction topic, so hubs on other nodes can serve the same subscribers.
// Publishing is synchronous per call, Redis preserves per-channel order for a
// single publisher, which the per-auction critical section guarantees.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(addr, password string, db int) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisPublisher{client: rdb}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, event *domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error("RedisPublisher: failed to marshal event",
			zap.String("auctionID", event.AuctionID.String()),
			zap.Error(err),
		)
		return
	}

	channel := redisChannelPrefix + event.AuctionID.String()
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		log.Error("RedisPublisher: failed to publish event",
			zap.String("channel", channel),
			zap.Error(err),
		)
	}
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// RedisBridge feeds deltas published by other nodes into the local hub. The
// local HubPublisher already covers locally committed deltas, so the bridge
// is only wired on nodes that accept subscribers for auctions committed
// elsewhere.
type RedisBridge struct {
	client *redis.Client
	hub    *sharedws.Hub
}

func NewRedisBridge(addr, password string, db int, hub *sharedws.Hub) (*RedisBridge, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisBridge{client: rdb, hub: hub}, nil
}

// Listen subscribes to every auction channel and relays payloads to the hub.
// Blocking, run as a goroutine.
func (b *RedisBridge) Listen(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, redisChannelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	log.Info("Redis bridge listening", zap.String("pattern", redisChannelPrefix+"*"))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			auctionID := strings.TrimPrefix(msg.Channel, redisChannelPrefix)

			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn("Redis bridge: failed to parse event",
					zap.String("channel", msg.Channel),
					zap.Error(err),
				)
				continue
			}
			frame, err := json.Marshal(wsinfra.NewServerEventMessage(&event))
			if err != nil {
				continue
			}
			b.hub.BroadcastToAuction(auctionID, frame)
		}
	}
}

func (b *RedisBridge) Close() error {
	return b.client.Close()
}
