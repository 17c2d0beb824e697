package fanout

import (
	"context"
	"encoding/json"

	"github.com/cristianortiz/bidstream/internal/auction/domain"
	wsinfra "github.com/cristianortiz/bidstream/internal/auction/infra/websocket"
	"github.com/cristianortiz/bidstream/internal/shared/logger"
	sharedws "github.com/cristianortiz/bidstream/internal/shared/websocket"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// HubPublisher delivers ledger deltas to the local websocket hub. Publish
// enqueues in call order and the hub drains from a single goroutine, so
// per-auction FIFO is preserved for every subscriber of this node.
type HubPublisher struct {
	hub *sharedws.Hub
}

func NewHubPublisher(hub *sharedws.Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(ctx context.Context, event *domain.Event) {
	data, err := json.Marshal(wsinfra.NewServerEventMessage(event))
	if err != nil {
		log.Error("HubPublisher: failed to marshal event",
			zap.String("auctionID", event.AuctionID.String()),
			zap.Error(err),
		)
		return
	}
	p.hub.BroadcastToAuction(event.AuctionID.String(), data)
}
