package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/cristianortiz/bidstream/internal/auction/application"
	"github.com/cristianortiz/bidstream/internal/auction/domain"
	"github.com/cristianortiz/bidstream/internal/shared/logger"
	sharedws "github.com/cristianortiz/bidstream/internal/shared/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionWSHandler handles the inbound WS frames of the auction module and
// owns the subscription endpoint.
type AuctionWSHandler struct {
	auctionService application.AuctionService
	hub            *sharedws.Hub
}

func NewAuctionWSHandler(auctionService application.AuctionService, hub *sharedws.Hub) *AuctionWSHandler {
	return &AuctionWSHandler{
		auctionService: auctionService,
		hub:            hub,
	}
}

// UpgradeMiddleware rejects plain HTTP requests on the WS path.
func (h *AuctionWSHandler) UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// HandleConnection subscribes the connection to the auction topic in the
// path, sends the initial snapshot and starts the pumps.
func (h *AuctionWSHandler) HandleConnection(ctx context.Context) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		auctionID := conn.Params("auctionID")
		if _, err := uuid.Parse(auctionID); err != nil {
			_ = conn.Close()
			return
		}

		client := &sharedws.Client{
			Hub:       h.hub,
			Conn:      conn,
			Send:      make(chan []byte, 64),
			AuctionID: auctionID,
			ID:        uuid.New().String(),
		}
		h.hub.RegisterClient(client)
		h.sendInitialState(ctx, client)

		go client.WritePump(ctx)
		// keep the handler goroutine as the read pump, fiber owns the conn
		client.ReadPump(ctx)
	})
}

// ListenForMessages consumes the hub's inbound channel and dispatches every
// frame. Runs as a goroutine.
func (h *AuctionWSHandler) ListenForMessages(ctx context.Context) {
	log.Info("AuctionWSHandler listening for inbound messages")
	for {
		select {
		case <-ctx.Done():
			log.Info("AuctionWSHandler stopped")
			return
		case msg := <-h.hub.InboundMessages:
			go h.processMessage(ctx, msg.Client, msg.Data)
		}
	}
}

func (h *AuctionWSHandler) processMessage(ctx context.Context, client *sharedws.Client, data []byte) {
	var baseMsg BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		h.sendErrorToClient(client, "invalid message format")
		return
	}
	switch baseMsg.Type {
	case MessageTypeClientBid:
		h.handleClientBidMessage(ctx, client, data)
	default:
		h.sendErrorToClient(client, "unknown message type")
	}
}

func (h *AuctionWSHandler) handleClientBidMessage(ctx context.Context, client *sharedws.Client, data []byte) {
	var bidMsg ClientBidMessage
	if err := json.Unmarshal(data, &bidMsg); err != nil {
		h.sendErrorToClient(client, "invalid bid message format")
		return
	}

	if bidMsg.Payload.AuctionID.String() != client.AuctionID {
		h.sendErrorToClient(client, "auction ID mismatch")
		return
	}

	cmd := application.SubmitBidDTO{
		AuctionID:  bidMsg.Payload.AuctionID,
		BidderID:   bidMsg.Payload.BidderID,
		Amount:     bidMsg.Payload.Amount,
		IsAutoBid:  bidMsg.Payload.IsAutoBid,
		AutoBidMax: bidMsg.Payload.AutoBidMax,
	}

	result := ServerBidResultMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerBidResult},
	}

	bid, err := h.auctionService.SubmitBid(ctx, cmd)
	if err != nil {
		result.Payload.Accepted = false
		result.Payload.Error = err.Error()
		var tooLow *domain.BidTooLowError
		if errors.As(err, &tooLow) {
			minimum := tooLow.Minimum
			result.Payload.Minimum = &minimum
		}
	} else {
		bidID := bid.ID
		result.Payload.Accepted = true
		result.Payload.BidID = &bidID
	}

	// the accepted deltas reach every subscriber through the fan-out, only
	// the personal ack goes straight back to this client
	h.sendToClient(client, result)
}

func (h *AuctionWSHandler) sendInitialState(ctx context.Context, client *sharedws.Client) {
	auctionID, err := uuid.Parse(client.AuctionID)
	if err != nil {
		return
	}
	snapshot, err := h.auctionService.GetAuctionState(ctx, auctionID)
	if err != nil {
		h.sendErrorToClient(client, "failed to load auction state")
		return
	}
	h.sendToClient(client, NewServerInitialStateMessage(snapshot))
}

func (h *AuctionWSHandler) sendToClient(client *sharedws.Client, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("failed to marshal WS message", zap.Error(err))
		return
	}
	if !client.TrySend(data) {
		log.Warn("client send channel full or closed",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
	}
}

func (h *AuctionWSHandler) sendErrorToClient(client *sharedws.Client, errorMessage string) {
	errMsg := ServerErrorMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerError},
	}
	errMsg.Payload.Error = errorMessage
	h.sendToClient(client, errMsg)
}
