package websocket

import (
	"github.com/cristianortiz/bidstream/internal/auction/application"
	"github.com/cristianortiz/bidstream/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MessageType identifies a websocket frame
type MessageType string

const (
	MessageTypeClientBid          MessageType = "client_bid"           // client frame submitting a bid
	MessageTypeServerEvent        MessageType = "server_event"         // server frame carrying a ledger delta
	MessageTypeServerBidResult    MessageType = "server_bid_result"    // server frame acking this client's bid
	MessageTypeServerError        MessageType = "server_error"         // server frame indicating an error
	MessageTypeServerInitialState MessageType = "server_initial_state" // server frame with the auction snapshot on join
)

// BaseMessage is the base struct of every WS frame, Type drives dispatch.
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// ClientBidMessage is the DTO of a bid submitted over the socket.
type ClientBidMessage struct {
	BaseMessage
	Payload struct {
		AuctionID  uuid.UUID        `json:"auction_id"`
		BidderID   uuid.UUID        `json:"bidder_id"`
		Amount     decimal.Decimal  `json:"amount"`
		IsAutoBid  bool             `json:"is_auto_bid,omitempty"`
		AutoBidMax *decimal.Decimal `json:"auto_bid_max,omitempty"`
	} `json:"payload"`
}

// ServerEventMessage wraps one ledger delta for subscribers of the topic.
type ServerEventMessage struct {
	BaseMessage
	Payload *domain.Event `json:"payload"`
}

func NewServerEventMessage(event *domain.Event) *ServerEventMessage {
	return &ServerEventMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerEvent},
		Payload:     event,
	}
}

// ServerBidResultMessage acks a bid back to the submitting client only.
type ServerBidResultMessage struct {
	BaseMessage
	Payload struct {
		Accepted bool             `json:"accepted"`
		BidID    *uuid.UUID       `json:"bid_id,omitempty"`
		Error    string           `json:"error,omitempty"`
		Minimum  *decimal.Decimal `json:"minimum,omitempty"`
	} `json:"payload"`
}

type ServerErrorMessage struct {
	BaseMessage
	Payload struct {
		Error string `json:"error"`
	} `json:"payload"`
}

// ServerInitialStateMessage carries the auction snapshot sent on join.
type ServerInitialStateMessage struct {
	BaseMessage
	Payload *application.AuctionSnapshot `json:"payload"`
}

func NewServerInitialStateMessage(snapshot *application.AuctionSnapshot) *ServerInitialStateMessage {
	return &ServerInitialStateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerInitialState},
		Payload:     snapshot,
	}
}
