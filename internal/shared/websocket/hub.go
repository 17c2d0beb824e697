package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/cristianortiz/bidstream/internal/shared/logger"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Broadcast queue depth, deltas of one auction stay FIFO because the hub
	// drains the queue from a single goroutine.
	broadcastBuffer = 256
)

// Hub keeps the client registry grouped by auction topic and broadcasts
// ledger deltas to every subscriber of a topic in FIFO order.
type Hub struct {
	// Registered clients grouped by auction ID.
	clients map[string]map[*Client]bool

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client

	// InboundMessages is consumed by module-specific handlers (the auction
	// WS handler listens here).
	InboundMessages chan *ClientMessage
}

// Client represents one websocket subscription to an auction topic.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	// Buffered channel of outbound messages.
	Send chan []byte
	// The auction topic this client subscribed to.
	AuctionID string
	ID        string

	// mu guards closed. The hub closes Send when it drops a client, while
	// handler goroutines may be sending a personal ack at the same time, so
	// every send and the close must agree through TrySend/closeSend.
	mu     sync.Mutex
	closed bool
}

// TrySend queues data for the client unless its send channel is closed or
// full. Reports whether the frame was queued.
func (c *Client) TrySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel exactly once.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

type Message struct {
	AuctionID string
	Data      []byte
}

// ClientMessage wraps an inbound client frame for the module handlers.
type ClientMessage struct {
	Client *Client
	Data   []byte
}

func NewHub() *Hub {
	return &Hub{
		broadcast:       make(chan *Message, broadcastBuffer),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		clients:         make(map[string]map[*Client]bool),
		InboundMessages: make(chan *ClientMessage, broadcastBuffer),
	}
}

// Run starts the hub listening on its channels. All registry mutations and
// broadcasts happen on this single goroutine, per-topic delivery order follows
// publish order.
func (h *Hub) Run(ctx context.Context) {
	log.Info("WebSocket hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info("WebSocket hub shutting down")
			for _, clients := range h.clients {
				for client := range clients {
					client.closeSend()
				}
			}
			return

		case client := <-h.register:
			if _, ok := h.clients[client.AuctionID]; !ok {
				h.clients[client.AuctionID] = make(map[*Client]bool)
			}
			h.clients[client.AuctionID][client] = true
			log.Info("Client registered",
				zap.String("clientID", client.ID),
				zap.String("auctionID", client.AuctionID),
				zap.Int("topic_clients", len(h.clients[client.AuctionID])),
			)

		case client := <-h.unregister:
			if clients, ok := h.clients[client.AuctionID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					client.closeSend()
					log.Info("Client unregistered",
						zap.String("clientID", client.ID),
						zap.String("auctionID", client.AuctionID),
					)
					if len(clients) == 0 {
						delete(h.clients, client.AuctionID)
					}
				}
			}

		case message := <-h.broadcast:
			if clients, ok := h.clients[message.AuctionID]; ok {
				log.Debug("Broadcasting to auction topic",
					zap.String("auctionID", message.AuctionID),
					zap.Int("clients", len(clients)),
				)
				for client := range clients {
					if !client.TrySend(message.Data) {
						// client not draining, drop it
						client.closeSend()
						delete(clients, client)
						log.Warn("Client send queue full, unregistering",
							zap.String("clientID", client.ID),
							zap.String("auctionID", client.AuctionID),
						)
					}
				}
			}
		}
	}
}

// RegisterClient queues a client registration.
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	default:
		log.Error("Register channel full, closing client",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
		_ = client.Conn.Close()
	}
}

// UnregisterClient queues a client removal.
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	default:
		log.Error("Unregister channel full",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
	}
}

// BroadcastToAuction sends data to every subscriber of the auction topic.
func (h *Hub) BroadcastToAuction(auctionID string, data []byte) {
	select {
	case h.broadcast <- &Message{AuctionID: auctionID, Data: data}:
	default:
		log.Error("Broadcast channel full, message dropped",
			zap.String("auctionID", auctionID),
		)
	}
}

// ReadPump reads frames from the client and hands them to the hub's inbound
// channel. Runs as one goroutine per client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("WebSocket read error",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.Error(err),
				)
			}
			break
		}

		select {
		case c.Hub.InboundMessages <- &ClientMessage{Client: c, Data: message}:
		default:
			log.Error("Inbound channel full, dropping message",
				zap.String("clientID", c.ID),
				zap.String("auctionID", c.AuctionID),
			)
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection. One
// goroutine per client, the single writer to the connection.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return

		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error("Failed to write message to client",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
