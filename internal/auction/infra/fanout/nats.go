package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cristianortiz/bidstream/internal/auction/domain"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

const (
	archiveStreamName    = "AUCTION_EVENTS"
	archiveSubjectPrefix = "auction.events."
)

// JetStreamArchiver persists every ledger delta to a durable NATS JetStream
// stream for audit consumers, at-least-once delivery with per-subject order.
// The bid path never depends on archival, a slow stream delays nothing.
type JetStreamArchiver struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

func NewJetStreamArchiver(natsURL string) (*JetStreamArchiver, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        archiveStreamName,
		Description: "Durable archive of auction ledger deltas",
		Subjects:    []string{archiveSubjectPrefix + "*"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update stream: %w", err)
	}

	return &JetStreamArchiver{conn: conn, js: js}, nil
}

func (a *JetStreamArchiver) Publish(ctx context.Context, event *domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error("JetStreamArchiver: failed to marshal event",
			zap.String("auctionID", event.AuctionID.String()),
			zap.Error(err),
		)
		return
	}

	subject := archiveSubjectPrefix + event.AuctionID.String()
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := a.js.Publish(pubCtx, subject, data); err != nil {
		log.Error("JetStreamArchiver: failed to publish event",
			zap.String("subject", subject),
			zap.Uint64("sequence", event.Sequence),
			zap.Error(err),
		)
	}
}

func (a *JetStreamArchiver) Close() {
	a.conn.Close()
}
