package fanout

import (
	"context"

	"github.com/cristianortiz/bidstream/internal/auction/domain"
)

// Composite fans one delta out to several publishers in a fixed order,
// synchronously, so each downstream sees the per-auction FIFO the commit path
// produced.
type Composite struct {
	publishers []domain.EventPublisher
}

func NewComposite(publishers ...domain.EventPublisher) *Composite {
	return &Composite{publishers: publishers}
}

func (c *Composite) Publish(ctx context.Context, event *domain.Event) {
	for _, p := range c.publishers {
		p.Publish(ctx, event)
	}
}
