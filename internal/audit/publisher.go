package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily. An optional
// sink (e.g. the Kafka producer) receives a copy of every event; sink
// failures are reported by the sink itself and never block the append.
type Publisher struct {
	store Store
	sink  chan<- Event
}

type PublisherOption func(*Publisher)

// WithSink attaches a channel that receives every emitted event, typically
// drained by the Kafka worker.
func WithSink(sink chan<- Event) PublisherOption {
	return func(p *Publisher) { p.sink = sink }
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.sink != nil {
		select {
		case p.sink <- event:
		default:
			// A full sink drops the fan-out copy; the store append above is
			// the durable record.
		}
	}
	return nil
}

func (p *Publisher) ListByCase(ctx context.Context, caseID uuid.UUID) ([]Event, error) {
	return p.store.ListByCase(ctx, caseID)
}
