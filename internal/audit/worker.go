package audit

import "context"

// Sink receives audit events for out-of-process delivery (e.g. Kafka).
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Worker drains the publisher's fan-out channel into a sink. It keeps
// background delivery testable without wiring broker implementations into
// domain code.
type Worker struct {
	sink  Sink
	inbox <-chan Event
}

func NewWorker(sink Sink, inbox <-chan Event) *Worker {
	return &Worker{sink: sink, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Publish(ctx, event); err != nil {
				return err
			}
		}
	}
}
