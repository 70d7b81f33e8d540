package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_Emit(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	caseID := uuid.New()

	t.Run("fills ID and timestamp", func(t *testing.T) {
		err := pub.Emit(ctx, Event{CaseID: caseID, Type: EventCreated, Description: "case created"})
		require.NoError(t, err)

		events, err := store.ListByCase(ctx, caseID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.NotEqual(t, uuid.Nil, events[0].ID)
		assert.False(t, events[0].Timestamp.IsZero())
	})

	t.Run("fans out to sink without blocking", func(t *testing.T) {
		sink := make(chan Event, 1)
		pub := NewPublisher(store, WithSink(sink))

		require.NoError(t, pub.Emit(ctx, Event{CaseID: caseID, Type: EventRerun}))
		require.NoError(t, pub.Emit(ctx, Event{CaseID: caseID, Type: EventRerun}))
		// Second emit finds the sink full and must not block or fail.

		got := <-sink
		assert.Equal(t, EventRerun, got.Type)
	})
}

func TestInMemoryStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	caseID := uuid.New()
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, Event{ID: uuid.New(), CaseID: caseID, Type: EventCreated, Timestamp: base}))
	require.NoError(t, store.Append(ctx, Event{ID: uuid.New(), CaseID: caseID, Type: EventReviewed, Timestamp: base.Add(time.Hour)}))

	events, err := store.ListByCase(ctx, caseID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventReviewed, events[0].Type, "canonical order is timestamp descending")
}

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureSink) Publish(_ context.Context, event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureSink) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestWorker_DrainsInbox(t *testing.T) {
	inbox := make(chan Event, 2)
	sink := &captureSink{}
	worker := NewWorker(sink, inbox)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	inbox <- Event{Type: EventCreated}
	inbox <- Event{Type: EventRerun}

	assert.Eventually(t, func() bool { return sink.len() == 2 }, time.Second, 10*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
