package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-notify/internal/domain"
)

func TestPublishInvokesSubscribedHandlers(t *testing.T) {
	bus := NewInMemoryDispatcher(zap.NewNop())

	var seen []Event
	bus.Subscribe(EventReplyAdded, func(ctx context.Context, e Event) error {
		seen = append(seen, e)
		return nil
	})
	bus.Subscribe(EventSubscriberAdded, func(ctx context.Context, e Event) error {
		t.Fatal("handler for unrelated event type invoked")
		return nil
	})

	event := Event{
		Type:     EventReplyAdded,
		TicketID: "TCK-1",
		Actor:    Actor{Type: domain.SubjectTypePlayer, Handle: "carol"},
	}
	require.NoError(t, bus.Publish(context.Background(), event))

	require.Len(t, seen, 1)
	assert.Equal(t, "TCK-1", seen[0].TicketID)
	assert.Equal(t, "carol", seen[0].Actor.Handle)
}

func TestPublishSwallowsHandlerErrors(t *testing.T) {
	bus := NewInMemoryDispatcher(zap.NewNop())

	calls := 0
	bus.Subscribe(EventReplyAdded, func(ctx context.Context, e Event) error {
		calls++
		return errors.New("handler exploded")
	})
	bus.Subscribe(EventReplyAdded, func(ctx context.Context, e Event) error {
		calls++
		return nil
	})

	// A failing handler neither fails the publish nor blocks later
	// handlers.
	require.NoError(t, bus.Publish(context.Background(), Event{Type: EventReplyAdded, TicketID: "TCK-1"}))
	assert.Equal(t, 2, calls)
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewInMemoryDispatcher(zap.NewNop())
	require.NoError(t, bus.Publish(context.Background(), Event{Type: EventSubscriberRemoved, TicketID: "TCK-1"}))
}
