package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-notify/internal/events"
	apperrors "github.com/spec-kit/ticket-notify/pkg/util"
)

func newLedgerFixture(t *testing.T, ticketIDs ...string) (*LedgerService, *fakeUpdateRepo, *SubscriptionService) {
	t.Helper()
	logger := zap.NewNop()
	bus := events.NewInMemoryDispatcher(logger)
	registry := NewSubscriptionService(SubscriptionDependencies{
		SubscriptionRepo: newFakeSubscriptionRepo(ticketIDs...),
		Dispatcher:       bus,
		Logger:           logger,
	})
	updateRepo := newFakeUpdateRepo(ticketIDs...)
	ledger := NewLedgerService(LedgerDependencies{
		UpdateRepo: updateRepo,
		Registry:   registry,
		Dispatcher: bus,
		Logger:     logger,
	}, 0)
	return ledger, updateRepo, registry
}

func TestAppendUpdateTruncatesContent(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	ledger := NewLedgerService(LedgerDependencies{
		UpdateRepo: newFakeUpdateRepo("TCK-1"),
		Dispatcher: events.NewInMemoryDispatcher(logger),
		Logger:     logger,
	}, 10)

	update, err := ledger.AppendUpdate(ctx, AppendUpdateInput{
		TicketID:     "TCK-1",
		Content:      strings.Repeat("x", 50),
		AuthorHandle: "alice",
		IsStaffReply: false,
	})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 10), update.Content)
}

func TestAppendUpdateTruncatesByRune(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	ledger := NewLedgerService(LedgerDependencies{
		UpdateRepo: newFakeUpdateRepo("TCK-1"),
		Dispatcher: events.NewInMemoryDispatcher(logger),
		Logger:     logger,
	}, 3)

	update, err := ledger.AppendUpdate(ctx, AppendUpdateInput{
		TicketID:     "TCK-1",
		Content:      "héllo",
		AuthorHandle: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "hél", update.Content)
}

func TestAppendUpdateUnknownTicket(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newLedgerFixture(t, "TCK-1")

	_, err := ledger.AppendUpdate(ctx, AppendUpdateInput{
		TicketID:     "TCK-404",
		Content:      "hello",
		AuthorHandle: "alice",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAppendUpdateImplicitlySubscribesStaffAuthor(t *testing.T) {
	ctx := context.Background()
	ledger, _, registry := newLedgerFixture(t, "TCK-1")

	_, err := ledger.AppendUpdate(ctx, AppendUpdateInput{
		TicketID:     "TCK-1",
		Content:      "looking into it",
		AuthorHandle: "alice",
		IsStaffReply: true,
	})
	require.NoError(t, err)

	subscribed, err := registry.IsSubscribed(ctx, "TCK-1", "alice")
	require.NoError(t, err)
	assert.True(t, subscribed)
}

func TestAppendUpdatePlayerReplyDoesNotSubscribe(t *testing.T) {
	ctx := context.Background()
	ledger, _, registry := newLedgerFixture(t, "TCK-1")

	_, err := ledger.AppendUpdate(ctx, AppendUpdateInput{
		TicketID:     "TCK-1",
		Content:      "still broken",
		AuthorHandle: "carol",
		IsStaffReply: false,
	})
	require.NoError(t, err)

	subscribed, err := registry.IsSubscribed(ctx, "TCK-1", "carol")
	require.NoError(t, err)
	assert.False(t, subscribed)
}

func TestListRecentUpdatesOrdering(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newLedgerFixture(t, "TCK-1")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Appended out of timestamp order; the second and third share a
	// timestamp so insertion order must break the tie.
	inputs := []AppendUpdateInput{
		{TicketID: "TCK-1", Content: "first", AuthorHandle: "alice", RepliedAt: base},
		{TicketID: "TCK-1", Content: "tie-a", AuthorHandle: "bob", RepliedAt: base.Add(time.Minute)},
		{TicketID: "TCK-1", Content: "tie-b", AuthorHandle: "carol", RepliedAt: base.Add(time.Minute)},
		{TicketID: "TCK-1", Content: "latest", AuthorHandle: "dave", RepliedAt: base.Add(2 * time.Minute)},
	}
	for _, input := range inputs {
		_, err := ledger.AppendUpdate(ctx, input)
		require.NoError(t, err)
	}

	updates, err := ledger.ListRecentUpdates(ctx, "TCK-1", 10, nil)
	require.NoError(t, err)
	require.Len(t, updates, 4)
	assert.Equal(t, "latest", updates[0].Content)
	assert.Equal(t, "tie-b", updates[1].Content)
	assert.Equal(t, "tie-a", updates[2].Content)
	assert.Equal(t, "first", updates[3].Content)
}

func TestListRecentUpdatesCursorIsStable(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newLedgerFixture(t, "TCK-1")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := ledger.AppendUpdate(ctx, AppendUpdateInput{
			TicketID:     "TCK-1",
			Content:      "reply",
			AuthorHandle: "alice",
			RepliedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	firstPage, err := ledger.ListRecentUpdates(ctx, "TCK-1", 2, nil)
	require.NoError(t, err)
	require.Len(t, firstPage, 2)

	cursor := firstPage[len(firstPage)-1].RepliedAt
	secondPage, err := ledger.ListRecentUpdates(ctx, "TCK-1", 2, &cursor)
	require.NoError(t, err)
	secondPageAgain, err := ledger.ListRecentUpdates(ctx, "TCK-1", 2, &cursor)
	require.NoError(t, err)
	assert.Equal(t, secondPage, secondPageAgain)

	for _, update := range secondPage {
		assert.True(t, update.RepliedAt.Before(cursor))
	}
}

func TestMarkReadIsMonotonicAndIdempotent(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newLedgerFixture(t, "TCK-1")

	update, err := ledger.AppendUpdate(ctx, AppendUpdateInput{
		TicketID:     "TCK-1",
		Content:      "hello",
		AuthorHandle: "carol",
	})
	require.NoError(t, err)

	require.NoError(t, ledger.MarkRead(ctx, update.ID, "alice"))
	require.NoError(t, ledger.MarkRead(ctx, update.ID, "alice"))
	require.NoError(t, ledger.MarkRead(ctx, update.ID, "bob"))

	stored, err := ledger.GetUpdate(ctx, update.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, stored.ReadBy)
}

func TestMarkReadUnknownUpdate(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newLedgerFixture(t, "TCK-1")

	err := ledger.MarkRead(ctx, "missing-update", "alice")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAppendUpdatePublishesReplyEvent(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	bus := events.NewInMemoryDispatcher(logger)

	var received []events.Event
	bus.Subscribe(events.EventReplyAdded, func(ctx context.Context, event events.Event) error {
		received = append(received, event)
		return nil
	})

	ledger := NewLedgerService(LedgerDependencies{
		UpdateRepo: newFakeUpdateRepo("TCK-1"),
		Dispatcher: bus,
		Logger:     logger,
	}, 0)

	update, err := ledger.AppendUpdate(ctx, AppendUpdateInput{
		TicketID:     "TCK-1",
		Content:      "hello",
		AuthorHandle: "carol",
	})
	require.NoError(t, err)

	require.Len(t, received, 1)
	payload, ok := received[0].Payload.(events.ReplyAddedPayload)
	require.True(t, ok)
	assert.Equal(t, update.ID, payload.Update.ID)
	assert.Equal(t, "TCK-1", received[0].TicketID)
}
