package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-notify/internal/events"
	apperrors "github.com/spec-kit/ticket-notify/pkg/util"
)

func newRegistry(t *testing.T, repo *fakeSubscriptionRepo) *SubscriptionService {
	t.Helper()
	logger := zap.NewNop()
	return NewSubscriptionService(SubscriptionDependencies{
		SubscriptionRepo: repo,
		Dispatcher:       events.NewInMemoryDispatcher(logger),
		Logger:           logger,
	})
}

func TestSubscribeUnsubscribeRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSubscriptionRepo("TCK-1")
	registry := newRegistry(t, repo)

	require.NoError(t, registry.Subscribe(ctx, "TCK-1", "alice"))
	subscribed, err := registry.IsSubscribed(ctx, "TCK-1", "alice")
	require.NoError(t, err)
	assert.True(t, subscribed)

	require.NoError(t, registry.Unsubscribe(ctx, "TCK-1", "alice"))
	subscribed, err = registry.IsSubscribed(ctx, "TCK-1", "alice")
	require.NoError(t, err)
	assert.False(t, subscribed)

	require.NoError(t, registry.Subscribe(ctx, "TCK-1", "alice"))
	subscribed, err = registry.IsSubscribed(ctx, "TCK-1", "alice")
	require.NoError(t, err)
	assert.True(t, subscribed)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSubscriptionRepo("TCK-1")
	registry := newRegistry(t, repo)

	require.NoError(t, registry.Subscribe(ctx, "TCK-1", "alice"))
	require.NoError(t, registry.Subscribe(ctx, "TCK-1", "alice"))

	handles, err := registry.ListActiveSubscribers(ctx, "TCK-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, handles)
}

func TestSubscribeRetriesOnceOnConflict(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSubscriptionRepo("TCK-1")
	repo.conflictsLeft = 1
	registry := newRegistry(t, repo)

	require.NoError(t, registry.Subscribe(ctx, "TCK-1", "alice"))
	assert.Equal(t, 2, repo.activateCalls)

	subscribed, err := registry.IsSubscribed(ctx, "TCK-1", "alice")
	require.NoError(t, err)
	assert.True(t, subscribed)
}

func TestSubscribeConflictNotRetriedTwice(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSubscriptionRepo("TCK-1")
	repo.conflictsLeft = 2
	registry := newRegistry(t, repo)

	err := registry.Subscribe(ctx, "TCK-1", "alice")
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Equal(t, 2, repo.activateCalls)
}

func TestSubscribeUnknownTicketFails(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t, newFakeSubscriptionRepo("TCK-1"))

	err := registry.Subscribe(ctx, "TCK-404", "alice")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUnsubscribeAbsentIsNoOp(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t, newFakeSubscriptionRepo("TCK-1"))

	require.NoError(t, registry.Unsubscribe(ctx, "TCK-1", "nobody"))

	subscribed, err := registry.IsSubscribed(ctx, "TCK-1", "nobody")
	require.NoError(t, err)
	assert.False(t, subscribed)
}

func TestListActiveSubscribersExcludesInactive(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t, newFakeSubscriptionRepo("TCK-1"))

	require.NoError(t, registry.Subscribe(ctx, "TCK-1", "alice"))
	require.NoError(t, registry.Subscribe(ctx, "TCK-1", "bob"))
	require.NoError(t, registry.Unsubscribe(ctx, "TCK-1", "bob"))

	handles, err := registry.ListActiveSubscribers(ctx, "TCK-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, handles)
}

func TestSubscribeRequiresHandle(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t, newFakeSubscriptionRepo("TCK-1"))

	err := registry.Subscribe(ctx, "TCK-1", "  ")
	require.Error(t, err)
}
