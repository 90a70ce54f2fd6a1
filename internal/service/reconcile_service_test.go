package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/statemachine"
	apperrors "github.com/yhoroy12/lujo-crm-v2-sub000/pkg/util"
)

func newReconcileFixture() (*memoryStore, *memorySessionCache, *ReconcileService) {
	store := newMemoryStore()
	cache := newMemorySessionCache()
	svc := NewReconcileService(ReconcileDependencies{
		States:     statemachine.New(),
		TicketRepo: store,
		Cache:      cache,
		Logger:     zap.NewNop(),
	})
	return store, cache, svc
}

func seedTicket(t *testing.T, store *memoryStore, id string, status domain.TicketStatus, owner string) {
	t.Helper()
	ticket := &domain.Ticket{
		ID:        id,
		Status:    status,
		ClientRef: "client-1",
		Channel:   domain.ChannelChat,
		ClassTier: domain.TierNone,
	}
	if owner != "" {
		ticket.AssignedOperatorRef = &owner
	}
	require.NoError(t, store.Create(context.Background(), ticket))
}

func TestReconcileStoreWinsOverCache(t *testing.T) {
	store, cache, svc := newReconcileFixture()
	ctx := context.Background()
	seedTicket(t, store, "live", domain.TicketStatusInService, "op-1")
	// The cache points somewhere else entirely; the store query must win.
	require.NoError(t, cache.Save(ctx, "op-1", "stale"))

	ticket, err := svc.Reconcile(ctx, "op-1")
	require.NoError(t, err)
	require.NotNil(t, ticket)
	assert.Equal(t, "live", ticket.ID)

	cached, _ := cache.Load(ctx, "op-1")
	assert.Equal(t, "live", cached)
}

func TestReconcileCleanIdleStart(t *testing.T) {
	_, _, svc := newReconcileFixture()

	ticket, err := svc.Reconcile(context.Background(), "op-1")
	require.NoError(t, err)
	assert.Nil(t, ticket)
}

func TestReconcileCachedTicketStillActive(t *testing.T) {
	store, cache, svc := newReconcileFixture()
	ctx := context.Background()
	seedTicket(t, store, "t1", domain.TicketStatusIdentityVerified, "op-1")
	require.NoError(t, cache.Save(ctx, "op-1", "t1"))

	ticket, err := svc.Reconcile(ctx, "op-1")
	require.NoError(t, err)
	require.NotNil(t, ticket)
	assert.Equal(t, "t1", ticket.ID)
}

func TestReconcileDiscardsDeletedTicket(t *testing.T) {
	_, cache, svc := newReconcileFixture()
	ctx := context.Background()
	require.NoError(t, cache.Save(ctx, "op-1", "gone"))

	ticket, err := svc.Reconcile(ctx, "op-1")
	require.NoError(t, err)
	assert.Nil(t, ticket)

	cached, _ := cache.Load(ctx, "op-1")
	assert.Empty(t, cached)
}

func TestReconcileDiscardsReassignedTicket(t *testing.T) {
	store, cache, svc := newReconcileFixture()
	ctx := context.Background()
	seedTicket(t, store, "t1", domain.TicketStatusAssigned, "op-2")
	require.NoError(t, cache.Save(ctx, "op-1", "t1"))

	ticket, err := svc.Reconcile(ctx, "op-1")
	require.NoError(t, err)
	assert.Nil(t, ticket)

	cached, _ := cache.Load(ctx, "op-1")
	assert.Empty(t, cached)
}

func TestReconcileDiscardsFinishedTicket(t *testing.T) {
	store, cache, svc := newReconcileFixture()
	ctx := context.Background()
	// A completed ticket keeps no operator, but a stale cache may still
	// reference it.
	seedTicket(t, store, "t1", domain.TicketStatusCompleted, "")
	require.NoError(t, cache.Save(ctx, "op-1", "t1"))

	ticket, err := svc.Reconcile(ctx, "op-1")
	require.NoError(t, err)
	assert.Nil(t, ticket)

	cached, _ := cache.Load(ctx, "op-1")
	assert.Empty(t, cached)
}

func TestReconcileAcceptsLegacyStatusCasing(t *testing.T) {
	store, cache, svc := newReconcileFixture()
	ctx := context.Background()
	owner := "op-1"
	ticket := &domain.Ticket{
		ID:                  "t1",
		Status:              domain.TicketStatus("in_service"),
		ClientRef:           "client-1",
		AssignedOperatorRef: &owner,
		Channel:             domain.ChannelChat,
		ClassTier:           domain.TierGold,
	}
	require.NoError(t, store.Create(ctx, ticket))
	require.NoError(t, cache.Save(ctx, "op-1", "t1"))

	// The lowercase record does not satisfy the store's active index, so
	// resolution falls through to the cached id and canonicalization.
	resolved, err := svc.Reconcile(ctx, "op-1")
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "t1", resolved.ID)
}

func TestReconcileRequiresOperator(t *testing.T) {
	_, _, svc := newReconcileFixture()

	_, err := svc.Reconcile(context.Background(), "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotAuthenticated))
}
