package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
)

func TestMemoryBusDeliversToMatchingTopic(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	var ticketChanges []Change
	sub, err := bus.SubscribeTicket(ctx, "t1", func(c Change) { ticketChanges = append(ticketChanges, c) })
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, bus.PublishTicket(ctx, "t1", ChangeModified))
	require.NoError(t, bus.PublishTicket(ctx, "t2", ChangeModified))
	require.NoError(t, bus.PublishQueue(ctx, domain.ChannelChat))

	require.Len(t, ticketChanges, 1)
	assert.Equal(t, ChangeModified, ticketChanges[0].Kind)
	assert.Equal(t, "t1", ticketChanges[0].Key)
}

func TestMemoryBusFansOutToAllSubscribers(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	first, second := 0, 0
	s1, err := bus.SubscribeQueue(ctx, domain.ChannelChat, func(Change) { first++ })
	require.NoError(t, err)
	defer s1.Close()
	s2, err := bus.SubscribeQueue(ctx, domain.ChannelChat, func(Change) { second++ })
	require.NoError(t, err)
	defer s2.Close()

	require.NoError(t, bus.PublishQueue(ctx, domain.ChannelChat))
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestSubscriptionCloseStopsDelivery(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	calls := 0
	sub, err := bus.SubscribeEscalations(ctx, "billing", func(Change) { calls++ })
	require.NoError(t, err)

	require.NoError(t, bus.PublishEscalations(ctx, "billing"))
	sub.Close()
	require.NoError(t, bus.PublishEscalations(ctx, "billing"))

	assert.Equal(t, 1, calls)

	// Close is idempotent and Done is signalled.
	sub.Close()
	select {
	case <-sub.Done():
	default:
		t.Fatal("done channel not closed")
	}
}
