package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPublishInvokesHandlersByType(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var claimed, changed int
	d.Subscribe(EventTicketClaimed, func(context.Context, Event) error {
		claimed++
		return nil
	})
	d.Subscribe(EventTicketStatusChanged, func(context.Context, Event) error {
		changed++
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketClaimed}))
	assert.Equal(t, 1, claimed)
	assert.Equal(t, 0, changed)
}

func TestPublishLogsHandlerFailureAndContinues(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewInMemoryDispatcher(zap.New(core))

	var reached bool
	d.Subscribe(EventOwnershipLost, func(context.Context, Event) error {
		return errors.New("listener down")
	})
	d.Subscribe(EventOwnershipLost, func(context.Context, Event) error {
		reached = true
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{ID: "evt-1", Type: EventOwnershipLost}))

	// The failure is surfaced in the log and the second handler still ran.
	assert.True(t, reached)
	entries := logs.FilterMessage("event handler failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "evt-1", entries[0].ContextMap()["event_id"])
}
