package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/events"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/notify"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/priority"
)

func newIntakeFixture(rules *priority.Rules) (*memoryStore, *IntakeService) {
	store := newMemoryStore()
	svc := NewIntakeService(IntakeDependencies{
		Classifier:   priority.NewClassifier(rules),
		TicketRepo:   store,
		TimelineRepo: memoryTimeline{store: store},
		Bus:          notify.NewMemoryBus(),
		Dispatcher:   events.NewInMemoryDispatcher(zap.NewNop()),
	})
	return store, svc
}

func TestCreateTicketEntersQueue(t *testing.T) {
	store, svc := newIntakeFixture(nil)

	ticket, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		ClientRef:     "client-1",
		ClientSummary: "cannot log in",
		Channel:       domain.ChannelChat,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.ID)
	assert.Equal(t, domain.TicketStatusQueued, ticket.Status)
	assert.Nil(t, ticket.AssignedOperatorRef)
	assert.Equal(t, domain.TierNone, ticket.ClassTier)

	entries := store.timelineFor(ticket.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.TimelineEventCreated, entries[0].Event)
}

func TestCreateTicketAppliesTierRules(t *testing.T) {
	rules := priority.DefaultRules()
	rules.DiamondClients = []string{"vip-client"}
	rules.GoldClients = []string{"partner-client"}
	_, svc := newIntakeFixture(rules)

	vip, err := svc.CreateTicket(context.Background(), TicketCreateInput{ClientRef: "vip-client", Channel: domain.ChannelMail})
	require.NoError(t, err)
	assert.Equal(t, domain.TierDiamond, vip.ClassTier)

	partner, err := svc.CreateTicket(context.Background(), TicketCreateInput{ClientRef: "partner-client", Channel: domain.ChannelMail})
	require.NoError(t, err)
	assert.Equal(t, domain.TierGold, partner.ClassTier)
}

func TestCreateTicketRejectsBadInput(t *testing.T) {
	_, svc := newIntakeFixture(nil)

	_, err := svc.CreateTicket(context.Background(), TicketCreateInput{ClientRef: "  ", Channel: domain.ChannelChat})
	assert.Error(t, err)

	_, err = svc.CreateTicket(context.Background(), TicketCreateInput{ClientRef: "client-1", Channel: domain.Channel("FAX")})
	assert.Error(t, err)
}

func TestGetTicketReturnsTimeline(t *testing.T) {
	_, svc := newIntakeFixture(nil)
	created, err := svc.CreateTicket(context.Background(), TicketCreateInput{ClientRef: "client-1", Channel: domain.ChannelChat})
	require.NoError(t, err)

	ticket, entries, err := svc.GetTicket(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, ticket.ID)
	assert.Len(t, entries, 1)
}
