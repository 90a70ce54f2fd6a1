package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/events"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/observability"
	apperrors "github.com/yhoroy12/lujo-crm-v2-sub000/pkg/util"
)

// fakeClaimer answers claims from a canned error, recording every attempt.
type fakeClaimer struct {
	mu      sync.Mutex
	err     error
	claimed []string
}

func (c *fakeClaimer) Claim(_ context.Context, ticketID, operatorRef string, _ domain.Role) (*domain.Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.claimed = append(c.claimed, ticketID)
	ref := operatorRef
	return &domain.Ticket{
		ID:                  ticketID,
		Status:              domain.TicketStatusAssigned,
		AssignedOperatorRef: &ref,
	}, nil
}

func (c *fakeClaimer) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

const testSettle = 10 * time.Millisecond

func newTestDispatcher(claims Claimer) *OperatorDispatcher {
	return NewOperatorDispatcher("op-1", domain.RoleOperator, testSettle, claims, events.NewInMemoryDispatcher(zap.NewNop()), observability.NewMetrics(), zap.NewNop())
}

func candidate(id string) Candidate {
	return Candidate{TicketID: id, Channel: domain.ChannelChat, ClientSummary: "summary " + id}
}

func TestEnqueuePresentsWhenIdle(t *testing.T) {
	d := newTestDispatcher(&fakeClaimer{})

	d.Enqueue(candidate("t1"))

	offer := d.Current()
	require.NotNil(t, offer)
	assert.Equal(t, "t1", offer.TicketID)
	assert.Equal(t, "op-1", offer.OperatorRef)
	assert.Equal(t, OutcomePending, offer.Outcome)
	assert.Equal(t, 0, d.BacklogSize())
}

func TestSecondArrivalWaitsBehindCurrentOffer(t *testing.T) {
	d := newTestDispatcher(&fakeClaimer{})

	d.Enqueue(candidate("t1"))
	d.Enqueue(candidate("t2"))
	d.Enqueue(candidate("t3"))

	require.NotNil(t, d.Current())
	assert.Equal(t, "t1", d.Current().TicketID)
	assert.Equal(t, 2, d.BacklogSize())
}

func TestEnqueueIgnoresDuplicates(t *testing.T) {
	d := newTestDispatcher(&fakeClaimer{})

	d.Enqueue(candidate("t1"))
	d.Enqueue(candidate("t1"))
	d.Enqueue(candidate("t2"))
	d.Enqueue(candidate("t2"))

	assert.Equal(t, 1, d.BacklogSize())
}

func TestAcceptClaimsAndAdvancesAfterSettle(t *testing.T) {
	claims := &fakeClaimer{}
	d := newTestDispatcher(claims)
	d.Enqueue(candidate("t1"))
	d.Enqueue(candidate("t2"))

	ticket, err := d.Accept(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ticket)
	assert.Equal(t, "t1", ticket.ID)

	// The next offer appears only after the settle delay.
	assert.Nil(t, d.Current())
	assert.Eventually(t, func() bool {
		offer := d.Current()
		return offer != nil && offer.TicketID == "t2"
	}, time.Second, time.Millisecond)
	assert.Equal(t, 0, d.BacklogSize())
}

func TestRejectLeavesTicketForOthers(t *testing.T) {
	claims := &fakeClaimer{}
	d := newTestDispatcher(claims)
	d.Enqueue(candidate("t1"))
	d.Enqueue(candidate("t2"))

	require.NoError(t, d.Reject())

	// No claim ever reached the store.
	claims.mu.Lock()
	assert.Empty(t, claims.claimed)
	claims.mu.Unlock()

	assert.Eventually(t, func() bool {
		offer := d.Current()
		return offer != nil && offer.TicketID == "t2"
	}, time.Second, time.Millisecond)
}

func TestLostRaceDiscardsOfferSilently(t *testing.T) {
	claims := &fakeClaimer{}
	claims.fail(apperrors.NewLostRace("t1"))
	d := newTestDispatcher(claims)
	d.Enqueue(candidate("t1"))
	d.Enqueue(candidate("t2"))

	ticket, err := d.Accept(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, ticket)

	claims.fail(nil)
	assert.Eventually(t, func() bool {
		offer := d.Current()
		return offer != nil && offer.TicketID == "t2"
	}, time.Second, time.Millisecond)
}

func TestAcceptFailureKeepsOfferOutstanding(t *testing.T) {
	claims := &fakeClaimer{}
	claims.fail(errors.New("store down"))
	d := newTestDispatcher(claims)
	d.Enqueue(candidate("t1"))

	_, err := d.Accept(context.Background())
	require.Error(t, err)

	// The operator can retry the same offer once the store recovers.
	offer := d.Current()
	require.NotNil(t, offer)
	assert.Equal(t, "t1", offer.TicketID)

	claims.fail(nil)
	ticket, err := d.Accept(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t1", ticket.ID)
}

func TestAcceptWithoutOffer(t *testing.T) {
	d := newTestDispatcher(&fakeClaimer{})

	_, err := d.Accept(context.Background())
	assert.Error(t, err)
	assert.Error(t, d.Reject())
}

func TestBacklogDrainsInArrivalOrder(t *testing.T) {
	claims := &fakeClaimer{}
	d := newTestDispatcher(claims)
	for _, id := range []string{"t1", "t2", "t3", "t4"} {
		d.Enqueue(candidate(id))
	}

	var order []string
	for i := 0; i < 4; i++ {
		require.Eventually(t, func() bool { return d.Current() != nil }, time.Second, time.Millisecond)
		order = append(order, d.Current().TicketID)
		require.NoError(t, d.Reject())
	}

	assert.Equal(t, []string{"t1", "t2", "t3", "t4"}, order)
}

// blockingClaimer parks every claim until released, so a decision can land
// while another is still in flight.
type blockingClaimer struct {
	entered chan struct{}
	release chan struct{}
}

func (c *blockingClaimer) Claim(_ context.Context, ticketID, operatorRef string, _ domain.Role) (*domain.Ticket, error) {
	c.entered <- struct{}{}
	<-c.release
	ref := operatorRef
	return &domain.Ticket{
		ID:                  ticketID,
		Status:              domain.TicketStatusAssigned,
		AssignedOperatorRef: &ref,
	}, nil
}

func TestConcurrentRejectDoesNotConsumeSuccessorOffer(t *testing.T) {
	claims := &blockingClaimer{entered: make(chan struct{}), release: make(chan struct{})}
	d := newTestDispatcher(claims)
	d.Enqueue(candidate("t1"))
	d.Enqueue(candidate("t2"))

	accepted := make(chan error, 1)
	go func() {
		_, err := d.Accept(context.Background())
		accepted <- err
	}()

	// The reject lands while the accept's claim is still in flight, so the
	// next candidate is already presented when the claim finishes.
	<-claims.entered
	require.NoError(t, d.Reject())
	require.Eventually(t, func() bool {
		offer := d.Current()
		return offer != nil && offer.TicketID == "t2"
	}, time.Second, time.Millisecond)

	close(claims.release)
	require.NoError(t, <-accepted)

	offer := d.Current()
	require.NotNil(t, offer)
	assert.Equal(t, "t2", offer.TicketID)
	assert.Equal(t, OutcomePending, offer.Outcome)
}

func TestCloseDropsPendingWork(t *testing.T) {
	d := newTestDispatcher(&fakeClaimer{})
	d.Enqueue(candidate("t1"))
	d.Enqueue(candidate("t2"))

	d.Close()

	assert.Nil(t, d.Current())
	assert.Equal(t, 0, d.BacklogSize())
	d.Enqueue(candidate("t3"))
	assert.Nil(t, d.Current())
}

func TestRegistryFansOutByChannel(t *testing.T) {
	r := NewRegistry(testSettle, &fakeClaimer{}, events.NewInMemoryDispatcher(zap.NewNop()), observability.NewMetrics(), zap.NewNop())
	chat1 := r.Register("op-1", domain.RoleOperator, domain.ChannelChat)
	chat2 := r.Register("op-2", domain.RoleOperator, domain.ChannelChat)
	mail := r.Register("op-3", domain.RoleOperator, domain.ChannelMail)

	r.Offer(domain.ChannelChat, candidate("t1"))

	require.NotNil(t, chat1.Current())
	require.NotNil(t, chat2.Current())
	assert.Nil(t, mail.Current())
}

func TestRegistryReusesDispatcherForSameChannel(t *testing.T) {
	r := NewRegistry(testSettle, &fakeClaimer{}, events.NewInMemoryDispatcher(zap.NewNop()), observability.NewMetrics(), zap.NewNop())
	first := r.Register("op-1", domain.RoleOperator, domain.ChannelChat)
	second := r.Register("op-1", domain.RoleOperator, domain.ChannelChat)
	assert.Same(t, first, second)

	// Switching channels replaces the dispatcher and drops its offers.
	first.Enqueue(candidate("t1"))
	third := r.Register("op-1", domain.RoleOperator, domain.ChannelMail)
	assert.NotSame(t, first, third)
	assert.Nil(t, first.Current())
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry(testSettle, &fakeClaimer{}, events.NewInMemoryDispatcher(zap.NewNop()), observability.NewMetrics(), zap.NewNop())
	d := r.Register("op-1", domain.RoleOperator, domain.ChannelChat)
	d.Enqueue(candidate("t1"))

	r.Unregister("op-1")

	assert.Nil(t, r.Get("op-1"))
	assert.Nil(t, d.Current())
}
