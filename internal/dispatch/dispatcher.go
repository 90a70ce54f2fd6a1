// Package dispatch presents queued tickets to idle operators one offer at a
// time. A single mutable current-offer slot per operator enforces the
// single-flight guarantee; queue-head arrivals during an outstanding offer
// wait in a FIFO backlog.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/events"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/observability"
	apperrors "github.com/yhoroy12/lujo-crm-v2-sub000/pkg/util"
)

// Claimer routes an accepted offer into the assignment coordinator.
type Claimer interface {
	Claim(ctx context.Context, ticketID, operatorRef string, role domain.Role) (*domain.Ticket, error)
}

// Outcome is the terminal disposition of an offer.
type Outcome string

const (
	OutcomePending  Outcome = "pending"
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	OutcomeLost     Outcome = "lost"
)

// Candidate is a queue-head ticket eligible for offering.
type Candidate struct {
	TicketID      string
	Channel       domain.Channel
	ClientSummary string
}

// Offer is ephemeral and in-memory only: it exists from presentation until
// the operator decides, and is never persisted.
type Offer struct {
	TicketID      string
	OperatorRef   string
	Channel       domain.Channel
	ClientSummary string
	OfferedAt     time.Time
	Outcome       Outcome
}

// OperatorDispatcher serializes offers for one operator. There is no offer
// timeout: an undecided offer blocks the backlog until the operator acts.
type OperatorDispatcher struct {
	operatorRef string
	role        domain.Role
	settle      time.Duration
	claims      Claimer
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger

	mu       sync.Mutex
	current  *Offer
	backlog  []Candidate
	settling bool
	closed   bool
}

// NewOperatorDispatcher creates the per-operator dispatcher.
func NewOperatorDispatcher(operatorRef string, role domain.Role, settle time.Duration, claims Claimer, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) *OperatorDispatcher {
	return &OperatorDispatcher{
		operatorRef: operatorRef,
		role:        role,
		settle:      settle,
		claims:      claims,
		dispatcher:  dispatcher,
		metrics:     metrics,
		logger:      logger,
	}
}

// Enqueue registers a queue-head arrival. If the operator is idle the
// candidate is offered immediately; while an offer is outstanding (or the
// settle delay is running) it joins the FIFO backlog instead.
func (d *OperatorDispatcher) Enqueue(candidate Candidate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.isKnownLocked(candidate.TicketID) {
		return
	}
	if d.current != nil || d.settling {
		d.backlog = append(d.backlog, candidate)
		return
	}
	d.presentLocked(candidate)
}

// Current returns a copy of the outstanding offer, or nil when idle.
func (d *OperatorDispatcher) Current() *Offer {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return nil
	}
	copied := *d.current
	return &copied
}

// BacklogSize reports how many candidates wait behind the current offer.
func (d *OperatorDispatcher) BacklogSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.backlog)
}

// Accept resolves the current offer by claiming the ticket. A lost race is
// not a dispatcher fault: the offer is discarded silently and the backlog
// advances. Rejection of expected business failures never reaches the log
// as an error.
func (d *OperatorDispatcher) Accept(ctx context.Context) (*domain.Ticket, error) {
	d.mu.Lock()
	offer := d.current
	d.mu.Unlock()
	if offer == nil {
		return nil, apperrors.NewValidationError("no offer outstanding", nil)
	}

	ticket, err := d.claims.Claim(ctx, offer.TicketID, d.operatorRef, d.role)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeLostRace) || apperrors.HasCode(err, apperrors.CodeAlreadyClaimed) {
			d.logger.Debug("offer lost to concurrent claim", zap.String("ticket_id", offer.TicketID))
			d.resolve(offer, OutcomeLost)
			return nil, nil
		}
		// The claim failed for a non-race reason; the offer stays
		// outstanding so the operator can retry or reject.
		return nil, err
	}
	d.resolve(offer, OutcomeAccepted)
	return ticket, nil
}

// Reject resolves the current offer without any store mutation; the ticket
// stays QUEUED for the next candidate operator.
func (d *OperatorDispatcher) Reject() error {
	d.mu.Lock()
	offer := d.current
	d.mu.Unlock()
	if offer == nil {
		return apperrors.NewValidationError("no offer outstanding", nil)
	}
	d.resolve(offer, OutcomeRejected)
	return nil
}

// Close stops the dispatcher; pending backlog entries are dropped.
func (d *OperatorDispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.current = nil
	d.backlog = nil
}

// resolve finishes exactly the offer it was handed and schedules the next
// presentation after the settle delay, so consecutive offers are never shown
// back-to-back faster than an operator can react. Accept and Reject can race
// on the same slot; whichever loses finds a different (or no) current offer
// and must not resolve its successor.
func (d *OperatorDispatcher) resolve(offer *Offer, outcome Outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != offer {
		return
	}
	d.current.Outcome = outcome
	d.current = nil
	d.metrics.RecordOffer(string(outcome))
	d.emit(events.EventOfferResolved, events.OfferResolvedPayload{
		OperatorRef: d.operatorRef,
		Outcome:     string(outcome),
	})

	if len(d.backlog) == 0 || d.closed {
		return
	}
	d.settling = true
	time.AfterFunc(d.settle, d.presentNext)
}

func (d *OperatorDispatcher) presentNext() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settling = false
	if d.closed || d.current != nil || len(d.backlog) == 0 {
		return
	}
	next := d.backlog[0]
	d.backlog = d.backlog[1:]
	d.presentLocked(next)
}

func (d *OperatorDispatcher) presentLocked(candidate Candidate) {
	d.current = &Offer{
		TicketID:      candidate.TicketID,
		OperatorRef:   d.operatorRef,
		Channel:       candidate.Channel,
		ClientSummary: candidate.ClientSummary,
		OfferedAt:     time.Now(),
		Outcome:       OutcomePending,
	}
	d.metrics.RecordOffer("presented")
	d.emit(events.EventOfferPresented, events.OfferPresentedPayload{
		OperatorRef:   d.operatorRef,
		Channel:       candidate.Channel,
		ClientSummary: candidate.ClientSummary,
	})
}

func (d *OperatorDispatcher) isKnownLocked(ticketID string) bool {
	if d.current != nil && d.current.TicketID == ticketID {
		return true
	}
	for _, c := range d.backlog {
		if c.TicketID == ticketID {
			return true
		}
	}
	return false
}

func (d *OperatorDispatcher) emit(eventType events.EventType, payload any) {
	if d.dispatcher == nil {
		return
	}
	_ = d.dispatcher.Publish(context.Background(), events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     events.Actor{Ref: d.operatorRef, Role: d.role},
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
