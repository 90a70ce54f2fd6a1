package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/events"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/notify"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/observability"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/priority"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/repository"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/statemachine"
	apperrors "github.com/yhoroy12/lujo-crm-v2-sub000/pkg/util"
)

// AssignmentService is the only path allowed to mutate a ticket's status and
// assigned operator. Every mutation re-validates against the in-transaction
// snapshot; pre-flight reads are a latency optimization, not a guarantee.
type AssignmentService struct {
	states     *statemachine.StateMachine
	classifier *priority.Classifier
	tickets    repository.TicketRepository
	demands    repository.DemandRepository
	bus        notify.Bus
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	States     *statemachine.StateMachine
	Classifier *priority.Classifier
	TicketRepo repository.TicketRepository
	DemandRepo repository.DemandRepository
	Bus        notify.Bus
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		states:     deps.States,
		classifier: deps.Classifier,
		tickets:    deps.TicketRepo,
		demands:    deps.DemandRepo,
		bus:        deps.Bus,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// Claim atomically takes ownership of a queued ticket for an operator. At
// most one concurrent claim can win; losers get AlreadyClaimed or LostRace
// and must not assume partial success.
func (s *AssignmentService) Claim(ctx context.Context, ticketID, operatorRef string, role domain.Role) (*domain.Ticket, error) {
	if operatorRef == "" {
		return nil, apperrors.NewNotAuthenticated("operator required")
	}

	// Cheap pre-flight outside the transaction. Failures here return
	// without touching the store's write path.
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.AssignedOperatorRef != nil {
		return nil, apperrors.NewAlreadyClaimed(ticketID, *ticket.AssignedOperatorRef)
	}
	if err := s.states.ValidateTransition(ticket.Status, domain.TicketStatusAssigned, role, ""); err != nil {
		return nil, err
	}
	busy, err := s.tickets.ActiveByOperator(ctx, operatorRef, ticket.Channel)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if busy != nil {
		return nil, apperrors.NewValidationError("operator already holds an active ticket on this channel", map[string]any{
			"channel":          ticket.Channel,
			"active_ticket_id": busy.ID,
		})
	}

	claimed, err := s.tickets.Mutate(ctx, ticketID, func(current *domain.Ticket) (*repository.Mutation, error) {
		// The pre-flight may be stale: only this re-check decides.
		if current.AssignedOperatorRef != nil || current.Status != domain.TicketStatusQueued {
			return nil, apperrors.NewLostRace(ticketID)
		}
		if err := s.states.ValidateTransition(current.Status, domain.TicketStatusAssigned, role, ""); err != nil {
			return nil, err
		}
		return &repository.Mutation{
			Status:         domain.TicketStatusAssigned,
			AssignOperator: &operatorRef,
			Timeline: &domain.TimelineEntry{
				Event:       domain.TimelineEventClaimed,
				ActorRef:    operatorRef,
				Description: "claimed by operator",
			},
			Audit: &domain.AuditRecord{
				ActorRef:   operatorRef,
				ActorRole:  role,
				FromStatus: domain.TicketStatusQueued,
				ToStatus:   domain.TicketStatusAssigned,
			},
		}, nil
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeLostRace) {
			s.metrics.RecordClaim(false)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}

	s.metrics.RecordClaim(true)
	s.notifyTicket(ctx, claimed, notify.ChangeModified)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketClaimed,
		TicketID: claimed.ID,
		Actor:    events.Actor{Ref: operatorRef, Role: role},
		Payload: events.TicketClaimedPayload{
			OperatorRef: operatorRef,
			Channel:     claimed.Channel,
		},
	})
	return claimed, nil
}

// Transition applies a post-claim lifecycle move (identity verification,
// start of service, completion, requeue, cancel). The stored state is
// re-validated inside the same atomic unit used for claiming.
func (s *AssignmentService) Transition(ctx context.Context, ticketID string, from, to domain.TicketStatus, actorRef string, role domain.Role, justification string) (*domain.Ticket, error) {
	if actorRef == "" {
		return nil, apperrors.NewNotAuthenticated("actor required")
	}
	// Validation failures on input return before any store access.
	if err := s.states.ValidateTransition(from, to, role, justification); err != nil {
		return nil, err
	}

	updated, err := s.tickets.Mutate(ctx, ticketID, func(current *domain.Ticket) (*repository.Mutation, error) {
		stored, err := statemachine.CanonicalStatus(string(current.Status))
		if err != nil {
			return nil, err
		}
		expected, err := statemachine.CanonicalStatus(string(from))
		if err != nil {
			return nil, err
		}
		if stored != expected {
			return nil, apperrors.NewInvalidTransition(string(stored), string(to))
		}
		if err := s.states.ValidateTransition(stored, to, role, justification); err != nil {
			return nil, err
		}
		if role == domain.RoleOperator && stored.IsActive() && !current.OwnedBy(actorRef) {
			return nil, apperrors.NewRoleNotAllowed(string(role))
		}

		mutation := &repository.Mutation{
			Status: to,
			Timeline: &domain.TimelineEntry{
				Event:       domain.TimelineEventTransition,
				ActorRef:    actorRef,
				Description: string(stored) + " -> " + string(to),
			},
			Audit: &domain.AuditRecord{
				ActorRef:      actorRef,
				ActorRole:     role,
				FromStatus:    stored,
				ToStatus:      to,
				Justification: justification,
			},
		}
		// Ownership is held exactly while the status is active.
		if !to.IsActive() {
			mutation.ClearOperator = true
		}
		return mutation, nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}

	s.metrics.RecordTransition(string(from), string(to))
	s.notifyTicket(ctx, updated, notify.ChangeModified)
	if to == domain.TicketStatusQueued {
		_ = s.bus.PublishQueue(ctx, updated.Channel)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: updated.ID,
		Actor:    events.Actor{Ref: actorRef, Role: role},
		Payload: events.TicketStatusChangedPayload{
			OldStatus:     from,
			NewStatus:     to,
			Justification: justification,
		},
	})
	return updated, nil
}

// ForwardInput describes a cross-department escalation.
type ForwardInput struct {
	TicketID      string
	ActorRef      string
	Role          domain.Role
	Justification string
	Department    string
	AccountType   string
	IssueType     string
}

// Forward moves an in-service ticket to FORWARDED and creates the target
// department's escalation demand in the same atomic unit, scored by the
// classifier (higher score = more urgent).
func (s *AssignmentService) Forward(ctx context.Context, input ForwardInput) (*domain.Ticket, error) {
	if input.ActorRef == "" {
		return nil, apperrors.NewNotAuthenticated("actor required")
	}
	if err := s.states.ValidateTransition(domain.TicketStatusInService, domain.TicketStatusForwarded, input.Role, input.Justification); err != nil {
		return nil, err
	}

	updated, err := s.tickets.Mutate(ctx, input.TicketID, func(current *domain.Ticket) (*repository.Mutation, error) {
		stored, err := statemachine.CanonicalStatus(string(current.Status))
		if err != nil {
			return nil, err
		}
		if stored != domain.TicketStatusInService {
			return nil, apperrors.NewInvalidTransition(string(stored), string(domain.TicketStatusForwarded))
		}
		if input.Role == domain.RoleOperator && !current.OwnedBy(input.ActorRef) {
			return nil, apperrors.NewRoleNotAllowed(string(input.Role))
		}

		complexity := s.classifier.ComplexityOf(input.IssueType)
		score := s.classifier.Score(input.AccountType, current.ClassTier, complexity)

		return &repository.Mutation{
			Status:        domain.TicketStatusForwarded,
			ClearOperator: true,
			Score:         &score,
			Timeline: &domain.TimelineEntry{
				Event:       domain.TimelineEventTransition,
				ActorRef:    input.ActorRef,
				Description: "forwarded to " + input.Department,
			},
			Audit: &domain.AuditRecord{
				ActorRef:      input.ActorRef,
				ActorRole:     input.Role,
				FromStatus:    stored,
				ToStatus:      domain.TicketStatusForwarded,
				Justification: input.Justification,
			},
			NewDemand: &domain.Demand{
				ID:         uuid.NewString(),
				Department: input.Department,
				Score:      score,
				Reason:     input.Justification,
				Status:     domain.DemandStatusPending,
			},
		}, nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": input.TicketID})
		}
		return nil, err
	}

	s.metrics.RecordTransition(string(domain.TicketStatusInService), string(domain.TicketStatusForwarded))
	s.notifyTicket(ctx, updated, notify.ChangeModified)
	_ = s.bus.PublishEscalations(ctx, input.Department)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: updated.ID,
		Actor:    events.Actor{Ref: input.ActorRef, Role: input.Role},
		Payload: events.TicketStatusChangedPayload{
			OldStatus:     domain.TicketStatusInService,
			NewStatus:     domain.TicketStatusForwarded,
			Justification: input.Justification,
		},
	})
	return updated, nil
}

// TakeDemand claims a pending escalation demand: the forwarded ticket is
// re-assigned to the taking operator and the demand marked TAKEN in one
// atomic unit.
func (s *AssignmentService) TakeDemand(ctx context.Context, demandID, operatorRef string, role domain.Role) (*domain.Ticket, error) {
	if operatorRef == "" {
		return nil, apperrors.NewNotAuthenticated("operator required")
	}
	demand, err := s.demands.GetByID(ctx, demandID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("demand", map[string]any{"demand_id": demandID})
		}
		return nil, apperrors.MapError(err)
	}
	if demand.Status != domain.DemandStatusPending {
		return nil, apperrors.NewAlreadyClaimed(demand.TicketID, "")
	}

	taken, err := s.tickets.Mutate(ctx, demand.TicketID, func(current *domain.Ticket) (*repository.Mutation, error) {
		stored, err := statemachine.CanonicalStatus(string(current.Status))
		if err != nil {
			return nil, err
		}
		if stored != domain.TicketStatusForwarded || current.AssignedOperatorRef != nil {
			return nil, apperrors.NewLostRace(demand.TicketID)
		}
		if err := s.states.ValidateTransition(stored, domain.TicketStatusAssigned, role, ""); err != nil {
			return nil, err
		}
		return &repository.Mutation{
			Status:         domain.TicketStatusAssigned,
			AssignOperator: &operatorRef,
			TakeDemandID:   demandID,
			Timeline: &domain.TimelineEntry{
				Event:       domain.TimelineEventClaimed,
				ActorRef:    operatorRef,
				Description: "escalation taken by " + demand.Department,
			},
			Audit: &domain.AuditRecord{
				ActorRef:   operatorRef,
				ActorRole:  role,
				FromStatus: domain.TicketStatusForwarded,
				ToStatus:   domain.TicketStatusAssigned,
			},
		}, nil
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeLostRace) {
			s.metrics.RecordClaim(false)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewLostRace(demand.TicketID)
		}
		return nil, err
	}

	s.metrics.RecordClaim(true)
	s.notifyTicket(ctx, taken, notify.ChangeModified)
	_ = s.bus.PublishEscalations(ctx, demand.Department)
	return taken, nil
}

// WatchOwnership subscribes to the claimed ticket's change feed. If the
// document is deleted, reassigned to another operator, or reverts to the
// queue unassigned, onLost fires once with the reason and the subscription
// closes itself. The local holder must then release its session state.
func (s *AssignmentService) WatchOwnership(ctx context.Context, ticketID, operatorRef string, onLost func(reason string)) (*notify.Subscription, error) {
	// The bus may start delivering before SubscribeTicket returns; the
	// handler waits on ready before touching the subscription handle.
	ready := make(chan struct{})
	var sub *notify.Subscription
	created, err := s.bus.SubscribeTicket(ctx, ticketID, func(change notify.Change) {
		reason := ""
		if change.Kind == notify.ChangeRemoved {
			reason = "deleted"
		} else {
			current, err := s.tickets.GetByID(ctx, ticketID)
			switch {
			case errors.Is(err, pgx.ErrNoRows):
				reason = "deleted"
			case err != nil:
				s.logger.Warn("ownership re-check failed", zap.String("ticket_id", ticketID), zap.Error(err))
				return
			case current.AssignedOperatorRef != nil && *current.AssignedOperatorRef != operatorRef:
				reason = "reassigned"
			case current.Status == domain.TicketStatusQueued && current.AssignedOperatorRef == nil:
				reason = "requeued"
			}
		}
		if reason == "" {
			return
		}
		s.publishEvent(ctx, events.Event{
			Type:     events.EventOwnershipLost,
			TicketID: ticketID,
			Actor:    events.Actor{Ref: operatorRef, Role: domain.RoleSystem},
			Payload:  events.OwnershipLostPayload{OperatorRef: operatorRef, Reason: reason},
		})
		onLost(reason)
		<-ready
		sub.Close()
	})
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	sub = created
	close(ready)
	return sub, nil
}

func (s *AssignmentService) notifyTicket(ctx context.Context, ticket *domain.Ticket, kind notify.ChangeKind) {
	if err := s.bus.PublishTicket(ctx, ticket.ID, kind); err != nil {
		s.logger.Warn("ticket change publish failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

func (s *AssignmentService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	_ = s.dispatcher.Publish(ctx, event)
}
