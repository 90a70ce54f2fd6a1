package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/events"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/notify"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/priority"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/repository"
	apperrors "github.com/yhoroy12/lujo-crm-v2-sub000/pkg/util"
)

// IntakeService creates tickets in the queue with their classification
// applied at creation time.
type IntakeService struct {
	classifier *priority.Classifier
	tickets    repository.TicketRepository
	timeline   repository.TimelineRepository
	bus        notify.Bus
	dispatcher events.Dispatcher
}

// IntakeDependencies bundles collaborators.
type IntakeDependencies struct {
	Classifier   *priority.Classifier
	TicketRepo   repository.TicketRepository
	TimelineRepo repository.TimelineRepository
	Bus          notify.Bus
	Dispatcher   events.Dispatcher
}

// NewIntakeService constructs the service.
func NewIntakeService(deps IntakeDependencies) *IntakeService {
	return &IntakeService{
		classifier: deps.Classifier,
		tickets:    deps.TicketRepo,
		timeline:   deps.TimelineRepo,
		bus:        deps.Bus,
		dispatcher: deps.Dispatcher,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	ClientRef     string
	ClientSummary string
	Channel       domain.Channel
}

// CreateTicket enqueues a new ticket for the client.
func (s *IntakeService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	clientRef := strings.TrimSpace(input.ClientRef)
	if clientRef == "" {
		return nil, apperrors.NewValidationError("client reference required", nil)
	}
	if input.Channel != domain.ChannelChat && input.Channel != domain.ChannelMail {
		return nil, apperrors.NewValidationError("unknown channel", map[string]any{"channel": input.Channel})
	}

	ticket := &domain.Ticket{
		ID:            uuid.NewString(),
		Status:        domain.TicketStatusQueued,
		ClientRef:     clientRef,
		ClientSummary: strings.TrimSpace(input.ClientSummary),
		Channel:       input.Channel,
		ClassTier:     s.classifier.Classify(clientRef),
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.timeline.Append(ctx, &domain.TimelineEntry{
		TicketID:    ticket.ID,
		Event:       domain.TimelineEventCreated,
		ActorRef:    clientRef,
		Description: "ticket created",
	}); err != nil {
		return nil, apperrors.MapError(err)
	}

	_ = s.bus.PublishTicket(ctx, ticket.ID, notify.ChangeAdded)
	_ = s.bus.PublishQueue(ctx, ticket.Channel)
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketCreated,
			TicketID:  ticket.ID,
			Actor:     events.Actor{Ref: clientRef, Role: domain.RoleSystem},
			Timestamp: time.Now(),
			Payload: events.TicketCreatedPayload{
				Channel:   ticket.Channel,
				ClassTier: ticket.ClassTier,
				ClientRef: clientRef,
			},
		})
	}
	return ticket, nil
}

// GetTicket fetches a ticket with its timeline.
func (s *IntakeService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, []domain.TimelineEntry, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	entries, err := s.timeline.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, entries, nil
}
