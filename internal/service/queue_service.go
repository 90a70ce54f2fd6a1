package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/events"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/notify"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/repository"
	apperrors "github.com/yhoroy12/lujo-crm-v2-sub000/pkg/util"
)

// QueueService exposes the ordered live queue per channel and the ordered
// escalation backlog per department, re-sorting every snapshot locally
// because push deliveries can arrive transiently mis-ordered during fan-out.
type QueueService struct {
	tickets    repository.TicketRepository
	demands    repository.DemandRepository
	bus        notify.Bus
	dispatcher events.Dispatcher
	logger     *zap.Logger
	window     int
}

// QueueDependencies bundles collaborators.
type QueueDependencies struct {
	TicketRepo repository.TicketRepository
	DemandRepo repository.DemandRepository
	Bus        notify.Bus
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	WindowSize int
}

// NewQueueService constructs the service.
func NewQueueService(deps QueueDependencies) *QueueService {
	window := deps.WindowSize
	if window <= 0 {
		window = 50
	}
	return &QueueService{
		tickets:    deps.TicketRepo,
		demands:    deps.DemandRepo,
		bus:        deps.Bus,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		window:     window,
	}
}

// LiveQueue returns the pending tickets for a channel ordered by class tier
// weight ascending, then arrival time ascending.
func (s *QueueService) LiveQueue(ctx context.Context, channel domain.Channel) ([]domain.Ticket, error) {
	snapshot, err := s.tickets.ListQueued(ctx, channel, s.window)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	SortLiveQueue(snapshot)
	return snapshot, nil
}

// EscalationQueue returns the pending demands for a department ordered by
// score descending, then arrival time ascending.
func (s *QueueService) EscalationQueue(ctx context.Context, department string) ([]domain.Demand, error) {
	snapshot, err := s.demands.ListPending(ctx, department, s.window)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	SortEscalationQueue(snapshot)
	return snapshot, nil
}

// WatchLiveQueue subscribes to queue membership changes on a channel. Each
// delivery re-reads and re-sorts the snapshot before invoking fn; a
// queue_changed event is emitted alongside for UI rendering.
func (s *QueueService) WatchLiveQueue(ctx context.Context, channel domain.Channel, fn func([]domain.Ticket)) (*notify.Subscription, error) {
	sub, err := s.bus.SubscribeQueue(ctx, channel, func(notify.Change) {
		ordered, err := s.LiveQueue(ctx, channel)
		if err != nil {
			s.logger.Warn("live queue refresh failed", zap.String("channel", string(channel)), zap.Error(err))
			return
		}
		s.emitQueueChanged(ctx, channel, "", len(ordered), headTicketID(ordered))
		fn(ordered)
	})
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return sub, nil
}

// WatchEscalationQueue subscribes to backlog changes for a department.
func (s *QueueService) WatchEscalationQueue(ctx context.Context, department string, fn func([]domain.Demand)) (*notify.Subscription, error) {
	sub, err := s.bus.SubscribeEscalations(ctx, department, func(notify.Change) {
		ordered, err := s.EscalationQueue(ctx, department)
		if err != nil {
			s.logger.Warn("escalation queue refresh failed", zap.String("department", department), zap.Error(err))
			return
		}
		head := ""
		if len(ordered) > 0 {
			head = ordered[0].ID
		}
		s.emitQueueChanged(ctx, "", department, len(ordered), head)
		fn(ordered)
	})
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return sub, nil
}

func (s *QueueService) emitQueueChanged(ctx context.Context, channel domain.Channel, department string, size int, headID string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventQueueChanged,
		Timestamp: time.Now(),
		Payload: events.QueueChangedPayload{
			Channel:    channel,
			Department: department,
			Size:       size,
			HeadID:     headID,
		},
	})
}

func headTicketID(tickets []domain.Ticket) string {
	if len(tickets) == 0 {
		return ""
	}
	return tickets[0].ID
}

// SortLiveQueue orders tickets by (tier weight asc, createdAt asc). Applied
// to every received snapshot rather than trusting arrival order.
func SortLiveQueue(tickets []domain.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		wi, wj := tickets[i].ClassTier.Weight(), tickets[j].ClassTier.Weight()
		if wi != wj {
			return wi < wj
		}
		return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
	})
}

// SortEscalationQueue orders demands by (score desc, createdAt asc), the
// deliberate inverse of the live queue's weight convention.
func SortEscalationQueue(demands []domain.Demand) {
	sort.SliceStable(demands, func(i, j int) bool {
		if demands[i].Score != demands[j].Score {
			return demands[i].Score > demands[j].Score
		}
		return demands[i].CreatedAt.Before(demands[j].CreatedAt)
	})
}
