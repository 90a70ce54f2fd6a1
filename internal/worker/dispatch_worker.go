package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/dispatch"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/events"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/notify"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/service"
)

// StartDispatchWorker wires live queue changes into the offer registry:
// whenever a channel's queue head changes, the head candidate is offered to
// the operators online on that channel. Returned subscriptions are closed
// by the caller on shutdown.
func StartDispatchWorker(ctx context.Context, queues *service.QueueService, registry *dispatch.Registry, channels []domain.Channel, logger *zap.Logger) ([]*notify.Subscription, error) {
	subs := make([]*notify.Subscription, 0, len(channels))
	for _, channel := range channels {
		ch := channel
		sub, err := queues.WatchLiveQueue(ctx, ch, func(ordered []domain.Ticket) {
			if len(ordered) == 0 {
				return
			}
			head := ordered[0]
			registry.Offer(ch, dispatch.Candidate{
				TicketID:      head.ID,
				Channel:       head.Channel,
				ClientSummary: head.ClientSummary,
			})
		})
		if err != nil {
			for _, s := range subs {
				s.Close()
			}
			return nil, err
		}
		logger.Info("watching live queue", zap.String("channel", string(ch)))
		subs = append(subs, sub)
	}
	return subs, nil
}

// RegisterEventLoggers subscribes informational log handlers for the
// coordination events.
func RegisterEventLoggers(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}
	log := func(ctx context.Context, event events.Event) error {
		logger.Info(string(event.Type),
			zap.String("ticket_id", event.TicketID),
			zap.String("actor", event.Actor.Ref),
			zap.Any("payload", event.Payload))
		return nil
	}
	dispatcher.Subscribe(events.EventTicketCreated, log)
	dispatcher.Subscribe(events.EventTicketClaimed, log)
	dispatcher.Subscribe(events.EventTicketStatusChanged, log)
	dispatcher.Subscribe(events.EventOwnershipLost, log)
	dispatcher.Subscribe(events.EventOfferPresented, log)
	dispatcher.Subscribe(events.EventOfferResolved, log)
}
