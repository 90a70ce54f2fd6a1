// Package notify is the push-based change notification fabric. Writers
// publish after their store transaction commits; watchers re-read the store
// on every delivery, so notifications are wake-ups, never data carriers.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
)

// ChangeKind mirrors the store's per-item change notification kinds.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// Change is delivered to subscribers on every matching publication.
type Change struct {
	Kind ChangeKind `json:"kind"`
	Key  string     `json:"key"`
	At   time.Time  `json:"at"`
}

// Handler consumes a change delivery. Handlers run on the subscription's
// receive goroutine and must not block for long.
type Handler func(Change)

// Bus publishes and subscribes to document change notifications.
type Bus interface {
	PublishTicket(ctx context.Context, ticketID string, kind ChangeKind) error
	PublishQueue(ctx context.Context, channel domain.Channel) error
	PublishEscalations(ctx context.Context, department string) error
	SubscribeTicket(ctx context.Context, ticketID string, fn Handler) (*Subscription, error)
	SubscribeQueue(ctx context.Context, channel domain.Channel, fn Handler) (*Subscription, error)
	SubscribeEscalations(ctx context.Context, department string, fn Handler) (*Subscription, error)
}

func ticketTopic(ticketID string) string {
	return "ticket:" + ticketID
}

func queueTopic(channel domain.Channel) string {
	return "queue:" + string(channel)
}

func escalationsTopic(department string) string {
	return "escalations:" + department
}

// RedisBus implements Bus over redis pub/sub.
type RedisBus struct {
	rdb *redis.Client
	log *zap.Logger
}

// NewRedisBus wraps the client.
func NewRedisBus(rdb *redis.Client, log *zap.Logger) *RedisBus {
	return &RedisBus{rdb: rdb, log: log}
}

func (b *RedisBus) publish(ctx context.Context, topic string, change Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, topic, data).Err(); err != nil {
		b.log.Warn("publish change failed", zap.String("topic", topic), zap.Error(err))
		return err
	}
	return nil
}

func (b *RedisBus) PublishTicket(ctx context.Context, ticketID string, kind ChangeKind) error {
	return b.publish(ctx, ticketTopic(ticketID), Change{Kind: kind, Key: ticketID, At: time.Now()})
}

func (b *RedisBus) PublishQueue(ctx context.Context, channel domain.Channel) error {
	return b.publish(ctx, queueTopic(channel), Change{Kind: ChangeModified, Key: string(channel), At: time.Now()})
}

func (b *RedisBus) PublishEscalations(ctx context.Context, department string) error {
	return b.publish(ctx, escalationsTopic(department), Change{Kind: ChangeModified, Key: department, At: time.Now()})
}

func (b *RedisBus) subscribe(ctx context.Context, topic string, fn Handler) (*Subscription, error) {
	pubsub := b.rdb.Subscribe(ctx, topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	sub := newSubscription(topic, func() {
		_ = pubsub.Close()
	})

	go func() {
		for msg := range pubsub.Channel() {
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				b.log.Warn("malformed change payload", zap.String("topic", topic), zap.Error(err))
				continue
			}
			fn(change)
		}
		sub.markDone()
	}()

	return sub, nil
}

func (b *RedisBus) SubscribeTicket(ctx context.Context, ticketID string, fn Handler) (*Subscription, error) {
	return b.subscribe(ctx, ticketTopic(ticketID), fn)
}

func (b *RedisBus) SubscribeQueue(ctx context.Context, channel domain.Channel, fn Handler) (*Subscription, error) {
	return b.subscribe(ctx, queueTopic(channel), fn)
}

func (b *RedisBus) SubscribeEscalations(ctx context.Context, department string, fn Handler) (*Subscription, error) {
	return b.subscribe(ctx, escalationsTopic(department), fn)
}
