package notify

import (
	"context"
	"sync"
	"time"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
)

// MemoryBus is an in-process Bus used in tests and in single-node setups
// where redis is not configured.
type MemoryBus struct {
	mu        sync.RWMutex
	listeners map[string]map[int]Handler
	nextID    int
}

// NewMemoryBus creates the bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{listeners: make(map[string]map[int]Handler)}
}

func (b *MemoryBus) publish(topic string, change Change) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.listeners[topic]))
	for _, fn := range b.listeners[topic] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(change)
	}
	return nil
}

func (b *MemoryBus) subscribe(topic string, fn Handler) (*Subscription, error) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.listeners[topic] == nil {
		b.listeners[topic] = make(map[int]Handler)
	}
	b.listeners[topic][id] = fn
	b.mu.Unlock()

	sub := newSubscription(topic, func() {
		b.mu.Lock()
		delete(b.listeners[topic], id)
		b.mu.Unlock()
	})
	// No receive goroutine to wait for.
	sub.markDone()
	return sub, nil
}

func (b *MemoryBus) PublishTicket(_ context.Context, ticketID string, kind ChangeKind) error {
	return b.publish(ticketTopic(ticketID), Change{Kind: kind, Key: ticketID, At: time.Now()})
}

func (b *MemoryBus) PublishQueue(_ context.Context, channel domain.Channel) error {
	return b.publish(queueTopic(channel), Change{Kind: ChangeModified, Key: string(channel), At: time.Now()})
}

func (b *MemoryBus) PublishEscalations(_ context.Context, department string) error {
	return b.publish(escalationsTopic(department), Change{Kind: ChangeModified, Key: department, At: time.Now()})
}

func (b *MemoryBus) SubscribeTicket(_ context.Context, ticketID string, fn Handler) (*Subscription, error) {
	return b.subscribe(ticketTopic(ticketID), fn)
}

func (b *MemoryBus) SubscribeQueue(_ context.Context, channel domain.Channel, fn Handler) (*Subscription, error) {
	return b.subscribe(queueTopic(channel), fn)
}

func (b *MemoryBus) SubscribeEscalations(_ context.Context, department string, fn Handler) (*Subscription, error) {
	return b.subscribe(escalationsTopic(department), fn)
}
