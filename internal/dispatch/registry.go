package dispatch

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/events"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/observability"
)

// Registry tracks the dispatcher of every operator currently online.
// Several idle operators may receive the same queue head; the claim
// transaction arbitrates and losers see an expected lost race.
type Registry struct {
	settle     time.Duration
	claims     Claimer
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger

	mu       sync.Mutex
	byRef    map[string]*OperatorDispatcher
	channels map[string]domain.Channel
}

// NewRegistry creates the registry.
func NewRegistry(settle time.Duration, claims Claimer, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) *Registry {
	return &Registry{
		settle:     settle,
		claims:     claims,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		byRef:      make(map[string]*OperatorDispatcher),
		channels:   make(map[string]domain.Channel),
	}
}

// Register brings an operator online on a channel, reusing the existing
// dispatcher when already registered.
func (r *Registry) Register(operatorRef string, role domain.Role, channel domain.Channel) *OperatorDispatcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byRef[operatorRef]; ok && r.channels[operatorRef] == channel {
		return existing
	}
	if existing, ok := r.byRef[operatorRef]; ok {
		existing.Close()
	}
	d := NewOperatorDispatcher(operatorRef, role, r.settle, r.claims, r.dispatcher, r.metrics, r.logger)
	r.byRef[operatorRef] = d
	r.channels[operatorRef] = channel
	return d
}

// Unregister takes an operator offline and drops their pending offers.
func (r *Registry) Unregister(operatorRef string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byRef[operatorRef]; ok {
		d.Close()
		delete(r.byRef, operatorRef)
		delete(r.channels, operatorRef)
	}
}

// Get returns the operator's dispatcher, or nil when offline.
func (r *Registry) Get(operatorRef string) *OperatorDispatcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byRef[operatorRef]
}

// Offer fans a queue-head candidate out to every operator online on the
// channel. Busy dispatchers backlog it; idle ones present it immediately.
func (r *Registry) Offer(channel domain.Channel, candidate Candidate) {
	r.mu.Lock()
	targets := make([]*OperatorDispatcher, 0, len(r.byRef))
	for ref, d := range r.byRef {
		if r.channels[ref] == channel {
			targets = append(targets, d)
		}
	}
	r.mu.Unlock()

	for _, d := range targets {
		d.Enqueue(candidate)
	}
}
