package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/repository"
)

// memoryStore is an in-process stand-in for the postgres repositories. Mutate
// serializes all mutations behind one lock, so concurrent callers observe the
// same one-winner semantics the row lock provides in production.
type memoryStore struct {
	mu       sync.Mutex
	tickets  map[string]*domain.Ticket
	timeline map[string][]domain.TimelineEntry
	audits   map[string][]domain.AuditRecord
	demands  map[string]*domain.Demand
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		tickets:  make(map[string]*domain.Ticket),
		timeline: make(map[string][]domain.TimelineEntry),
		audits:   make(map[string][]domain.AuditRecord),
		demands:  make(map[string]*domain.Demand),
	}
}

func (s *memoryStore) Create(_ context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	ticket.LastTransitionAt = now
	copied := *ticket
	s.tickets[ticket.ID] = &copied
	return nil
}

func (s *memoryStore) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (s *memoryStore) ListQueued(_ context.Context, channel domain.Channel, limit int) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Ticket
	for _, t := range s.tickets {
		if t.Status == domain.TicketStatusQueued && t.Channel == channel {
			result = append(result, *t)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *memoryStore) ActiveByOperator(_ context.Context, operatorRef string, channel domain.Channel) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.Channel == channel && t.Status.IsActive() && t.OwnedBy(operatorRef) {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) ActiveForOperator(_ context.Context, operatorRef string) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Ticket
	for _, t := range s.tickets {
		if t.Status.IsActive() && t.OwnedBy(operatorRef) {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (s *memoryStore) Mutate(_ context.Context, id string, fn repository.MutateFunc) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	snapshot := *stored
	mutation, err := fn(&snapshot)
	if err != nil {
		return nil, err
	}

	stored.Status = mutation.Status
	if mutation.ClearOperator {
		stored.AssignedOperatorRef = nil
	}
	if mutation.AssignOperator != nil {
		ref := *mutation.AssignOperator
		stored.AssignedOperatorRef = &ref
	}
	if mutation.Score != nil {
		stored.EscalationScore = *mutation.Score
	}
	stored.LastTransitionAt = time.Now()

	if mutation.Timeline != nil {
		entry := *mutation.Timeline
		entry.TicketID = id
		entry.CreatedAt = time.Now()
		s.timeline[id] = append(s.timeline[id], entry)
	}
	if mutation.Audit != nil {
		record := *mutation.Audit
		record.TicketID = id
		record.CreatedAt = time.Now()
		s.audits[id] = append(s.audits[id], record)
	}
	if mutation.NewDemand != nil {
		demand := *mutation.NewDemand
		demand.TicketID = id
		demand.CreatedAt = time.Now()
		s.demands[demand.ID] = &demand
	}
	if mutation.TakeDemandID != "" {
		demand, ok := s.demands[mutation.TakeDemandID]
		if !ok || demand.Status != domain.DemandStatusPending {
			return nil, pgx.ErrNoRows
		}
		demand.Status = domain.DemandStatusTaken
	}

	copied := *stored
	return &copied, nil
}

// DemandRepository view over the same store.

func (s *memoryStore) CreateDemand(_ context.Context, demand *domain.Demand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if demand.CreatedAt.IsZero() {
		demand.CreatedAt = time.Now()
	}
	copied := *demand
	s.demands[demand.ID] = &copied
	return nil
}

func (s *memoryStore) GetDemand(_ context.Context, id string) (*domain.Demand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	demand, ok := s.demands[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *demand
	return &copied, nil
}

func (s *memoryStore) ListPendingDemands(_ context.Context, department string, limit int) ([]domain.Demand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Demand
	for _, d := range s.demands {
		if d.Department == department && d.Status == domain.DemandStatusPending {
			result = append(result, *d)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// memoryDemands adapts memoryStore to repository.DemandRepository.
type memoryDemands struct{ store *memoryStore }

func (r memoryDemands) Create(ctx context.Context, demand *domain.Demand) error {
	return r.store.CreateDemand(ctx, demand)
}

func (r memoryDemands) GetByID(ctx context.Context, id string) (*domain.Demand, error) {
	return r.store.GetDemand(ctx, id)
}

func (r memoryDemands) ListPending(ctx context.Context, department string, limit int) ([]domain.Demand, error) {
	return r.store.ListPendingDemands(ctx, department, limit)
}

// memoryTimeline adapts memoryStore to repository.TimelineRepository.
type memoryTimeline struct{ store *memoryStore }

func (r memoryTimeline) Append(_ context.Context, entry *domain.TimelineEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *entry
	copied.CreatedAt = time.Now()
	r.store.timeline[entry.TicketID] = append(r.store.timeline[entry.TicketID], copied)
	return nil
}

func (r memoryTimeline) ListByTicket(_ context.Context, ticketID string) ([]domain.TimelineEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]domain.TimelineEntry{}, r.store.timeline[ticketID]...), nil
}

func (s *memoryStore) timelineFor(ticketID string) []domain.TimelineEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.TimelineEntry{}, s.timeline[ticketID]...)
}

func (s *memoryStore) demandsFor(ticketID string) []domain.Demand {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Demand
	for _, d := range s.demands {
		if d.TicketID == ticketID {
			result = append(result, *d)
		}
	}
	return result
}

// memorySessionCache is an in-process SessionCache.
type memorySessionCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemorySessionCache() *memorySessionCache {
	return &memorySessionCache{entries: make(map[string]string)}
}

func (c *memorySessionCache) Load(_ context.Context, operatorRef string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[operatorRef], nil
}

func (c *memorySessionCache) Save(_ context.Context, operatorRef, ticketID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[operatorRef] = ticketID
	return nil
}

func (c *memorySessionCache) Clear(_ context.Context, operatorRef string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, operatorRef)
	return nil
}
