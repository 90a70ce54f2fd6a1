package domain

import "time"

// TimelineEntry is one row of a ticket's user-facing activity log. The log
// is append-only: entries are never updated, deleted, or reordered.
type TimelineEntry struct {
	ID          int64
	TicketID    string
	Event       string
	ActorRef    string
	Description string
	CreatedAt   time.Time
}

// Timeline event names.
const (
	TimelineEventCreated    = "ticket_created"
	TimelineEventClaimed    = "ticket_claimed"
	TimelineEventTransition = "status_changed"
	TimelineEventRequeued   = "ticket_requeued"
)

// AuditRecord is an immutable transition record carrying actor identity,
// kept separately from the timeline for post-hoc accountability.
type AuditRecord struct {
	ID            int64
	TicketID      string
	ActorRef      string
	ActorRole     Role
	FromStatus    TicketStatus
	ToStatus      TicketStatus
	Justification string
	CreatedAt     time.Time
}
