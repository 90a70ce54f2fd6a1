package events

import (
	"time"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketClaimed       EventType = "ticket_claimed"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventOwnershipLost       EventType = "ownership_lost"
	EventQueueChanged        EventType = "queue_changed"
	EventOfferPresented      EventType = "offer_presented"
	EventOfferResolved       EventType = "offer_resolved"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Ref  string      `json:"ref"`
	Role domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Channel   domain.Channel   `json:"channel"`
	ClassTier domain.ClassTier `json:"class_tier"`
	ClientRef string           `json:"client_ref"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	OperatorRef string         `json:"operator_ref"`
	Channel     domain.Channel `json:"channel"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus     domain.TicketStatus `json:"old_status"`
	NewStatus     domain.TicketStatus `json:"new_status"`
	Justification string              `json:"justification,omitempty"`
}

// OwnershipLostPayload payload.
type OwnershipLostPayload struct {
	OperatorRef string `json:"operator_ref"`
	Reason      string `json:"reason"`
}

// QueueChangedPayload payload.
type QueueChangedPayload struct {
	Channel    domain.Channel `json:"channel,omitempty"`
	Department string         `json:"department,omitempty"`
	Size       int            `json:"size"`
	HeadID     string         `json:"head_id,omitempty"`
}

// OfferPresentedPayload payload.
type OfferPresentedPayload struct {
	OperatorRef   string         `json:"operator_ref"`
	Channel       domain.Channel `json:"channel"`
	ClientSummary string         `json:"client_summary"`
}

// OfferResolvedPayload payload.
type OfferResolvedPayload struct {
	OperatorRef string `json:"operator_ref"`
	Outcome     string `json:"outcome"`
}
