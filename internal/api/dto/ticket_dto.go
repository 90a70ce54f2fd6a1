package dto

import (
	"time"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
)

// CreateTicketRequest is the intake payload.
type CreateTicketRequest struct {
	ClientRef     string `json:"client_ref"`
	ClientSummary string `json:"client_summary"`
	Channel       string `json:"channel"`
}

// TransitionRequest moves a ticket between states.
type TransitionRequest struct {
	From          string `json:"from"`
	To            string `json:"to"`
	Justification string `json:"justification,omitempty"`
}

// ForwardRequest escalates a ticket to another department.
type ForwardRequest struct {
	Department    string `json:"department"`
	Justification string `json:"justification"`
	AccountType   string `json:"account_type,omitempty"`
	IssueType     string `json:"issue_type,omitempty"`
}

// TicketResponse is the public ticket shape.
type TicketResponse struct {
	ID                  string    `json:"id"`
	Status              string    `json:"status"`
	ClientRef           string    `json:"client_ref"`
	ClientSummary       string    `json:"client_summary,omitempty"`
	AssignedOperatorRef *string   `json:"assigned_operator_ref,omitempty"`
	Channel             string    `json:"channel"`
	ClassTier           string    `json:"class_tier"`
	EscalationScore     int       `json:"escalation_score,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	LastTransitionAt    time.Time `json:"last_transition_at"`
}

// TimelineEntryResponse is one activity log row.
type TimelineEntryResponse struct {
	Event       string    `json:"event"`
	ActorRef    string    `json:"actor_ref"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TicketDetailResponse bundles a ticket with its timeline.
type TicketDetailResponse struct {
	Ticket   TicketResponse          `json:"ticket"`
	Timeline []TimelineEntryResponse `json:"timeline"`
}

// DemandResponse is one escalation backlog row.
type DemandResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	Department string    `json:"department"`
	Score      int       `json:"score"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// OfferResponse is the outstanding offer surfaced to an operator.
type OfferResponse struct {
	TicketID      string    `json:"ticket_id"`
	Channel       string    `json:"channel"`
	ClientSummary string    `json:"client_summary"`
	OfferedAt     time.Time `json:"offered_at"`
	Backlog       int       `json:"backlog"`
}

// ToTicketResponse maps a domain ticket.
func ToTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                  ticket.ID,
		Status:              string(ticket.Status),
		ClientRef:           ticket.ClientRef,
		ClientSummary:       ticket.ClientSummary,
		AssignedOperatorRef: ticket.AssignedOperatorRef,
		Channel:             string(ticket.Channel),
		ClassTier:           string(ticket.ClassTier),
		EscalationScore:     ticket.EscalationScore,
		CreatedAt:           ticket.CreatedAt,
		LastTransitionAt:    ticket.LastTransitionAt,
	}
}

// ToTicketList maps a slice of tickets.
func ToTicketList(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, ToTicketResponse(&tickets[i]))
	}
	return out
}

// ToTimelineList maps timeline entries.
func ToTimelineList(entries []domain.TimelineEntry) []TimelineEntryResponse {
	out := make([]TimelineEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, TimelineEntryResponse{
			Event:       e.Event,
			ActorRef:    e.ActorRef,
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}

// ToDemandList maps demands.
func ToDemandList(demands []domain.Demand) []DemandResponse {
	out := make([]DemandResponse, 0, len(demands))
	for _, d := range demands {
		out = append(out, DemandResponse{
			ID:         d.ID,
			TicketID:   d.TicketID,
			Department: d.Department,
			Score:      d.Score,
			Reason:     d.Reason,
			CreatedAt:  d.CreatedAt,
		})
	}
	return out
}
