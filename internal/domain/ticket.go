package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusQueued           TicketStatus = "QUEUED"
	TicketStatusAssigned         TicketStatus = "ASSIGNED"
	TicketStatusIdentityVerified TicketStatus = "IDENTITY_VERIFIED"
	TicketStatusInService        TicketStatus = "IN_SERVICE"
	TicketStatusForwarded        TicketStatus = "FORWARDED"
	TicketStatusCompleted        TicketStatus = "COMPLETED"
	TicketStatusCancelled        TicketStatus = "CANCELLED"
)

// ActiveStatuses are the states in which a ticket is owned by an operator.
// AssignedOperatorRef is non-null exactly while the ticket is in one of these.
var ActiveStatuses = []TicketStatus{
	TicketStatusAssigned,
	TicketStatusIdentityVerified,
	TicketStatusInService,
}

// IsActive reports whether the status implies operator ownership.
func (s TicketStatus) IsActive() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// Channel enumerates ticket intake channels. Ownership is scoped per
// (operator, channel): an operator holds at most one active ticket on each.
type Channel string

const (
	ChannelChat Channel = "CHAT"
	ChannelMail Channel = "MAIL"
)

// ClassTier is a client's service priority classification. The live queue
// orders by the ascending numeric weight from Weight; this is unrelated to
// the escalation score, which ranks descending.
type ClassTier string

const (
	TierDiamond ClassTier = "DIAMOND"
	TierGold    ClassTier = "GOLD"
	TierSilver  ClassTier = "SILVER"
	TierNone    ClassTier = "NONE"
)

var tierWeights = map[ClassTier]int{
	TierDiamond: 0,
	TierGold:    1,
	TierSilver:  2,
	TierNone:    3,
}

// Weight returns the queue ordering weight for the tier; smaller is served
// first. Unknown tiers sort last.
func (t ClassTier) Weight() int {
	if w, ok := tierWeights[t]; ok {
		return w
	}
	return len(tierWeights)
}

// Ticket is the unit of client-service work tracked through the lifecycle.
type Ticket struct {
	ID                  string
	Status              TicketStatus
	ClientRef           string
	ClientSummary       string
	AssignedOperatorRef *string
	Channel             Channel
	ClassTier           ClassTier
	EscalationScore     int
	CreatedAt           time.Time
	LastTransitionAt    time.Time
}

// OwnedBy reports whether the ticket is currently held by the operator.
func (t *Ticket) OwnedBy(operatorRef string) bool {
	return t.AssignedOperatorRef != nil && *t.AssignedOperatorRef == operatorRef
}
