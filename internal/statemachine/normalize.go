package statemachine

import (
	"strings"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
	apperrors "github.com/yhoroy12/lujo-crm-v2-sub000/pkg/util"
)

// statusAliases maps legacy spellings found in older records to canonical
// statuses. The table is the only source of alias resolution: values absent
// here fall back to a plain uppercase lookup and are rejected if still
// unknown, never guessed.
var statusAliases = map[string]domain.TicketStatus{
	"queued":            domain.TicketStatusQueued,
	"assigned":          domain.TicketStatusAssigned,
	"identity_verified": domain.TicketStatusIdentityVerified,
	"identity-verified": domain.TicketStatusIdentityVerified,
	"in_service":        domain.TicketStatusInService,
	"in-service":        domain.TicketStatusInService,
	"forwarded":         domain.TicketStatusForwarded,
	"completed":         domain.TicketStatusCompleted,
	"cancelled":         domain.TicketStatusCancelled,
	"canceled":          domain.TicketStatusCancelled,
}

var knownStatuses = map[domain.TicketStatus]struct{}{
	domain.TicketStatusQueued:           {},
	domain.TicketStatusAssigned:         {},
	domain.TicketStatusIdentityVerified: {},
	domain.TicketStatusInService:        {},
	domain.TicketStatusForwarded:        {},
	domain.TicketStatusCompleted:        {},
	domain.TicketStatusCancelled:        {},
}

// CanonicalStatus resolves a stored status value to its canonical uppercase
// form. Unknown values return an InvalidTransition-class error rather than
// being coerced.
func CanonicalStatus(raw string) (domain.TicketStatus, error) {
	trimmed := strings.TrimSpace(raw)
	if mapped, ok := statusAliases[strings.ToLower(trimmed)]; ok {
		return mapped, nil
	}
	upper := domain.TicketStatus(strings.ToUpper(trimmed))
	if _, ok := knownStatuses[upper]; ok {
		return upper, nil
	}
	return "", apperrors.NewValidationError("unknown ticket status", map[string]any{"status": raw})
}
