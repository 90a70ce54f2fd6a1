// Package statemachine decides whether a ticket status transition is legal
// for a given actor role. The rule table is the single authority over the
// lifecycle: no other write path may move a ticket between states.
package statemachine

import (
	"strings"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
	apperrors "github.com/yhoroy12/lujo-crm-v2-sub000/pkg/util"
)

// TransitionRule gates one edge of the lifecycle graph.
type TransitionRule struct {
	AllowedRoles          []domain.Role
	RequiresJustification bool
}

type edge struct {
	from domain.TicketStatus
	to   domain.TicketStatus
}

// StateMachine validates transitions against an immutable rule table.
type StateMachine struct {
	rules map[edge]TransitionRule
}

// New builds the state machine with the default lifecycle table.
func New() *StateMachine {
	return &StateMachine{rules: defaultRules()}
}

func defaultRules() map[edge]TransitionRule {
	operatorOrAdmin := []domain.Role{domain.RoleOperator, domain.RoleAdmin}
	return map[edge]TransitionRule{
		{domain.TicketStatusQueued, domain.TicketStatusAssigned}: {
			AllowedRoles: operatorOrAdmin,
		},
		{domain.TicketStatusAssigned, domain.TicketStatusIdentityVerified}: {
			AllowedRoles: operatorOrAdmin,
		},
		{domain.TicketStatusIdentityVerified, domain.TicketStatusInService}: {
			AllowedRoles: operatorOrAdmin,
		},
		{domain.TicketStatusInService, domain.TicketStatusForwarded}: {
			AllowedRoles:          operatorOrAdmin,
			RequiresJustification: true,
		},
		{domain.TicketStatusInService, domain.TicketStatusCompleted}: {
			AllowedRoles: operatorOrAdmin,
		},
		// Lost-ownership recovery returns the ticket to the queue.
		{domain.TicketStatusAssigned, domain.TicketStatusQueued}: {
			AllowedRoles: []domain.Role{domain.RoleSystem},
		},
		// A forwarded ticket re-enters service when its escalation demand
		// is taken by an operator in the target department.
		{domain.TicketStatusForwarded, domain.TicketStatusAssigned}: {
			AllowedRoles: operatorOrAdmin,
		},
		{domain.TicketStatusQueued, domain.TicketStatusCancelled}: {
			AllowedRoles: []domain.Role{domain.RoleSystem, domain.RoleAdmin},
		},
	}
}

// ValidateTransition reports whether (from, to, role) is a legal move and
// whether the supplied justification satisfies the rule. Inputs are
// canonicalized before lookup so legacy lowercase records still resolve.
func (m *StateMachine) ValidateTransition(from, to domain.TicketStatus, role domain.Role, justification string) error {
	canonFrom, err := CanonicalStatus(string(from))
	if err != nil {
		return err
	}
	canonTo, err := CanonicalStatus(string(to))
	if err != nil {
		return err
	}
	rule, ok := m.rules[edge{canonFrom, canonTo}]
	if !ok {
		return apperrors.NewInvalidTransition(string(canonFrom), string(canonTo))
	}
	if !roleAllowed(rule.AllowedRoles, role) {
		return apperrors.NewRoleNotAllowed(string(role))
	}
	if rule.RequiresJustification && strings.TrimSpace(justification) == "" {
		return apperrors.NewJustificationRequired(string(canonFrom), string(canonTo))
	}
	return nil
}

// AvailableTransitions lists the target states reachable from the given
// state for the role. Used to drive which actions are offered to an operator.
func (m *StateMachine) AvailableTransitions(from domain.TicketStatus, role domain.Role) []domain.TicketStatus {
	canonFrom, err := CanonicalStatus(string(from))
	if err != nil {
		return nil
	}
	var targets []domain.TicketStatus
	for e, rule := range m.rules {
		if e.from != canonFrom {
			continue
		}
		if roleAllowed(rule.AllowedRoles, role) {
			targets = append(targets, e.to)
		}
	}
	return targets
}

// IsFinalState reports whether the state has no outgoing edges.
func (m *StateMachine) IsFinalState(state domain.TicketStatus) bool {
	canon, err := CanonicalStatus(string(state))
	if err != nil {
		return false
	}
	for e := range m.rules {
		if e.from == canon {
			return false
		}
	}
	return true
}

func roleAllowed(allowed []domain.Role, role domain.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
