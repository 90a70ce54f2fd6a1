package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/repository"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/statemachine"
	apperrors "github.com/yhoroy12/lujo-crm-v2-sub000/pkg/util"
)

// SessionCache remembers an operator's last active ticket id. The cache is
// a read-only hint, never authoritative: every value read from it must be
// re-validated against the store before being acted on.
type SessionCache interface {
	Load(ctx context.Context, operatorRef string) (string, error)
	Save(ctx context.Context, operatorRef, ticketID string) error
	Clear(ctx context.Context, operatorRef string) error
}

// ReconcileService decides at client start whether a remembered active
// ticket is still authoritative.
type ReconcileService struct {
	states  *statemachine.StateMachine
	tickets repository.TicketRepository
	cache   SessionCache
	logger  *zap.Logger
}

// ReconcileDependencies bundles collaborators.
type ReconcileDependencies struct {
	States     *statemachine.StateMachine
	TicketRepo repository.TicketRepository
	Cache      SessionCache
	Logger     *zap.Logger
}

// NewReconcileService constructs the service.
func NewReconcileService(deps ReconcileDependencies) *ReconcileService {
	return &ReconcileService{
		states:  deps.States,
		tickets: deps.TicketRepo,
		cache:   deps.Cache,
		logger:  deps.Logger,
	}
}

// Reconcile resolves the operator's active ticket. The store is the sole
// source of truth; the cached id is consulted only when the store query
// finds nothing, and is discarded on any validation failure. A nil ticket
// with nil error means a clean idle start.
func (r *ReconcileService) Reconcile(ctx context.Context, operatorRef string) (*domain.Ticket, error) {
	if operatorRef == "" {
		return nil, apperrors.NewNotAuthenticated("operator required")
	}

	active, err := r.tickets.ActiveForOperator(ctx, operatorRef)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if len(active) > 0 {
		ticket := active[0]
		_ = r.cache.Save(ctx, operatorRef, ticket.ID)
		return &ticket, nil
	}

	cachedID, err := r.cache.Load(ctx, operatorRef)
	if err != nil || cachedID == "" {
		return nil, nil
	}

	ticket, err := r.tickets.GetByID(ctx, cachedID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewStoreUnavailable(err)
		}
		r.discard(ctx, operatorRef, cachedID, "ticket no longer exists")
		return nil, nil
	}

	status, err := statemachine.CanonicalStatus(string(ticket.Status))
	if err != nil {
		r.discard(ctx, operatorRef, cachedID, "unrecognized status")
		return nil, nil
	}
	if !ticket.OwnedBy(operatorRef) {
		r.discard(ctx, operatorRef, cachedID, "owned by another operator")
		return nil, nil
	}
	if r.states.IsFinalState(status) || !status.IsActive() {
		r.discard(ctx, operatorRef, cachedID, "no longer active")
		return nil, nil
	}

	_ = r.cache.Save(ctx, operatorRef, ticket.ID)
	return ticket, nil
}

// Forget drops the operator's cached session, typically after an ownership
// watch reports the ticket lost.
func (r *ReconcileService) Forget(ctx context.Context, operatorRef string) {
	_ = r.cache.Clear(ctx, operatorRef)
}

func (r *ReconcileService) discard(ctx context.Context, operatorRef, ticketID, why string) {
	r.logger.Info("discarding cached session",
		zap.String("operator_ref", operatorRef),
		zap.String("ticket_id", ticketID),
		zap.String("reason", why))
	_ = r.cache.Clear(ctx, operatorRef)
}
