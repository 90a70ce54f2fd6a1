package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
	apperrors "github.com/yhoroy12/lujo-crm-v2-sub000/pkg/util"
)

// Mutation describes the writes to apply to a ticket inside one atomic
// transaction. All listed side records are committed with the status write
// or not at all.
type Mutation struct {
	Status         domain.TicketStatus
	AssignOperator *string
	ClearOperator  bool
	Score          *int
	Timeline       *domain.TimelineEntry
	Audit          *domain.AuditRecord
	NewDemand      *domain.Demand
	TakeDemandID   string
}

// MutateFunc inspects the in-transaction snapshot of a ticket and returns
// the mutation to apply, or an error to abort. The snapshot read happens
// under a row lock, so the decision is the correctness guarantee; any
// pre-flight read outside the transaction is advisory only.
type MutateFunc func(current *domain.Ticket) (*Mutation, error)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListQueued(ctx context.Context, channel domain.Channel, limit int) ([]domain.Ticket, error)
	ActiveByOperator(ctx context.Context, operatorRef string, channel domain.Channel) (*domain.Ticket, error)
	ActiveForOperator(ctx context.Context, operatorRef string) ([]domain.Ticket, error)
	Mutate(ctx context.Context, id string, fn MutateFunc) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, status, client_ref, client_summary, assigned_operator_ref,
       channel, class_tier, escalation_score, created_at, last_transition_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, status, client_ref, client_summary, assigned_operator_ref, channel, class_tier, escalation_score)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at, last_transition_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.Status,
		ticket.ClientRef,
		ticket.ClientSummary,
		ticket.AssignedOperatorRef,
		ticket.Channel,
		ticket.ClassTier,
		ticket.EscalationScore,
	).Scan(&ticket.CreatedAt, &ticket.LastTransitionAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

// ListQueued returns the pending queue for a channel ordered by class tier
// weight ascending, then arrival time ascending.
func (r *ticketRepository) ListQueued(ctx context.Context, channel domain.Channel, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE status='QUEUED' AND channel=$1
        ORDER BY CASE class_tier
            WHEN 'DIAMOND' THEN 0
            WHEN 'GOLD' THEN 1
            WHEN 'SILVER' THEN 2
            ELSE 3 END,
            created_at ASC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, channel, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ActiveByOperator(ctx context.Context, operatorRef string, channel domain.Channel) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE assigned_operator_ref=$1 AND channel=$2
          AND status IN ('ASSIGNED','IDENTITY_VERIFIED','IN_SERVICE')
        LIMIT 1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, operatorRef, channel))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return ticket, err
}

func (r *ticketRepository) ActiveForOperator(ctx context.Context, operatorRef string) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE assigned_operator_ref=$1
          AND status IN ('ASSIGNED','IDENTITY_VERIFIED','IN_SERVICE')
        ORDER BY last_transition_at DESC`
	rows, err := r.pool.Query(ctx, query, operatorRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// Mutate performs an atomic read-modify-write on one ticket: the row is
// re-read under FOR UPDATE, fn decides against that snapshot, and the
// resulting writes commit as a single unit. fn errors abort the transaction
// and are returned unchanged.
func (r *ticketRepository) Mutate(ctx context.Context, id string, fn MutateFunc) (*domain.Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	current, err := scanTicket(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	mutation, err := fn(current)
	if err != nil {
		return nil, err
	}

	operatorRef := current.AssignedOperatorRef
	if mutation.ClearOperator {
		operatorRef = nil
	}
	if mutation.AssignOperator != nil {
		operatorRef = mutation.AssignOperator
	}

	score := current.EscalationScore
	if mutation.Score != nil {
		score = *mutation.Score
	}

	const update = `
        UPDATE tickets SET status=$1, assigned_operator_ref=$2, escalation_score=$3, last_transition_at=NOW()
        WHERE id=$4
        RETURNING last_transition_at`
	if err := tx.QueryRow(ctx, update, mutation.Status, operatorRef, score, id).Scan(&current.LastTransitionAt); err != nil {
		return nil, mapConflict(err)
	}
	current.Status = mutation.Status
	current.AssignedOperatorRef = operatorRef
	current.EscalationScore = score

	if mutation.Timeline != nil {
		mutation.Timeline.TicketID = id
		if err := insertTimelineEntry(ctx, tx, mutation.Timeline); err != nil {
			return nil, mapConflict(err)
		}
	}
	if mutation.Audit != nil {
		mutation.Audit.TicketID = id
		if err := insertAuditRecord(ctx, tx, mutation.Audit); err != nil {
			return nil, mapConflict(err)
		}
	}
	if mutation.NewDemand != nil {
		mutation.NewDemand.TicketID = id
		if err := insertDemand(ctx, tx, mutation.NewDemand); err != nil {
			return nil, mapConflict(err)
		}
	}
	if mutation.TakeDemandID != "" {
		if err := markDemandTaken(ctx, tx, mutation.TakeDemandID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapConflict(err)
	}
	return current, nil
}

// mapConflict folds store-level contention (serialization failures, the
// partial unique index guarding one-active-per-operator) into the
// TransactionConflict taxonomy code.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23505", "55P03":
			return apperrors.NewTransactionConflict(err)
		}
	}
	return err
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Status,
		&ticket.ClientRef,
		&ticket.ClientSummary,
		&ticket.AssignedOperatorRef,
		&ticket.Channel,
		&ticket.ClassTier,
		&ticket.EscalationScore,
		&ticket.CreatedAt,
		&ticket.LastTransitionAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
