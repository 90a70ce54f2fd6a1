package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
)

// AuditRepository stores immutable transition records, kept apart from the
// timeline for post-hoc accountability.
type AuditRepository interface {
	Record(ctx context.Context, record *domain.AuditRecord) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.AuditRecord, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func insertAuditRecord(ctx context.Context, q Querier, record *domain.AuditRecord) error {
	const query = `
        INSERT INTO ticket_audit (ticket_id, actor_ref, actor_role, from_status, to_status, justification)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		record.TicketID,
		record.ActorRef,
		record.ActorRole,
		record.FromStatus,
		record.ToStatus,
		record.Justification,
	).Scan(&record.ID, &record.CreatedAt)
}

func (r *auditRepository) Record(ctx context.Context, record *domain.AuditRecord) error {
	return insertAuditRecord(ctx, r.pool, record)
}

func (r *auditRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.AuditRecord, error) {
	const query = `
        SELECT id, ticket_id, actor_ref, actor_role, from_status, to_status, justification, created_at
        FROM ticket_audit WHERE ticket_id=$1 ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditRecord
	for rows.Next() {
		var record domain.AuditRecord
		if err := rows.Scan(
			&record.ID,
			&record.TicketID,
			&record.ActorRef,
			&record.ActorRole,
			&record.FromStatus,
			&record.ToStatus,
			&record.Justification,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}
