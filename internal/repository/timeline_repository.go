package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
)

// TimelineRepository stores the user-facing activity log. Entries are only
// ever appended; there is no update or delete path.
type TimelineRepository interface {
	Append(ctx context.Context, entry *domain.TimelineEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TimelineEntry, error)
}

type timelineRepository struct {
	pool *pgxpool.Pool
}

// NewTimelineRepository builds repository.
func NewTimelineRepository(pool *pgxpool.Pool) TimelineRepository {
	return &timelineRepository{pool: pool}
}

func insertTimelineEntry(ctx context.Context, q Querier, entry *domain.TimelineEntry) error {
	const query = `
        INSERT INTO ticket_timeline (ticket_id, event, actor_ref, description)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		entry.TicketID,
		entry.Event,
		entry.ActorRef,
		entry.Description,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *timelineRepository) Append(ctx context.Context, entry *domain.TimelineEntry) error {
	return insertTimelineEntry(ctx, r.pool, entry)
}

func (r *timelineRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TimelineEntry, error) {
	const query = `
        SELECT id, ticket_id, event, actor_ref, description, created_at
        FROM ticket_timeline WHERE ticket_id=$1 ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TimelineEntry
	for rows.Next() {
		var entry domain.TimelineEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.Event,
			&entry.ActorRef,
			&entry.Description,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
