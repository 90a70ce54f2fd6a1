package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
)

// DemandRepository stores the escalation backlog.
type DemandRepository interface {
	Create(ctx context.Context, demand *domain.Demand) error
	GetByID(ctx context.Context, id string) (*domain.Demand, error)
	ListPending(ctx context.Context, department string, limit int) ([]domain.Demand, error)
}

type demandRepository struct {
	pool *pgxpool.Pool
}

// NewDemandRepository builds repository.
func NewDemandRepository(pool *pgxpool.Pool) DemandRepository {
	return &demandRepository{pool: pool}
}

func insertDemand(ctx context.Context, q Querier, demand *domain.Demand) error {
	const query = `
        INSERT INTO demands (id, ticket_id, department, score, reason, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`
	return q.QueryRow(ctx, query,
		demand.ID,
		demand.TicketID,
		demand.Department,
		demand.Score,
		demand.Reason,
		demand.Status,
	).Scan(&demand.CreatedAt)
}

// markDemandTaken flips a pending demand to TAKEN; losing the race to
// another taker surfaces as pgx.ErrNoRows.
func markDemandTaken(ctx context.Context, q Querier, id string) error {
	const query = `UPDATE demands SET status='TAKEN' WHERE id=$1 AND status='PENDING'`
	cmd, err := q.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *demandRepository) Create(ctx context.Context, demand *domain.Demand) error {
	return insertDemand(ctx, r.pool, demand)
}

func (r *demandRepository) GetByID(ctx context.Context, id string) (*domain.Demand, error) {
	const query = `
        SELECT id, ticket_id, department, score, reason, status, created_at
        FROM demands WHERE id=$1`
	var demand domain.Demand
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&demand.ID,
		&demand.TicketID,
		&demand.Department,
		&demand.Score,
		&demand.Reason,
		&demand.Status,
		&demand.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &demand, nil
}

// ListPending returns the escalation backlog for a department ordered by
// score descending, then arrival time ascending.
func (r *demandRepository) ListPending(ctx context.Context, department string, limit int) ([]domain.Demand, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, ticket_id, department, score, reason, status, created_at
        FROM demands
        WHERE department=$1 AND status='PENDING'
        ORDER BY score DESC, created_at ASC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, department, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Demand
	for rows.Next() {
		var demand domain.Demand
		if err := rows.Scan(
			&demand.ID,
			&demand.TicketID,
			&demand.Department,
			&demand.Score,
			&demand.Reason,
			&demand.Status,
			&demand.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, demand)
	}
	return result, rows.Err()
}
