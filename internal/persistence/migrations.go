package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// migrations are applied in order on startup. Statements must stay
// idempotent: the runner has no version bookkeeping.
var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "tickets",
		sql: `
        CREATE TABLE IF NOT EXISTS tickets (
            id UUID PRIMARY KEY,
            status TEXT NOT NULL,
            client_ref TEXT NOT NULL,
            client_summary TEXT NOT NULL DEFAULT '',
            assigned_operator_ref TEXT,
            channel TEXT NOT NULL,
            class_tier TEXT NOT NULL DEFAULT 'NONE',
            escalation_score INT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            last_transition_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
	},
	{
		// One active ticket per (operator, channel) at any instant.
		name: "tickets_one_active_per_operator_channel",
		sql: `
        CREATE UNIQUE INDEX IF NOT EXISTS tickets_active_owner_idx
            ON tickets (assigned_operator_ref, channel)
            WHERE status IN ('ASSIGNED','IDENTITY_VERIFIED','IN_SERVICE')`,
	},
	{
		name: "tickets_queue_idx",
		sql: `
        CREATE INDEX IF NOT EXISTS tickets_queue_idx
            ON tickets (channel, created_at)
            WHERE status = 'QUEUED'`,
	},
	{
		name: "ticket_timeline",
		sql: `
        CREATE TABLE IF NOT EXISTS ticket_timeline (
            id BIGSERIAL PRIMARY KEY,
            ticket_id UUID NOT NULL REFERENCES tickets(id),
            event TEXT NOT NULL,
            actor_ref TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
	},
	{
		name: "ticket_audit",
		sql: `
        CREATE TABLE IF NOT EXISTS ticket_audit (
            id BIGSERIAL PRIMARY KEY,
            ticket_id UUID NOT NULL REFERENCES tickets(id),
            actor_ref TEXT NOT NULL,
            actor_role TEXT NOT NULL,
            from_status TEXT NOT NULL,
            to_status TEXT NOT NULL,
            justification TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
	},
	{
		name: "demands",
		sql: `
        CREATE TABLE IF NOT EXISTS demands (
            id UUID PRIMARY KEY,
            ticket_id UUID NOT NULL REFERENCES tickets(id),
            department TEXT NOT NULL,
            score INT NOT NULL DEFAULT 0,
            reason TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'PENDING',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
	},
	{
		name: "demands_backlog_idx",
		sql: `
        CREATE INDEX IF NOT EXISTS demands_backlog_idx
            ON demands (department, score DESC, created_at)
            WHERE status = 'PENDING'`,
	},
	{
		name: "priority_rules",
		sql: `
        CREATE TABLE IF NOT EXISTS priority_rules (
            id BIGSERIAL PRIMARY KEY,
            document JSONB NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
	},
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping migrations")
		return nil
	}

	for _, m := range migrations {
		logger.Info("applying migration", zap.String("name", m.name))
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}

	logger.Info("migrations applied", zap.Int("count", len(migrations)))
	return nil
}
