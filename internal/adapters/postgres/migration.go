package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE interview_status AS ENUM ('running', 'completed'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS interviews (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		room_id TEXT NOT NULL,
		application_id TEXT NOT NULL DEFAULT '',
		company_id TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL DEFAULT '',
		company_name TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		status interview_status NOT NULL DEFAULT 'running',
		duration_seconds BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_interviews_running ON interviews (room_id) WHERE status = 'running'`,
	`CREATE INDEX IF NOT EXISTS idx_interviews_room ON interviews (room_id, started_at DESC)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for i, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
