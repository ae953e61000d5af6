// Package postgres stores interviews with pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Interview/internal/domain"
	"github.com/dkeye/Interview/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const interviewColumns = `id, room_id, application_id, company_id, user_id, company_name, started_at, ended_at, status::text, duration_seconds`

type InterviewRepository struct {
	pool *pgxpool.Pool
}

func NewInterviewRepository(pool *pgxpool.Pool) repository.InterviewRepository {
	return &InterviewRepository{pool: pool}
}

// Connect opens a pool and runs the migrations.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigration(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info().Str("module", "postgres").Msg("database ready")
	return pool, nil
}

func (r *InterviewRepository) StartInterview(ctx context.Context, in repository.StartInterviewInput) (*repository.Interview, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO interviews (room_id, application_id, company_id, user_id, company_name, started_at, status)
		 VALUES ($1, $2, $3, $4, $5, $6, 'running')
		 ON CONFLICT (room_id) WHERE status = 'running' DO UPDATE SET room_id = EXCLUDED.room_id
		 RETURNING `+interviewColumns,
		in.RoomID, in.ApplicationID, in.CompanyID, in.UserID, in.CompanyName, in.StartedAt)
	return scanInterview(row)
}

func (r *InterviewRepository) CompleteInterview(ctx context.Context, in repository.CompleteInterviewInput) (*repository.Interview, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE interviews
		 SET status = 'completed', ended_at = $2,
		     duration_seconds = GREATEST(0, FLOOR(EXTRACT(EPOCH FROM ($2 - started_at))))::BIGINT
		 WHERE room_id = $1 AND status = 'running'
		 RETURNING `+interviewColumns,
		in.RoomID, in.EndedAt)
	iv, err := scanInterview(row)
	if !errors.Is(err, repository.ErrNotFound) {
		return iv, err
	}

	log.Warn().Str("module", "postgres").Str("room", string(in.RoomID)).Msg("no running interview, recording completed one")
	row = r.pool.QueryRow(ctx,
		`INSERT INTO interviews (room_id, application_id, company_id, user_id, started_at, ended_at, status, duration_seconds)
		 VALUES ($1, $2, $3, $4, $5, $6, 'completed', $7)
		 RETURNING `+interviewColumns,
		in.RoomID, in.ApplicationID, in.CompanyID, in.UserID, in.StartedAt, in.EndedAt,
		repository.Duration(in.StartedAt, in.EndedAt))
	return scanInterview(row)
}

func (r *InterviewRepository) GetInterviewByRoom(ctx context.Context, roomID domain.RoomID) (*repository.Interview, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+interviewColumns+`
		 FROM interviews WHERE room_id = $1
		 ORDER BY started_at DESC LIMIT 1`,
		roomID)
	return scanInterview(row)
}

func scanInterview(row pgx.Row) (*repository.Interview, error) {
	var iv repository.Interview
	var status string
	err := row.Scan(&iv.ID, &iv.RoomID, &iv.ApplicationID, &iv.CompanyID, &iv.UserID, &iv.CompanyName,
		&iv.StartedAt, &iv.EndedAt, &status, &iv.DurationSeconds)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	iv.Status = repository.InterviewStatus(status)
	return &iv, nil
}
