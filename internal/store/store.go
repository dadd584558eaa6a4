// Package store persists solve attempts to PostgreSQL.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tapsolver/internal/solver"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	sqlCreateSchema = `
        CREATE TABLE IF NOT EXISTS solve_attempts (
            id          UUID PRIMARY KEY,
            started_at  TIMESTAMPTZ NOT NULL,
            duration_ms BIGINT NOT NULL,
            outcome     TEXT NOT NULL,
            archetype   TEXT NOT NULL,
            strategy    TEXT NOT NULL,
            prompt      TEXT NOT NULL,
            record_id   TEXT NOT NULL,
            clicks      INTEGER NOT NULL,
            skipped     INTEGER NOT NULL
        );
        CREATE INDEX IF NOT EXISTS solve_attempts_started_at_idx ON solve_attempts (started_at DESC);
    `
	sqlInsertAttempt = `
        INSERT INTO solve_attempts (id, started_at, duration_ms, outcome, archetype, strategy, prompt, record_id, clicks, skipped)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	sqlRecentAttempts = `
        SELECT id, started_at, duration_ms, outcome, archetype, strategy, prompt, record_id, clicks, skipped
        FROM solve_attempts
        ORDER BY started_at DESC
        LIMIT $1
    `
)

// Attempt is one stored row.
type Attempt struct {
	ID        uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	Outcome   string
	Archetype string
	Strategy  string
	Prompt    string
	RecordID  string
	Clicks    int
	Skipped   int
}

// Store records solve attempts. It satisfies solver.History.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Open connects to url, ensures the schema and returns the store with a
// function that closes the pool.
func Open(ctx context.Context, url string, logger *zap.Logger) (*Store, func(), error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	s, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool.Close, nil
}

// EnsureSchema creates the attempts table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, sqlCreateSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Record inserts res.
func (s *Store) Record(ctx context.Context, res solver.Result) error {
	tag, err := s.pool.Exec(ctx, sqlInsertAttempt,
		res.ID,
		res.StartedAt.UTC(),
		res.Duration.Milliseconds(),
		string(res.Outcome),
		res.Archetype.String(),
		string(res.Strategy),
		res.Prompt,
		res.RecordID,
		res.Report.Clicks,
		res.Report.Skipped,
	)
	if err != nil {
		return fmt.Errorf("failed to insert attempt %s: %w", res.ID, err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("insert attempt %s affected %d rows", res.ID, tag.RowsAffected())
	}
	s.log.Debug("Attempt recorded.", zap.String("id", res.ID.String()), zap.String("outcome", string(res.Outcome)))
	return nil
}

// Recent returns up to limit attempts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, sqlRecentAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		var id string
		var durationMs int64
		if err := rows.Scan(&id, &a.StartedAt, &durationMs, &a.Outcome, &a.Archetype, &a.Strategy,
			&a.Prompt, &a.RecordID, &a.Clicks, &a.Skipped); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("failed to parse attempt id %q: %w", id, err)
		}
		a.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read attempts: %w", err)
	}
	return out, nil
}
