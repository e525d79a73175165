// Package postgres persists unified hours and run history in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/air-quality-unifier/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS unified_hourly (
	time         TIMESTAMPTZ PRIMARY KEY,
	pm25         DOUBLE PRECISION,
	pm10         DOUBLE PRECISION,
	o3           DOUBLE PRECISION,
	no2          DOUBLE PRECISION,
	so2          DOUBLE PRECISION,
	co           DOUBLE PRECISION,
	temperature  DOUBLE PRECISION,
	humidity     DOUBLE PRECISION,
	wind_speed   DOUBLE PRECISION,
	no_data_flag BOOLEAN NOT NULL,
	run_id       TEXT NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS unify_runs (
	run_id        TEXT PRIMARY KEY,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL,
	window_start  TIMESTAMPTZ,
	window_end    TIMESTAMPTZ,
	rows          INTEGER NOT NULL,
	no_data_hours INTEGER NOT NULL,
	files         INTEGER NOT NULL,
	failed_files  INTEGER NOT NULL,
	passed        BOOLEAN NOT NULL,
	quality       JSONB NOT NULL
);`

const upsertHour = `
	INSERT INTO unified_hourly
		(time, pm25, pm10, o3, no2, so2, co, temperature, humidity, wind_speed, no_data_flag, run_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (time) DO UPDATE SET
		pm25 = EXCLUDED.pm25,
		pm10 = EXCLUDED.pm10,
		o3 = EXCLUDED.o3,
		no2 = EXCLUDED.no2,
		so2 = EXCLUDED.so2,
		co = EXCLUDED.co,
		temperature = EXCLUDED.temperature,
		humidity = EXCLUDED.humidity,
		wind_speed = EXCLUDED.wind_speed,
		no_data_flag = EXCLUDED.no_data_flag,
		run_id = EXCLUDED.run_id,
		updated_at = NOW()`

const insertRun = `
	INSERT INTO unify_runs
		(run_id, started_at, finished_at, window_start, window_end, rows, no_data_hours, files, failed_files, passed, quality)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (run_id) DO NOTHING`

// Store writes to a connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect opens a pool for url and verifies it with a ping.
func Connect(ctx context.Context, url string, logger *slog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Name() string { return "postgres" }

// Publish upserts every hour and records the run in one batch. It implements
// pipeline.Publisher.
func (s *Store) Publish(ctx context.Context, run domain.Run) error {
	runRow, err := runArgs(run)
	if err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, r := range run.Records {
		batch.Queue(upsertHour, hourArgs(run.ID, r)...)
	}
	batch.Queue(insertRun, runRow...)

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close() //nolint:errcheck // errors surface through Exec

	for range run.Records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert hour: %w", err)
		}
	}
	if _, err := br.Exec(); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	s.logger.Debug("hours upserted", "rows", len(run.Records), "run_id", run.ID)
	return nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// hourArgs lays out one record for upsertHour. Missing values become NULL.
func hourArgs(runID string, r domain.UnifiedRecord) []any {
	args := make([]any, 0, 12)
	args = append(args, r.Time.UTC())
	for _, v := range domain.CanonicalVariables() {
		args = append(args, domain.Nullable(r.Value(v)))
	}
	return append(args, r.NoDataFlag, runID)
}

func runArgs(run domain.Run) ([]any, error) {
	quality, err := json.Marshal(run.Quality)
	if err != nil {
		return nil, fmt.Errorf("encode quality report: %w", err)
	}
	return []any{
		run.ID,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
		nullTime(run.Quality.Start),
		nullTime(run.Quality.End),
		run.Quality.Rows,
		run.Quality.NoDataHours,
		run.Files,
		run.FailedFiles,
		run.Quality.Passed,
		quality,
	}, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
