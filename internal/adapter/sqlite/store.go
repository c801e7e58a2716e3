// Package sqlite persists cleaned observations to an SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/couchcryptid/covid-data-tracker/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS observations (
	location           TEXT NOT NULL,
	iso_code           TEXT NOT NULL,
	date               TEXT NOT NULL,
	total_cases        REAL,
	total_deaths       REAL,
	total_vaccinations REAL,
	death_rate         REAL,
	run_id             TEXT NOT NULL,
	processed_at       TEXT NOT NULL,
	PRIMARY KEY (location, date)
)`

const upsert = `
INSERT INTO observations (
	location, iso_code, date, total_cases, total_deaths, total_vaccinations, death_rate, run_id, processed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (location, date) DO UPDATE SET
	iso_code = excluded.iso_code,
	total_cases = excluded.total_cases,
	total_deaths = excluded.total_deaths,
	total_vaccinations = excluded.total_vaccinations,
	death_rate = excluded.death_rate,
	run_id = excluded.run_id,
	processed_at = excluded.processed_at`

// Store writes observations into the observations table.
// It implements pipeline.Sink.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps in-memory databases and write transactions simple.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Name identifies the sink in logs and metrics.
func (s *Store) Name() string { return "sqlite" }

// Write upserts the batch in one transaction; rerunning on the same input
// leaves one row per (location, date).
func (s *Store) Write(ctx context.Context, batch domain.Batch) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	processedAt := batch.ProcessedAt.UTC().Format(time.RFC3339)
	for _, o := range batch.Observations {
		_, err = stmt.ExecContext(ctx,
			o.Location,
			o.ISOCode,
			o.Date.Format(domain.DateLayout),
			nullable(o.TotalCases),
			nullable(o.TotalDeaths),
			nullable(o.TotalVaccinations),
			nullable(o.DeathRate),
			batch.RunID,
			processedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", o.Key(), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("observations stored", "count", len(batch.Observations))
	return nil
}

// Count returns the number of stored observations.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM observations`).Scan(&n)
	return n, err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nullable(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
