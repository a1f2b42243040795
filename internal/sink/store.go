// Package sink persists normalized readings: a relational sqlite table keyed
// by (station, timestamp) and a flat CSV file mirroring the same schema.
//
// The relational write is idempotent (re-running a batch upserts on the key
// instead of duplicating rows) and transactional, so a failed batch leaves
// no partial writes. The CSV write is atomic (temp file then rename) and
// overwrites on rerun.
package sink

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Sia112904/etl-weather-pipeline/internal/models"
)

//go:embed sql/schema.sql
var schemaSQL string

//go:embed sql/upsert-reading.sql
var upsertReadingSQL string

//go:embed sql/get-readings.sql
var getReadingsSQL string

//go:embed sql/count-readings.sql
var countReadingsSQL string

// Store is the relational sink backed by sqlite.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the sqlite database and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WriteBatch upserts a batch of readings inside a single transaction.
// On any error the transaction is rolled back and nothing is persisted.
func (s *Store) WriteBatch(ctx context.Context, readings []models.Reading) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	stmt, err := tx.PrepareContext(ctx, upsertReadingSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for i := range readings {
		r := &readings[i]
		if err := r.Validate(); err != nil {
			return 0, fmt.Errorf("invalid reading for %s: %w", r.Station, err)
		}
		if _, err := stmt.ExecContext(ctx,
			r.Station,
			r.Timestamp.Unix(),
			r.TemperatureC,
			r.HumidityPct,
			r.DewPointC,
			r.HeatIndexC,
			r.Date,
			r.Hour,
		); err != nil {
			return 0, fmt.Errorf("failed to upsert reading: %w", err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}
	return written, nil
}

// Readings returns all persisted readings ordered by station then timestamp.
func (s *Store) Readings(ctx context.Context) ([]models.Reading, error) {
	rows, err := s.db.QueryContext(ctx, getReadingsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var out []models.Reading
	for rows.Next() {
		var r models.Reading
		var unix int64
		if err := rows.Scan(
			&r.Station,
			&unix,
			&r.TemperatureC,
			&r.HumidityPct,
			&r.DewPointC,
			&r.HeatIndexC,
			&r.Date,
			&r.Hour,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		r.Timestamp = time.Unix(unix, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of persisted readings.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countReadingsSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}
	return n, nil
}
