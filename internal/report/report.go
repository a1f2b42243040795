// Package report validates pipeline outputs after a load: it re-reads the
// CSV file and the relational table, checks the persisted data against the
// schema invariants, and writes a machine-readable JSON report.
package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Sia112904/etl-weather-pipeline/internal/sink"
)

// Limits are the accepted value ranges for persisted readings.
type Limits struct {
	TemperatureMin float64
	TemperatureMax float64
}

// Summary describes one checked output source.
type Summary struct {
	Rows    int      `json:"rows"`
	Columns []string `json:"columns,omitempty"`
}

// ValidationReport is the JSON document produced by a validation run.
// An empty Problems list means every check passed.
type ValidationReport struct {
	RunID       string             `json:"run_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Problems    []string           `json:"problems"`
	Summaries   map[string]Summary `json:"summaries"`
}

// Passed reports whether every check succeeded.
func (r *ValidationReport) Passed() bool {
	return len(r.Problems) == 0
}

// Validate checks the CSV sink and the relational sink against the schema
// invariants: required columns, value ranges, non-null fields, key
// uniqueness, and row-count agreement between the two sinks.
func Validate(ctx context.Context, csvPath, dbPath string, limits Limits) (*ValidationReport, error) {
	rep := &ValidationReport{
		RunID:       uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		Problems:    []string{},
		Summaries:   make(map[string]Summary),
	}

	csvRows := checkCSV(csvPath, limits, rep)
	dbRows, err := checkStore(ctx, dbPath, limits, rep)
	if err != nil {
		return nil, err
	}

	if csvRows >= 0 && dbRows >= 0 && csvRows != dbRows {
		rep.Problems = append(rep.Problems,
			fmt.Sprintf("row count mismatch: CSV has %d rows, database has %d", csvRows, dbRows))
	}

	return rep, nil
}

// Write persists the report as indented JSON.
func Write(path string, rep *ValidationReport) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// checkCSV validates the flat-file sink. Returns the row count, or -1 when
// the file could not be checked at all.
func checkCSV(path string, limits Limits, rep *ValidationReport) int {
	f, err := os.Open(path)
	if err != nil {
		rep.Problems = append(rep.Problems, fmt.Sprintf("[CSV] missing file: %s", path))
		return -1
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		rep.Problems = append(rep.Problems, fmt.Sprintf("[CSV] unreadable: %v", err))
		return -1
	}
	if len(records) == 0 {
		rep.Problems = append(rep.Problems, "[CSV] file has no header row")
		return -1
	}

	header := records[0]
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range sink.CSVHeader {
		if _, ok := col[required]; !ok {
			rep.Problems = append(rep.Problems, fmt.Sprintf("[CSV] missing required column: %s", required))
		}
	}

	type key struct {
		station string
		unix    int64
	}
	seen := make(map[key]bool)

	rows := records[1:]
	for i, row := range rows {
		line := i + 2 // 1-based, after header

		station := field(row, col, "station")
		if station == "" {
			rep.Problems = append(rep.Problems, fmt.Sprintf("[CSV] line %d: empty station", line))
		}

		unix, err := strconv.ParseInt(field(row, col, "timestamp_unix"), 10, 64)
		if err != nil {
			rep.Problems = append(rep.Problems, fmt.Sprintf("[CSV] line %d: bad timestamp_unix", line))
		} else {
			k := key{station: station, unix: unix}
			if seen[k] {
				rep.Problems = append(rep.Problems,
					fmt.Sprintf("[CSV] line %d: duplicate key (%s, %d)", line, station, unix))
			}
			seen[k] = true
		}

		if temp, err := strconv.ParseFloat(field(row, col, "temperature_c"), 64); err != nil {
			rep.Problems = append(rep.Problems, fmt.Sprintf("[CSV] line %d: bad temperature_c", line))
		} else if temp < limits.TemperatureMin || temp > limits.TemperatureMax {
			rep.Problems = append(rep.Problems,
				fmt.Sprintf("[CSV] line %d: temperature_c %.2f outside [%.1f, %.1f]",
					line, temp, limits.TemperatureMin, limits.TemperatureMax))
		}

		if h, err := strconv.ParseFloat(field(row, col, "humidity_percent"), 64); err != nil {
			rep.Problems = append(rep.Problems, fmt.Sprintf("[CSV] line %d: bad humidity_percent", line))
		} else if h < 0 || h > 100 {
			rep.Problems = append(rep.Problems,
				fmt.Sprintf("[CSV] line %d: humidity_percent %.2f outside [0, 100]", line, h))
		}
	}

	rep.Summaries["csv"] = Summary{Rows: len(rows), Columns: header}
	return len(rows)
}

// checkStore validates the relational sink. A missing or unopenable database
// is a resource error, not a data problem, so it is returned as an error.
func checkStore(ctx context.Context, dbPath string, limits Limits, rep *ValidationReport) (int, error) {
	store, err := sink.Open(dbPath)
	if err != nil {
		return -1, fmt.Errorf("failed to open store for validation: %w", err)
	}
	defer store.Close()

	readings, err := store.Readings(ctx)
	if err != nil {
		return -1, fmt.Errorf("failed to read store for validation: %w", err)
	}

	for i := range readings {
		r := &readings[i]
		where := fmt.Sprintf("(%s, %d)", r.Station, r.Timestamp.Unix())

		if err := r.Validate(); err != nil {
			rep.Problems = append(rep.Problems, fmt.Sprintf("[DB] row %s: %v", where, err))
			continue
		}
		if math.IsNaN(r.TemperatureC) || r.TemperatureC < limits.TemperatureMin || r.TemperatureC > limits.TemperatureMax {
			rep.Problems = append(rep.Problems,
				fmt.Sprintf("[DB] row %s: temperature_c %.2f outside [%.1f, %.1f]",
					where, r.TemperatureC, limits.TemperatureMin, limits.TemperatureMax))
		}
	}

	rep.Summaries["database"] = Summary{Rows: len(readings)}
	return len(readings), nil
}

func field(row []string, col map[string]int, name string) string {
	idx, ok := col[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}
