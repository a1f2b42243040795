package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sia112904/etl-weather-pipeline/internal/models"
	"github.com/Sia112904/etl-weather-pipeline/internal/sink"
)

func testLimits() Limits {
	return Limits{TemperatureMin: -60, TemperatureMax: 60}
}

func testBatch() []models.Reading {
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	readings := make([]models.Reading, 3)
	for i := range readings {
		ts := start.Add(time.Duration(i) * time.Hour)
		readings[i] = models.Reading{
			Station:      "Dallas",
			Timestamp:    ts,
			TemperatureC: 15.5 + float64(i),
			HumidityPct:  60,
			DewPointC:    7.7,
			HeatIndexC:   15.5 + float64(i),
			Date:         ts.Format("2006-01-02"),
			Hour:         ts.Hour(),
		}
	}
	return readings
}

// writeSinks persists the batch through both sinks, the way a load does.
func writeSinks(t *testing.T, dir string, readings []models.Reading) (csvPath, dbPath string) {
	t.Helper()
	csvPath = filepath.Join(dir, "clean.csv")
	dbPath = filepath.Join(dir, "weather.db")

	store, err := sink.Open(dbPath)
	if err != nil {
		t.Fatalf("sink.Open failed: %v", err)
	}
	defer store.Close()

	if _, err := store.WriteBatch(context.Background(), readings); err != nil {
		t.Fatalf("WriteBatch failed: %v", err)
	}
	if err := sink.WriteCSV(csvPath, readings); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	return csvPath, dbPath
}

func TestValidate_CleanOutputsPass(t *testing.T) {
	csvPath, dbPath := writeSinks(t, t.TempDir(), testBatch())

	rep, err := Validate(context.Background(), csvPath, dbPath, testLimits())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !rep.Passed() {
		t.Errorf("expected a passing report, got problems: %v", rep.Problems)
	}
	if rep.Summaries["csv"].Rows != 3 || rep.Summaries["database"].Rows != 3 {
		t.Errorf("unexpected summaries: %+v", rep.Summaries)
	}
	if rep.RunID == "" {
		t.Error("expected a run ID")
	}
}

func TestValidate_RowCountMismatch(t *testing.T) {
	dir := t.TempDir()
	batch := testBatch()
	csvPath, dbPath := writeSinks(t, dir, batch)

	// Rewrite the CSV with one row missing.
	if err := sink.WriteCSV(csvPath, batch[:2]); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	rep, err := Validate(context.Background(), csvPath, dbPath, testLimits())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if rep.Passed() {
		t.Fatal("expected the mismatch to be reported")
	}
	if !hasProblem(rep, "row count mismatch") {
		t.Errorf("expected a row count mismatch problem, got %v", rep.Problems)
	}
}

func TestValidate_OutOfRangeTemperature(t *testing.T) {
	batch := testBatch()
	batch[1].TemperatureC = 120.0
	batch[1].HeatIndexC = 120.0
	csvPath, dbPath := writeSinks(t, t.TempDir(), batch)

	rep, err := Validate(context.Background(), csvPath, dbPath, testLimits())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if rep.Passed() {
		t.Fatal("expected range problems")
	}
	// The bad value is reported from both sinks.
	if !hasProblem(rep, "[CSV]") || !hasProblem(rep, "[DB]") {
		t.Errorf("expected problems from both sinks, got %v", rep.Problems)
	}
}

func TestValidate_MissingCSVIsAProblemNotAnError(t *testing.T) {
	dir := t.TempDir()
	_, dbPath := writeSinks(t, dir, testBatch())

	rep, err := Validate(context.Background(), filepath.Join(dir, "nope.csv"), dbPath, testLimits())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !hasProblem(rep, "missing file") {
		t.Errorf("expected a missing-file problem, got %v", rep.Problems)
	}
}

func TestValidate_DuplicateCSVKey(t *testing.T) {
	dir := t.TempDir()
	batch := testBatch()
	csvPath, dbPath := writeSinks(t, dir, batch)

	// Duplicate the first row in the CSV only.
	if err := sink.WriteCSV(csvPath, append(batch, batch[0])); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	rep, err := Validate(context.Background(), csvPath, dbPath, testLimits())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !hasProblem(rep, "duplicate key") {
		t.Errorf("expected a duplicate key problem, got %v", rep.Problems)
	}
}

func TestWrite_ProducesReadableJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "validation_report.json")
	rep := &ValidationReport{
		RunID:       "test-run",
		GeneratedAt: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
		Problems:    []string{},
		Summaries:   map[string]Summary{"csv": {Rows: 3}},
	}

	if err := Write(path, rep); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	var got ValidationReport
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if got.RunID != "test-run" || !got.Passed() {
		t.Errorf("unexpected report round trip: %+v", got)
	}
}

func hasProblem(rep *ValidationReport, substr string) bool {
	for _, p := range rep.Problems {
		if strings.Contains(p, substr) {
			return true
		}
	}
	return false
}
