package normalize

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Sia112904/etl-weather-pipeline/internal/models"
)

func testOptions() Options {
	return Options{
		Units: "metric",
		TimestampLayouts: []string{
			"2006-01-02 15:04:05",
			"2006-01-02 15:04",
			time.RFC3339,
		},
		DefaultStation: "Dallas",
	}
}

func TestRow_LosslessRetype(t *testing.T) {
	raw := models.RawReading{
		Timestamp:   "2025-01-01 08:00",
		Temperature: "15.5",
		Humidity:    "60",
	}

	outcome := Row(raw, testOptions())
	if outcome.Dropped() {
		t.Fatalf("expected normalized row, got drop: %s (%s)", outcome.Reason, outcome.Detail)
	}

	r := outcome.Reading
	want := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	if !r.Timestamp.Equal(want) {
		t.Errorf("expected timestamp %v, got %v", want, r.Timestamp)
	}
	if r.TemperatureC != 15.5 {
		t.Errorf("expected temperature 15.5, got %v", r.TemperatureC)
	}
	if r.HumidityPct != 60.0 {
		t.Errorf("expected humidity 60.0, got %v", r.HumidityPct)
	}
	if r.Station != "Dallas" {
		t.Errorf("expected default station, got %q", r.Station)
	}
	if r.Date != "2025-01-01" {
		t.Errorf("expected date 2025-01-01, got %q", r.Date)
	}
	if r.Hour != 8 {
		t.Errorf("expected hour 8, got %d", r.Hour)
	}
	if err := r.Validate(); err != nil {
		t.Errorf("normalized reading failed validation: %v", err)
	}
}

func TestRow_UnixSecondsTimestamp(t *testing.T) {
	raw := models.RawReading{
		Timestamp:   "1760316876",
		Temperature: "28.1",
		Humidity:    "46",
	}

	outcome := Row(raw, testOptions())
	if outcome.Dropped() {
		t.Fatalf("expected normalized row, got drop: %s", outcome.Reason)
	}
	if got := outcome.Reading.Timestamp.Unix(); got != 1760316876 {
		t.Errorf("expected unix 1760316876, got %d", got)
	}
	if outcome.Reading.Timestamp.Location() != time.UTC {
		t.Errorf("expected UTC timestamp, got %v", outcome.Reading.Timestamp.Location())
	}
}

func TestRow_DropReasons(t *testing.T) {
	tests := []struct {
		name   string
		raw    models.RawReading
		reason models.DropReason
	}{
		{
			name:   "unparseable timestamp",
			raw:    models.RawReading{Timestamp: "not-a-date", Temperature: "15.5", Humidity: "60"},
			reason: models.DropBadTimestamp,
		},
		{
			name:   "missing timestamp",
			raw:    models.RawReading{Temperature: "15.5", Humidity: "60"},
			reason: models.DropBadTimestamp,
		},
		{
			name:   "non-numeric temperature",
			raw:    models.RawReading{Timestamp: "2025-01-01 08:00", Temperature: "N/A", Humidity: "60"},
			reason: models.DropBadTemperature,
		},
		{
			name:   "missing temperature",
			raw:    models.RawReading{Timestamp: "2025-01-01 08:00", Humidity: "60"},
			reason: models.DropBadTemperature,
		},
		{
			name:   "non-numeric humidity",
			raw:    models.RawReading{Timestamp: "2025-01-01 08:00", Temperature: "15.5", Humidity: "sixty"},
			reason: models.DropBadHumidity,
		},
		{
			name:   "infinite temperature",
			raw:    models.RawReading{Timestamp: "2025-01-01 08:00", Temperature: "+Inf", Humidity: "60"},
			reason: models.DropBadTemperature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := Row(tt.raw, testOptions())
			if !outcome.Dropped() {
				t.Fatalf("expected drop, got normalized reading")
			}
			if outcome.Reason != tt.reason {
				t.Errorf("expected reason %s, got %s", tt.reason, outcome.Reason)
			}
		})
	}
}

func TestRow_HumidityClamped(t *testing.T) {
	tests := []struct {
		humidity string
		want     float64
	}{
		{"-5", 0},
		{"0", 0},
		{"100", 100},
		{"104.2", 100},
	}

	for _, tt := range tests {
		raw := models.RawReading{Timestamp: "2025-01-01 08:00", Temperature: "20", Humidity: tt.humidity}
		outcome := Row(raw, testOptions())
		if outcome.Dropped() {
			t.Fatalf("humidity %q: unexpected drop (%s)", tt.humidity, outcome.Reason)
		}
		if got := outcome.Reading.HumidityPct; got != tt.want {
			t.Errorf("humidity %q: expected %v, got %v", tt.humidity, tt.want, got)
		}
	}
}

func TestRow_UnitConversion(t *testing.T) {
	tests := []struct {
		units string
		raw   string
		want  float64
	}{
		{"metric", "20.05", 20.05},
		{"standard", "293.15", 20.0}, // Kelvin
		{"imperial", "68", 20.0},     // Fahrenheit
	}

	for _, tt := range tests {
		opts := testOptions()
		opts.Units = tt.units
		raw := models.RawReading{Timestamp: "2025-01-01 08:00", Temperature: tt.raw, Humidity: "50"}
		outcome := Row(raw, opts)
		if outcome.Dropped() {
			t.Fatalf("units %s: unexpected drop (%s)", tt.units, outcome.Reason)
		}
		if got := outcome.Reading.TemperatureC; math.Abs(got-tt.want) > 0.001 {
			t.Errorf("units %s: expected %v°C, got %v", tt.units, tt.want, got)
		}
	}
}

func TestRow_StationFromRawWins(t *testing.T) {
	raw := models.RawReading{
		Station:     "Austin",
		Timestamp:   "2025-01-01 08:00",
		Temperature: "20",
		Humidity:    "50",
	}
	outcome := Row(raw, testOptions())
	if outcome.Dropped() {
		t.Fatalf("unexpected drop: %s", outcome.Reason)
	}
	if outcome.Reading.Station != "Austin" {
		t.Errorf("expected raw station to win, got %q", outcome.Reading.Station)
	}
}

func TestBatch_DropAndCount(t *testing.T) {
	rows := []models.RawReading{
		{Timestamp: "2025-01-01 08:00", Temperature: "15.5", Humidity: "60"},
		{Timestamp: "not-a-date", Temperature: "15.5", Humidity: "60"},
		{Timestamp: "2025-01-01 09:00", Temperature: "N/A", Humidity: "60"},
		{Timestamp: "2025-01-01 10:00", Temperature: "16.1", Humidity: "61"},
	}

	readings, rep, err := Batch(rows, testOptions())
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}

	if rep.Input != 4 {
		t.Errorf("expected input 4, got %d", rep.Input)
	}
	if rep.Normalized != 2 || len(readings) != 2 {
		t.Errorf("expected 2 normalized, got %d (report %d)", len(readings), rep.Normalized)
	}
	if rep.Dropped != 2 {
		t.Errorf("expected 2 dropped, got %d", rep.Dropped)
	}
	if rep.ByReason[models.DropBadTimestamp] != 1 {
		t.Errorf("expected 1 bad timestamp, got %d", rep.ByReason[models.DropBadTimestamp])
	}
	if rep.ByReason[models.DropBadTemperature] != 1 {
		t.Errorf("expected 1 bad temperature, got %d", rep.ByReason[models.DropBadTemperature])
	}
}

func TestBatch_PreservesInputOrder(t *testing.T) {
	// Deliberately out of chronological order; the normalizer must not sort.
	rows := []models.RawReading{
		{Timestamp: "2025-01-02 08:00", Temperature: "10", Humidity: "50"},
		{Timestamp: "2025-01-01 08:00", Temperature: "11", Humidity: "51"},
		{Timestamp: "2025-01-03 08:00", Temperature: "12", Humidity: "52"},
	}

	readings, _, err := Batch(rows, testOptions())
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(readings))
	}
	for i, wantTemp := range []float64{10, 11, 12} {
		if readings[i].TemperatureC != wantTemp {
			t.Errorf("position %d: expected temperature %v, got %v", i, wantTemp, readings[i].TemperatureC)
		}
	}
}

func TestBatch_DuplicatesPassThrough(t *testing.T) {
	row := models.RawReading{Timestamp: "2025-01-01 08:00", Temperature: "15.5", Humidity: "60"}
	readings, _, err := Batch([]models.RawReading{row, row}, testOptions())
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
	if len(readings) != 2 {
		t.Errorf("normalizer must not deduplicate: expected 2 readings, got %d", len(readings))
	}
}

func TestBatch_EmptyInputIsFatal(t *testing.T) {
	_, _, err := Batch(nil, testOptions())
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestBatch_InvariantsHold(t *testing.T) {
	rows := []models.RawReading{
		{Timestamp: "2025-06-01 12:00", Temperature: "35.2", Humidity: "80"},
		{Timestamp: "2025-06-01 13:00", Temperature: "-10", Humidity: "150"},
		{Timestamp: "2025-06-01 14:00", Temperature: "0", Humidity: "-3"},
	}

	readings, _, err := Batch(rows, testOptions())
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
	for i := range readings {
		r := &readings[i]
		if err := r.Validate(); err != nil {
			t.Errorf("reading %d violates invariants: %v", i, err)
		}
		if r.HumidityPct < 0 || r.HumidityPct > 100 {
			t.Errorf("reading %d: humidity %v outside [0, 100]", i, r.HumidityPct)
		}
		if math.IsNaN(r.TemperatureC) || math.IsInf(r.TemperatureC, 0) {
			t.Errorf("reading %d: temperature not finite", i)
		}
	}
}
