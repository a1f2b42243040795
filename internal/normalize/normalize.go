// Package normalize implements the cleaning and enrichment stage of the
// pipeline. It turns raw text readings into typed, canonical-form readings.
//
// Per-row failures follow a drop-and-count policy: a malformed row produces a
// RowOutcome carrying a DropReason instead of an error, and the batch report
// tallies drops per reason. The only fatal condition is an empty input batch,
// which indicates an upstream contract violation rather than dirty data.
//
// Row is pure and carries no cross-row state: input order is preserved and
// rows are never sorted, deduplicated, or reconciled against each other.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Sia112904/etl-weather-pipeline/internal/models"
)

// ErrEmptyInput signals a structurally empty batch; the run must abort.
var ErrEmptyInput = errors.New("input batch is empty")

// Options controls how raw readings are interpreted.
type Options struct {
	// Units is the source temperature unit: "metric" (Celsius),
	// "imperial" (Fahrenheit) or "standard" (Kelvin).
	Units string

	// TimestampLayouts are Go time layouts tried in order when the raw
	// timestamp is not unix seconds. First match wins.
	TimestampLayouts []string

	// DefaultStation is used when a raw reading carries no station.
	DefaultStation string
}

// Report summarizes a batch normalization run.
type Report struct {
	Input      int
	Normalized int
	Dropped    int
	ByReason   map[models.DropReason]int
}

// Row normalizes a single raw reading. The outcome is either a normalized
// reading satisfying the data-model invariants, or a drop with a reason.
func Row(raw models.RawReading, opts Options) models.RowOutcome {
	ts, err := parseTimestamp(raw.Timestamp, opts.TimestampLayouts)
	if err != nil {
		return models.RowOutcome{
			Reason: models.DropBadTimestamp,
			Detail: fmt.Sprintf("timestamp %q: %v", raw.Timestamp, err),
		}
	}

	temp, err := parseMeasurement(raw.Temperature)
	if err != nil {
		return models.RowOutcome{
			Reason: models.DropBadTemperature,
			Detail: fmt.Sprintf("temperature %q: %v", raw.Temperature, err),
		}
	}
	tempC := round2(toCelsius(temp, opts.Units))

	humidity, err := parseMeasurement(raw.Humidity)
	if err != nil {
		return models.RowOutcome{
			Reason: models.DropBadHumidity,
			Detail: fmt.Sprintf("humidity %q: %v", raw.Humidity, err),
		}
	}
	humidity = clamp(humidity, 0, 100)

	station := strings.TrimSpace(raw.Station)
	if station == "" {
		station = opts.DefaultStation
	}

	reading := &models.Reading{
		Station:      station,
		Timestamp:    ts,
		TemperatureC: tempC,
		HumidityPct:  humidity,
		DewPointC:    round2(dewPoint(tempC, humidity)),
		HeatIndexC:   round2(heatIndex(tempC, humidity)),
		Date:         ts.Format("2006-01-02"),
		Hour:         ts.Hour(),
	}

	return models.RowOutcome{Reading: reading}
}

// Batch normalizes raw readings in input order, dropping and counting
// malformed rows. It returns ErrEmptyInput when there is nothing to process.
func Batch(rows []models.RawReading, opts Options) ([]models.Reading, Report, error) {
	report := Report{
		Input:    len(rows),
		ByReason: make(map[models.DropReason]int),
	}

	if len(rows) == 0 {
		return nil, report, ErrEmptyInput
	}

	readings := make([]models.Reading, 0, len(rows))
	for _, raw := range rows {
		outcome := Row(raw, opts)
		if outcome.Dropped() {
			report.Dropped++
			report.ByReason[outcome.Reason]++
			continue
		}
		readings = append(readings, *outcome.Reading)
	}
	report.Normalized = len(readings)

	return readings, report, nil
}

// parseTimestamp parses a raw timestamp into a canonical UTC time. Unix epoch
// seconds (integer or fractional text) are tried first, then the configured
// layouts in order; layouts without a zone are interpreted as UTC.
func parseTimestamp(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("missing")
	}

	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
			return time.Time{}, errors.New("epoch seconds out of range")
		}
		sec, frac := math.Modf(secs)
		return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(), nil
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("matches no accepted format")
}

// parseMeasurement coerces numeric-like text to a finite float.
func parseMeasurement(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("missing")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("not numeric")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not finite")
	}
	return v, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
