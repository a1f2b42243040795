// Package models defines the core domain entities for the weather ETL pipeline.
// A RawReading is an observation exactly as obtained from the source (all fields
// text, nothing validated); a Reading is its cleaned, typed, canonical form.
// Normalized models include built-in validation to ensure data integrity
// throughout the pipeline.
package models

import (
	"errors"
	"math"
	"time"
)

// RawReading represents a single unvalidated weather observation.
// Every measurement is kept as raw text so the normalizer owns all coercion.
// Fields the source did not provide are empty strings.
type RawReading struct {
	Station     string `json:"station,omitempty"` // city or station identifier, optional
	Timestamp   string `json:"timestamp"`         // unix seconds or a date-time string
	Temperature string `json:"temperature"`       // numeric-like text in source units
	Humidity    string `json:"humidity"`          // numeric-like text, percent
	FetchedAt   string `json:"fetched_at,omitempty"`
}

// Reading represents a normalized weather observation ready for persistence.
// Timestamp is always UTC; temperature is Celsius regardless of source units.
type Reading struct {
	Station      string    `json:"station"`
	Timestamp    time.Time `json:"timestamp"`
	TemperatureC float64   `json:"temperature_c"`
	HumidityPct  float64   `json:"humidity_percent"`

	// Derived fields, computed from the normalized fields above.
	DewPointC  float64 `json:"dew_point_c"`
	HeatIndexC float64 `json:"heat_index_c"`
	Date       string  `json:"recorded_date"` // YYYY-MM-DD, UTC
	Hour       int     `json:"recorded_hour"` // 0-23, UTC
}

// Validate checks that the reading satisfies the data-model invariants.
func (r *Reading) Validate() error {
	if r.Station == "" {
		return errors.New("station must not be empty")
	}
	if r.Timestamp.IsZero() {
		return errors.New("timestamp must not be zero")
	}
	if math.IsNaN(r.TemperatureC) || math.IsInf(r.TemperatureC, 0) {
		return errors.New("temperature must be a finite number")
	}
	if r.HumidityPct < 0.0 || r.HumidityPct > 100.0 {
		return errors.New("humidity must be between 0 and 100")
	}
	if r.Hour < 0 || r.Hour > 23 {
		return errors.New("hour must be between 0 and 23")
	}
	if r.Date == "" {
		return errors.New("date must not be empty")
	}
	return nil
}
