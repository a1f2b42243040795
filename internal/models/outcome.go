package models

// DropReason identifies why the normalizer rejected a raw reading.
type DropReason string

const (
	// DropBadTimestamp means the timestamp was missing or matched no accepted format.
	DropBadTimestamp DropReason = "bad_timestamp"
	// DropBadTemperature means the temperature could not be coerced to a finite number.
	DropBadTemperature DropReason = "bad_temperature"
	// DropBadHumidity means the humidity could not be coerced to a number.
	DropBadHumidity DropReason = "bad_humidity"
)

// RowOutcome is the tagged result of normalizing a single raw reading:
// either a normalized Reading, or a DropReason explaining the rejection.
// A dropped row is a routine data condition, not an error.
type RowOutcome struct {
	Reading *Reading
	Reason  DropReason
	Detail  string // human-readable context for the drop, e.g. the offending value
}

// Dropped reports whether the raw reading was rejected.
func (o RowOutcome) Dropped() bool {
	return o.Reading == nil
}
