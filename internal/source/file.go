// Package source obtains raw weather readings, either from local files or
// from the OpenWeatherMap API. Readers yield rows exactly as found, with
// every field as raw text; all cleaning belongs to the normalize package.
package source

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sia112904/etl-weather-pipeline/internal/models"
)

// recordListKeys are top-level object keys commonly wrapping a list of records.
var recordListKeys = []string{"records", "list", "data", "rows", "items"}

// Field name aliases accepted when mapping loosely-shaped input onto RawReading.
var (
	stationAliases     = []string{"station", "city", "name", "location"}
	timestampAliases   = []string{"timestamp", "dt", "ts", "time", "timestamp_unix"}
	temperatureAliases = []string{"temperature", "temp", "temperature_c", "temp_celsius"}
	humidityAliases    = []string{"humidity", "humidity_percent", "humid"}
	fetchedAtAliases   = []string{"fetched_at", "fetchedat"}
)

// ReadFile reads raw readings from a file. Supported shapes: a JSON object
// (one reading), a JSON array, newline-delimited JSON, or CSV with a header
// row. The format is chosen by extension, falling back to JSON then CSV.
// A file that matches none of these is a structural error.
func ReadFile(path string) ([]models.RawReading, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		return parseCSV(data)
	case ".json", ".ndjson", ".jsonl":
		return parseJSON(data)
	default:
		rows, jsonErr := parseJSON(data)
		if jsonErr == nil {
			return rows, nil
		}
		rows, csvErr := parseCSV(data)
		if csvErr == nil {
			return rows, nil
		}
		return nil, fmt.Errorf("unrecognized source format: %v", jsonErr)
	}
}

// WriteRaw writes raw readings as newline-delimited JSON, one object per line.
func WriteRaw(path string, rows []models.RawReading) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create raw data directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create raw data file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to encode raw reading: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush raw data file: %w", err)
	}
	return nil
}

// AppendRaw appends one raw reading to a newline-delimited JSON file,
// creating it if needed. Repeated fetches accumulate into one batch.
func AppendRaw(path string, row models.RawReading) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create raw data directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open raw data file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(row); err != nil {
		return fmt.Errorf("failed to append raw reading: %w", err)
	}
	return nil
}

// parseJSON handles a single object, an array of objects, an object wrapping a
// record list under a well-known key, or NDJSON.
func parseJSON(data []byte) ([]models.RawReading, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, nil
	}

	// NDJSON: multiple lines, each its own object.
	if strings.HasPrefix(text, "{") && strings.Contains(text, "\n") {
		if rows, ok := parseNDJSON(text); ok {
			return rows, nil
		}
	}

	var v interface{}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch value := v.(type) {
	case []interface{}:
		return recordsToRows(value)
	case map[string]interface{}:
		for _, key := range recordListKeys {
			if list, ok := value[key].([]interface{}); ok {
				return recordsToRows(list)
			}
		}
		// A bare object is a single record.
		return []models.RawReading{recordToRow(value)}, nil
	default:
		return nil, fmt.Errorf("unsupported JSON structure")
	}
}

func parseNDJSON(text string) ([]models.RawReading, bool) {
	var rows []models.RawReading
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var record map[string]interface{}
		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()
		if err := dec.Decode(&record); err != nil {
			return nil, false
		}
		rows = append(rows, recordToRow(record))
	}
	return rows, len(rows) > 1
}

func recordsToRows(records []interface{}) ([]models.RawReading, error) {
	rows := make([]models.RawReading, 0, len(records))
	for i, rec := range records {
		obj, ok := rec.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("record %d is not an object", i)
		}
		rows = append(rows, recordToRow(obj))
	}
	return rows, nil
}

// recordToRow maps a loosely-keyed record onto a RawReading, stringifying
// values without interpreting them.
func recordToRow(record map[string]interface{}) models.RawReading {
	lower := make(map[string]interface{}, len(record))
	for k, v := range record {
		lower[strings.ToLower(k)] = v
	}
	return models.RawReading{
		Station:     lookup(lower, stationAliases),
		Timestamp:   lookup(lower, timestampAliases),
		Temperature: lookup(lower, temperatureAliases),
		Humidity:    lookup(lower, humidityAliases),
		FetchedAt:   lookup(lower, fetchedAtAliases),
	}
}

func lookup(record map[string]interface{}, aliases []string) string {
	for _, alias := range aliases {
		if v, ok := record[alias]; ok {
			return rawString(v)
		}
	}
	return ""
}

func rawString(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case json.Number:
		return value.String()
	default:
		return fmt.Sprintf("%v", value)
	}
}

// parseCSV reads rows from CSV with a header line mapping columns by alias.
func parseCSV(data []byte) ([]models.RawReading, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	index := func(aliases []string) int {
		for i, col := range header {
			name := strings.ToLower(strings.TrimSpace(col))
			for _, alias := range aliases {
				if name == alias {
					return i
				}
			}
		}
		return -1
	}

	stationIdx := index(stationAliases)
	timestampIdx := index(timestampAliases)
	temperatureIdx := index(temperatureAliases)
	humidityIdx := index(humidityAliases)
	fetchedAtIdx := index(fetchedAtAliases)

	if timestampIdx < 0 && temperatureIdx < 0 && humidityIdx < 0 {
		return nil, fmt.Errorf("CSV header has none of the expected columns")
	}

	field := func(row []string, idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	rows := make([]models.RawReading, 0, len(records)-1)
	for _, row := range records[1:] {
		rows = append(rows, models.RawReading{
			Station:     field(row, stationIdx),
			Timestamp:   field(row, timestampIdx),
			Temperature: field(row, temperatureIdx),
			Humidity:    field(row, humidityIdx),
			FetchedAt:   field(row, fetchedAtIdx),
		})
	}
	return rows, nil
}
