package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Sia112904/etl-weather-pipeline/internal/models"
)

// CSVHeader is the column order of the flat-file sink, mirroring the
// relational schema.
var CSVHeader = []string{
	"station",
	"timestamp_unix",
	"temperature_c",
	"humidity_percent",
	"dew_point_c",
	"heat_index_c",
	"recorded_date",
	"recorded_hour",
}

// WriteCSV writes the batch to a CSV file mirroring the relational schema.
// The write is atomic: data goes to a temp file which is renamed into place,
// so a failed run never leaves a truncated file behind.
func WriteCSV(path string, readings []models.Reading) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}

	w := csv.NewWriter(f)
	writeErr := w.Write(CSVHeader)
	if writeErr == nil {
		for i := range readings {
			if writeErr = w.Write(csvRecord(&readings[i])); writeErr != nil {
				break
			}
		}
	}
	w.Flush()
	if writeErr == nil {
		writeErr = w.Error()
	}
	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to write CSV: %w", writeErr)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename CSV file: %w", err)
	}
	return nil
}

func csvRecord(r *models.Reading) []string {
	return []string{
		r.Station,
		strconv.FormatInt(r.Timestamp.Unix(), 10),
		strconv.FormatFloat(r.TemperatureC, 'f', 2, 64),
		strconv.FormatFloat(r.HumidityPct, 'f', 2, 64),
		strconv.FormatFloat(r.DewPointC, 'f', 2, 64),
		strconv.FormatFloat(r.HeatIndexC, 'f', 2, 64),
		r.Date,
		strconv.Itoa(r.Hour),
	}
}
