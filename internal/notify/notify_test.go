package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/Sia112904/etl-weather-pipeline/internal/models"
	"github.com/Sia112904/etl-weather-pipeline/internal/normalize"
)

func TestFormatSummary(t *testing.T) {
	rep := normalize.Report{
		Input:      10,
		Normalized: 7,
		Dropped:    3,
		ByReason: map[models.DropReason]int{
			models.DropBadTimestamp:   2,
			models.DropBadTemperature: 1,
		},
	}

	message := formatSummary("Dallas,US", rep, 7, 1234*time.Millisecond)

	for _, want := range []string{
		"Station: Dallas,US",
		"Rows read: 10",
		"Normalized: 7",
		"Dropped: 3",
		"bad_timestamp: 2",
		"bad_temperature: 1",
		"Written: 7",
		"Duration: 1.234s",
	} {
		if !strings.Contains(message, want) {
			t.Errorf("summary missing %q:\n%s", want, message)
		}
	}

	// Reasons are listed in stable sorted order.
	if strings.Index(message, "bad_temperature") > strings.Index(message, "bad_timestamp") {
		t.Error("expected drop reasons sorted alphabetically")
	}
}
