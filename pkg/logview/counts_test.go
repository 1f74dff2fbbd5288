package logview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tinyids/console/pkg/models"
)

func TestCountsRollingWindows(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	records := []*models.LogRecord{
		{ID: "1", Severity: "High", Timestamp: now.Add(-30 * time.Minute)},
		{ID: "2", Severity: "Medium", Timestamp: now.Add(-45 * time.Minute)},
		{ID: "3", Severity: "Low", Timestamp: now.Add(-2 * time.Hour)},
		{ID: "4", Severity: "Zeroday", Timestamp: now.Add(-20 * time.Hour)},
		// Beyond 24h, in the future, or undated: counted nowhere.
		{ID: "5", Severity: "High", Timestamp: now.Add(-25 * time.Hour)},
		{ID: "6", Severity: "High", Timestamp: now.Add(time.Hour)},
		{ID: "7", Severity: "High", Timestamp: time.Time{}},
	}

	counters := Counts(records, now)

	assert.Equal(t, now, counters.UpdatedAt)

	assert.Equal(t, 2, counters.Window1H.Total)
	assert.Equal(t, 1, counters.Window1H.High)
	assert.Equal(t, 1, counters.Window1H.Medium)
	assert.Equal(t, 0, counters.Window1H.Low)

	assert.Equal(t, 4, counters.Window24H.Total)
	assert.Equal(t, 1, counters.Window24H.High)
	assert.Equal(t, 1, counters.Window24H.Medium)
	assert.Equal(t, 1, counters.Window24H.Low)
	assert.Equal(t, 1, counters.Window24H.Other)
}

func TestCountsEmpty(t *testing.T) {
	counters := Counts(nil, time.Now())

	assert.Zero(t, counters.Window1H.Total)
	assert.Zero(t, counters.Window24H.Total)
}
