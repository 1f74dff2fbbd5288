package logview

import (
	"time"

	"github.com/tinyids/console/pkg/models"
	"github.com/tinyids/console/pkg/normalize"
)

// Counts tallies records per severity over rolling 1h and 24h windows ending
// at now. Records with zero timestamps count toward neither window.
func Counts(records []*models.LogRecord, now time.Time) models.LogCounters {
	counters := models.LogCounters{UpdatedAt: now}

	cutoff1h := now.Add(-time.Hour)
	cutoff24h := now.Add(-24 * time.Hour)

	for _, record := range records {
		if record == nil || record.Timestamp.IsZero() || record.Timestamp.After(now) {
			continue
		}

		if !record.Timestamp.Before(cutoff24h) {
			bump(&counters.Window24H, record.Severity)

			if !record.Timestamp.Before(cutoff1h) {
				bump(&counters.Window1H, record.Severity)
			}
		}
	}

	return counters
}

func bump(counts *models.SeverityWindowCounts, severity string) {
	switch severity {
	case normalize.SeverityHigh:
		counts.High++
	case normalize.SeverityMedium:
		counts.Medium++
	case normalize.SeverityLow:
		counts.Low++
	default:
		counts.Other++
	}

	counts.Total++
}
