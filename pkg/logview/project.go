package logview

import (
	"sort"
	"strings"
	"time"

	"github.com/tinyids/console/pkg/models"
)

// Query selects and orders a slice of the merged collection for display.
// Zero values leave the corresponding filter off.
type Query struct {
	// Since and Until bound the time window, inclusive.
	Since time.Time
	Until time.Time

	// DeviceID keeps records for one device. Records lacking a direct device
	// id still match when Tokens maps their token back to the same device.
	DeviceID int
	Tokens   map[string]int

	// Text is a case-insensitive substring match over the display fields.
	Text string

	// SortAsc flips the default newest-first ordering.
	SortAsc bool

	// Page is 1-based; PerPage <= 0 disables paging.
	Page    int
	PerPage int
}

// Project derives a filtered, sorted, paged view of records. Filters run
// cheapest first: time window, then device correlation, then free text.
// Records are never mutated; the result is a fresh slice.
func Project(records []*models.LogRecord, q Query) []*models.LogRecord {
	out := make([]*models.LogRecord, 0, len(records))

	needle := strings.ToLower(strings.TrimSpace(q.Text))

	for _, record := range records {
		if record == nil {
			continue
		}

		if !q.Since.IsZero() && record.Timestamp.Before(q.Since) {
			continue
		}

		if !q.Until.IsZero() && record.Timestamp.After(q.Until) {
			continue
		}

		if q.DeviceID != 0 && !matchesDevice(record, q.DeviceID, q.Tokens) {
			continue
		}

		if needle != "" && !strings.Contains(searchText(record), needle) {
			continue
		}

		out = append(out, record)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if q.SortAsc {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}

		return out[i].Timestamp.After(out[j].Timestamp)
	})

	return page(out, q.Page, q.PerPage)
}

func matchesDevice(record *models.LogRecord, deviceID int, tokens map[string]int) bool {
	if record.DeviceID == deviceID {
		return true
	}

	// Push payloads often identify the origin only by token.
	if record.DeviceID == 0 && record.Token != "" {
		return tokens[record.Token] == deviceID
	}

	return false
}

func searchText(record *models.LogRecord) string {
	return strings.ToLower(strings.Join([]string{
		record.DeviceName,
		record.Type,
		record.AlertMessage,
		record.Description,
		record.Severity,
		record.SourceIP,
		record.DestinationIP,
	}, " "))
}

func page(records []*models.LogRecord, pageNum, perPage int) []*models.LogRecord {
	if perPage <= 0 {
		return records
	}

	if pageNum < 1 {
		pageNum = 1
	}

	start := (pageNum - 1) * perPage
	if start >= len(records) {
		return []*models.LogRecord{}
	}

	end := start + perPage
	if end > len(records) {
		end = len(records)
	}

	return records[start:end]
}
