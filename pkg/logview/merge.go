// Package logview reconciles polled log snapshots with live push events into
// one bounded, newest-first collection, and derives filtered projections of
// it for display. Everything here is pure: callers own the collection and
// re-invoke these functions on every poll tick and push event.
package logview

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tinyids/console/pkg/models"
)

// DefaultLimit bounds the merged collection when the caller passes no limit.
const DefaultLimit = 200

// Merge combines freshly arrived records with the previously held collection
// into a deduplicated, newest-first, size-bounded list. Incoming records are
// scanned first, so on an identity collision the fresh copy wins. Records are
// dropped when either their id or their content signature was already seen;
// the signature suppresses duplicate pushes that carry no stable id.
//
// Merge never mutates its inputs and is idempotent: feeding its own output
// back in changes nothing.
func Merge(incoming, existing []*models.LogRecord, limit int) []*models.LogRecord {
	if limit <= 0 {
		limit = DefaultLimit
	}

	seenIDs := make(map[string]struct{}, len(incoming)+len(existing))
	seenSignatures := make(map[string]struct{}, len(incoming)+len(existing))
	merged := make([]*models.LogRecord, 0, len(incoming)+len(existing))

	admit := func(record *models.LogRecord) {
		if record == nil {
			return
		}

		signature := Signature(record)
		if _, dup := seenSignatures[signature]; dup {
			return
		}

		if record.ID != "" {
			if _, dup := seenIDs[record.ID]; dup {
				return
			}

			seenIDs[record.ID] = struct{}{}
		}

		seenSignatures[signature] = struct{}{}
		merged = append(merged, record)
	}

	for _, record := range incoming {
		admit(record)
	}

	for _, record := range existing {
		admit(record)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		ti, tj := merged[i].Timestamp, merged[j].Timestamp

		// Zero timestamps sink to the tail instead of being dropped: a wire
		// hiccup must not silently lose events.
		switch {
		case ti.IsZero():
			return false
		case tj.IsZero():
			return true
		default:
			return ti.After(tj)
		}
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}

	return merged
}

// Signature derives the content identity that stands in for records without
// a stable id: device, type, message, source IP, and the second-truncated
// timestamp joined in fixed order.
func Signature(record *models.LogRecord) string {
	var seconds int64
	if !record.Timestamp.IsZero() {
		seconds = record.Timestamp.Unix()
	}

	return strings.Join([]string{
		record.DeviceName,
		record.Type,
		record.Message(),
		record.SourceIP,
		fmt.Sprintf("%d", seconds),
	}, "|")
}
