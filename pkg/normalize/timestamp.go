package normalize

import "time"

// Epoch values past this are millisecond stamps (seconds would put them
// beyond year 2286).
const maxEpochSeconds = 9999999999

// Naive ISO layouts appear on push events whose producers never attach a
// zone; they are treated as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// resolveTimestamp picks the first parsable timestamp candidate. A missing
// or unparsable stamp falls back to now so a wire hiccup never drops the
// record from the timeline.
func resolveTimestamp(raw map[string]interface{}, now time.Time) time.Time {
	v := lookup(raw, timestampKeys)

	switch value := v.(type) {
	case string:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, value); err == nil {
				return ts.UTC()
			}
		}
	case float64:
		return epochToTime(int64(value))
	case int:
		return epochToTime(int64(value))
	case int64:
		return epochToTime(value)
	}

	return now
}

func epochToTime(v int64) time.Time {
	if v > maxEpochSeconds {
		return time.UnixMilli(v).UTC()
	}

	return time.Unix(v, 0).UTC()
}
