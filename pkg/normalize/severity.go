package normalize

import (
	"strings"
	"unicode"
)

// Canonical severity levels.
const (
	SeverityLow    = "Low"
	SeverityMedium = "Medium"
	SeverityHigh   = "High"
)

var severityAlias = map[string]string{
	"info":          SeverityLow,
	"informational": SeverityLow,
	"low":           SeverityLow,
	"notice":        SeverityLow,
	"medium":        SeverityMedium,
	"moderate":      SeverityMedium,
	"warn":          SeverityMedium,
	"warning":       SeverityMedium,
	"high":          SeverityHigh,
	"critical":      SeverityHigh,
	"severe":        SeverityHigh,
	"error":         SeverityHigh,
}

// Severity maps free-text severity spellings onto the canonical levels.
// Unrecognized non-empty labels are capitalized and passed through so novel
// categories stay operator-visible instead of being forced into a bucket.
func Severity(value string) string {
	label := strings.TrimSpace(value)
	if label == "" {
		return SeverityLow
	}

	if mapped, ok := severityAlias[strings.ToLower(label)]; ok {
		return mapped
	}

	return capitalize(label)
}

func capitalize(s string) string {
	runes := []rune(s)

	return string(unicode.ToUpper(runes[0])) + strings.ToLower(string(runes[1:]))
}
