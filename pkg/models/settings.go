package models

import (
	"fmt"
	"strings"
	"time"
)

// SystemSettings holds account-wide retention and notification knobs.
type SystemSettings struct {
	LogRetentionDays    int  `json:"log_retention_days"`
	AttackNotifications bool `json:"attack_notifications"`
	CooldownSeconds     int  `json:"cooldown_seconds"`
}

// DashboardSettings controls the dashboard timeframe and widget visibility.
type DashboardSettings struct {
	GraphTimeframe   string          `json:"graph_timeframe,omitempty"`
	TimeframeMinutes int             `json:"timeframe_minutes"`
	Widgets          map[string]bool `json:"widgets,omitempty"`
	WidgetsVisible   map[string]bool `json:"widgets_visible,omitempty"`
	UpdatedAt        string          `json:"updated_at,omitempty"`
}

// SettingsSnapshot is the raw configuration map a sensor reports in response
// to a show-settings command. Devices spell keys inconsistently, so typed
// access goes through the helper methods instead of struct fields.
type SettingsSnapshot map[string]interface{}

// Token returns the device token embedded in the snapshot, or "".
func (s SettingsSnapshot) Token() string {
	return s.stringValue("token")
}

// ReceivedAt reports when the backend recorded the snapshot. The zero time
// means the snapshot carries no usable receipt stamp.
func (s SettingsSnapshot) ReceivedAt() time.Time {
	for _, key := range []string{"received_at", "_received_at"} {
		raw, ok := s[key]
		if !ok {
			continue
		}

		switch v := raw.(type) {
		case string:
			if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(v)); err == nil {
				return ts
			}
		case float64:
			return time.Unix(int64(v), 0).UTC()
		}
	}

	return time.Time{}
}

// BlockedIPs returns the snapshot's block list. Sensors report it either as
// a comma-separated string or as a JSON array, under two key spellings.
func (s SettingsSnapshot) BlockedIPs() []string {
	var raw interface{}

	for _, key := range []string{"blocked_ips", "BLOCKED_IPS"} {
		if v, ok := s[key]; ok && v != nil {
			raw = v
			break
		}
	}

	switch v := raw.(type) {
	case string:
		var ips []string

		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				ips = append(ips, trimmed)
			}
		}

		return ips
	case []interface{}:
		var ips []string

		for _, item := range v {
			if trimmed := strings.TrimSpace(fmt.Sprintf("%v", item)); trimmed != "" {
				ips = append(ips, trimmed)
			}
		}

		return ips
	default:
		return nil
	}
}

func (s SettingsSnapshot) stringValue(key string) string {
	raw, ok := s[key]
	if !ok || raw == nil {
		return ""
	}

	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}

		return fmt.Sprintf("%v", v)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}
