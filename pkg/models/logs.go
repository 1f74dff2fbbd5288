package models

import "time"

// LogRecord is the canonical representation of one intrusion event after
// normalization. Records arrive from the REST log listing and from live push
// events; both converge on this shape before merging.
type LogRecord struct {
	ID            string    `json:"id,omitempty"`
	DeviceID      int       `json:"device_id,omitempty"`
	DeviceName    string    `json:"device,omitempty"`
	Token         string    `json:"token,omitempty"`
	Severity      string    `json:"severity"`
	Type          string    `json:"type"`
	AlertMessage  string    `json:"alert_msg,omitempty"`
	Description   string    `json:"description"`
	SourceIP      string    `json:"source_ip,omitempty"`
	DestinationIP string    `json:"destination_ip,omitempty"`
	Timestamp     time.Time `json:"timestamp"`

	// Raw keeps the unnormalized payload for correlation lookups
	// (token, received_at, blocked_ips). Never serialized back out.
	Raw map[string]interface{} `json:"-"`
}

// Message returns the display message, preferring the alert text over the
// longer description.
func (r *LogRecord) Message() string {
	if r.AlertMessage != "" {
		return r.AlertMessage
	}

	return r.Description
}

// SeverityWindowCounts captures per-severity totals for a rolling window.
type SeverityWindowCounts struct {
	Total  int `json:"total"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
	Other  int `json:"other"`
}

// LogCounters tracks rolling window statistics for the merged log view.
type LogCounters struct {
	UpdatedAt time.Time            `json:"updated_at"`
	Window1H  SeverityWindowCounts `json:"window_1h"`
	Window24H SeverityWindowCounts `json:"window_24h"`
}
