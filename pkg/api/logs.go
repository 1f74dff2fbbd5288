package api

import (
	"context"
	"net/url"
)

// CreateLogRequest is the body for injecting one event row. Either DeviceID
// or DeviceName must reference a registered device.
type CreateLogRequest struct {
	DeviceID      int                    `json:"device_id,omitempty"`
	DeviceName    string                 `json:"device_name,omitempty"`
	Severity      string                 `json:"severity,omitempty"`
	SourceIP      string                 `json:"source_ip,omitempty"`
	DestinationIP string                 `json:"destination_ip,omitempty"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
}

// Logs returns the newest stored events, optionally filtered by severity.
// Rows come back raw so the normalizer can deal with shape drift in one
// place.
func (c *Client) Logs(ctx context.Context, severity string) ([]map[string]interface{}, error) {
	query := url.Values{}
	if severity != "" {
		query.Set("severity", severity)
	}

	var rows []map[string]interface{}

	if err := c.get(ctx, "/logs", query, &rows); err != nil {
		return nil, err
	}

	if c.logger != nil {
		c.logger.Debug().Int("row_count", len(rows)).Msg("Fetched stored logs")
	}

	return rows, nil
}

// CreateLog stores one event row and returns it as serialized by the
// backend.
func (c *Client) CreateLog(ctx context.Context, req CreateLogRequest) (map[string]interface{}, error) {
	var row map[string]interface{}

	if err := c.post(ctx, "/logs", req, &row); err != nil {
		return nil, err
	}

	return row, nil
}
