package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/tinyids/console/pkg/models"
)

// Overview fetches the dashboard aggregate, optionally scoped to one device
// by id or by MAC address.
func (c *Client) Overview(ctx context.Context, deviceID int, macAddress string) (*models.DashboardOverview, error) {
	query := url.Values{}
	if deviceID > 0 {
		query.Set("device_id", strconv.Itoa(deviceID))
	}

	if macAddress != "" {
		query.Set("mac_address", macAddress)
	}

	var overview models.DashboardOverview

	if err := c.get(ctx, "/dashboard", query, &overview); err != nil {
		return nil, err
	}

	return &overview, nil
}
