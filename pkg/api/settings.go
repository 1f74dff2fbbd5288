package api

import (
	"context"

	"github.com/tinyids/console/pkg/models"
)

// SystemSettings returns the account's retention and notification knobs.
func (c *Client) SystemSettings(ctx context.Context) (*models.SystemSettings, error) {
	var settings models.SystemSettings

	if err := c.get(ctx, "/settings/system", nil, &settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

// UpdateSystemSettings stores the retention and notification knobs.
func (c *Client) UpdateSystemSettings(ctx context.Context, settings models.SystemSettings) error {
	return c.put(ctx, "/settings/system", settings, nil)
}

// DashboardSettings returns the caller's dashboard layout.
func (c *Client) DashboardSettings(ctx context.Context) (*models.DashboardSettings, error) {
	var settings models.DashboardSettings

	if err := c.get(ctx, "/dashboard-settings/me", nil, &settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

// UpdateDashboardSettings stores the caller's dashboard layout and returns
// the normalized result.
func (c *Client) UpdateDashboardSettings(ctx context.Context, settings models.DashboardSettings) (*models.DashboardSettings, error) {
	var updated models.DashboardSettings

	if err := c.put(ctx, "/dashboard-settings/me", settings, &updated); err != nil {
		return nil, err
	}

	return &updated, nil
}
