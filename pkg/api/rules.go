package api

import (
	"context"
	"fmt"

	"github.com/tinyids/console/pkg/models"
)

// Rules lists the account's detection rules, newest first.
func (c *Client) Rules(ctx context.Context) ([]models.Rule, error) {
	var rules []models.Rule

	if err := c.get(ctx, "/rules", nil, &rules); err != nil {
		return nil, err
	}

	return rules, nil
}

// CreateRule stores a detection rule. Name is required; the backend fills
// the remaining defaults.
func (c *Client) CreateRule(ctx context.Context, rule models.Rule) (*models.Rule, error) {
	var created models.Rule

	if err := c.post(ctx, "/rules", rule, &created); err != nil {
		return nil, err
	}

	return &created, nil
}

// UpdateRule rewrites an existing rule.
func (c *Client) UpdateRule(ctx context.Context, ruleID int, rule models.Rule) (*models.Rule, error) {
	var updated models.Rule

	if err := c.put(ctx, fmt.Sprintf("/rules/%d", ruleID), rule, &updated); err != nil {
		return nil, err
	}

	return &updated, nil
}

// DeleteRule removes a rule.
func (c *Client) DeleteRule(ctx context.Context, ruleID int) error {
	return c.del(ctx, fmt.Sprintf("/rules/%d", ruleID))
}

// DeviceRule returns the per-device detection profile. The backend creates
// the default profile on first read.
func (c *Client) DeviceRule(ctx context.Context, deviceID int) (*models.DeviceRule, error) {
	var rule models.DeviceRule

	if err := c.get(ctx, fmt.Sprintf("/device-rules/%d", deviceID), nil, &rule); err != nil {
		return nil, err
	}

	return &rule, nil
}

// UpdateDeviceRule rewrites the per-device detection profile. The backend
// requires MACAddress.
func (c *Client) UpdateDeviceRule(ctx context.Context, deviceID int, rule models.DeviceRule) (*models.DeviceRule, error) {
	var updated models.DeviceRule

	if err := c.put(ctx, fmt.Sprintf("/device-rules/%d", deviceID), rule, &updated); err != nil {
		return nil, err
	}

	return &updated, nil
}
