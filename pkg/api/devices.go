/*
 * Copyright 2025 the TinyIDS Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tinyids/console/pkg/models"
)

const settingsNotReadyMessage = "settings not available yet"

// RegisterDeviceRequest creates a sensor record. Name and ESPID are
// required.
type RegisterDeviceRequest struct {
	Name       string `json:"name"`
	ESPID      string `json:"esp_id"`
	Token      string `json:"token,omitempty"`
	IsActive   bool   `json:"is_active,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
	MACAddress string `json:"mac_address,omitempty"`
}

// WifiUpdate rewrites a device's Wi-Fi profile. A nil Password leaves the
// stored secret alone.
type WifiUpdate struct {
	SSID     string  `json:"ssid"`
	Password *string `json:"password,omitempty"`
}

// MQTTUpdate rewrites a device's broker profile. A nil Password leaves the
// stored secret alone.
type MQTTUpdate struct {
	BrokerHost string  `json:"broker_host"`
	BrokerPort int     `json:"broker_port,omitempty"`
	Username   string  `json:"username,omitempty"`
	Password   *string `json:"password,omitempty"`
	ClientID   string  `json:"client_id,omitempty"`
	UseTLS     bool    `json:"use_tls"`
}

// TestResult is the outcome of a connectivity dry run. The backend reports
// failed checks with a 200 and OK set to false.
type TestResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// PublishRequest mirrors the backend publish endpoint. Zero values fall back
// to the backend defaults: topic base "esp/setting/Control", message
// "showsetting", device token appended to the topic.
type PublishRequest struct {
	TopicBase   string      `json:"topic_base,omitempty"`
	Message     string      `json:"message,omitempty"`
	Payload     interface{} `json:"payload,omitempty"`
	AppendToken *bool       `json:"append_token,omitempty"`
}

// PublishResult echoes what the backend pushed to the broker.
type PublishResult struct {
	Status  string `json:"status"`
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}

// DiscoverRequest starts a broker-side discovery round for an unclaimed
// sensor.
type DiscoverRequest struct {
	MACAddress string `json:"mac_address"`
	Token      string `json:"token"`
	Topic      string `json:"topic,omitempty"`
}

// Devices lists the account's sensors.
func (c *Client) Devices(ctx context.Context) ([]models.Device, error) {
	var devices []models.Device

	if err := c.get(ctx, "/devices", nil, &devices); err != nil {
		return nil, err
	}

	return devices, nil
}

// RegisterDevice creates a sensor record.
func (c *Client) RegisterDevice(ctx context.Context, req RegisterDeviceRequest) (*models.Device, error) {
	var device models.Device

	if err := c.post(ctx, "/devices", req, &device); err != nil {
		return nil, err
	}

	return &device, nil
}

// RenameDevice changes a sensor's display name.
func (c *Client) RenameDevice(ctx context.Context, deviceID int, name string) (*models.Device, error) {
	body := map[string]string{"device_name": name}

	var device models.Device

	if err := c.patch(ctx, fmt.Sprintf("/devices/%d", deviceID), body, &device); err != nil {
		return nil, err
	}

	return &device, nil
}

// SetDeviceActive flips a sensor's active flag.
func (c *Client) SetDeviceActive(ctx context.Context, deviceID int, active bool) (*models.Device, error) {
	body := map[string]bool{"active": active}

	var device models.Device

	if err := c.patch(ctx, fmt.Sprintf("/devices/%d/active", deviceID), body, &device); err != nil {
		return nil, err
	}

	return &device, nil
}

// DeleteDevice removes a sensor along with its logs, token, and network
// profile.
func (c *Client) DeleteDevice(ctx context.Context, deviceID int) error {
	return c.del(ctx, fmt.Sprintf("/devices/%d", deviceID))
}

// UpdateWifi rewrites the device Wi-Fi profile.
func (c *Client) UpdateWifi(ctx context.Context, deviceID int, update WifiUpdate) (*models.Device, error) {
	var device models.Device

	if err := c.patch(ctx, fmt.Sprintf("/devices/%d/wifi", deviceID), update, &device); err != nil {
		return nil, err
	}

	return &device, nil
}

// TestWifi dry-runs Wi-Fi credentials without saving them.
func (c *Client) TestWifi(ctx context.Context, deviceID int, ssid string) (*TestResult, error) {
	body := map[string]string{"ssid": ssid}

	var result TestResult

	if err := c.post(ctx, fmt.Sprintf("/devices/%d/wifi/test", deviceID), body, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// UpdateMQTT rewrites the device broker profile.
func (c *Client) UpdateMQTT(ctx context.Context, deviceID int, update MQTTUpdate) (*models.Device, error) {
	var device models.Device

	if err := c.patch(ctx, fmt.Sprintf("/devices/%d/mqtt", deviceID), update, &device); err != nil {
		return nil, err
	}

	return &device, nil
}

// TestMQTT validates broker parameters. The backend stores them as part of
// the check.
func (c *Client) TestMQTT(ctx context.Context, deviceID int, update MQTTUpdate) (*TestResult, error) {
	var result TestResult

	if err := c.post(ctx, fmt.Sprintf("/devices/%d/mqtt/test", deviceID), update, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// UpsertToken installs or replaces the token that matches broker traffic to
// this sensor.
func (c *Client) UpsertToken(ctx context.Context, deviceID int, token string) error {
	body := map[string]string{"token": token}

	return c.put(ctx, fmt.Sprintf("/devices/%d/token", deviceID), body, nil)
}

// PublishCommand asks the backend to publish a command on the device control
// topic.
func (c *Client) PublishCommand(ctx context.Context, deviceID int, req PublishRequest) (*PublishResult, error) {
	var result PublishResult

	if err := c.post(ctx, fmt.Sprintf("/devices/%d/publish", deviceID), req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// LatestSettings returns the backend's cached settings snapshot for the
// device. ErrSettingsNotReady means the device has not reported since the
// backend started.
func (c *Client) LatestSettings(ctx context.Context, deviceID int) (models.SettingsSnapshot, error) {
	var snapshot models.SettingsSnapshot

	err := c.get(ctx, fmt.Sprintf("/devices/%d/settings/latest", deviceID), nil, &snapshot)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound && apiErr.Message == settingsNotReadyMessage {
			return nil, ErrSettingsNotReady
		}

		return nil, err
	}

	return snapshot, nil
}

// Reregister clears the device token and asks the sensor to run its
// registration flow again.
func (c *Client) Reregister(ctx context.Context, deviceID int) error {
	return c.post(ctx, fmt.Sprintf("/devices/%d/reregister", deviceID), nil, nil)
}

// Discover publishes a discovery prompt for an unclaimed sensor and returns
// the topic the backend used.
func (c *Client) Discover(ctx context.Context, req DiscoverRequest) (string, error) {
	var out struct {
		Status string `json:"status"`
		Topic  string `json:"topic"`
	}

	if err := c.post(ctx, "/devices/discover", req, &out); err != nil {
		return "", err
	}

	return out.Topic, nil
}
