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
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyids/console/pkg/logger"
	"github.com/tinyids/console/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL: server.URL,
		Token:   "test-token",
		Logger:  logger.NewTestLogger(),
	})
	require.NoError(t, err)

	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestLogsSendsBearerAndSeverity(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/logs", r.URL.Path)
		assert.Equal(t, "High", r.URL.Query().Get("severity"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 1, "severity": "High"},
			{"id": 2, "severity": "High"},
		})
	})

	rows, err := client.Logs(context.Background(), "High")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestErrorEnvelopeBecomesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "name and esp_id are required"})
	})

	_, err := client.RegisterDevice(context.Background(), RegisterDeviceRequest{})
	require.Error(t, err)

	var apiErr *APIError

	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "name and esp_id are required", apiErr.Message)
}

func TestPlainTextErrorBodyKept(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	})

	_, err := client.Devices(context.Background())

	var apiErr *APIError

	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
}

func TestIsUnauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Token expired"})
	})

	_, err := client.Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))

	assert.False(t, IsUnauthorized(errors.New("connection refused")))
}

func TestLatestSettings(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		response   interface{}
		wantErr    error
		wantToken  string
	}{
		{
			name:       "snapshot ready",
			statusCode: http.StatusOK,
			response: map[string]interface{}{
				"token":       "tok-1",
				"received_at": "2025-06-01T10:00:00Z",
				"blocked_ips": "10.0.0.1, 10.0.0.2",
			},
			wantToken: "tok-1",
		},
		{
			name:       "not reported yet",
			statusCode: http.StatusNotFound,
			response:   map[string]string{"message": "settings not available yet"},
			wantErr:    ErrSettingsNotReady,
		},
		{
			name:       "unknown device stays a plain 404",
			statusCode: http.StatusNotFound,
			response:   map[string]string{"message": "The requested URL was not found on the server."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/devices/5/settings/latest", r.URL.Path)

				w.WriteHeader(tt.statusCode)
				_ = json.NewEncoder(w).Encode(tt.response)
			})

			snapshot, err := client.LatestSettings(context.Background(), 5)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.statusCode != http.StatusOK:
				require.Error(t, err)
				assert.NotErrorIs(t, err, ErrSettingsNotReady)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantToken, snapshot.Token())
				assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, snapshot.BlockedIPs())
			}
		})
	}
}

func TestLoginInstallsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Empty(t, r.Header.Get("Authorization"))

			var req models.LoginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "ada", req.Username)
			assert.Equal(t, "hunter22", req.Password)

			_ = json.NewEncoder(w).Encode(models.LoginResponse{
				AccessToken: "jwt-1",
				User:        models.User{ID: 1, Username: "ada"},
			})
		case "/api/users/me":
			assert.Equal(t, "Bearer jwt-1", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(models.User{ID: 1, Username: "ada"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, Logger: logger.NewTestLogger()})
	require.NoError(t, err)

	resp, err := client.Login(context.Background(), models.LoginRequest{Username: "ada", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "jwt-1", resp.AccessToken)
	assert.Equal(t, "jwt-1", client.Token())

	user, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada", user.Username)
}

func TestSetDeviceActiveBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/devices/7/active", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]bool
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]bool{"active": true}, body)

		_ = json.NewEncoder(w).Encode(models.Device{ID: 7, Name: "Lab Sensor", Status: "Active", Active: true})
	})

	device, err := client.SetDeviceActive(context.Background(), 7, true)
	require.NoError(t, err)
	assert.Equal(t, 7, device.ID)
	assert.True(t, device.Active)
}

func TestUpdateWifiOmitsUnsetPassword(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		assert.Equal(t, "lab-net", body["ssid"])

		_, hasPassword := body["password"]
		assert.False(t, hasPassword)

		_ = json.NewEncoder(w).Encode(models.Device{ID: 3, Name: "Gateway"})
	})

	_, err := client.UpdateWifi(context.Background(), 3, WifiUpdate{SSID: "lab-net"})
	require.NoError(t, err)
}

func TestPublishCommandSendsOnlySetFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/devices/9/publish", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Empty(t, body, "zero request should defer every default to the backend")

		_ = json.NewEncoder(w).Encode(PublishResult{
			Status:  "sent",
			Topic:   "esp/setting/Control-tok-9",
			Payload: "showsetting",
		})
	})

	result, err := client.PublishCommand(context.Background(), 9, PublishRequest{})
	require.NoError(t, err)
	assert.Equal(t, "sent", result.Status)
	assert.Equal(t, "esp/setting/Control-tok-9", result.Topic)
	assert.Equal(t, "showsetting", result.Payload)
}

func TestDeleteBlacklistEntryAcceptsNoContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/blacklist/3", r.URL.Path)

		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteBlacklistEntry(context.Background(), 3))
}

func TestOverviewQueryParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/dashboard", r.URL.Path)
		assert.Equal(t, "4", r.URL.Query().Get("device_id"))
		assert.Equal(t, "AA:BB:CC:DD:EE:FF", r.URL.Query().Get("mac_address"))

		_ = json.NewEncoder(w).Encode(models.DashboardOverview{
			DevicesOnline: 1,
			DeviceCount:   2,
		})
	})

	overview, err := client.Overview(context.Background(), 4, "AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	assert.Equal(t, 1, overview.DevicesOnline)
	assert.Equal(t, 2, overview.DeviceCount)
}
