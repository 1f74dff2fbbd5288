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

package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRESTRow(t *testing.T) {
	raw := map[string]interface{}{
		"id":             float64(42),
		"device_name":    "Entrance Sensor",
		"timestamp":      "2025-06-01T12:00:00Z",
		"severity":       "critical",
		"type":           "SYN Flood",
		"description":    "Half-open connection burst",
		"source_ip":      "10.0.0.9",
		"destination_ip": "10.0.0.1",
	}

	record := Normalize(raw)
	require.NotNil(t, record)

	assert.Equal(t, "42", record.ID)
	assert.Equal(t, "Entrance Sensor", record.DeviceName)
	assert.Equal(t, SeverityHigh, record.Severity)
	assert.Equal(t, "SYN Flood", record.Type)
	assert.Equal(t, "Half-open connection burst", record.Description)
	assert.Equal(t, "10.0.0.9", record.SourceIP)
	assert.Equal(t, "10.0.0.1", record.DestinationIP)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), record.Timestamp)
	assert.Equal(t, raw, record.Raw)
}

func TestNormalizePushEventWithNestedPayload(t *testing.T) {
	raw := map[string]interface{}{
		"id":         float64(7),
		"device":     "ESP32",
		"severity":   "warn",
		"created_at": "2025-06-01T12:00:00",
		"payload": map[string]interface{}{
			"attack_type": "Deauth",
			"alertMsg":    "Deauth frames from AP",
			"token":       "tok-1",
			"source ip":   "192.168.4.2",
		},
	}

	record := Normalize(raw)
	require.NotNil(t, record)

	assert.Equal(t, "7", record.ID)
	assert.Equal(t, "ESP32", record.DeviceName)
	assert.Equal(t, SeverityMedium, record.Severity)
	assert.Equal(t, "Deauth", record.Type)
	assert.Equal(t, "Deauth frames from AP", record.AlertMessage)
	assert.Equal(t, "tok-1", record.Token)
	assert.Equal(t, "192.168.4.2", record.SourceIP)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), record.Timestamp)
}

func TestNormalizeDropsInputWithoutID(t *testing.T) {
	assert.Nil(t, Normalize(nil))
	assert.Nil(t, Normalize(map[string]interface{}{}))
	assert.Nil(t, Normalize(map[string]interface{}{
		"device_name": "ESP32",
		"severity":    "high",
	}))
	assert.Nil(t, Normalize(map[string]interface{}{
		"id": "",
		"payload": map[string]interface{}{
			"message": "no identity anywhere",
		},
	}))
}

func TestNormalizeFindsIDInsideNestedPayload(t *testing.T) {
	record := Normalize(map[string]interface{}{
		"payload": map[string]interface{}{
			"log_id": "abc-123",
		},
	})

	require.NotNil(t, record)
	assert.Equal(t, "abc-123", record.ID)
}

func TestNormalizeTopLevelWinsOverNestedPayload(t *testing.T) {
	record := Normalize(map[string]interface{}{
		"id":       float64(1),
		"severity": "low",
		"payload": map[string]interface{}{
			"severity": "high",
		},
	})

	require.NotNil(t, record)
	assert.Equal(t, SeverityLow, record.Severity)
}

func TestNormalizeEmptyValueDoesNotShadowAlternateKey(t *testing.T) {
	record := Normalize(map[string]interface{}{
		"id":          float64(1),
		"type":        "  ",
		"attack_type": "Port Scan",
	})

	require.NotNil(t, record)
	assert.Equal(t, "Port Scan", record.Type)
}

func TestNormalizeAppliesDefaults(t *testing.T) {
	before := time.Now().UTC()
	record := Normalize(map[string]interface{}{"id": float64(1)})
	require.NotNil(t, record)

	assert.Equal(t, "Unknown", record.Type)
	assert.Equal(t, "No additional context provided.", record.Description)
	assert.Equal(t, SeverityLow, record.Severity)
	assert.WithinDuration(t, before, record.Timestamp, 5*time.Second)
}

func TestNormalizeDeviceIDCoercion(t *testing.T) {
	record := Normalize(map[string]interface{}{
		"id":        float64(1),
		"device_id": "17",
	})

	require.NotNil(t, record)
	assert.Equal(t, 17, record.DeviceID)

	record = Normalize(map[string]interface{}{
		"id":       float64(1),
		"deviceId": float64(9),
	})

	require.NotNil(t, record)
	assert.Equal(t, 9, record.DeviceID)
}

func TestNormalizeTimestampFormats(t *testing.T) {
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value interface{}
	}{
		{"rfc3339 zulu", "2025-06-01T12:00:00Z"},
		{"rfc3339 offset", "2025-06-01T14:00:00+02:00"},
		{"naive iso", "2025-06-01T12:00:00"},
		{"naive iso micros", "2025-06-01T12:00:00.000000"},
		{"epoch seconds", float64(want.Unix())},
		{"epoch millis", float64(want.UnixMilli())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := Normalize(map[string]interface{}{
				"id":        float64(1),
				"timestamp": tt.value,
			})

			require.NotNil(t, record)
			assert.Equal(t, want, record.Timestamp, "timestamp %v", tt.value)
		})
	}
}

func TestNormalizeUnparsableTimestampFallsBackToNow(t *testing.T) {
	before := time.Now().UTC()
	record := Normalize(map[string]interface{}{
		"id":        float64(1),
		"timestamp": "last tuesday",
	})

	require.NotNil(t, record)
	assert.WithinDuration(t, before, record.Timestamp, 5*time.Second)
}

func TestNormalizeIPSpellings(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"source_ip", "1.1.1.1"},
		{"sourceIp", "1.1.1.2"},
		{"source_ip_address", "1.1.1.3"},
		{"source ip", "1.1.1.4"},
		{"source-ip", "1.1.1.5"},
		{"source ip address", "1.1.1.6"},
		{"source-ip-address", "1.1.1.7"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			record := Normalize(map[string]interface{}{
				"id":   float64(1),
				tt.key: tt.want,
			})

			require.NotNil(t, record)
			assert.Equal(t, tt.want, record.SourceIP)
		})
	}
}
