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

package console

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyids/console/pkg/control"
	"github.com/tinyids/console/pkg/logview"
	"github.com/tinyids/console/pkg/stream"
)

func TestConfigValidateFillsDefaults(t *testing.T) {
	cfg := &Config{API: APIConfig{BaseURL: "http://localhost:5000"}}

	require.NoError(t, cfg.Validate())

	assert.Equal(t, 15*time.Second, cfg.API.Timeout.Std())
	assert.Equal(t, TransportWebSocket, cfg.Push.Transport)
	assert.Equal(t, "ws://localhost:5000/api/events", cfg.Push.WebSocketURL)
	assert.Equal(t, ControlREST, cfg.Control.Mode)
	assert.Equal(t, 10*time.Second, cfg.Feed.PollInterval.Std())
	assert.Equal(t, logview.DefaultLimit, cfg.Feed.MaxRecords)
	assert.Equal(t, 10*time.Second, cfg.Probe.Throttle.Std())
	require.NotNil(t, cfg.Logging)
}

func TestConfigValidateRequiresBaseURL(t *testing.T) {
	cfg := &Config{}

	require.ErrorIs(t, cfg.Validate(), errAPIBaseURLRequired)
}

func TestConfigValidateKeepsExplicitPushURL(t *testing.T) {
	cfg := &Config{
		API:  APIConfig{BaseURL: "http://localhost:5000"},
		Push: PushConfig{WebSocketURL: "wss://stream.example:9443/events"},
	}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "wss://stream.example:9443/events", cfg.Push.WebSocketURL)
}

func TestConfigValidateRejectsUnknownTransport(t *testing.T) {
	cfg := &Config{
		API:  APIConfig{BaseURL: "http://localhost:5000"},
		Push: PushConfig{Transport: "carrier-pigeon"},
	}

	require.ErrorIs(t, cfg.Validate(), errUnknownTransport)
}

func TestConfigValidateNATSTransport(t *testing.T) {
	cfg := &Config{
		API:  APIConfig{BaseURL: "http://localhost:5000"},
		Push: PushConfig{Transport: TransportNATS},
	}

	require.ErrorIs(t, cfg.Validate(), errNATSURLRequired)

	cfg.Push.NATS.URL = "nats://localhost:4222"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, stream.DefaultSubjectPrefix, cfg.Push.NATS.SubjectPrefix)
	// No websocket endpoint gets derived for the nats transport.
	assert.Empty(t, cfg.Push.WebSocketURL)
}

func TestConfigValidateMQTTControl(t *testing.T) {
	cfg := &Config{
		API:     APIConfig{BaseURL: "http://localhost:5000"},
		Control: ControlConfig{Mode: ControlMQTT},
	}

	// The mqtt mode needs a broker.
	require.Error(t, cfg.Validate())

	cfg.Control.MQTT.BrokerURL = "ssl://broker.example:8883"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, control.DefaultControlTopic, cfg.Control.MQTT.ControlTopic)
}

func TestConfigValidateRejectsUnknownControlMode(t *testing.T) {
	cfg := &Config{
		API:     APIConfig{BaseURL: "http://localhost:5000"},
		Control: ControlConfig{Mode: "smoke-signals"},
	}

	require.ErrorIs(t, cfg.Validate(), errUnknownControlMode)
}

func TestDerivePushURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		want    string
		wantErr bool
	}{
		{name: "http", base: "http://localhost:5000", want: "ws://localhost:5000/api/events"},
		{name: "https", base: "https://ids.example", want: "wss://ids.example/api/events"},
		{name: "trailing slash", base: "http://localhost:5000/", want: "ws://localhost:5000/api/events"},
		{name: "base path", base: "https://ids.example/dash", want: "wss://ids.example/dash/api/events"},
		{name: "unsupported scheme", base: "ftp://ids.example", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := derivePushURL(tt.base)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
