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
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tinyids/console/pkg/control"
	"github.com/tinyids/console/pkg/logger"
	"github.com/tinyids/console/pkg/logview"
	"github.com/tinyids/console/pkg/models"
	"github.com/tinyids/console/pkg/probe"
	"github.com/tinyids/console/pkg/stream"
)

// Push transports and control modes.
const (
	TransportWebSocket = "websocket"
	TransportNATS      = "nats"

	ControlREST = "rest"
	ControlMQTT = "mqtt"
)

const (
	defaultAPITimeout   = 15 * time.Second
	defaultPollInterval = 10 * time.Second
)

var (
	errAPIBaseURLRequired = errors.New("api base_url is required")
	errUnknownTransport   = errors.New("unknown push transport")
	errUnknownControlMode = errors.New("unknown control mode")
	errNATSURLRequired    = errors.New("push.nats.url is required for the nats transport")
	errPushURLScheme      = errors.New("cannot derive push url from api base_url scheme")
)

// APIConfig points the console at the backend REST surface.
type APIConfig struct {
	BaseURL string          `json:"base_url"`
	Timeout models.Duration `json:"timeout"`

	// Token is a pre-issued access token; interactive logins replace it.
	Token string `json:"token"`
}

// NATSPushConfig selects the broker republishing push events.
type NATSPushConfig struct {
	URL           string `json:"url"`
	SubjectPrefix string `json:"subject_prefix"`
}

// PushConfig selects how push events reach the console.
type PushConfig struct {
	// Transport is websocket (default) or nats.
	Transport string `json:"transport"`

	// WebSocketURL defaults to the API base URL with the scheme flipped
	// to ws(s) and /api/events appended, mirroring how the web dashboard
	// connects to its own origin.
	WebSocketURL string `json:"websocket_url"`

	NATS NATSPushConfig `json:"nats"`
}

// ControlConfig selects how show-settings commands reach devices.
type ControlConfig struct {
	// Mode is rest (default) or mqtt.
	Mode string `json:"mode"`

	// MQTT configures the direct broker path when Mode is mqtt.
	MQTT control.MQTTConfig `json:"mqtt"`
}

// FeedConfig holds the merged-collection tunables.
type FeedConfig struct {
	// PollInterval paces REST snapshot refreshes. Defaults to 10s.
	PollInterval models.Duration `json:"poll_interval"`

	// MaxRecords bounds the merged collection. Defaults to 200.
	MaxRecords int `json:"max_records"`

	// Severity optionally narrows the poll to one severity.
	Severity string `json:"severity"`
}

// Validate implements config.Validator, filling defaults for unset fields.
func (c *FeedConfig) Validate() error {
	if c.PollInterval.Std() <= 0 {
		c.PollInterval = models.Duration(defaultPollInterval)
	}

	if c.MaxRecords <= 0 {
		c.MaxRecords = logview.DefaultLimit
	}

	return nil
}

// Config is the whole console configuration.
type Config struct {
	API     APIConfig     `json:"api"`
	Push    PushConfig    `json:"push"`
	Control ControlConfig `json:"control"`
	Feed    FeedConfig    `json:"feed"`
	Probe   probe.Config  `json:"probe"`

	// SessionFile persists the login session between runs.
	SessionFile string `json:"session_file"`

	Logging *logger.Config `json:"logging"`
}

// Validate implements config.Validator: fills defaults, derives the push
// endpoint when unset, and rejects unknown transport and control modes.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errAPIBaseURLRequired
	}

	if c.API.Timeout.Std() <= 0 {
		c.API.Timeout = models.Duration(defaultAPITimeout)
	}

	switch c.Push.Transport {
	case "":
		c.Push.Transport = TransportWebSocket
	case TransportWebSocket, TransportNATS:
	default:
		return fmt.Errorf("%w: %s", errUnknownTransport, c.Push.Transport)
	}

	if c.Push.Transport == TransportWebSocket && c.Push.WebSocketURL == "" {
		derived, err := derivePushURL(c.API.BaseURL)
		if err != nil {
			return err
		}

		c.Push.WebSocketURL = derived
	}

	if c.Push.Transport == TransportNATS {
		if c.Push.NATS.URL == "" {
			return errNATSURLRequired
		}

		if c.Push.NATS.SubjectPrefix == "" {
			c.Push.NATS.SubjectPrefix = stream.DefaultSubjectPrefix
		}
	}

	switch c.Control.Mode {
	case "":
		c.Control.Mode = ControlREST
	case ControlREST:
	case ControlMQTT:
		if err := c.Control.MQTT.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %s", errUnknownControlMode, c.Control.Mode)
	}

	if err := c.Feed.Validate(); err != nil {
		return err
	}

	if err := c.Probe.Validate(); err != nil {
		return err
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}

	return nil
}

// derivePushURL flips an http(s) API base to its ws(s) events endpoint.
func derivePushURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse api base_url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: %q", errPushURLScheme, u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/events"

	return u.String(), nil
}
