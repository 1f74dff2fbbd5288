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

package control

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/tinyids/console/pkg/logger"
	"github.com/tinyids/console/pkg/models"
)

const (
	// DefaultControlTopic is where sensors listen for commands. The
	// show-settings command rides it as showsetting-{token}, QoS 0, no
	// retain, exactly as the backend's settings poll publishes it.
	DefaultControlTopic = "esp/setting/Control"

	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second

	disconnectQuiesceMillis = 250
)

var (
	errBrokerURLRequired = errors.New("mqtt broker url is required")
	errMQTTNotConnected  = errors.New("mqtt client is not connected")
	errMQTTTimeout       = errors.New("mqtt operation timed out")
)

// MQTTConfig configures a direct-to-broker publisher.
type MQTTConfig struct {
	// BrokerURL uses the paho scheme form, e.g. ssl://broker:8883 or
	// tcp://broker:1883.
	BrokerURL string `json:"broker_url"`

	// ClientID defaults to tinyids-console plus a random suffix so two
	// consoles never kick each other off the broker.
	ClientID string `json:"client_id"`

	Username string `json:"username"`
	Password string `json:"password"`

	// CAFile adds a PEM bundle to the broker verification pool.
	CAFile string `json:"ca_file"`

	// Insecure skips broker certificate verification.
	Insecure bool `json:"insecure"`

	// ControlTopic defaults to esp/setting/Control.
	ControlTopic string `json:"control_topic"`

	ConnectTimeout models.Duration `json:"connect_timeout"`
	PublishTimeout models.Duration `json:"publish_timeout"`
}

// Validate implements config.Validator, filling defaults for unset fields.
func (c *MQTTConfig) Validate() error {
	if c.BrokerURL == "" {
		return errBrokerURLRequired
	}

	if c.ClientID == "" {
		c.ClientID = "tinyids-console-" + uuid.NewString()[:8]
	}

	if c.ControlTopic == "" {
		c.ControlTopic = DefaultControlTopic
	}

	if c.ConnectTimeout.Std() <= 0 {
		c.ConnectTimeout = models.Duration(defaultConnectTimeout)
	}

	if c.PublishTimeout.Std() <= 0 {
		c.PublishTimeout = models.Duration(defaultPublishTimeout)
	}

	return nil
}

// mqttClient is the slice of paho's client the publisher uses; tests swap in
// a fake.
type mqttClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
	IsConnected() bool
}

// MQTTPublisher publishes show-settings commands straight to the broker,
// bypassing the backend. It owns its client connection.
type MQTTPublisher struct {
	config MQTTConfig
	client mqttClient
	logger logger.Logger
}

// NewMQTTPublisher validates cfg and prepares a publisher. Connect must
// succeed before commands flow.
func NewMQTTPublisher(cfg MQTTConfig, log logger.Logger) (*MQTTPublisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	opts.SetConnectTimeout(cfg.ConnectTimeout.Std())
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		log.Info().Str("broker", cfg.BrokerURL).Msg("MQTT connected")
	})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	tlsConf, err := brokerTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	if tlsConf != nil {
		opts.SetTLSConfig(tlsConf)
	}

	return &MQTTPublisher{
		config: cfg,
		client: mqtt.NewClient(opts),
		logger: log,
	}, nil
}

// Connect dials the broker, honoring ctx and the configured timeout.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	if err := p.await(ctx, p.client.Connect(), p.config.ConnectTimeout.Std()); err != nil {
		return fmt.Errorf("connect to mqtt broker: %w", err)
	}

	return nil
}

// Close drops the broker connection, letting in-flight publishes drain
// briefly.
func (p *MQTTPublisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(disconnectQuiesceMillis)
	}
}

// RequestSettings implements probe.Publisher: showsetting-{token} on the
// control topic, QoS 0, no retain.
func (p *MQTTPublisher) RequestSettings(ctx context.Context, deviceID int, token string) error {
	if !p.client.IsConnected() {
		return errMQTTNotConnected
	}

	payload := "showsetting-" + token

	if err := p.await(ctx, p.client.Publish(p.config.ControlTopic, 0, false, payload), p.config.PublishTimeout.Std()); err != nil {
		return fmt.Errorf("publish show-settings command: %w", err)
	}

	p.logger.Debug().
		Int("device_id", deviceID).
		Str("topic", p.config.ControlTopic).
		Msg("Requested device settings over mqtt")

	return nil
}

// await blocks on a paho token with both a hard timeout and ctx
// cancellation; paho tokens do not take contexts themselves.
func (p *MQTTPublisher) await(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errMQTTTimeout
	}
}

// brokerTLSConfig builds the TLS config an ssl:// broker URL needs; plain
// tcp:// URLs get none.
func brokerTLSConfig(cfg MQTTConfig) (*tls.Config, error) {
	if cfg.CAFile == "" && !cfg.Insecure {
		return nil, nil
	}

	tlsConf := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.Insecure, //nolint:gosec // operator opt-in for self-signed brokers
	}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates parsed from %s", cfg.CAFile)
		}

		tlsConf.RootCAs = pool
	}

	return tlsConf, nil
}
