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

package discovery

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
	// DefaultTopic is the shared entrance topic unclaimed sensors listen on.
	DefaultTopic = "esp/Entrance"

	defaultTransportTimeout = 10 * time.Second
	defaultMessageBuffer    = 32

	transportQuiesceMillis = 250
)

var (
	errBrokerURLRequired = errors.New("mqtt broker url is required")
	errMQTTTokenTimeout  = errors.New("mqtt operation timed out")
)

// Transport carries payloads on a single discovery topic. Both the prompts
// we publish and the replies devices publish travel the same topic, so
// consumers must expect their own messages to echo back.
type Transport interface {
	Publish(ctx context.Context, payload []byte) error
	Messages() <-chan []byte
	Close()
}

// MQTTTransportConfig configures the broker-backed transport.
type MQTTTransportConfig struct {
	// BrokerURL uses the paho scheme form, e.g. ssl://broker:8883.
	BrokerURL string `json:"broker_url"`

	// Topic defaults to esp/Entrance.
	Topic string `json:"topic"`

	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Password string `json:"password"`

	// CAFile adds a PEM bundle to the broker verification pool.
	CAFile string `json:"ca_file"`

	// Insecure skips broker certificate verification.
	Insecure bool `json:"insecure"`

	ConnectTimeout models.Duration `json:"connect_timeout"`

	// Buffer sizes the message channel. Defaults to 32.
	Buffer int `json:"buffer"`
}

// Validate implements config.Validator, filling defaults for unset fields.
func (c *MQTTTransportConfig) Validate() error {
	if c.BrokerURL == "" {
		return errBrokerURLRequired
	}

	if c.Topic == "" {
		c.Topic = DefaultTopic
	}

	if c.ClientID == "" {
		c.ClientID = "tinyids-discover-" + uuid.NewString()[:8]
	}

	if c.ConnectTimeout.Std() <= 0 {
		c.ConnectTimeout = models.Duration(defaultTransportTimeout)
	}

	if c.Buffer <= 0 {
		c.Buffer = defaultMessageBuffer
	}

	return nil
}

// MQTTTransport is the paho-backed Transport. The constructor connects and
// subscribes, so replies arriving right after a prompt are never missed.
type MQTTTransport struct {
	config   MQTTTransportConfig
	client   mqtt.Client
	messages chan []byte
	logger   logger.Logger
}

// NewMQTTTransport connects to the broker and subscribes to the discovery
// topic.
func NewMQTTTransport(cfg MQTTTransportConfig, log logger.Logger) (*MQTTTransport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	opts.SetConnectTimeout(cfg.ConnectTimeout.Std())
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("Discovery transport lost broker connection")
	})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	if cfg.CAFile != "" || cfg.Insecure {
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

		opts.SetTLSConfig(tlsConf)
	}

	transport := &MQTTTransport{
		config:   cfg,
		client:   mqtt.NewClient(opts),
		messages: make(chan []byte, cfg.Buffer),
		logger:   log,
	}

	if err := awaitToken(transport.client.Connect(), cfg.ConnectTimeout.Std()); err != nil {
		return nil, fmt.Errorf("connect to mqtt broker: %w", err)
	}

	subscribe := transport.client.Subscribe(cfg.Topic, 0, transport.handleMessage)
	if err := awaitToken(subscribe, cfg.ConnectTimeout.Std()); err != nil {
		transport.client.Disconnect(transportQuiesceMillis)
		return nil, fmt.Errorf("subscribe %s: %w", cfg.Topic, err)
	}

	log.Info().Str("broker", cfg.BrokerURL).Str("topic", cfg.Topic).Msg("Discovery transport ready")

	return transport, nil
}

// Publish sends payload on the discovery topic, QoS 0, no retain.
func (t *MQTTTransport) Publish(ctx context.Context, payload []byte) error {
	token := t.client.Publish(t.config.Topic, 0, false, payload)

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages returns the inbound payload channel.
func (t *MQTTTransport) Messages() <-chan []byte {
	return t.messages
}

// Close drops the broker connection.
func (t *MQTTTransport) Close() {
	if t.client.IsConnected() {
		t.client.Disconnect(transportQuiesceMillis)
	}
}

// handleMessage runs on paho's dispatch goroutine, so it must not block.
func (t *MQTTTransport) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())

	select {
	case t.messages <- payload:
	default:
		t.logger.Debug().Str("topic", msg.Topic()).Msg("Discovery message dropped; consumer is behind")
	}
}

func awaitToken(token mqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return errMQTTTokenTimeout
	}

	return token.Error()
}
