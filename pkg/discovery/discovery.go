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

// Package discovery claims unregistered sensors over the shared discovery
// topic. One round is a nonce-tagged DISCOVER prompt, a device reply carrying
// the nonce plus its token and id, and a plaintext confirmation back to the
// device.
package discovery

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/tinyids/console/pkg/logger"
	"github.com/tinyids/console/pkg/models"
)

const (
	defaultNonceLength = 8
	defaultWaitDevice  = 10 * time.Second
	defaultWaitConfirm = 5 * time.Second

	// Nonces stay short so constrained firmware can echo them verbatim.
	noncePrefix   = "N-"
	nonceMaxTotal = 10
	nonceAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	// ErrNoDeviceReply means no sensor answered the prompt inside the
	// device wait window.
	ErrNoDeviceReply = errors.New("no device replied to discovery prompt")

	errTransportRequired = errors.New("discovery transport is required")
)

// Config holds the discovery round tunables.
type Config struct {
	// NonceLength is the random part of the nonce; the total including
	// the N- prefix never exceeds ten characters.
	NonceLength int `json:"nonce_length"`

	// WaitDevice bounds the wait for the device reply.
	WaitDevice models.Duration `json:"wait_device"`

	// WaitConfirm bounds the optional wait for the device's plaintext
	// acknowledgement. Zero skips the wait.
	WaitConfirm models.Duration `json:"wait_confirm"`
}

// Validate implements config.Validator, filling defaults for unset fields.
func (c *Config) Validate() error {
	if c.NonceLength <= 0 {
		c.NonceLength = defaultNonceLength
	}

	if c.WaitDevice.Std() <= 0 {
		c.WaitDevice = models.Duration(defaultWaitDevice)
	}

	return nil
}

// Result reports one completed discovery round. Confirmed is advisory: a
// device that never acknowledges may still have registered.
type Result struct {
	DeviceID  string
	Token     string
	Nonce     string
	Confirmed bool
}

// Client drives discovery rounds over a topic-bound transport.
type Client struct {
	config    Config
	transport Transport
	logger    logger.Logger
}

// NewClient validates cfg and binds the transport.
func NewClient(cfg Config, transport Transport, log logger.Logger) (*Client, error) {
	if transport == nil {
		return nil, errTransportRequired
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{config: cfg, transport: transport, logger: log}, nil
}

type discoverPrompt struct {
	Cmd   string `json:"cmd"`
	Nonce string `json:"nonce"`
}

// Run executes one discovery round. Cancelling ctx during the optional
// acknowledgement wait abandons only that wait; the result is still
// returned, since the device registered when it replied.
func (c *Client) Run(ctx context.Context) (*Result, error) {
	nonce, err := generateNonce(c.config.NonceLength)
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	prompt, err := json.Marshal(discoverPrompt{Cmd: "DISCOVER", Nonce: nonce})
	if err != nil {
		return nil, fmt.Errorf("encode discovery prompt: %w", err)
	}

	if err := c.transport.Publish(ctx, prompt); err != nil {
		return nil, fmt.Errorf("publish discovery prompt: %w", err)
	}

	c.logger.Info().Str("nonce", nonce).Msg("Sent discovery prompt")

	reply, err := c.awaitReply(ctx, nonce)
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("device_id", reply.deviceID).
		Str("nonce", nonce).
		Msg("Device answered discovery prompt")

	confirm := fmt.Sprintf("Confirm-%s-%s", nonce, reply.token)
	if err := c.transport.Publish(ctx, []byte(confirm)); err != nil {
		return nil, fmt.Errorf("publish confirmation: %w", err)
	}

	result := &Result{DeviceID: reply.deviceID, Token: reply.token, Nonce: nonce}

	if c.config.WaitConfirm.Std() > 0 {
		result.Confirmed = c.awaitAck(ctx, confirm)
	}

	return result, nil
}

type deviceReply struct {
	deviceID string
	token    string
}

// awaitReply drains the topic until a JSON reply carries the round's nonce
// together with a token and device id. Everything else on the shared topic,
// including our own prompt echoing back, is ignored.
func (c *Client) awaitReply(ctx context.Context, nonce string) (deviceReply, error) {
	timer := time.NewTimer(c.config.WaitDevice.Std())
	defer timer.Stop()

	for {
		select {
		case payload := <-c.transport.Messages():
			if reply, ok := parseReply(payload, nonce); ok {
				return reply, nil
			}
		case <-timer.C:
			return deviceReply{}, fmt.Errorf("%w within %s", ErrNoDeviceReply, c.config.WaitDevice.Std())
		case <-ctx.Done():
			return deviceReply{}, ctx.Err()
		}
	}
}

// awaitAck waits for any plaintext starting with "confirm", skipping the
// exact confirmation we just published when the broker echoes it back.
func (c *Client) awaitAck(ctx context.Context, sent string) bool {
	timer := time.NewTimer(c.config.WaitConfirm.Std())
	defer timer.Stop()

	for {
		select {
		case payload := <-c.transport.Messages():
			text := strings.TrimSpace(string(payload))
			if text == sent {
				continue
			}

			if strings.HasPrefix(strings.ToLower(text), "confirm") {
				return true
			}
		case <-timer.C:
			c.logger.Info().Msg("No explicit acknowledgement; device may still be registered")
			return false
		case <-ctx.Done():
			return false
		}
	}
}

// parseReply accepts device_id and deviceId spellings and coerces numeric
// ids, matching what heterogeneous firmware actually sends.
func parseReply(payload []byte, nonce string) (deviceReply, bool) {
	var fields map[string]interface{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return deviceReply{}, false
	}

	if coerceString(fields["nonce"]) != nonce {
		return deviceReply{}, false
	}

	token := coerceString(fields["token"])

	deviceID := coerceString(fields["device_id"])
	if deviceID == "" {
		deviceID = coerceString(fields["deviceId"])
	}

	if token == "" || deviceID == "" {
		return deviceReply{}, false
	}

	return deviceReply{deviceID: deviceID, token: token}, true
}

func coerceString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}

		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// generateNonce produces N- plus length random alphanumerics, clamped so the
// whole nonce fits in ten characters.
func generateNonce(length int) (string, error) {
	maxRandom := nonceMaxTotal - len(noncePrefix)

	if length < 1 {
		length = 1
	} else if length > maxRandom {
		length = maxRandom
	}

	buf := make([]byte, length)

	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(nonceAlphabet))))
		if err != nil {
			return "", err
		}

		buf[i] = nonceAlphabet[n.Int64()]
	}

	return noncePrefix + string(buf), nil
}
