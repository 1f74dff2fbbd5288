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

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/valyala/fastjson"

	"github.com/tinyids/console/pkg/logger"
	"github.com/tinyids/console/pkg/models"
)

const (
	defaultEventBuffer = 256

	initialReconnectBackoff = time.Second
	maxReconnectBackoff     = 30 * time.Second

	handshakeTimeout = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = 30 * time.Second
)

var (
	errWebSocketURLRequired = errors.New("websocket url is required")
	errWebSocketScheme      = errors.New("websocket url must use ws or wss scheme")
)

// WebSocketConfig configures a WebSocketSubscriber.
type WebSocketConfig struct {
	// URL is the push endpoint, e.g. wss://host:5000/api/events.
	URL string `json:"url"`

	// Token is appended as the token query parameter when set. The
	// backend authenticates push clients the same way it authenticates
	// REST calls.
	Token string `json:"token"`

	// Buffer sizes the event channel. Defaults to 256.
	Buffer int `json:"buffer"`

	Logger logger.Logger `json:"-"`
}

// WebSocketSubscriber consumes the backend's push stream over a WebSocket,
// reconnecting with doubling backoff whenever the connection drops. Frames
// are JSON envelopes of the form {"event": "...", "data": {...}}; malformed
// frames are logged at debug and skipped, never fatal.
type WebSocketSubscriber struct {
	dialURL string
	events  chan models.PushEvent
	logger  logger.Logger
	parsers fastjson.ParserPool
}

// NewWebSocketSubscriber validates the endpoint and prepares a subscriber.
// Run must be called before events flow.
func NewWebSocketSubscriber(cfg WebSocketConfig) (*WebSocketSubscriber, error) {
	if cfg.URL == "" {
		return nil, errWebSocketURLRequired
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse websocket url: %w", err)
	}

	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, errWebSocketScheme
	}

	if cfg.Token != "" {
		q := u.Query()
		q.Set("token", cfg.Token)
		u.RawQuery = q.Encode()
	}

	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	return &WebSocketSubscriber{
		dialURL: u.String(),
		events:  make(chan models.PushEvent, buffer),
		logger:  cfg.Logger,
	}, nil
}

// Events returns the delivery channel. It stays open across reconnects.
func (s *WebSocketSubscriber) Events() <-chan models.PushEvent {
	return s.events
}

// Run dials the endpoint and pumps frames into the event channel until ctx
// is cancelled. Connection failures are retried with doubling backoff capped
// at 30s; a successful dial resets the backoff.
func (s *WebSocketSubscriber) Run(ctx context.Context) error {
	backoff := initialReconnectBackoff

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		connected, err := s.readOnce(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if connected {
			backoff = initialReconnectBackoff
		}

		if err != nil {
			s.logger.Warn().
				Err(err).
				Dur("backoff", backoff).
				Msg("Push stream disconnected; reconnecting")
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
		if backoff > maxReconnectBackoff {
			backoff = maxReconnectBackoff
		}
	}
}

// readOnce holds a single connection open, forwarding frames until the peer
// closes or ctx ends. The returned bool reports whether the dial succeeded.
func (s *WebSocketSubscriber) readOnce(ctx context.Context) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	conn, resp, err := dialer.DialContext(ctx, s.dialURL, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}

		return false, fmt.Errorf("dial push stream: %w", err)
	}

	defer func() { _ = conn.Close() }()

	s.logger.Info().Str("url", s.dialURL).Msg("Push stream connected")

	done := make(chan struct{})
	defer close(done)

	go s.keepAlive(ctx, conn, done)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return true, nil
			}

			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return true, nil
			}

			return true, fmt.Errorf("read push frame: %w", err)
		}

		event, ok := s.decodeFrame(frame)
		if !ok {
			continue
		}

		select {
		case s.events <- event:
		case <-ctx.Done():
			return true, nil
		}
	}
}

// keepAlive pings the peer on a fixed period and closes the connection when
// ctx ends so the read loop unblocks. WriteControl is safe to call
// concurrently with reads.
func (s *WebSocketSubscriber) keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	pinger := time.NewTicker(pingPeriod)
	defer pinger.Stop()

	for {
		select {
		case <-pinger.C:
			deadline := time.Now().Add(handshakeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-ctx.Done():
			deadline := time.Now().Add(time.Second)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			_ = conn.Close()

			return
		case <-done:
			return
		}
	}
}

// decodeFrame peeks at the envelope with fastjson before committing the
// payload to the channel. Anything without an event name is dropped.
func (s *WebSocketSubscriber) decodeFrame(frame []byte) (models.PushEvent, bool) {
	parser := s.parsers.Get()
	defer s.parsers.Put(parser)

	value, err := parser.ParseBytes(frame)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Dropping malformed push frame")
		return models.PushEvent{}, false
	}

	name := string(value.GetStringBytes("event"))
	if name == "" {
		s.logger.Debug().Msg("Dropping push frame without event name")
		return models.PushEvent{}, false
	}

	var data json.RawMessage
	if payload := value.Get("data"); payload != nil {
		data = payload.MarshalTo(nil)
	}

	return models.PushEvent{
		Event:      name,
		Data:       data,
		ReceivedAt: time.Now().UTC(),
	}, true
}
