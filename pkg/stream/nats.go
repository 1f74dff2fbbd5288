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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/tinyids/console/pkg/logger"
	"github.com/tinyids/console/pkg/models"
)

const (
	// DefaultSubjectPrefix is where the backend republishes its push
	// events when a NATS broker is deployed alongside it. The wire event
	// name maps onto the subject suffix with ':' flattened to '.', so
	// log:new travels as tinyids.events.log.new.
	DefaultSubjectPrefix = "tinyids.events"

	natsReconnectWait = 2 * time.Second
)

var errNATSURLRequired = errors.New("nats url is required")

// NATSConfig configures a NATSSubscriber.
type NATSConfig struct {
	URL string `json:"url"`

	// SubjectPrefix defaults to tinyids.events.
	SubjectPrefix string `json:"subject_prefix"`

	// Name identifies the connection to the broker. Defaults to
	// tinyids-console plus a random suffix.
	Name string `json:"name"`

	// Buffer sizes the event channel. Defaults to 256.
	Buffer int `json:"buffer"`

	Logger logger.Logger `json:"-"`
}

// NATSSubscriber consumes push events republished on a NATS broker. The
// client library owns reconnection, so Run only has to hold the subscription
// open until its context ends.
type NATSSubscriber struct {
	url    string
	prefix string
	name   string
	events chan models.PushEvent
	logger logger.Logger
}

// NewNATSSubscriber prepares a subscriber. Run must be called before events
// flow.
func NewNATSSubscriber(cfg NATSConfig) (*NATSSubscriber, error) {
	if cfg.URL == "" {
		return nil, errNATSURLRequired
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	name := cfg.Name
	if name == "" {
		name = "tinyids-console-" + uuid.NewString()[:8]
	}

	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	return &NATSSubscriber{
		url:    cfg.URL,
		prefix: prefix,
		name:   name,
		events: make(chan models.PushEvent, buffer),
		logger: cfg.Logger,
	}, nil
}

// Events returns the delivery channel.
func (s *NATSSubscriber) Events() <-chan models.PushEvent {
	return s.events
}

// Run connects, subscribes to every event subject under the prefix, and
// blocks until ctx is cancelled.
func (s *NATSSubscriber) Run(ctx context.Context) error {
	opts := []nats.Option{
		nats.Name(s.name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(natsReconnectWait),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			s.logger.Warn().Err(err).Msg("NATS async error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			s.logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(s.url, opts...)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}

	defer nc.Close()

	subject := s.prefix + ".>"

	sub, err := nc.Subscribe(subject, s.handleMessage)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}

	defer func() { _ = sub.Unsubscribe() }()

	s.logger.Info().
		Str("url", nc.ConnectedUrl()).
		Str("subject", subject).
		Msg("Push subscription established")

	<-ctx.Done()

	return ctx.Err()
}

// handleMessage runs on the subscription's dispatch goroutine, so it must
// not block. When the consumer falls behind, the event is dropped; the poll
// path replays anything the push path loses.
func (s *NATSSubscriber) handleMessage(msg *nats.Msg) {
	name := eventName(s.prefix, msg.Subject)
	if name == "" {
		s.logger.Debug().Str("subject", msg.Subject).Msg("Dropping message outside event namespace")
		return
	}

	event := models.PushEvent{
		Event:      name,
		Data:       msg.Data,
		ReceivedAt: time.Now().UTC(),
	}

	select {
	case s.events <- event:
	default:
		s.logger.Debug().Str("subject", msg.Subject).Msg("Push event dropped; consumer is behind")
	}
}

// eventName recovers the wire event name from a subject suffix:
// tinyids.events.log.new becomes log:new.
func eventName(prefix, subject string) string {
	suffix, ok := strings.CutPrefix(subject, prefix+".")
	if !ok || suffix == "" {
		return ""
	}

	return strings.Replace(suffix, ".", ":", 1)
}
