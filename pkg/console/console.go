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

// Package console assembles the operator console runtime: a Feed that merges
// polled REST snapshots with pushed events into one bounded collection, a
// Prober that correlates show-settings commands with device replies, and a
// Watch that turns those probes into per-device liveness. Build wires them
// from one Config; Run drives them until the context ends.
package console

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tinyids/console/pkg/api"
	"github.com/tinyids/console/pkg/control"
	"github.com/tinyids/console/pkg/logger"
	"github.com/tinyids/console/pkg/probe"
	"github.com/tinyids/console/pkg/stream"
)

// Console bundles the assembled components. Fields are exported so the UI
// layer can read feed projections and trigger checks directly.
type Console struct {
	Client *api.Client
	Feed   *Feed
	Watch  *Watch
	Prober *probe.Prober

	closers []func()
}

// Build validates cfg and wires the console: REST client, push subscriber,
// control publisher, prober, feed, and watch. The prober observes the feed's
// push path so streamed replies resolve pending requests. A configured MQTT
// control path is connected here; Close releases it.
func Build(ctx context.Context, cfg *Config, log logger.Logger) (*Console, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := api.NewClient(api.Config{
		BaseURL: cfg.API.BaseURL,
		Token:   cfg.API.Token,
		Timeout: cfg.API.Timeout.Std(),
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	sub, err := buildSubscriber(cfg, log)
	if err != nil {
		return nil, err
	}

	publisher, closer, err := buildPublisher(ctx, cfg, client, log)
	if err != nil {
		return nil, err
	}

	cleanup := func() {
		if closer != nil {
			closer()
		}
	}

	prober, err := probe.New(cfg.Probe, publisher, client, nil, log)
	if err != nil {
		cleanup()
		return nil, err
	}

	feed, err := NewFeed(cfg.Feed, client, sub, log)
	if err != nil {
		cleanup()
		return nil, err
	}

	feed.AddObserver(prober)

	watch, err := NewWatch(feed, prober, log)
	if err != nil {
		cleanup()
		return nil, err
	}

	c := &Console{
		Client: client,
		Feed:   feed,
		Watch:  watch,
		Prober: prober,
	}

	if closer != nil {
		c.closers = append(c.closers, closer)
	}

	return c, nil
}

// Run drives the feed and the prober until ctx ends or either fails. The
// caller still owns Close.
func (c *Console) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return c.Feed.Run(ctx)
	})

	group.Go(func() error {
		return c.Prober.Run(ctx)
	})

	return group.Wait()
}

// Close releases transports opened by Build.
func (c *Console) Close() {
	for _, closer := range c.closers {
		closer()
	}
}

func buildSubscriber(cfg *Config, log logger.Logger) (stream.Subscriber, error) {
	if cfg.Push.Transport == TransportNATS {
		return stream.NewNATSSubscriber(stream.NATSConfig{
			URL:           cfg.Push.NATS.URL,
			SubjectPrefix: cfg.Push.NATS.SubjectPrefix,
			Logger:        log,
		})
	}

	return stream.NewWebSocketSubscriber(stream.WebSocketConfig{
		URL:    cfg.Push.WebSocketURL,
		Token:  cfg.API.Token,
		Logger: log,
	})
}

// buildPublisher returns the control-path publisher and, for transports that
// hold a connection, the closer that releases it.
func buildPublisher(ctx context.Context, cfg *Config, client *api.Client, log logger.Logger) (probe.Publisher, func(), error) {
	if cfg.Control.Mode == ControlMQTT {
		publisher, err := control.NewMQTTPublisher(cfg.Control.MQTT, log)
		if err != nil {
			return nil, nil, err
		}

		if err := publisher.Connect(ctx); err != nil {
			return nil, nil, err
		}

		return publisher, publisher.Close, nil
	}

	publisher, err := control.NewRESTPublisher(client, log)
	if err != nil {
		return nil, nil, err
	}

	return publisher, nil, nil
}
