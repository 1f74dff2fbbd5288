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

// Package control sends the fire-and-forget show-settings command toward a
// device, either through the backend's publish endpoint or straight to the
// MQTT broker the sensors listen on.
package control

import (
	"context"
	"errors"
	"fmt"

	"github.com/tinyids/console/pkg/api"
	"github.com/tinyids/console/pkg/logger"
)

var errCommandAPIRequired = errors.New("command api is required")

// CommandAPI is the slice of the backend client the REST publisher rides.
type CommandAPI interface {
	PublishCommand(ctx context.Context, deviceID int, req api.PublishRequest) (*api.PublishResult, error)
}

// RESTPublisher asks the backend to publish the command on the device
// control topic. The backend resolves the device token itself and appends it
// to the topic, matching what the web dashboard sends.
type RESTPublisher struct {
	api    CommandAPI
	logger logger.Logger
}

// NewRESTPublisher wraps client as a probe publisher.
func NewRESTPublisher(client CommandAPI, log logger.Logger) (*RESTPublisher, error) {
	if client == nil {
		return nil, errCommandAPIRequired
	}

	return &RESTPublisher{api: client, logger: log}, nil
}

// RequestSettings implements probe.Publisher. The zero request takes the
// backend defaults, so the token argument stays unused on this path.
func (p *RESTPublisher) RequestSettings(ctx context.Context, deviceID int, _ string) error {
	result, err := p.api.PublishCommand(ctx, deviceID, api.PublishRequest{})
	if err != nil {
		return fmt.Errorf("publish show-settings command: %w", err)
	}

	p.logger.Debug().
		Int("device_id", deviceID).
		Str("topic", result.Topic).
		Msg("Requested device settings through backend")

	return nil
}
