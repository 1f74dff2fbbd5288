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
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tinyids/console/pkg/logger"
	"github.com/tinyids/console/pkg/models"
	"github.com/tinyids/console/pkg/probe"
)

var (
	errRosterRequired     = errors.New("device roster is required")
	errRequesterRequired  = errors.New("settings requester is required")
	errDeviceUnknown      = errors.New("device is not in the roster")
	errDeviceTokenMissing = errors.New("device has no registration token")
)

// Status is the liveness verdict for one device.
type Status int

const (
	StatusUnknown Status = iota
	StatusPending
	StatusOnline
	StatusUnreachable
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusOnline:
		return "online"
	case StatusUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// DeviceState is the outcome of the most recent check on one device.
// BlockedIPs carries over from the last answered check while a new one is
// pending.
type DeviceState struct {
	DeviceID   int
	Status     Status
	BlockedIPs []string
	CheckedAt  time.Time
	Err        error
}

// Roster resolves device ids to registration tokens. *Feed satisfies it.
type Roster interface {
	Devices() []models.Device
}

// SettingsRequester issues show-settings probes. *probe.Prober satisfies it.
type SettingsRequester interface {
	Request(ctx context.Context, deviceID int, token string) (<-chan probe.Result, error)
}

// Watch turns settings probes into per-device liveness states: a device that
// answers is online, one that exhausts the probe budget is unreachable.
type Watch struct {
	roster    Roster
	requester SettingsRequester
	logger    logger.Logger

	mu     sync.RWMutex
	states map[int]DeviceState
}

// NewWatch wires a watch over the given roster and requester.
func NewWatch(roster Roster, requester SettingsRequester, log logger.Logger) (*Watch, error) {
	if roster == nil {
		return nil, errRosterRequired
	}

	if requester == nil {
		return nil, errRequesterRequired
	}

	return &Watch{
		roster:    roster,
		requester: requester,
		logger:    log,
		states:    make(map[int]DeviceState),
	}, nil
}

// Check probes one device. A device already being checked is left alone; a
// throttled request keeps the prior state and reports probe.ErrThrottled so
// the caller can tell the operator the last answer is still fresh.
func (w *Watch) Check(ctx context.Context, deviceID int) error {
	token, err := w.tokenFor(deviceID)
	if err != nil {
		return err
	}

	w.mu.Lock()

	prior, known := w.states[deviceID]
	if prior.Status == StatusPending {
		w.mu.Unlock()
		return nil
	}

	w.states[deviceID] = DeviceState{
		DeviceID:   deviceID,
		Status:     StatusPending,
		BlockedIPs: prior.BlockedIPs,
		CheckedAt:  prior.CheckedAt,
	}
	w.mu.Unlock()

	done, err := w.requester.Request(ctx, deviceID, token)
	if err != nil {
		w.mu.Lock()
		if known {
			w.states[deviceID] = prior
		} else {
			delete(w.states, deviceID)
		}
		w.mu.Unlock()

		if errors.Is(err, probe.ErrThrottled) {
			return err
		}

		return fmt.Errorf("request settings: %w", err)
	}

	go w.await(ctx, deviceID, done)

	return nil
}

// States snapshots all device check states.
func (w *Watch) States() map[int]DeviceState {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make(map[int]DeviceState, len(w.states))
	for id, state := range w.states {
		out[id] = state
	}

	return out
}

// State returns the check state for one device.
func (w *Watch) State(deviceID int) (DeviceState, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	state, ok := w.states[deviceID]

	return state, ok
}

func (w *Watch) await(ctx context.Context, deviceID int, done <-chan probe.Result) {
	select {
	case <-ctx.Done():
		return
	case result, ok := <-done:
		// A joined request delivers its result to one waiter only; the
		// others see the closed channel and step aside.
		if !ok {
			return
		}

		w.apply(deviceID, result)
	}
}

func (w *Watch) apply(deviceID int, result probe.Result) {
	state := DeviceState{
		DeviceID:  deviceID,
		CheckedAt: time.Now(),
	}

	switch result.State {
	case probe.StateAnswered:
		state.Status = StatusOnline
		state.BlockedIPs = result.BlockedIPs
	default:
		state.Status = StatusUnreachable
		state.Err = result.Err
	}

	w.mu.Lock()
	w.states[deviceID] = state
	w.mu.Unlock()

	w.logger.Info().
		Int("device_id", deviceID).
		Str("status", state.Status.String()).
		Msg("Device check resolved")
}

func (w *Watch) tokenFor(deviceID int) (string, error) {
	for _, device := range w.roster.Devices() {
		if device.ID != deviceID {
			continue
		}

		if device.Token == "" {
			return "", fmt.Errorf("%w: id %d", errDeviceTokenMissing, deviceID)
		}

		return device.Token, nil
	}

	return "", fmt.Errorf("%w: id %d", errDeviceUnknown, deviceID)
}
