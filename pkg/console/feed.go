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
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tinyids/console/pkg/logger"
	"github.com/tinyids/console/pkg/logview"
	"github.com/tinyids/console/pkg/models"
	"github.com/tinyids/console/pkg/normalize"
	"github.com/tinyids/console/pkg/stream"
)

var (
	errBackendRequired    = errors.New("feed backend is required")
	errSubscriberRequired = errors.New("feed subscriber is required")
)

// Backend is the REST surface the feed polls for snapshots. *api.Client
// satisfies it.
type Backend interface {
	Logs(ctx context.Context, severity string) ([]map[string]interface{}, error)
	Devices(ctx context.Context) ([]models.Device, error)
}

// Observer sees every normalized record that arrives on the push path.
// *probe.Prober satisfies it.
type Observer interface {
	Observe(record *models.LogRecord) bool
}

// Feed owns the merged log collection and the device roster. It folds two
// inputs into one state: periodic REST snapshots and live push events. Reads
// are safe from any goroutine once Run is started.
type Feed struct {
	config  FeedConfig
	backend Backend
	sub     stream.Subscriber
	logger  logger.Logger

	observers []Observer

	// pollSeq stamps each poll so a slow response that finishes after a
	// fresher one cannot clobber it.
	pollSeq atomic.Uint64

	mu       sync.RWMutex
	records  []*models.LogRecord
	devices  []models.Device
	tokens   map[string]int
	lastErr  error
	lastSync time.Time
}

// NewFeed wires a feed over the given backend and push subscriber.
func NewFeed(config FeedConfig, backend Backend, sub stream.Subscriber, log logger.Logger) (*Feed, error) {
	if backend == nil {
		return nil, errBackendRequired
	}

	if sub == nil {
		return nil, errSubscriberRequired
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Feed{
		config:  config,
		backend: backend,
		sub:     sub,
		logger:  log,
		tokens:  make(map[string]int),
	}, nil
}

// AddObserver registers an observer for push-path records. Observers must be
// registered before Run starts.
func (f *Feed) AddObserver(observer Observer) {
	f.observers = append(f.observers, observer)
}

// Run drives the subscriber, the push consumer, and the poll loop until ctx
// is cancelled or one of them fails.
func (f *Feed) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return f.sub.Run(ctx)
	})

	group.Go(func() error {
		return f.pushLoop(ctx)
	})

	group.Go(func() error {
		return f.pollLoop(ctx)
	})

	return group.Wait()
}

// Refresh polls the backend once and merges the snapshot in. Poll failures
// keep the previous collection intact and surface through Err; the next
// success clears it.
func (f *Feed) Refresh(ctx context.Context) {
	seq := f.pollSeq.Add(1)

	rows, err := f.backend.Logs(ctx, f.config.Severity)
	if err != nil {
		f.recordFailure(fmt.Errorf("poll logs: %w", err))
		return
	}

	devices, err := f.backend.Devices(ctx)
	if err != nil {
		f.recordFailure(fmt.Errorf("poll devices: %w", err))
		return
	}

	f.applyPoll(seq, normalizeRows(rows), devices)
}

// Records returns the merged collection, newest first.
func (f *Feed) Records() []*models.LogRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]*models.LogRecord, len(f.records))
	copy(out, f.records)

	return out
}

// Project runs q against the current collection. A query with no token index
// gets the feed's device roster injected, so device filters also catch
// records that identify their origin only by token.
func (f *Feed) Project(q logview.Query) []*models.LogRecord {
	f.mu.RLock()

	records := make([]*models.LogRecord, len(f.records))
	copy(records, f.records)

	if q.Tokens == nil {
		q.Tokens = f.tokens
	}
	f.mu.RUnlock()

	return logview.Project(records, q)
}

// Counts tallies the current collection over the rolling display windows.
func (f *Feed) Counts() models.LogCounters {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return logview.Counts(f.records, time.Now())
}

// Devices returns the latest device roster.
func (f *Feed) Devices() []models.Device {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]models.Device, len(f.devices))
	copy(out, f.devices)

	return out
}

// TokenIndex maps device tokens to device ids from the latest roster.
func (f *Feed) TokenIndex() map[string]int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[string]int, len(f.tokens))
	for token, id := range f.tokens {
		out[token] = id
	}

	return out
}

// Err returns the error from the most recent failed poll, nil after a
// success.
func (f *Feed) Err() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.lastErr
}

// LastSync returns when the last successful poll landed.
func (f *Feed) LastSync() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.lastSync
}

func (f *Feed) pollLoop(ctx context.Context) error {
	f.Refresh(ctx)

	ticker := time.NewTicker(f.config.PollInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f.Refresh(ctx)
		}
	}
}

func (f *Feed) pushLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-f.sub.Events():
			if !ok {
				return nil
			}

			f.handlePush(ctx, event)
		}
	}
}

func (f *Feed) handlePush(ctx context.Context, event models.PushEvent) {
	switch event.Event {
	case models.EventLogNew:
		f.ingestLogEvent(event)
	case models.EventDeviceRegistered, models.EventDeviceUpdated:
		f.refreshDevices(ctx)
	default:
		f.logger.Debug().
			Str("event", event.Event).
			Msg("Ignoring push event")
	}
}

// ingestLogEvent merges one pushed record and fans it out to observers.
// Observers run even when the merge drops the record as a duplicate: a
// record the collection already knows can still answer a pending settings
// request.
func (f *Feed) ingestLogEvent(event models.PushEvent) {
	var raw map[string]interface{}
	if err := json.Unmarshal(event.Data, &raw); err != nil {
		f.logger.Debug().
			Err(err).
			Msg("Dropping undecodable log event")

		return
	}

	record := normalize.Normalize(raw)
	if record == nil {
		f.logger.Debug().Msg("Dropping log event with no usable identity")
		return
	}

	f.mu.Lock()
	f.records = logview.Merge([]*models.LogRecord{record}, f.records, f.config.MaxRecords)
	f.mu.Unlock()

	for _, observer := range f.observers {
		observer.Observe(record)
	}
}

func (f *Feed) refreshDevices(ctx context.Context) {
	devices, err := f.backend.Devices(ctx)
	if err != nil {
		f.logger.Warn().
			Err(err).
			Msg("Device roster refresh failed")

		return
	}

	f.mu.Lock()
	f.devices = devices
	f.tokens = tokenIndex(devices)
	f.mu.Unlock()
}

// applyPoll installs a completed poll unless a fresher one has started since.
func (f *Feed) applyPoll(seq uint64, incoming []*models.LogRecord, devices []models.Device) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if seq != f.pollSeq.Load() {
		f.logger.Debug().
			Uint64("seq", seq).
			Msg("Discarding stale poll result")

		return
	}

	f.records = logview.Merge(incoming, f.records, f.config.MaxRecords)
	f.devices = devices
	f.tokens = tokenIndex(devices)
	f.lastErr = nil
	f.lastSync = time.Now()
}

func (f *Feed) recordFailure(err error) {
	f.mu.Lock()
	f.lastErr = err
	f.mu.Unlock()

	f.logger.Warn().
		Err(err).
		Msg("Feed poll failed, keeping last good snapshot")
}

func normalizeRows(rows []map[string]interface{}) []*models.LogRecord {
	records := make([]*models.LogRecord, 0, len(rows))

	for _, row := range rows {
		if record := normalize.Normalize(row); record != nil {
			records = append(records, record)
		}
	}

	return records
}

func tokenIndex(devices []models.Device) map[string]int {
	index := make(map[string]int, len(devices))

	for _, device := range devices {
		if device.Token != "" {
			index[device.Token] = device.ID
		}
	}

	return index
}
