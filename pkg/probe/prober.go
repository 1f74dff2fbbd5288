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

// Package probe correlates fire-and-forget show-settings commands with the
// asynchronous replies devices emit on the event stream. Each device token
// carries at most one outstanding request; replies must be fresh relative to
// the request, and a bounded REST poll backs up the push path.
package probe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tinyids/console/pkg/logger"
	"github.com/tinyids/console/pkg/models"
)

// State tracks a request through its lifecycle.
type State int

const (
	StatePending State = iota
	StateAnswered
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAnswered:
		return "answered"
	case StateFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Result is delivered exactly once on a request's done channel.
type Result struct {
	Token      string
	DeviceID   int
	State      State
	Snapshot   models.SettingsSnapshot
	BlockedIPs []string
	Err        error
}

type pendingRequest struct {
	token       string
	deviceID    int
	requestedAt time.Time
	attempts    int
	done        chan Result
}

// Prober owns the pending-request map. Requests for different tokens are
// fully independent; a second request for a busy token joins the first
// instead of queuing.
type Prober struct {
	config    Config
	publisher Publisher
	fetcher   SnapshotFetcher
	clock     Clock
	logger    logger.Logger

	mu         sync.Mutex
	pending    map[string]*pendingRequest
	lastIssued map[string]time.Time
}

// New constructs a Prober. A nil clock falls back to the system clock; a nil
// fetcher disables the REST fallback so only streamed replies can answer.
func New(config Config, publisher Publisher, fetcher SnapshotFetcher, clock Clock, log logger.Logger) (*Prober, error) {
	if publisher == nil {
		return nil, errPublisherRequired
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if clock == nil {
		clock = realClock{}
	}

	return &Prober{
		config:     config,
		publisher:  publisher,
		fetcher:    fetcher,
		clock:      clock,
		logger:     log,
		pending:    make(map[string]*pendingRequest),
		lastIssued: make(map[string]time.Time),
	}, nil
}

// Request publishes a show-settings command for the device and returns the
// channel its Result will arrive on. An outstanding request for the same
// token is returned as-is; a token answered within the throttle window yields
// ErrThrottled instead of flooding the transport.
func (p *Prober) Request(ctx context.Context, deviceID int, token string) (<-chan Result, error) {
	if token == "" {
		return nil, errTokenRequired
	}

	now := p.clock.Now()

	p.mu.Lock()

	if entry, ok := p.pending[token]; ok {
		p.mu.Unlock()
		return entry.done, nil
	}

	if issued, ok := p.lastIssued[token]; ok && now.Sub(issued) < p.config.Throttle.Std() {
		p.mu.Unlock()
		return nil, ErrThrottled
	}

	// Reserve the slot before publishing so concurrent callers collapse
	// onto one request.
	entry := &pendingRequest{
		token:       token,
		deviceID:    deviceID,
		requestedAt: now,
		done:        make(chan Result, 1),
	}
	p.pending[token] = entry
	p.lastIssued[token] = now
	p.mu.Unlock()

	if err := p.publisher.RequestSettings(ctx, deviceID, token); err != nil {
		p.mu.Lock()
		delete(p.pending, token)
		delete(p.lastIssued, token)
		p.mu.Unlock()

		return nil, fmt.Errorf("publish settings request: %w", err)
	}

	p.logger.Debug().
		Str("token", token).
		Int("device_id", deviceID).
		Msg("Settings request published")

	return entry.done, nil
}

// Observe inspects one normalized streamed event and resolves the matching
// pending request when the reply is fresh. Stale and unmatched events are
// silently ignored; the return value reports whether an answer landed.
func (p *Prober) Observe(record *models.LogRecord) bool {
	if record == nil || record.Token == "" {
		return false
	}

	p.mu.Lock()

	entry, ok := p.pending[record.Token]
	if !ok {
		p.mu.Unlock()
		return false
	}

	replyAt := replyTime(record)
	if replyAt.Before(entry.requestedAt.Add(-p.config.StalenessSlack.Std())) {
		p.mu.Unlock()
		p.logger.Debug().
			Str("token", record.Token).
			Time("reply_at", replyAt).
			Time("requested_at", entry.requestedAt).
			Msg("Ignoring stale settings reply")

		return false
	}

	delete(p.pending, record.Token)
	p.mu.Unlock()

	snapshot := snapshotFromRecord(record)
	p.resolve(entry, Result{
		Token:      entry.token,
		DeviceID:   entry.deviceID,
		State:      StateAnswered,
		Snapshot:   snapshot,
		BlockedIPs: snapshot.BlockedIPs(),
	})

	return true
}

// Run drives the poll fallback until ctx is cancelled. Every tick re-polls
// each outstanding request once and fails those that exhaust their budget.
func (p *Prober) Run(ctx context.Context) error {
	ticker := p.clock.Ticker(p.config.PollInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			p.sweep(ctx)
		}
	}
}

// IsPending reports whether a request for token is outstanding.
func (p *Prober) IsPending(token string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.pending[token]

	return ok
}

// Outstanding returns the number of unresolved requests.
func (p *Prober) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.pending)
}

func (p *Prober) sweep(ctx context.Context) {
	p.mu.Lock()

	entries := make([]*pendingRequest, 0, len(p.pending))

	for _, entry := range p.pending {
		entry.attempts++
		entries = append(entries, entry)
	}
	p.mu.Unlock()

	for _, entry := range entries {
		if p.pollOnce(ctx, entry) {
			continue
		}

		if entry.attempts >= p.config.MaxAttempts {
			p.fail(entry)
		}
	}
}

// pollOnce reports whether the request got answered, either here or by a
// concurrent push reply.
func (p *Prober) pollOnce(ctx context.Context, entry *pendingRequest) bool {
	if p.fetcher == nil {
		return false
	}

	snapshot, err := p.fetcher.LatestSettings(ctx, entry.deviceID)
	if err != nil {
		p.logger.Debug().
			Err(err).
			Str("token", entry.token).
			Msg("Latest-settings poll failed")

		return false
	}

	receivedAt := snapshot.ReceivedAt()
	if receivedAt.IsZero() || receivedAt.Before(entry.requestedAt.Add(-p.config.StalenessSlack.Std())) {
		return false
	}

	taken := p.take(entry.token)
	if taken == nil {
		// A push reply won the race.
		return true
	}

	p.resolve(taken, Result{
		Token:      taken.token,
		DeviceID:   taken.deviceID,
		State:      StateAnswered,
		Snapshot:   snapshot,
		BlockedIPs: snapshot.BlockedIPs(),
	})

	return true
}

func (p *Prober) fail(entry *pendingRequest) {
	taken := p.take(entry.token)
	if taken == nil {
		return
	}

	p.logger.Warn().
		Str("token", taken.token).
		Int("attempts", taken.attempts).
		Msg("Device did not respond to settings request")

	p.resolve(taken, Result{
		Token:    taken.token,
		DeviceID: taken.deviceID,
		State:    StateFailed,
		Err:      ErrNoResponse,
	})
}

// take removes and returns the pending entry, or nil when a competing path
// already resolved it.
func (p *Prober) take(token string) *pendingRequest {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.pending[token]
	if !ok {
		return nil
	}

	delete(p.pending, token)

	return entry
}

func (p *Prober) resolve(entry *pendingRequest, result Result) {
	entry.done <- result
	close(entry.done)

	p.logger.Info().
		Str("token", result.Token).
		Str("state", result.State.String()).
		Msg("Settings request resolved")
}

// replyTime prefers the backend receipt stamp buried in the payload over the
// record's own timestamp.
func replyTime(record *models.LogRecord) time.Time {
	if ts := snapshotFromRecord(record).ReceivedAt(); !ts.IsZero() {
		return ts
	}

	return record.Timestamp
}

func snapshotFromRecord(record *models.LogRecord) models.SettingsSnapshot {
	if payload, ok := record.Raw["payload"].(map[string]interface{}); ok {
		return models.SettingsSnapshot(payload)
	}

	return models.SettingsSnapshot(record.Raw)
}
