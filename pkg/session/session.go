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

// Package session persists the operator's login token and last-selected
// device between console runs. The file holds only opaque session state;
// everything else lives on the backend.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tinyids/console/pkg/logger"
)

const (
	sessionDirPerms  = 0o700
	sessionFilePerms = 0o600
)

var errPathRequired = errors.New("session store path is required")

// Session is the persisted console state.
type Session struct {
	AccessToken  string `json:"access_token,omitempty"`
	Username     string `json:"username,omitempty"`
	LastDeviceID int    `json:"last_device_id,omitempty"`
}

// Store reads and writes the session file. Writes go through a temp file
// and rename so a crash mid-write never corrupts the stored token.
type Store struct {
	path   string
	logger logger.Logger
	mu     sync.Mutex
}

// NewStore creates the session directory if needed and returns a store
// bound to path.
func NewStore(path string, log logger.Logger) (*Store, error) {
	if path == "" {
		return nil, errPathRequired
	}

	if err := os.MkdirAll(filepath.Dir(path), sessionDirPerms); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	return &Store{path: path, logger: log}, nil
}

// Load restores the stored session. A missing file is not an error; it
// yields an empty session for a first run.
func (s *Store) Load() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sess Session

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return sess, nil
		}

		return sess, fmt.Errorf("read session: %w", err)
	}

	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}

	return sess, nil
}

// Save writes the session to disk, replacing whatever was stored.
func (s *Store) Save(sess Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, payload, sessionFilePerms); err != nil {
		return fmt.Errorf("write temporary session: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath) // best-effort cleanup
		return fmt.Errorf("persist session: %w", err)
	}

	s.logger.Debug().Str("path", s.path).Msg("Session saved")

	return nil
}

// Clear removes the stored session. Clearing an absent file succeeds.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}

	return nil
}
