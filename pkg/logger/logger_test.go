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

package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithNilConfigUsesDefaults(t *testing.T) {
	log, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestNewParsesLevel(t *testing.T) {
	log, err := New(&Config{Level: "warn"})
	require.NoError(t, err)

	impl, ok := log.(*zlogLogger)
	require.True(t, ok)
	assert.Equal(t, zerolog.WarnLevel, impl.logger.GetLevel())
}

func TestNewDebugOverridesLevel(t *testing.T) {
	log, err := New(&Config{Level: "error", Debug: true})
	require.NoError(t, err)

	impl, ok := log.(*zlogLogger)
	require.True(t, ok)
	assert.Equal(t, zerolog.DebugLevel, impl.logger.GetLevel())
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "loudest"})
	require.Error(t, err)
}

func TestNewComponentLogger(t *testing.T) {
	log, err := NewComponentLogger("feed", &Config{Level: "info"})
	require.NoError(t, err)
	require.NotNil(t, log)

	// Component loggers must still honor runtime level changes.
	log.SetDebug(true)

	impl, ok := log.(*zlogLogger)
	require.True(t, ok)
	assert.Equal(t, zerolog.DebugLevel, impl.logger.GetLevel())
}

func TestNewWritesToFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")

	log, err := New(&Config{Level: "info", Output: path})
	require.NoError(t, err)

	log.Info().Msg("file sink works")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"file sink works"`)
}

func TestNewDiscardOutput(t *testing.T) {
	log, err := New(&Config{Level: "info", Output: "discard"})
	require.NoError(t, err)

	log.Info().Msg("ignored")
}

func TestTestLoggerDiscardsOutput(t *testing.T) {
	log := NewTestLogger()

	// Must not panic or emit anything.
	log.Info().Str("key", "value").Msg("ignored")
	log.Error().Msg("ignored too")
}
