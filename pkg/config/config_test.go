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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyids/console/pkg/logger"
	"github.com/tinyids/console/pkg/models"
)

type nestedTestConfig struct {
	BaseURL string          `json:"base_url"`
	Timeout models.Duration `json:"timeout"`
}

type testConfig struct {
	Name     string            `json:"name"`
	Port     int               `json:"port"`
	Debug    bool              `json:"debug"`
	Interval time.Duration     `json:"interval"`
	Tags     []string          `json:"tags"`
	API      nestedTestConfig  `json:"api"`
	Optional *nestedTestConfig `json:"optional"`

	validateCalls int
}

func (c *testConfig) Validate() error {
	c.validateCalls++

	if c.Port == 0 {
		c.Port = 8080
	}

	if c.Name == "reject-me" {
		return errors.New("rejected by validator")
	}

	return nil
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAndValidateFromFile(t *testing.T) {
	path := writeConfigFile(t, `{
		"name": "console",
		"debug": true,
		"interval": 5000000000,
		"api": {"base_url": "http://localhost:5000", "timeout": "30s"}
	}`)

	var cfg testConfig

	loader := NewConfig(logger.NewTestLogger())
	require.NoError(t, loader.LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, "console", cfg.Name)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.Equal(t, "http://localhost:5000", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout.Std())
	assert.Equal(t, 8080, cfg.Port, "validator should fill defaults")
	assert.Equal(t, 1, cfg.validateCalls)
}

func TestLoadAndValidateMissingFile(t *testing.T) {
	var cfg testConfig

	loader := NewConfig(logger.NewTestLogger())
	err := loader.LoadAndValidate(context.Background(), "/does/not/exist.json", &cfg)
	require.Error(t, err)
}

func TestLoadAndValidateValidatorFailure(t *testing.T) {
	path := writeConfigFile(t, `{"name": "reject-me"}`)

	var cfg testConfig

	loader := NewConfig(logger.NewTestLogger())
	err := loader.LoadAndValidate(context.Background(), path, &cfg)
	require.ErrorContains(t, err, "rejected by validator")
}

func TestLoadAndValidateRejectsUnknownSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "consul")

	var cfg testConfig

	loader := NewConfig(logger.NewTestLogger())
	err := loader.LoadAndValidate(context.Background(), "unused.json", &cfg)
	require.ErrorIs(t, err, errInvalidConfigSource)
}

func TestLoadAndValidateFromEnvSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("TINYIDS_NAME", "from-env")
	t.Setenv("TINYIDS_PORT", "9090")
	t.Setenv("TINYIDS_API_BASE_URL", "http://backend:5000")
	t.Setenv("TINYIDS_API_TIMEOUT", "45s")

	var cfg testConfig

	loader := NewConfig(logger.NewTestLogger())
	require.NoError(t, loader.LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "http://backend:5000", cfg.API.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.API.Timeout.Std())
}

func TestEnvLoaderFields(t *testing.T) {
	t.Setenv("TINYIDS_NAME", "env-console")
	t.Setenv("TINYIDS_DEBUG", "true")
	t.Setenv("TINYIDS_INTERVAL", "2m")
	t.Setenv("TINYIDS_TAGS", "alpha, beta,gamma")
	t.Setenv("TINYIDS_OPTIONAL_BASE_URL", "http://opt:5000")

	var cfg testConfig

	loader := NewEnvConfigLoader(logger.NewTestLogger(), "TINYIDS_")
	require.NoError(t, loader.Load(context.Background(), "", &cfg))

	assert.Equal(t, "env-console", cfg.Name)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 2*time.Minute, cfg.Interval, "time.Duration fields take duration strings")
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, cfg.Tags)

	require.NotNil(t, cfg.Optional, "nested pointer structs are allocated on demand")
	assert.Equal(t, "http://opt:5000", cfg.Optional.BaseURL)
}

func TestEnvLoaderCustomPrefix(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CONFIG_ENV_PREFIX", "IDS_")
	t.Setenv("IDS_NAME", "prefixed")

	var cfg testConfig

	loader := NewConfig(logger.NewTestLogger())
	require.NoError(t, loader.LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, "prefixed", cfg.Name)
}

func TestEnvLoaderConfigJSONWins(t *testing.T) {
	t.Setenv("TINYIDS_CONFIG_JSON", `{"name": "wholesale", "port": 7070}`)
	t.Setenv("TINYIDS_NAME", "ignored")

	var cfg testConfig

	loader := NewEnvConfigLoader(logger.NewTestLogger(), "TINYIDS_")
	require.NoError(t, loader.Load(context.Background(), "", &cfg))

	assert.Equal(t, "wholesale", cfg.Name)
	assert.Equal(t, 7070, cfg.Port)
}

func TestEnvLoaderConfigJSONInvalid(t *testing.T) {
	t.Setenv("TINYIDS_CONFIG_JSON", `{not json`)

	var cfg testConfig

	loader := NewEnvConfigLoader(logger.NewTestLogger(), "TINYIDS_")
	err := loader.Load(context.Background(), "", &cfg)
	require.Error(t, err)
}

func TestEnvLoaderRejectsNonPointer(t *testing.T) {
	loader := NewEnvConfigLoader(logger.NewTestLogger(), "TINYIDS_")

	err := loader.Load(context.Background(), "", testConfig{})
	require.ErrorIs(t, err, ErrDstMustBeNonNilPointer)

	value := 42
	err = loader.Load(context.Background(), "", &value)
	require.ErrorIs(t, err, ErrDstMustBePointerToStruct)
}

func TestEnvLoaderSkipsBadValues(t *testing.T) {
	t.Setenv("TINYIDS_PORT", "not-a-number")
	t.Setenv("TINYIDS_NAME", "still-loads")

	var cfg testConfig

	loader := NewEnvConfigLoader(logger.NewTestLogger(), "TINYIDS_")
	require.NoError(t, loader.Load(context.Background(), "", &cfg))

	assert.Equal(t, "still-loads", cfg.Name, "one bad variable must not sink the rest")
	assert.Zero(t, cfg.Port)
}

func TestValidateConfigWithoutValidator(t *testing.T) {
	t.Parallel()

	type plain struct{ Name string }

	require.NoError(t, ValidateConfig(&plain{}))
}
