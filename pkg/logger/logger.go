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

// Package logger provides JSON structured logging using zerolog.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls log level, destination, and timestamp formatting.
type Config struct {
	Level      string `json:"level"`
	Debug      bool   `json:"debug"`
	Output     string `json:"output"`
	TimeFormat string `json:"time_format"`
}

// zlogLogger implements the Logger interface without global state so each
// component can carry its own configured instance.
type zlogLogger struct {
	logger zerolog.Logger
}

// New creates a logger from the provided configuration. A nil config uses
// defaults from the environment. Output accepts stdout, stderr, discard, or
// a file path; files stay open for the life of the process.
func New(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	output, err := openOutput(config.Output)
	if err != nil {
		return nil, err
	}

	level := zerolog.InfoLevel

	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		var err error

		level, err = zerolog.ParseLevel(config.Level)
		if err != nil {
			return nil, err
		}
	}

	timeFormat := time.RFC3339
	if config.TimeFormat != "" {
		timeFormat = config.TimeFormat
	}

	zerolog.TimeFieldFormat = timeFormat

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &zlogLogger{logger: zlog}, nil
}

func openOutput(target string) (io.Writer, error) {
	switch target {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "discard":
		return io.Discard, nil
	default:
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log output: %w", err)
		}

		return f, nil
	}
}

// NewComponentLogger creates a logger tagged with a component field.
func NewComponentLogger(component string, config *Config) (Logger, error) {
	base, err := New(config)
	if err != nil {
		return nil, err
	}

	impl := base.(*zlogLogger)

	return &zlogLogger{
		logger: impl.logger.With().Str("component", component).Logger(),
	}, nil
}

func (l *zlogLogger) Trace() *zerolog.Event {
	return l.logger.Trace()
}

func (l *zlogLogger) Debug() *zerolog.Event {
	return l.logger.Debug()
}

func (l *zlogLogger) Info() *zerolog.Event {
	return l.logger.Info()
}

func (l *zlogLogger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

func (l *zlogLogger) Error() *zerolog.Event {
	return l.logger.Error()
}

func (l *zlogLogger) Fatal() *zerolog.Event {
	return l.logger.Fatal()
}

func (l *zlogLogger) Panic() *zerolog.Event {
	return l.logger.Panic()
}

func (l *zlogLogger) With() zerolog.Context {
	return l.logger.With()
}

func (l *zlogLogger) WithComponent(component string) zerolog.Logger {
	return l.logger.With().Str("component", component).Logger()
}

func (l *zlogLogger) WithFields(fields map[string]interface{}) zerolog.Logger {
	ctx := l.logger.With()
	for key, value := range fields {
		ctx = ctx.Interface(key, value)
	}

	return ctx.Logger()
}

func (l *zlogLogger) SetLevel(level zerolog.Level) {
	l.logger = l.logger.Level(level)
}

func (l *zlogLogger) SetDebug(debug bool) {
	if debug {
		l.SetLevel(zerolog.DebugLevel)
	} else {
		l.SetLevel(zerolog.InfoLevel)
	}
}
