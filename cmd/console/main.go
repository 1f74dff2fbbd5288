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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/tinyids/console/pkg/config"
	"github.com/tinyids/console/pkg/console"
	"github.com/tinyids/console/pkg/logger"
	"github.com/tinyids/console/pkg/session"
	"github.com/tinyids/console/pkg/version"
)

var errFailedToLoadConfig = fmt.Errorf("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to console config file (empty: environment only)")
	envFile := flag.String("env-file", "", "Optional .env file loaded before the config")
	deviceID := flag.Int("device", 0, "Open with the log view filtered to this device id")
	severity := flag.String("severity", "", "Restrict backend log polls to one severity")
	token := flag.String("token", "", "API bearer token (overrides config and stored session)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("tinyids-console " + version.GetFullVersion())
		return nil
	}

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	} else {
		// A .env in the working directory is optional.
		_ = godotenv.Load()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		return err
	}

	if *severity != "" {
		cfg.Feed.Severity = *severity
	}

	// The TUI owns the terminal, so terminal log sinks move to a file the
	// operator can tail instead.
	if cfg.Logging.Output == "" || cfg.Logging.Output == "stdout" || cfg.Logging.Output == "stderr" {
		cfg.Logging.Output = filepath.Join(os.TempDir(), "tinyids-console.log")
	}

	consoleLogger, err := logger.NewComponentLogger("console", cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, stored, err := loadSession(cfg, consoleLogger)
	if err != nil {
		return err
	}

	// Token precedence: flag, then config, then stored session.
	if *token != "" {
		cfg.API.Token = *token
	} else if cfg.API.Token == "" {
		cfg.API.Token = stored.AccessToken
	}

	startDevice := *deviceID
	if startDevice == 0 {
		startDevice = stored.LastDeviceID
	}

	c, err := console.Build(ctx, cfg, consoleLogger)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, runCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := c.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		return nil
	})

	program := tea.NewProgram(
		newModel(c, startDevice),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	final, uiErr := program.Run()

	// The UI is gone; wind down the feed and prober.
	cancel()

	if err := group.Wait(); err != nil && uiErr == nil {
		uiErr = err
	}

	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) && !errors.Is(uiErr, context.Canceled) {
		return uiErr
	}

	saveSession(store, stored, cfg.API.Token, final, consoleLogger)

	return nil
}

func loadConfig(ctx context.Context, path string) (*console.Config, error) {
	loader := config.NewConfig(nil)

	var cfg console.Config

	if path != "" {
		if err := loader.LoadAndValidate(ctx, path, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
		}

		return &cfg, nil
	}

	if err := loader.LoadFromEnv(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	return &cfg, nil
}

// loadSession opens the configured session store. A console without a
// session file runs fine; it just starts cold every time.
func loadSession(cfg *console.Config, log logger.Logger) (*session.Store, session.Session, error) {
	if cfg.SessionFile == "" {
		return nil, session.Session{}, nil
	}

	store, err := session.NewStore(cfg.SessionFile, log)
	if err != nil {
		return nil, session.Session{}, fmt.Errorf("open session store: %w", err)
	}

	stored, err := store.Load()
	if err != nil {
		return nil, session.Session{}, fmt.Errorf("load session: %w", err)
	}

	return store, stored, nil
}

// saveSession persists the token and the device the operator was looking at
// so the next run picks up where this one left off.
func saveSession(store *session.Store, stored session.Session, token string, final tea.Model, log logger.Logger) {
	if store == nil {
		return
	}

	stored.AccessToken = token

	if m, ok := final.(*model); ok {
		stored.LastDeviceID = m.currentDeviceID()
	}

	if err := store.Save(stored); err != nil {
		log.Warn().Err(err).Msg("Could not persist session")
	}
}
