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

// Command discover claims one unregistered sensor over the shared MQTT
// discovery topic and prints its registration token.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tinyids/console/pkg/discovery"
	"github.com/tinyids/console/pkg/logger"
	"github.com/tinyids/console/pkg/models"
	"github.com/tinyids/console/pkg/version"
)

const (
	defaultBrokerHost = "localhost"
	defaultBrokerPort = 8883

	defaultWaitDevice  = 10 * time.Second
	defaultWaitConfirm = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	host := flag.String("host", defaultBrokerHost, "MQTT broker host")
	port := flag.Int("port", defaultBrokerPort, "MQTT broker port")
	noTLS := flag.Bool("no-tls", false, "Connect over plain TCP instead of TLS")
	insecure := flag.Bool("insecure", false, "Skip broker certificate verification")
	caFile := flag.String("ca-certs", "", "PEM bundle for broker verification")
	username := flag.String("username", "", "Broker username (defaults to TINYIDS_MQTT_USERNAME)")
	password := flag.String("password", "", "Broker password (defaults to TINYIDS_MQTT_PASSWORD)")
	topic := flag.String("topic", discovery.DefaultTopic, "Discovery topic")
	nonceLength := flag.Int("nonce-length", 0, "Random characters in the nonce (default 8)")
	waitDevice := flag.Duration("wait-device", defaultWaitDevice, "How long to wait for a device reply")
	waitConfirm := flag.Duration("wait-confirm", defaultWaitConfirm, "How long to wait for the acknowledgement, 0 skips it")
	envFile := flag.String("env-file", "", "Path to .env file to load")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("tinyids-discover " + version.GetFullVersion())
		return nil
	}

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", *envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	if *username == "" {
		*username = os.Getenv("TINYIDS_MQTT_USERNAME")
	}

	if *password == "" {
		*password = os.Getenv("TINYIDS_MQTT_PASSWORD")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The round's result goes to stdout, so logs stay on stderr.
	logConfig := logger.DefaultConfig()
	logConfig.Output = "stderr"

	discoverLogger, err := logger.NewComponentLogger("discover", logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	scheme := "ssl"
	if *noTLS {
		scheme = "tcp"
	}

	transport, err := discovery.NewMQTTTransport(discovery.MQTTTransportConfig{
		BrokerURL: fmt.Sprintf("%s://%s:%d", scheme, *host, *port),
		Topic:     *topic,
		Username:  *username,
		Password:  *password,
		CAFile:    *caFile,
		Insecure:  *insecure,
	}, discoverLogger)
	if err != nil {
		return err
	}
	defer transport.Close()

	client, err := discovery.NewClient(discovery.Config{
		NonceLength: *nonceLength,
		WaitDevice:  models.Duration(*waitDevice),
		WaitConfirm: models.Duration(*waitConfirm),
	}, transport, discoverLogger)
	if err != nil {
		return err
	}

	result, err := client.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Registered device %s\n", result.DeviceID)
	fmt.Printf("  token: %s\n", result.Token)
	fmt.Printf("  nonce: %s\n", result.Nonce)

	if result.Confirmed {
		fmt.Println("  device acknowledged the confirmation")
	} else if *waitConfirm > 0 {
		fmt.Println("  no acknowledgement seen; the device may still be registered")
	}

	return nil
}
