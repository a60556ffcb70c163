// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command evalserver starts the text-to-mongo evaluation HTTP server.
//
// This is the main entry point for the containerized service. It reads
// configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - T2M_SERVER_PORT: HTTP server port (default: 12310)
//   - T2M_STORE_PATH: BadgerDB directory for persisted reports (optional)
//   - T2M_CATALOG_PATH: YAML schema catalog to hot-reload (optional)
//   - T2M_API_TOKEN: static bearer token; unset leaves the API open
//   - T2M_EVAL_CONCURRENCY: parallel example evaluation bound (default: 8)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (optional)
//   - T2M_INFLUX_URL, T2M_INFLUX_TOKEN, T2M_INFLUX_ORG, T2M_INFLUX_BUCKET:
//     optional run-telemetry sink
//
// # Usage
//
//	go build -o evalserver ./cmd/evalserver
//	./evalserver
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/jangel97/text-to-mongo/services/evalserver"
	"github.com/jangel97/text-to-mongo/services/evalserver/telemetry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := evalserver.DefaultConfig()
	cfg.Port = getEnvInt("T2M_SERVER_PORT", cfg.Port)
	cfg.StorePath = os.Getenv("T2M_STORE_PATH")
	cfg.CatalogPath = os.Getenv("T2M_CATALOG_PATH")
	cfg.OTelEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.Concurrency = getEnvInt("T2M_EVAL_CONCURRENCY", cfg.Concurrency)
	cfg.Influx = telemetry.Config{
		URL:    os.Getenv("T2M_INFLUX_URL"),
		Token:  os.Getenv("T2M_INFLUX_TOKEN"),
		Org:    os.Getenv("T2M_INFLUX_ORG"),
		Bucket: os.Getenv("T2M_INFLUX_BUCKET"),
	}
	cfg.Logger = logger

	slog.Info("starting evalserver",
		"port", cfg.Port,
		"store_path", cfg.StorePath,
		"catalog_path", cfg.CatalogPath,
		"concurrency", cfg.Concurrency,
	)

	// nil options: open-source defaults plus T2M_API_TOKEN handling.
	// Enterprise builds pass custom ServiceOptions here.
	svc, err := evalserver.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create evalserver: %v", err)
	}

	if err := svc.Run(context.Background()); err != nil {
		log.Fatalf("Evalserver error: %v", err)
	}
}

// getEnvInt returns the integer value of an environment variable or a
// default when unset or malformed.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("ignoring malformed integer env var", "key", key, "value", value)
		return defaultValue
	}
	return n
}
