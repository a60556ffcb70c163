// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package evalserver assembles the evaluation HTTP service: router,
// middleware, run store, catalog watcher, telemetry sink, and tracing.
package evalserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/jangel97/text-to-mongo/pkg/extensions"
	"github.com/jangel97/text-to-mongo/pkg/schema"
	"github.com/jangel97/text-to-mongo/services/evalserver/handlers"
	"github.com/jangel97/text-to-mongo/services/evalserver/middleware"
	"github.com/jangel97/text-to-mongo/services/evalserver/observability"
	"github.com/jangel97/text-to-mongo/services/evalserver/routes"
	"github.com/jangel97/text-to-mongo/services/evalserver/store"
	"github.com/jangel97/text-to-mongo/services/evalserver/telemetry"
	"github.com/jangel97/text-to-mongo/services/evalserver/watcher"
)

const serviceName = "t2m-evalserver"

// Config holds the service configuration, usually built from environment
// variables by cmd/evalserver.
type Config struct {
	// Port is the HTTP listen port.
	Port int

	// StorePath is the BadgerDB directory for persisted reports.
	// Empty disables persistence and the /v1/runs endpoints.
	StorePath string

	// CatalogPath is a YAML schema catalog to load and hot-reload.
	// Empty serves the built-in catalog.
	CatalogPath string

	// OTelEndpoint is the OTLP/gRPC collector address. Empty disables
	// tracing.
	OTelEndpoint string

	// Influx configures the optional run-telemetry sink.
	Influx telemetry.Config

	// Concurrency bounds parallel example evaluation per batch.
	Concurrency int

	// RateLimit bounds the request rate across all clients.
	RateLimit routes.RateLimit

	// Logger for the service. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the local-deployment defaults.
func DefaultConfig() Config {
	return Config{
		Port:        12310,
		Concurrency: 8,
		RateLimit:   routes.DefaultRateLimit(),
	}
}

// Service is a fully wired evaluation server.
type Service struct {
	cfg     Config
	logger  *slog.Logger
	router  *gin.Engine
	store   *store.RunStore
	sink    *telemetry.RunSink
	watcher *watcher.CatalogWatcher

	tracerShutdown func(context.Context)
}

// New builds the service. opts injects enterprise extension points; pass
// nil for the open-source defaults plus T2M_API_TOKEN handling.
func New(cfg Config, opts *extensions.ServiceOptions) (*Service, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	if opts == nil {
		o := extensions.DefaultOptions().
			WithAuth(middleware.TokenGuardFromEnv(logger)).
			WithAudit(extensions.NewSlogAuditLogger(logger))
		opts = &o
	}

	metrics := observability.InitMetrics()

	var catalogWatcher *watcher.CatalogWatcher
	if cfg.CatalogPath != "" {
		var err error
		catalogWatcher, err = watcher.New(cfg.CatalogPath, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("loading catalog %s: %w", cfg.CatalogPath, err)
		}
	} else {
		catalogWatcher = watcher.Static(schema.BuiltinCatalog())
	}

	var runStore *store.RunStore
	if cfg.StorePath != "" {
		var err error
		runStore, err = store.Open(store.DefaultConfig(cfg.StorePath))
		if err != nil {
			catalogWatcher.Stop()
			return nil, fmt.Errorf("opening run store: %w", err)
		}
	} else {
		logger.Info("no store path configured, reports will not be persisted")
	}

	sink, err := telemetry.New(cfg.Influx, logger)
	if err != nil {
		catalogWatcher.Stop()
		if runStore != nil {
			_ = runStore.Close()
		}
		return nil, fmt.Errorf("connecting telemetry sink: %w", err)
	}

	deps := handlers.Deps{
		Catalog:     catalogWatcher.Catalog,
		Store:       runStore,
		Sink:        sink,
		Metrics:     metrics,
		Audit:       opts.AuditLogger,
		Logger:      logger,
		Concurrency: cfg.Concurrency,
	}

	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))
	routes.SetupRoutes(router, deps, *opts, cfg.RateLimit)

	return &Service{
		cfg:     cfg,
		logger:  logger,
		router:  router,
		store:   runStore,
		sink:    sink,
		watcher: catalogWatcher,
	}, nil
}

// Router exposes the gin engine, used by tests to drive requests without
// a listener.
func (s *Service) Router() *gin.Engine {
	return s.router
}

// Run starts the catalog watcher, the tracer, and the HTTP listener.
// Blocks until the listener stops.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.OTelEndpoint != "" {
		shutdown, err := initTracer(ctx, s.cfg.OTelEndpoint)
		if err != nil {
			return fmt.Errorf("setting up the OTLP tracer: %w", err)
		}
		s.tracerShutdown = shutdown
	}
	defer s.Close()

	if err := s.watcher.Start(ctx); err != nil {
		return fmt.Errorf("starting catalog watcher: %w", err)
	}

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("starting evaluation server", "addr", addr)
	return s.router.Run(addr)
}

// Close releases all resources. Safe to call after a failed Run.
func (s *Service) Close() {
	s.watcher.Stop()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("closing run store", "error", err)
		}
	}
	s.sink.Close()
	if s.tracerShutdown != nil {
		s.tracerShutdown(context.Background())
	}
}

// initTracer configures the OTLP/gRPC trace exporter and installs the
// global tracer provider. Returns the shutdown function.
func initTracer(ctx context.Context, endpoint string) (func(context.Context), error) {
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}
