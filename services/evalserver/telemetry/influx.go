// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry ships per-run evaluation rates to InfluxDB.
//
// The sink is optional: the service runs fine without it, and a nil
// *RunSink is safe to call. One point is written per completed run
// (measurement "eval_runs"), which keeps historical rate charts cheap to
// query without loading full reports from the run store.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/jangel97/text-to-mongo/services/evaluation/datatypes"
)

// Measurement name for run-level points.
const runMeasurement = "eval_runs"

// Config holds InfluxDB connection settings.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Enabled reports whether the configuration names a server.
func (c Config) Enabled() bool {
	return c.URL != ""
}

// RunSink writes one point per evaluation run.
//
// Thread Safety: safe for concurrent use; the blocking write API
// serializes internally.
type RunSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	logger   *slog.Logger
}

// New connects to InfluxDB. Returns (nil, nil) when the configuration is
// disabled so callers can wire the sink unconditionally.
func New(cfg Config, logger *slog.Logger) (*RunSink, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx org and bucket are required when url is set")
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &RunSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		logger:   logger,
	}, nil
}

// WriteRun records one report as a single point: run_id and split as tags,
// rates and totals as fields. A nil receiver is a no-op.
func (s *RunSink) WriteRun(ctx context.Context, report datatypes.EvalReport) error {
	if s == nil {
		return nil
	}
	fields := map[string]interface{}{
		"total":              report.Total,
		"syntax_pass_rate":   report.SyntaxPassRate,
		"operator_pass_rate": report.OperatorPassRate,
		"field_pass_rate":    report.FieldPassRate,
		"overall_pass_rate":  report.OverallPassRate,
	}
	if gen := report.Generalization; gen != nil {
		fields["held_out_syntax_pass_rate"] = gen.HeldOutSyntaxPassRate
		fields["held_out_operator_pass_rate"] = gen.HeldOutOperatorPassRate
		fields["held_out_field_pass_rate"] = gen.HeldOutFieldPassRate
		fields["generalization_flagged"] = gen.Flagged
	}

	p := influxdb2.NewPoint(
		runMeasurement,
		map[string]string{
			"run_id": report.RunID,
			"split":  report.Split,
		},
		fields,
		report.CreatedAt,
	)
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("write run point %s: %w", report.RunID, err)
	}
	s.logger.Debug("run telemetry written", "run_id", report.RunID)
	return nil
}

// Close releases the client. A nil receiver is a no-op.
func (s *RunSink) Close() {
	if s == nil {
		return
	}
	s.client.Close()
}
