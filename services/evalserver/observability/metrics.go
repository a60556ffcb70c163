// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the evaluation
// service.
//
// Metrics cover request counts, batch sizes, per-layer pass counts,
// evaluation latency, and active websocket streams. They are exposed via
// the /metrics endpoint for Prometheus + Grafana.
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics.
const metricsNamespace = "t2m"

// Subsystem for evaluation metrics.
const evalSubsystem = "eval"

// Endpoint labels a metrics series with the operation that produced it.
type Endpoint string

const (
	// EndpointEvaluate is the batch evaluation endpoint.
	EndpointEvaluate Endpoint = "evaluate"

	// EndpointValidate is the single-prediction validation endpoint.
	EndpointValidate Endpoint = "validate"

	// EndpointStream is the websocket streaming endpoint.
	EndpointStream Endpoint = "stream"

	// EndpointRuns covers the stored-run CRUD endpoints.
	EndpointRuns Endpoint = "runs"
)

// Metrics holds all Prometheus metrics for the evaluation service.
//
// Initialize once at startup via InitMetrics().
type Metrics struct {
	// RequestsTotal counts requests by endpoint and status.
	// Labels: endpoint (evaluate, validate, stream, runs), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// ExamplesTotal counts evaluated examples by layer outcome.
	// Labels: layer (syntax, operators, fields, overall), result (pass, fail)
	ExamplesTotal *prometheus.CounterVec

	// BatchSize measures the number of examples per evaluation request.
	BatchSize prometheus.Histogram

	// EvalDurationSeconds measures end-to-end batch evaluation latency.
	// Labels: endpoint (evaluate, stream)
	EvalDurationSeconds *prometheus.HistogramVec

	// ActiveStreams tracks currently open websocket evaluations.
	ActiveStreams prometheus.Gauge

	// AuthFailuresTotal counts rejected requests.
	// Labels: reason (missing_token, invalid_token)
	AuthFailuresTotal *prometheus.CounterVec

	// CatalogReloadsTotal counts schema-catalog hot reloads.
	// Labels: status (success, error)
	CatalogReloadsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance, set by InitMetrics.
var DefaultMetrics *Metrics

var initOnce sync.Once

// InitMetrics initializes and registers the default metrics instance.
// Registration with the default Prometheus registry must happen once per
// process, so repeated calls return the same instance.
func InitMetrics() *Metrics {
	initOnce.Do(func() {
		DefaultMetrics = &Metrics{
			RequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: evalSubsystem,
					Name:      "requests_total",
					Help:      "Total requests by endpoint and status",
				},
				[]string{"endpoint", "status"},
			),

			ExamplesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: evalSubsystem,
					Name:      "examples_total",
					Help:      "Evaluated examples by layer and outcome",
				},
				[]string{"layer", "result"},
			),

			BatchSize: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: metricsNamespace,
					Subsystem: evalSubsystem,
					Name:      "batch_size",
					Help:      "Examples per evaluation request",
					Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000},
				},
			),

			EvalDurationSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: metricsNamespace,
					Subsystem: evalSubsystem,
					Name:      "duration_seconds",
					Help:      "End-to-end batch evaluation latency in seconds",
					Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
				},
				[]string{"endpoint"},
			),

			ActiveStreams: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: metricsNamespace,
					Subsystem: evalSubsystem,
					Name:      "active_streams",
					Help:      "Currently open websocket evaluations",
				},
			),

			AuthFailuresTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: evalSubsystem,
					Name:      "auth_failures_total",
					Help:      "Rejected requests by reason",
				},
				[]string{"reason"},
			),

			CatalogReloadsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: evalSubsystem,
					Name:      "catalog_reloads_total",
					Help:      "Schema catalog hot reloads by status",
				},
				[]string{"status"},
			),
		}
	})
	return DefaultMetrics
}

// RecordRequest records a completed request.
func (m *Metrics) RecordRequest(endpoint Endpoint, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// RecordExample records the four layer outcomes of one evaluated example.
func (m *Metrics) RecordExample(syntaxPass, opsPass, fieldsPass, overallPass bool) {
	record := func(layer string, pass bool) {
		result := "pass"
		if !pass {
			result = "fail"
		}
		m.ExamplesTotal.WithLabelValues(layer, result).Inc()
	}
	record("syntax", syntaxPass)
	record("operators", opsPass)
	record("fields", fieldsPass)
	record("overall", overallPass)
}

// RecordBatch records the size and duration of one evaluation batch.
func (m *Metrics) RecordBatch(endpoint Endpoint, size int, seconds float64) {
	m.BatchSize.Observe(float64(size))
	m.EvalDurationSeconds.WithLabelValues(string(endpoint)).Observe(seconds)
}

// RecordAuthFailure records a rejected request.
func (m *Metrics) RecordAuthFailure(reason string) {
	m.AuthFailuresTotal.WithLabelValues(reason).Inc()
}

// StreamStarted increments the active stream gauge.
func (m *Metrics) StreamStarted() {
	m.ActiveStreams.Inc()
}

// StreamEnded decrements the active stream gauge.
func (m *Metrics) StreamEnded() {
	m.ActiveStreams.Dec()
}

// RecordCatalogReload records a schema catalog reload attempt.
func (m *Metrics) RecordCatalogReload(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.CatalogReloadsTotal.WithLabelValues(status).Inc()
}
