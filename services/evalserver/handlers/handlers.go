// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the evaluation service's HTTP handlers.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jangel97/text-to-mongo/pkg/extensions"
	"github.com/jangel97/text-to-mongo/pkg/schema"
	"github.com/jangel97/text-to-mongo/services/evaluation/harness"
	"github.com/jangel97/text-to-mongo/services/evalserver/datatypes"
	"github.com/jangel97/text-to-mongo/services/evalserver/middleware"
	"github.com/jangel97/text-to-mongo/services/evalserver/observability"
	"github.com/jangel97/text-to-mongo/services/evalserver/store"
	"github.com/jangel97/text-to-mongo/services/evalserver/telemetry"
)

// Deps bundles the shared dependencies handlers close over.
//
// Catalog is a function so hot reloads take effect without restarting the
// router; it must never return nil. Metrics must be non-nil (use
// observability.InitMetrics). Store may be nil (reports are then not
// persisted and the /v1/runs endpoints answer 503). Sink is nil-safe.
type Deps struct {
	Catalog     func() *schema.Catalog
	Store       *store.RunStore
	Sink        *telemetry.RunSink
	Metrics     *observability.Metrics
	Audit       extensions.AuditLogger
	Logger      *slog.Logger
	Concurrency int
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d Deps) audit() extensions.AuditLogger {
	if d.Audit != nil {
		return d.Audit
	}
	return &extensions.NopAuditLogger{}
}

func userID(c *gin.Context) string {
	if info := middleware.GetAuthInfo(c); info != nil {
		return info.UserID
	}
	return "anonymous"
}

// HealthCheck reports service liveness and the size of the active catalog.
func HealthCheck(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, datatypes.HealthResponse{
			Status:      "ok",
			CatalogSize: len(deps.Catalog().Schemas),
		})
	}
}

// resolveExamples materializes every spec against the active catalog.
func resolveExamples(catalog *schema.Catalog, specs []datatypes.ExampleSpec) ([]schema.TrainingExample, error) {
	examples := make([]schema.TrainingExample, len(specs))
	for i, spec := range specs {
		ex, err := spec.Resolve(catalog)
		if err != nil {
			return nil, err
		}
		examples[i] = ex
	}
	return examples, nil
}

// heldOutSet picks the held-out collections for a request: an explicit
// list wins (empty list disables the analysis), otherwise the catalog's
// held-out set applies.
func heldOutSet(catalog *schema.Catalog, requested []string) map[string]struct{} {
	if requested == nil {
		return catalog.HeldOut
	}
	set := make(map[string]struct{}, len(requested))
	for _, name := range requested {
		set[name] = struct{}{}
	}
	return set
}

// HandleEvaluate runs a batch evaluation and returns the full report.
// Persists the report when a run store is configured and ships run
// telemetry when a sink is configured.
func HandleEvaluate(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.EvaluationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			deps.Metrics.RecordRequest(observability.EndpointEvaluate, false)
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		catalog := deps.Catalog()
		examples, err := resolveExamples(catalog, req.Examples)
		if err != nil {
			deps.Metrics.RecordRequest(observability.EndpointEvaluate, false)
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		runner := harness.New(
			harness.WithHeldOut(heldOutSet(catalog, req.HeldOut)),
			harness.WithConcurrency(deps.Concurrency),
			harness.WithLogger(deps.logger()),
			harness.WithSplit(req.Split),
		)

		start := time.Now()
		report, err := runner.Run(c.Request.Context(), examples, req.Predictions)
		if err != nil {
			deps.Metrics.RecordRequest(observability.EndpointEvaluate, false)
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		deps.Metrics.RecordBatch(observability.EndpointEvaluate, report.Total, time.Since(start).Seconds())
		for _, res := range report.Results {
			deps.Metrics.RecordExample(res.Syntax.Passed, res.Operators.Passed, res.Fields.Passed, res.PassedAll)
		}

		if deps.Store != nil {
			if err := deps.Store.Save(c.Request.Context(), report); err != nil {
				// The caller still gets their report; losing persistence is
				// logged, not fatal.
				deps.logger().Error("persisting report failed", "run_id", report.RunID, "error", err)
			}
		}
		if err := deps.Sink.WriteRun(c.Request.Context(), report); err != nil {
			deps.logger().Warn("run telemetry failed", "run_id", report.RunID, "error", err)
		}

		_ = deps.audit().Log(c.Request.Context(), extensions.AuditEvent{
			EventType:    "eval.run",
			UserID:       userID(c),
			Action:       "evaluate",
			ResourceType: "run",
			ResourceID:   report.RunID,
			Outcome:      "success",
			Metadata:     map[string]any{"total": report.Total, "split": report.Split},
		})

		deps.Metrics.RecordRequest(observability.EndpointEvaluate, true)
		c.JSON(http.StatusOK, report)
	}
}

// HandleValidate scores a single prediction against one schema and returns
// the three layer results without persisting anything.
func HandleValidate(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ValidateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			deps.Metrics.RecordRequest(observability.EndpointValidate, false)
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		spec := datatypes.ExampleSpec{
			Collection: req.Collection,
			Schema:     req.Schema,
			AllowedOps: req.AllowedOps,
		}
		example, err := spec.Resolve(deps.Catalog())
		if err != nil {
			deps.Metrics.RecordRequest(observability.EndpointValidate, false)
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		result := harness.New().EvalOne(example, req.Prediction)
		deps.Metrics.RecordExample(result.Syntax.Passed, result.Operators.Passed, result.Fields.Passed, result.PassedAll)
		deps.Metrics.RecordRequest(observability.EndpointValidate, true)

		c.JSON(http.StatusOK, datatypes.ValidateResponse{
			Syntax:    result.Syntax,
			Operators: result.Operators,
			Fields:    result.Fields,
			PassedAll: result.PassedAll,
		})
	}
}

// ListRuns returns summaries of all stored runs.
func ListRuns(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Store == nil {
			c.JSON(http.StatusServiceUnavailable, datatypes.ErrorResponse{Error: "run store not configured"})
			return
		}
		summaries, err := deps.Store.List(c.Request.Context())
		if err != nil {
			deps.Metrics.RecordRequest(observability.EndpointRuns, false)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		if summaries == nil {
			summaries = []store.RunSummary{}
		}
		deps.Metrics.RecordRequest(observability.EndpointRuns, true)
		c.JSON(http.StatusOK, gin.H{"runs": summaries})
	}
}

// GetRun returns one stored report in full.
func GetRun(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Store == nil {
			c.JSON(http.StatusServiceUnavailable, datatypes.ErrorResponse{Error: "run store not configured"})
			return
		}
		runID := c.Param("id")
		report, err := deps.Store.Get(c.Request.Context(), runID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: "run not found"})
			return
		}
		if err != nil {
			deps.Metrics.RecordRequest(observability.EndpointRuns, false)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		deps.Metrics.RecordRequest(observability.EndpointRuns, true)
		c.JSON(http.StatusOK, report)
	}
}

// DeleteRun removes one stored report.
func DeleteRun(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Store == nil {
			c.JSON(http.StatusServiceUnavailable, datatypes.ErrorResponse{Error: "run store not configured"})
			return
		}
		runID := c.Param("id")
		err := deps.Store.Delete(c.Request.Context(), runID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: "run not found"})
			return
		}
		if err != nil {
			deps.Metrics.RecordRequest(observability.EndpointRuns, false)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		_ = deps.audit().Log(c.Request.Context(), extensions.AuditEvent{
			EventType:    "run.delete",
			UserID:       userID(c),
			Action:       "delete",
			ResourceType: "run",
			ResourceID:   runID,
			Outcome:      "success",
		})
		deps.Metrics.RecordRequest(observability.EndpointRuns, true)
		c.Status(http.StatusNoContent)
	}
}
