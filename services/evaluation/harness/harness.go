// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package harness composes the three evaluation layers per example and
// aggregates pass rates across a batch.
package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jangel97/text-to-mongo/pkg/schema"
	"github.com/jangel97/text-to-mongo/services/evaluation/datatypes"
	"github.com/jangel97/text-to-mongo/services/evaluation/fields"
	"github.com/jangel97/text-to-mongo/services/evaluation/generalization"
	"github.com/jangel97/text-to-mongo/services/evaluation/operators"
	"github.com/jangel97/text-to-mongo/services/evaluation/syntax"
)

// ProgressFunc receives each finished result as the batch runs. Index is
// the example's position in the input slice. Callbacks may arrive out of
// input order when the runner evaluates concurrently, but each index is
// reported exactly once.
type ProgressFunc func(index int, result datatypes.EvalResult)

// Runner evaluates batches of (example, prediction) pairs.
//
// The zero configuration (New with no options) evaluates sequentially with
// no held-out partition. Per-example evaluation is pure, so a Runner is
// safe for concurrent use.
type Runner struct {
	heldOut     map[string]struct{}
	concurrency int
	progress    ProgressFunc
	logger      *slog.Logger
	split       string
}

// Option configures a Runner.
type Option func(*Runner)

// WithHeldOut names the held-out collections. When at least one result's
// collection is a member, the report carries a generalization analysis.
func WithHeldOut(collections map[string]struct{}) Option {
	return func(r *Runner) {
		r.heldOut = collections
	}
}

// WithConcurrency bounds the number of examples evaluated in parallel.
// Values below 2 keep evaluation sequential. Results land in input order
// regardless of the setting.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		r.concurrency = n
	}
}

// WithProgress installs a per-result callback, used by CLI progress UIs.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) {
		r.progress = fn
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithSplit tags the report with a split name ("eval", "held_out", ...),
// carried through to persistence and comparison tables.
func WithSplit(split string) Option {
	return func(r *Runner) {
		r.split = split
	}
}

// New builds a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{concurrency: 1}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// EvalOne scores a single prediction against its example.
//
// The syntax layer runs first. When it fails, the operator and field layers
// are not invoked and stay at their zero value (empty sets, failed). When
// it passes, the prediction is parsed exactly once and both remaining
// layers consume the same parsed document.
func (r *Runner) EvalOne(example schema.TrainingExample, prediction string) datatypes.EvalResult {
	syntaxResult := syntax.Validate(prediction)

	var operatorResult datatypes.OperatorResult
	var fieldResult datatypes.FieldResult

	if syntaxResult.Passed {
		var parsed map[string]any
		// Syntax already proved this parses to an object.
		_ = json.Unmarshal([]byte(prediction), &parsed)

		operatorResult = operators.Eval(parsed, example.AllowedOps.AllOperators())
		fieldResult = fields.Eval(parsed, example.SchemaDef)
	}

	return datatypes.EvalResult{
		Example:    example,
		Prediction: prediction,
		Syntax:     syntaxResult,
		Operators:  operatorResult,
		Fields:     fieldResult,
		PassedAll:  syntaxResult.Passed && operatorResult.Passed && fieldResult.Passed,
	}
}

// Run evaluates the batch and builds the aggregate report.
//
// A length mismatch between examples and predictions is caller misuse and
// fails the call immediately with no results; it is the only error this
// package returns. An empty batch yields a report with Total 0 and all
// rates at zero.
func (r *Runner) Run(ctx context.Context, examples []schema.TrainingExample, predictions []string) (datatypes.EvalReport, error) {
	if len(examples) != len(predictions) {
		return datatypes.EvalReport{}, fmt.Errorf(
			"mismatch: %d examples vs %d predictions", len(examples), len(predictions))
	}

	report := datatypes.EvalReport{
		RunID:     newRunID(),
		Split:     r.split,
		CreatedAt: time.Now().UTC(),
		Total:     len(examples),
	}
	if len(examples) == 0 {
		return report, nil
	}

	start := time.Now()
	results := make([]datatypes.EvalResult, len(examples))

	if r.concurrency > 1 {
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(r.concurrency)
		for i := range examples {
			i := i
			g.Go(func() error {
				results[i] = r.EvalOne(examples[i], predictions[i])
				if r.progress != nil {
					r.progress(i, results[i])
				}
				return nil
			})
		}
		// Workers never return errors; Wait is only a join point.
		_ = g.Wait()
	} else {
		for i := range examples {
			results[i] = r.EvalOne(examples[i], predictions[i])
			if r.progress != nil {
				r.progress(i, results[i])
			}
		}
	}

	report.Results = results
	syntaxPass, opsPass, fieldPass, overallPass := 0, 0, 0, 0
	for _, res := range results {
		if res.Syntax.Passed {
			syntaxPass++
		}
		if res.Operators.Passed {
			opsPass++
		}
		if res.Fields.Passed {
			fieldPass++
		}
		if res.PassedAll {
			overallPass++
		}
	}
	total := float64(len(results))
	report.SyntaxPassRate = float64(syntaxPass) / total
	report.OperatorPassRate = float64(opsPass) / total
	report.FieldPassRate = float64(fieldPass) / total
	report.OverallPassRate = float64(overallPass) / total

	if len(r.heldOut) > 0 {
		var trainResults, heldResults []datatypes.EvalResult
		for _, res := range results {
			if _, ok := r.heldOut[res.Example.SchemaDef.Collection]; ok {
				heldResults = append(heldResults, res)
			} else {
				trainResults = append(trainResults, res)
			}
		}
		if len(heldResults) > 0 {
			gen := generalization.Eval(trainResults, heldResults)
			report.Generalization = &gen
		}
	}

	r.logger.Info("evaluation batch complete",
		"run_id", report.RunID,
		"total", report.Total,
		"overall_pass_rate", report.OverallPassRate,
		"duration", time.Since(start))
	return report, nil
}

// newRunID builds a sortable run identifier: UTC timestamp plus a short
// uuid suffix to keep concurrent runs distinct.
func newRunID() string {
	return fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102_150405"), uuid.New().String()[:8])
}
