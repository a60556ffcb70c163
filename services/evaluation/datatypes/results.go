// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the immutable result records produced by the
// evaluation engine.
//
// Every record is created once per evaluation and never mutated afterwards.
// The zero value of each layer result is the "unevaluated, failed" state:
// empty diagnostic sets and Passed=false. The harness relies on this when a
// layer is short-circuited by a syntax failure.
//
// Diagnostic sets (used operators, violations, hallucinated fields, ...)
// are stored as sorted string slices so reports serialize deterministically
// and compare cleanly in tests.
package datatypes

import (
	"sort"
	"time"

	"github.com/jangel97/text-to-mongo/pkg/schema"
)

// SyntaxResult records the outcome of the syntax layer.
//
// The intermediate flags chart how far validation progressed before the
// first failure: ValidJSON, HasType, HasBody and PipelineWellFormed flip
// true in order, and Errors carries at most one message (validation stops
// at the first violation, no cascading diagnostics).
type SyntaxResult struct {
	ValidJSON          bool     `json:"valid_json"`
	HasType            bool     `json:"has_type"`
	TypeValue          string   `json:"type_value,omitempty"`
	HasBody            bool     `json:"has_body"`
	PipelineWellFormed bool     `json:"pipeline_well_formed"`
	Passed             bool     `json:"passed"`
	Errors             []string `json:"errors,omitempty"`
}

// OperatorResult records the outcome of the operator layer.
//
// Violations are used operators missing from the allow-list. Unsafe
// operators come from a fixed blocklist and fail the layer even when the
// allow-list names them explicitly.
type OperatorResult struct {
	UsedOperators   []string `json:"used_operators,omitempty"`
	Violations      []string `json:"violations,omitempty"`
	UnsafeOperators []string `json:"unsafe_operators,omitempty"`
	Passed          bool     `json:"passed"`
}

// FieldResult records the outcome of the field layer.
//
// Coverage is |refs ∩ schema fields| / |schema fields| computed over all
// extracted references, hallucinated ones included. It is 0.0 when the
// schema has no fields.
type FieldResult struct {
	ReferencedFields   []string `json:"referenced_fields,omitempty"`
	HallucinatedFields []string `json:"hallucinated_fields,omitempty"`
	Coverage           float64  `json:"coverage"`
	Passed             bool     `json:"passed"`
}

// EvalResult binds one example, its prediction string, and the three layer
// results. PassedAll is the conjunction of the three layer outcomes.
type EvalResult struct {
	Example    schema.TrainingExample `json:"example"`
	Prediction string                 `json:"prediction"`
	Syntax     SyntaxResult           `json:"syntax"`
	Operators  OperatorResult         `json:"operators"`
	Fields     FieldResult            `json:"fields"`
	PassedAll  bool                   `json:"passed_all"`
}

// GeneralizationResult compares per-layer pass rates between examples whose
// collection was seen in training and examples from held-out collections.
//
// Gaps is keyed by layer name ("syntax", "operators", "fields") and carries
// the signed difference seen − held-out. Flagged is set when any |gap|
// exceeds the fixed five-percentage-point threshold.
type GeneralizationResult struct {
	TrainSyntaxPassRate     float64            `json:"train_syntax_pass_rate"`
	HeldOutSyntaxPassRate   float64            `json:"held_out_syntax_pass_rate"`
	TrainOperatorPassRate   float64            `json:"train_operator_pass_rate"`
	HeldOutOperatorPassRate float64            `json:"held_out_operator_pass_rate"`
	TrainFieldPassRate      float64            `json:"train_field_pass_rate"`
	HeldOutFieldPassRate    float64            `json:"held_out_field_pass_rate"`
	Gaps                    map[string]float64 `json:"gaps"`
	Flagged                 bool               `json:"flagged"`
}

// EvalReport aggregates a batch of EvalResult.
//
// RunID and CreatedAt identify a persisted run; the harness fills them in
// when it builds the report. Aggregate rates are arithmetic means of the
// per-result layer booleans and are all zero for an empty batch.
// Generalization is nil unless held-out collections were supplied and at
// least one result belongs to one.
type EvalReport struct {
	RunID     string    `json:"run_id,omitempty"`
	Split     string    `json:"split,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	Results []EvalResult `json:"results"`
	Total   int          `json:"total"`

	SyntaxPassRate   float64 `json:"syntax_pass_rate"`
	OperatorPassRate float64 `json:"operator_pass_rate"`
	FieldPassRate    float64 `json:"field_pass_rate"`
	OverallPassRate  float64 `json:"overall_pass_rate"`

	Generalization *GeneralizationResult `json:"generalization,omitempty"`
}

// SortedSet converts a string set to a sorted slice. Returns nil for an
// empty set so omitempty drops the field from serialized results.
func SortedSet(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
