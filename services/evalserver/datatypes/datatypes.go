// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the request and response payloads of the
// evaluation service's HTTP and websocket APIs.
package datatypes

import (
	"fmt"

	"github.com/jangel97/text-to-mongo/pkg/schema"
	evaldt "github.com/jangel97/text-to-mongo/services/evaluation/datatypes"
)

// ExampleSpec describes one example in an evaluation request. The schema
// can be given inline or referenced by collection name, in which case it
// is resolved against the service's catalog. AllowedOps defaults to the
// standard operator set when omitted.
type ExampleSpec struct {
	// Collection references a catalog schema. Ignored when Schema is set.
	Collection string `json:"collection,omitempty"`

	// Schema supplies the schema inline.
	Schema *schema.SchemaDef `json:"schema,omitempty"`

	// AllowedOps overrides the default operator allow-list.
	AllowedOps *schema.AllowedOps `json:"allowed_ops,omitempty"`

	// Intent is the natural-language request the prediction answered.
	// Informational; carried into the report.
	Intent string `json:"intent,omitempty"`

	// Output is the gold query document, if known. Informational.
	Output map[string]any `json:"output,omitempty"`
}

// Resolve materializes the spec into a training example against the given
// catalog.
func (e ExampleSpec) Resolve(catalog *schema.Catalog) (schema.TrainingExample, error) {
	var def schema.SchemaDef
	switch {
	case e.Schema != nil:
		def = *e.Schema
	case e.Collection != "":
		var ok bool
		def, ok = catalog.ByName(e.Collection)
		if !ok {
			return schema.TrainingExample{}, fmt.Errorf("unknown collection %q", e.Collection)
		}
	default:
		return schema.TrainingExample{}, fmt.Errorf("example needs a schema or a collection reference")
	}

	allowed := schema.DefaultAllowedOps()
	if e.AllowedOps != nil {
		allowed = *e.AllowedOps
	}
	return schema.TrainingExample{
		SchemaDef:  def,
		AllowedOps: allowed,
		Intent:     e.Intent,
		Output:     e.Output,
	}, nil
}

// EvaluationRequest is the body of POST /v1/evaluations and the first
// websocket message on /v1/evaluations/ws.
type EvaluationRequest struct {
	// Examples and Predictions are matched by position and must have equal
	// length.
	Examples    []ExampleSpec `json:"examples" binding:"required,min=1"`
	Predictions []string      `json:"predictions" binding:"required"`

	// HeldOut names held-out collections for the generalization analysis.
	// When nil, the catalog's held-out set applies. An explicitly empty
	// list disables the analysis.
	HeldOut []string `json:"held_out,omitempty"`

	// Split tags the persisted report ("eval", "held_out", ...).
	Split string `json:"split,omitempty"`
}

// ValidateRequest is the body of POST /v1/validate: one prediction
// against one schema.
type ValidateRequest struct {
	Collection string             `json:"collection,omitempty"`
	Schema     *schema.SchemaDef  `json:"schema,omitempty"`
	AllowedOps *schema.AllowedOps `json:"allowed_ops,omitempty"`
	Prediction string             `json:"prediction" binding:"required"`
}

// ValidateResponse carries the three layer results for one prediction.
type ValidateResponse struct {
	Syntax    evaldt.SyntaxResult   `json:"syntax"`
	Operators evaldt.OperatorResult `json:"operators"`
	Fields    evaldt.FieldResult    `json:"fields"`
	PassedAll bool                  `json:"passed_all"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	CatalogSize int    `json:"catalog_size"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Stream frame types sent on /v1/evaluations/ws.
const (
	// FrameResult carries one finished example result.
	FrameResult = "result"

	// FrameReport is the final frame carrying the aggregate report.
	FrameReport = "report"

	// FrameError reports a request failure; the connection closes after it.
	FrameError = "error"
)

// StreamFrame is one websocket message. Type selects which of the
// optional fields is populated.
type StreamFrame struct {
	Type   string             `json:"type"`
	Index  int                `json:"index,omitempty"`
	Result *evaldt.EvalResult `json:"result,omitempty"`
	Report *evaldt.EvalReport `json:"report,omitempty"`
	Error  string             `json:"error,omitempty"`
}
