// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package evaluation groups the four-layer query evaluation engine.
//
// A model-generated MongoDB query document is scored in strict layer order:
//
//	raw prediction string
//	   │
//	   ▼
//	syntax.Validate ──── fails ──► operator/field layers stay at their
//	   │                           zero value (empty sets, passed=false)
//	   ▼ (parsed once)
//	operators.Eval ──┐
//	fields.Eval ─────┤ independent, same parsed document
//	                 ▼
//	harness.Runner ── per-example EvalResult, batch EvalReport
//	                 │
//	                 ▼ (optional, when held-out collections are named)
//	generalization.Eval ── seen vs held-out pass-rate gaps
//
// Subpackages:
//
//   - datatypes: immutable result records shared by every layer
//   - syntax: well-formedness checks on the raw prediction string
//   - operators: operator extraction, allow-list and unsafe-blocklist checks
//   - fields: field-reference extraction and hallucination checks
//   - harness: per-pair orchestration and batch aggregation
//   - generalization: seen/held-out pass-rate gap analysis
//
// The whole engine is pure: no I/O, no shared state, no panics on malformed
// documents. Document anomalies degrade to failed results carrying
// diagnostics; the only error-returning path is a batch length mismatch in
// the harness.
package evaluation
