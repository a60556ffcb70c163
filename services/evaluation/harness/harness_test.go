// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package harness

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jangel97/text-to-mongo/pkg/schema"
	"github.com/jangel97/text-to-mongo/services/evaluation/datatypes"
)

func exampleFor(collection string, fieldNames ...string) schema.TrainingExample {
	fields := make([]schema.FieldDef, len(fieldNames))
	for i, n := range fieldNames {
		fields[i] = schema.FieldDef{Name: n, Type: "string", Role: schema.RoleCategory}
	}
	return schema.TrainingExample{
		SchemaDef:  schema.SchemaDef{Collection: collection, Domain: "test", Fields: fields},
		AllowedOps: schema.DefaultAllowedOps(),
		Intent:     "test intent",
	}
}

func TestEvalOne_AllLayersPass(t *testing.T) {
	r := New()
	result := r.EvalOne(exampleFor("orders", "status", "region"),
		`{"type":"find","filter":{"status":"active"}}`)

	assert.True(t, result.Syntax.Passed)
	assert.True(t, result.Operators.Passed)
	assert.True(t, result.Fields.Passed)
	assert.True(t, result.PassedAll)
	assert.Equal(t, []string{"status"}, result.Fields.ReferencedFields)
	assert.InDelta(t, 0.5, result.Fields.Coverage, 1e-9)
}

func TestEvalOne_SyntaxFailureShortCircuits(t *testing.T) {
	r := New()
	result := r.EvalOne(exampleFor("orders", "status"), "not json at all")

	assert.False(t, result.Syntax.Passed)
	// Downstream layers keep their zero value: unevaluated and failed.
	assert.False(t, result.Operators.Passed)
	assert.Empty(t, result.Operators.UsedOperators)
	assert.False(t, result.Fields.Passed)
	assert.Empty(t, result.Fields.ReferencedFields)
	assert.False(t, result.PassedAll)
}

func TestEvalOne_LayerIndependence(t *testing.T) {
	// A field hallucination does not stop the operator layer and vice
	// versa: both consume the same parsed document independently.
	r := New()
	result := r.EvalOne(exampleFor("orders", "status"),
		`{"type":"find","filter":{"ghost_field":{"$exists":true}}}`)

	assert.True(t, result.Syntax.Passed)
	assert.True(t, result.Operators.Passed)
	assert.False(t, result.Fields.Passed)
	assert.Equal(t, []string{"ghost_field"}, result.Fields.HallucinatedFields)
	assert.False(t, result.PassedAll)
}

func TestRun_LengthMismatchIsFatal(t *testing.T) {
	r := New()
	examples := []schema.TrainingExample{
		exampleFor("orders", "status"),
		exampleFor("orders", "status"),
		exampleFor("orders", "status"),
	}
	predictions := []string{`{}`, `{}`}

	report, err := r.Run(context.Background(), examples, predictions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 examples vs 2 predictions")
	assert.Empty(t, report.Results)
}

func TestRun_EmptyBatch(t *testing.T) {
	r := New()
	report, err := r.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total)
	assert.Zero(t, report.SyntaxPassRate)
	assert.Zero(t, report.OverallPassRate)
	assert.Nil(t, report.Generalization)
	assert.NotEmpty(t, report.RunID)
}

func TestRun_AggregateRates(t *testing.T) {
	r := New()
	examples := []schema.TrainingExample{
		exampleFor("orders", "status"),
		exampleFor("orders", "status"),
		exampleFor("orders", "status"),
		exampleFor("orders", "status"),
	}
	predictions := []string{
		`{"type":"find","filter":{"status":"active"}}`, // passes everything
		`not json`,                                // fails syntax
		`{"type":"find","filter":{"ghost":1}}`,    // fails fields
		`{"type":"find","filter":{"status":{"$where":"1"}}}`, // fails operators
	}

	report, err := r.Run(context.Background(), examples, predictions)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Total)
	assert.InDelta(t, 0.75, report.SyntaxPassRate, 1e-9)
	assert.InDelta(t, 0.50, report.OperatorPassRate, 1e-9)
	assert.InDelta(t, 0.50, report.FieldPassRate, 1e-9)
	assert.InDelta(t, 0.25, report.OverallPassRate, 1e-9)
	assert.Nil(t, report.Generalization, "no held-out set supplied")
}

func TestRun_GeneralizationPartition(t *testing.T) {
	heldOut := map[string]struct{}{"museum_exhibits": {}}
	r := New(WithHeldOut(heldOut))

	examples := []schema.TrainingExample{
		exampleFor("orders", "status"),
		exampleFor("museum_exhibits", "status"),
	}
	predictions := []string{
		`{"type":"find","filter":{"status":"active"}}`,
		`not json`,
	}

	report, err := r.Run(context.Background(), examples, predictions)
	require.NoError(t, err)
	require.NotNil(t, report.Generalization)
	gen := report.Generalization
	assert.InDelta(t, 1.0, gen.TrainSyntaxPassRate, 1e-9)
	assert.InDelta(t, 0.0, gen.HeldOutSyntaxPassRate, 1e-9)
	assert.InDelta(t, 1.0, gen.Gaps["syntax"], 1e-9)
	assert.True(t, gen.Flagged)
}

func TestRun_NoGeneralizationWithoutHeldOutResults(t *testing.T) {
	// The held-out set is supplied but no result's collection belongs to
	// it, so the report omits the analysis.
	r := New(WithHeldOut(map[string]struct{}{"museum_exhibits": {}}))
	examples := []schema.TrainingExample{exampleFor("orders", "status")}
	predictions := []string{`{"type":"find","filter":{"status":"x"}}`}

	report, err := r.Run(context.Background(), examples, predictions)
	require.NoError(t, err)
	assert.Nil(t, report.Generalization)
}

func TestRun_ConcurrentMatchesSequential(t *testing.T) {
	examples := make([]schema.TrainingExample, 0, 40)
	predictions := make([]string, 0, 40)
	fixtures := []string{
		`{"type":"find","filter":{"status":"active"}}`,
		`not json`,
		`{"type":"aggregate","pipeline":[{"$group":{"_id":"$status","n":{"$sum":1}}}]}`,
		`{"type":"find","filter":{"ghost":1}}`,
	}
	for i := 0; i < 40; i++ {
		examples = append(examples, exampleFor("orders", "status"))
		predictions = append(predictions, fixtures[i%len(fixtures)])
	}

	seq, err := New().Run(context.Background(), examples, predictions)
	require.NoError(t, err)
	par, err := New(WithConcurrency(8)).Run(context.Background(), examples, predictions)
	require.NoError(t, err)

	assert.Equal(t, seq.SyntaxPassRate, par.SyntaxPassRate)
	assert.Equal(t, seq.OverallPassRate, par.OverallPassRate)
	for i := range seq.Results {
		assert.Equal(t, seq.Results[i].Prediction, par.Results[i].Prediction,
			"results must ride home in input order")
		assert.Equal(t, seq.Results[i].PassedAll, par.Results[i].PassedAll)
	}
}

func TestRun_ProgressReportsEveryIndexOnce(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int]int)
	r := New(WithConcurrency(4), WithProgress(func(index int, _ datatypes.EvalResult) {
		mu.Lock()
		seen[index]++
		mu.Unlock()
	}))

	examples := make([]schema.TrainingExample, 10)
	predictions := make([]string, 10)
	for i := range examples {
		examples[i] = exampleFor("orders", "status")
		predictions[i] = `{"type":"find","filter":{"status":"active"}}`
	}

	_, err := r.Run(context.Background(), examples, predictions)
	require.NoError(t, err)
	assert.Len(t, seen, 10)
	for idx, count := range seen {
		assert.Equal(t, 1, count, "index %d reported %d times", idx, count)
	}
}
