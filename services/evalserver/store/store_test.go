// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jangel97/text-to-mongo/pkg/schema"
	"github.com/jangel97/text-to-mongo/services/evaluation/datatypes"
)

func newTestStore(t *testing.T) *RunStore {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleReport(runID string) datatypes.EvalReport {
	return datatypes.EvalReport{
		RunID:     runID,
		Split:     "eval",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Results: []datatypes.EvalResult{
			{
				Example: schema.TrainingExample{
					SchemaDef: schema.SchemaDef{Collection: "orders", Domain: "ecommerce",
						Fields: []schema.FieldDef{{Name: "amount", Type: "double", Role: schema.RoleMeasure}}},
					Intent: "total amount per region",
				},
				Prediction: `{"type":"find","filter":{"amount":{"$gt":10}}}`,
				Syntax:     datatypes.SyntaxResult{Passed: true, ValidJSON: true},
				Operators:  datatypes.OperatorResult{Passed: true},
				Fields:     datatypes.FieldResult{Passed: true, Coverage: 1.0},
				PassedAll:  true,
			},
		},
		Total:            1,
		SyntaxPassRate:   1.0,
		OperatorPassRate: 1.0,
		FieldPassRate:    0.5,
		OverallPassRate:  0.5,
	}
}

func TestSaveGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	report := sampleReport("20250601_120000_ab12cd34")
	require.NoError(t, s.Save(ctx, report))

	got, err := s.Get(ctx, report.RunID)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, got.RunID)
	assert.Equal(t, report.Total, got.Total)
	assert.Equal(t, report.OverallPassRate, got.OverallPassRate)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "orders", got.Results[0].Example.SchemaDef.Collection)
	assert.True(t, got.Results[0].PassedAll)
}

func TestSaveRequiresRunID(t *testing.T) {
	s := newTestStore(t)
	err := s.Save(context.Background(), datatypes.EvalReport{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run ID")
}

func TestGetUnknownRun(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSortedByRunID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Insert out of chronological order.
	for _, id := range []string{"20250603_000000_cc", "20250601_000000_aa", "20250602_000000_bb"} {
		require.NoError(t, s.Save(ctx, sampleReport(id)))
	}

	summaries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, "20250601_000000_aa", summaries[0].RunID)
	assert.Equal(t, "20250602_000000_bb", summaries[1].RunID)
	assert.Equal(t, "20250603_000000_cc", summaries[2].RunID)
	assert.Equal(t, 1, summaries[0].Total)
	assert.Equal(t, "eval", summaries[0].Split)
}

func TestListEmpty(t *testing.T) {
	s := newTestStore(t)
	summaries, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	report := sampleReport("20250601_120000_ab12cd34")
	require.NoError(t, s.Save(ctx, report))
	require.NoError(t, s.Delete(ctx, report.RunID))

	_, err := s.Get(ctx, report.RunID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again reports not found.
	assert.ErrorIs(t, s.Delete(ctx, report.RunID), ErrNotFound)
}

func TestSaveOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	report := sampleReport("20250601_120000_ab12cd34")
	require.NoError(t, s.Save(ctx, report))

	report.OverallPassRate = 0.9
	require.NoError(t, s.Save(ctx, report))

	got, err := s.Get(ctx, report.RunID)
	require.NoError(t, err)
	assert.Equal(t, 0.9, got.OverallPassRate)

	summaries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestCompareMarkdown(t *testing.T) {
	summaries := []RunSummary{
		{RunID: "run_a", Split: "eval", Total: 10, SyntaxPassRate: 1.0, OperatorPassRate: 0.9, FieldPassRate: 0.8, OverallPassRate: 0.75},
		{RunID: "run_b", Total: 4, SyntaxPassRate: 0.5, OperatorPassRate: 0.5, FieldPassRate: 0.5, OverallPassRate: 0.25},
	}
	table := CompareMarkdown(summaries)

	lines := strings.Split(strings.TrimRight(table, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "| Run | Split | N | Syntax | Operators | Fields | Overall |", lines[0])
	assert.Equal(t, "| run_a | eval | 10 | 100.0% | 90.0% | 80.0% | 75.0% |", lines[2])
	// Empty split renders as a dash.
	assert.Equal(t, "| run_b | - | 4 | 50.0% | 50.0% | 50.0% | 25.0% |", lines[3])
}

func TestExportCSV(t *testing.T) {
	report := sampleReport("run_csv")
	report.Results[0].Operators.Violations = []string{"$out", "$where"}
	report.Results[0].Fields.HallucinatedFields = []string{"profit_margin"}

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, report))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		"index,collection,intent,syntax_passed,operators_passed,fields_passed,passed_all,coverage,violations,unsafe_operators,hallucinated_fields",
		lines[0])
	assert.Contains(t, lines[1], "0,orders,total amount per region,true,true,true,true,1.0000")
	assert.Contains(t, lines[1], "$out;$where")
	assert.Contains(t, lines[1], "profit_margin")
}
