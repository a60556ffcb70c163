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
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jangel97/text-to-mongo/services/evaluation/datatypes"
)

// CompareMarkdown renders a markdown table of run summaries, one row per
// run, rates as percentages with one decimal.
func CompareMarkdown(summaries []RunSummary) string {
	var b strings.Builder
	b.WriteString("| Run | Split | N | Syntax | Operators | Fields | Overall |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, s := range summaries {
		split := s.Split
		if split == "" {
			split = "-"
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %.1f%% | %.1f%% | %.1f%% | %.1f%% |\n",
			s.RunID, split, s.Total,
			s.SyntaxPassRate*100,
			s.OperatorPassRate*100,
			s.FieldPassRate*100,
			s.OverallPassRate*100)
	}
	return b.String()
}

// ExportCSV writes one row per evaluated example: position, collection,
// intent, the layer outcomes, field coverage, and the diagnostic sets
// joined with ";".
func ExportCSV(w io.Writer, report datatypes.EvalReport) error {
	cw := csv.NewWriter(w)
	header := []string{
		"index", "collection", "intent",
		"syntax_passed", "operators_passed", "fields_passed", "passed_all",
		"coverage", "violations", "unsafe_operators", "hallucinated_fields",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, res := range report.Results {
		row := []string{
			strconv.Itoa(i),
			res.Example.SchemaDef.Collection,
			res.Example.Intent,
			strconv.FormatBool(res.Syntax.Passed),
			strconv.FormatBool(res.Operators.Passed),
			strconv.FormatBool(res.Fields.Passed),
			strconv.FormatBool(res.PassedAll),
			strconv.FormatFloat(res.Fields.Coverage, 'f', 4, 64),
			strings.Join(res.Operators.Violations, ";"),
			strings.Join(res.Operators.UnsafeOperators, ";"),
			strings.Join(res.Fields.HallucinatedFields, ";"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
