// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package generalization

import (
	"math"
	"testing"

	"github.com/jangel97/text-to-mongo/services/evaluation/datatypes"
)

func result(syntaxOK, opsOK, fieldsOK bool) datatypes.EvalResult {
	return datatypes.EvalResult{
		Syntax:    datatypes.SyntaxResult{Passed: syntaxOK},
		Operators: datatypes.OperatorResult{Passed: opsOK},
		Fields:    datatypes.FieldResult{Passed: fieldsOK},
		PassedAll: syntaxOK && opsOK && fieldsOK,
	}
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestEval_Rates(t *testing.T) {
	train := []datatypes.EvalResult{
		result(true, true, true),
		result(true, true, false),
		result(true, false, true),
		result(false, false, false),
	}
	held := []datatypes.EvalResult{
		result(true, true, true),
		result(false, false, false),
	}

	gen := Eval(train, held)
	approx(t, "TrainSyntaxPassRate", gen.TrainSyntaxPassRate, 0.75)
	approx(t, "HeldOutSyntaxPassRate", gen.HeldOutSyntaxPassRate, 0.5)
	approx(t, "TrainOperatorPassRate", gen.TrainOperatorPassRate, 0.5)
	approx(t, "HeldOutOperatorPassRate", gen.HeldOutOperatorPassRate, 0.5)
	approx(t, "TrainFieldPassRate", gen.TrainFieldPassRate, 0.5)
	approx(t, "HeldOutFieldPassRate", gen.HeldOutFieldPassRate, 0.5)

	approx(t, "gap[syntax]", gen.Gaps["syntax"], 0.25)
	approx(t, "gap[operators]", gen.Gaps["operators"], 0.0)
	approx(t, "gap[fields]", gen.Gaps["fields"], 0.0)
	if !gen.Flagged {
		t.Error("a 25-point syntax gap must flag the run")
	}
}

func TestEval_EmptyPartitions(t *testing.T) {
	gen := Eval(nil, nil)
	approx(t, "TrainSyntaxPassRate", gen.TrainSyntaxPassRate, 0.0)
	approx(t, "HeldOutFieldPassRate", gen.HeldOutFieldPassRate, 0.0)
	if gen.Flagged {
		t.Error("all-zero gaps must not flag")
	}
}

func TestEval_FlagThreshold(t *testing.T) {
	// Exactly at the threshold is not a regression; strictly above is.
	train := []datatypes.EvalResult{
		result(true, true, true), result(true, true, true),
		result(true, true, true), result(true, true, true),
		result(true, true, true), result(true, true, true),
		result(true, true, true), result(true, true, true),
		result(true, true, true), result(true, true, true),
		result(true, true, true), result(true, true, true),
		result(true, true, true), result(true, true, true),
		result(true, true, true), result(true, true, true),
		result(true, true, true), result(true, true, true),
		result(true, true, true), result(false, true, true),
	}
	held := []datatypes.EvalResult{
		result(true, true, true),
	}
	// train syntax 0.95, held 1.0: |gap| = 0.05, not > 0.05
	gen := Eval(train, held)
	if gen.Flagged {
		t.Errorf("gap of exactly 0.05 must not flag: %+v", gen.Gaps)
	}

	// The gap is signed and flags in either direction: train 1.0 vs
	// held-out 0.5 exceeds the threshold, and so does the reverse.
	allPass := []datatypes.EvalResult{result(true, true, true)}
	mixed := []datatypes.EvalResult{result(true, true, true), result(false, true, true)}
	if gen := Eval(allPass, mixed); !gen.Flagged {
		t.Errorf("gap %v must flag", gen.Gaps["syntax"])
	}
	if gen := Eval(mixed, allPass); !gen.Flagged {
		t.Errorf("gap %v must flag", gen.Gaps["syntax"])
	}
}
