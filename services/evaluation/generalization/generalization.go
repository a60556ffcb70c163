// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package generalization compares per-layer pass rates between results on
// seen collections and results on held-out collections.
package generalization

import (
	"math"

	"github.com/jangel97/text-to-mongo/services/evaluation/datatypes"
)

// GapThreshold is the absolute per-layer gap beyond which a run is flagged
// as a generalization regression: five percentage points.
const GapThreshold = 0.05

// Eval computes per-layer pass rates for both partitions, the signed gaps
// (seen − held-out, keyed "syntax", "operators", "fields"), and the Flagged
// bit. An empty partition scores 0.0 on every layer.
func Eval(trainResults, heldOutResults []datatypes.EvalResult) datatypes.GeneralizationResult {
	trainSyntax := passRate(trainResults, func(r datatypes.EvalResult) bool { return r.Syntax.Passed })
	heldSyntax := passRate(heldOutResults, func(r datatypes.EvalResult) bool { return r.Syntax.Passed })
	trainOps := passRate(trainResults, func(r datatypes.EvalResult) bool { return r.Operators.Passed })
	heldOps := passRate(heldOutResults, func(r datatypes.EvalResult) bool { return r.Operators.Passed })
	trainFields := passRate(trainResults, func(r datatypes.EvalResult) bool { return r.Fields.Passed })
	heldFields := passRate(heldOutResults, func(r datatypes.EvalResult) bool { return r.Fields.Passed })

	gaps := map[string]float64{
		"syntax":    trainSyntax - heldSyntax,
		"operators": trainOps - heldOps,
		"fields":    trainFields - heldFields,
	}

	flagged := false
	for _, gap := range gaps {
		if math.Abs(gap) > GapThreshold {
			flagged = true
			break
		}
	}

	return datatypes.GeneralizationResult{
		TrainSyntaxPassRate:     trainSyntax,
		HeldOutSyntaxPassRate:   heldSyntax,
		TrainOperatorPassRate:   trainOps,
		HeldOutOperatorPassRate: heldOps,
		TrainFieldPassRate:      trainFields,
		HeldOutFieldPassRate:    heldFields,
		Gaps:                    gaps,
		Flagged:                 flagged,
	}
}

func passRate(results []datatypes.EvalResult, passed func(datatypes.EvalResult) bool) float64 {
	if len(results) == 0 {
		return 0.0
	}
	count := 0
	for _, r := range results {
		if passed(r) {
			count++
		}
	}
	return float64(count) / float64(len(results))
}
