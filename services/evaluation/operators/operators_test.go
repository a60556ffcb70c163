// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package operators

import (
	"encoding/json"
	"reflect"
	"sort"
	"testing"
)

func mustParse(t *testing.T, raw string) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return doc
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{"simple match", `{"$match":{"status":"active"}}`, []string{"$match"}},
		{"nested operators",
			`{"$group":{"_id":"$dept","total":{"$sum":"$amount"},"avg_price":{"$avg":"$price"}}}`,
			[]string{"$avg", "$group", "$sum"}},
		{"deeply nested booleans",
			`{"$match":{"$or":[{"x":{"$gt":5}},{"y":{"$lt":10}}]}}`,
			[]string{"$gt", "$lt", "$match", "$or"}},
		{"no operators", `{"name":"test","value":42}`, nil},
		{"extended json wrappers ignored",
			`{"$match":{"created":{"$gte":{"$date":"2024-01-01T00:00:00Z"},"id":{"$oid":"abc"}}}}`,
			[]string{"$gte", "$match"}},
		{"wrapper values still recursed",
			`{"$addFields":{"x":{"$numberLong":{"$abs":-1}}}}`,
			[]string{"$abs", "$addFields"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sorted(Extract(mustParse(t, tt.doc)))
			if len(got) == 0 {
				got = nil
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtract_ListOfStages(t *testing.T) {
	var pipeline []any
	raw := `[{"$match":{"status":"active"}},{"$group":{"_id":"$dept","total":{"$sum":1}}},{"$sort":{"total":-1}}]`
	if err := json.Unmarshal([]byte(raw), &pipeline); err != nil {
		t.Fatal(err)
	}
	got := sorted(Extract(pipeline))
	want := []string{"$group", "$match", "$sort", "$sum"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract = %v, want %v", got, want)
	}
}

// Extraction must be a pure function of the document's content, not of the
// JSON key order it arrived in.
func TestExtract_KeyOrderInvariant(t *testing.T) {
	a := mustParse(t, `{"$match":{"a":{"$gt":1},"b":{"$lt":2}}}`)
	b := mustParse(t, `{"$match":{"b":{"$lt":2},"a":{"$gt":1}}}`)
	if !reflect.DeepEqual(sorted(Extract(a)), sorted(Extract(b))) {
		t.Errorf("extraction depends on key order: %v vs %v", Extract(a), Extract(b))
	}
}

func TestEval(t *testing.T) {
	t.Run("all allowed", func(t *testing.T) {
		doc := mustParse(t, `{"type":"aggregate","pipeline":[
			{"$match":{"status":"active"}},
			{"$group":{"_id":"$dept","total":{"$sum":"$amount"}}}]}`)
		result := Eval(doc, []string{"$match", "$group", "$sum"})
		if !result.Passed {
			t.Errorf("expected pass: %+v", result)
		}
		if len(result.Violations) != 0 || len(result.UnsafeOperators) != 0 {
			t.Errorf("unexpected diagnostics: %+v", result)
		}
	})

	t.Run("violation", func(t *testing.T) {
		doc := mustParse(t, `{"type":"aggregate","pipeline":[
			{"$match":{"status":"active"}},{"$unwind":"$items"}]}`)
		result := Eval(doc, []string{"$match"})
		if result.Passed {
			t.Error("expected failure")
		}
		if !reflect.DeepEqual(result.Violations, []string{"$unwind"}) {
			t.Errorf("Violations = %v, want [$unwind]", result.Violations)
		}
	})

	t.Run("unsafe beats allow-list", func(t *testing.T) {
		doc := mustParse(t, `{"type":"aggregate","pipeline":[{"$match":{"$where":"this.x > 10"}}]}`)
		result := Eval(doc, []string{"$match", "$where"})
		if result.Passed {
			t.Error("$where must fail even when allowed")
		}
		if !reflect.DeepEqual(result.UnsafeOperators, []string{"$where"}) {
			t.Errorf("UnsafeOperators = %v, want [$where]", result.UnsafeOperators)
		}
		if len(result.Violations) != 0 {
			t.Errorf("$where is allowed, so it is not a violation: %v", result.Violations)
		}
	})

	t.Run("merge blocked", func(t *testing.T) {
		doc := mustParse(t, `{"type":"aggregate","pipeline":[{"$merge":{"into":"output_collection"}}]}`)
		result := Eval(doc, []string{"$merge"})
		if result.Passed {
			t.Error("$merge must fail even when allowed")
		}
		if !reflect.DeepEqual(result.UnsafeOperators, []string{"$merge"}) {
			t.Errorf("UnsafeOperators = %v, want [$merge]", result.UnsafeOperators)
		}
	})

	t.Run("mixed violations and unsafe", func(t *testing.T) {
		doc := mustParse(t, `{"type":"aggregate","pipeline":[
			{"$match":{}},{"$out":"bad"},{"$lookup":{"from":"other"}}]}`)
		result := Eval(doc, []string{"$match"})
		if result.Passed {
			t.Error("expected failure")
		}
		if !reflect.DeepEqual(result.Violations, []string{"$lookup", "$out"}) {
			t.Errorf("Violations = %v", result.Violations)
		}
		if !reflect.DeepEqual(result.UnsafeOperators, []string{"$out"}) {
			t.Errorf("UnsafeOperators = %v", result.UnsafeOperators)
		}
	})
}
