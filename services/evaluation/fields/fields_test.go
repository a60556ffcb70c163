// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fields

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"testing"

	"github.com/jangel97/text-to-mongo/pkg/schema"
)

func makeSchema(fieldNames ...string) schema.SchemaDef {
	fields := make([]schema.FieldDef, len(fieldNames))
	for i, n := range fieldNames {
		fields[i] = schema.FieldDef{Name: n, Type: "string", Role: schema.RoleCategory}
	}
	return schema.SchemaDef{Collection: "test_collection", Domain: "test", Fields: fields}
}

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
		doc  any
		want []string
	}{
		{"dollar ref", "$price", []string{"price"}},
		{"dotted path keeps root", "$addr.city", []string{"addr"}},
		{"system variable excluded", "$$ROOT", nil},
		{"now variable excluded", "$$NOW", nil},
		{"scalar contributes nothing", 42.0, nil},
		{"plain string contributes nothing", "active", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sorted(Extract(tt.doc))
			if len(got) == 0 {
				got = nil
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract(%v) = %v, want %v", tt.doc, got, tt.want)
			}
		})
	}
}

func TestExtract_Objects(t *testing.T) {
	t.Run("match keys are references", func(t *testing.T) {
		got := sorted(Extract(mustParse(t, `{"status":"active","region":"US"}`)))
		if !reflect.DeepEqual(got, []string{"region", "status"}) {
			t.Errorf("Extract = %v", got)
		}
	})

	t.Run("group aliases are not references", func(t *testing.T) {
		doc := mustParse(t, `{"$group":{"_id":"$dept","total":{"$sum":"$amount"}}}`)
		got := sorted(Extract(doc))
		want := []string{"_id", "amount", "dept"}
		// "_id" stays in raw extraction; Eval strips it later. "total" is
		// an alias and must not appear.
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Extract = %v, want %v", got, want)
		}
	})

	t.Run("in operator keeps the key", func(t *testing.T) {
		doc := mustParse(t, `{"status":{"$in":["active","pending"]}}`)
		got := sorted(Extract(doc))
		if !reflect.DeepEqual(got, []string{"status"}) {
			t.Errorf("Extract = %v", got)
		}
	})

	t.Run("alias suppression is one level deep", func(t *testing.T) {
		// The nested object under the alias value is back to normal key
		// treatment: its non-operator key is a reference again.
		doc := mustParse(t, `{"$group":{"alias":{"$max":{"inner_field":"$price"}}}}`)
		got := sorted(Extract(doc))
		want := []string{"inner_field", "price"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Extract = %v, want %v", got, want)
		}
	})
}

func TestExtract_Pipeline(t *testing.T) {
	var pipeline []any
	raw := `[{"$match":{"status":"active"}},{"$group":{"_id":"$category","avg":{"$avg":"$price"}}}]`
	if err := json.Unmarshal([]byte(raw), &pipeline); err != nil {
		t.Fatal(err)
	}
	got := sorted(Extract(pipeline))
	for _, want := range []string{"status", "category", "price"} {
		found := false
		for _, g := range got {
			if g == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Extract missing %q: %v", want, got)
		}
	}
}

func TestEval(t *testing.T) {
	t.Run("all valid", func(t *testing.T) {
		result := Eval(mustParse(t, `{"type":"find","filter":{"status":"active"}}`),
			makeSchema("status", "region", "amount"))
		if !result.Passed || len(result.HallucinatedFields) != 0 {
			t.Errorf("expected pass: %+v", result)
		}
		if !reflect.DeepEqual(result.ReferencedFields, []string{"status"}) {
			t.Errorf("ReferencedFields = %v", result.ReferencedFields)
		}
	})

	t.Run("hallucinated field", func(t *testing.T) {
		result := Eval(mustParse(t, `{"type":"find","filter":{"nonexistent_field":"value"}}`),
			makeSchema("status", "region"))
		if result.Passed {
			t.Error("expected failure")
		}
		if !reflect.DeepEqual(result.HallucinatedFields, []string{"nonexistent_field"}) {
			t.Errorf("HallucinatedFields = %v", result.HallucinatedFields)
		}
	})

	t.Run("id always valid", func(t *testing.T) {
		result := Eval(mustParse(t, `{"type":"aggregate","pipeline":[{"$group":{"_id":"$status","count":{"$sum":1}}}]}`),
			makeSchema("status"))
		if !result.Passed {
			t.Errorf("expected pass: %+v", result)
		}
		for _, ref := range result.ReferencedFields {
			if ref == "_id" {
				t.Error("_id must never appear in ReferencedFields")
			}
		}
	})

	t.Run("coverage over schema size", func(t *testing.T) {
		result := Eval(mustParse(t, `{"type":"find","filter":{"a":1,"b":2}}`),
			makeSchema("a", "b", "c", "d"))
		if math.Abs(result.Coverage-0.5) > 1e-9 {
			t.Errorf("Coverage = %v, want 0.5", result.Coverage)
		}
	})

	t.Run("coverage counts matches even when hallucinating", func(t *testing.T) {
		// Denominator intersects all extracted refs with the schema; the
		// hallucinated ref fails the layer but does not change coverage.
		result := Eval(mustParse(t, `{"type":"find","filter":{"a":1,"ghost":2}}`),
			makeSchema("a", "b"))
		if result.Passed {
			t.Error("expected failure")
		}
		if math.Abs(result.Coverage-0.5) > 1e-9 {
			t.Errorf("Coverage = %v, want 0.5", result.Coverage)
		}
	})

	t.Run("dotted path valid", func(t *testing.T) {
		result := Eval(mustParse(t, `{"type":"find","filter":{"address.city":"NYC"}}`),
			makeSchema("address"))
		if !result.Passed {
			t.Errorf("expected pass: %+v", result)
		}
		if !reflect.DeepEqual(result.ReferencedFields, []string{"address"}) {
			t.Errorf("ReferencedFields = %v", result.ReferencedFields)
		}
	})

	t.Run("empty filter", func(t *testing.T) {
		result := Eval(mustParse(t, `{"type":"find","filter":{}}`), makeSchema("status"))
		if !result.Passed || result.Coverage != 0.0 {
			t.Errorf("expected pass with zero coverage: %+v", result)
		}
	})

	t.Run("empty schema has zero coverage", func(t *testing.T) {
		result := Eval(mustParse(t, `{"type":"find","filter":{"x":1}}`),
			schema.SchemaDef{Collection: "empty", Domain: "test"})
		if result.Coverage != 0.0 {
			t.Errorf("Coverage = %v, want 0.0", result.Coverage)
		}
	})

	t.Run("filter body shadows projection", func(t *testing.T) {
		// The scan body is the filter whenever it exists, so projection
		// keys are not extracted.
		result := Eval(mustParse(t, `{"type":"find","filter":{"status":"active"},"projection":{"name":1,"region":1}}`),
			makeSchema("name", "status", "region"))
		if !reflect.DeepEqual(result.ReferencedFields, []string{"status"}) {
			t.Errorf("ReferencedFields = %v, want [status]", result.ReferencedFields)
		}
	})

	t.Run("whole document scanned without body", func(t *testing.T) {
		// No pipeline or filter key: the full document is the body and the
		// top-level "type" key is stripped from the reference set.
		result := Eval(mustParse(t, `{"type":"find","projection":{"name":1}}`),
			makeSchema("name", "projection"))
		got := result.ReferencedFields
		for _, ref := range got {
			if ref == "type" {
				t.Errorf("type key must be stripped: %v", got)
			}
		}
		if !reflect.DeepEqual(got, []string{"name", "projection"}) {
			t.Errorf("ReferencedFields = %v", got)
		}
	})
}
