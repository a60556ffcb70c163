// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dataset generates training examples by matching catalog schemas
// to intent templates, augmenting them, and exporting JSONL splits.
//
// Generation is deterministic for a given seed: every random choice flows
// through an explicitly seeded *rand.Rand, never the global source.
package dataset

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/jangel97/text-to-mongo/pkg/schema"
)

// GeneratedPair binds one natural-language intent to its gold query.
type GeneratedPair struct {
	Intent string
	Query  map[string]any
}

// IntentGenerator produces (intent, query) pairs for one schema. A
// generator returns nil when the schema lacks the field roles its pattern
// needs.
type IntentGenerator func(s schema.SchemaDef, rng *rand.Rand) []GeneratedPair

// Aggregation verbs used in generated intents, with their operators.
var aggOps = map[string]string{
	"average": "$avg",
	"total":   "$sum",
	"maximum": "$max",
	"minimum": "$min",
}

// aggOpNames is kept as an ordered slice so rng.Intn draws are stable.
var aggOpNames = []string{"average", "total", "maximum", "minimum"}

func pickAggOp(rng *rand.Rand) string {
	return aggOpNames[rng.Intn(len(aggOpNames))]
}

func pickField(s schema.SchemaDef, role schema.FieldRole, rng *rand.Rand) (schema.FieldDef, bool) {
	candidates := s.FieldsByRole(role)
	if len(candidates) == 0 {
		return schema.FieldDef{}, false
	}
	return candidates[rng.Intn(len(candidates))], true
}

func sampleEnumValue(f schema.FieldDef, rng *rand.Rand) string {
	if len(f.EnumValues) > 0 {
		return f.EnumValues[rng.Intn(len(f.EnumValues))]
	}
	return "some_value"
}

func sampleEnumValues(f schema.FieldDef, rng *rand.Rand) []string {
	if len(f.EnumValues) == 0 {
		return []string{"value_a", "value_b"}
	}
	max := len(f.EnumValues)
	if max > 3 {
		max = 3
	}
	k := 1 + rng.Intn(max)
	picked := rng.Perm(len(f.EnumValues))[:k]
	out := make([]string, k)
	for i, idx := range picked {
		out[i] = f.EnumValues[idx]
	}
	return out
}

func choose(rng *rand.Rand, templates ...string) string {
	return templates[rng.Intn(len(templates))]
}

// ---------------------------------------------------------------------------
// Query builders
// ---------------------------------------------------------------------------

func buildFilterOnly(field schema.FieldDef, value any) map[string]any {
	return map[string]any{
		"type":   "find",
		"filter": map[string]any{field.Name: value},
	}
}

func buildAggregateSingle(measure, cat schema.FieldDef, aggName string) map[string]any {
	return map[string]any{
		"type": "aggregate",
		"pipeline": []any{
			map[string]any{"$group": map[string]any{
				"_id":   "$" + cat.Name,
				aggName: map[string]any{aggOps[aggName]: "$" + measure.Name},
			}},
		},
	}
}

func buildAggregateFiltered(measure, cat, filterField schema.FieldDef, aggName, filterValue string) map[string]any {
	return map[string]any{
		"type": "aggregate",
		"pipeline": []any{
			map[string]any{"$match": map[string]any{filterField.Name: filterValue}},
			map[string]any{"$group": map[string]any{
				"_id":   "$" + cat.Name,
				aggName: map[string]any{aggOps[aggName]: "$" + measure.Name},
			}},
		},
	}
}

func buildTimeRange(measure, ts schema.FieldDef, start, end string) map[string]any {
	return map[string]any{
		"type": "find",
		"filter": map[string]any{
			ts.Name: map[string]any{
				"$gte": map[string]any{"$date": start},
				"$lte": map[string]any{"$date": end},
			},
		},
		"projection": map[string]any{measure.Name: 1, ts.Name: 1},
	}
}

func buildTopN(measure schema.FieldDef, n int) map[string]any {
	return map[string]any{
		"type": "aggregate",
		"pipeline": []any{
			map[string]any{"$sort": map[string]any{measure.Name: -1}},
			map[string]any{"$limit": n},
		},
	}
}

func buildMultiGroup(measure, cat1, cat2 schema.FieldDef, aggName string) map[string]any {
	return map[string]any{
		"type": "aggregate",
		"pipeline": []any{
			map[string]any{"$group": map[string]any{
				"_id": map[string]any{
					cat1.Name: "$" + cat1.Name,
					cat2.Name: "$" + cat2.Name,
				},
				aggName: map[string]any{aggOps[aggName]: "$" + measure.Name},
			}},
		},
	}
}

func buildCount(filterField schema.FieldDef, filterValue any) map[string]any {
	return map[string]any{
		"type": "aggregate",
		"pipeline": []any{
			map[string]any{"$match": map[string]any{filterField.Name: filterValue}},
			map[string]any{"$count": "total"},
		},
	}
}

func buildExistsCheck(target schema.FieldDef) map[string]any {
	return map[string]any{
		"type": "find",
		"filter": map[string]any{
			target.Name: map[string]any{"$exists": true, "$ne": nil},
		},
	}
}

func buildEnumFilter(enumField schema.FieldDef, values []string) map[string]any {
	in := make([]any, len(values))
	for i, v := range values {
		in[i] = v
	}
	return map[string]any{
		"type":   "find",
		"filter": map[string]any{enumField.Name: map[string]any{"$in": in}},
	}
}

func buildDateBucket(measure, ts schema.FieldDef, aggName, timeUnit string) map[string]any {
	var trunc map[string]any
	switch timeUnit {
	case "year":
		trunc = map[string]any{"$year": "$" + ts.Name}
	case "day":
		trunc = map[string]any{"$dayOfMonth": "$" + ts.Name}
	default:
		trunc = map[string]any{"$month": "$" + ts.Name}
	}
	return map[string]any{
		"type": "aggregate",
		"pipeline": []any{
			map[string]any{"$group": map[string]any{
				"_id":   trunc,
				aggName: map[string]any{aggOps[aggName]: "$" + measure.Name},
			}},
			map[string]any{"$sort": map[string]any{"_id": 1}},
		},
	}
}

// ---------------------------------------------------------------------------
// Intent generators — one per query pattern
// ---------------------------------------------------------------------------

func generateFilterOnly(s schema.SchemaDef, rng *rand.Rand) []GeneratedPair {
	var results []GeneratedPair
	for _, role := range []schema.FieldRole{schema.RoleCategory, schema.RoleEnum} {
		for _, f := range s.FieldsByRole(role) {
			value := "sample_" + f.Name
			if len(f.EnumValues) > 0 {
				value = sampleEnumValue(f, rng)
			}
			intent := choose(rng,
				fmt.Sprintf("Show all %s where %s is %s", s.Collection, f.Name, value),
				fmt.Sprintf("Find %s with %s equal to %s", s.Collection, f.Name, value),
				fmt.Sprintf("List %s that have %s set to %s", s.Collection, f.Name, value),
			)
			results = append(results, GeneratedPair{Intent: intent, Query: buildFilterOnly(f, value)})
		}
	}
	return results
}

func generateAggregateSingle(s schema.SchemaDef, rng *rand.Rand) []GeneratedPair {
	var results []GeneratedPair
	measures := s.FieldsByRole(schema.RoleMeasure)
	cats := append(s.FieldsByRole(schema.RoleCategory), s.FieldsByRole(schema.RoleEnum)...)
	for _, m := range measures {
		for _, c := range cats {
			agg := pickAggOp(rng)
			intent := choose(rng,
				fmt.Sprintf("What is the %s %s per %s?", agg, m.Name, c.Name),
				fmt.Sprintf("Calculate the %s of %s grouped by %s", agg, m.Name, c.Name),
				fmt.Sprintf("Show %s %s for each %s", agg, m.Name, c.Name),
			)
			results = append(results, GeneratedPair{Intent: intent, Query: buildAggregateSingle(m, c, agg)})
		}
	}
	return results
}

func generateAggregateFiltered(s schema.SchemaDef, rng *rand.Rand) []GeneratedPair {
	measures := s.FieldsByRole(schema.RoleMeasure)
	cats := append(s.FieldsByRole(schema.RoleCategory), s.FieldsByRole(schema.RoleEnum)...)
	filterCandidates := append(s.FieldsByRole(schema.RoleEnum), s.FieldsByRole(schema.RoleCategory)...)
	if len(measures) == 0 || len(cats) == 0 || len(filterCandidates) == 0 {
		return nil
	}
	n := len(measures) * len(cats)
	if n > 3 {
		n = 3
	}
	var results []GeneratedPair
	for i := 0; i < n; i++ {
		m := measures[rng.Intn(len(measures))]
		c := cats[rng.Intn(len(cats))]
		ff := filterCandidates[rng.Intn(len(filterCandidates))]
		if ff.Name == c.Name && len(cats) > 1 {
			others := make([]schema.FieldDef, 0, len(cats)-1)
			for _, x := range cats {
				if x.Name != ff.Name {
					others = append(others, x)
				}
			}
			c = others[rng.Intn(len(others))]
		}
		fv := sampleEnumValue(ff, rng)
		agg := pickAggOp(rng)
		intent := choose(rng,
			fmt.Sprintf("What is the %s %s for %s = %s, grouped by %s?", agg, m.Name, ff.Name, fv, c.Name),
			fmt.Sprintf("Show %s %s by %s where %s is %s", agg, m.Name, c.Name, ff.Name, fv),
		)
		results = append(results, GeneratedPair{Intent: intent, Query: buildAggregateFiltered(m, c, ff, agg, fv)})
	}
	return results
}

func generateTimeRange(s schema.SchemaDef, rng *rand.Rand) []GeneratedPair {
	ts, okTS := pickField(s, schema.RoleTimestamp, rng)
	m, okM := pickField(s, schema.RoleMeasure, rng)
	if !okTS || !okM {
		return nil
	}
	start, end := "2024-01-01T00:00:00Z", "2024-06-30T23:59:59Z"
	intent := choose(rng,
		fmt.Sprintf("Show %s between %s and %s", m.Name, start, end),
		fmt.Sprintf("Get %s from %s ranging %s to %s", m.Name, ts.Name, start, end),
	)
	return []GeneratedPair{{Intent: intent, Query: buildTimeRange(m, ts, start, end)}}
}

func generateTopN(s schema.SchemaDef, rng *rand.Rand) []GeneratedPair {
	var results []GeneratedPair
	for _, m := range s.FieldsByRole(schema.RoleMeasure) {
		n := []int{3, 5, 10}[rng.Intn(3)]
		intent := choose(rng,
			fmt.Sprintf("Top %d %s by %s", n, s.Collection, m.Name),
			fmt.Sprintf("Show the %d highest %s in %s", n, m.Name, s.Collection),
		)
		results = append(results, GeneratedPair{Intent: intent, Query: buildTopN(m, n)})
	}
	return results
}

func generateMultiGroup(s schema.SchemaDef, rng *rand.Rand) []GeneratedPair {
	measures := s.FieldsByRole(schema.RoleMeasure)
	cats := append(s.FieldsByRole(schema.RoleCategory), s.FieldsByRole(schema.RoleEnum)...)
	if len(cats) < 2 || len(measures) == 0 {
		return nil
	}
	m := measures[rng.Intn(len(measures))]
	perm := rng.Perm(len(cats))
	c1, c2 := cats[perm[0]], cats[perm[1]]
	agg := pickAggOp(rng)
	intent := choose(rng,
		fmt.Sprintf("%s of %s by %s and %s", agg, m.Name, c1.Name, c2.Name),
		fmt.Sprintf("Group %s by %s and %s, show %s %s", s.Collection, c1.Name, c2.Name, agg, m.Name),
	)
	return []GeneratedPair{{Intent: intent, Query: buildMultiGroup(m, c1, c2, agg)}}
}

func generateCount(s schema.SchemaDef, rng *rand.Rand) []GeneratedPair {
	var results []GeneratedPair
	candidates := append(s.FieldsByRole(schema.RoleEnum), s.FieldsByRole(schema.RoleBoolean)...)
	for _, f := range candidates {
		var fv any
		var intent string
		if f.Role == schema.RoleBoolean {
			fv = true
			intent = choose(rng,
				fmt.Sprintf("How many %s have %s set to true?", s.Collection, f.Name),
				fmt.Sprintf("Count %s where %s is true", s.Collection, f.Name),
			)
		} else {
			v := sampleEnumValue(f, rng)
			fv = v
			intent = choose(rng,
				fmt.Sprintf("How many %s have %s equal to %s?", s.Collection, f.Name, v),
				fmt.Sprintf("Count %s where %s is %s", s.Collection, f.Name, v),
			)
		}
		results = append(results, GeneratedPair{Intent: intent, Query: buildCount(f, fv)})
	}
	return results
}

func generateExistsCheck(s schema.SchemaDef, rng *rand.Rand) []GeneratedPair {
	var candidates []schema.FieldDef
	for _, f := range s.Fields {
		if f.Role != schema.RoleIdentifier {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	target := candidates[rng.Intn(len(candidates))]
	intent := choose(rng,
		fmt.Sprintf("Which %s have a %s?", s.Collection, target.Name),
		fmt.Sprintf("Find %s where %s exists", s.Collection, target.Name),
	)
	return []GeneratedPair{{Intent: intent, Query: buildExistsCheck(target)}}
}

func generateEnumFilter(s schema.SchemaDef, rng *rand.Rand) []GeneratedPair {
	var results []GeneratedPair
	for _, f := range s.FieldsByRole(schema.RoleEnum) {
		values := sampleEnumValues(f, rng)
		if len(values) < 2 && len(f.EnumValues) >= 2 {
			perm := rng.Perm(len(f.EnumValues))[:2]
			values = []string{f.EnumValues[perm[0]], f.EnumValues[perm[1]]}
		}
		intent := choose(rng,
			fmt.Sprintf("Show %s where %s is one of %s", s.Collection, f.Name, strings.Join(values, ", ")),
			fmt.Sprintf("Find %s with %s in [%s]", s.Collection, f.Name, strings.Join(values, ", ")),
		)
		results = append(results, GeneratedPair{Intent: intent, Query: buildEnumFilter(f, values)})
	}
	return results
}

func generateDateBucket(s schema.SchemaDef, rng *rand.Rand) []GeneratedPair {
	ts, okTS := pickField(s, schema.RoleTimestamp, rng)
	m, okM := pickField(s, schema.RoleMeasure, rng)
	if !okTS || !okM {
		return nil
	}
	unit := []string{"year", "month", "day"}[rng.Intn(3)]
	agg := pickAggOp(rng)
	intent := choose(rng,
		fmt.Sprintf("%s of %s by %s from %s", agg, m.Name, unit, ts.Name),
		fmt.Sprintf("Show %s %s bucketed by %s using %s", agg, m.Name, unit, ts.Name),
	)
	return []GeneratedPair{{Intent: intent, Query: buildDateBucket(m, ts, agg, unit)}}
}

// AllGenerators lists every intent generator in a fixed order so seeded
// generation stays reproducible.
var AllGenerators = []IntentGenerator{
	generateFilterOnly,
	generateAggregateSingle,
	generateAggregateFiltered,
	generateTimeRange,
	generateTopN,
	generateMultiGroup,
	generateCount,
	generateExistsCheck,
	generateEnumFilter,
	generateDateBucket,
}
