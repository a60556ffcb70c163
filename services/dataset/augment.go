// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dataset

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/jangel97/text-to-mongo/pkg/schema"
	"github.com/jangel97/text-to-mongo/services/evaluation/operators"
)

// fieldSynonyms maps catalog field names to plausible alternates. A
// synonym pass rewrites both the schema and the gold query so the model
// cannot memorize field spellings.
var fieldSynonyms = map[string][]string{
	"price":            {"unit_price", "price_per_item", "cost", "unit_cost"},
	"amount":           {"value", "total", "sum_amount", "quantity_value"},
	"total_amount":     {"order_total", "grand_total", "total_value", "total_cost"},
	"name":             {"full_name", "display_name", "label", "title"},
	"status":           {"state", "current_status", "condition"},
	"category":         {"group", "classification", "segment", "type_class"},
	"region":           {"area", "zone", "territory", "locale"},
	"department":       {"division", "unit", "section", "team"},
	"salary":           {"compensation", "pay", "wage", "annual_pay"},
	"score":            {"rating", "grade_score", "evaluation", "mark"},
	"balance":          {"current_balance", "account_balance", "available_funds"},
	"weight_kg":        {"mass_kg", "gross_weight", "shipping_weight"},
	"likes":            {"upvotes", "reactions", "like_count", "thumbs_up"},
	"reading":          {"measurement", "sensor_value", "data_point"},
	"charge":           {"bill_amount", "visit_cost", "fee_amount"},
	"duration_sec":     {"elapsed_seconds", "time_spent", "session_length"},
	"grade":            {"final_score", "course_grade", "academic_score"},
	"mileage":          {"odometer", "total_miles", "distance_traveled"},
	"capacity":         {"max_capacity", "storage_limit", "total_slots"},
	"visitor_count":    {"attendance", "total_visitors", "footfall"},
	"temperature_c":    {"temp_celsius", "air_temp", "reading_celsius"},
	"humidity_pct":     {"relative_humidity", "moisture_pct", "rh_percent"},
	"fuel_cost":        {"gas_expense", "fuel_expense", "fuel_spend"},
	"response_time_ms": {"latency_ms", "reply_time_ms", "processing_time"},
	"lifetime_value":   {"ltv", "total_spend", "customer_value"},
	"rating":           {"avg_rating", "review_score", "star_rating"},
}

// hallucinatedFields are names that exist in no catalog schema. Negative
// examples reference one of these so a scorer can verify they fail field
// validation.
var hallucinatedFields = []string{
	"profit_margin", "tax_rate", "discount_pct", "refund_amount",
	"ip_address", "user_agent", "session_token", "api_key",
	"latitude", "longitude", "altitude", "elevation",
	"cpu_usage", "memory_mb", "disk_io", "network_bps",
	"blood_pressure", "heart_rate", "bmi", "cholesterol",
}

var isoDatePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z`)

// AugmentFieldNames produces variants with synonym-renamed fields. Each
// eligible example (selected at the given ratio) has 1-2 of its renameable
// fields replaced in the schema, the query, and the intent text.
func AugmentFieldNames(examples []schema.TrainingExample, rng *rand.Rand, ratio float64) []schema.TrainingExample {
	var augmented []schema.TrainingExample
	for _, ex := range examples {
		if rng.Float64() > ratio {
			continue
		}
		var renameable []schema.FieldDef
		for _, f := range ex.SchemaDef.Fields {
			if _, ok := fieldSynonyms[f.Name]; ok {
				renameable = append(renameable, f)
			}
		}
		if len(renameable) == 0 {
			continue
		}

		n := 1 + rng.Intn(2)
		if n > len(renameable) {
			n = len(renameable)
		}
		renameMap := make(map[string]string, n)
		for _, idx := range rng.Perm(len(renameable))[:n] {
			f := renameable[idx]
			syns := fieldSynonyms[f.Name]
			renameMap[f.Name] = syns[rng.Intn(len(syns))]
		}

		newFields := make([]schema.FieldDef, len(ex.SchemaDef.Fields))
		for i, f := range ex.SchemaDef.Fields {
			if alias, ok := renameMap[f.Name]; ok {
				f.Name = alias
			}
			newFields[i] = f
		}
		newSchema := ex.SchemaDef
		newSchema.Fields = newFields

		newIntent := ex.Intent
		for oldName, newName := range renameMap {
			newIntent = strings.ReplaceAll(newIntent, oldName, newName)
		}

		augmented = append(augmented, schema.TrainingExample{
			SchemaDef:  newSchema,
			AllowedOps: ex.AllowedOps,
			Intent:     newIntent,
			Output:     renameInObj(ex.Output, renameMap).(map[string]any),
			IsNegative: ex.IsNegative,
		})
	}
	return augmented
}

// renameInObj rewrites field references throughout a query document. "$"
// path strings and plain field keys are renamed at their root segment;
// operator keys and "$$" system variables pass through untouched.
func renameInObj(obj any, renameMap map[string]string) any {
	switch v := obj.(type) {
	case string:
		if strings.HasPrefix(v, "$") && !strings.HasPrefix(v, "$$") {
			root, rest, dotted := strings.Cut(v[1:], ".")
			if alias, ok := renameMap[root]; ok {
				if dotted {
					return "$" + alias + "." + rest
				}
				return "$" + alias
			}
		}
		return v
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			newKey := key
			if !strings.HasPrefix(key, "$") {
				root, rest, dotted := strings.Cut(key, ".")
				if alias, ok := renameMap[root]; ok {
					if dotted {
						newKey = alias + "." + rest
					} else {
						newKey = alias
					}
				}
			}
			out[newKey] = renameInObj(value, renameMap)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = renameInObj(item, renameMap)
		}
		return out
	default:
		return obj
	}
}

// GenerateNegatives emits examples whose intent names a field no schema
// defines, with an error document as the expected output.
func GenerateNegatives(examples []schema.TrainingExample, rng *rand.Rand, ratio float64) []schema.TrainingExample {
	var negatives []schema.TrainingExample
	for _, ex := range examples {
		if rng.Float64() > ratio {
			continue
		}
		badField := hallucinatedFields[rng.Intn(len(hallucinatedFields))]
		negatives = append(negatives, schema.TrainingExample{
			SchemaDef:  ex.SchemaDef,
			AllowedOps: ex.AllowedOps,
			Intent:     fmt.Sprintf("Show all %s where %s is greater than 100", ex.SchemaDef.Collection, badField),
			Output: map[string]any{
				"error": fmt.Sprintf("Field '%s' does not exist in %s", badField, ex.SchemaDef.Collection),
			},
			IsNegative: true,
		})
	}
	return negatives
}

// AugmentDatePlaceholders produces variants of date-bearing examples with
// freshly randomized concrete date ranges, applied to both the query and
// the intent text.
func AugmentDatePlaceholders(examples []schema.TrainingExample, rng *rand.Rand) []schema.TrainingExample {
	var augmented []schema.TrainingExample
	for _, ex := range examples {
		raw, err := json.Marshal(ex.Output)
		if err != nil || !strings.Contains(string(raw), `"$date"`) {
			continue
		}

		base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, rng.Intn(731))
		start := base.Format("2006-01-02") + "T00:00:00Z"
		end := base.AddDate(0, 0, 30+rng.Intn(336)).Format("2006-01-02") + "T23:59:59Z"

		dates := []string{start, end}
		newOutput := replaceDates(ex.Output, &dates, rng).(map[string]any)

		intentDates := []string{start, end}
		newIntent := isoDatePattern.ReplaceAllStringFunc(ex.Intent, func(match string) string {
			if len(intentDates) == 0 {
				return match
			}
			next := intentDates[0]
			intentDates = intentDates[1:]
			return next
		})

		augmented = append(augmented, schema.TrainingExample{
			SchemaDef:  ex.SchemaDef,
			AllowedOps: ex.AllowedOps,
			Intent:     newIntent,
			Output:     newOutput,
			IsNegative: ex.IsNegative,
		})
	}
	return augmented
}

func replaceDates(obj any, dates *[]string, rng *rand.Rand) any {
	switch v := obj.(type) {
	case map[string]any:
		if _, ok := v["$date"]; ok {
			if len(*dates) > 0 {
				next := (*dates)[0]
				*dates = (*dates)[1:]
				return map[string]any{"$date": next}
			}
			d := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, rng.Intn(731))
			return map[string]any{"$date": d.Format("2006-01-02T15:04:05Z")}
		}
		out := make(map[string]any, len(v))
		for k, value := range v {
			out[k] = replaceDates(value, dates, rng)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = replaceDates(item, dates, rng)
		}
		return out
	default:
		return obj
	}
}

// AugmentOperatorSubset produces variants with a tightened allow-list.
// Only operators the gold query does not use are removed, so the variant
// stays valid under its own allow-list.
func AugmentOperatorSubset(examples []schema.TrainingExample, rng *rand.Rand, ratio float64) []schema.TrainingExample {
	var augmented []schema.TrainingExample
	for _, ex := range examples {
		if rng.Float64() > ratio || ex.IsNegative {
			continue
		}
		used := operators.Extract(ex.Output)

		var removable []string
		for _, op := range ex.AllowedOps.AllOperators() {
			if _, inUse := used[op]; !inUse {
				removable = append(removable, op)
			}
		}
		if len(removable) < 2 {
			continue
		}

		toRemove := make(map[string]struct{}, 2)
		for _, idx := range rng.Perm(len(removable))[:2] {
			toRemove[removable[idx]] = struct{}{}
		}

		keep := func(ops []string) []string {
			out := make([]string, 0, len(ops))
			for _, op := range ops {
				if _, drop := toRemove[op]; !drop {
					out = append(out, op)
				}
			}
			return out
		}

		augmented = append(augmented, schema.TrainingExample{
			SchemaDef: ex.SchemaDef,
			AllowedOps: schema.AllowedOps{
				StageOperators:      keep(ex.AllowedOps.StageOperators),
				ExpressionOperators: keep(ex.AllowedOps.ExpressionOperators),
			},
			Intent:     ex.Intent,
			Output:     ex.Output,
			IsNegative: ex.IsNegative,
		})
	}
	return augmented
}

// AugmentAll runs every augmentation strategy over the base examples and
// returns base plus augmentations. Field-name shuffling runs six passes
// with distinct RNG states since it is the biggest multiplier; date and
// operator-subset variation run four passes each.
func AugmentAll(examples []schema.TrainingExample, seed int64, negativeRatio float64) []schema.TrainingExample {
	if negativeRatio <= 0 {
		negativeRatio = 0.15
	}
	out := make([]schema.TrainingExample, len(examples))
	copy(out, examples)

	for i := int64(0); i < 6; i++ {
		rng := rand.New(rand.NewSource(seed + i))
		out = append(out, AugmentFieldNames(examples, rng, 0.8)...)
	}

	rng := rand.New(rand.NewSource(seed + 100))
	out = append(out, GenerateNegatives(examples, rng, negativeRatio)...)

	for i := int64(0); i < 4; i++ {
		rng := rand.New(rand.NewSource(seed + 200 + i))
		out = append(out, AugmentDatePlaceholders(examples, rng)...)
	}

	for i := int64(0); i < 4; i++ {
		rng := rand.New(rand.NewSource(seed + 300 + i))
		out = append(out, AugmentOperatorSubset(examples, rng, 0.4)...)
	}

	return out
}
