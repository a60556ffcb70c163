// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fields extracts schema-field references from a query document and
// checks them against a schema's field set.
//
// Telling a field reference apart from an operator key, an output alias, or
// a typed value literal is the subtle part of the evaluation engine:
//
//   - "$price" as a string value references the price field; "$$ROOT" and
//     other $$-prefixed system variables do not reference anything.
//   - "addr.city" and "$addr.city" both reference the root field addr; only
//     the first dotted segment counts.
//   - Inside the immediate children of $group, $bucket and $bucketAuto the
//     object keys are caller-chosen output aliases, not fields. The
//     suppression is one level deep: nested objects under an alias value go
//     back to normal key treatment.
package fields

import (
	"strings"

	"github.com/jangel97/text-to-mongo/pkg/schema"
	"github.com/jangel97/text-to-mongo/services/evaluation/datatypes"
)

// implicitFields are valid in every collection without being declared.
var implicitFields = map[string]struct{}{"_id": {}}

// aliasOperators introduce output aliases: their direct child keys name
// results, not schema fields.
var aliasOperators = map[string]struct{}{
	"$group":      {},
	"$bucket":     {},
	"$bucketAuto": {},
}

// Extract recursively collects the root segments of every field reference
// in doc.
func Extract(doc any) map[string]struct{} {
	refs := make(map[string]struct{})
	collect(doc, false, refs)
	return refs
}

func collect(node any, insideAliasOp bool, refs map[string]struct{}) {
	switch v := node.(type) {
	case string:
		if strings.HasPrefix(v, "$") && !strings.HasPrefix(v, "$$") {
			fieldPath := v[1:]
			root, _, _ := strings.Cut(fieldPath, ".")
			refs[root] = struct{}{}
		}
	case map[string]any:
		for key, value := range v {
			switch {
			case strings.HasPrefix(key, "$"):
				// Operator key: never a field itself. The alias context of
				// the value is decided solely by this key, so a non-alias
				// operator under $group resets the context.
				_, isAlias := aliasOperators[key]
				collect(value, isAlias, refs)
			case insideAliasOp:
				// Output alias under $group and friends. Recurse into the
				// value with the context cleared; the suppression does not
				// carry into nested objects.
				collect(value, false, refs)
			default:
				root, _, _ := strings.Cut(key, ".")
				refs[root] = struct{}{}
				collect(value, false, refs)
			}
		}
	case []any:
		for _, item := range v {
			collect(item, insideAliasOp, refs)
		}
	}
}

// Eval extracts field references from the query's body and scores them
// against the schema.
//
// The scan body is "pipeline" when present, else "filter" when present,
// else the whole document; the implicit _id field and the top-level "type"
// key are dropped from the reference set. Hallucinated fields are
// references the schema does not declare. Coverage divides the matched
// references by the schema's field count (0.0 for an empty schema) and is
// deliberately computed over all extracted references, hallucinated ones
// included. The layer passes only when nothing was hallucinated.
func Eval(query map[string]any, s schema.SchemaDef) datatypes.FieldResult {
	var body any = query
	if pipeline, ok := query["pipeline"]; ok {
		body = pipeline
	} else if filter, ok := query["filter"]; ok {
		body = filter
	}

	refs := Extract(body)
	for f := range implicitFields {
		delete(refs, f)
	}
	delete(refs, "type")

	schemaFields := s.FieldNames()

	hallucinated := make(map[string]struct{})
	matched := 0
	for ref := range refs {
		if _, ok := schemaFields[ref]; ok {
			matched++
			continue
		}
		if _, ok := implicitFields[ref]; !ok {
			hallucinated[ref] = struct{}{}
		}
	}

	coverage := 0.0
	if len(schemaFields) > 0 {
		coverage = float64(matched) / float64(len(schemaFields))
	}

	return datatypes.FieldResult{
		ReferencedFields:   datatypes.SortedSet(refs),
		HallucinatedFields: datatypes.SortedSet(hallucinated),
		Coverage:           coverage,
		Passed:             len(hallucinated) == 0,
	}
}
