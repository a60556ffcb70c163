// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package operators extracts the $-prefixed operator keys used by a query
// document and checks them against an allow-list and a fixed unsafe
// blocklist.
package operators

import (
	"strings"

	"github.com/jangel97/text-to-mongo/services/evaluation/datatypes"
)

// unsafeOperators can execute server-side code, write outside the query, or
// expose server internals. Presence of any of them fails the layer even
// when the allow-list names the operator explicitly: the blocklist
// overrides the allow-list.
var unsafeOperators = map[string]struct{}{
	"$where":          {},
	"$function":       {},
	"$accumulator":    {},
	"$merge":          {},
	"$out":            {},
	"$currentOp":      {},
	"$collStats":      {},
	"$indexStats":     {},
	"$planCacheStats": {},
}

// ejsonKeys are Extended JSON type wrappers. They denote typed value
// literals, not query operators, and are excluded from extraction.
var ejsonKeys = map[string]struct{}{
	"$date": {}, "$oid": {}, "$numberLong": {}, "$numberInt": {},
	"$numberDouble": {}, "$numberDecimal": {}, "$binary": {},
	"$timestamp": {}, "$regex": {}, "$undefined": {},
	"$minKey": {}, "$maxKey": {}, "$dbPointer": {}, "$symbol": {}, "$code": {},
}

// Extract recursively collects every $-prefixed object key in doc, skipping
// Extended JSON wrapper keys. Recursion always continues into the key's
// value, all array elements, and all object values, whether or not the
// current key was collected.
func Extract(doc any) map[string]struct{} {
	ops := make(map[string]struct{})
	collect(doc, ops)
	return ops
}

func collect(node any, ops map[string]struct{}) {
	switch v := node.(type) {
	case map[string]any:
		for key, value := range v {
			if strings.HasPrefix(key, "$") {
				if _, wrapper := ejsonKeys[key]; !wrapper {
					ops[key] = struct{}{}
				}
			}
			collect(value, ops)
		}
	case []any:
		for _, item := range v {
			collect(item, ops)
		}
	}
}

// Eval extracts the operators used by doc and scores them against the
// allow-list. Violations are used operators missing from the allow-list;
// unsafe operators come from the blocklist regardless of the allow-list.
// The layer passes only when both sets are empty.
func Eval(doc map[string]any, allowed []string) datatypes.OperatorResult {
	used := Extract(doc)

	allowedSet := make(map[string]struct{}, len(allowed))
	for _, op := range allowed {
		allowedSet[op] = struct{}{}
	}

	violations := make(map[string]struct{})
	unsafe := make(map[string]struct{})
	for op := range used {
		if _, ok := allowedSet[op]; !ok {
			violations[op] = struct{}{}
		}
		if _, ok := unsafeOperators[op]; ok {
			unsafe[op] = struct{}{}
		}
	}

	return datatypes.OperatorResult{
		UsedOperators:   datatypes.SortedSet(used),
		Violations:      datatypes.SortedSet(violations),
		UnsafeOperators: datatypes.SortedSet(unsafe),
		Passed:          len(violations) == 0 && len(unsafe) == 0,
	}
}
