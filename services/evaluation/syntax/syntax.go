// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package syntax validates that a raw prediction string is a well-formed
// find or aggregate query document.
package syntax

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jangel97/text-to-mongo/services/evaluation/datatypes"
)

// Validate runs the syntax checks in strict order and stops at the first
// violation, recording exactly one diagnostic message.
//
// Check order:
//
//  1. The string parses as JSON.
//  2. The top-level value is an object.
//  3. The object has a "type" key.
//  4. "type" is "aggregate" or "find".
//  5. aggregate: "pipeline" exists and is a list whose every element is an
//     object with exactly one $-prefixed key. An empty pipeline is valid.
//  6. find: "filter" exists and is an object.
//
// The progress flags on the result (ValidJSON, HasType, HasBody,
// PipelineWellFormed) flip true as each check clears; HasBody is set as
// soon as the body key exists, before the body itself is inspected.
func Validate(raw string) datatypes.SyntaxResult {
	var result datatypes.SyntaxResult

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		result.Errors = append(result.Errors, "Invalid JSON")
		return result
	}
	result.ValidJSON = true

	doc, ok := parsed.(map[string]any)
	if !ok {
		result.Errors = append(result.Errors, "Top-level value must be an object")
		return result
	}

	typeVal, ok := doc["type"]
	if !ok {
		result.Errors = append(result.Errors, "Missing 'type' field")
		return result
	}
	result.HasType = true
	typeStr, _ := typeVal.(string)
	result.TypeValue = typeStr

	if typeStr != "aggregate" && typeStr != "find" {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Invalid type '%v'; expected 'aggregate' or 'find'", typeVal))
		return result
	}

	switch typeStr {
	case "aggregate":
		pipelineVal, ok := doc["pipeline"]
		if !ok {
			result.Errors = append(result.Errors, "Aggregate query missing 'pipeline'")
			return result
		}
		result.HasBody = true

		pipeline, ok := pipelineVal.([]any)
		if !ok {
			result.Errors = append(result.Errors, "'pipeline' must be a list")
			return result
		}

		for i, stageVal := range pipeline {
			stage, ok := stageVal.(map[string]any)
			if !ok {
				result.Errors = append(result.Errors,
					fmt.Sprintf("Pipeline stage %d is not an object", i))
				return result
			}
			dollarKeys := 0
			for key := range stage {
				if strings.HasPrefix(key, "$") {
					dollarKeys++
				}
			}
			if dollarKeys != 1 {
				result.Errors = append(result.Errors,
					fmt.Sprintf("Pipeline stage %d must have exactly one $-prefixed key, got %d", i, dollarKeys))
				return result
			}
		}
		result.PipelineWellFormed = true

	case "find":
		filterVal, ok := doc["filter"]
		if !ok {
			result.Errors = append(result.Errors, "Find query missing 'filter'")
			return result
		}
		result.HasBody = true
		if _, ok := filterVal.(map[string]any); !ok {
			result.Errors = append(result.Errors, "'filter' must be an object")
			return result
		}
		// find queries have no pipeline; mark well-formed
		result.PipelineWellFormed = true
	}

	result.Passed = true
	return result
}
