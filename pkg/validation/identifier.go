// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation for externally supplied
// catalog data.
//
// Collection and field names from user-provided schema catalogs end up in
// generated queries and report keys; validating them here keeps operator
// lookalikes ($-prefixed names), path separators, and control characters
// out of the evaluation engine.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierPattern matches valid collection and field identifiers.
// Allows: letters, digits, underscores; must not start with a digit.
// Max length: 64 characters (conservative against MongoDB's namespace cap).
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// ValidateIdentifier validates a collection or field name.
//
// Valid identifiers:
//   - 1-64 characters
//   - Letters, digits, underscores
//   - First character is not a digit
//
// A leading "$" is rejected in particular: a field named like an operator
// would corrupt operator extraction downstream.
//
// Example:
//
//	if err := validation.ValidateIdentifier(field.Name); err != nil {
//	    return fmt.Errorf("schema %q: %w", s.Collection, err)
//	}
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier cannot be empty")
	}

	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier %q (must be 1-64 alphanumeric or underscore chars, not starting with a digit)", name)
	}

	return nil
}

// ValidateFieldPath validates a dotted field path such as "address.city".
// Every dotted segment must be a valid identifier.
func ValidateFieldPath(path string) error {
	if path == "" {
		return fmt.Errorf("field path cannot be empty")
	}

	for _, segment := range strings.Split(path, ".") {
		if err := ValidateIdentifier(segment); err != nil {
			return fmt.Errorf("invalid field path %q: %w", path, err)
		}
	}
	return nil
}

// ValidateIdentifiers validates multiple identifiers.
// Returns an error listing all invalid names if any fail validation.
func ValidateIdentifiers(names []string) error {
	var invalid []string
	for _, n := range names {
		if err := ValidateIdentifier(n); err != nil {
			invalid = append(invalid, n)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid identifiers: %v", invalid)
	}
	return nil
}
