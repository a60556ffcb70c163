// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"strings"
	"testing"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		ident   string
		wantErr bool
	}{
		// Valid identifiers
		{"simple", "status", false},
		{"single char", "a", false},
		{"with digits", "field2", false},
		{"underscore", "total_amount", false},
		{"leading underscore", "_id", false},
		{"uppercase", "RegionCode", false},
		{"max length", strings.Repeat("a", 64), false},

		// Invalid identifiers
		{"empty", "", true},
		{"operator lookalike", "$match", true},
		{"dotted", "address.city", true},
		{"leading digit", "1field", true},
		{"space", "order id", true},
		{"hyphen", "order-id", true},
		{"injection attempt", `x"; db.dropDatabase(); "`, true},
		{"newline", "field\nname", true},
		{"unicode", "champ_é", true},
		{"too long", strings.Repeat("a", 65), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.ident)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIdentifier(%q) error = %v, wantErr %v", tt.ident, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFieldPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"plain field", "status", false},
		{"dotted path", "address.city", false},
		{"deep path", "a.b.c", false},
		{"empty", "", true},
		{"empty segment", "address..city", true},
		{"trailing dot", "address.", true},
		{"operator segment", "address.$city", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFieldPath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFieldPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateIdentifiers(t *testing.T) {
	tests := []struct {
		name    string
		idents  []string
		wantErr bool
	}{
		{"all valid", []string{"status", "region", "amount"}, false},
		{"one invalid", []string{"status", "$bad", "amount"}, true},
		{"all invalid", []string{"$a", "1b"}, true},
		{"empty slice", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifiers(tt.idents)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIdentifiers(%v) error = %v, wantErr %v", tt.idents, err, tt.wantErr)
			}
		})
	}
}
