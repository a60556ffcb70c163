// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validCatalog = `
schemas:
  - collection: orders
    domain: ecommerce
    fields:
      - name: status
        type: string
        role: enum
        enum_values: [pending, shipped]
      - name: total_amount
        type: double
        role: measure
  - collection: museum_exhibits
    domain: culture
    fields:
      - name: visitor_count
        type: int
        role: measure
held_out:
  - museum_exhibits
`

func TestParseCatalog_Valid(t *testing.T) {
	catalog, err := ParseCatalog([]byte(validCatalog))
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	if len(catalog.Schemas) != 2 {
		t.Fatalf("got %d schemas, want 2", len(catalog.Schemas))
	}
	if _, ok := catalog.HeldOut["museum_exhibits"]; !ok {
		t.Error("held_out set missing museum_exhibits")
	}
	if s, ok := catalog.ByName("orders"); !ok || s.Domain != "ecommerce" {
		t.Errorf("ByName(orders) = %+v, %v", s, ok)
	}
}

func TestParseCatalog_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantIn  string
	}{
		{"not yaml", "{{nope", "parsing catalog"},
		{"no schemas", "schemas: []", "validation"},
		{"missing domain", `
schemas:
  - collection: orders
    fields:
      - {name: a, type: string, role: category}
`, "validation"},
		{"bad collection name", `
schemas:
  - collection: "$orders"
    domain: d
    fields:
      - {name: a, type: string, role: category}
`, "invalid identifier"},
		{"duplicate field", `
schemas:
  - collection: orders
    domain: d
    fields:
      - {name: a, type: string, role: category}
      - {name: a, type: string, role: category}
`, "duplicate field"},
		{"unknown role", `
schemas:
  - collection: orders
    domain: d
    fields:
      - {name: a, type: string, role: wizard}
`, "unknown role"},
		{"held out references unknown schema", `
schemas:
  - collection: orders
    domain: d
    fields:
      - {name: a, type: string, role: category}
held_out: [ghosts]
`, "unknown collection"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantIn) {
				t.Errorf("error %q does not mention %q", err, tt.wantIn)
			}
		})
	}
}

func TestLoadCatalog_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(path, []byte(validCatalog), 0o600); err != nil {
		t.Fatal(err)
	}

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(catalog.Schemas) != 2 {
		t.Errorf("got %d schemas, want 2", len(catalog.Schemas))
	}

	if _, err := LoadCatalog(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBuiltinCatalog(t *testing.T) {
	catalog := BuiltinCatalog()
	if len(catalog.Schemas) != len(TrainSchemas())+len(HeldOutSchemas()) {
		t.Errorf("builtin catalog size %d", len(catalog.Schemas))
	}
	for name := range catalog.HeldOut {
		if _, ok := catalog.ByName(name); !ok {
			t.Errorf("held-out %q missing from catalog", name)
		}
	}
}
