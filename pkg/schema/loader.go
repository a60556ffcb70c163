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
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jangel97/text-to-mongo/pkg/validation"
)

// CatalogFile is the YAML shape of an external schema catalog:
//
//	schemas:
//	  - collection: orders
//	    domain: ecommerce
//	    fields:
//	      - name: status
//	        type: string
//	        role: enum
//	        enum_values: [pending, shipped]
//	held_out:
//	  - museum_exhibits
type CatalogFile struct {
	Schemas []SchemaDef `yaml:"schemas" validate:"required,min=1,dive"`
	HeldOut []string    `yaml:"held_out,omitempty"`
}

// Catalog is a loaded, validated schema catalog.
type Catalog struct {
	Schemas []SchemaDef
	HeldOut map[string]struct{}
}

var structValidator = validator.New()

// LoadCatalog reads and validates a YAML catalog file.
//
// Beyond struct-level validation, every collection and field name must be a
// valid identifier, field names must be unique within a schema, roles must
// be recognized, and each held-out entry must name a schema defined in the
// same file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog validates raw YAML catalog content. See LoadCatalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := structValidator.Struct(&file); err != nil {
		return nil, fmt.Errorf("catalog failed validation: %w", err)
	}

	byName := make(map[string]struct{}, len(file.Schemas))
	for _, s := range file.Schemas {
		if err := validation.ValidateIdentifier(s.Collection); err != nil {
			return nil, fmt.Errorf("schema collection: %w", err)
		}
		if _, dup := byName[s.Collection]; dup {
			return nil, fmt.Errorf("duplicate collection %q", s.Collection)
		}
		byName[s.Collection] = struct{}{}

		seenFields := make(map[string]struct{}, len(s.Fields))
		for _, f := range s.Fields {
			if err := validation.ValidateIdentifier(f.Name); err != nil {
				return nil, fmt.Errorf("schema %q: %w", s.Collection, err)
			}
			if _, dup := seenFields[f.Name]; dup {
				return nil, fmt.Errorf("schema %q: duplicate field %q", s.Collection, f.Name)
			}
			seenFields[f.Name] = struct{}{}
			if !f.Role.Valid() {
				return nil, fmt.Errorf("schema %q field %q: unknown role %q", s.Collection, f.Name, f.Role)
			}
		}
	}

	heldOut := make(map[string]struct{}, len(file.HeldOut))
	for _, name := range file.HeldOut {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("held_out names unknown collection %q", name)
		}
		heldOut[name] = struct{}{}
	}

	return &Catalog{Schemas: file.Schemas, HeldOut: heldOut}, nil
}

// BuiltinCatalog returns the compiled-in catalog: all training and held-out
// schemas with the held-out collection set.
func BuiltinCatalog() *Catalog {
	return &Catalog{
		Schemas: AllSchemas(),
		HeldOut: HeldOutCollections(),
	}
}

// ByName looks a schema up in this catalog.
func (c *Catalog) ByName(collection string) (SchemaDef, bool) {
	for _, s := range c.Schemas {
		if s.Collection == collection {
			return s, true
		}
	}
	return SchemaDef{}, false
}
