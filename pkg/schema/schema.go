// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package schema defines the data model shared by the evaluation engine,
// the dataset generator, and the evaluation service: collection schemas,
// allowed-operator sets, and training examples.
//
// A SchemaDef describes one MongoDB collection. The evaluation core only
// consumes the *set* of field names; the richer per-field metadata (type,
// role, enum values) drives dataset generation and prompt-side tooling.
package schema

import "encoding/json"

// FieldRole classifies how a field is used when generating and scoring
// queries. Roles drive intent templates (e.g. time-range intents need a
// timestamp field) and are informational to the evaluation core.
type FieldRole string

const (
	RoleIdentifier FieldRole = "identifier"
	RoleMeasure    FieldRole = "measure"
	RoleTimestamp  FieldRole = "timestamp"
	RoleCategory   FieldRole = "category"
	RoleText       FieldRole = "text"
	RoleEnum       FieldRole = "enum"
	RoleBoolean    FieldRole = "boolean"
)

// Valid reports whether the role is one of the recognized values.
func (r FieldRole) Valid() bool {
	switch r {
	case RoleIdentifier, RoleMeasure, RoleTimestamp, RoleCategory, RoleText, RoleEnum, RoleBoolean:
		return true
	}
	return false
}

// FieldDef describes a single field of a collection.
type FieldDef struct {
	Name        string    `json:"name" yaml:"name" validate:"required"`
	Type        string    `json:"type" yaml:"type" validate:"required"` // MongoDB type string: "string", "int", "double", "date", "bool", "objectId", "array", "object"
	Role        FieldRole `json:"role" yaml:"role" validate:"required"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	EnumValues  []string  `json:"enum_values,omitempty" yaml:"enum_values,omitempty"`
}

// SchemaDef describes one collection: its name, a domain tag, and an
// ordered list of field definitions. Field names are unique within a
// schema; Loader enforces this for externally supplied catalogs.
type SchemaDef struct {
	Collection string     `json:"collection" yaml:"collection" validate:"required"`
	Fields     []FieldDef `json:"fields" yaml:"fields" validate:"required,min=1,dive"`
	Domain     string     `json:"domain" yaml:"domain" validate:"required"`
}

// FieldNames returns the set of field names. The evaluation core operates
// on this set only.
func (s SchemaDef) FieldNames() map[string]struct{} {
	names := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		names[f.Name] = struct{}{}
	}
	return names
}

// FieldsByRole returns the fields carrying the given role, in definition
// order.
func (s SchemaDef) FieldsByRole(role FieldRole) []FieldDef {
	var out []FieldDef
	for _, f := range s.Fields {
		if f.Role == role {
			out = append(out, f)
		}
	}
	return out
}

// FieldByName returns the field with the given name, or false when the
// schema has no such field.
func (s SchemaDef) FieldByName(name string) (FieldDef, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// AllowedOps carries the stage and expression operator allow-lists for one
// example. The evaluation core treats the union as a flat set; the split
// exists for prompt rendering and dataset export.
type AllowedOps struct {
	StageOperators      []string `json:"stage_operators" yaml:"stage_operators"`
	ExpressionOperators []string `json:"expression_operators" yaml:"expression_operators"`
}

// AllOperators returns stage operators followed by expression operators.
func (a AllowedOps) AllOperators() []string {
	out := make([]string, 0, len(a.StageOperators)+len(a.ExpressionOperators))
	out = append(out, a.StageOperators...)
	out = append(out, a.ExpressionOperators...)
	return out
}

// TrainingExample binds one natural-language intent to its schema, its
// operator allow-list, and the gold query document. Negative examples
// carry a deliberately flawed output (hallucinated field, disallowed
// operator) so a scorer can verify they fail.
type TrainingExample struct {
	SchemaDef  SchemaDef      `json:"schema"`
	AllowedOps AllowedOps     `json:"allowed_ops"`
	Intent     string         `json:"intent"`
	Output     map[string]any `json:"output"`
	IsNegative bool           `json:"is_negative,omitempty"`
}

// OutputJSON renders the gold query document as compact JSON. Returns ""
// when the output cannot be marshalled (never the case for documents
// produced by the generator).
func (e TrainingExample) OutputJSON() string {
	b, err := json.Marshal(e.Output)
	if err != nil {
		return ""
	}
	return string(b)
}
