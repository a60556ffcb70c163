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
	"log/slog"
	"math/rand"

	"github.com/jangel97/text-to-mongo/pkg/schema"
)

// GenerateBase runs every intent generator over every schema in the
// catalog and wraps the pairs as training examples. Each example carries
// the full schema and operator allow-list it was generated against.
func GenerateBase(schemas []schema.SchemaDef, allowed schema.AllowedOps, seed int64) []schema.TrainingExample {
	rng := rand.New(rand.NewSource(seed))
	var examples []schema.TrainingExample
	for _, s := range schemas {
		for _, gen := range AllGenerators {
			for _, pair := range gen(s, rng) {
				examples = append(examples, schema.TrainingExample{
					SchemaDef:  s,
					AllowedOps: allowed,
					Intent:     pair.Intent,
					Output:     pair.Query,
				})
			}
		}
	}
	return examples
}

// Config controls a full generation run.
type Config struct {
	Seed          int64
	Schemas       []schema.SchemaDef
	AllowedOps    schema.AllowedOps
	Augment       bool
	NegativeRatio float64
	Logger        *slog.Logger
}

// Generate builds the complete dataset: base examples plus, when
// cfg.Augment is set, the augmentation passes. The returned slice is
// self-contained and ready for export.
func Generate(cfg Config) []schema.TrainingExample {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	examples := GenerateBase(cfg.Schemas, cfg.AllowedOps, cfg.Seed)
	logger.Info("generated base examples", "count", len(examples), "schemas", len(cfg.Schemas))

	if cfg.Augment {
		augmented := AugmentAll(examples, cfg.Seed, cfg.NegativeRatio)
		logger.Info("augmentation complete",
			"base", len(examples),
			"total", len(augmented))
		examples = augmented
	}
	return examples
}
