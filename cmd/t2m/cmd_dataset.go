// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jangel97/text-to-mongo/pkg/schema"
	"github.com/jangel97/text-to-mongo/pkg/ux"
	"github.com/jangel97/text-to-mongo/services/dataset"
)

// loadCatalog resolves the schema catalog: an external YAML file when
// configured, otherwise the compiled-in one.
func loadCatalog() (*schema.Catalog, error) {
	if config.Catalog.Path == "" {
		return schema.BuiltinCatalog(), nil
	}
	catalog, err := schema.LoadCatalog(config.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", config.Catalog.Path, err)
	}
	return catalog, nil
}

func runDatasetGenerate(cmd *cobra.Command, _ []string) {
	catalog, err := loadCatalog()
	if err != nil {
		slog.Error("Failed to load schema catalog", "error", err)
		return
	}

	seed := config.Dataset.Seed
	if cmd.Flags().Changed("seed") {
		seed = datasetSeed
	}
	outDir := datasetOut
	if outDir == "" {
		outDir = config.Dataset.OutputDir
	}
	augment := config.Dataset.Augment
	if cmd.Flags().Changed("augment") {
		augment = datasetAugment
	}
	negRatio := config.Dataset.NegativeRatio
	if cmd.Flags().Changed("negative-ratio") {
		negRatio = negativeRatio
	}
	ratio := config.Dataset.EvalRatio
	if cmd.Flags().Changed("eval-ratio") {
		ratio = evalRatio
	}

	ux.Title("Dataset Generation")
	ux.Info(fmt.Sprintf("schemas: %d (%d held out), seed: %d", len(catalog.Schemas), len(catalog.HeldOut), seed))

	var examples []schema.TrainingExample
	err = ux.WithSpinner("Generating examples", func() error {
		examples = dataset.Generate(dataset.Config{
			Seed:          seed,
			Schemas:       catalog.Schemas,
			AllowedOps:    schema.DefaultAllowedOps(),
			Augment:       augment,
			NegativeRatio: negRatio,
			Logger:        slog.Default(),
		})
		return nil
	})
	if err != nil {
		return
	}

	counts, err := dataset.ExportSplits(examples, outDir, catalog.HeldOut, ratio, seed)
	if err != nil {
		slog.Error("Failed to write dataset splits", "error", err)
		ux.Error(fmt.Sprintf("Export failed: %v", err))
		return
	}

	ux.Success(fmt.Sprintf("%d examples written to %s", len(examples), outDir))
	for _, split := range []string{dataset.SplitTrain, dataset.SplitEval, dataset.SplitHeldOut} {
		path := filepath.Join(outDir, split+".jsonl")
		ux.ResultLine(ux.IconSuccess, path, fmt.Sprintf("%d examples", counts[split]))
	}
}
