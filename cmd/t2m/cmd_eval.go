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
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jangel97/text-to-mongo/pkg/ux"
	"github.com/jangel97/text-to-mongo/services/dataset"
	"github.com/jangel97/text-to-mongo/services/evaluation/harness"
	"github.com/jangel97/text-to-mongo/services/evalserver/store"
)

// EvalScenario is the YAML shape of an evaluation scenario file:
//
//	metadata:
//	  id: baseline
//	  version: "1"
//	dataset:
//	  path: dataset/eval.jsonl
//	  split: eval
//	predictions:
//	  path: predictions.jsonl
//	held_out: [museum_exhibits]
//	concurrency: 8
type EvalScenario struct {
	Metadata struct {
		ID      string `yaml:"id"`
		Version string `yaml:"version"`
	} `yaml:"metadata"`
	Dataset struct {
		Path  string `yaml:"path"`
		Split string `yaml:"split"`
	} `yaml:"dataset"`
	Predictions struct {
		Path string `yaml:"path"`
	} `yaml:"predictions"`
	HeldOut     []string `yaml:"held_out"`
	Concurrency int      `yaml:"concurrency"`
}

// readPredictions reads one predicted query document per line, skipping
// blank lines.
func readPredictions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening predictions %s: %w", path, err)
	}
	defer f.Close()

	var predictions []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		predictions = append(predictions, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading predictions %s: %w", path, err)
	}
	return predictions, nil
}

func runEvaluation(cmd *cobra.Command, _ []string) {
	var scenario EvalScenario
	scenarioPath, _ := cmd.Flags().GetString("scenario")
	if scenarioPath != "" {
		data, err := os.ReadFile(scenarioPath)
		if err != nil {
			slog.Error("Failed to read scenario file", "path", scenarioPath, "error", err)
			return
		}
		if err := yaml.Unmarshal(data, &scenario); err != nil {
			slog.Error("Failed to parse YAML scenario", "error", err)
			return
		}
	}

	// CLI flags override the scenario file.
	datasetPath := scenario.Dataset.Path
	if v, _ := cmd.Flags().GetString("dataset"); v != "" {
		datasetPath = v
	}
	if datasetPath == "" {
		slog.Error("Please provide a dataset using --dataset or a scenario file with --scenario")
		return
	}
	predictionsPath := scenario.Predictions.Path
	if v, _ := cmd.Flags().GetString("predictions"); v != "" {
		predictionsPath = v
	}
	split := scenario.Dataset.Split
	if cmd.Flags().Changed("split") || split == "" {
		split, _ = cmd.Flags().GetString("split")
	}
	concurrency := scenario.Concurrency
	if cmd.Flags().Changed("concurrency") || concurrency <= 0 {
		concurrency = evalConcurrency
	}

	examples, err := dataset.LoadJSONL(datasetPath)
	if err != nil {
		slog.Error("Failed to load dataset", "path", datasetPath, "error", err)
		return
	}

	var predictions []string
	if predictionsPath != "" {
		predictions, err = readPredictions(predictionsPath)
		if err != nil {
			slog.Error("Failed to load predictions", "error", err)
			return
		}
	} else {
		// Self-check mode: score the gold outputs. Useful for verifying
		// a dataset before training on it.
		ux.Warning("No predictions file; evaluating gold outputs (dataset self-check)")
		predictions = make([]string, len(examples))
		for i, ex := range examples {
			predictions[i] = ex.OutputJSON()
		}
	}

	catalog, err := loadCatalog()
	if err != nil {
		slog.Error("Failed to load schema catalog", "error", err)
		return
	}
	heldOut := catalog.HeldOut
	if scenario.HeldOut != nil {
		heldOut = make(map[string]struct{}, len(scenario.HeldOut))
		for _, name := range scenario.HeldOut {
			heldOut[name] = struct{}{}
		}
	}

	ux.Title("Evaluation Run")
	ux.Info(fmt.Sprintf("dataset: %s (%d examples), split: %s", datasetPath, len(examples), split))
	if scenario.Metadata.ID != "" {
		ux.Info(fmt.Sprintf("scenario: %s (v%s)", scenario.Metadata.ID, scenario.Metadata.Version))
	}

	report, err := evaluateWithProgress(context.Background(), examples, predictions, heldOut, split, concurrency)
	if err != nil {
		slog.Error("Evaluation failed", "error", err)
		ux.Error(fmt.Sprintf("Evaluation failed: %v", err))
		return
	}

	passed := 0
	for _, res := range report.Results {
		if res.PassedAll {
			passed++
		}
	}
	ux.Summary(passed, report.Total-passed, report.Total)
	ux.Info(fmt.Sprintf("syntax %.1f%%  operators %.1f%%  fields %.1f%%  overall %.1f%%",
		report.SyntaxPassRate*100, report.OperatorPassRate*100,
		report.FieldPassRate*100, report.OverallPassRate*100))

	if g := report.Generalization; g != nil {
		if g.Flagged {
			ux.WarningBox("Generalization gap", fmt.Sprintf(
				"held-out pass rates trail training collections\nsyntax %.1f%% vs %.1f%%  operators %.1f%% vs %.1f%%  fields %.1f%% vs %.1f%%",
				g.HeldOutSyntaxPassRate*100, g.TrainSyntaxPassRate*100,
				g.HeldOutOperatorPassRate*100, g.TrainOperatorPassRate*100,
				g.HeldOutFieldPassRate*100, g.TrainFieldPassRate*100))
		} else {
			ux.Success("No generalization gap detected on held-out collections")
		}
	}

	if noSave, _ := cmd.Flags().GetBool("no-save"); !noSave {
		runStore, err := openStore()
		if err != nil {
			slog.Error("Failed to open run store", "error", err)
			return
		}
		defer runStore.Close()
		if err := runStore.Save(context.Background(), report); err != nil {
			slog.Error("Failed to persist report", "run_id", report.RunID, "error", err)
			return
		}
		ux.Success(fmt.Sprintf("Run saved: %s", report.RunID))
	}
}

func runExport(cmd *cobra.Command, args []string) {
	runID := args[0]

	outputFlag, _ := cmd.Flags().GetString("output")

	// Default filename
	defaultName := fmt.Sprintf("eval_%s.csv", runID)
	var outputFile string

	if outputFlag == "" {
		outputFile = defaultName
	} else {
		// A directory gets the default name appended; anything else is
		// treated as the full file path.
		info, err := os.Stat(outputFlag)
		if err == nil && info.IsDir() {
			outputFile = filepath.Join(outputFlag, defaultName)
		} else {
			outputFile = outputFlag
		}
	}

	runStore, err := openStore()
	if err != nil {
		slog.Error("Failed to open run store", "error", err)
		return
	}
	defer runStore.Close()

	report, err := runStore.Get(context.Background(), runID)
	if err != nil {
		slog.Error("Failed to load run", "run_id", runID, "error", err)
		return
	}

	f, err := os.Create(outputFile)
	if err != nil {
		slog.Error("Failed to create output file", "error", err)
		return
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("Failed to close output file", "error", closeErr)
		}
	}()

	if err := store.ExportCSV(f, report); err != nil {
		slog.Error("Failed to write CSV", "error", err)
		return
	}

	ux.Success(fmt.Sprintf("Export complete: %d rows written to %s", len(report.Results), outputFile))
}

func runCompare(_ *cobra.Command, args []string) {
	runStore, err := openStore()
	if err != nil {
		slog.Error("Failed to open run store", "error", err)
		return
	}
	defer runStore.Close()

	summaries, err := runStore.List(context.Background())
	if err != nil {
		slog.Error("Failed to list runs", "error", err)
		return
	}

	if len(args) > 0 {
		wanted := make(map[string]struct{}, len(args))
		for _, id := range args {
			wanted[id] = struct{}{}
		}
		filtered := summaries[:0]
		for _, s := range summaries {
			if _, ok := wanted[s.RunID]; ok {
				filtered = append(filtered, s)
			}
		}
		summaries = filtered
	}

	if len(summaries) == 0 {
		ux.Warning("No stored runs to compare")
		return
	}
	fmt.Print(store.CompareMarkdown(summaries))
}

func runValidate(_ *cobra.Command, args []string) {
	collection, prediction := args[0], args[1]

	catalog, err := loadCatalog()
	if err != nil {
		slog.Error("Failed to load schema catalog", "error", err)
		return
	}
	def, ok := catalog.ByName(collection)
	if !ok {
		slog.Error("Unknown collection", "collection", collection)
		return
	}

	example := schemaExample(def)
	result := harness.New().EvalOne(example, prediction)

	layerIcon := func(passed bool) ux.Icon {
		if passed {
			return ux.IconSuccess
		}
		return ux.IconError
	}
	ux.ResultLine(layerIcon(result.Syntax.Passed), "syntax", strings.Join(result.Syntax.Errors, "; "))
	ux.ResultLine(layerIcon(result.Operators.Passed), "operators",
		strings.Join(append(result.Operators.Violations, result.Operators.UnsafeOperators...), "; "))
	ux.ResultLine(layerIcon(result.Fields.Passed), "fields",
		strings.Join(result.Fields.HallucinatedFields, "; "))

	if result.PassedAll {
		ux.Success("Prediction passed all layers")
	} else {
		ux.Error("Prediction failed")
	}
}
