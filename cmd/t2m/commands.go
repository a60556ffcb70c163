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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath  string
	plainOutput bool
	verbose     bool
	logDir      string

	datasetSeed     int64
	datasetOut      string
	datasetAugment  bool
	negativeRatio   float64
	evalRatio       float64
	evalConcurrency int

	rootCmd = &cobra.Command{
		Use:   "t2m",
		Short: "A cli to generate and evaluate text-to-MongoDB query datasets",
		Long: `t2m builds synthetic natural-language-to-MongoDB training data and
				scores model predictions through a layered evaluation: syntax,
				operator allow-lists, and schema field grounding.`,
	}

	// --- Dataset ---
	datasetCmd = &cobra.Command{
		Use:   "dataset",
		Short: "Generate and manage training datasets",
	}
	datasetGenerateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic dataset and write train/eval/held-out splits",
		Run:   runDatasetGenerate, // Defined in cmd_dataset.go
	}

	// --- Evaluation ---
	evaluateCmd = &cobra.Command{
		Use:   "evaluate",
		Short: "Run and inspect prediction evaluations",
	}
	runEvaluationCmd = &cobra.Command{
		Use:   "run",
		Short: "Evaluate predictions against a dataset split",
		Run:   runEvaluation, // Defined in cmd_eval.go
	}
	exportEvaluationCmd = &cobra.Command{
		Use:   "export [run_id]",
		Short: "Export per-example results of a stored run to CSV",
		Args:  cobra.ExactArgs(1),
		Run:   runExport, // Defined in cmd_eval.go
	}
	compareEvaluationCmd = &cobra.Command{
		Use:   "compare [run_id...]",
		Short: "Print a markdown table comparing stored runs",
		Run:   runCompare, // Defined in cmd_eval.go
	}

	// --- Single prediction check ---
	validateCmd = &cobra.Command{
		Use:   "validate [collection] [prediction]",
		Short: "Validate one query document against a catalog schema",
		Args:  cobra.ExactArgs(2),
		Run:   runValidate, // Defined in cmd_eval.go
	}

	// --- Stored runs ---
	runsCmd = &cobra.Command{
		Use:   "runs",
		Short: "Manage stored evaluation runs",
	}
	listRunsCmd = &cobra.Command{
		Use:   "list",
		Short: "List stored evaluation runs",
		Run:   runListRuns, // Defined in cmd_runs.go
	}
	showRunCmd = &cobra.Command{
		Use:   "show [run_id]",
		Short: "Print one stored run as JSON",
		Args:  cobra.ExactArgs(1),
		Run:   runShowRun, // Defined in cmd_runs.go
	}
	deleteRunCmd = &cobra.Command{
		Use:   "delete [run_id]",
		Short: "Delete a stored evaluation run",
		Args:  cobra.ExactArgs(1),
		Run:   runDeleteRun, // Defined in cmd_runs.go
	}

	// --- GCS ---
	uploadCmd = &cobra.Command{
		Use:   "upload",
		Short: "Upload data to Google Cloud Storage (GCS)",
	}
	uploadDatasetCmd = &cobra.Command{
		Use:   "dataset [local_directory]",
		Short: "Uploads dataset splits from a local directory to GCS",
		Args:  cobra.ExactArgs(1),
		Run:   runUploadDataset, // Defined in cmd_upload.go
	}
	uploadReportCmd = &cobra.Command{
		Use:   "report [run_id]",
		Short: "Uploads a stored evaluation report to GCS",
		Args:  cobra.ExactArgs(1),
		Run:   runUploadReport, // Defined in cmd_upload.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "t2m.yaml", "Path to the CLI configuration file")
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false, "Plain output: no colors, no spinners (scripting)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Also write JSON logs to this directory")

	rootCmd.AddCommand(datasetCmd)
	datasetCmd.AddCommand(datasetGenerateCmd)
	datasetGenerateCmd.Flags().Int64Var(&datasetSeed, "seed", 42, "Random seed for deterministic generation")
	datasetGenerateCmd.Flags().StringVarP(&datasetOut, "output", "o", "", "Output directory (default: from config)")
	datasetGenerateCmd.Flags().BoolVar(&datasetAugment, "augment", true, "Apply synonym, date, negative, and operator-subset augmentation")
	datasetGenerateCmd.Flags().Float64Var(&negativeRatio, "negative-ratio", 0.1, "Fraction of negative examples to generate")
	datasetGenerateCmd.Flags().Float64Var(&evalRatio, "eval-ratio", 0.1, "Fraction of non-held-out examples placed in the eval split")

	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.AddCommand(runEvaluationCmd)
	runEvaluationCmd.Flags().String("scenario", "", "Path to scenario configuration file (YAML)")
	runEvaluationCmd.Flags().String("dataset", "", "Path to a JSONL dataset split")
	runEvaluationCmd.Flags().String("predictions", "", "File with one predicted query document per line (default: gold outputs)")
	runEvaluationCmd.Flags().String("split", "eval", "Split label recorded on the run")
	runEvaluationCmd.Flags().IntVar(&evalConcurrency, "concurrency", 8, "Parallel example evaluations")
	runEvaluationCmd.Flags().Bool("no-save", false, "Do not persist the report to the run store")
	evaluateCmd.AddCommand(exportEvaluationCmd)
	exportEvaluationCmd.Flags().StringP("output", "o", "", "Output filename (default: eval_{RunID}.csv)")
	evaluateCmd.AddCommand(compareEvaluationCmd)

	rootCmd.AddCommand(validateCmd)

	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(listRunsCmd)
	runsCmd.AddCommand(showRunCmd)
	runsCmd.AddCommand(deleteRunCmd)

	rootCmd.AddCommand(uploadCmd)
	uploadCmd.AddCommand(uploadDatasetCmd)
	uploadCmd.AddCommand(uploadReportCmd)
}
