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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jangel97/text-to-mongo/pkg/schema"
	"github.com/jangel97/text-to-mongo/pkg/ux"
	"github.com/jangel97/text-to-mongo/services/evalserver/store"
)

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// openStore opens the local run store configured in t2m.yaml.
func openStore() (*store.RunStore, error) {
	path := expandHome(config.Store.Path)
	if path == "" {
		return nil, fmt.Errorf("no store path configured")
	}
	return store.Open(store.DefaultConfig(path))
}

// schemaExample wraps a schema in a training example with the default
// operator allow-list, for one-off validation.
func schemaExample(def schema.SchemaDef) schema.TrainingExample {
	return schema.TrainingExample{
		SchemaDef:  def,
		AllowedOps: schema.DefaultAllowedOps(),
	}
}

func runListRuns(_ *cobra.Command, _ []string) {
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
	if len(summaries) == 0 {
		ux.Info("No stored runs")
		return
	}

	ux.Title("Stored Runs")
	for _, s := range summaries {
		icon := ux.IconSuccess
		if s.OverallPassRate < 1.0 {
			icon = ux.IconPending
		}
		ux.ResultLine(icon, s.RunID,
			fmt.Sprintf("%s, %d examples, overall %.1f%%", s.Split, s.Total, s.OverallPassRate*100))
	}
}

func runShowRun(_ *cobra.Command, args []string) {
	runStore, err := openStore()
	if err != nil {
		slog.Error("Failed to open run store", "error", err)
		return
	}
	defer runStore.Close()

	report, err := runStore.Get(context.Background(), args[0])
	if err != nil {
		slog.Error("Failed to load run", "run_id", args[0], "error", err)
		return
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal report", "error", err)
		return
	}
	fmt.Println(string(out))
}

func runDeleteRun(_ *cobra.Command, args []string) {
	runStore, err := openStore()
	if err != nil {
		slog.Error("Failed to open run store", "error", err)
		return
	}
	defer runStore.Close()

	if err := runStore.Delete(context.Background(), args[0]); err != nil {
		slog.Error("Failed to delete run", "run_id", args[0], "error", err)
		return
	}
	ux.Success(fmt.Sprintf("Deleted run %s", args[0]))
}
