// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, int64(42), cfg.Dataset.Seed)
	assert.Equal(t, "~/.t2m/runs", cfg.Store.Path)
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t2m.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dataset:
  seed: 7
  output_dir: /tmp/out
store:
  path: /tmp/runs
cloud:
  project_id: proj
  bucket: my-bucket
  sa_key_path: key.json
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Dataset.Seed)
	assert.Equal(t, "/tmp/out", cfg.Dataset.OutputDir)
	assert.Equal(t, "/tmp/runs", cfg.Store.Path)
	assert.Equal(t, "my-bucket", cfg.Cloud.Bucket)
	// Untouched section keeps its default.
	assert.InDelta(t, 0.1, cfg.Dataset.EvalRatio, 1e-9)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t2m.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dataset: [not a mapping"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".t2m/runs"), expandHome("~/.t2m/runs"))
	assert.Equal(t, "/var/lib/t2m", expandHome("/var/lib/t2m"))
}
