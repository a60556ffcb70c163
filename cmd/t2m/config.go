// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration, read from t2m.yaml. Every section is
// optional; missing values fall back to the defaults below.
type Config struct {
	Dataset DatasetConfig `yaml:"dataset"`
	Catalog CatalogConfig `yaml:"catalog"`
	Store   StoreConfig   `yaml:"store"`
	Cloud   CloudConfig   `yaml:"cloud"`
}

// DatasetConfig controls `t2m dataset generate`.
type DatasetConfig struct {
	Seed          int64   `yaml:"seed"`
	OutputDir     string  `yaml:"output_dir"`
	Augment       bool    `yaml:"augment"`
	NegativeRatio float64 `yaml:"negative_ratio"`
	EvalRatio     float64 `yaml:"eval_ratio"`
}

// CatalogConfig points at an external schema catalog. When Path is empty
// the compiled-in catalog is used.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig locates the local run store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// CloudConfig configures GCS uploads.
type CloudConfig struct {
	ProjectID  string `yaml:"project_id"`
	Bucket     string `yaml:"bucket"`
	SAKeyPath  string `yaml:"sa_key_path"`
	PathPrefix string `yaml:"path_prefix"`
}

// DefaultConfig returns the configuration used when no t2m.yaml exists.
func DefaultConfig() Config {
	return Config{
		Dataset: DatasetConfig{
			Seed:          42,
			OutputDir:     "dataset",
			Augment:       true,
			NegativeRatio: 0.1,
			EvalRatio:     0.1,
		},
		Store: StoreConfig{
			Path: "~/.t2m/runs",
		},
	}
}

// LoadConfig reads a YAML config file and layers it over the defaults.
// A missing file is not an error; a malformed one is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
