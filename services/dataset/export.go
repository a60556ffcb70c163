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
	"bufio"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/jangel97/text-to-mongo/pkg/schema"
)

// SplitTrain, SplitEval, and SplitHeldOut name the three export files.
// Held-out examples belong to collections the training split never sees.
const (
	SplitTrain   = "train"
	SplitEval    = "eval"
	SplitHeldOut = "held_out"
)

// ExportSplits partitions examples into train/eval/held_out and writes one
// JSONL file per split under outputDir. Examples whose collection appears
// in heldOutCollections go to held_out; the rest are shuffled and split by
// evalRatio (the eval split always gets at least one example). Returns the
// example count per split.
func ExportSplits(
	examples []schema.TrainingExample,
	outputDir string,
	heldOutCollections map[string]struct{},
	evalRatio float64,
	seed int64,
) (map[string]int, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	rng := rand.New(rand.NewSource(seed))

	var heldOut, rest []schema.TrainingExample
	for _, ex := range examples {
		if _, ok := heldOutCollections[ex.SchemaDef.Collection]; ok {
			heldOut = append(heldOut, ex)
		} else {
			rest = append(rest, ex)
		}
	}

	rng.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})
	evalCount := int(float64(len(rest)) * evalRatio)
	if evalCount < 1 {
		evalCount = 1
	}
	if evalCount > len(rest) {
		evalCount = len(rest)
	}
	evalSet := rest[:evalCount]
	trainSet := rest[evalCount:]

	counts := make(map[string]int, 3)
	for _, split := range []struct {
		name string
		data []schema.TrainingExample
	}{
		{SplitTrain, trainSet},
		{SplitEval, evalSet},
		{SplitHeldOut, heldOut},
	} {
		path := filepath.Join(outputDir, split.name+".jsonl")
		if err := WriteJSONL(path, split.data); err != nil {
			return nil, err
		}
		counts[split.name] = len(split.data)
	}
	return counts, nil
}

// WriteJSONL writes examples to path, one JSON document per line.
func WriteJSONL(path string, examples []schema.TrainingExample) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i, ex := range examples {
		if err := enc.Encode(ex); err != nil {
			return fmt.Errorf("encoding example %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return f.Close()
}

// LoadJSONL reads a split file back into memory. Blank lines are skipped;
// a malformed line aborts the load with its 1-based line number.
func LoadJSONL(path string) ([]schema.TrainingExample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var examples []schema.TrainingExample
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ex schema.TrainingExample
		if err := json.Unmarshal(raw, &ex); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		examples = append(examples, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return examples, nil
}
