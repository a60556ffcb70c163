// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists evaluation reports in BadgerDB.
//
// BadgerDB is used for local embedded storage with low-latency access.
// Reports are stored as JSON values under the key prefix "run:", so a
// prefix scan enumerates all runs. The store is the only writer; the
// service and CLI both read through it.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/jangel97/text-to-mongo/services/evaluation/datatypes"
)

// runKeyPrefix namespaces report keys so other record types can share the
// database later.
const runKeyPrefix = "run:"

// ErrNotFound is returned when no report exists under the requested run ID.
var ErrNotFound = errors.New("run not found")

// Config holds configuration for the run store's BadgerDB instance.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output.
	// If nil, BadgerDB logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults: durable synchronous writes at
// the given path.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryConfig returns a configuration for tests: no disk I/O, no sync.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// RunStore persists evaluation reports.
//
// Thread Safety: safe for concurrent use; BadgerDB handles transaction
// isolation internally.
type RunStore struct {
	db *badger.DB
}

// Open creates a RunStore with the given configuration. Creates the
// database directory if it doesn't exist. Caller must Close when done.
func Open(cfg Config) (*RunStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &RunStore{db: db}, nil
}

// OpenInMemory is a convenience for tests. Data is lost on Close.
func OpenInMemory() (*RunStore, error) {
	return Open(InMemoryConfig())
}

// Close closes the underlying database.
func (s *RunStore) Close() error {
	return s.db.Close()
}

func runKey(runID string) []byte {
	return []byte(runKeyPrefix + runID)
}

// Save persists a report under its run ID. A report with an empty RunID is
// caller misuse and is rejected. Saving twice under the same ID overwrites.
func (s *RunStore) Save(ctx context.Context, report datatypes.EvalReport) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	if report.RunID == "" {
		return errors.New("report has no run ID")
	}
	value, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report %s: %w", report.RunID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(report.RunID), value)
	})
}

// Get loads one report. Returns ErrNotFound when the run ID is unknown.
func (s *RunStore) Get(ctx context.Context, runID string) (datatypes.EvalReport, error) {
	if err := ctx.Err(); err != nil {
		return datatypes.EvalReport{}, fmt.Errorf("context cancelled: %w", err)
	}
	var report datatypes.EvalReport
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(runID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &report)
		})
	})
	if err != nil {
		return datatypes.EvalReport{}, err
	}
	return report, nil
}

// RunSummary is the listing view of a stored report: identity plus
// aggregate rates, without the per-example results.
type RunSummary struct {
	RunID            string  `json:"run_id"`
	Split            string  `json:"split,omitempty"`
	CreatedAt        string  `json:"created_at"`
	Total            int     `json:"total"`
	SyntaxPassRate   float64 `json:"syntax_pass_rate"`
	OperatorPassRate float64 `json:"operator_pass_rate"`
	FieldPassRate    float64 `json:"field_pass_rate"`
	OverallPassRate  float64 `json:"overall_pass_rate"`
}

func summarize(report datatypes.EvalReport) RunSummary {
	return RunSummary{
		RunID:            report.RunID,
		Split:            report.Split,
		CreatedAt:        report.CreatedAt.Format("2006-01-02T15:04:05Z"),
		Total:            report.Total,
		SyntaxPassRate:   report.SyntaxPassRate,
		OperatorPassRate: report.OperatorPassRate,
		FieldPassRate:    report.FieldPassRate,
		OverallPassRate:  report.OverallPassRate,
	}
}

// List returns summaries of all stored runs, sorted by run ID. Run IDs
// start with a UTC timestamp, so this is creation order.
func (s *RunStore) List(ctx context.Context) ([]RunSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}
	var summaries []RunSummary
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(runKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var report datatypes.EvalReport
				if err := json.Unmarshal(val, &report); err != nil {
					return fmt.Errorf("corrupt report under %s: %w", it.Item().Key(), err)
				}
				summaries = append(summaries, summarize(report))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].RunID < summaries[j].RunID
	})
	return summaries, nil
}

// Delete removes one report. Returns ErrNotFound when the run ID is
// unknown so callers can report 404 instead of silently succeeding.
func (s *RunStore) Delete(ctx context.Context, runID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(runKey(runID)); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, runID)
		} else if err != nil {
			return err
		}
		return txn.Delete(runKey(runID))
	})
}
