// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watcher hot-reloads the schema catalog from a YAML file.
//
// The service keeps serving the previous catalog while a reload is in
// flight, and keeps it when a reload fails (a half-written file must never
// take the service down). Write bursts from editors are debounced.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jangel97/text-to-mongo/pkg/schema"
	"github.com/jangel97/text-to-mongo/services/evalserver/observability"
)

// CatalogWatcher holds the live schema catalog and swaps it when the
// backing file changes.
//
// Thread Safety: Catalog() may be called from any number of request
// goroutines; the swap happens under a write lock.
type CatalogWatcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu      sync.RWMutex
	catalog *schema.Catalog

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// Static wraps a fixed catalog in the watcher interface surface. Used when
// no catalog path is configured: Catalog() serves the built-in schemas and
// Start/Stop are no-ops.
func Static(catalog *schema.Catalog) *CatalogWatcher {
	return &CatalogWatcher{catalog: catalog}
}

// New loads the catalog from path and prepares a watcher for it. The
// initial load must succeed; a service must not start on a broken catalog.
func New(path string, logger *slog.Logger, metrics *observability.Metrics) (*CatalogWatcher, error) {
	catalog, err := schema.LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &CatalogWatcher{
		path:     path,
		debounce: 200 * time.Millisecond,
		logger:   logger,
		metrics:  metrics,
		catalog:  catalog,
		watcher:  fsw,
		done:     make(chan struct{}),
	}, nil
}

// Catalog returns the current catalog. The returned pointer is immutable;
// reloads install a fresh catalog rather than mutating the old one.
func (w *CatalogWatcher) Catalog() *schema.Catalog {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.catalog
}

// Start begins watching. The parent directory is watched rather than the
// file itself so atomic-rename saves (the common editor pattern) are seen.
// Returns immediately; events are handled on a background goroutine until
// Stop or context cancellation.
func (w *CatalogWatcher) Start(ctx context.Context) error {
	if w.watcher == nil {
		return nil // static catalog, nothing to watch
	}
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	go w.loop(ctx)
	return nil
}

// Stop halts watching. Safe to call multiple times and on a static
// watcher.
func (w *CatalogWatcher) Stop() {
	if w.watcher == nil {
		return
	}
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
	})
}

func (w *CatalogWatcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("catalog watcher error", "error", err)
		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()
		}
	}
}

func (w *CatalogWatcher) reload() {
	catalog, err := schema.LoadCatalog(w.path)
	if err != nil {
		if w.metrics != nil {
			w.metrics.RecordCatalogReload(false)
		}
		w.logger.Error("catalog reload failed, keeping previous catalog",
			"path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	w.catalog = catalog
	w.mu.Unlock()

	if w.metrics != nil {
		w.metrics.RecordCatalogReload(true)
	}
	w.logger.Info("catalog reloaded",
		"path", w.path,
		"schemas", len(catalog.Schemas),
		"held_out", len(catalog.HeldOut))
}
