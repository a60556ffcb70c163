// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security-relevant event for compliance logging.
//
// # Event Categories
//
// Events are categorized by type for filtering and alerting:
//   - Authentication: "auth.granted", "auth.denied"
//   - Evaluation: "eval.run", "eval.validate"
//   - Runs: "run.read", "run.delete"
//
// # Compliance Fields
//
// For regulatory compliance, always populate UserID and Timestamp; for
// data lineage, ResourceType and ResourceID.
type AuditEvent struct {
	// EventType categorizes the event for filtering and alerting.
	// Format: "category.action" (e.g., "auth.denied", "eval.run")
	EventType string

	// Timestamp is when the event occurred (always use UTC).
	// If zero, implementations should set it to time.Now().UTC().
	Timestamp time.Time

	// UserID identifies who performed the action.
	// Use "system" for automated actions, "anonymous" if unknown.
	UserID string

	// Action describes what operation was attempted.
	// Common values: "create", "read", "delete", "evaluate"
	Action string

	// ResourceType is the category of resource involved.
	// Examples: "run", "evaluation", "catalog"
	ResourceType string

	// ResourceID is the specific resource instance (optional).
	// Example: "20250101_120000_ab12cd34"
	ResourceID string

	// Outcome indicates the result of the action.
	// Values: "success", "failure", "blocked", "error"
	Outcome string

	// Metadata holds additional event-specific data, such as the client IP
	// or the batch size of an evaluation request.
	Metadata map[string]any
}

// AuditLogger records security-relevant events for compliance and analysis.
//
// Implementations must be safe for concurrent use by multiple goroutines.
// Log should be non-blocking or have reasonable timeouts to avoid
// impacting request latency.
//
// # Open Source Behavior
//
// The default NopAuditLogger discards all events. SlogAuditLogger emits
// each event as a structured log record, which is enough for single-node
// deployments that ship logs to a collector.
//
// # Enterprise Implementation
//
// Enterprise versions send events to SIEM systems (Splunk, Datadog, ELK)
// or compliance databases.
type AuditLogger interface {
	// Log records a security-relevant event.
	//
	// Implementations should set Timestamp if zero, persist or transmit
	// the event, and return quickly.
	Log(ctx context.Context, event AuditEvent) error

	// Flush ensures all buffered events are persisted. Call this before
	// shutdown to prevent event loss. Sync implementations may no-op.
	Flush(ctx context.Context) error
}

// NopAuditLogger discards all events without recording them. This is
// appropriate for local single-user deployments where audit trails aren't
// required.
//
// Thread-safe: this implementation has no mutable state.
type NopAuditLogger struct{}

// Log discards the event without recording it.
func (l *NopAuditLogger) Log(_ context.Context, _ AuditEvent) error {
	return nil
}

// Flush is a no-op since nothing is buffered.
func (l *NopAuditLogger) Flush(_ context.Context) error {
	return nil
}

// SlogAuditLogger writes each event as one structured log record at Info
// level. Logging is synchronous; there is nothing to flush.
type SlogAuditLogger struct {
	Logger *slog.Logger
}

// NewSlogAuditLogger builds an audit logger over the given slog logger.
// A nil logger falls back to slog.Default().
func NewSlogAuditLogger(logger *slog.Logger) *SlogAuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAuditLogger{Logger: logger}
}

// Log emits the event as a structured record.
func (l *SlogAuditLogger) Log(ctx context.Context, event AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	l.Logger.InfoContext(ctx, "audit event",
		"event_type", event.EventType,
		"timestamp", event.Timestamp,
		"user_id", event.UserID,
		"action", event.Action,
		"resource_type", event.ResourceType,
		"resource_id", event.ResourceID,
		"outcome", event.Outcome,
		"metadata", event.Metadata)
	return nil
}

// Flush is a no-op; records are written synchronously.
func (l *SlogAuditLogger) Flush(_ context.Context) error {
	return nil
}

// Compile-time interface compliance checks.
var (
	_ AuditLogger = (*NopAuditLogger)(nil)
	_ AuditLogger = (*SlogAuditLogger)(nil)
)
