// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package audit implements the audit trail manager: it validates and enriches
// incoming domain events, persists them as immutable records and resolves
// display descriptors through a provider registry.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/olegiv/ocms-audit/internal/model"
)

// ValidationError reports a recording rejected before any store call,
// identifying the missing field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("recording audit event: missing %s", e.Field)
}

// EventContext describes one domain event to record.
type EventContext struct {
	Name          string
	Category      string
	CorrelationID string
	UserID        string // empty for system actions
	UserName      string
	Data          *model.Data
	ClientIP      string // request metadata for enrichment handlers
	UserAgent     string
}

// Recording is the mutable state passed through recording handlers. Handlers
// may enrich the data bag or veto the event entirely.
type Recording struct {
	EventContext
	Data   *model.Data
	vetoed bool
}

// Veto suppresses the event; nothing is persisted and RecordEvent returns
// no record.
func (r *Recording) Veto() { r.vetoed = true }

// Vetoed reports whether a handler vetoed the event.
func (r *Recording) Vetoed() bool { return r.vetoed }

// RecordingHandler observes and may mutate an event before it is persisted.
// Handlers run in registration order; an error aborts the recording.
type RecordingHandler interface {
	OnRecording(ctx context.Context, rec *Recording) error
}

// Store is the persistence contract the manager consumes.
type Store interface {
	Append(ctx context.Context, rec *model.EventRecord) error
	GetByEventID(ctx context.Context, eventID string) (*model.EventRecord, error)
	CountByCorrelation(ctx context.Context, correlationID, category string) (int64, error)
}

// Manager orchestrates event recording and lookup. Safe for concurrent use;
// per-subject ordering is the caller's responsibility, the manager never
// reorders.
type Manager struct {
	store    Store
	registry *Registry
	handlers []RecordingHandler
	clock    Clock
	logger   *slog.Logger
}

// NewManager creates an audit manager.
func NewManager(store Store, registry *Registry, clock Clock, logger *slog.Logger) *Manager {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, registry: registry, clock: clock, logger: logger}
}

// Use appends a recording handler. Not safe to call concurrently with
// RecordEvent; wire handlers during startup.
func (m *Manager) Use(h RecordingHandler) {
	m.handlers = append(m.handlers, h)
}

// Registry returns the provider registry.
func (m *Manager) Registry() *Registry { return m.registry }

// Clock returns the manager's clock.
func (m *Manager) Clock() Clock { return m.clock }

// RecordEvent validates the context, runs recording handlers, persists the
// event and returns the stored record. A vetoed event returns (nil, nil).
// Cancellation aborts the in-flight store call; no partial record is
// returned.
func (m *Manager) RecordEvent(ctx context.Context, ec EventContext) (*model.EventRecord, error) {
	switch {
	case ec.Name == "":
		return nil, &ValidationError{Field: "event name"}
	case ec.Category == "":
		return nil, &ValidationError{Field: "category"}
	case ec.CorrelationID == "":
		return nil, &ValidationError{Field: "correlation id"}
	}

	data := ec.Data
	if data == nil {
		data = model.NewData()
	}
	rec := &Recording{EventContext: ec, Data: data.Clone()}

	for _, h := range m.handlers {
		if err := h.OnRecording(ctx, rec); err != nil {
			return nil, fmt.Errorf("running recording handler: %w", err)
		}
		if rec.vetoed {
			m.logger.Debug("audit event vetoed",
				"category", ec.Category, "name", ec.Name, "correlation_id", ec.CorrelationID)
			return nil, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record := &model.EventRecord{
		EventID:       uuid.NewString(),
		Category:      ec.Category,
		Name:          ec.Name,
		CorrelationID: ec.CorrelationID,
		UserID:        nullString(ec.UserID),
		UserName:      nullString(ec.UserName),
		Data:          rec.Data,
		CreatedUTC:    m.clock.UtcNow(),
	}

	if err := m.store.Append(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting audit event: %w", err)
	}

	m.logger.Debug("audit event recorded",
		"event_id", record.EventID, "category", record.Category, "name", record.Name)
	return record, nil
}

// GetEvent returns the record with the given event id, or nil when absent.
// Absence is not an error.
func (m *Manager) GetEvent(ctx context.Context, eventID string) (*model.EventRecord, error) {
	return m.store.GetByEventID(ctx, eventID)
}

// DescribeEvent resolves the display descriptor for a record. Pure registry
// lookup, no I/O.
func (m *Manager) DescribeEvent(rec *model.EventRecord) model.EventDescriptor {
	return m.registry.Describe(rec.Category, rec.Name)
}

// DescribeCategories lists the registered category descriptors for the
// query UI.
func (m *Manager) DescribeCategories() []model.CategoryDescriptor {
	return m.registry.Categories()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
