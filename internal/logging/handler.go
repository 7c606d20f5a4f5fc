// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that tees WARN and above into the
// audit trail as System events, so operational problems show up next to the
// content and user history they affected.
package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/ocms-audit/internal/model"
	"github.com/olegiv/ocms-audit/internal/store"
)

// AuditLogHandler wraps another slog.Handler and additionally records
// qualifying log entries as audit events.
type AuditLogHandler struct {
	inner slog.Handler
	store *store.EventStore
	level slog.Level
	attrs []slog.Attr
}

// NewAuditLogHandler creates a handler that records WARN and above.
func NewAuditLogHandler(inner slog.Handler, st *store.EventStore) *AuditLogHandler {
	return NewAuditLogHandlerWithLevel(inner, st, slog.LevelWarn)
}

// NewAuditLogHandlerWithLevel creates a handler with a custom recording
// threshold. The inner handler still receives every record it accepts.
func NewAuditLogHandlerWithLevel(inner slog.Handler, st *store.EventStore, level slog.Level) *AuditLogHandler {
	return &AuditLogHandler{inner: inner, store: st, level: level}
}

// Enabled implements slog.Handler.
func (h *AuditLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *AuditLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level >= h.level {
		h.recordEvent(r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *AuditLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &AuditLogHandler{
		inner: h.inner.WithAttrs(attrs),
		store: h.store,
		level: h.level,
		attrs: merged,
	}
}

// WithGroup implements slog.Handler.
func (h *AuditLogHandler) WithGroup(name string) slog.Handler {
	return &AuditLogHandler{
		inner: h.inner.WithGroup(name),
		store: h.store,
		level: h.level,
		attrs: h.attrs,
	}
}

// recordEvent writes the log record as a System audit event. A background
// context is used so the event lands even when the request context is
// already cancelled. Failures are swallowed; a logging path must not fail
// the caller.
func (h *AuditLogHandler) recordEvent(r slog.Record) {
	data := model.NewData()
	data.Set("Level", model.String(r.Level.String()))
	data.Set("Message", model.String(r.Message))
	for _, a := range h.attrs {
		data.Set(a.Key, attrValue(a.Value))
	}
	r.Attrs(func(a slog.Attr) bool {
		data.Set(a.Key, attrValue(a.Value))
		return true
	})

	when := r.Time
	if when.IsZero() {
		when = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = h.store.Append(ctx, &model.EventRecord{
		EventID:    uuid.NewString(),
		Category:   model.EventCategorySystem,
		Name:       model.SystemEventLogged,
		Data:       data,
		CreatedUTC: when.UTC(),
	})
}

func attrValue(v slog.Value) model.Value {
	switch v.Kind() {
	case slog.KindBool:
		return model.Bool(v.Bool())
	case slog.KindInt64:
		return model.Int(v.Int64())
	case slog.KindUint64:
		return model.Number(float64(v.Uint64()))
	case slog.KindFloat64:
		return model.Number(v.Float64())
	case slog.KindTime:
		return model.Time(v.Time())
	case slog.KindDuration:
		return model.String(v.Duration().String())
	default:
		return model.String(v.String())
	}
}

var _ slog.Handler = (*AuditLogHandler)(nil)
