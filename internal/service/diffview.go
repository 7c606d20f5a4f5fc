// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/olegiv/ocms-audit/internal/audit"
	"github.com/olegiv/ocms-audit/internal/cache"
	"github.com/olegiv/ocms-audit/internal/diff"
	"github.com/olegiv/ocms-audit/internal/model"
	"github.com/olegiv/ocms-audit/internal/store"
)

// snapshotExclude lists the bookkeeping keys stripped before comparing two
// event payloads. They change on every event and would drown the real diff.
var snapshotExclude = []string{
	audit.DataKeyVersionNumber,
	audit.DataKeyContentType,
	audit.DataKeyClient,
	audit.DataKeyClientIP,
	audit.DataKeyCountry,
}

// DiffView is the change summary shown on an event detail page: the raw
// change tree plus the schema-ordered display nodes.
type DiffView struct {
	PreviousEventID string       `json:"previousEventId,omitempty"`
	Tree            *diff.Node   `json:"tree,omitempty"`
	Fields          []*diff.Node `json:"fields,omitempty"`
}

// HasChanges reports whether the view carries any detected change.
func (v *DiffView) HasChanges() bool { return v != nil && v.Tree != nil }

// DiffBuilder computes diff views for content events. Computed views are
// cached by event id; events are immutable once stored, so cached views
// never go stale.
type DiffBuilder struct {
	store  *store.EventStore
	schema diff.SchemaHintProvider
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewDiffBuilder creates a diff builder. c may be nil to disable caching;
// schema may be nil when no display hints are available.
func NewDiffBuilder(st *store.EventStore, schema diff.SchemaHintProvider, c cache.Cache, ttl time.Duration, logger *slog.Logger) *DiffBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiffBuilder{store: st, schema: schema, cache: c, ttl: ttl, logger: logger}
}

// Session starts a builder session. A session memoizes per-correlation
// lookups and is meant to live for one request.
func (b *DiffBuilder) Session() *DiffSession {
	return &DiffSession{builder: b, latest: make(map[string]string)}
}

// DiffSession memoizes latest-version lookups so a page listing many events
// of the same content item hits the store once per item.
type DiffSession struct {
	builder *DiffBuilder

	mu     sync.Mutex
	latest map[string]string // correlation id -> event id of latest version
}

// BuildView computes the change view for one content event against its
// previous revision. Events without a previous revision, and events whose
// payloads compare equal, yield a view with no changes.
func (s *DiffSession) BuildView(ctx context.Context, rec *model.EventRecord) (*DiffView, error) {
	b := s.builder

	if b.cache != nil {
		if cached, err := b.cache.Get(ctx, diffCacheKey(rec.EventID)); err == nil {
			var view DiffView
			if err := json.Unmarshal(cached, &view); err == nil {
				return &view, nil
			}
			b.logger.Warn("discarding malformed cached diff", "event_id", rec.EventID)
		}
	}

	view, err := s.computeView(ctx, rec)
	if err != nil {
		return nil, err
	}

	if b.cache != nil {
		if encoded, err := json.Marshal(view); err == nil {
			if err := b.cache.Set(ctx, diffCacheKey(rec.EventID), encoded, b.ttl); err != nil {
				b.logger.Warn("caching diff failed", "event_id", rec.EventID, "error", err)
			}
		}
	}
	return view, nil
}

func (s *DiffSession) computeView(ctx context.Context, rec *model.EventRecord) (*DiffView, error) {
	prev, err := s.previousRevision(ctx, rec)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return &DiffView{}, nil
	}

	tree := diff.Compare(snapshotOf(prev), snapshotOf(rec), diff.Options{})
	view := &DiffView{PreviousEventID: prev.EventID, Tree: tree}
	if tree != nil {
		view.Fields = diff.GenerateDiffNodes(tree, s.fieldsFor(rec))
	}
	return view, nil
}

// LatestVersionID returns the event id of the newest event recorded for the
// correlation id, memoized for the session's lifetime. Returns "" when the
// correlation id has no events.
func (s *DiffSession) LatestVersionID(ctx context.Context, correlationID string) (string, error) {
	s.mu.Lock()
	if id, ok := s.latest[correlationID]; ok {
		s.mu.Unlock()
		return id, nil
	}
	s.mu.Unlock()

	revs, err := s.builder.store.QueryRevisionsOf(ctx, correlationID, model.EventCategoryContent, 0, 1)
	if err != nil {
		return "", fmt.Errorf("looking up latest version of %s: %w", correlationID, err)
	}
	id := ""
	if len(revs) > 0 {
		id = revs[0].EventID
	}

	s.mu.Lock()
	s.latest[correlationID] = id
	s.mu.Unlock()
	return id, nil
}

func (s *DiffSession) previousRevision(ctx context.Context, rec *model.EventRecord) (*model.EventRecord, error) {
	if rec.CorrelationID == "" {
		return nil, nil
	}
	revs, err := s.builder.store.QueryRevisionsOf(ctx, rec.CorrelationID, rec.Category, rec.ID, 1)
	if err != nil {
		return nil, fmt.Errorf("looking up previous revision of %s: %w", rec.CorrelationID, err)
	}
	if len(revs) == 0 {
		return nil, nil
	}
	return &revs[0], nil
}

func (s *DiffSession) fieldsFor(rec *model.EventRecord) []diff.FieldDefinition {
	if s.builder.schema == nil || rec.Data == nil {
		return nil
	}
	ct, ok := rec.Data.Get(audit.DataKeyContentType)
	if !ok || ct.Kind() != model.KindString {
		return nil
	}
	return s.builder.schema.FieldsFor(ct.Str())
}

// snapshotOf extracts the comparable payload of an event: the captured
// content item when one was recorded, otherwise the event data minus
// bookkeeping keys.
func snapshotOf(rec *model.EventRecord) *model.Data {
	if rec.Data == nil {
		return model.NewData()
	}
	if item, ok := rec.Data.Get(audit.DataKeyContentItem); ok && item.Kind() == model.KindMap {
		return item.MapVal()
	}
	stripped := rec.Data.Clone()
	for _, key := range snapshotExclude {
		stripped.Delete(key)
	}
	return stripped
}

func diffCacheKey(eventID string) string { return "audit:diff:" + eventID }
