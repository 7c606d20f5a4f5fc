// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package audit

import (
	"context"
	"fmt"

	"github.com/olegiv/ocms-audit/internal/model"
)

// Event data keys written by the content handler.
const (
	DataKeyContentItem   = "ContentItem"
	DataKeyVersionNumber = "VersionNumber"
	DataKeyContentType   = "ContentType"
)

// ContentItem is the snapshot of a content item as the platform hands it to
// the audit trail.
type ContentItem struct {
	ContentItemID string
	ContentType   string
	Snapshot      *model.Data // full item state at event time
}

// ContentHandlerSettings restricts which content types are audited. An empty
// allow list audits everything.
type ContentHandlerSettings struct {
	AllowedContentTypes []string
}

func (s ContentHandlerSettings) allows(contentType string) bool {
	if len(s.AllowedContentTypes) == 0 {
		return true
	}
	for _, t := range s.AllowedContentTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

// ContentTypeRestriction is a recording handler that vetoes Content events
// whose content type falls outside the configured allow list. It backs the
// service-wide OCMS_AUDIT_CONTENT_TYPES setting; events of other categories
// pass through untouched.
type ContentTypeRestriction struct {
	settings ContentHandlerSettings
}

// NewContentTypeRestriction creates the restriction handler. An empty allow
// list allows everything.
func NewContentTypeRestriction(allowedContentTypes []string) *ContentTypeRestriction {
	return &ContentTypeRestriction{
		settings: ContentHandlerSettings{AllowedContentTypes: allowedContentTypes},
	}
}

// OnRecording implements RecordingHandler.
func (r *ContentTypeRestriction) OnRecording(_ context.Context, rec *Recording) error {
	if rec.Category != model.EventCategoryContent {
		return nil
	}
	ct, ok := rec.Data.Get(DataKeyContentType)
	if !ok || ct.Kind() != model.KindString {
		return nil
	}
	if !r.settings.allows(ct.Str()) {
		rec.Veto()
	}
	return nil
}

// ContentHandler records content lifecycle events. It is operation-scoped:
// construct one per logical request so that its restore-suppression set and
// nothing else leaks across requests.
type ContentHandler struct {
	manager   *Manager
	settings  ContentHandlerSettings
	restoring map[string]struct{}
}

// NewContentHandler creates a content handler for one logical operation.
func NewContentHandler(manager *Manager, settings ContentHandlerSettings) *ContentHandler {
	return &ContentHandler{
		manager:   manager,
		settings:  settings,
		restoring: make(map[string]struct{}),
	}
}

// Actor identifies who performed a content operation. Zero value means a
// system action.
type Actor struct {
	UserID    string
	UserName  string
	ClientIP  string
	UserAgent string
}

// Created records a content-created event.
func (h *ContentHandler) Created(ctx context.Context, actor Actor, item ContentItem) (*model.EventRecord, error) {
	return h.record(ctx, model.ContentEventCreated, actor, item)
}

// Saved records a draft-saved event. Suppressed while the item is being
// restored from an earlier revision.
func (h *ContentHandler) Saved(ctx context.Context, actor Actor, item ContentItem) (*model.EventRecord, error) {
	return h.record(ctx, model.ContentEventSaved, actor, item)
}

// Published records a content-published event.
func (h *ContentHandler) Published(ctx context.Context, actor Actor, item ContentItem) (*model.EventRecord, error) {
	return h.record(ctx, model.ContentEventPublished, actor, item)
}

// Unpublished records a content-unpublished event.
func (h *ContentHandler) Unpublished(ctx context.Context, actor Actor, item ContentItem) (*model.EventRecord, error) {
	return h.record(ctx, model.ContentEventUnpublished, actor, item)
}

// Removed records a content-removed event.
func (h *ContentHandler) Removed(ctx context.Context, actor Actor, item ContentItem) (*model.EventRecord, error) {
	return h.record(ctx, model.ContentEventRemoved, actor, item)
}

// Cloned records a content-cloned event.
func (h *ContentHandler) Cloned(ctx context.Context, actor Actor, item ContentItem) (*model.EventRecord, error) {
	return h.record(ctx, model.ContentEventCloned, actor, item)
}

// Restoring marks an item as undergoing a restore-from-revision operation.
// Intermediate events for the item are suppressed until Restored fires.
func (h *ContentHandler) Restoring(contentItemID string) {
	h.restoring[contentItemID] = struct{}{}
}

// Restored records the terminal restore event. It always records, whether or
// not any intermediate event was suppressed for the item.
func (h *ContentHandler) Restored(ctx context.Context, actor Actor, item ContentItem) (*model.EventRecord, error) {
	rec, err := h.record(ctx, model.ContentEventRestored, actor, item)
	delete(h.restoring, item.ContentItemID)
	return rec, err
}

func (h *ContentHandler) record(ctx context.Context, name string, actor Actor, item ContentItem) (*model.EventRecord, error) {
	if name != model.ContentEventRestored {
		if _, busy := h.restoring[item.ContentItemID]; busy {
			return nil, nil
		}
	}

	if !h.settings.allows(item.ContentType) {
		return nil, nil
	}

	versions, err := h.manager.store.CountByCorrelation(ctx, item.ContentItemID, model.EventCategoryContent)
	if err != nil {
		return nil, fmt.Errorf("counting content versions: %w", err)
	}

	data := model.NewData()
	if item.Snapshot != nil {
		data.Set(DataKeyContentItem, model.Map(item.Snapshot))
	}
	data.Set(DataKeyContentType, model.String(item.ContentType))
	data.Set(DataKeyVersionNumber, model.Int(versions+1))

	return h.manager.RecordEvent(ctx, EventContext{
		Name:          name,
		Category:      model.EventCategoryContent,
		CorrelationID: item.ContentItemID,
		UserID:        actor.UserID,
		UserName:      actor.UserName,
		Data:          data,
		ClientIP:      actor.ClientIP,
		UserAgent:     actor.UserAgent,
	})
}
