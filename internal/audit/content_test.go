// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package audit

import (
	"context"
	"testing"

	"github.com/olegiv/ocms-audit/internal/model"
)

func testItem(id string) ContentItem {
	snap := model.NewData()
	snap.Set("Title", model.String("Hello"))
	return ContentItem{ContentItemID: id, ContentType: "article", Snapshot: snap}
}

func TestContentHandler_VersionNumbering(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(store)
	h := NewContentHandler(m, ContentHandlerSettings{})
	actor := Actor{UserID: "u-1", UserName: "Ann"}
	ctx := context.Background()

	first, err := h.Created(ctx, actor, testItem("item-1"))
	if err != nil {
		t.Fatalf("Created: %v", err)
	}
	second, err := h.Published(ctx, actor, testItem("item-1"))
	if err != nil {
		t.Fatalf("Published: %v", err)
	}
	// another item keeps its own sequence
	other, err := h.Created(ctx, actor, testItem("item-2"))
	if err != nil {
		t.Fatalf("Created: %v", err)
	}

	wantVersion := func(rec *model.EventRecord, want int64) {
		t.Helper()
		v, ok := rec.Data.Get(DataKeyVersionNumber)
		if !ok {
			t.Fatal("version number missing")
		}
		if got := int64(v.Num()); got != want {
			t.Errorf("version = %d, want %d", got, want)
		}
	}
	wantVersion(first, 1)
	wantVersion(second, 2)
	wantVersion(other, 1)

	if ct, _ := first.Data.Get(DataKeyContentType); ct.Str() != "article" {
		t.Errorf("content type = %q", ct.Str())
	}
	if _, ok := first.Data.Get(DataKeyContentItem); !ok {
		t.Error("snapshot missing from data bag")
	}
}

func TestContentHandler_AllowedTypes(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(store)
	h := NewContentHandler(m, ContentHandlerSettings{AllowedContentTypes: []string{"page"}})
	ctx := context.Background()

	rec, err := h.Saved(ctx, Actor{}, testItem("item-1")) // type "article"
	if err != nil {
		t.Fatalf("Saved: %v", err)
	}
	if rec != nil {
		t.Error("disallowed type must be skipped silently")
	}
	if len(store.records) != 0 {
		t.Error("nothing should be persisted")
	}

	page := testItem("item-2")
	page.ContentType = "page"
	rec, err = h.Saved(ctx, Actor{}, page)
	if err != nil {
		t.Fatalf("Saved: %v", err)
	}
	if rec == nil {
		t.Error("allowed type must record")
	}
}

func TestContentTypeRestriction_VetoesDisallowed(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(store)
	m.Use(NewContentTypeRestriction([]string{"page"}))
	h := NewContentHandler(m, ContentHandlerSettings{})
	ctx := context.Background()

	rec, err := h.Saved(ctx, Actor{}, testItem("item-1")) // type "article"
	if err != nil {
		t.Fatalf("Saved: %v", err)
	}
	if rec != nil || len(store.records) != 0 {
		t.Error("disallowed content type must be vetoed")
	}

	// other categories are never touched
	rec, err = m.RecordEvent(ctx, EventContext{
		Name: model.UserEventLoggedIn, Category: model.EventCategoryUser, CorrelationID: "u-1",
	})
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if rec == nil {
		t.Error("user events must pass through the restriction")
	}
}

func TestContentHandler_RestoreSuppression(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(store)
	h := NewContentHandler(m, ContentHandlerSettings{})
	ctx := context.Background()
	actor := Actor{UserID: "u-1"}

	h.Restoring("item-1")

	// intermediate events for the restoring item are swallowed
	if rec, err := h.Saved(ctx, actor, testItem("item-1")); err != nil || rec != nil {
		t.Errorf("Saved during restore: rec=%v err=%v", rec, err)
	}
	if rec, err := h.Published(ctx, actor, testItem("item-1")); err != nil || rec != nil {
		t.Errorf("Published during restore: rec=%v err=%v", rec, err)
	}

	// other items are unaffected
	if rec, err := h.Saved(ctx, actor, testItem("item-2")); err != nil || rec == nil {
		t.Errorf("Saved other item: rec=%v err=%v", rec, err)
	}

	// the terminal restore event always records and clears the mark
	rec, err := h.Restored(ctx, actor, testItem("item-1"))
	if err != nil {
		t.Fatalf("Restored: %v", err)
	}
	if rec == nil || rec.Name != model.ContentEventRestored {
		t.Fatalf("restored record = %+v", rec)
	}

	if rec, err := h.Saved(ctx, actor, testItem("item-1")); err != nil || rec == nil {
		t.Errorf("Saved after restore: rec=%v err=%v", rec, err)
	}
}

func TestContentHandler_RestoredVersionCountsSuppressed(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(store)
	h := NewContentHandler(m, ContentHandlerSettings{})
	ctx := context.Background()

	if _, err := h.Created(ctx, Actor{}, testItem("item-1")); err != nil {
		t.Fatalf("Created: %v", err)
	}
	h.Restoring("item-1")
	if _, err := h.Saved(ctx, Actor{}, testItem("item-1")); err != nil {
		t.Fatalf("Saved: %v", err)
	}
	rec, err := h.Restored(ctx, Actor{}, testItem("item-1"))
	if err != nil {
		t.Fatalf("Restored: %v", err)
	}

	// suppressed Saved left no record, so restore is version 2
	v, _ := rec.Data.Get(DataKeyVersionNumber)
	if int64(v.Num()) != 2 {
		t.Errorf("version = %v, want 2", v.Num())
	}
}
