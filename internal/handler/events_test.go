// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-audit/internal/audit"
	"github.com/olegiv/ocms-audit/internal/i18n"
	"github.com/olegiv/ocms-audit/internal/middleware"
	"github.com/olegiv/ocms-audit/internal/model"
	"github.com/olegiv/ocms-audit/internal/service"
	"github.com/olegiv/ocms-audit/internal/store"
	"github.com/olegiv/ocms-audit/internal/testutil"
)

var handlerNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

type handlerClock struct{}

func (handlerClock) UtcNow() time.Time   { return handlerNow }
func (handlerClock) LocalNow() time.Time { return handlerNow }

type eventsFixture struct {
	store  *store.EventStore
	router chi.Router
}

func newEventsFixture(t *testing.T) *eventsFixture {
	t.Helper()
	return newEventsFixtureSized(t, 25)
}

func newEventsFixtureSized(t *testing.T, pageSize int) *eventsFixture {
	t.Helper()
	if err := i18n.Init(); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}

	st := store.NewEventStore(testutil.TestDB(t))
	registry := audit.NewRegistry(
		audit.NewContentEventProvider(),
		audit.NewUserEventProvider(),
		audit.NewSystemEventProvider(),
	)
	manager := audit.NewManager(st, registry, handlerClock{}, testutil.TestLogger())
	query := service.NewQueryService(st, handlerClock{}, pageSize, testutil.TestLogger())
	diffs := service.NewDiffBuilder(st, nil, nil, 0, testutil.TestLogger())

	h := NewEventsHandler(query, diffs, manager, testutil.TestLogger())
	r := chi.NewRouter()
	r.Use(middleware.Language)
	r.Route("/admin", h.Routes)

	return &eventsFixture{store: st, router: r}
}

func (f *eventsFixture) seed(t *testing.T, eventID, category, name, correlationID, title string, age time.Duration) *model.EventRecord {
	t.Helper()
	item := model.NewData()
	item.Set("Title", model.String(title))
	data := model.NewData()
	data.Set(audit.DataKeyContentItem, model.Map(item))
	data.Set(audit.DataKeyContentType, model.String("article"))

	rec := &model.EventRecord{
		EventID:       eventID,
		Category:      category,
		Name:          name,
		CorrelationID: correlationID,
		UserID:        sql.NullString{String: "u-1", Valid: true},
		UserName:      sql.NullString{String: "Ann", Valid: true},
		Data:          data,
		CreatedUTC:    handlerNow.Add(-age),
	}
	if err := f.store.Append(context.Background(), rec); err != nil {
		t.Fatalf("Append: %v", err)
	}
	return rec
}

func (f *eventsFixture) get(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding %s: %v\n%s", url, err, rec.Body.String())
	}
	return rec.Code, body
}

func TestEventsList(t *testing.T) {
	f := newEventsFixture(t)
	f.seed(t, "ev-1", model.EventCategoryContent, model.ContentEventPublished, "item-1", "A", 2*time.Hour)
	f.seed(t, "ev-2", model.EventCategoryContent, model.ContentEventSaved, "item-1", "B", time.Hour)
	f.seed(t, "ev-3", model.EventCategoryUser, model.UserEventLoggedIn, "u-1", "", time.Hour)

	code, body := f.get(t, "/admin/events")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["success"] != true {
		t.Error("success flag missing")
	}
	events := body["events"].([]any)
	if len(events) != 3 {
		t.Fatalf("got %d events", len(events))
	}
	first := events[0].(map[string]any)
	if first["event_id"] != "ev-2" && first["event_id"] != "ev-3" {
		t.Errorf("first event = %v, want one of the newest", first["event_id"])
	}
	if _, hasData := first["data"]; hasData {
		t.Error("list views must omit the payload")
	}

	pagination := body["pagination"].(map[string]any)
	if pagination["total_items"].(float64) != 3 {
		t.Errorf("pagination = %v", pagination)
	}
}

func TestEventsList_FilterEchoedNormalized(t *testing.T) {
	f := newEventsFixture(t)
	f.seed(t, "ev-1", model.EventCategoryContent, model.ContentEventPublished, "item-1", "A", time.Hour)

	code, body := f.get(t, "/admin/events?q=%20%20category%3AContent%20%20published%20")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["filter"] != "category:Content published" {
		t.Errorf("filter = %q", body["filter"])
	}
}

func TestEventsList_CorrelationRouteInjected(t *testing.T) {
	f := newEventsFixture(t)
	f.seed(t, "ev-1", model.EventCategoryContent, model.ContentEventSaved, "item-1", "A", time.Hour)
	f.seed(t, "ev-2", model.EventCategoryContent, model.ContentEventSaved, "item-2", "B", time.Hour)

	code, body := f.get(t, "/admin/events?correlationId=item-2")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	events := body["events"].([]any)
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	if body["filter"] != "correlationid:item-2" {
		t.Errorf("filter = %q", body["filter"])
	}
}

func TestEventsList_CategoryAndPaging(t *testing.T) {
	f := newEventsFixture(t)
	for i := 0; i < 4; i++ {
		f.seed(t, fmt.Sprintf("ev-%d", i), model.EventCategoryContent, model.ContentEventSaved, "item-1", "T", time.Duration(i)*time.Minute)
	}
	f.seed(t, "ev-user", model.EventCategoryUser, model.UserEventLoggedIn, "u-1", "", time.Minute)

	code, body := f.get(t, "/admin/events?category=Content&page=2&per_page=3")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	events := body["events"].([]any)
	if len(events) != 1 {
		t.Fatalf("page 2 has %d events, want 1", len(events))
	}
	pagination := body["pagination"].(map[string]any)
	if pagination["total_items"].(float64) != 4 || pagination["total_pages"].(float64) != 2 {
		t.Errorf("pagination = %v", pagination)
	}
	if pagination["has_prev"] != true || pagination["has_next"] != false {
		t.Errorf("pagination = %v", pagination)
	}
}

func TestEventsList_DefaultPerPageFollowsConfiguredSize(t *testing.T) {
	f := newEventsFixtureSized(t, 5)
	for i := 0; i < 8; i++ {
		f.seed(t, fmt.Sprintf("ev-%d", i), model.EventCategoryContent, model.ContentEventSaved, "item-1", "T", time.Duration(i)*time.Minute)
	}

	code, body := f.get(t, "/admin/events")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	events := body["events"].([]any)
	if len(events) != 5 {
		t.Fatalf("got %d events, want the configured page size", len(events))
	}
	pagination := body["pagination"].(map[string]any)
	if pagination["per_page"].(float64) != 5 {
		t.Errorf("per_page = %v, want 5", pagination["per_page"])
	}
	if pagination["total_pages"].(float64) != 2 {
		t.Errorf("total_pages = %v, want 2", pagination["total_pages"])
	}
}

func TestEventsGet_DetailWithDiff(t *testing.T) {
	f := newEventsFixture(t)
	f.seed(t, "ev-1", model.EventCategoryContent, model.ContentEventCreated, "item-1", "Draft", 2*time.Hour)
	f.seed(t, "ev-2", model.EventCategoryContent, model.ContentEventPublished, "item-1", "Final", time.Hour)

	code, body := f.get(t, "/admin/events/ev-2")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}

	event := body["event"].(map[string]any)
	if event["event_id"] != "ev-2" {
		t.Errorf("event = %v", event)
	}
	if event["display_name"] != "Content published" {
		t.Errorf("display name = %v", event["display_name"])
	}
	if _, hasData := event["data"]; !hasData {
		t.Error("detail view must include the payload")
	}

	diffBody, ok := body["diff"].(map[string]any)
	if !ok {
		t.Fatalf("diff missing: %v", body)
	}
	if diffBody["previousEventId"] != "ev-1" {
		t.Errorf("diff = %v", diffBody)
	}
	if body["latest_version_event_id"] != "ev-2" {
		t.Errorf("latest = %v", body["latest_version_event_id"])
	}
}

func TestEventsGet_FirstRevisionHasNoDiff(t *testing.T) {
	f := newEventsFixture(t)
	f.seed(t, "ev-1", model.EventCategoryContent, model.ContentEventCreated, "item-1", "Draft", time.Hour)

	code, body := f.get(t, "/admin/events/ev-1")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if _, ok := body["diff"]; ok {
		t.Error("first revision must carry no diff")
	}
}

func TestEventsGet_NotFound(t *testing.T) {
	f := newEventsFixture(t)

	code, body := f.get(t, "/admin/events/ghost")
	if code != http.StatusNotFound {
		t.Fatalf("status = %d", code)
	}
	if body["success"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestEventsCategories(t *testing.T) {
	f := newEventsFixture(t)

	code, body := f.get(t, "/admin/events/categories")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	cats := body["categories"].([]any)
	if len(cats) != 3 {
		t.Fatalf("got %d categories", len(cats))
	}
	content := cats[0].(map[string]any)
	if content["name"] != model.EventCategoryContent {
		t.Errorf("first category = %v", content["name"])
	}
	if len(content["events"].([]any)) != 7 {
		t.Errorf("content events = %v", content["events"])
	}
}

func TestEventsDateRanges(t *testing.T) {
	f := newEventsFixture(t)

	code, body := f.get(t, "/admin/events/date-ranges")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	ranges := body["date_ranges"].([]any)
	if len(ranges) != 5 {
		t.Fatalf("got %d ranges", len(ranges))
	}
	first := ranges[0].(map[string]any)
	if first["value"] != "" || first["label"] == "" {
		t.Errorf("first range = %v", first)
	}
}

func TestIntParam(t *testing.T) {
	tests := []struct {
		in       string
		fallback int
		want     int
	}{
		{"", 1, 1},
		{"3", 1, 3},
		{"0", 1, 1},
		{"-5", 1, 1},
		{"abc", 7, 7},
	}
	for _, tt := range tests {
		if got := intParam(tt.in, tt.fallback); got != tt.want {
			t.Errorf("intParam(%q, %d) = %d, want %d", tt.in, tt.fallback, got, tt.want)
		}
	}
}

func TestBuildPagination(t *testing.T) {
	p := BuildPagination(2, 10, 3)
	if p.TotalPages != 4 || !p.HasPrev || !p.HasNext {
		t.Errorf("pagination = %+v", p)
	}

	p = BuildPagination(0, 0, 0)
	if p.Page != 1 || p.PerPage != 1 || p.TotalPages != 1 || p.HasPrev || p.HasNext {
		t.Errorf("degenerate pagination = %+v", p)
	}
}
