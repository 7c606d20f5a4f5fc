// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/olegiv/ocms-audit/internal/model"
	"github.com/olegiv/ocms-audit/internal/testutil"
)

// fakeStore is an in-memory Store for manager tests.
type fakeStore struct {
	records   []*model.EventRecord
	appendErr error
}

func (s *fakeStore) Append(_ context.Context, rec *model.EventRecord) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	rec.ID = int64(len(s.records) + 1)
	s.records = append(s.records, rec)
	return nil
}

func (s *fakeStore) GetByEventID(_ context.Context, eventID string) (*model.EventRecord, error) {
	for _, r := range s.records {
		if r.EventID == eventID {
			return r, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CountByCorrelation(_ context.Context, correlationID, category string) (int64, error) {
	var n int64
	for _, r := range s.records {
		if r.CorrelationID == correlationID && r.Category == category {
			n++
		}
	}
	return n, nil
}

// fixedClock pins time for deterministic records.
type fixedClock struct{ now time.Time }

func (c fixedClock) UtcNow() time.Time   { return c.now.UTC() }
func (c fixedClock) LocalNow() time.Time { return c.now }

func newTestManager(store *fakeStore) *Manager {
	clock := fixedClock{now: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}
	registry := NewRegistry(NewContentEventProvider(), NewUserEventProvider(), NewSystemEventProvider())
	return NewManager(store, registry, clock, testutil.TestLogger())
}

func TestRecordEvent_PersistsRecord(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(store)

	data := model.NewData()
	data.Set("Title", model.String("Hello"))

	rec, err := m.RecordEvent(context.Background(), EventContext{
		Name:          model.ContentEventPublished,
		Category:      model.EventCategoryContent,
		CorrelationID: "item-1",
		UserID:        "u-7",
		UserName:      "Bob Smith",
		Data:          data,
	})
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.EventID == "" {
		t.Error("event id not assigned")
	}
	if !rec.CreatedUTC.Equal(m.Clock().UtcNow()) {
		t.Errorf("created = %v, want clock time", rec.CreatedUTC)
	}
	if rec.CreatedUTC.Location() != time.UTC {
		t.Error("timestamp must be UTC")
	}
	if !rec.UserID.Valid || rec.UserID.String != "u-7" {
		t.Errorf("user id = %+v", rec.UserID)
	}
	if len(store.records) != 1 {
		t.Fatalf("stored %d records, want 1", len(store.records))
	}
}

func TestRecordEvent_Validation(t *testing.T) {
	m := newTestManager(&fakeStore{})

	tests := []struct {
		label string
		ec    EventContext
		field string
	}{
		{"missing name", EventContext{Category: "Content", CorrelationID: "x"}, "event name"},
		{"missing category", EventContext{Name: "Saved", CorrelationID: "x"}, "category"},
		{"missing correlation", EventContext{Name: "Saved", Category: "Content"}, "correlation id"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			rec, err := m.RecordEvent(context.Background(), tt.ec)
			if rec != nil {
				t.Error("no record expected")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestRecordEvent_SystemActionHasNullUser(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(store)

	rec, err := m.RecordEvent(context.Background(), EventContext{
		Name:          model.SystemEventLogged,
		Category:      model.EventCategorySystem,
		CorrelationID: "system",
	})
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if rec.UserID.Valid || rec.UserName.Valid {
		t.Error("system action must store null actor")
	}
	if rec.Data == nil {
		t.Error("nil data must become an empty bag")
	}
}

type handlerFunc func(ctx context.Context, rec *Recording) error

func (f handlerFunc) OnRecording(ctx context.Context, rec *Recording) error { return f(ctx, rec) }

func TestRecordEvent_VetoReturnsNilNil(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(store)
	m.Use(handlerFunc(func(_ context.Context, rec *Recording) error {
		rec.Veto()
		return nil
	}))

	rec, err := m.RecordEvent(context.Background(), EventContext{
		Name: "LoggedIn", Category: "User", CorrelationID: "u-1",
	})
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if rec != nil {
		t.Error("vetoed event must return no record")
	}
	if len(store.records) != 0 {
		t.Error("vetoed event must not be persisted")
	}
}

func TestRecordEvent_HandlerErrorAborts(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(store)
	boom := errors.New("boom")
	m.Use(handlerFunc(func(context.Context, *Recording) error { return boom }))

	_, err := m.RecordEvent(context.Background(), EventContext{
		Name: "LoggedIn", Category: "User", CorrelationID: "u-1",
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped handler error", err)
	}
	if len(store.records) != 0 {
		t.Error("failed recording must not be persisted")
	}
}

func TestRecordEvent_HandlerMutationDoesNotTouchCallerData(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(store)
	m.Use(handlerFunc(func(_ context.Context, rec *Recording) error {
		rec.Data.Set("Injected", model.Bool(true))
		return nil
	}))

	callerData := model.NewData()
	callerData.Set("Title", model.String("x"))

	rec, err := m.RecordEvent(context.Background(), EventContext{
		Name: "Saved", Category: "Content", CorrelationID: "item-1", Data: callerData,
	})
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if _, ok := rec.Data.Get("Injected"); !ok {
		t.Error("handler enrichment lost")
	}
	if _, ok := callerData.Get("Injected"); ok {
		t.Error("caller's data bag mutated")
	}
}

func TestRecordEvent_ContextCancelled(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec, err := m.RecordEvent(ctx, EventContext{
		Name: "Saved", Category: "Content", CorrelationID: "item-1",
	})
	if rec != nil {
		t.Error("no record on cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestGetEvent_AbsentIsNilNil(t *testing.T) {
	m := newTestManager(&fakeStore{})
	rec, err := m.GetEvent(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if rec != nil {
		t.Error("absent event must return nil without error")
	}
}

func TestRegistry_DescribeFallbacks(t *testing.T) {
	r := NewRegistry(NewContentEventProvider(), NewUserEventProvider())

	// registered pair
	d := r.Describe(model.EventCategoryContent, model.ContentEventPublished)
	if d.Category != model.EventCategoryContent || d.Name != model.ContentEventPublished {
		t.Errorf("descriptor = %+v", d)
	}

	// known category, unknown event keeps the raw name
	d = r.Describe(model.EventCategoryContent, "Archived")
	if d.DisplayName != "Archived" {
		t.Errorf("display = %q, want raw name", d.DisplayName)
	}

	// unknown category falls back entirely
	d = r.Describe("Billing", "Charged")
	if d.Category != "Billing" || d.CategoryDisplayName != "Billing" || d.DisplayName != "Charged" {
		t.Errorf("descriptor = %+v", d)
	}
}

func TestRegistry_DescribeCaseInsensitive(t *testing.T) {
	r := NewRegistry(NewContentEventProvider())
	d := r.Describe("content", "published")
	if d.Category != model.EventCategoryContent || d.Name != model.ContentEventPublished {
		t.Errorf("descriptor = %+v", d)
	}
}

func TestRegistry_Categories(t *testing.T) {
	r := NewRegistry(NewContentEventProvider(), NewUserEventProvider(), NewSystemEventProvider())
	cats := r.Categories()
	if len(cats) != 3 {
		t.Fatalf("got %d categories", len(cats))
	}
	if cats[0].Name != model.EventCategoryContent || len(cats[0].Events) != 7 {
		t.Errorf("content category = %+v", cats[0])
	}
}
