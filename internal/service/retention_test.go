// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"testing"
	"time"

	"github.com/olegiv/ocms-audit/internal/model"
	"github.com/olegiv/ocms-audit/internal/store"
	"github.com/olegiv/ocms-audit/internal/testutil"
)

func TestRetention_CleanupDeletesExpired(t *testing.T) {
	st := store.NewEventStore(testutil.TestDB(t))
	seedEvent(t, st, "ev-old", model.EventCategoryContent, model.ContentEventSaved, "item-1", 40*24*time.Hour)
	seedEvent(t, st, "ev-new", model.EventCategoryContent, model.ContentEventSaved, "item-1", time.Hour)

	svc := NewRetentionService(st, fixedClock{now: testNow}, 30*24*time.Hour, testutil.TestLogger())
	deleted, err := svc.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	remaining, total, err := st.Query(context.Background(), store.QueryParams{Take: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 1 || remaining[0].EventID != "ev-new" {
		t.Errorf("remaining = %v", remaining)
	}
}

func TestRetention_DisabledIsNoOp(t *testing.T) {
	st := store.NewEventStore(testutil.TestDB(t))
	seedEvent(t, st, "ev-old", model.EventCategoryContent, model.ContentEventSaved, "item-1", 400*24*time.Hour)

	svc := NewRetentionService(st, fixedClock{now: testNow}, 0, testutil.TestLogger())
	deleted, err := svc.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}

	_, total, err := st.Query(context.Background(), store.QueryParams{Take: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, event must survive", total)
	}
}
