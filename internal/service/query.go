// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides the admin-facing services over the audit trail:
// filtered event queries, diff view building and retention cleanup.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/olegiv/ocms-audit/internal/audit"
	"github.com/olegiv/ocms-audit/internal/filter"
	"github.com/olegiv/ocms-audit/internal/i18n"
	"github.com/olegiv/ocms-audit/internal/model"
	"github.com/olegiv/ocms-audit/internal/store"
)

// DefaultPageSize is used when the configured page size is missing or
// invalid.
const DefaultPageSize = 25

// QueryOptions refines an admin event query beyond the parsed filter text.
type QueryOptions struct {
	Filter *filter.Result

	// Category and Date are UI refinements folded into the filter as
	// field constraints.
	Category string
	Date     string

	// CorrelationID restricts the result to one subject. When it comes
	// from routing context it is injected into the filter so the search
	// box reflects it.
	CorrelationID          string
	CorrelationIDFromRoute bool
}

// QueryResult is one page of matching events, newest first, plus the total
// count across all pages. PageSize is the effective page size after
// clamping, so callers can derive page counts from it.
type QueryResult struct {
	Events     []model.EventRecord
	TotalCount int64
	PageSize   int
}

// QueryService executes admin event queries against the event store.
type QueryService struct {
	store    *store.EventStore
	clock    audit.Clock
	pageSize int
	logger   *slog.Logger
}

// NewQueryService creates a query service. pageSize <= 0 falls back to
// DefaultPageSize.
func NewQueryService(st *store.EventStore, clock audit.Clock, pageSize int, logger *slog.Logger) *QueryService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if clock == nil {
		clock = audit.SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryService{store: st, clock: clock, pageSize: pageSize, logger: logger}
}

// Query returns one page of events matching the options. page is 1-based;
// values below 1 clamp to 1 and a page past the end returns an empty page
// with the correct total. pageSize <= 0 clamps to the configured default.
func (s *QueryService) Query(ctx context.Context, page, pageSize int, opts QueryOptions) (*QueryResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.pageSize
	}

	flt := opts.Filter
	if flt == nil {
		flt = filter.Parse("")
	}

	if opts.CorrelationIDFromRoute && opts.CorrelationID != "" {
		flt.TryAddOrReplace(filter.NewNamedNode(filter.FieldCorrelationID, opts.CorrelationID))
	}
	if opts.Category != "" {
		flt.TryAddOrReplace(filter.NewNamedNode(filter.FieldCategory, opts.Category))
	}
	if opts.Date != "" {
		flt.TryAddOrReplace(filter.ParseField(filter.FieldDate, opts.Date))
	}

	where, args := flt.Predicate(s.clock.LocalNow())

	events, total, err := s.store.Query(ctx, store.QueryParams{
		Where: where,
		Args:  args,
		Skip:  (page - 1) * pageSize,
		Take:  pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}

	return &QueryResult{Events: events, TotalCount: total, PageSize: pageSize}, nil
}

// DateRange is one canned date refinement offered by the query UI. Values
// use the relative vocabulary so a bookmarked query stays fresh.
type DateRange struct {
	Label string
	Value string
}

// DateRanges lists the canned date refinements in the given language. The
// first entry is the unconstrained "any date".
func DateRanges(lang string) []DateRange {
	return []DateRange{
		{Label: i18n.T(lang, "audit.dates.any"), Value: ""},
		{Label: i18n.T(lang, "audit.dates.last24h"), Value: ">@now-1"},
		{Label: i18n.T(lang, "audit.dates.previous48h"), Value: "@now-2..@now-1"},
		{Label: i18n.T(lang, "audit.dates.last7d"), Value: ">@now-7"},
		{Label: i18n.T(lang, "audit.dates.last30d"), Value: ">@now-30"},
	}
}
