// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-audit/internal/audit"
	"github.com/olegiv/ocms-audit/internal/filter"
	"github.com/olegiv/ocms-audit/internal/middleware"
	"github.com/olegiv/ocms-audit/internal/model"
	"github.com/olegiv/ocms-audit/internal/service"
)

// EventsHandler serves the admin event endpoints.
type EventsHandler struct {
	query   *service.QueryService
	diffs   *service.DiffBuilder
	manager *audit.Manager
	logger  *slog.Logger
}

// NewEventsHandler creates the admin events handler.
func NewEventsHandler(query *service.QueryService, diffs *service.DiffBuilder, manager *audit.Manager, logger *slog.Logger) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{query: query, diffs: diffs, manager: manager, logger: logger}
}

// Routes mounts the event endpoints on a chi router.
func (h *EventsHandler) Routes(r chi.Router) {
	r.Get("/events", h.List)
	r.Get("/events/categories", h.Categories)
	r.Get("/events/date-ranges", h.DateRanges)
	r.Get("/events/{eventID}", h.Get)
}

// eventView is the JSON shape of one event in list and detail responses.
type eventView struct {
	ID            int64       `json:"id"`
	EventID       string      `json:"event_id"`
	Category      string      `json:"category"`
	Name          string      `json:"name"`
	DisplayName   string      `json:"display_name,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	UserID        string      `json:"user_id,omitempty"`
	UserName      string      `json:"user_name,omitempty"`
	Data          *model.Data `json:"data,omitempty"`
	Created       string      `json:"created"`
}

func (h *EventsHandler) eventView(lang string, rec *model.EventRecord, withData bool) eventView {
	desc := h.manager.Registry().DescribeIn(lang, rec.Category, rec.Name)
	v := eventView{
		ID:            rec.ID,
		EventID:       rec.EventID,
		Category:      rec.Category,
		Name:          rec.Name,
		DisplayName:   desc.DisplayName,
		CorrelationID: rec.CorrelationID,
		Created:       rec.CreatedUTC.Format(time.RFC3339),
	}
	if rec.UserID.Valid {
		v.UserID = rec.UserID.String
	}
	if rec.UserName.Valid {
		v.UserName = rec.UserName.String
	}
	if withData {
		v.Data = rec.Data
	}
	return v
}

// List handles GET /admin/events. Query parameters: q (filter text),
// category, date, correlationId, page, per_page. The response echoes the
// normalized filter so the search box can be kept in sync.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := intParam(q.Get("page"), 1)
	perPage := intParam(q.Get("per_page"), 0)

	flt := filter.Parse(q.Get("q"))
	opts := service.QueryOptions{
		Filter:   flt,
		Category: q.Get("category"),
		Date:     q.Get("date"),
	}
	if cid := q.Get("correlationId"); cid != "" {
		opts.CorrelationID = cid
		opts.CorrelationIDFromRoute = true
	}

	result, err := h.query.Query(r.Context(), page, perPage, opts)
	if err != nil {
		h.logger.Error("event query failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to query events")
		return
	}

	lang := middleware.GetLanguage(r)
	views := make([]eventView, 0, len(result.Events))
	for i := range result.Events {
		views = append(views, h.eventView(lang, &result.Events[i], false))
	}

	writeJSONSuccess(w, map[string]any{
		"events":     views,
		"filter":     flt.String(),
		"pagination": BuildPagination(page, result.TotalCount, result.PageSize),
	})
}

// Get handles GET /admin/events/{eventID}: the full record plus the change
// view against its previous revision.
func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	rec, err := h.manager.GetEvent(r.Context(), eventID)
	if err != nil {
		h.logger.Error("event lookup failed", "event_id", eventID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to load event")
		return
	}
	if rec == nil {
		writeJSONError(w, http.StatusNotFound, "Event not found")
		return
	}

	lang := middleware.GetLanguage(r)
	body := map[string]any{
		"event": h.eventView(lang, rec, true),
	}

	if rec.Category == model.EventCategoryContent && h.diffs != nil {
		session := h.diffs.Session()
		view, err := session.BuildView(r.Context(), rec)
		if err != nil {
			h.logger.Warn("diff build failed", "event_id", eventID, "error", err)
		} else if view.HasChanges() {
			body["diff"] = view
		}
		if rec.CorrelationID != "" {
			if latest, err := session.LatestVersionID(r.Context(), rec.CorrelationID); err == nil && latest != "" {
				body["latest_version_event_id"] = latest
			}
		}
	}

	writeJSONSuccess(w, body)
}

// Categories handles GET /admin/events/categories: the category descriptors
// with localized display names, for populating filter choices.
func (h *EventsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetLanguage(r)
	cats := h.manager.Registry().CategoriesIn(lang)

	type eventDesc struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
	}
	type categoryDesc struct {
		Name        string      `json:"name"`
		DisplayName string      `json:"display_name"`
		Events      []eventDesc `json:"events"`
	}

	out := make([]categoryDesc, 0, len(cats))
	for _, c := range cats {
		cd := categoryDesc{Name: c.Name, DisplayName: c.DisplayName}
		for _, e := range c.Events {
			cd.Events = append(cd.Events, eventDesc{Name: e.Name, DisplayName: e.DisplayName})
		}
		out = append(out, cd)
	}

	writeJSONSuccess(w, map[string]any{"categories": out})
}

// DateRanges handles GET /admin/events/date-ranges: the canned relative
// date refinements for the filter UI.
func (h *EventsHandler) DateRanges(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetLanguage(r)

	type rangeView struct {
		Label string `json:"label"`
		Value string `json:"value"`
	}
	ranges := service.DateRanges(lang)
	out := make([]rangeView, 0, len(ranges))
	for _, d := range ranges {
		out = append(out, rangeView{Label: d.Label, Value: d.Value})
	}

	writeJSONSuccess(w, map[string]any{"date_ranges": out})
}

// intParam parses a positive integer query parameter, returning fallback on
// absence or garbage.
func intParam(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
