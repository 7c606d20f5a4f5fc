// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/olegiv/ocms-audit/internal/model"
)

// EventStore persists and queries audit event records. Records are
// append-only; the only delete path is the operator-driven retention
// cleanup.
type EventStore struct {
	db *sql.DB
}

// NewEventStore creates an event store over an open database.
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventColumns = "id, event_id, category, name, correlation_id, user_id, user_name, event_data, created_utc"

// Append persists a new event record and assigns its sequence id.
func (s *EventStore) Append(ctx context.Context, rec *model.EventRecord) error {
	data, err := rec.Data.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding event data: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (event_id, category, name, correlation_id, user_id, user_name, event_data, created_utc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.EventID, rec.Category, rec.Name, rec.CorrelationID,
		rec.UserID, rec.UserName, string(data), rec.CreatedUTC,
	)
	if err != nil {
		return fmt.Errorf("appending event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading event sequence id: %w", err)
	}
	rec.ID = id

	return nil
}

// GetByEventID returns the record with the given event id, or nil when absent.
func (s *EventStore) GetByEventID(ctx context.Context, eventID string) (*model.EventRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM audit_events WHERE event_id = ?", eventID)

	rec, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting event %s: %w", eventID, err)
	}
	return rec, nil
}

// QueryParams selects a page of events. Where is an optional SQL fragment
// produced by the filter engine; events are always ordered newest first
// (created_utc desc, then sequence id desc as the stable tie-break).
type QueryParams struct {
	Where string
	Args  []any
	Skip  int
	Take  int
}

// Query returns the selected page and the total count of matching events.
// A page past the end returns an empty slice with the correct total.
func (s *EventStore) Query(ctx context.Context, params QueryParams) ([]model.EventRecord, int64, error) {
	where := ""
	if params.Where != "" {
		where = " WHERE " + params.Where
	}

	var total int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM audit_events"+where, params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting events: %w", err)
	}
	if total == 0 {
		return []model.EventRecord{}, 0, nil
	}

	args := append(append([]any{}, params.Args...), params.Take, params.Skip)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM audit_events"+where+
			" ORDER BY created_utc DESC, id DESC LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events, err := collectEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// QueryRevisionsOf returns events about one subject within a category that
// precede the given sequence id, newest first. A beforeID of 0 means no
// upper bound. Used to locate the previous snapshot when diffing.
func (s *EventStore) QueryRevisionsOf(ctx context.Context, correlationID, category string, beforeID int64, limit int) ([]model.EventRecord, error) {
	if limit <= 0 {
		limit = 1
	}
	if beforeID <= 0 {
		beforeID = math.MaxInt64
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+eventColumns+` FROM audit_events
		 WHERE correlation_id = ? AND category = ? AND id < ?
		 ORDER BY id DESC LIMIT ?`,
		correlationID, category, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying revisions of %s: %w", correlationID, err)
	}
	defer func() { _ = rows.Close() }()

	return collectEvents(rows)
}

// CountByCorrelation returns the number of events recorded about one subject
// within a category. The content provider derives version numbers from it.
func (s *EventStore) CountByCorrelation(ctx context.Context, correlationID, category string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM audit_events WHERE correlation_id = ? AND category = ?",
		correlationID, category).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting events for %s: %w", correlationID, err)
	}
	return count, nil
}

// DeleteOlderThan removes events created before the cutoff and returns how
// many were deleted. Retention policy is external; this is its only entry
// point.
func (s *EventStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM audit_events WHERE created_utc < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting expired events: %w", err)
	}
	return res.RowsAffected()
}

// scanner abstracts *sql.Row and *sql.Rows for scanEvent.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*model.EventRecord, error) {
	var rec model.EventRecord
	var data string
	err := row.Scan(&rec.ID, &rec.EventID, &rec.Category, &rec.Name,
		&rec.CorrelationID, &rec.UserID, &rec.UserName, &data, &rec.CreatedUTC)
	if err != nil {
		return nil, err
	}

	rec.Data, err = model.ParseData(data)
	if err != nil {
		return nil, fmt.Errorf("decoding event data for %s: %w", rec.EventID, err)
	}
	return &rec, nil
}

func collectEvents(rows *sql.Rows) ([]model.EventRecord, error) {
	var events []model.EventRecord
	for rows.Next() {
		rec, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}
	return events, nil
}
