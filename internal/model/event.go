// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"strings"
	"time"
)

// Event categories
const (
	EventCategoryContent = "Content"
	EventCategoryUser    = "User"
	EventCategorySystem  = "System"
)

// Content event names
const (
	ContentEventCreated     = "Created"
	ContentEventSaved       = "Saved"
	ContentEventPublished   = "Published"
	ContentEventUnpublished = "Unpublished"
	ContentEventRemoved     = "Removed"
	ContentEventCloned      = "Cloned"
	ContentEventRestored    = "Restored"
)

// User event names
const (
	UserEventLoggedIn    = "LoggedIn"
	UserEventLoggedOut   = "LoggedOut"
	UserEventLoginFailed = "LoginFailed"
	UserEventCreated     = "Created"
	UserEventDeleted     = "Deleted"
)

// System event names
const (
	SystemEventLogged = "Logged"
)

// EventRecord is one immutable audit trail entry. Records are append-only:
// once persisted they are never mutated or deleted by the core.
type EventRecord struct {
	ID            int64  // store sequence id, assigned on append
	EventID       string // opaque unique id
	Category      string
	Name          string
	CorrelationID string
	UserID        sql.NullString // null for system actions
	UserName      sql.NullString
	Data          *Data // extensible event payload, ordered
	CreatedUTC    time.Time
}

// SearchText returns the lower-cased text a free-text filter term is matched
// against: event name, category, correlation id, actor name and the
// serialized payload.
func (e *EventRecord) SearchText() string {
	parts := []string{e.Name, e.Category, e.CorrelationID}
	if e.UserName.Valid {
		parts = append(parts, e.UserName.String)
	}
	if e.Data != nil && e.Data.Len() > 0 {
		if b, err := e.Data.MarshalJSON(); err == nil {
			parts = append(parts, string(b))
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// EventDescriptor carries display metadata for an event kind. Descriptors are
// resolved from (Category, Name) through the provider registry and are never
// stored.
type EventDescriptor struct {
	Category            string
	Name                string
	DisplayName         string
	CategoryDisplayName string
}

// CategoryDescriptor describes one event category and its allowed event
// names, used by the admin query UI to populate filter choices.
type CategoryDescriptor struct {
	Name        string
	DisplayName string
	Events      []EventDescriptor
}
