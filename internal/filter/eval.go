// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package filter

import (
	"strings"
	"time"

	"github.com/olegiv/ocms-audit/internal/model"
)

// Evaluate reports whether a record matches the filter. Every node narrows
// the match set: named nodes constrain their field and free-text terms must
// all appear somewhere in the record's searchable text. An empty filter
// matches everything. Relative dates resolve against ref.
func (r *Result) Evaluate(rec *model.EventRecord, ref time.Time) bool {
	if r.IsEmpty() {
		return true
	}
	for _, node := range r.nodes {
		if !matches(node, rec, ref) {
			return false
		}
	}
	return true
}

func matches(node Node, rec *model.EventRecord, ref time.Time) bool {
	switch n := node.(type) {
	case TermNode:
		return strings.Contains(rec.SearchText(), strings.ToLower(n.Text))
	case NamedNode:
		return matchesNamed(n, rec, ref)
	default:
		return strings.Contains(rec.SearchText(), strings.ToLower(node.String()))
	}
}

func matchesNamed(n NamedNode, rec *model.EventRecord, ref time.Time) bool {
	switch n.Field() {
	case FieldID:
		return rec.EventID == n.Value
	case FieldCategory:
		return strings.EqualFold(rec.Category, n.Value)
	case FieldEvent:
		return strings.EqualFold(rec.Name, n.Value)
	case FieldCorrelationID:
		return rec.CorrelationID == n.Value
	case FieldUserID:
		return rec.UserID.Valid && rec.UserID.String == n.Value
	case FieldUserName:
		return rec.UserName.Valid &&
			strings.Contains(strings.ToLower(rec.UserName.String), strings.ToLower(n.Value))
	case FieldDate:
		return resolveDateRange(n, ref).contains(rec.CreatedUTC)
	default:
		// an injected node for a field the evaluator doesn't know narrows
		// like a term
		return strings.Contains(rec.SearchText(), strings.ToLower(n.Value))
	}
}

// Predicate renders the filter as a SQL WHERE fragment over the audit_events
// table, with relative dates resolved against ref. An empty filter returns
// an empty clause. The fragment and args feed store.QueryParams unchanged.
func (r *Result) Predicate(ref time.Time) (string, []any) {
	if r.IsEmpty() {
		return "", nil
	}

	var clauses []string
	var args []any

	add := func(clause string, a ...any) {
		clauses = append(clauses, clause)
		args = append(args, a...)
	}

	for _, node := range r.nodes {
		switch n := node.(type) {
		case TermNode:
			addTermClause(add, n.Text)
		case NamedNode:
			switch n.Field() {
			case FieldID:
				add("event_id = ?", n.Value)
			case FieldCategory:
				add("category = ? COLLATE NOCASE", n.Value)
			case FieldEvent:
				add("name = ? COLLATE NOCASE", n.Value)
			case FieldCorrelationID:
				add("correlation_id = ?", n.Value)
			case FieldUserID:
				add("user_id = ?", n.Value)
			case FieldUserName:
				add(`user_name LIKE ? ESCAPE '\' COLLATE NOCASE`, "%"+escapeLike(n.Value)+"%")
			case FieldDate:
				dr := resolveDateRange(n, ref)
				if dr.hasFrom {
					add("created_utc >= ?", dr.from)
				}
				if dr.hasTo {
					add("created_utc < ?", dr.to)
				}
			default:
				addTermClause(add, n.Value)
			}
		default:
			addTermClause(add, node.String())
		}
	}

	return strings.Join(clauses, " AND "), args
}

func addTermClause(add func(string, ...any), term string) {
	pattern := "%" + escapeLike(term) + "%"
	add(`(name LIKE ? ESCAPE '\' COLLATE NOCASE
		OR category LIKE ? ESCAPE '\' COLLATE NOCASE
		OR correlation_id LIKE ? ESCAPE '\' COLLATE NOCASE
		OR user_name LIKE ? ESCAPE '\' COLLATE NOCASE
		OR event_data LIKE ? ESCAPE '\' COLLATE NOCASE)`,
		pattern, pattern, pattern, pattern, pattern)
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}
