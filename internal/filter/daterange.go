// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package filter

import (
	"strconv"
	"strings"
	"time"
)

// dateRange is a resolved half-open interval over event creation times.
// Either side may be absent for an open-ended range.
type dateRange struct {
	from    time.Time
	to      time.Time
	hasFrom bool
	hasTo   bool
}

func (r dateRange) contains(t time.Time) bool {
	if r.hasFrom && t.Before(r.from) {
		return false
	}
	if r.hasTo && !t.Before(r.to) {
		return false
	}
	return true
}

// resolveDateRange turns a date constraint into absolute bounds against the
// supplied reference time. Relative vocabulary ("@now", "@now-N" in days)
// resolves here, at evaluation time, so a stored query string yields fresh
// bounds on every run. Unparseable bounds leave their side open.
func resolveDateRange(n NamedNode, ref time.Time) dateRange {
	switch n.Op {
	case OpGreater:
		if b, ok := parseDateBound(n.Value, ref); ok {
			return dateRange{from: b.end, hasFrom: true}
		}
	case OpGreaterOrEqual:
		if b, ok := parseDateBound(n.Value, ref); ok {
			return dateRange{from: b.start, hasFrom: true}
		}
	case OpLess:
		if b, ok := parseDateBound(n.Value, ref); ok {
			return dateRange{to: b.start, hasTo: true}
		}
	case OpLessOrEqual:
		if b, ok := parseDateBound(n.Value, ref); ok {
			return dateRange{to: b.end, hasTo: true}
		}
	case OpRange:
		var r dateRange
		if b, ok := parseDateBound(n.Value, ref); ok {
			r.from = b.start
			r.hasFrom = true
		}
		if b, ok := parseDateBound(n.Upper, ref); ok {
			r.to = b.end
			r.hasTo = true
		}
		return r
	default: // exact date matches anywhere within the bound's span
		if b, ok := parseDateBound(n.Value, ref); ok {
			// Relative values and full timestamps resolve to an instant;
			// an exact match on an instant covers its whole day.
			if b.start.Equal(b.end) {
				y, m, d := b.start.Date()
				b.start = time.Date(y, m, d, 0, 0, 0, 0, b.start.Location())
				b.end = b.start.AddDate(0, 0, 1)
			}
			return dateRange{from: b.start, to: b.end, hasFrom: true, hasTo: true}
		}
	}
	return dateRange{}
}

// bound is one parsed date bound with the span it covers: a day-granular
// bound spans the whole day, an instant spans nothing.
type bound struct {
	start time.Time
	end   time.Time
}

func parseDateBound(s string, ref time.Time) (bound, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return bound{}, false
	}

	// relative vocabulary: @now, @now-N (days back from the reference time)
	if strings.HasPrefix(s, "@now") {
		rest := s[len("@now"):]
		t := ref
		if rest != "" {
			if !strings.HasPrefix(rest, "-") {
				return bound{}, false
			}
			days, err := strconv.Atoi(rest[1:])
			if err != nil {
				return bound{}, false
			}
			t = ref.AddDate(0, 0, -days)
		}
		return bound{start: t, end: t}, true
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return bound{start: t, end: t}, true
	}

	if t, err := time.ParseInLocation("2006-01-02", s, ref.Location()); err == nil {
		return bound{start: t, end: t.AddDate(0, 0, 1)}, true
	}

	return bound{}, false
}
