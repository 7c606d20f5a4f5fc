// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package filter

import (
	"strings"
)

// Field keys recognized by the parser. A key:value token with any other key
// is not an error; it degrades to a free-text term.
const (
	FieldID            = "id"
	FieldCategory      = "category"
	FieldEvent         = "event"
	FieldCorrelationID = "correlationid"
	FieldUserID        = "userid"
	FieldUserName      = "username"
	FieldDate          = "date"
)

var knownFields = map[string]struct{}{
	FieldID:            {},
	FieldCategory:      {},
	FieldEvent:         {},
	FieldCorrelationID: {},
	FieldUserID:        {},
	FieldUserName:      {},
	FieldDate:          {},
}

// Parse parses a query string into an ordered filter result. It never fails:
// malformed fragments become literal terms and an empty query yields an
// empty result that matches everything.
func Parse(text string) *Result {
	r := &Result{}
	for _, tok := range tokenize(text) {
		r.nodes = append(r.nodes, parseToken(tok))
	}
	return r
}

// ParseField parses one field value the way the query parser would, e.g.
// ParseField(FieldDate, ">@now-7"). Used to fold UI refinements into a
// filter result.
func ParseField(name, value string) NamedNode {
	return parseNamedValue(name, value)
}

// token is one raw whitespace-delimited unit, with quote handling applied.
type token struct {
	text   string // raw text, quotes stripped when quoted is set
	quoted bool   // token was entirely a quoted phrase
}

// tokenize splits on whitespace outside double quotes. An unterminated quote
// swallows the rest of the input rather than erroring.
func tokenize(text string) []token {
	var toks []token
	var cur strings.Builder
	inQuotes := false
	quotedOnly := false
	started := false

	flush := func() {
		if !started {
			return
		}
		toks = append(toks, token{text: cur.String(), quoted: quotedOnly})
		cur.Reset()
		started = false
		quotedOnly = false
	}

	for _, r := range text {
		switch {
		case r == '"':
			if !started {
				quotedOnly = true
			}
			started = true
			if inQuotes {
				inQuotes = false
			} else {
				inQuotes = true
				if cur.Len() > 0 {
					// quote opening mid-token, e.g. username:"bob smith"
					quotedOnly = false
					cur.WriteRune(r)
				}
				continue
			}
			if !quotedOnly {
				cur.WriteRune(r)
			}
		case !inQuotes && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush()
		default:
			started = true
			if !inQuotes && cur.Len() == 0 {
				quotedOnly = false
			}
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

// parseToken turns one raw token into a node. Only key:value tokens with a
// known key and a non-empty value become named nodes.
func parseToken(tok token) Node {
	if tok.quoted {
		return TermNode{Text: tok.text, Quoted: true}
	}

	colon := strings.IndexByte(tok.text, ':')
	if colon <= 0 || colon == len(tok.text)-1 {
		return TermNode{Text: tok.text}
	}

	key := tok.text[:colon]
	if _, ok := knownFields[strings.ToLower(key)]; !ok {
		return TermNode{Text: tok.text}
	}

	return parseNamedValue(key, tok.text[colon+1:])
}

func parseNamedValue(key, value string) NamedNode {
	n := NamedNode{Name: key}

	// quoted phrase value, e.g. username:"bob smith"
	if strings.HasPrefix(value, `"`) {
		n.Value = strings.TrimSuffix(strings.TrimPrefix(value, `"`), `"`)
		n.Quoted = true
		return n
	}

	// two-sided range, either bound may be missing
	if lower, upper, ok := strings.Cut(value, ".."); ok {
		n.Op = OpRange
		n.Value = lower
		n.Upper = upper
		return n
	}

	switch {
	case strings.HasPrefix(value, ">="):
		n.Op = OpGreaterOrEqual
		n.Value = value[2:]
	case strings.HasPrefix(value, "<="):
		n.Op = OpLessOrEqual
		n.Value = value[2:]
	case strings.HasPrefix(value, ">"):
		n.Op = OpGreater
		n.Value = value[1:]
	case strings.HasPrefix(value, "<"):
		n.Op = OpLess
		n.Value = value[1:]
	default:
		n.Value = value
	}
	return n
}
