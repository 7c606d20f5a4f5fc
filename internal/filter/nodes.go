// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package filter implements the admin search query language: a whitespace
// separated list of free-text terms and field:value constraints. Parsing is
// forgiving; anything malformed degrades to a free-text term instead of
// failing, and an unmodified parse renders back to the original text.
package filter

import (
	"strings"
)

// Op is the comparison applied by a named node to a range-capable field.
type Op uint8

// Comparison operators
const (
	OpEquals Op = iota
	OpGreater
	OpGreaterOrEqual
	OpLess
	OpLessOrEqual
	OpRange // two-sided inclusive range, value..upper
)

func (o Op) prefix() string {
	switch o {
	case OpGreater:
		return ">"
	case OpGreaterOrEqual:
		return ">="
	case OpLess:
		return "<"
	case OpLessOrEqual:
		return "<="
	default:
		return ""
	}
}

// Node is one parsed unit of a query: a free-text term or a field constraint.
type Node interface {
	// Field returns the lower-cased field key this node constrains, or ""
	// for free-text terms.
	Field() string
	// String renders the node back to its query text form.
	String() string
}

// TermNode is a bare token contributing to the full-text filter. Unrecognized
// field:value tokens are kept whole as terms so that nothing a user types is
// ever rejected.
type TermNode struct {
	Text   string
	Quoted bool
}

// Field implements Node.
func (n TermNode) Field() string { return "" }

// String implements Node.
func (n TermNode) String() string {
	if n.Quoted {
		return `"` + n.Text + `"`
	}
	return n.Text
}

// NamedNode is a field:value constraint. For OpRange the bounds live in
// Value and Upper; either may be empty for an open-ended range.
type NamedNode struct {
	Name   string // field key as typed
	Op     Op
	Value  string
	Upper  string
	Quoted bool // value was a quoted phrase
}

// NewNamedNode creates an exact-match constraint for a field. Used to inject
// derived constraints programmatically, e.g. a correlation id from routing
// context.
func NewNamedNode(name, value string) NamedNode {
	return NamedNode{Name: name, Value: value}
}

// Field implements Node.
func (n NamedNode) Field() string { return strings.ToLower(n.Name) }

// String implements Node.
func (n NamedNode) String() string {
	var sb strings.Builder
	sb.WriteString(n.Name)
	sb.WriteByte(':')
	if n.Op == OpRange {
		sb.WriteString(n.Value)
		sb.WriteString("..")
		sb.WriteString(n.Upper)
		return sb.String()
	}
	sb.WriteString(n.Op.prefix())
	if n.Quoted {
		sb.WriteByte('"')
		sb.WriteString(n.Value)
		sb.WriteByte('"')
	} else {
		sb.WriteString(n.Value)
	}
	return sb.String()
}

// Result is an ordered sequence of parsed filter nodes.
type Result struct {
	nodes []Node
}

// Nodes returns the nodes in token order.
func (r *Result) Nodes() []Node {
	if r == nil {
		return nil
	}
	return r.nodes
}

// String renders the whole filter back to query text. For an unmodified
// parse this reproduces the input up to whitespace normalization; for a
// modified result nodes render in their stable token order with appended
// nodes last.
func (r *Result) String() string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.nodes))
	for _, n := range r.nodes {
		parts = append(parts, n.String())
	}
	return strings.Join(parts, " ")
}

// TryAddOrReplace upserts a named node by its field key: the first node
// constraining the same field is replaced in place and any further ones are
// dropped, so injecting a constraint never produces duplicates. Nodes
// without a field key are appended. Idempotent.
func (r *Result) TryAddOrReplace(node Node) {
	field := node.Field()
	if field == "" {
		r.nodes = append(r.nodes, node)
		return
	}

	replaced := false
	kept := r.nodes[:0]
	for _, n := range r.nodes {
		if n.Field() == field {
			if !replaced {
				kept = append(kept, node)
				replaced = true
			}
			continue
		}
		kept = append(kept, n)
	}
	if !replaced {
		kept = append(kept, node)
	}
	r.nodes = kept
}

// Named returns the first named node constraining the given field key.
func (r *Result) Named(field string) (NamedNode, bool) {
	if r == nil {
		return NamedNode{}, false
	}
	field = strings.ToLower(field)
	for _, n := range r.nodes {
		if nn, ok := n.(NamedNode); ok && nn.Field() == field {
			return nn, true
		}
	}
	return NamedNode{}, false
}

// IsEmpty reports whether the filter has no nodes. An empty filter matches
// everything.
func (r *Result) IsEmpty() bool {
	return r == nil || len(r.nodes) == 0
}
