// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package diff

import (
	"strings"
)

// FieldDefinition is a schema hint for rendering one field of a diffed
// entity: its display label, optional group and whether it is shown at all.
type FieldDefinition struct {
	Name   string
	Label  string
	Group  string
	Hidden bool
}

// SchemaHintProvider supplies ordered field definitions for an entity type
// tag, e.g. a content type's field definitions.
type SchemaHintProvider interface {
	FieldsFor(typeTag string) []FieldDefinition
}

// StaticSchema is a SchemaHintProvider backed by a fixed map. The zero value
// hints nothing, which renders every change under its raw field name.
type StaticSchema map[string][]FieldDefinition

// FieldsFor implements SchemaHintProvider.
func (s StaticSchema) FieldsFor(typeTag string) []FieldDefinition {
	return s[typeTag]
}

// GenerateDiffNodes transforms a raw change tree into a renderable sequence:
// schema-hinted fields come first in definition order with their labels
// applied and grouped fields merged under a shared parent; hidden fields are
// dropped; changes the schema doesn't mention follow in tree order under
// their raw names. It never introduces a change the structural diff did not
// find.
func GenerateDiffNodes(tree *Node, fields []FieldDefinition) []*Node {
	if tree == nil {
		return nil
	}

	remaining := make([]*Node, len(tree.Children))
	copy(remaining, tree.Children)

	take := func(name string) *Node {
		for i, n := range remaining {
			if n != nil && strings.EqualFold(n.Field, name) {
				remaining[i] = nil
				return n
			}
		}
		return nil
	}

	var out []*Node
	groups := make(map[string]*Node)

	for _, def := range fields {
		n := take(def.Name)
		if n == nil || def.Hidden {
			continue
		}
		labeled := *n
		labeled.Label = def.Label
		if labeled.Label == "" {
			labeled.Label = def.Name
		}

		if def.Group == "" {
			out = append(out, &labeled)
			continue
		}
		parent, ok := groups[def.Group]
		if !ok {
			parent = &Node{Field: def.Group, Label: def.Group, Kind: Modified}
			groups[def.Group] = parent
			out = append(out, parent)
		}
		parent.Children = append(parent.Children, &labeled)
	}

	for _, n := range remaining {
		if n == nil {
			continue
		}
		labeled := *n
		labeled.Label = n.Field
		out = append(out, &labeled)
	}

	return out
}
