// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package diff computes structural differences between two snapshots of an
// audited entity and renders them as a tree of change nodes.
package diff

import (
	"strconv"

	"github.com/olegiv/ocms-audit/internal/model"
)

// ChangeKind classifies one node of a change tree.
type ChangeKind string

// Change kinds. Unchanged nodes are pruned from the tree and never appear
// in Compare output; the kind exists for consumers that re-merge trees with
// the full snapshot.
const (
	Added     ChangeKind = "Added"
	Removed   ChangeKind = "Removed"
	Modified  ChangeKind = "Modified"
	Unchanged ChangeKind = "Unchanged"
)

// Node is one node of a computed change tree. A node either carries old/new
// values (a leaf) or children (a container), never both. Unchanged fields are
// pruned; only changes are reported.
type Node struct {
	Path     string // full dotted field path
	Field    string // field name at this level
	Label    string // display label, set by GenerateDiffNodes
	Kind     ChangeKind
	Old      *model.Value
	New      *model.Value
	Children []*Node
}

// Leaf reports whether the node carries values rather than children.
func (n *Node) Leaf() bool { return len(n.Children) == 0 }

// Options tunes the structural comparison.
type Options struct {
	// Exclude lists top-level keys stripped from both snapshots before
	// comparing, e.g. internal bookkeeping fields.
	Exclude []string
	// IdentityKeys are the map keys, tried in order, that identify elements
	// of a list so they can be matched across snapshots. Defaults to
	// "ID", "Id", "id", "Name", "name".
	IdentityKeys []string
}

var defaultIdentityKeys = []string{"ID", "Id", "id", "Name", "name"}

func (o Options) identityKeys() []string {
	if len(o.IdentityKeys) > 0 {
		return o.IdentityKeys
	}
	return defaultIdentityKeys
}

// Compare walks two snapshots field by field and returns the root of the
// change tree, or nil when the snapshots are structurally identical. Inputs
// are assumed acyclic. A field present in only one snapshot becomes an
// Added or Removed leaf carrying the whole value; fields missing on either
// side never fail the comparison.
func Compare(previous, current *model.Data, opts Options) *Node {
	prev := previous
	cur := current
	if len(opts.Exclude) > 0 {
		prev = stripKeys(prev, opts.Exclude)
		cur = stripKeys(cur, opts.Exclude)
	}

	children := compareData("", prev, cur, opts)
	if len(children) == 0 {
		return nil
	}
	return &Node{Kind: Modified, Children: children}
}

func stripKeys(d *model.Data, exclude []string) *model.Data {
	if d == nil {
		return nil
	}
	out := d.Clone()
	for _, k := range exclude {
		out.Delete(k)
	}
	return out
}

// compareData returns change nodes for the union of keys in both bags:
// previous keys in order, then keys new in current.
func compareData(path string, prev, cur *model.Data, opts Options) []*Node {
	var nodes []*Node

	for _, key := range prev.Keys() {
		oldVal, _ := prev.Get(key)
		newVal, ok := cur.Get(key)
		if !ok {
			nodes = append(nodes, leaf(path, key, Removed, &oldVal, nil))
			continue
		}
		if n := compareValues(path, key, oldVal, newVal, opts); n != nil {
			nodes = append(nodes, n)
		}
	}

	for _, key := range cur.Keys() {
		if _, ok := prev.Get(key); ok {
			continue
		}
		newVal, _ := cur.Get(key)
		nodes = append(nodes, leaf(path, key, Added, nil, &newVal))
	}

	return nodes
}

func compareValues(path, key string, oldVal, newVal model.Value, opts Options) *Node {
	childPath := joinPath(path, key)

	// nested objects recurse and attach as children
	if oldVal.Kind() == model.KindMap && newVal.Kind() == model.KindMap {
		children := compareData(childPath, oldVal.MapVal(), newVal.MapVal(), opts)
		if len(children) == 0 {
			return nil
		}
		return &Node{Path: childPath, Field: key, Kind: Modified, Children: children}
	}

	if oldVal.Kind() == model.KindList && newVal.Kind() == model.KindList {
		children := compareLists(childPath, oldVal.ListVal(), newVal.ListVal(), opts)
		if len(children) == 0 {
			return nil
		}
		return &Node{Path: childPath, Field: key, Kind: Modified, Children: children}
	}

	if oldVal.Equal(newVal) {
		return nil
	}
	return leaf(path, key, Modified, &oldVal, &newVal)
}

// compareLists matches elements by identity key when every element on both
// sides exposes one, otherwise positionally by index.
func compareLists(path string, prev, cur []model.Value, opts Options) []*Node {
	prevIDs, prevOK := identityIndex(prev, opts)
	curIDs, curOK := identityIndex(cur, opts)

	if prevOK && curOK {
		var nodes []*Node
		for _, id := range curIDs.order {
			newVal := cur[curIDs.at[id]]
			oldIdx, existed := prevIDs.at[id]
			if !existed {
				v := newVal
				nodes = append(nodes, leaf(path, id, Added, nil, &v))
				continue
			}
			if n := compareValues(path, id, prev[oldIdx], newVal, opts); n != nil {
				nodes = append(nodes, n)
			}
		}
		for _, id := range prevIDs.order {
			if _, still := curIDs.at[id]; !still {
				v := prev[prevIDs.at[id]]
				nodes = append(nodes, leaf(path, id, Removed, &v, nil))
			}
		}
		return nodes
	}

	var nodes []*Node
	n := len(prev)
	if len(cur) > n {
		n = len(cur)
	}
	for i := 0; i < n; i++ {
		key := strconv.Itoa(i)
		switch {
		case i >= len(prev):
			v := cur[i]
			nodes = append(nodes, leaf(path, key, Added, nil, &v))
		case i >= len(cur):
			v := prev[i]
			nodes = append(nodes, leaf(path, key, Removed, &v, nil))
		default:
			if node := compareValues(path, key, prev[i], cur[i], opts); node != nil {
				nodes = append(nodes, node)
			}
		}
	}
	return nodes
}

// identitySet indexes list elements by their identity key value.
type identitySet struct {
	order []string
	at    map[string]int
}

// identityIndex returns an identity index when every element is a map
// exposing one of the identity keys with a distinct value.
func identityIndex(list []model.Value, opts Options) (identitySet, bool) {
	set := identitySet{at: make(map[string]int, len(list))}
	for i, el := range list {
		if el.Kind() != model.KindMap {
			return identitySet{}, false
		}
		id, ok := elementIdentity(el.MapVal(), opts.identityKeys())
		if !ok {
			return identitySet{}, false
		}
		if _, dup := set.at[id]; dup {
			return identitySet{}, false
		}
		set.order = append(set.order, id)
		set.at[id] = i
	}
	return set, true
}

func elementIdentity(d *model.Data, keys []string) (string, bool) {
	for _, k := range keys {
		if v, ok := d.Get(k); ok && v.IsScalar() {
			return v.Text(), true
		}
	}
	return "", false
}

func leaf(path, key string, kind ChangeKind, oldVal, newVal *model.Value) *Node {
	return &Node{
		Path:  joinPath(path, key),
		Field: key,
		Kind:  kind,
		Old:   oldVal,
		New:   newVal,
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// Flatten returns the tree's leaves in depth-first order. Convenient for
// tests and text rendering.
func Flatten(root *Node) []*Node {
	if root == nil {
		return nil
	}
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Leaf() {
			out = append(out, n)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, c := range root.Children {
		walk(c)
	}
	return out
}
