// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-audit/internal/model"
)

func changedTree(t *testing.T, fields ...string) *Node {
	t.Helper()
	prev := model.NewData()
	cur := model.NewData()
	for _, f := range fields {
		prev.Set(f, model.String("old "+f))
		cur.Set(f, model.String("new "+f))
	}
	root := Compare(prev, cur, Options{})
	require.NotNil(t, root)
	return root
}

func TestGenerateDiffNodes_SchemaOrderAndLabels(t *testing.T) {
	tree := changedTree(t, "Body", "Title")
	defs := []FieldDefinition{
		{Name: "Title", Label: "Display Title"},
		{Name: "Body", Label: "Body Text"},
	}

	nodes := GenerateDiffNodes(tree, defs)
	require.Len(t, nodes, 2)
	assert.Equal(t, "Display Title", nodes[0].Label)
	assert.Equal(t, "Body Text", nodes[1].Label)
	// tree order was Body, Title; definition order wins
	assert.Equal(t, "Title", nodes[0].Field)
}

func TestGenerateDiffNodes_EmptyLabelFallsBackToName(t *testing.T) {
	tree := changedTree(t, "Slug")
	nodes := GenerateDiffNodes(tree, []FieldDefinition{{Name: "Slug"}})
	require.Len(t, nodes, 1)
	assert.Equal(t, "Slug", nodes[0].Label)
}

func TestGenerateDiffNodes_HiddenDropped(t *testing.T) {
	tree := changedTree(t, "Title", "Secret")
	defs := []FieldDefinition{
		{Name: "Title", Label: "Title"},
		{Name: "Secret", Label: "Secret", Hidden: true},
	}

	nodes := GenerateDiffNodes(tree, defs)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Title", nodes[0].Field)
}

func TestGenerateDiffNodes_GroupsMerge(t *testing.T) {
	tree := changedTree(t, "MetaTitle", "MetaDescription", "Title")
	defs := []FieldDefinition{
		{Name: "Title", Label: "Title"},
		{Name: "MetaTitle", Label: "Meta Title", Group: "SEO"},
		{Name: "MetaDescription", Label: "Meta Description", Group: "SEO"},
	}

	nodes := GenerateDiffNodes(tree, defs)
	require.Len(t, nodes, 2)
	assert.Equal(t, "Title", nodes[0].Field)

	group := nodes[1]
	assert.Equal(t, "SEO", group.Label)
	require.Len(t, group.Children, 2)
	assert.Equal(t, "Meta Title", group.Children[0].Label)
	assert.Equal(t, "Meta Description", group.Children[1].Label)
}

func TestGenerateDiffNodes_UnhintedFollowInTreeOrder(t *testing.T) {
	tree := changedTree(t, "Extra1", "Title", "Extra2")
	nodes := GenerateDiffNodes(tree, []FieldDefinition{{Name: "Title", Label: "Title"}})

	require.Len(t, nodes, 3)
	assert.Equal(t, "Title", nodes[0].Field)
	assert.Equal(t, "Extra1", nodes[1].Field)
	assert.Equal(t, "Extra1", nodes[1].Label)
	assert.Equal(t, "Extra2", nodes[2].Field)
}

func TestGenerateDiffNodes_NeverFabricatesChanges(t *testing.T) {
	tree := changedTree(t, "Title")
	defs := []FieldDefinition{
		{Name: "Title", Label: "Title"},
		{Name: "Body", Label: "Body"}, // unchanged, not in tree
	}

	nodes := GenerateDiffNodes(tree, defs)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Title", nodes[0].Field)
}

func TestGenerateDiffNodes_CaseInsensitiveMatch(t *testing.T) {
	tree := changedTree(t, "title")
	nodes := GenerateDiffNodes(tree, []FieldDefinition{{Name: "Title", Label: "Title"}})
	require.Len(t, nodes, 1)
	assert.Equal(t, "Title", nodes[0].Label)
	assert.Equal(t, "title", nodes[0].Field)
}

func TestGenerateDiffNodes_NilTree(t *testing.T) {
	assert.Nil(t, GenerateDiffNodes(nil, []FieldDefinition{{Name: "Title"}}))
}

func TestStaticSchema_FieldsFor(t *testing.T) {
	s := StaticSchema{"article": {{Name: "Title"}}}
	assert.Len(t, s.FieldsFor("article"), 1)
	assert.Nil(t, s.FieldsFor("unknown"))
	assert.Nil(t, StaticSchema(nil).FieldsFor("article"))
}
