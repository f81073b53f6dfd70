// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"lens/internal/model"
)

func TestGraphStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewGraphStore(filepath.Join(dir, "graph.db"))
	require.NoError(t, err)

	n := model.Node{
		ID:            "models.User",
		Kind:          model.KindClass,
		Name:          "User",
		QualifiedName: "models.User",
		FilePath:      "models.py",
		StartLine:     1,
		EndLine:       5,
		SourceCode:    "class User:\n    def greet(self):\n        return 'hi'\n",
		Metadata:      map[string]any{"bases": []string{}},
	}
	n.EnsureHash()

	e := model.Edge{
		FromNode:   "service.create_greeting",
		ToNode:     "models.User",
		Kind:       model.EdgeCalls,
		Confidence: model.ConfidenceResolved,
		Source:     model.SourceStatic,
	}

	fp := map[string]model.FileFingerprint{"models.py": {ModTime: 100, Size: 42}}

	require.NoError(t, store.ReplaceAll([]model.Node{n}, []model.Edge{e}, fp))

	gotNodes, gotEdges, gotFP, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, gotNodes, 1)
	require.Equal(t, n.ID, gotNodes[0].ID)
	require.Equal(t, n.Hash, gotNodes[0].Hash)
	require.Equal(t, model.ComputeHash(n.SourceCode), gotNodes[0].Hash)

	require.Len(t, gotEdges, 1)
	require.Equal(t, e.FromNode, gotEdges[0].FromNode)
	require.Equal(t, e.ToNode, gotEdges[0].ToNode)

	require.Equal(t, fp["models.py"], gotFP["models.py"])
}

func TestGraphStore_ReplaceFile_DropsOldEdges(t *testing.T) {
	dir := t.TempDir()
	store, err := NewGraphStore(filepath.Join(dir, "graph.db"))
	require.NoError(t, err)

	old := model.Node{ID: "a.old", Kind: model.KindFunction, FilePath: "a.py", Name: "old", SourceCode: "def old(): pass"}
	keep := model.Node{ID: "b.fn", Kind: model.KindFunction, FilePath: "b.py", Name: "fn", SourceCode: "def fn(): pass"}
	edge := model.Edge{FromNode: "b.fn", ToNode: "a.old", Kind: model.EdgeCalls, Confidence: model.ConfidenceInferred, Source: model.SourceStatic}

	require.NoError(t, store.ReplaceAll([]model.Node{old, keep}, []model.Edge{edge}, nil))

	fresh := model.Node{ID: "a.new", Kind: model.KindFunction, FilePath: "a.py", Name: "new", SourceCode: "def new(): pass"}
	require.NoError(t, store.ReplaceFile("a.py", []model.Node{fresh}, nil, model.FileFingerprint{ModTime: 1, Size: 1}))

	nodes, edges, _, err := store.LoadAll()
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, n := range nodes {
		ids[n.ID] = true
	}
	require.True(t, ids["a.new"])
	require.True(t, ids["b.fn"])
	require.False(t, ids["a.old"])
	require.Empty(t, edges) // stale edge touching a.old must be dropped
}

func TestHistoryStore_AppendOnly(t *testing.T) {
	dir := t.TempDir()
	hs, err := NewHistoryStore(filepath.Join(dir, "history.db"))
	require.NoError(t, err)

	id, err := hs.Append(model.ChangeRecord{NodeID: "service.create_user", Action: model.ActionModified, Reasoning: "added validation"})
	require.NoError(t, err)
	require.Positive(t, id)

	recs, err := hs.ForNode("service.create_user")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, model.ActionModified, recs[0].Action)
}

func TestResolveCacheStore_GetPut(t *testing.T) {
	dir := t.TempDir()
	rc, err := NewResolveCacheStore(filepath.Join(dir, "resolve_cache.db"))
	require.NoError(t, err)

	_, ok, err := rc.Get("lsp", "models.py:10:5")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, rc.Put("lsp", "models.py:10:5", `{"node_id":"models.User.greet"}`))
	val, ok, err := rc.Get("lsp", "models.py:10:5")
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, val, "models.User.greet")
}
