// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lens/internal/graph"
	"lens/internal/model"
)

func buildGraph(ids ...string) *graph.Graph {
	nodes := make([]model.Node, len(ids))
	for i, id := range ids {
		nodes[i] = model.Node{ID: id, Kind: model.KindFunction, Name: id, SourceCode: "x = 1"}
	}
	return graph.Build(nodes, nil)
}

func TestResolveNodeID_ExactMatch(t *testing.T) {
	g := buildGraph("backend.crawlers.func")
	id, err := ResolveNodeID(g, "backend.crawlers.func")
	assert.Nil(t, err)
	assert.Equal(t, "backend.crawlers.func", id)
}

func TestResolveNodeID_UniqueSuffixRewrites(t *testing.T) {
	g := buildGraph("backend.crawlers.func", "backend.other.thing")
	id, err := ResolveNodeID(g, "crawlers.func")
	assert.Nil(t, err)
	assert.Equal(t, "backend.crawlers.func", id)
}

func TestResolveNodeID_AmbiguousSuffixFails(t *testing.T) {
	g := buildGraph("backend.crawlers.func", "lib.crawlers.func")
	_, err := ResolveNodeID(g, "crawlers.func")
	assert.NotNil(t, err)
	assert.Equal(t, model.ErrAmbiguousNodeID, err.Kind)
	assert.ElementsMatch(t, []string{"backend.crawlers.func", "lib.crawlers.func"}, err.Candidates)
}

func TestResolveNodeID_NotFoundSuggestsCandidates(t *testing.T) {
	g := buildGraph("backend.crawlers.func")
	_, err := ResolveNodeID(g, "crawlerz.func")
	assert.NotNil(t, err)
	assert.Equal(t, model.ErrNodeNotFound, err.Kind)
}
