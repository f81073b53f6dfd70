// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lens/internal/model"
)

func TestSuffixIndex_UniqueRewrite(t *testing.T) {
	idx := BuildSuffixIndex([]string{"backend.crawlers.func", "backend.crawlers"})
	full, ok := idx.Lookup("crawlers.func")
	require.True(t, ok)
	assert.Equal(t, "backend.crawlers.func", full)
}

func TestSuffixIndex_Ambiguous(t *testing.T) {
	idx := BuildSuffixIndex([]string{"backend.crawlers.func", "lib.crawlers.func"})
	_, ok := idx.Lookup("crawlers.func")
	assert.False(t, ok)
	assert.True(t, idx.Ambiguous("crawlers.func"))
}

func TestNormalize_RewritesUniqueSuffix(t *testing.T) {
	nodes := []string{"backend.crawlers.func", "backend.main"}
	edges := []model.Edge{
		{FromNode: "backend.main", ToNode: "crawlers.func", Kind: model.EdgeCalls, Confidence: model.ConfidenceInferred},
	}
	out := Normalize(nodes, edges)
	require.Len(t, out, 1)
	assert.Equal(t, "backend.crawlers.func", out[0].ToNode)
}

func TestNormalize_AmbiguousStaysUnresolved(t *testing.T) {
	nodes := []string{"backend.crawlers.func", "lib.crawlers.func", "backend.main"}
	edges := []model.Edge{
		{FromNode: "backend.main", ToNode: "crawlers.func", Kind: model.EdgeCalls, Confidence: model.ConfidenceInferred},
	}
	out := Normalize(nodes, edges)
	require.Len(t, out, 1)
	assert.Equal(t, "crawlers.func", out[0].ToNode)
	assert.Equal(t, model.ConfidenceInferred, out[0].Confidence)
}

func TestNormalize_Idempotent(t *testing.T) {
	nodes := []string{"backend.crawlers.func", "backend.main"}
	edges := []model.Edge{
		{FromNode: "backend.main", ToNode: "crawlers.func", Kind: model.EdgeCalls, Confidence: model.ConfidenceInferred},
	}
	once := Normalize(nodes, edges)
	twice := Normalize(nodes, once)
	assert.Equal(t, once, twice)
}

func TestIsExternal(t *testing.T) {
	assert.True(t, IsExternal("os.environ"))
	assert.True(t, IsExternal("react.useState"))
	assert.False(t, IsExternal("backend.crawlers.func"))
}
