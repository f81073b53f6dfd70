// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lens/internal/model"
)

func TestOpen_NotInitializedReturnsEngineError(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir)
	require.Error(t, err)

	var engineErr *model.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, model.ErrNotInitialized, engineErr.Kind)
}

func TestInit_CreatesSidecarAndOpensSession(t *testing.T) {
	dir := t.TempDir()
	s, err := Init(dir)
	require.NoError(t, err)
	assert.True(t, IsInitialized(dir))
	assert.Equal(t, dir, s.ProjectRoot)

	_, err = Init(dir)
	require.Error(t, err)
}

func TestGraph_LazyAndCached(t *testing.T) {
	dir := t.TempDir()
	s, err := Init(dir)
	require.NoError(t, err)

	g1, err := s.Graph()
	require.NoError(t, err)
	assert.NotNil(t, g1)

	g2, err := s.Graph()
	require.NoError(t, err)
	assert.Same(t, g1, g2)

	s.Invalidate()
	g3, err := s.Graph()
	require.NoError(t, err)
	assert.NotSame(t, g1, g3)
}
