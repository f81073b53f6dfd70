// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package mutation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lens/internal/model"
	"lens/internal/session"
)

func newSyncedSession(t *testing.T, files map[string]string) *session.Session {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	s, err := session.Init(dir)
	require.NoError(t, err)
	_, err = s.FullSync(context.Background())
	require.NoError(t, err)
	return s
}

const createUserSrc = "def create_user(name):\n    return User(name)\n"

func TestValidateChange_NeverWritesOrMutates(t *testing.T) {
	s := newSyncedSession(t, map[string]string{"service.py": createUserSrc})

	badSource := "def create_user(name):\n    return broken(\n"
	result := ValidateChange(s, "service.create_user", badSource)
	assert.False(t, result.OK)
	assert.Equal(t, model.ErrSyntaxInvalid, result.Error.Kind)

	on, err := os.ReadFile(filepath.Join(s.ProjectRoot, "service.py"))
	require.NoError(t, err)
	assert.Equal(t, createUserSrc, string(on))
}

func TestValidateChange_ReturnsImpactZoneAndWarnings(t *testing.T) {
	s := newSyncedSession(t, map[string]string{
		"service.py": createUserSrc,
		"api.py":     "from service import create_user\ndef handler():\n    return create_user('x')\n",
	})

	goodSource := "def create_user(name):\n    if not name:\n        raise ValueError('x')\n    return User(name)\n"
	result := ValidateChange(s, "service.create_user", goodSource)
	assert.True(t, result.OK)
}

func TestUpdateNode_AppliesAndReparses(t *testing.T) {
	s := newSyncedSession(t, map[string]string{"service.py": createUserSrc})

	newSource := "def create_user(name):\n    if not name:\n        raise ValueError('x')\n    return User(name)\n"
	result := UpdateNode(context.Background(), s, "service.create_user", newSource, "validate name")
	require.True(t, result.OK)
	assert.Equal(t, model.ComputeHash(newSource), result.Data.Hash)

	g, err := s.Graph()
	require.NoError(t, err)
	assert.Equal(t, newSource, g.Nodes["service.create_user"].SourceCode)
}

func TestPatchNode_RequiresExactlyOneOccurrence(t *testing.T) {
	s := newSyncedSession(t, map[string]string{"service.py": createUserSrc})

	result := PatchNode(context.Background(), s, "service.create_user", "return User(name)", "return User(name, active=True)", "")
	require.True(t, result.OK)

	g, err := s.Graph()
	require.NoError(t, err)
	assert.Contains(t, g.Nodes["service.create_user"].SourceCode, "active=True")
}

func TestPatchNode_FailsWhenFragmentMissing(t *testing.T) {
	s := newSyncedSession(t, map[string]string{"service.py": createUserSrc})

	result := PatchNode(context.Background(), s, "service.create_user", "nonexistent_fragment", "x", "")
	assert.False(t, result.OK)
	assert.Equal(t, model.ErrPatchConflict, result.Error.Kind)
}

func TestDeleteNode_RemovesSourceAndReparses(t *testing.T) {
	s := newSyncedSession(t, map[string]string{
		"service.py": createUserSrc + "\ndef other():\n    pass\n",
	})

	result := DeleteNode(context.Background(), s, "service.create_user", "dead code")
	require.True(t, result.OK)

	g, err := s.Graph()
	require.NoError(t, err)
	assert.False(t, g.HasNode("service.create_user"))
	assert.True(t, g.HasNode("service.other"))
}

func TestAddNode_InsertsAfterAnchorAndReparses(t *testing.T) {
	s := newSyncedSession(t, map[string]string{"service.py": createUserSrc})

	result := AddNode(context.Background(), s, "", "service.create_user", "def delete_user(name):\n    pass\n")
	require.True(t, result.OK)

	g, err := s.Graph()
	require.NoError(t, err)
	assert.True(t, g.HasNode("service.delete_user"))
}

func TestResolveNodeID_UnknownIDReturnsEngineError(t *testing.T) {
	s := newSyncedSession(t, map[string]string{"service.py": createUserSrc})
	g, err := s.Graph()
	require.NoError(t, err)
	_, eerr := ResolveNodeID(g, "service.nonexistent")
	assert.Equal(t, model.ErrNodeNotFound, eerr.Kind)
}
