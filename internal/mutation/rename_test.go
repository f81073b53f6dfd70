// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package mutation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRename_UpdatesDeclarationAndCallers(t *testing.T) {
	s := newSyncedSession(t, map[string]string{
		"service.py": "def create_user(name):\n    return User(name)\n",
		"api.py":     "from service import create_user\ndef handler(name):\n    return create_user(name)\n",
	})

	result := Rename(context.Background(), s, "service.create_user", "register_user", "clearer name")
	require.True(t, result.OK)
	assert.Equal(t, "service.register_user", result.Data)

	g, err := s.Graph()
	require.NoError(t, err)
	assert.True(t, g.HasNode("service.register_user"))
	assert.Contains(t, g.Nodes["api.handler"].SourceCode, "register_user")
}

func TestRename_RejectsSameName(t *testing.T) {
	s := newSyncedSession(t, map[string]string{"service.py": "def create_user(name):\n    return User(name)\n"})
	result := Rename(context.Background(), s, "service.create_user", "create_user", "")
	assert.False(t, result.OK)
}
