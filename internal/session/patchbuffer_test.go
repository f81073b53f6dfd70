// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lens/internal/model"
)

func TestPatchBuffer_FlushAppliesDeepestFirst(t *testing.T) {
	dir := t.TempDir()
	s, err := Init(dir)
	require.NoError(t, err)

	path := filepath.Join(dir, "app.py")
	content := "line1\nline2\nline3\nline4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s.Patches().Add(model.Patch{FilePath: "app.py", StartLine: 2, EndLine: 2, NewSource: "line2-replaced"})
	s.Patches().Add(model.Patch{FilePath: "app.py", StartLine: 4, EndLine: 4, NewSource: "line4-replaced"})

	require.NoError(t, s.Patches().Flush())

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2-replaced\nline3\nline4-replaced\n", string(out))
	assert.Equal(t, 0, s.Patches().Pending())
}

func TestPatchBuffer_FlushRollsBackOnFailure(t *testing.T) {
	dir := t.TempDir()
	s, err := Init(dir)
	require.NoError(t, err)

	okPath := filepath.Join(dir, "a_ok.py")
	original := "a\nb\nc\n"
	require.NoError(t, os.WriteFile(okPath, []byte(original), 0o644))

	s.Patches().Add(model.Patch{FilePath: "a_ok.py", StartLine: 2, EndLine: 2, NewSource: "B"})
	s.Patches().Add(model.Patch{FilePath: "z_missing.py", StartLine: 99, EndLine: 99, NewSource: "X"})

	err = s.Patches().Flush()
	require.Error(t, err)

	out, err := os.ReadFile(okPath)
	require.NoError(t, err)
	assert.Equal(t, original, string(out))
}
