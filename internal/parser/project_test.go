// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProject_DiscoversAndParsesInOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("def a():\n    pass\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.py"), []byte("def b():\n    pass\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.txt"), []byte("not code"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "skip.py"), []byte("def skip(): pass"), 0o644))

	reg := NewRegistry(NewScriptingParser(), NewBrowserParser())
	results, err := ParseProject(context.Background(), reg, dir)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, filepath.Join(dir, "a.py"), results[0].Path)
	assert.Equal(t, filepath.Join(dir, "b.py"), results[1].Path)

	nodes, _, failed := Flatten(results)
	assert.Empty(t, failed)
	assert.NotEmpty(t, nodes)
}

func TestFlatten_RecordsFailures(t *testing.T) {
	results := []FileResult{
		{Path: "ok.py", Result: &ParseResult{}},
		{Path: "bad.py", Err: assert.AnError},
	}
	_, _, failed := Flatten(results)
	assert.Equal(t, []string{"bad.py"}, failed)
}
