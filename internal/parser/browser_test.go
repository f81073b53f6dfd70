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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lens/internal/model"
)

func TestBrowserParser_FunctionComponent(t *testing.T) {
	src := []byte("export const Greeting = () => {\n  return <div>hi</div>;\n};\n")
	p := NewBrowserParser()
	res, err := p.ParseFile(FileInfo{Path: "Greeting.tsx", Content: src})
	require.NoError(t, err)

	fn, ok := nodeByID(res.Nodes, "Greeting.Greeting")
	require.True(t, ok)
	assert.Equal(t, true, fn.Metadata["react_component"])
}

func TestBrowserParser_ComponentUsageEdge(t *testing.T) {
	src := []byte("export const App = () => {\n  return <Greeting name=\"a\" />;\n};\n")
	p := NewBrowserParser()
	res, err := p.ParseFile(FileInfo{Path: "App.tsx", Content: src})
	require.NoError(t, err)

	found := false
	for _, e := range res.Edges {
		if e.Kind == model.EdgeUses && e.ToNode == "Greeting" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBrowserParser_ImportEdge(t *testing.T) {
	src := []byte("import { useState } from 'react';\nexport function App() { return useState; }\n")
	p := NewBrowserParser()
	res, err := p.ParseFile(FileInfo{Path: "app.ts", Content: src})
	require.NoError(t, err)

	found := false
	for _, e := range res.Edges {
		if e.Kind == model.EdgeImports && e.ToNode == "react" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBrowserParser_ClassMethod(t *testing.T) {
	src := []byte("class Service {\n  run() {\n    return 1;\n  }\n}\n")
	p := NewBrowserParser()
	res, err := p.ParseFile(FileInfo{Path: "service.ts", Content: src})
	require.NoError(t, err)

	_, ok := nodeByID(res.Nodes, "service.Service")
	require.True(t, ok)
	_, ok = nodeByID(res.Nodes, "service.Service.run")
	assert.True(t, ok)
}
