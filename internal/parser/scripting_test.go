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

func nodeByID(nodes []model.Node, id string) (model.Node, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
	}
	return model.Node{}, false
}

func TestScriptingParser_ClassAndMethod(t *testing.T) {
	src := []byte("class User:\n    def greet(self):\n        return 'hi'\n")
	p := NewScriptingParser()
	res, err := p.ParseFile(FileInfo{Path: "models.py", Content: src})
	require.NoError(t, err)

	cls, ok := nodeByID(res.Nodes, "models.User")
	require.True(t, ok)
	assert.Equal(t, model.KindClass, cls.Kind)

	method, ok := nodeByID(res.Nodes, "models.User.greet")
	require.True(t, ok)
	assert.Equal(t, model.KindMethod, method.Kind)
}

func TestScriptingParser_CrossFileCallResolvedViaImportTable(t *testing.T) {
	src := []byte("from models import User\ndef create_greeting(name):\n    u = User(name)\n    return u.greet()\n")
	p := NewScriptingParser()
	res, err := p.ParseFile(FileInfo{Path: "service.py", Content: src})
	require.NoError(t, err)

	var importEdge, callEdge *model.Edge
	for i := range res.Edges {
		switch {
		case res.Edges[i].Kind == model.EdgeImports:
			importEdge = &res.Edges[i]
		case res.Edges[i].Kind == model.EdgeCalls && res.Edges[i].ToNode == "models.User":
			callEdge = &res.Edges[i]
		}
	}
	require.NotNil(t, importEdge)
	assert.Equal(t, "models.User", importEdge.ToNode)

	require.NotNil(t, callEdge)
	assert.Equal(t, model.ConfidenceResolved, callEdge.Confidence)
}

func TestScriptingParser_DynamicCallUnresolved(t *testing.T) {
	src := []byte("def run(name):\n    return eval(name)\n")
	p := NewScriptingParser()
	res, err := p.ParseFile(FileInfo{Path: "app.py", Content: src})
	require.NoError(t, err)

	var callEdge *model.Edge
	for i := range res.Edges {
		if res.Edges[i].Kind == model.EdgeCalls {
			callEdge = &res.Edges[i]
		}
	}
	require.NotNil(t, callEdge)
	assert.Equal(t, model.ConfidenceUnresolved, callEdge.Confidence)
	assert.Equal(t, "dynamic_eval", callEdge.UntrackedReason)
}

func TestScriptingParser_UnknownCallInferred(t *testing.T) {
	src := []byte("def run():\n    return helper()\n")
	p := NewScriptingParser()
	res, err := p.ParseFile(FileInfo{Path: "app.py", Content: src})
	require.NoError(t, err)

	var callEdge *model.Edge
	for i := range res.Edges {
		if res.Edges[i].Kind == model.EdgeCalls {
			callEdge = &res.Edges[i]
		}
	}
	require.NotNil(t, callEdge)
	assert.Equal(t, model.ConfidenceInferred, callEdge.Confidence)
}

func TestScriptingParser_FromImportAliasResolvesCall(t *testing.T) {
	src := []byte("from models import Service as Svc\ndef run():\n    return Svc()\n")
	p := NewScriptingParser()
	res, err := p.ParseFile(FileInfo{Path: "app.py", Content: src})
	require.NoError(t, err)

	var callEdge *model.Edge
	for i := range res.Edges {
		if res.Edges[i].Kind == model.EdgeCalls {
			callEdge = &res.Edges[i]
		}
	}
	require.NotNil(t, callEdge)
	assert.Equal(t, "models.Service", callEdge.ToNode)
	assert.Equal(t, model.ConfidenceResolved, callEdge.Confidence)
}

func TestScriptingParser_StarImportInfersCall(t *testing.T) {
	src := []byte("from utils import *\ndef run():\n    return helper()\n")
	p := NewScriptingParser()
	res, err := p.ParseFile(FileInfo{Path: "app.py", Content: src})
	require.NoError(t, err)

	var callEdge *model.Edge
	for i := range res.Edges {
		if res.Edges[i].Kind == model.EdgeCalls {
			callEdge = &res.Edges[i]
		}
	}
	require.NotNil(t, callEdge)
	assert.Equal(t, "utils.helper", callEdge.ToNode)
	assert.Equal(t, model.ConfidenceInferred, callEdge.Confidence)
}

func TestScriptingParser_Inheritance(t *testing.T) {
	src := []byte("class Base:\n    pass\n\nclass Settings(Base):\n    pass\n")
	p := NewScriptingParser()
	res, err := p.ParseFile(FileInfo{Path: "settings.py", Content: src})
	require.NoError(t, err)

	found := false
	for _, e := range res.Edges {
		if e.Kind == model.EdgeInherits && e.FromNode == "settings.Settings" && e.ToNode == "Base" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestScriptingParser_Decorator(t *testing.T) {
	src := []byte("@app.route('/users')\ndef list_users():\n    pass\n")
	p := NewScriptingParser()
	res, err := p.ParseFile(FileInfo{Path: "views.py", Content: src})
	require.NoError(t, err)

	found := false
	for _, e := range res.Edges {
		if e.Kind == model.EdgeDecorates && e.FromNode == "app.route" {
			found = true
			assert.Equal(t, "views.list_users", e.ToNode)
		}
	}
	assert.True(t, found)
}

func TestScriptingParser_ModuleLevelBlock(t *testing.T) {
	src := []byte("import os\n\napp = create_app()\napp.run()\n")
	p := NewScriptingParser()
	res, err := p.ParseFile(FileInfo{Path: "app.py", Content: src})
	require.NoError(t, err)

	block, ok := nodeByID(res.Nodes, "app._block_3")
	require.True(t, ok)
	assert.Equal(t, "constants", block.Metadata["block_kind"])
}

func TestScriptingParser_MainGuardBlock(t *testing.T) {
	src := []byte("def main():\n    pass\n\nif __name__ == '__main__':\n    main()\n")
	p := NewScriptingParser()
	res, err := p.ParseFile(FileInfo{Path: "app.py", Content: src})
	require.NoError(t, err)

	block, ok := nodeByID(res.Nodes, "app._block_4")
	require.True(t, ok)
	assert.Equal(t, "main_guard", block.Metadata["block_kind"])
}

func TestScriptingParser_AllExportsPromotesMetadata(t *testing.T) {
	src := []byte("class PublicThing:\n    pass\n\n__all__ = ['PublicThing']\n")
	p := NewScriptingParser()
	res, err := p.ParseFile(FileInfo{Path: "pkg.py", Content: src})
	require.NoError(t, err)

	block, ok := nodeByID(res.Nodes, "pkg._block_4")
	require.True(t, ok)
	exports, ok := block.Metadata["all_exports"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"pkg.PublicThing"}, exports)
}
