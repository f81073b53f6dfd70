// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package entrypoints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lens/internal/model"
)

func TestRegistry_Main(t *testing.T) {
	r := NewRegistry()
	n := model.Node{ID: "app.main", Kind: model.KindFunction, Name: "main"}
	cat, ok := r.Category(n)
	require.True(t, ok)
	assert.Equal(t, "main", cat)
}

func TestRegistry_TestsByNamePrefix(t *testing.T) {
	r := NewRegistry()
	n := model.Node{ID: "app.tests.test_user", Kind: model.KindFunction, Name: "test_user_creation"}
	assert.True(t, r.IsEntry(n))
}

func TestRegistry_WebFrameworkRoute(t *testing.T) {
	r := NewRegistry()
	n := model.Node{
		ID:         "app.views.list_users",
		Kind:       model.KindFunction,
		Name:       "list_users",
		SourceCode: "@app.route('/users')\ndef list_users():\n    ...",
	}
	cat, ok := r.Category(n)
	require.True(t, ok)
	assert.Equal(t, "web_framework_path", cat)
}

func TestRegistry_PrivateMethodNotDunder(t *testing.T) {
	r := NewRegistry()
	priv := model.Node{ID: "app.Service._helper", Kind: model.KindMethod, Name: "_helper"}
	dunder := model.Node{ID: "app.Service.__init__", Kind: model.KindMethod, Name: "__init__"}
	pub := model.Node{ID: "app.Service.process", Kind: model.KindMethod, Name: "process"}

	privCat, ok := r.Category(priv)
	require.True(t, ok)
	assert.Equal(t, "private_method", privCat)

	dunderCat, ok := r.Category(dunder)
	require.True(t, ok)
	assert.Equal(t, "dunder_method", dunderCat)

	assert.False(t, r.IsEntry(pub))
}

func TestExpand_DecoratesTarget(t *testing.T) {
	nodes := []model.Node{
		{ID: "app.router", Kind: model.KindFunction, Name: "router"},
		{ID: "app.handlers.on_create", Kind: model.KindFunction, Name: "on_create"},
	}
	edges := []model.Edge{
		{FromNode: "app.router", ToNode: "app.handlers.on_create", Kind: model.EdgeDecorates},
	}
	initial := map[string]bool{"app.router": true}

	out := Expand(nodes, edges, initial)
	assert.True(t, out["app.handlers.on_create"])
}

func TestExpand_AllExports(t *testing.T) {
	nodes := []model.Node{
		{ID: "app.pkg.__module__", Kind: model.KindBlock, Metadata: map[string]any{"all_exports": []string{"app.pkg.PublicThing"}}},
		{ID: "app.pkg.PublicThing", Kind: model.KindClass, Name: "PublicThing"},
	}
	out := Expand(nodes, nil, map[string]bool{})
	assert.True(t, out["app.pkg.PublicThing"])
}

func TestExpand_ClassMethodInheritsEntry(t *testing.T) {
	nodes := []model.Node{
		{ID: "app.Handler", Kind: model.KindClass, Name: "Handler", QualifiedName: "app.Handler"},
		{ID: "app.Handler.handle", Kind: model.KindMethod, Name: "handle", QualifiedName: "app.Handler.handle"},
	}
	out := Expand(nodes, nil, map[string]bool{"app.Handler": true})
	assert.True(t, out["app.Handler.handle"])
}

func TestExpand_NestedFunctionInheritsEntry(t *testing.T) {
	nodes := []model.Node{
		{ID: "app.main", Kind: model.KindFunction, Name: "main", QualifiedName: "app.main"},
		{ID: "app.main.inner", Kind: model.KindFunction, Name: "inner", QualifiedName: "app.main.inner"},
	}
	out := Expand(nodes, nil, map[string]bool{"app.main": true})
	assert.True(t, out["app.main.inner"])
}
