// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package arch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lens/internal/graph"
	"lens/internal/model"
)

func sampleGraph() *graph.Graph {
	nodes := []model.Node{
		{ID: "app", Kind: model.KindModule, Name: "app", FilePath: "app.py"},
		{ID: "app.Widget", Kind: model.KindClass, Name: "Widget", FilePath: "app.py", StartLine: 1, EndLine: 20},
		{ID: "app.Widget.render", Kind: model.KindMethod, Name: "render", FilePath: "app.py", StartLine: 2, EndLine: 5, Docstring: "renders it"},
		{ID: "app.Widget._helper", Kind: model.KindMethod, Name: "_helper", FilePath: "app.py", StartLine: 6, EndLine: 8},
		{ID: "util.format", Kind: model.KindFunction, Name: "format", FilePath: "util.py", StartLine: 1, EndLine: 3},
		{ID: "tests.test_widget.test_render", Kind: model.KindFunction, Name: "test_render", FilePath: "tests/test_widget.py", StartLine: 1, EndLine: 4},
	}
	edges := []model.Edge{
		{FromNode: "app.Widget.render", ToNode: "app.Widget._helper", Kind: model.EdgeCalls, Confidence: model.ConfidenceResolved, Source: model.SourceStatic},
		{FromNode: "app.Widget.render", ToNode: "util.format", Kind: model.EdgeCalls, Confidence: model.ConfidenceResolved, Source: model.SourceStatic},
		{FromNode: "tests.test_widget.test_render", ToNode: "app.Widget.render", Kind: model.EdgeCalls, Confidence: model.ConfidenceResolved, Source: model.SourceStatic},
	}
	return graph.Build(nodes, edges)
}

func TestComputeClassMetrics_CountsMethodsAndDependencies(t *testing.T) {
	g := sampleGraph()
	cm := ComputeClassMetrics(g)
	widget, ok := cm["app.Widget"]
	require.True(t, ok)

	assert.Equal(t, 2, widget.MethodCount)
	assert.Equal(t, 1, widget.PublicMethods)
	assert.Equal(t, 1, widget.PrivateMethods)
	assert.Equal(t, 1, widget.InternalCalls)
	assert.Equal(t, 1, widget.DependencyCount)
}

func TestComputeProjectMetrics_Aggregates(t *testing.T) {
	g := sampleGraph()
	cm := ComputeClassMetrics(g)
	pm := ComputeProjectMetrics(cm)
	assert.Equal(t, 1, pm.TotalClasses)
	assert.Equal(t, 2.0, pm.Avg)
}

func TestCheckMaxClassMethods_FlagsOverThreshold(t *testing.T) {
	g := sampleGraph()
	cm := ComputeClassMetrics(g)
	rules := []Rule{{ID: "r1", Type: RuleMaxClassMethods, Threshold: 1}}
	violations := Check(g, cm, rules)
	require.Len(t, violations, 1)
	assert.Equal(t, "app.Widget", violations[0].NodeID)
}

func TestCheckNoDependency_MatchesGlob(t *testing.T) {
	g := sampleGraph()
	rules := []Rule{{ID: "r2", Type: RuleNoDependency, FromGlob: "app.*", ToGlob: "util.*"}}
	violations := Check(g, nil, rules)
	require.Len(t, violations, 1)
	assert.Equal(t, "app.Widget.render", violations[0].NodeID)
}

func TestCheckRequiredTest_PassesWhenTestCallerExists(t *testing.T) {
	g := sampleGraph()
	rules := []Rule{{ID: "r3", Type: RuleRequiredTest, NameGlob: "render"}}
	violations := Check(g, nil, rules)
	assert.Empty(t, violations)
}

func TestComputeComponents_GroupsByDirectory(t *testing.T) {
	g := sampleGraph()
	components := ComputeComponents(g)
	root, ok := components["."]
	require.True(t, ok)
	assert.True(t, root.NodeCount >= 3)
}
