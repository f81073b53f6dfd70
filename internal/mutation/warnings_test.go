// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lens/internal/arch"
	"lens/internal/graph"
	"lens/internal/model"
)

func TestHighImpactWarning_ThresholdsSeverity(t *testing.T) {
	var nodes []model.Node
	var edges []model.Edge
	nodes = append(nodes, model.Node{ID: "svc.target", Kind: model.KindFunction, Name: "target"})
	for i := 0; i < 11; i++ {
		callerID := "svc.caller" + string(rune('a'+i))
		nodes = append(nodes, model.Node{ID: callerID, Kind: model.KindFunction, Name: callerID})
		edges = append(edges, model.Edge{FromNode: callerID, ToNode: "svc.target", Kind: model.EdgeCalls, Confidence: model.ConfidenceResolved})
	}
	g := graph.Build(nodes, edges)

	warnings := highImpactWarning(g, "svc.target")
	assert.Len(t, warnings, 1)
	assert.Equal(t, model.WarnHighImpact, warnings[0].Kind)
}

func TestNoTestsWarning_FiresWithoutACaller(t *testing.T) {
	g := graph.Build([]model.Node{{ID: "svc.lonely", Kind: model.KindFunction, Name: "lonely"}}, nil)
	warnings := noTestsWarning(g, g.Nodes["svc.lonely"])
	assert.Len(t, warnings, 1)
	assert.Equal(t, model.WarnNoTests, warnings[0].Kind)
}

func TestNoTestsWarning_SilentWithTestCaller(t *testing.T) {
	nodes := []model.Node{
		{ID: "svc.target", Kind: model.KindFunction, Name: "target"},
		{ID: "tests.test_target", Kind: model.KindFunction, Name: "test_target", FilePath: "tests/test_svc.py"},
	}
	edges := []model.Edge{{FromNode: "tests.test_target", ToNode: "svc.target", Kind: model.EdgeCalls, Confidence: model.ConfidenceResolved}}
	g := graph.Build(nodes, edges)
	warnings := noTestsWarning(g, g.Nodes["svc.target"])
	assert.Empty(t, warnings)
}

func TestHardcodedSecretWarnings_DetectsAssignment(t *testing.T) {
	src := "def login():\n    api_key = 'sk-abc12345'\n    return api_key"
	warnings := hardcodedSecretWarnings("svc.login", src)
	assert.Len(t, warnings, 1)
	assert.Equal(t, model.WarnHardcodedSecret, warnings[0].Kind)
}

func TestHardcodedSecretWarnings_SilentWithoutLiteral(t *testing.T) {
	src := "def login(password):\n    return check(password)"
	warnings := hardcodedSecretWarnings("svc.login", src)
	assert.Empty(t, warnings)
}

func TestIOWithoutHandlingWarning_FiresWithoutTryExcept(t *testing.T) {
	src := "def read():\n    f = open('x.txt')\n    return f.read()"
	warnings := ioWithoutHandlingWarning("svc.read", src)
	assert.Len(t, warnings, 1)
	assert.Equal(t, model.WarnIOWithoutHandler, warnings[0].Kind)
}

func TestIOWithoutHandlingWarning_SilentWithTryExcept(t *testing.T) {
	src := "def read():\n    try:\n        f = open('x.txt')\n    except OSError:\n        return None"
	warnings := ioWithoutHandlingWarning("svc.read", src)
	assert.Empty(t, warnings)
}

func TestCircularDependencyWarning_FiresForCycleMember(t *testing.T) {
	nodes := []model.Node{
		{ID: "a", Kind: model.KindModule, Name: "a", FilePath: "a.py"},
		{ID: "b", Kind: model.KindModule, Name: "b", FilePath: "b.py"},
		{ID: "a.target", Kind: model.KindFunction, Name: "target", FilePath: "a.py"},
	}
	edges := []model.Edge{
		{FromNode: "a", ToNode: "b", Kind: model.EdgeImports, Confidence: model.ConfidenceResolved},
		{FromNode: "b", ToNode: "a", Kind: model.EdgeImports, Confidence: model.ConfidenceResolved},
	}
	g := graph.Build(nodes, edges)
	warnings := circularDependencyWarning(g, g.Nodes["a.target"])
	assert.Len(t, warnings, 1)
	assert.Equal(t, model.WarnCircularDep, warnings[0].Kind)
}

func TestRuleViolationWarnings_FiltersToNode(t *testing.T) {
	nodes := []model.Node{{ID: "svc.bad", Kind: model.KindFunction, Name: "bad", FilePath: "svc.py"}}
	g := graph.Build(nodes, nil)
	rules := []arch.Rule{{ID: "no-svc-py", Type: arch.RuleNoDependency, FromGlob: "svc.*", ToGlob: "other.*"}}
	warnings := ruleViolationWarnings(g, rules, arch.ComputeClassMetrics(g), "svc.bad")
	assert.Empty(t, warnings) // no matching edge exists, so no violation
}
