// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"lens/internal/model"
)

// CIResolver (R5) reads GitHub Actions workflow files and emits workflow
// and job nodes, job dependency and action-use edges, and uses_env edges
// for secrets/env/vars references.
type CIResolver struct {
	// Workflows maps a workflow file's relative path to its content.
	Workflows map[string][]byte
}

func (CIResolver) Name() string { return "ci" }

type workflowDoc struct {
	Name string         `yaml:"name"`
	On   any            `yaml:"on"`
	Jobs map[string]job `yaml:"jobs"`
}

type job struct {
	Needs any               `yaml:"needs"`
	Steps []step            `yaml:"steps"`
	Env   map[string]string `yaml:"env"`
}

type step struct {
	Name string            `yaml:"name"`
	Uses string            `yaml:"uses"`
	Run  string            `yaml:"run"`
	Env  map[string]string `yaml:"env"`
}

var (
	secretRefRe = regexp.MustCompile(`secrets\.([A-Za-z_][A-Za-z0-9_]*)`)
	envVarRefRe = regexp.MustCompile(`(?:env|vars)\.([A-Za-z_][A-Za-z0-9_]*)`)
)

// workflowNameFromPath derives a workflow's id component from its file
// stem rather than the YAML name: field, so two workflows sharing a
// display name (or a name containing spaces) never collide.
func workflowNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (r CIResolver) Resolve(nodes []model.Node, edges []model.Edge) ([]model.Node, []model.Edge, error) {
	var newNodes []model.Node
	seen := edgeSeen{}
	var newEdges []model.Edge

	for path, content := range r.Workflows {
		var doc workflowDoc
		if err := yaml.Unmarshal(content, &doc); err != nil {
			continue
		}
		stem := workflowNameFromPath(path)
		displayName := doc.Name
		if displayName == "" {
			displayName = stem
		}
		triggers := triggerList(doc.On)
		workflowID := model.PrefixCIGithub + stem
		newNodes = append(newNodes, model.Node{
			ID:       workflowID,
			Kind:     model.KindVirtual,
			Name:     displayName,
			FilePath: path,
			Metadata: map[string]any{"triggers": triggers},
		})

		for jobName, j := range doc.Jobs {
			jobID := fmt.Sprintf("%s.%s", workflowID, jobName)
			newNodes = append(newNodes, model.Node{ID: jobID, Kind: model.KindVirtual, Name: jobName, FilePath: path})
			emit(&newEdges, seen, workflowID, jobID, model.EdgeDependsOn)

			for _, need := range needsList(j.Needs) {
				emit(&newEdges, seen, jobID, fmt.Sprintf("%s.%s", workflowID, need), model.EdgeDependsOn)
			}

			blockText := jobSourceText(j)
			for _, s := range j.Steps {
				if s.Uses != "" {
					action := strings.SplitN(s.Uses, "@", 2)[0]
					actionID := model.PrefixCIAction + action
					newNodes = append(newNodes, model.Node{ID: actionID, Kind: model.KindVirtual, Name: action})
					emit(&newEdges, seen, jobID, actionID, model.EdgeDependsOn)
				}
			}
			for _, m := range secretRefRe.FindAllStringSubmatch(blockText, -1) {
				envID := model.PrefixEnvSecret + m[1]
				newNodes = append(newNodes, model.Node{ID: envID, Kind: model.KindVirtual, Name: m[1]})
				emit(&newEdges, seen, jobID, envID, model.EdgeUsesEnv)
			}
			for _, m := range envVarRefRe.FindAllStringSubmatch(blockText, -1) {
				envID := model.PrefixEnvVar + m[1]
				newNodes = append(newNodes, model.Node{ID: envID, Kind: model.KindVirtual, Name: m[1]})
				emit(&newEdges, seen, jobID, envID, model.EdgeUsesEnv)
			}
		}
	}

	return newNodes, newEdges, nil
}

// triggerList normalizes the on: block (a bare string, a list, or a map
// of event name to config) into the event names it lists.
func triggerList(raw any) []string {
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case map[string]any:
		var out []string
		for k := range v {
			out = append(out, k)
		}
		sort.Strings(out)
		return out
	default:
		return nil
	}
}

func needsList(raw any) []string {
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func jobSourceText(j job) string {
	var b strings.Builder
	for _, v := range j.Env {
		b.WriteString(v)
		b.WriteString("\n")
	}
	for _, s := range j.Steps {
		b.WriteString(s.Name)
		b.WriteString("\n")
		b.WriteString(s.Uses)
		b.WriteString("\n")
		b.WriteString(s.Run)
		b.WriteString("\n")
		for _, v := range s.Env {
			b.WriteString(v)
			b.WriteString("\n")
		}
	}
	return b.String()
}

var _ Resolver = CIResolver{}
