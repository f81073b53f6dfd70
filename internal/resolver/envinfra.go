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
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"lens/internal/model"
)

// EnvInfraResolver (R3) maps Docker Compose services, .env definitions,
// Dockerfile stages, code-level environment variable reads, and settings
// classes into env./infra. virtual nodes and uses_env/depends_on edges.
type EnvInfraResolver struct {
	// ComposeFiles maps a project-relative path of a Docker Compose file
	// (docker-compose*.yml, compose.yml) to its raw content; DotEnvFiles and
	// Dockerfiles do the same for .env files and Dockerfiles. The caller
	// reads all of them off disk.
	ComposeFiles map[string][]byte
	DotEnvFiles  map[string][]byte
	Dockerfiles  map[string][]byte
}

func (EnvInfraResolver) Name() string { return "env_infra" }

type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Image       string   `yaml:"image"`
	Build       any      `yaml:"build"`
	Ports       []string `yaml:"ports"`
	DependsOn   any      `yaml:"depends_on"`
	Environment any      `yaml:"environment"`
}

var (
	envOsEnvironRe   = regexp.MustCompile(`os\.environ(?:\.get)?\(?\[?["']?(\w+)["']?\]?\)?`)
	envGetenvRe      = regexp.MustCompile(`os\.getenv\(\s*["'](\w+)["']`)
	envBareEnvironRe = regexp.MustCompile(`\benviron\.get\(\s*["'](\w+)["']`)
	processEnvRe     = regexp.MustCompile(`process\.env\.(\w+)|process\.env\[["'](\w+)["']\]`)
	viteEnvRe        = regexp.MustCompile(`import\.meta\.env\.(\w+)`)

	settingsClassRe = regexp.MustCompile(`class\s+(\w+)\s*\(\s*(?:\w+\.)?BaseSettings\s*\)`)
	envPrefixRe     = regexp.MustCompile(`env_prefix\s*=\s*["'](\w+)["']`)
	fieldEnvRe      = regexp.MustCompile(`(\w+)\s*:\s*\w+.*?Field\([^)]*env\s*=\s*["'](\w+)["']`)
	typedAttrRe     = regexp.MustCompile(`(?m)^\s{4}(\w+)\s*:\s*(?:str|int|bool|float|Optional\[\w+\])\s*(?:=|$)`)
)

func (r EnvInfraResolver) Resolve(nodes []model.Node, edges []model.Edge) ([]model.Node, []model.Edge, error) {
	var newNodes []model.Node
	seen := edgeSeen{}
	var newEdges []model.Edge
	seenVirtual := map[string]bool{}

	ensureEnvNode := func(name string) string {
		id := model.PrefixEnvVar + name
		if !seenVirtual[id] {
			seenVirtual[id] = true
			newNodes = append(newNodes, model.Node{ID: id, Kind: model.KindVirtual, Name: name})
		}
		return id
	}

	for path, content := range r.ComposeFiles {
		var doc composeFile
		if err := yaml.Unmarshal(content, &doc); err != nil {
			continue
		}
		for name, svc := range doc.Services {
			id := model.PrefixInfraService + name
			env := composeEnvironment(svc.Environment)
			newNodes = append(newNodes, model.Node{ID: id, Kind: model.KindVirtual, Name: name, FilePath: path, Metadata: map[string]any{
				"image": svc.Image, "build": composeBuildSummary(svc.Build), "ports": svc.Ports, "environment": env,
			}})
			for _, dep := range composeDependsOn(svc.DependsOn) {
				emit(&newEdges, seen, id, model.PrefixInfraService+dep, model.EdgeDependsOn)
			}
			for envName := range env {
				emit(&newEdges, seen, id, ensureEnvNode(envName), model.EdgeUsesEnv)
			}
		}
	}

	for path, content := range r.DotEnvFiles {
		for _, name := range parseDotEnv(content) {
			id := ensureEnvNode(name)
			newNodes = append(newNodes, model.Node{ID: id + ".def", Kind: model.KindVirtual, Name: name, FilePath: path})
		}
	}

	for path, content := range r.Dockerfiles {
		parseDockerfile(path, content, &newNodes, &newEdges, seen)
	}

	for _, n := range nodes {
		if !n.IsCode() {
			continue
		}
		for _, re := range []*regexp.Regexp{envOsEnvironRe, envGetenvRe, envBareEnvironRe} {
			for _, m := range re.FindAllStringSubmatch(n.SourceCode, -1) {
				emit(&newEdges, seen, n.ID, ensureEnvNode(m[1]), model.EdgeUsesEnv)
			}
		}
		for _, m := range processEnvRe.FindAllStringSubmatch(n.SourceCode, -1) {
			name := m[1]
			if name == "" {
				name = m[2]
			}
			emit(&newEdges, seen, n.ID, ensureEnvNode(name), model.EdgeUsesEnv)
		}
		for _, m := range viteEnvRe.FindAllStringSubmatch(n.SourceCode, -1) {
			emit(&newEdges, seen, n.ID, ensureEnvNode(m[1]), model.EdgeUsesEnv)
		}

		if settingsClassRe.MatchString(n.SourceCode) {
			prefix := ""
			if m := envPrefixRe.FindStringSubmatch(n.SourceCode); m != nil {
				prefix = m[1]
			}
			overrides := map[string]string{}
			for _, m := range fieldEnvRe.FindAllStringSubmatch(n.SourceCode, -1) {
				overrides[m[1]] = m[2]
			}
			for _, m := range typedAttrRe.FindAllStringSubmatch(n.SourceCode, -1) {
				attr := m[1]
				name := strings.ToUpper(prefix + attr)
				if override, ok := overrides[attr]; ok {
					name = override
				}
				emit(&newEdges, seen, n.ID, ensureEnvNode(name), model.EdgeUsesEnv)
			}
		}
	}

	return newNodes, newEdges, nil
}

// composeEnvironment normalizes a Compose service's environment: block,
// which may be a list ("KEY=VALUE" or bare "KEY") or a map (KEY: VALUE).
func composeEnvironment(raw any) map[string]string {
	out := map[string]string{}
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if key, val, found := strings.Cut(s, "="); found {
				out[key] = val
			} else {
				out[s] = ""
			}
		}
	case map[string]any:
		for k, val := range v {
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out
}

// composeBuildSummary renders a Compose service's build: field (a bare
// context string, or a map with context/dockerfile keys) as a string.
func composeBuildSummary(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case map[string]any:
		ctx, _ := v["context"].(string)
		dockerfile, _ := v["dockerfile"].(string)
		if dockerfile != "" {
			return ctx + ":" + dockerfile
		}
		return ctx
	default:
		return ""
	}
}

func composeDependsOn(raw any) []string {
	switch v := raw.(type) {
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
		return out
	default:
		return nil
	}
}

var dotEnvLineRe = regexp.MustCompile(`^(?:export\s+)?([A-Za-z_][A-Za-z0-9_]*)\s*=`)

func parseDotEnv(content []byte) []string {
	var names []string
	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if m := dotEnvLineRe.FindStringSubmatch(line); m != nil {
			names = append(names, m[1])
		}
	}
	return names
}

var (
	dockerFromRe       = regexp.MustCompile(`(?i)^FROM\s+(\S+)(?:\s+AS\s+(\w+))?`)
	dockerCopyRe       = regexp.MustCompile(`(?i)^COPY\s+--from=(\S+)`)
	dockerExposeRe     = regexp.MustCompile(`(?i)^EXPOSE\s+(.+)$`)
	dockerEnvRe        = regexp.MustCompile(`(?i)^ENV\s+(\w+)(?:\s*=\s*|\s+)(\S.*)$`)
	dockerArgRe        = regexp.MustCompile(`(?i)^ARG\s+(\w+)(?:=(.*))?$`)
	dockerEntrypointRe = regexp.MustCompile(`(?i)^(?:ENTRYPOINT|CMD)\s+(.+)$`)
)

// parseDockerfile walks a Dockerfile's directives into the dockerfile
// node's metadata: every FROM stage's image/tag/alias, EXPOSE ports, ENV
// and ARG assignments, and the final ENTRYPOINT/CMD, plus depends_on
// edges for multi-stage COPY --from= references (spec §4.3 R3).
func parseDockerfile(path string, content []byte, nodes *[]model.Node, edges *[]model.Edge, seen edgeSeen) {
	name := strings.TrimPrefix(path, "/")
	id := model.PrefixInfraDockerfile + name

	var stages []map[string]any
	ports := []string{}
	env := map[string]string{}
	args := map[string]string{}
	var entrypoint string

	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case dockerFromRe.MatchString(line):
			m := dockerFromRe.FindStringSubmatch(line)
			image, tag := m[1], ""
			if i := strings.LastIndex(image, ":"); i >= 0 {
				image, tag = image[:i], image[i+1:]
			}
			stages = append(stages, map[string]any{"image": image, "tag": tag, "stage": m[2]})
		case dockerCopyRe.MatchString(line):
			m := dockerCopyRe.FindStringSubmatch(line)
			emit(edges, seen, id, id+"."+m[1], model.EdgeDependsOn)
		case dockerExposeRe.MatchString(line):
			m := dockerExposeRe.FindStringSubmatch(line)
			ports = append(ports, strings.Fields(m[1])...)
		case dockerEnvRe.MatchString(line):
			m := dockerEnvRe.FindStringSubmatch(line)
			env[m[1]] = strings.Trim(m[2], `"'`)
		case dockerArgRe.MatchString(line):
			m := dockerArgRe.FindStringSubmatch(line)
			args[m[1]] = m[2]
		case dockerEntrypointRe.MatchString(line):
			m := dockerEntrypointRe.FindStringSubmatch(line)
			entrypoint = strings.Trim(m[1], `"'`)
		}
	}

	*nodes = append(*nodes, model.Node{
		ID: id, Kind: model.KindVirtual, Name: name, FilePath: path,
		Metadata: map[string]any{
			"stages": stages, "ports": ports, "env": env, "args": args, "entrypoint": entrypoint,
		},
	})
}

var _ Resolver = EnvInfraResolver{}
