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
	"regexp"
	"strings"

	"lens/internal/model"
)

// APIResolver (R1) matches backend route definitions against frontend
// HTTP calls by method+path and emits calls_api edges.
type APIResolver struct{}

func (APIResolver) Name() string { return "api" }

var (
	backendDecoratorRe = regexp.MustCompile(`@\w+\.(get|post|put|delete|patch|head|options|route)\(\s*["']([^"']+)["']`)
	routerPrefixRe     = regexp.MustCompile(`(?:APIRouter|Blueprint)\(\s*(?:\w+\s*=\s*)?prefix\s*=\s*["']([^"']+)["']`)
	namedRouterRe      = regexp.MustCompile(`(\w+)\s*=\s*(?:APIRouter|Blueprint)\(\s*(?:\w+\s*=\s*)?prefix\s*=\s*["']([^"']+)["']`)
	includeRouterRe    = regexp.MustCompile(`(\w+)\.include_router\(\s*(\w+)(?:\s*,\s*prefix\s*=\s*["']([^"']+)["'])?`)

	fetchCallRe   = regexp.MustCompile(`fetch\(\s*[` + "`" + `"']([^` + "`" + `"']+)[` + "`" + `"']`)
	axiosCallRe   = regexp.MustCompile(`axios\.(get|post|put|delete|patch|head|options)\(\s*["` + "`" + `]([^"` + "`" + `]+)["` + "`" + `]`)
	clientCallRe  = regexp.MustCompile(`(?:this\.)?client\.(get|post|put|delete|patch|head|options)\(\s*["` + "`" + `]([^"` + "`" + `]+)["` + "`" + `]`)
	wrapperCallRe = regexp.MustCompile(`(?:apiRequest|fetchApi|request)\(\s*["` + "`" + `]([^"` + "`" + `]+)["` + "`" + `]`)
	appMountRe    = regexp.MustCompile(`(?:app|router|fastify|hono)\.(get|post|put|delete|patch|head|options)\(\s*["` + "`" + `]([^"` + "`" + `]+)["` + "`" + `]`)
	methodOptRe   = regexp.MustCompile(`method\s*:\s*['"](\w+)['"]`)
)

type apiEndpoint struct {
	method string
	path   string
	nodeID string
}

func (APIResolver) Resolve(nodes []model.Node, edges []model.Edge) ([]model.Node, []model.Edge, error) {
	moduleFile := map[string]string{}
	for _, n := range nodes {
		if n.Kind == model.KindModule {
			moduleFile[n.ID] = n.FilePath
		}
	}

	filePrefix := map[string]string{}  // file -> first/unnamed router's prefix
	namedPrefix := map[string]string{} // "file\x00var" -> that router's own prefix
	for _, n := range nodes {
		if !n.IsCode() || isTestNode(n) {
			continue
		}
		if filePrefix[n.FilePath] == "" {
			filePrefix[n.FilePath] = routerPrefix(n.SourceCode)
		}
		for _, m := range namedRouterRe.FindAllStringSubmatch(n.SourceCode, -1) {
			namedPrefix[n.FilePath+"\x00"+m[1]] = strings.TrimSuffix(m[2], "/")
		}
	}

	imports := map[string][]string{} // importing moduleID -> resolved import targets
	for _, e := range edges {
		if e.Kind == model.EdgeImports {
			imports[e.FromNode] = append(imports[e.FromNode], e.ToNode)
		}
	}
	moduleOfFile := map[string]string{}
	for moduleID, file := range moduleFile {
		moduleOfFile[file] = moduleID
	}

	// mountPrefixes[file] collects extra prefixes that file's own routes are
	// additionally reachable under via a cross-file include_router(sub, prefix=...)
	// mount, per spec §4.3 R1.
	mountPrefixes := map[string][]string{}
	for _, n := range nodes {
		if !n.IsCode() || isTestNode(n) {
			continue
		}
		for _, m := range includeRouterRe.FindAllStringSubmatch(n.SourceCode, -1) {
			mounterVar, subVar, callPrefix := m[1], m[2], strings.TrimSuffix(m[3], "/")
			mounterOwnPrefix := namedPrefix[n.FilePath+"\x00"+mounterVar]
			effective := mounterOwnPrefix + callPrefix

			targetFile := resolveImportedRouterFile(moduleOfFile[n.FilePath], subVar, imports, moduleFile)
			if targetFile == "" {
				continue
			}
			mountPrefixes[targetFile] = append(mountPrefixes[targetFile], effective)
		}
	}

	var backend []apiEndpoint
	var frontend []apiEndpoint

	for _, n := range nodes {
		if !n.IsCode() || isTestNode(n) {
			continue
		}
		prefix := filePrefix[n.FilePath]
		for _, m := range backendDecoratorRe.FindAllStringSubmatch(n.SourceCode, -1) {
			method := strings.ToUpper(m[1])
			if method == "ROUTE" {
				method = "ANY"
			}
			backend = append(backend, apiEndpoint{method: method, path: normalizePath(prefix + m[2]), nodeID: n.ID})
			for _, mount := range mountPrefixes[n.FilePath] {
				backend = append(backend, apiEndpoint{method: method, path: normalizePath(mount + prefix + m[2]), nodeID: n.ID})
			}
		}
		frontend = append(frontend, extractFrontendCalls(n)...)
	}

	seen := edgeSeen{}
	var newEdges []model.Edge
	for _, fe := range frontend {
		for _, be := range backend {
			if !pathMatches(fe.path, be.path) {
				continue
			}
			if !methodMatches(fe.method, be.method) {
				continue
			}
			e := model.Edge{
				FromNode:   fe.nodeID,
				ToNode:     be.nodeID,
				Kind:       model.EdgeCallsAPI,
				Confidence: model.ConfidenceInferred,
				Source:     model.SourceStatic,
				Metadata:   map[string]any{"path": be.path, "method": be.method},
			}
			if seen.claim(e) {
				newEdges = append(newEdges, e)
			}
		}
	}
	return nil, newEdges, nil
}

// resolveImportedRouterFile walks a single import hop: it looks for an
// import target brought into mounterModule whose final dotted segment
// matches subVar (e.g. "from routers.sub import router" records an import
// edge to "routers.sub.router", which include_router(router) matches), then
// maps the module portion of that target back to the file that defines it.
// Import edges carry the imported name, not a local alias, so a router
// mounted under an "as" alias is not matched.
func resolveImportedRouterFile(mounterModule, subVar string, imports map[string][]string, moduleFile map[string]string) string {
	for _, target := range imports[mounterModule] {
		if target != subVar && !strings.HasSuffix(target, "."+subVar) {
			continue
		}
		if file, ok := moduleFile[target]; ok {
			return file
		}
		if i := strings.LastIndex(target, "."); i >= 0 {
			if file, ok := moduleFile[target[:i]]; ok {
				return file
			}
		}
	}
	return ""
}

func routerPrefix(source string) string {
	m := routerPrefixRe.FindStringSubmatch(source)
	if m == nil {
		return ""
	}
	return strings.TrimSuffix(m[1], "/")
}

func extractFrontendCalls(n model.Node) []apiEndpoint {
	var out []apiEndpoint
	for _, m := range fetchCallRe.FindAllStringSubmatch(n.SourceCode, -1) {
		out = append(out, apiEndpoint{method: frontendMethod(n.SourceCode), path: normalizePath(m[1]), nodeID: n.ID})
	}
	for _, m := range axiosCallRe.FindAllStringSubmatch(n.SourceCode, -1) {
		out = append(out, apiEndpoint{method: strings.ToUpper(m[1]), path: normalizePath(m[2]), nodeID: n.ID})
	}
	for _, m := range clientCallRe.FindAllStringSubmatch(n.SourceCode, -1) {
		out = append(out, apiEndpoint{method: strings.ToUpper(m[1]), path: normalizePath(m[2]), nodeID: n.ID})
	}
	for _, m := range wrapperCallRe.FindAllStringSubmatch(n.SourceCode, -1) {
		out = append(out, apiEndpoint{method: frontendMethod(n.SourceCode), path: normalizePath(m[1]), nodeID: n.ID})
	}
	src := n.SourceCode
	for _, m := range appMountRe.FindAllStringSubmatchIndex(src, -1) {
		// A decorator such as @app.get("/x") is a backend route already
		// collected by backendDecoratorRe, not a registration call.
		start := m[0]
		for start > 0 && (src[start-1] == '_' || src[start-1] >= 'a' && src[start-1] <= 'z' ||
			src[start-1] >= 'A' && src[start-1] <= 'Z' || src[start-1] >= '0' && src[start-1] <= '9') {
			start--
		}
		if start > 0 && src[start-1] == '@' {
			continue
		}
		out = append(out, apiEndpoint{method: strings.ToUpper(src[m[2]:m[3]]), path: normalizePath(src[m[4]:m[5]]), nodeID: n.ID})
	}
	return out
}

func frontendMethod(source string) string {
	if m := methodOptRe.FindStringSubmatch(source); m != nil {
		return strings.ToUpper(m[1])
	}
	return "GET"
}

var pathParamRe = regexp.MustCompile(`\{[^}]+\}|\$\{[^}]+\}|:[A-Za-z_][A-Za-z0-9_]*`)

func normalizePath(path string) string {
	path = pathParamRe.ReplaceAllString(path, ":param")
	return strings.TrimSuffix(path, "/")
}

func pathMatches(a, b string) bool {
	as := strings.Split(strings.TrimPrefix(a, "/"), "/")
	bs := strings.Split(strings.TrimPrefix(b, "/"), "/")
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] == ":param" || bs[i] == ":param" {
			continue
		}
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func methodMatches(a, b string) bool {
	return a == "ANY" || b == "ANY" || a == b
}

func isTestNode(n model.Node) bool {
	return strings.HasPrefix(n.Name, "test_") || strings.Contains(n.FilePath, "tests/") || strings.Contains(n.FilePath, "test/")
}

var _ Resolver = APIResolver{}
