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

// FFIResolver (R4) detects native bridges across both language planes:
// ctypes/CFFI loads in scripting code, and native-module requires,
// koffi/ffi.Library, WASM instantiation, and child_process spawns in
// browser-plane code. Emits calls_native edges, deduped per (caller,
// target).
type FFIResolver struct{}

func (FFIResolver) Name() string { return "ffi" }

var (
	ctypesRe = regexp.MustCompile(`(?:ctypes\.(?:CDLL|WinDLL|OleDLL|PyDLL)|cdll\.LoadLibrary|windll\.LoadLibrary)\(\s*["']([^"']+)["']`)
	cffiRe   = regexp.MustCompile(`ffi\.dlopen\(\s*["']([^"']+)["']`)

	nodeNativeRequireRe = regexp.MustCompile(`require\(\s*["']([^"']+\.node)["']\s*\)`)
	nativeDirRe         = regexp.MustCompile(`require\(\s*["'](\.\./(?:natives|binding|addons?(?:/index)?))["']\s*\)`)
	koffiLoadRe         = regexp.MustCompile(`koffi\.load\(\s*["']([^"']+)["']`)
	ffiLibraryRe        = regexp.MustCompile(`ffi\.Library\(\s*["']([^"']+)["']`)
	wasmImportRe        = regexp.MustCompile(`["']([^"']+\.wasm)["']`)
	wasmInstantiateRe   = regexp.MustCompile(`WebAssembly\.instantiate(?:Streaming)?\(`)
	childProcessRe      = regexp.MustCompile(`(?:spawn|exec|execFile|fork)\(\s*["']([^"']+)["']`)
	bindingsRe          = regexp.MustCompile(`require\(\s*["']bindings["']\s*\)\(\s*["']([^"']+)["']`)
)

func (FFIResolver) Resolve(nodes []model.Node, edges []model.Edge) ([]model.Node, []model.Edge, error) {
	var newNodes []model.Node
	seenVirtual := map[string]bool{}
	seen := edgeSeen{}
	var newEdges []model.Edge

	ensure := func(bridgeType, name string) string {
		id := model.PrefixNative + bridgeType + "." + name
		if !seenVirtual[id] {
			seenVirtual[id] = true
			newNodes = append(newNodes, model.Node{ID: id, Kind: model.KindVirtual, Name: name, Metadata: map[string]any{"bridge_type": bridgeType}})
		}
		return id
	}

	for _, n := range nodes {
		if !n.IsCode() || isTestNode(n) {
			continue
		}
		body := n.SourceCode

		for _, m := range ctypesRe.FindAllStringSubmatch(body, -1) {
			emit(&newEdges, seen, n.ID, ensure("ctypes", m[1]), model.EdgeCallsNative)
		}
		for _, m := range cffiRe.FindAllStringSubmatch(body, -1) {
			emit(&newEdges, seen, n.ID, ensure("cffi", m[1]), model.EdgeCallsNative)
		}
		for _, m := range nodeNativeRequireRe.FindAllStringSubmatch(body, -1) {
			emit(&newEdges, seen, n.ID, ensure("node_addon", m[1]), model.EdgeCallsNative)
		}
		for _, m := range nativeDirRe.FindAllStringSubmatch(body, -1) {
			emit(&newEdges, seen, n.ID, ensure("node_addon", m[1]), model.EdgeCallsNative)
		}
		for _, m := range koffiLoadRe.FindAllStringSubmatch(body, -1) {
			emit(&newEdges, seen, n.ID, ensure("koffi", m[1]), model.EdgeCallsNative)
		}
		for _, m := range ffiLibraryRe.FindAllStringSubmatch(body, -1) {
			emit(&newEdges, seen, n.ID, ensure("ffi", m[1]), model.EdgeCallsNative)
		}
		if wasmInstantiateRe.MatchString(body) {
			for _, m := range wasmImportRe.FindAllStringSubmatch(body, -1) {
				emit(&newEdges, seen, n.ID, ensure("wasm", m[1]), model.EdgeCallsNative)
			}
		}
		if strings.Contains(body, "child_process") {
			for _, m := range childProcessRe.FindAllStringSubmatch(body, -1) {
				emit(&newEdges, seen, n.ID, ensure("child_process", m[1]), model.EdgeCallsNative)
			}
		}
		for _, m := range bindingsRe.FindAllStringSubmatch(body, -1) {
			emit(&newEdges, seen, n.ID, ensure("node_addon", m[1]), model.EdgeCallsNative)
		}
	}

	return newNodes, newEdges, nil
}

var _ Resolver = FFIResolver{}
