// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"lens/internal/arch"
	"lens/internal/config"
	"lens/internal/entrypoints"
	"lens/internal/errors"
	"lens/internal/model"
	"lens/internal/output"
	"lens/internal/ui"
)

// statusResult is the JSON shape of 'lens status'.
type statusResult struct {
	ProjectRoot     string              `json:"project_root"`
	LastSync        string              `json:"last_sync,omitempty"`
	Nodes           int                 `json:"nodes"`
	Edges           int                 `json:"edges"`
	NodesByKind     map[string]int      `json:"nodes_by_kind"`
	CircularImports int                 `json:"circular_imports"`
	Vibecheck       arch.Vibecheck      `json:"vibecheck"`
	ProjectMetrics  arch.ProjectMetrics `json:"project_metrics"`
}

// runStatus executes 'lens status [path]': reports graph size, circular
// imports, class metrics, and the aggregate vibecheck score.
func runStatus(args []string) {
	fs := pflag.NewFlagSet("status", pflag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, "Usage: lens status [path]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitInput)
	}

	root := projectPath(fs.Args())
	s, uerr := openSession(root)
	if uerr != nil {
		errors.FatalError(uerr, *jsonOutput)
	}

	g, err := s.Graph()
	if err != nil {
		errors.FatalError(engineErrorToUser(root, err), *jsonOutput)
	}

	cfg, err := config.Load(s.LensDir)
	if err != nil {
		errors.FatalError(errors.NewConfigError("Cannot read config.json", err.Error(), "", err), *jsonOutput)
	}
	rules, err := arch.LoadRules(s.LensDir)
	if err != nil {
		errors.FatalError(errors.NewConfigError("Cannot read arch_rules.json", err.Error(), "", err), *jsonOutput)
	}

	classMetrics := arch.ComputeClassMetrics(g)
	projectMetrics := arch.ComputeProjectMetrics(classMetrics)

	nodes := make([]model.Node, 0, len(g.Nodes))
	nodesByKind := map[string]int{}
	for _, n := range g.Nodes {
		nodes = append(nodes, n)
		nodesByKind[string(n.Kind)]++
	}
	reg := entrypoints.NewRegistry()
	entries := entrypoints.Expand(nodes, g.AllEdges(), reg.Classify(nodes))
	entryIDs := make([]string, 0, len(entries))
	for id := range entries {
		entryIDs = append(entryIDs, id)
	}

	vc := arch.ComputeVibecheck(g, entryIDs, rules, classMetrics, nil, time.Now())

	result := statusResult{
		ProjectRoot:     root,
		LastSync:        cfg.LastSync,
		Nodes:           len(g.Nodes),
		Edges:           len(g.AllEdges()),
		NodesByKind:     nodesByKind,
		CircularImports: len(g.CircularImports()),
		Vibecheck:       vc,
		ProjectMetrics:  projectMetrics,
	}

	if *jsonOutput {
		_ = output.JSON(result)
		return
	}

	ui.Header("Lens Project Status")
	fmt.Printf("%s %s\n", ui.Label("Project root:"), root)
	if result.LastSync != "" {
		fmt.Printf("%s %s\n", ui.Label("Last sync:"), result.LastSync)
	}
	fmt.Printf("%s %s\n", ui.Label("Nodes:"), ui.CountText(result.Nodes))
	fmt.Printf("%s %s\n", ui.Label("Edges:"), ui.CountText(result.Edges))
	for _, kind := range []string{"module", "class", "function", "method", "block", "virtual"} {
		if n := nodesByKind[kind]; n > 0 {
			fmt.Printf("  %-10s %s\n", kind, ui.CountText(n))
		}
	}
	fmt.Printf("%s %s\n", ui.Label("Circular imports:"), ui.CountText(result.CircularImports))
	fmt.Printf("%s %d (%s)\n", ui.Label("Vibecheck:"), vc.Score, vc.Grade)
}
