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

	"github.com/spf13/pflag"

	"lens/internal/errors"
	"lens/internal/model"
	"lens/internal/mutation"
	"lens/internal/output"
	"lens/internal/ui"
)

// runImpact executes 'lens impact <node_id> [path]': resolves a possibly
// partial node id (same suffix-index lookup the mutation protocol uses)
// and prints its reverse-reachability impact zone.
func runImpact(args []string) {
	fs := pflag.NewFlagSet("impact", pflag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	depth := fs.Int("depth", 2, "Impact zone depth")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, "Usage: lens impact <node_id> [path]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitInput)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		errors.FatalError(errors.NewInputError("Missing node id", "", "Usage: lens impact <node_id> [path]"), *jsonOutput)
	}
	rawID := rest[0]
	root := projectPath(rest[1:])

	s, uerr := openSession(root)
	if uerr != nil {
		errors.FatalError(uerr, *jsonOutput)
	}
	g, err := s.Graph()
	if err != nil {
		errors.FatalError(engineErrorToUser(root, err), *jsonOutput)
	}

	id, eerr := mutation.ResolveNodeID(g, rawID)
	if eerr != nil {
		result := model.Err[any](eerr)
		if *jsonOutput {
			_ = output.JSON(result)
			os.Exit(errors.ExitInput)
		}
		ui.Errorf("%s", eerr.Error())
		if len(eerr.Candidates) > 0 {
			ui.Info("Did you mean:")
			for _, c := range eerr.Candidates {
				fmt.Printf("  %s\n", c)
			}
		}
		os.Exit(errors.ExitInput)
	}

	zone := g.ImpactZone(id, *depth)

	if *jsonOutput {
		_ = output.JSON(model.Ok(zone))
		return
	}

	ui.Header(fmt.Sprintf("Impact zone: %s (depth %d)", id, *depth))
	fmt.Printf("%s %s\n", ui.Label("Total affected:"), ui.CountText(zone.TotalAffected))
	if len(zone.Direct) > 0 {
		ui.SubHeader("Direct:")
		for _, d := range zone.Direct {
			fmt.Printf("  %s  %s\n", ui.DimText(string(d.Kind)), d.NodeID)
		}
	}
	if len(zone.Indirect) > 0 {
		ui.SubHeader("Indirect:")
		for _, id := range zone.Indirect {
			fmt.Printf("  %s\n", id)
		}
	}
	if len(zone.UntrackedWarnings) > 0 {
		ui.Warningf("%d untracked incoming edge(s):", len(zone.UntrackedWarnings))
		for _, w := range zone.UntrackedWarnings {
			fmt.Printf("  %s\n", w)
		}
	}
}
