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
	"lens/internal/output"
	"lens/internal/ui"
)

// runSearch executes 'lens search <query> [path]': a substring scan over
// node name, qualified name, and file path.
func runSearch(args []string) {
	fs := pflag.NewFlagSet("search", pflag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	limit := fs.Int("limit", 20, "Maximum number of matches to print")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, "Usage: lens search <query> [path]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitInput)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		errors.FatalError(errors.NewInputError("Missing search query", "", "Usage: lens search <query> [path]"), *jsonOutput)
	}
	query := rest[0]
	root := projectPath(rest[1:])

	s, uerr := openSession(root)
	if uerr != nil {
		errors.FatalError(uerr, *jsonOutput)
	}
	g, err := s.Graph()
	if err != nil {
		errors.FatalError(engineErrorToUser(root, err), *jsonOutput)
	}

	matches := g.Search(query)

	if *jsonOutput {
		_ = output.JSON(matches)
		return
	}

	if len(matches) == 0 {
		ui.Warningf("No matches for %q", query)
		return
	}
	ui.Header(fmt.Sprintf("%d match(es) for %q", len(matches), query))
	for i, m := range matches {
		if i >= *limit {
			ui.Infof("... %d more match(es) not shown (--limit %d)", len(matches)-*limit, *limit)
			break
		}
		fmt.Printf("%s  %s  %s:%d\n", ui.Label(string(m.Node.Kind)), m.Node.ID, ui.DimText(m.Node.FilePath), m.Node.StartLine)
	}
}
