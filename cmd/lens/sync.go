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
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"lens/internal/errors"
	"lens/internal/output"
	"lens/internal/session"
	"lens/internal/ui"
)

// runSync executes 'lens sync [--full] [path]': reconciles the graph
// store against the current filesystem state, full-reindexing when
// --full is passed and incrementally otherwise (C8 ensure_synced).
func runSync(args []string) {
	fs := pflag.NewFlagSet("sync", pflag.ExitOnError)
	full := fs.Bool("full", false, "Force a full reparse rather than an incremental sync")
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, "Usage: lens sync [--full] [path]\n\nOptions:\n")
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

	ctx := context.Background()
	var report *session.SyncReport
	var err error
	if *full {
		report, err = s.FullSync(ctx)
	} else {
		report, err = s.EnsureSynced(ctx)
	}
	if err != nil {
		errors.FatalError(engineErrorToUser(root, err), *jsonOutput)
	}

	if *jsonOutput {
		_ = output.JSON(report)
		return
	}
	ui.Successf("Synced %s: +%d ~%d -%d", root, report.Added, report.Modified, report.Deleted)
	if len(report.Failed) > 0 {
		ui.Warningf("%d file(s) failed to parse and were skipped:", len(report.Failed))
		for _, f := range report.Failed {
			fmt.Printf("  %s\n", ui.DimText(f))
		}
	}
}
