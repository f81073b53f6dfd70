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
	"lens/internal/session"
	"lens/internal/ui"
)

// runInit executes 'lens init [--force] [path]': creates a fresh .lens
// sidecar under path, optionally replacing one that already exists.
func runInit(args []string) {
	fs := pflag.NewFlagSet("init", pflag.ExitOnError)
	force := fs.Bool("force", false, "Replace an existing .lens sidecar")
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, "Usage: lens init [--force] [path]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitInput)
	}

	root := projectPath(fs.Args())

	if session.IsInitialized(root) {
		if !*force {
			errors.FatalError(errors.NewConfigError(
				"Project is already initialized",
				root+"/.lens already exists",
				"Pass --force to reinitialize, discarding the existing sidecar",
				nil,
			), *jsonOutput)
		}
		if err := os.RemoveAll(root + "/.lens"); err != nil {
			errors.FatalError(errors.NewPermissionError("Cannot remove existing sidecar", err.Error(), "Check filesystem permissions", err), *jsonOutput)
		}
	}

	if _, err := session.Init(root); err != nil {
		errors.FatalError(engineErrorToUser(root, err), *jsonOutput)
	}

	if *jsonOutput {
		_ = output.JSON(map[string]any{"ok": true, "project_root": root})
		return
	}
	ui.Successf("Initialized Lens sidecar in %s/.lens", root)
}
