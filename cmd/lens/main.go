// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package main implements the Lens CLI: the external collaborator surface
// (spec §6) over the code-graph engine's session, mutation, graph, and
// architecture packages.
//
// Usage:
//
//	lens init [--force] [path]      Create a .lens sidecar
//	lens sync [--full] [path]       Sync the graph store with the filesystem
//	lens status [path]              Show project status and a vibecheck score
//	lens search <query> [path]      Search nodes by name, qualified name, or path
//	lens impact <node_id> [path]    Show the impact zone of a node
//	lens watch [path]               Watch the filesystem and sync on settle
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"lens/internal/errors"
	"lens/internal/ui"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	noColor := pflag.Bool("no-color", false, "Disable colored output")
	showVersion := pflag.BoolP("version", "v", false, "Show version and exit")
	pflag.Usage = usage
	pflag.Parse()

	ui.InitColors(*noColor)

	if *showVersion {
		fmt.Printf("lens version %s (%s)\n", version, commit)
		os.Exit(errors.ExitSuccess)
	}

	args := pflag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(errors.ExitInput)
	}

	command, cmdArgs := args[0], args[1:]

	switch command {
	case "init":
		runInit(cmdArgs)
	case "sync":
		runSync(cmdArgs)
	case "status":
		runStatus(cmdArgs)
	case "search":
		runSearch(cmdArgs)
	case "impact":
		runImpact(cmdArgs)
	case "watch":
		runWatch(cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		usage()
		os.Exit(errors.ExitInput)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Lens - polyglot code-graph intelligence CLI

Usage:
  lens <command> [options] [path]

Commands:
  init      Create a .lens sidecar in path (default: current directory)
  sync      Parse the project and refresh the graph store
  status    Show project status and a vibecheck quality score
  search    Search nodes by name, qualified name, or file path
  impact    Show the impact zone of a node id
  watch     Watch the filesystem and sync the graph store on settle

Global Options:
      --no-color   Disable colored output
  -v, --version    Show version and exit

Run 'lens <command> --help' for flags specific to a command.
`)
}
