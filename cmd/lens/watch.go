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
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"lens/internal/errors"
	"lens/internal/ui"
	"lens/internal/watch"
)

// runWatch executes 'lens watch [path]': an ambient supplement to sync
// (spec §9) that keeps the graph store warm by running ensure_synced
// whenever the project tree settles after a burst of filesystem events,
// instead of requiring an explicit 'lens sync' after every edit.
func runWatch(args []string) {
	fs := pflag.NewFlagSet("watch", pflag.ExitOnError)
	debounce := fs.Duration("debounce", 500*time.Millisecond, "Quiet period after the last filesystem event before syncing")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, "Usage: lens watch [path]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitInput)
	}

	root := projectPath(fs.Args())
	s, uerr := openSession(root)
	if uerr != nil {
		errors.FatalError(uerr, false)
	}

	w, err := watch.New(root, *debounce)
	if err != nil {
		errors.FatalError(errors.NewInternalError("Cannot start filesystem watcher", err.Error(), "", err), false)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.Infof("Watching %s for changes (debounce %s); press Ctrl+C to stop", root, debounce.String())
	w.Start(ctx, func(ctx context.Context) error {
		report, err := s.EnsureSynced(ctx)
		if err != nil {
			return err
		}
		if report.Added+report.Modified+report.Deleted > 0 {
			ui.Successf("sync: +%d ~%d -%d", report.Added, report.Modified, report.Deleted)
		}
		return nil
	})

	<-ctx.Done()
	w.Stop()
}
