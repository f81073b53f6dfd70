// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package mutation implements the safe-mutation protocol (C9): node-level
// update/patch/add/delete/rename/batch operations over a session's patch
// buffer, each preceded by proactive warnings computed from the graph and
// the proposed new source (high-impact fan-out, missing tests, circular
// dependency membership, hardcoded secrets, IO without error handling, and
// architecture-rule violations). Every operation returns the
// {ok, data, error, warnings, affected, diff} envelope from
// lens/internal/model; validate_change never writes to disk or mutates
// graph state, and batch applies all-or-nothing: every update is validated
// before anything is written, and a failed test re-run restores each
// touched file from a snapshot taken before the write.
package mutation
