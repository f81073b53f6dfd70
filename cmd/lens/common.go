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
	"path/filepath"

	"lens/internal/errors"
	"lens/internal/model"
	"lens/internal/session"
)

// projectPath returns the project root from the first positional argument,
// defaulting to the current directory when none is given.
func projectPath(args []string) string {
	if len(args) == 0 || args[0] == "" {
		return "."
	}
	return args[0]
}

// openSession opens an already-initialized project, translating the
// NotInitialized engine error into the UserError the CLI reports on.
func openSession(path string) (*session.Session, *errors.UserError) {
	s, err := session.Open(path)
	if err == nil {
		return s, nil
	}
	return nil, engineErrorToUser(path, err)
}

// engineErrorToUser maps a *model.EngineError (or a plain error) surfaced
// by the session/storage layers onto the CLI's UserError/exit-code
// vocabulary.
func engineErrorToUser(path string, err error) *errors.UserError {
	eerr, ok := err.(*model.EngineError)
	if !ok {
		return errors.NewInternalError("Unexpected error", err.Error(), "", err)
	}
	switch eerr.Kind {
	case model.ErrNotInitialized:
		abs, _ := filepath.Abs(path)
		return errors.NewConfigError(
			"Project is not initialized",
			"No .lens sidecar was found under "+abs,
			"Run 'lens init' in the project directory first",
			nil,
		)
	case model.ErrIOFailure:
		return errors.NewPermissionError("Cannot access the Lens sidecar", eerr.Error(), "Check filesystem permissions", eerr.Err)
	default:
		return errors.NewInternalError(eerr.Message, eerr.Error(), "", eerr)
	}
}
