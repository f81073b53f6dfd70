// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"context"
	"fmt"
	"path/filepath"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// ValidateSyntax parses source with the grammar claiming path's extension
// and reports whether the resulting tree contains an ERROR node, without
// building nodes or edges. Used by the dry-run validate_change operation
// (syntactic validation only, per spec §4.7).
func ValidateSyntax(path string, source []byte) error {
	lang := grammarFor(filepath.Ext(path))
	if lang == nil {
		return fmt.Errorf("no grammar claims extension %q", filepath.Ext(path))
	}
	p := sitter.NewParser()
	p.SetLanguage(lang)
	tree, err := p.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()
	if tree.RootNode().HasError() {
		return fmt.Errorf("syntax error in %s", path)
	}
	return nil
}

func grammarFor(ext string) *sitter.Language {
	switch ext {
	case ".py":
		return python.GetLanguage()
	case ".ts":
		return typescript.GetLanguage()
	case ".tsx", ".jsx":
		return tsx.GetLanguage()
	case ".js":
		return typescript.GetLanguage()
	default:
		return nil
	}
}
