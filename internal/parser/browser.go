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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"lens/internal/model"
)

// BrowserParser parses the TypeScript/TSX plane: modules, classes,
// functions (including arrow-function const bindings and React function
// components), methods, imports, calls, and JSX element usage edges.
type BrowserParser struct {
	tsParser  *sitter.Parser
	tsxParser *sitter.Parser
}

// NewBrowserParser constructs a parser bound to both the plain TypeScript
// grammar and the TSX grammar, dispatching on file extension.
func NewBrowserParser() *BrowserParser {
	ts := sitter.NewParser()
	ts.SetLanguage(typescript.GetLanguage())
	tx := sitter.NewParser()
	tx.SetLanguage(tsx.GetLanguage())
	return &BrowserParser{tsParser: ts, tsxParser: tx}
}

func (p *BrowserParser) FileExtensions() []string {
	return []string{".ts", ".tsx", ".js", ".jsx"}
}

type browserContext struct {
	content     []byte
	filePath    string
	moduleID    string
	classStack  []string
	nameToID    map[string]string
	claimedLine map[int]bool

	nodes []model.Node
	edges []model.Edge
}

// ParseFile parses a single TypeScript/TSX source file, choosing the TSX
// grammar for .tsx/.jsx files so JSX syntax parses correctly.
func (p *BrowserParser) ParseFile(file FileInfo) (*ParseResult, error) {
	sp := p.tsParser
	if strings.HasSuffix(file.Path, ".tsx") || strings.HasSuffix(file.Path, ".jsx") {
		sp = p.tsxParser
	}

	tree, err := sp.ParseCtx(context.Background(), nil, file.Content)
	if err != nil {
		return nil, fmt.Errorf("browser parse %s: %w", file.Path, err)
	}
	defer tree.Close()

	moduleID := moduleIDForFile(file.Path, p.FileExtensions())
	ctx := &browserContext{
		content:     file.Content,
		filePath:    file.Path,
		moduleID:    moduleID,
		nameToID:    make(map[string]string),
		claimedLine: make(map[int]bool),
	}
	ctx.nodes = append(ctx.nodes, model.Node{ID: moduleID, Kind: model.KindModule, Name: moduleID, FilePath: file.Path})

	root := tree.RootNode()
	p.walk(root, ctx)

	return &ParseResult{Nodes: ctx.nodes, Edges: ctx.edges}, nil
}

func (p *BrowserParser) ResolveName(raw string) (string, bool) { return "", false }

func (p *BrowserParser) walk(node *sitter.Node, ctx *browserContext) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "class_declaration":
		p.visitClass(node, ctx)
		return
	case "function_declaration":
		p.visitFunction(node, ctx, node.ChildByFieldName("name"), node.ChildByFieldName("body"))
		return
	case "lexical_declaration", "variable_declaration":
		if p.visitArrowBinding(node, ctx) {
			return
		}
	case "import_statement":
		p.visitImport(node, ctx)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.walk(node.Child(i), ctx)
	}
}

// visitArrowBinding handles "const Foo = (...) => {...}" and "const Foo =
// function(...) {...}" bindings, the idiomatic React-component and
// helper-function declaration form. Returns true if it claimed the node.
func (p *BrowserParser) visitArrowBinding(node *sitter.Node, ctx *browserContext) bool {
	claimed := false
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "variable_declarator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		valueNode := child.ChildByFieldName("value")
		if nameNode == nil || valueNode == nil {
			continue
		}
		if valueNode.Type() == "arrow_function" || valueNode.Type() == "function_expression" {
			p.visitFunction(node, ctx, nameNode, valueNode.ChildByFieldName("body"))
			claimed = true
		}
	}
	return claimed
}

func (p *BrowserParser) visitClass(node *sitter.Node, ctx *browserContext) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := string(ctx.content[nameNode.StartByte():nameNode.EndByte()])
	id := qualifyBrowser(ctx, name)

	classNode := model.Node{
		ID:            id,
		Kind:          model.KindClass,
		Name:          name,
		QualifiedName: id,
		FilePath:      ctx.filePath,
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
		SourceCode:    string(ctx.content[node.StartByte():node.EndByte()]),
	}
	classNode.EnsureHash()
	ctx.nodes = append(ctx.nodes, classNode)
	ctx.nameToID[name] = id
	markClaimedBrowser(node, ctx)

	if heritage := node.ChildByFieldName("heritage"); heritage != nil {
		for i := 0; i < int(heritage.ChildCount()); i++ {
			child := heritage.Child(i)
			if child.Type() == "identifier" {
				ctx.edges = append(ctx.edges, model.Edge{
					FromNode:   id,
					ToNode:     string(ctx.content[child.StartByte():child.EndByte()]),
					Kind:       model.EdgeInherits,
					Confidence: model.ConfidenceInferred,
					Source:     model.SourceStatic,
				})
			}
		}
	}

	ctx.classStack = append(ctx.classStack, name)
	body := node.ChildByFieldName("body")
	if body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			member := body.Child(i)
			if member.Type() == "method_definition" {
				mName := member.ChildByFieldName("name")
				p.visitFunction(member, ctx, mName, member.ChildByFieldName("body"))
			}
		}
	}
	ctx.classStack = ctx.classStack[:len(ctx.classStack)-1]
}

func (p *BrowserParser) visitFunction(declNode *sitter.Node, ctx *browserContext, nameNode, body *sitter.Node) {
	if nameNode == nil {
		return
	}
	name := string(ctx.content[nameNode.StartByte():nameNode.EndByte()])
	id := qualifyBrowser(ctx, name)

	kind := model.KindFunction
	if len(ctx.classStack) > 0 {
		kind = model.KindMethod
	}

	fn := model.Node{
		ID:            id,
		Kind:          kind,
		Name:          name,
		QualifiedName: id,
		FilePath:      ctx.filePath,
		StartLine:     int(declNode.StartPoint().Row) + 1,
		EndLine:       int(declNode.EndPoint().Row) + 1,
		SourceCode:    string(ctx.content[declNode.StartByte():declNode.EndByte()]),
		Metadata:      reactComponentMeta(body, ctx.content),
	}
	fn.EnsureHash()
	ctx.nodes = append(ctx.nodes, fn)
	ctx.nameToID[name] = id
	markClaimedBrowser(declNode, ctx)

	p.walkCalls(body, ctx, id)
}

// reactComponentMeta marks a function as a React component when its body
// contains a JSX element, the idiomatic discriminator since scripting
// functions and plain TS helpers never return JSX.
func reactComponentMeta(body *sitter.Node, content []byte) map[string]any {
	if containsJSX(body) {
		return map[string]any{"react_component": true}
	}
	return nil
}

func containsJSX(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	switch node.Type() {
	case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
		return true
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if containsJSX(node.Child(i)) {
			return true
		}
	}
	return false
}

func (p *BrowserParser) walkCalls(node *sitter.Node, ctx *browserContext, callerID string) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "call_expression":
		fn := node.ChildByFieldName("function")
		if fn != nil {
			callee := calleeNameBrowser(fn, ctx.content)
			if callee != "" {
				conf := model.ConfidenceUnresolved
				target := callee
				if resolved, ok := ctx.nameToID[callee]; ok {
					target = resolved
					conf = model.ConfidenceResolved
				}
				ctx.edges = append(ctx.edges, model.Edge{
					FromNode:   callerID,
					ToNode:     target,
					Kind:       model.EdgeCalls,
					LineNumber: int(node.StartPoint().Row) + 1,
					Confidence: conf,
					Source:     model.SourceStatic,
				})
			}
		}
	case "jsx_self_closing_element", "jsx_opening_element":
		tag := jsxTagName(node, ctx.content)
		if tag != "" && isComponentTag(tag) {
			ctx.edges = append(ctx.edges, model.Edge{
				FromNode:   callerID,
				ToNode:     tag,
				Kind:       model.EdgeUses,
				LineNumber: int(node.StartPoint().Row) + 1,
				Confidence: model.ConfidenceInferred,
				Source:     model.SourceStatic,
			})
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		p.walkCalls(node.Child(i), ctx, callerID)
	}
}

// isComponentTag reports whether a JSX tag names a custom component
// (PascalCase) rather than a lowercase intrinsic host element like "div".
func isComponentTag(tag string) bool {
	r := tag[0]
	return r >= 'A' && r <= 'Z'
}

func jsxTagName(node *sitter.Node, content []byte) string {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	return string(content[nameNode.StartByte():nameNode.EndByte()])
}

func calleeNameBrowser(node *sitter.Node, content []byte) string {
	switch node.Type() {
	case "identifier":
		return string(content[node.StartByte():node.EndByte()])
	case "member_expression":
		return string(content[node.StartByte():node.EndByte()])
	default:
		return ""
	}
}

func (p *BrowserParser) visitImport(node *sitter.Node, ctx *browserContext) {
	sourceNode := node.ChildByFieldName("source")
	if sourceNode == nil {
		return
	}
	target := strings.Trim(string(ctx.content[sourceNode.StartByte():sourceNode.EndByte()]), `"'`)
	ctx.edges = append(ctx.edges, model.Edge{
		FromNode:   ctx.moduleID,
		ToNode:     target,
		Kind:       model.EdgeImports,
		LineNumber: int(node.StartPoint().Row) + 1,
		Confidence: model.ConfidenceInferred,
		Source:     model.SourceStatic,
	})
	markClaimedBrowser(node, ctx)
}

func markClaimedBrowser(node *sitter.Node, ctx *browserContext) {
	for line := int(node.StartPoint().Row) + 1; line <= int(node.EndPoint().Row)+1; line++ {
		ctx.claimedLine[line] = true
	}
}

func qualifyBrowser(ctx *browserContext, name string) string {
	parts := make([]string, 0, len(ctx.classStack)+2)
	parts = append(parts, ctx.moduleID)
	parts = append(parts, ctx.classStack...)
	parts = append(parts, name)
	return strings.Join(parts, ".")
}

var _ LanguageParser = (*BrowserParser)(nil)
