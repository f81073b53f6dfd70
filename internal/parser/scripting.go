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
	"github.com/smacker/go-tree-sitter/python"

	"lens/internal/model"
)

// ScriptingParser parses the dynamic scripting-language plane (Python
// grammar) into nodes and edges: modules, classes, functions, methods,
// module-level blocks, imports, calls, decoration, and inheritance.
type ScriptingParser struct {
	sitterParser *sitter.Parser
}

// NewScriptingParser constructs a parser bound to the Python tree-sitter
// grammar.
func NewScriptingParser() *ScriptingParser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &ScriptingParser{sitterParser: p}
}

func (p *ScriptingParser) FileExtensions() []string { return []string{".py"} }

// scriptingContext mirrors the scope-stack visitor context used to walk
// the tree: a running class-stack (for qualifying method ids), a table of
// simple names to ids for same-file call resolution, an import alias table
// for cross-file name resolution, and block-claim tracking so module-level
// statements not already claimed by a function/class are grouped into
// synthetic block nodes.
type scriptingContext struct {
	content     []byte
	filePath    string
	moduleID    string
	classStack  []string
	nameToID    map[string]string
	imports     *importTable
	claimedLine map[int]bool

	nodes []model.Node
	edges []model.Edge
}

// importTable implements the four local-name-resolution rules of spec
// §4.1: a direct "from M import X as Y" or "import M as Y" binds Y to a
// fully qualified target with resolved confidence; "from M import *"
// registers a wildcard source that any later unresolved name may defer to
// with inferred confidence.
type importTable struct {
	names map[string]string // local alias -> qualified target
	stars []string          // modules imported via "from M import *"
}

func newImportTable() *importTable {
	return &importTable{names: make(map[string]string)}
}

// bind records "import M as Y" / "from M import X as Y"; alias is the
// locally-visible name (the bare module/symbol name when there is no "as").
func (t *importTable) bind(alias, qualified string) {
	if alias == "" || qualified == "" {
		return
	}
	t.names[alias] = qualified
}

// addStar records "from M import *".
func (t *importTable) addStar(module string) {
	if module != "" {
		t.stars = append(t.stars, module)
	}
}

// resolve looks up a bare name against direct bindings first, falling back
// to the first star-import module per spec §4.1.
func (t *importTable) resolve(name string) (target string, conf model.Confidence, ok bool) {
	if q, found := t.names[name]; found {
		return q, model.ConfidenceResolved, true
	}
	if len(t.stars) > 0 {
		return t.stars[0] + "." + name, model.ConfidenceInferred, true
	}
	return "", "", false
}

// ParseFile parses a single Python source file.
func (p *ScriptingParser) ParseFile(file FileInfo) (*ParseResult, error) {
	tree, err := p.sitterParser.ParseCtx(context.Background(), nil, file.Content)
	if err != nil {
		return nil, fmt.Errorf("scripting parse %s: %w", file.Path, err)
	}
	defer tree.Close()

	moduleID := moduleIDForFile(file.Path, p.FileExtensions())
	ctx := &scriptingContext{
		content:     file.Content,
		filePath:    file.Path,
		moduleID:    moduleID,
		nameToID:    make(map[string]string),
		imports:     newImportTable(),
		claimedLine: make(map[int]bool),
	}

	ctx.nodes = append(ctx.nodes, model.Node{
		ID:       moduleID,
		Kind:     model.KindModule,
		Name:     moduleID,
		FilePath: file.Path,
	})

	root := tree.RootNode()
	p.walk(root, ctx)
	p.collectModuleBlock(root, ctx)

	return &ParseResult{Nodes: ctx.nodes, Edges: ctx.edges}, nil
}

// ResolveName always reports no match: same-file names are resolved during
// the walk through the context's name table, and cross-file names by the
// normalizer.
func (p *ScriptingParser) ResolveName(raw string) (string, bool) {
	return "", false
}

func (p *ScriptingParser) walk(node *sitter.Node, ctx *scriptingContext) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "class_definition":
		p.visitClass(node, ctx)
		return // visitClass recurses into the body itself
	case "function_definition":
		p.visitFunction(node, ctx)
		return
	case "import_statement", "import_from_statement":
		p.visitImport(node, ctx)
	case "decorated_definition":
		p.visitDecorated(node, ctx)
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.walk(node.Child(i), ctx)
	}
}

// visitDecorated walks a decorated_definition: emits decorates edges from
// each decorator to the definition it wraps, then descends into the
// wrapped definition.
func (p *ScriptingParser) visitDecorated(node *sitter.Node, ctx *scriptingContext) {
	var defNode *sitter.Node
	var decorators []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "decorator":
			decorators = append(decorators, child)
		case "function_definition", "class_definition":
			defNode = child
		}
	}
	if defNode == nil {
		for i := 0; i < int(node.ChildCount()); i++ {
			p.walk(node.Child(i), ctx)
		}
		return
	}

	beforeCount := len(ctx.nodes)
	if defNode.Type() == "class_definition" {
		p.visitClass(defNode, ctx)
	} else {
		p.visitFunction(defNode, ctx)
	}
	if len(ctx.nodes) <= beforeCount {
		return
	}
	target := ctx.nodes[beforeCount].ID

	for _, dec := range decorators {
		decoratorName := decoratorCallee(dec, ctx.content)
		if decoratorName == "" {
			continue
		}
		ctx.edges = append(ctx.edges, model.Edge{
			FromNode:   decoratorName,
			ToNode:     target,
			Kind:       model.EdgeDecorates,
			LineNumber: int(dec.StartPoint().Row) + 1,
			Confidence: model.ConfidenceInferred,
			Source:     model.SourceStatic,
		})
	}
}

// decoratorCallee extracts the dotted callee name from a decorator node,
// e.g. "@app.route(...)" -> "app.route", "@staticmethod" -> "staticmethod".
func decoratorCallee(dec *sitter.Node, content []byte) string {
	for i := 0; i < int(dec.ChildCount()); i++ {
		child := dec.Child(i)
		switch child.Type() {
		case "identifier", "attribute":
			return string(content[child.StartByte():child.EndByte()])
		case "call":
			fn := child.ChildByFieldName("function")
			if fn != nil {
				return string(content[fn.StartByte():fn.EndByte()])
			}
		}
	}
	return ""
}

func (p *ScriptingParser) visitClass(node *sitter.Node, ctx *scriptingContext) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := string(ctx.content[nameNode.StartByte():nameNode.EndByte()])
	id := qualify(ctx, name)

	classNode := model.Node{
		ID:            id,
		Kind:          model.KindClass,
		Name:          name,
		QualifiedName: id,
		FilePath:      ctx.filePath,
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
		SourceCode:    string(ctx.content[node.StartByte():node.EndByte()]),
		Docstring:     classDocstring(node, ctx.content),
	}
	classNode.EnsureHash()
	ctx.nodes = append(ctx.nodes, classNode)
	ctx.nameToID[name] = id
	markClaimed(node, ctx)

	for _, base := range classBases(node, ctx.content) {
		ctx.edges = append(ctx.edges, model.Edge{
			FromNode:   id,
			ToNode:     base,
			Kind:       model.EdgeInherits,
			Confidence: model.ConfidenceInferred,
			Source:     model.SourceStatic,
		})
	}

	ctx.classStack = append(ctx.classStack, name)
	body := node.ChildByFieldName("body")
	if body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			p.walk(body.Child(i), ctx)
		}
	}
	ctx.classStack = ctx.classStack[:len(ctx.classStack)-1]
}

func classBases(node *sitter.Node, content []byte) []string {
	argList := node.ChildByFieldName("superclasses")
	if argList == nil {
		return nil
	}
	var bases []string
	for i := 0; i < int(argList.ChildCount()); i++ {
		child := argList.Child(i)
		if child.Type() == "identifier" || child.Type() == "attribute" {
			bases = append(bases, string(content[child.StartByte():child.EndByte()]))
		}
	}
	return bases
}

func classDocstring(node *sitter.Node, content []byte) string {
	body := node.ChildByFieldName("body")
	return firstStringStatement(body, content)
}

func firstStringStatement(body *sitter.Node, content []byte) string {
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first.Type() != "expression_statement" || first.ChildCount() == 0 {
		return ""
	}
	expr := first.Child(0)
	if expr.Type() != "string" {
		return ""
	}
	return string(content[expr.StartByte():expr.EndByte()])
}

func (p *ScriptingParser) visitFunction(node *sitter.Node, ctx *scriptingContext) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := string(ctx.content[nameNode.StartByte():nameNode.EndByte()])
	id := qualify(ctx, name)

	kind := model.KindFunction
	if len(ctx.classStack) > 0 {
		kind = model.KindMethod
	}

	paramsNode := node.ChildByFieldName("parameters")
	var params string
	if paramsNode != nil {
		params = string(ctx.content[paramsNode.StartByte():paramsNode.EndByte()])
	}

	fn := model.Node{
		ID:            id,
		Kind:          kind,
		Name:          name,
		QualifiedName: id,
		FilePath:      ctx.filePath,
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
		SourceCode:    string(ctx.content[node.StartByte():node.EndByte()]),
		Signature:     "def " + name + params,
		Docstring:     firstStringStatement(node.ChildByFieldName("body"), ctx.content),
	}
	fn.EnsureHash()
	ctx.nodes = append(ctx.nodes, fn)
	ctx.nameToID[name] = id
	markClaimed(node, ctx)

	body := node.ChildByFieldName("body")
	p.walkCalls(body, ctx, id)
	p.walkNested(body, ctx)
}

// walkNested descends into a function body looking only for nested
// function/class definitions, so a closure defined inside another
// function becomes its own node without double-counting call edges
// (those are handled separately by walkCalls on the outer body).
func (p *ScriptingParser) walkNested(node *sitter.Node, ctx *scriptingContext) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "function_definition":
		p.visitFunction(node, ctx)
		return
	case "class_definition":
		p.visitClass(node, ctx)
		return
	case "decorated_definition":
		p.visitDecorated(node, ctx)
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		p.walkNested(node.Child(i), ctx)
	}
}

// dynamicCallNames is the built-in set of dynamic/untrackable constructs
// called out by spec §4.1: calling one of these by its bare name can
// invoke arbitrary code the parser cannot follow statically.
var dynamicCallNames = map[string]bool{
	"eval": true, "exec": true, "getattr": true,
	"setattr": true, "delattr": true, "globals": true, "locals": true,
}

// walkCalls finds call expressions within a function body and emits calls
// edges. Resolution order: the dynamic built-in set (unresolved, with a
// dynamic_* untracked reason), same-file simple names via ctx.nameToID
// (resolved), the import alias table (resolved, or inferred for a
// star-import fallback), and finally the reconstructed dotted name with
// inferred confidence per spec §4.1's "unknown" rule.
func (p *ScriptingParser) walkCalls(node *sitter.Node, ctx *scriptingContext, callerID string) {
	if node == nil {
		return
	}
	if node.Type() == "call" {
		fn := node.ChildByFieldName("function")
		if fn != nil {
			callee := calleeName(fn, ctx.content)
			if callee != "" {
				edge := model.Edge{
					FromNode:   callerID,
					Kind:       model.EdgeCalls,
					LineNumber: int(node.StartPoint().Row) + 1,
					Source:     model.SourceStatic,
				}
				resolvedID, sameFile := ctx.nameToID[callee]
				switch {
				case fn.Type() == "identifier" && dynamicCallNames[callee]:
					edge.ToNode = callee
					edge.Confidence = model.ConfidenceUnresolved
					edge.UntrackedReason = "dynamic_" + callee
				case sameFile:
					edge.ToNode = resolvedID
					edge.Confidence = model.ConfidenceResolved
				default:
					if target, conf, ok := ctx.imports.resolve(callee); ok {
						edge.ToNode = target
						edge.Confidence = conf
					} else {
						edge.ToNode = callee
						edge.Confidence = model.ConfidenceInferred
					}
				}
				ctx.edges = append(ctx.edges, edge)
			}
		}
	}
	// Don't descend into nested function/class bodies here; walkNested
	// handles those as separate caller scopes.
	if node.Type() == "function_definition" || node.Type() == "class_definition" {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		p.walkCalls(node.Child(i), ctx, callerID)
	}
}

func calleeName(node *sitter.Node, content []byte) string {
	switch node.Type() {
	case "identifier":
		return string(content[node.StartByte():node.EndByte()])
	case "attribute":
		return string(content[node.StartByte():node.EndByte()])
	default:
		return ""
	}
}

// visitImport dispatches a top-level or nested import statement to the
// plain or from-import handler and marks its lines claimed so it never
// falls into a synthetic module block.
func (p *ScriptingParser) visitImport(node *sitter.Node, ctx *scriptingContext) {
	switch node.Type() {
	case "import_statement":
		p.visitPlainImport(node, ctx)
	case "import_from_statement":
		p.visitFromImport(node, ctx)
	}
	markClaimed(node, ctx)
}

// visitPlainImport handles "import M" / "import M as Y": each imported
// name becomes a dotted_name child, or an aliased_import child for the
// "as" form. Per spec §4.1 rule 2, "import M as Y" binds Y -> M resolved.
func (p *ScriptingParser) visitPlainImport(node *sitter.Node, ctx *scriptingContext) {
	line := int(node.StartPoint().Row) + 1
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "dotted_name":
			module := string(ctx.content[child.StartByte():child.EndByte()])
			ctx.imports.bind(module, module)
			p.emitImportEdge(ctx, module, line)
		case "aliased_import":
			module, alias := aliasedParts(child, ctx.content)
			if module == "" {
				continue
			}
			if alias == "" {
				alias = module
			}
			ctx.imports.bind(alias, module)
			p.emitImportEdge(ctx, module, line)
		}
	}
}

// visitFromImport handles "from M import X", "from M import X as Y", and
// "from M import *", per spec §4.1 rules 1 and 3. The module name is the
// first dotted_name/relative_import child seen before the "import"
// keyword; every dotted_name/aliased_import/wildcard_import child after it
// is an imported symbol.
func (p *ScriptingParser) visitFromImport(node *sitter.Node, ctx *scriptingContext) {
	line := int(node.StartPoint().Row) + 1
	var module string
	afterImportKeyword := false
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "import":
			afterImportKeyword = true
		case "dotted_name", "relative_import":
			text := string(ctx.content[child.StartByte():child.EndByte()])
			if !afterImportKeyword {
				module = text
				continue
			}
			ctx.imports.bind(text, qualifyImport(module, text))
			p.emitFromImportEdge(ctx, module, text, line)
		case "aliased_import":
			if !afterImportKeyword {
				continue
			}
			name, alias := aliasedParts(child, ctx.content)
			if name == "" {
				continue
			}
			if alias == "" {
				alias = name
			}
			ctx.imports.bind(alias, qualifyImport(module, name))
			p.emitFromImportEdge(ctx, module, name, line)
		case "wildcard_import":
			ctx.imports.addStar(module)
		}
	}
}

// aliasedParts extracts the (name, alias) pair out of an aliased_import
// node ("X as Y"), where name is the dotted_name child's text and alias is
// the identifier child's text.
func aliasedParts(node *sitter.Node, content []byte) (name, alias string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "dotted_name":
			name = string(content[child.StartByte():child.EndByte()])
		case "identifier":
			alias = string(content[child.StartByte():child.EndByte()])
		}
	}
	return name, alias
}

func qualifyImport(module, name string) string {
	if module == "" {
		return name
	}
	return module + "." + name
}

func (p *ScriptingParser) emitImportEdge(ctx *scriptingContext, target string, line int) {
	ctx.edges = append(ctx.edges, model.Edge{
		FromNode:   ctx.moduleID,
		ToNode:     target,
		Kind:       model.EdgeImports,
		LineNumber: line,
		Confidence: model.ConfidenceInferred,
		Source:     model.SourceStatic,
	})
}

func (p *ScriptingParser) emitFromImportEdge(ctx *scriptingContext, module, name string, line int) {
	p.emitImportEdge(ctx, qualifyImport(module, name), line)
}

// blockStmt is one statement captured into a contiguous unclaimed run
// during collectModuleBlock.
type blockStmt struct {
	node  *sitter.Node
	start int
	end   int
}

// collectModuleBlock groups contiguous runs of top-level statements not
// already claimed by an import, function, or class into BLOCK nodes
// (spec §4.1), subclassifying each run as main_guard, conditional,
// type_aliases, constants, or statements, and promoting any `__all__`
// assignment's listed names into the block's all_exports metadata so
// entrypoints.Expand can treat them as entries (spec §4.5).
func (p *ScriptingParser) collectModuleBlock(root *sitter.Node, ctx *scriptingContext) {
	var run []blockStmt

	flush := func() {
		if len(run) == 0 {
			return
		}
		start, end := run[0].start, run[len(run)-1].end
		lines := make([]string, 0, len(run))
		for _, s := range run {
			lines = append(lines, string(ctx.content[s.node.StartByte():s.node.EndByte()]))
		}
		id := fmt.Sprintf("%s._block_%d", ctx.moduleID, start)
		block := model.Node{
			ID:            id,
			Kind:          model.KindBlock,
			Name:          blockName(run, ctx.content),
			QualifiedName: id,
			FilePath:      ctx.filePath,
			StartLine:     start,
			EndLine:       end,
			SourceCode:    strings.Join(lines, "\n"),
			Metadata:      map[string]any{"block_kind": classifyBlock(run, ctx.content)},
		}
		block.EnsureHash()
		if exports := allExportsFromRun(run, ctx); len(exports) > 0 {
			block.Metadata["all_exports"] = exports
		}
		ctx.nodes = append(ctx.nodes, block)
		run = nil
	}

	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "import_statement", "import_from_statement",
			"function_definition", "class_definition", "decorated_definition":
			flush()
			continue
		}
		line := int(child.StartPoint().Row) + 1
		end := int(child.EndPoint().Row) + 1
		claimed := false
		for l := line; l <= end; l++ {
			if ctx.claimedLine[l] {
				claimed = true
				break
			}
		}
		if claimed {
			flush()
			continue
		}
		run = append(run, blockStmt{node: child, start: line, end: end})
	}
	flush()
}

// classifyBlock subclassifies a contiguous statement run the way
// lenspr's original visitor does: a lone "if __name__ == ...:" is a
// main_guard, a lone "if" otherwise is conditional, and multi-statement
// runs are type_aliases/constants/statements depending on whether they
// contain annotated or plain assignments.
func classifyBlock(run []blockStmt, content []byte) string {
	if len(run) == 1 && run[0].node.Type() == "if_statement" {
		if cond := run[0].node.ChildByFieldName("condition"); cond != nil {
			if strings.Contains(string(content[cond.StartByte():cond.EndByte()]), "__name__") {
				return "main_guard"
			}
		}
		return "conditional"
	}
	hasAssign, hasAnnAssign := false, false
	for _, s := range run {
		assign := unwrapAssignment(s.node)
		if assign == nil {
			continue
		}
		if isAnnotatedAssignment(assign) {
			hasAnnAssign = true
		} else {
			hasAssign = true
		}
	}
	switch {
	case hasAnnAssign:
		return "type_aliases"
	case hasAssign:
		return "constants"
	default:
		return "statements"
	}
}

// blockName picks a descriptive name for a run: the single assignment
// target, "guard" for a lone if-statement, up to three assignment target
// names joined by commas, or a line-numbered fallback.
func blockName(run []blockStmt, content []byte) string {
	if len(run) == 1 {
		if assign := unwrapAssignment(run[0].node); assign != nil {
			if name, ok := assignedName(assign, content); ok {
				return name
			}
		}
		if run[0].node.Type() == "if_statement" {
			return "guard"
		}
	}
	var names []string
	for _, s := range run {
		if assign := unwrapAssignment(s.node); assign != nil {
			if name, ok := assignedName(assign, content); ok {
				names = append(names, name)
			}
		}
	}
	switch {
	case len(names) > 3:
		return strings.Join(names[:3], ", ") + "..."
	case len(names) > 0:
		return strings.Join(names, ", ")
	default:
		return fmt.Sprintf("block_%d", run[0].start)
	}
}

// allExportsFromRun finds a `__all__ = [...]` assignment within run and
// returns each listed string's fully-qualified node id.
func allExportsFromRun(run []blockStmt, ctx *scriptingContext) []string {
	for _, s := range run {
		assign := unwrapAssignment(s.node)
		if assign == nil {
			continue
		}
		name, ok := assignedName(assign, ctx.content)
		if !ok || name != "__all__" {
			continue
		}
		right := assign.ChildByFieldName("right")
		if right == nil {
			continue
		}
		return exportedNames(right, ctx)
	}
	return nil
}

func exportedNames(listNode *sitter.Node, ctx *scriptingContext) []string {
	var out []string
	for i := 0; i < int(listNode.ChildCount()); i++ {
		item := listNode.Child(i)
		if item.Type() != "string" {
			continue
		}
		raw := string(ctx.content[item.StartByte():item.EndByte()])
		name := strings.Trim(raw, `'"`)
		if name == "" {
			continue
		}
		out = append(out, ctx.moduleID+"."+name)
	}
	return out
}

// unwrapAssignment returns stmt's inner assignment node if stmt is a bare
// "expression_statement" wrapping one, or nil otherwise.
func unwrapAssignment(stmt *sitter.Node) *sitter.Node {
	if stmt.Type() != "expression_statement" || stmt.ChildCount() == 0 {
		return nil
	}
	inner := stmt.Child(0)
	if inner.Type() != "assignment" {
		return nil
	}
	return inner
}

func assignedName(assign *sitter.Node, content []byte) (string, bool) {
	left := assign.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return "", false
	}
	return string(content[left.StartByte():left.EndByte()]), true
}

func isAnnotatedAssignment(assign *sitter.Node) bool {
	return assign.ChildByFieldName("type") != nil
}

func markClaimed(node *sitter.Node, ctx *scriptingContext) {
	for line := int(node.StartPoint().Row) + 1; line <= int(node.EndPoint().Row)+1; line++ {
		ctx.claimedLine[line] = true
	}
}

func qualify(ctx *scriptingContext, name string) string {
	parts := make([]string, 0, len(ctx.classStack)+2)
	parts = append(parts, ctx.moduleID)
	parts = append(parts, ctx.classStack...)
	parts = append(parts, name)
	return strings.Join(parts, ".")
}

var _ LanguageParser = (*ScriptingParser)(nil)
