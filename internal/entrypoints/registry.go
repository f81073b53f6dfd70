// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package entrypoints implements the declarative entry-point pattern table
// (C7) that drives dead-code reachability seeding.
package entrypoints

import (
	"strings"

	"lens/internal/model"
)

// Field is the node attribute a pattern inspects.
type Field string

const (
	FieldName       Field = "name"
	FieldFilePath   Field = "file_path"
	FieldSourceCode Field = "source_code"
	FieldType       Field = "type" // node kind, as a string
)

// MatchOp is the comparison a pattern applies between a node field and its
// value tuple.
type MatchOp string

const (
	OpExact    MatchOp = "EXACT"
	OpPrefix   MatchOp = "PREFIX"
	OpSuffix   MatchOp = "SUFFIX"
	OpContains MatchOp = "CONTAINS"
)

// Pattern is one row of the declarative entry-point table.
type Pattern struct {
	Category  string
	Field     Field
	Op        MatchOp
	Values    []string // OR-ed
	NodeKinds []model.NodeKind
}

// Predicate is a custom-match function for patterns that don't fit the
// declarative (field, op, values) grammar.
type Predicate struct {
	Category string
	Match    func(model.Node) bool
}

func fieldValue(n model.Node, f Field) string {
	switch f {
	case FieldName:
		return n.Name
	case FieldFilePath:
		return n.FilePath
	case FieldSourceCode:
		return n.SourceCode
	case FieldType:
		return string(n.Kind)
	default:
		return ""
	}
}

func (p Pattern) matchesKind(n model.Node) bool {
	if len(p.NodeKinds) == 0 {
		return true
	}
	for _, k := range p.NodeKinds {
		if k == n.Kind {
			return true
		}
	}
	return false
}

func (p Pattern) Matches(n model.Node) bool {
	if !p.matchesKind(n) {
		return false
	}
	val := fieldValue(n, p.Field)
	for _, want := range p.Values {
		var hit bool
		switch p.Op {
		case OpExact:
			hit = val == want
		case OpPrefix:
			hit = strings.HasPrefix(val, want)
		case OpSuffix:
			hit = strings.HasSuffix(val, want)
		case OpContains:
			hit = strings.Contains(val, want)
		}
		if hit {
			return true
		}
	}
	return false
}

// DefaultPatterns is the built-in declarative category table described in
// spec §4.5: main/__main__, tests, module-level blocks, classes, CLI
// commands, handler dispatch, web frameworks, task queues, pytest
// fixtures, Django conventions, dunder methods, property accessors,
// visitor methods, enum classes, validators, Click/Typer commands.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Category: "main", Field: FieldName, Op: OpExact, Values: []string{"main", "__main__"}},
		{Category: "tests_name", Field: FieldName, Op: OpPrefix, Values: []string{"test_", "Test"}},
		{Category: "tests_dir", Field: FieldFilePath, Op: OpContains, Values: []string{"tests/", "test/", "__tests__/"}},
		{Category: "module_block", Field: FieldType, Op: OpExact, Values: []string{string(model.KindBlock)}, NodeKinds: []model.NodeKind{model.KindBlock}},
		{Category: "class", Field: FieldType, Op: OpExact, Values: []string{string(model.KindClass)}, NodeKinds: []model.NodeKind{model.KindClass}},
		{Category: "cli_command", Field: FieldName, Op: OpPrefix, Values: []string{"cmd_"}},
		{Category: "cli_command", Field: FieldName, Op: OpExact, Values: []string{"cli", "app", "run"}},
		{Category: "handler_dispatch", Field: FieldName, Op: OpPrefix, Values: []string{"handle_"}},
		{Category: "web_framework_path", Field: FieldSourceCode, Op: OpContains, Values: []string{"@app.route", "@app.get", "@app.post", "@app.put", "@app.delete", "@router.", "Blueprint("}},
		{Category: "task_queue", Field: FieldSourceCode, Op: OpContains, Values: []string{"@celery.task", "@shared_task", "@app.task"}},
		{Category: "pytest_fixture", Field: FieldSourceCode, Op: OpContains, Values: []string{"@pytest.fixture"}},
		{Category: "django_admin", Field: FieldSourceCode, Op: OpContains, Values: []string{"admin.site.register", "class Meta"}},
		{Category: "django_signal", Field: FieldSourceCode, Op: OpContains, Values: []string{"@receiver("}},
		{Category: "dunder_method", Field: FieldName, Op: OpPrefix, Values: []string{"__"}, NodeKinds: []model.NodeKind{model.KindMethod}},
		{Category: "property_accessor", Field: FieldSourceCode, Op: OpContains, Values: []string{"@property", "@cached_property"}},
		{Category: "visitor_method", Field: FieldName, Op: OpPrefix, Values: []string{"visit_"}},
		{Category: "enum_class", Field: FieldSourceCode, Op: OpContains, Values: []string{"(Enum)", "(IntEnum)", "(StrEnum)"}, NodeKinds: []model.NodeKind{model.KindClass}},
		{Category: "validator", Field: FieldSourceCode, Op: OpContains, Values: []string{"@validator", "@field_validator", "@model_validator"}},
		{Category: "click_typer", Field: FieldSourceCode, Op: OpContains, Values: []string{"@click.command", "@app.command"}},
	}
}

// DefaultPredicates is the small custom-predicate table for patterns that
// don't fit the declarative (field, op, values) grammar.
func DefaultPredicates() []Predicate {
	return []Predicate{
		{
			Category: "package_init_function",
			Match: func(n model.Node) bool {
				if n.Kind != model.KindFunction {
					return false
				}
				if !strings.HasSuffix(n.FilePath, "__init__.py") {
					return false
				}
				return strings.Count(n.ID, ".") == 1
			},
		},
		{
			Category: "private_method",
			Match: func(n model.Node) bool {
				if n.Kind != model.KindMethod {
					return false
				}
				return strings.HasPrefix(n.Name, "_") && !strings.HasPrefix(n.Name, "__")
			},
		},
	}
}
