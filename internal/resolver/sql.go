// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"regexp"
	"sort"
	"strings"

	"lens/internal/model"
)

// SQLResolver (R2) discovers ORM-backed and raw-SQL tables, then matches
// function/method bodies against them to emit reads_table/writes_table/
// migrates edges.
type SQLResolver struct {
	// SQLFiles maps a project-relative path of a raw .sql file at the
	// project root to its content. Each file is parsed with the same
	// table-name regexes as source bodies and produces a migrates edge
	// plus a virtual sql.<dotted-path> node carrying the discovered
	// table(s) in its metadata.
	SQLFiles map[string][]byte
}

func (SQLResolver) Name() string { return "sql" }

var (
	tableNameRe   = regexp.MustCompile(`__tablename__\s*=\s*["'](\w+)["']`)
	baseModelRe   = regexp.MustCompile(`class\s+(\w+)\s*\(\s*(?:\w+\.)?(Base|DeclarativeBase|db\.Model)\s*\)`)
	djangoModelRe = regexp.MustCompile(`class\s+(\w+)\s*\(\s*(?:\w+\.)?models\.Model\s*\)`)
	djangoMetaRe  = regexp.MustCompile(`class\s+Meta\s*:[^}]*?db_table\s*=\s*["'](\w+)["']`)

	rawSelectRe = regexp.MustCompile(`(?i)SELECT\s+.+?\s+FROM\s+([A-Za-z_][A-Za-z0-9_]*)`)
	rawInsertRe = regexp.MustCompile(`(?i)INSERT\s+INTO\s+([A-Za-z_][A-Za-z0-9_]*)`)
	rawUpdateRe = regexp.MustCompile(`(?i)UPDATE\s+([A-Za-z_][A-Za-z0-9_]*)\s+SET`)
	rawDeleteRe = regexp.MustCompile(`(?i)DELETE\s+FROM\s+([A-Za-z_][A-Za-z0-9_]*)`)
	rawDDLRe    = regexp.MustCompile(`(?i)(?:CREATE|ALTER|DROP)\s+TABLE\s+(?:IF\s+(?:NOT\s+)?EXISTS\s+)?([A-Za-z_][A-Za-z0-9_]*)`)

	djangoReadRe  = regexp.MustCompile(`(\w+)\.objects\.(filter|get|all|exclude|first|last|values|values_list|annotate|aggregate)\(`)
	djangoWriteRe = regexp.MustCompile(`(\w+)\.objects\.(create|update|bulk_create|bulk_update)\(`)
	instanceOpRe  = regexp.MustCompile(`\b(\w+)\.(save|delete)\(\)`)

	sessionQueryRe  = regexp.MustCompile(`session\.query\(\s*(\w+)\s*\)`)
	sessionAddRe    = regexp.MustCompile(`(\w+)\.(add|delete|merge)\(\s*(\w+)`)
	sessionAddAllRe = regexp.MustCompile(`(\w+)\.add_all\(`)

	select20Re = regexp.MustCompile(`\bselect\(\s*(\w+)\s*\)`)
	mutate20Re = regexp.MustCompile(`\b(insert|update|delete)\(\s*(\w+)\s*\)`)

	postgrestRe = regexp.MustCompile(`\.table\(\s*["'](\w+)["']\s*\)\.(select|insert|update|upsert|delete)\(`)

	varAssignModelRe = regexp.MustCompile(`(\w+)\s*=\s*(\w+)\(`)

	sessionReceiverRe = regexp.MustCompile(`^(db|session|sess|tx|conn)$`)
)

// noiseTableNames are never accepted as a discovered table, per the
// "noise filter": SQL keywords, filesystem words, catalog tables, and
// common service brand names that regexes sometimes mistake for a table.
var noiseTableNames = map[string]bool{
	"select": true, "where": true, "values": true, "set": true, "from": true,
	"information_schema": true, "pg_catalog": true, "sqlite_master": true,
	"file": true, "path": true, "dir": true, "stripe": true, "sentry": true,
	"redis": true, "s3": true,
}

func (r SQLResolver) Resolve(nodes []model.Node, edges []model.Edge) ([]model.Node, []model.Edge, error) {
	models := discoverModels(nodes)

	var newNodes []model.Node
	seenVirtual := map[string]bool{}
	seen := edgeSeen{}
	var newEdges []model.Edge

	ensureVirtual := func(table string) string {
		if resolved, ok := models[strings.ToLower(table)]; ok {
			return resolved
		}
		id := model.PrefixDBTable + table
		if !seenVirtual[id] {
			seenVirtual[id] = true
			newNodes = append(newNodes, model.Node{ID: id, Kind: model.KindVirtual, Name: table})
		}
		return id
	}

	for _, n := range nodes {
		if !n.IsCode() {
			continue
		}
		body := n.SourceCode
		varModel := trackVariableModels(body)

		for _, kind := range []struct {
			re   *regexp.Regexp
			edge model.EdgeKind
		}{
			{rawSelectRe, model.EdgeReadsTable},
			{rawInsertRe, model.EdgeWritesTable},
			{rawUpdateRe, model.EdgeWritesTable},
			{rawDeleteRe, model.EdgeWritesTable},
			{rawDDLRe, model.EdgeMigrates},
		} {
			for _, m := range kind.re.FindAllStringSubmatch(body, -1) {
				table := strings.ToLower(m[1])
				if noiseTableNames[table] {
					continue
				}
				emit(&newEdges, seen, n.ID, ensureVirtual(table), kind.edge)
			}
		}

		for _, m := range djangoReadRe.FindAllStringSubmatch(body, -1) {
			emit(&newEdges, seen, n.ID, ensureVirtual(strings.ToLower(m[1])), model.EdgeReadsTable)
		}
		for _, m := range djangoWriteRe.FindAllStringSubmatch(body, -1) {
			emit(&newEdges, seen, n.ID, ensureVirtual(strings.ToLower(m[1])), model.EdgeWritesTable)
		}
		for _, m := range instanceOpRe.FindAllStringSubmatch(body, -1) {
			receiver := m[1]
			if mdl, ok := varModel[receiver]; ok {
				emit(&newEdges, seen, n.ID, ensureVirtual(strings.ToLower(mdl)), model.EdgeWritesTable)
			}
		}
		for _, m := range sessionQueryRe.FindAllStringSubmatch(body, -1) {
			emit(&newEdges, seen, n.ID, ensureVirtual(strings.ToLower(m[1])), model.EdgeReadsTable)
		}
		for _, m := range sessionAddRe.FindAllStringSubmatch(body, -1) {
			if !sessionReceiverRe.MatchString(m[1]) {
				continue
			}
			varName := m[3]
			if mdl, ok := varModel[varName]; ok {
				emit(&newEdges, seen, n.ID, ensureVirtual(strings.ToLower(mdl)), model.EdgeWritesTable)
			} else {
				emit(&newEdges, seen, n.ID, ensureVirtual("unknown"), model.EdgeWritesTable)
			}
		}
		if sessionAddAllRe.MatchString(body) {
			emit(&newEdges, seen, n.ID, ensureVirtual("unknown"), model.EdgeWritesTable)
		}
		for _, m := range select20Re.FindAllStringSubmatch(body, -1) {
			emit(&newEdges, seen, n.ID, ensureVirtual(strings.ToLower(m[1])), model.EdgeReadsTable)
		}
		for _, m := range mutate20Re.FindAllStringSubmatch(body, -1) {
			emit(&newEdges, seen, n.ID, ensureVirtual(strings.ToLower(m[2])), model.EdgeWritesTable)
		}
		for _, m := range postgrestRe.FindAllStringSubmatch(body, -1) {
			table := strings.ToLower(m[1])
			if noiseTableNames[table] {
				continue
			}
			kind := model.EdgeReadsTable
			if m[2] != "select" {
				kind = model.EdgeWritesTable
			}
			emit(&newEdges, seen, n.ID, ensureVirtual(table), kind)
		}
	}

	for _, path := range sortedKeys(r.SQLFiles) {
		content := string(r.SQLFiles[path])
		tables := tablesInSQLFile(content)
		sqlID := model.PrefixSQL + dottedPath(path)
		newNodes = append(newNodes, model.Node{
			ID:       sqlID,
			Kind:     model.KindVirtual,
			Name:     path,
			FilePath: path,
			Metadata: map[string]any{"tables": tables},
		})
		for _, table := range tables {
			emit(&newEdges, seen, sqlID, ensureVirtual(table), model.EdgeMigrates)
		}
	}

	return newNodes, newEdges, nil
}

// tablesInSQLFile scans a raw .sql file's content with the same
// table-name regexes used against ORM/raw-SQL source bodies and returns
// the deduplicated, noise-filtered table names found, in first-seen order.
func tablesInSQLFile(content string) []string {
	var tables []string
	seen := map[string]bool{}
	add := func(table string) {
		table = strings.ToLower(table)
		if table == "" || noiseTableNames[table] || seen[table] {
			return
		}
		seen[table] = true
		tables = append(tables, table)
	}
	for _, re := range []*regexp.Regexp{rawSelectRe, rawInsertRe, rawUpdateRe, rawDeleteRe, rawDDLRe} {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			add(m[1])
		}
	}
	return tables
}

// dottedPath renders a project-relative file path as a dotted id segment,
// per the sql.<dotted-path> virtual-node convention (spec §6).
func dottedPath(path string) string {
	trimmed := strings.TrimSuffix(path, ".sql")
	return strings.ReplaceAll(trimmed, "/", ".")
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func emit(edges *[]model.Edge, seen edgeSeen, from, to string, kind model.EdgeKind) {
	e := model.Edge{FromNode: from, ToNode: to, Kind: kind, Confidence: model.ConfidenceInferred, Source: model.SourceStatic}
	if seen.claim(e) {
		*edges = append(*edges, e)
	}
}

// discoverModels maps lowercased table names to the class node id that
// declares them, from __tablename__, a base-model marker, or Django
// convention. A class with an explicit __tablename__ is also registered
// under its own lowercased class name, so a reference by model class
// (session.query(User)) resolves to it.
func discoverModels(nodes []model.Node) map[string]string {
	models := make(map[string]string)
	for _, n := range nodes {
		if n.Kind != model.KindClass {
			continue
		}
		head := n.SourceCode
		if len(head) > 400 {
			head = head[:400]
		}
		if m := tableNameRe.FindStringSubmatch(head); m != nil {
			models[strings.ToLower(m[1])] = n.ID
			models[strings.ToLower(n.Name)] = n.ID
			continue
		}
		if m := baseModelRe.FindStringSubmatch(n.SourceCode); m != nil && m[1] == n.Name {
			models[strings.ToLower(n.Name)] = n.ID
			continue
		}
		if djangoModelRe.MatchString(n.SourceCode) {
			if m := djangoMetaRe.FindStringSubmatch(n.SourceCode); m != nil {
				models[strings.ToLower(m[1])] = n.ID
			} else {
				models[strings.ToLower(n.Name)] = n.ID
			}
		}
	}
	return models
}

// trackVariableModels maps local variable names to the model class name
// assigned via a constructor call (`var = Model(...)`).
func trackVariableModels(body string) map[string]string {
	out := make(map[string]string)
	for _, m := range varAssignModelRe.FindAllStringSubmatch(body, -1) {
		name, class := m[1], m[2]
		if len(class) > 0 && class[0] >= 'A' && class[0] <= 'Z' {
			out[name] = class
		}
	}
	return out
}

var _ Resolver = SQLResolver{}
