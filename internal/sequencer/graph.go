/*
MIT License

# Copyright (c) 2025 OcomSoft

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/
package sequencer

import (
	"fmt"
	"strings"

	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/types"
)

type node struct {
	op      operation.Operation
	visited bool
	inStack bool
}

// graph holds foreign key dependencies among the tables of one phase.
// edges maps a table to the tables its foreign keys reference.
type graph struct {
	order []string
	nodes map[string]*node
	edges map[string][]string
}

func buildGraph(ops []operation.Operation) *graph {
	g := &graph{nodes: make(map[string]*node), edges: make(map[string][]string)}
	for _, op := range ops {
		name := strings.ToLower(op.Table)
		g.order = append(g.order, name)
		g.nodes[name] = &node{op: op}
	}
	for _, name := range g.order {
		for _, fk := range g.nodes[name].op.Definition.ForeignKeys {
			to := g.lookup(fk.ReferencedTable)
			if to != "" && to != name {
				g.edges[name] = append(g.edges[name], to)
			}
		}
	}
	return g
}

// lookup finds the node for a referenced table, which may be written with
// or without its schema.
func (g *graph) lookup(table string) string {
	if _, ok := g.nodes[strings.ToLower(table)]; ok {
		return strings.ToLower(table)
	}
	for _, name := range g.order {
		if types.SameTable(name, strings.ToLower(table)) {
			return name
		}
	}
	return ""
}

// sort returns the operations with referenced tables first, or the cycle
// found among their foreign keys.
func (g *graph) sort() (sorted []operation.Operation, cycle []string) {
	var stack []string
	var visit func(name string) []string
	visit = func(name string) []string {
		n := g.nodes[name]
		if n.inStack {
			return findCycle(stack, name)
		}
		if n.visited {
			return nil
		}
		n.visited = true
		n.inStack = true
		stack = append(stack, name)
		for _, dep := range g.edges[name] {
			if c := visit(dep); c != nil {
				return c
			}
		}
		n.inStack = false
		stack = stack[:len(stack)-1]
		sorted = append(sorted, n.op)
		return nil
	}

	for _, name := range g.order {
		if c := visit(name); c != nil {
			return nil, c
		}
	}
	return sorted, nil
}

func findCycle(stack []string, target string) []string {
	for i, name := range stack {
		if name == target {
			return append(append([]string(nil), stack[i:]...), target)
		}
	}
	return []string{target}
}

// splitForeignKeys moves every foreign key out of the table definitions.
// build turns one removed key into its own operation.
func splitForeignKeys(ops []operation.Operation, build func(table string, fk types.ForeignKey) operation.Operation) (tables, fks []operation.Operation) {
	for _, op := range ops {
		def := op.Definition.Clone()
		for _, fk := range def.ForeignKeys {
			fks = append(fks, build(def.Name, fk))
		}
		def.ForeignKeys = nil
		op.Definition = def
		tables = append(tables, op)
	}
	return tables, fks
}

// orderCreates creates referenced tables first. Under a cycle the tables
// are created without foreign keys, which are returned as a separate phase.
// An inline foreign key whose referenced key is itself created later in the
// plan is also moved to that phase.
func (s *Sequencer) orderCreates(ops []operation.Operation, pending []key) (tables, fks []operation.Operation) {
	ops, fks = deferForeignKeys(ops, pending)
	sorted, cycle := buildGraph(ops).sort()
	if cycle == nil {
		return sorted, fks
	}
	if s.verbose {
		fmt.Printf("Warning: circular foreign keys %s - creating foreign keys separately\n", strings.Join(cycle, " -> "))
	}
	tables, split := splitForeignKeys(ops, operation.NewCreateForeignKey)
	return tables, append(split, fks...)
}

// key is a primary key or unique constraint a foreign key can reference
type key struct {
	table   string
	columns []string
}

// pendingKeys returns the keys ops create on existing tables
func pendingKeys(byKind map[operation.Kind][]operation.Operation) []key {
	var keys []key
	for _, op := range byKind[operation.CreatePrimaryKey] {
		keys = append(keys, key{op.Table, op.PrimaryKey.Columns})
	}
	for _, op := range byKind[operation.CreateUnique] {
		keys = append(keys, key{op.Table, op.Unique.Columns})
	}
	for _, op := range byKind[operation.CreateIndex] {
		if op.Index.Unique {
			keys = append(keys, key{op.Table, op.Index.Columns})
		}
	}
	return keys
}

func (k key) matches(fk types.ForeignKey) bool {
	if !types.SameTable(k.table, fk.ReferencedTable) || len(k.columns) != len(fk.ReferencedColumns) {
		return false
	}
	for _, c := range fk.ReferencedColumns {
		if !types.ContainsColumn(k.columns, c) {
			return false
		}
	}
	return true
}

// deferForeignKeys strips the inline foreign keys that reference a pending
// key and returns them as CreateForeignKey operations.
func deferForeignKeys(ops []operation.Operation, pending []key) (tables, fks []operation.Operation) {
	if len(pending) == 0 {
		return ops, nil
	}
	for _, op := range ops {
		var kept []types.ForeignKey
		var moved bool
		for _, fk := range op.Definition.ForeignKeys {
			waits := false
			for _, k := range pending {
				if k.matches(fk) {
					waits = true
					break
				}
			}
			if !waits {
				kept = append(kept, fk)
				continue
			}
			moved = true
			fks = append(fks, operation.NewCreateForeignKey(op.Definition.Name, fk))
		}
		if moved {
			def := op.Definition.Clone()
			def.ForeignKeys = kept
			op.Definition = def
		}
		tables = append(tables, op)
	}
	return tables, fks
}

// orderDrops drops referencing tables first. Under a cycle the foreign keys
// are dropped up front and the tables afterwards.
func (s *Sequencer) orderDrops(ops []operation.Operation) (tables, fks []operation.Operation) {
	sorted, cycle := buildGraph(ops).sort()
	if cycle == nil {
		for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
			sorted[i], sorted[j] = sorted[j], sorted[i]
		}
		return sorted, nil
	}
	if s.verbose {
		fmt.Printf("Warning: circular foreign keys %s - dropping foreign keys first\n", strings.Join(cycle, " -> "))
	}
	return splitForeignKeys(ops, operation.NewDropForeignKey)
}
