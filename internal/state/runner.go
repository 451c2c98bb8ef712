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
package state

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ocomsoft/schemasync/internal/executor"
	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/types"
)

// SQLGenerator renders an operation against the table it applies to
type SQLGenerator interface {
	GenerateSQL(op operation.Operation, current *types.Table) ([]string, error)
}

// Entry is one applied operation with the statements that perform it and
// the statements that undo it.
type Entry struct {
	Operation operation.Operation
	Up        []string
	Down      []string
}

// Runner is a QueryRunner over in-memory snapshots. With a generator it
// also renders the SQL a live database would have received, so a plan can
// be checked and written out without a connection.
type Runner struct {
	executor.Operations

	mu         sync.Mutex
	tables     []*types.Table
	namespaces map[string]bool
	generator  SQLGenerator
	entries    []Entry
}

// NewRunner creates a runner holding copies of tables. generator may be nil.
func NewRunner(tables []*types.Table, generator SQLGenerator) *Runner {
	r := &Runner{
		namespaces: make(map[string]bool),
		generator:  generator,
	}
	for _, t := range tables {
		r.tables = append(r.tables, t.Clone())
	}
	r.Operations = executor.Operations{Apply: r.apply}
	return r
}

// NewRunnerFromSnapshot creates a runner in the state recorded by snapshot
func NewRunnerFromSnapshot(snapshot *Snapshot, generator SQLGenerator) *Runner {
	if snapshot == nil {
		return NewRunner(nil, generator)
	}
	r := NewRunner(snapshot.TablePointers(), generator)
	for _, ns := range snapshot.Namespaces {
		r.namespaces[ns] = true
	}
	return r
}

func namespaceKey(kind operation.Kind, name string) string {
	switch kind {
	case operation.CreateDatabase, operation.DropDatabase:
		return "database:" + name
	}
	return "schema:" + name
}

func (r *Runner) GetTable(ctx context.Context, name string) (*types.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.index(name); i >= 0 {
		return r.tables[i].Clone(), nil
	}
	return nil, nil
}

// Query has no rows to return in memory
func (r *Runner) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	return nil, nil
}

func (r *Runner) NamespaceExists(ctx context.Context, kind operation.Kind, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.namespaces[namespaceKey(kind, name)], nil
}

func (r *Runner) Release() error {
	return nil
}

// Tables returns copies of the current tables in creation order
func (r *Runner) Tables() []*types.Table {
	r.mu.Lock()
	defer r.mu.Unlock()
	tables := make([]*types.Table, len(r.tables))
	for i, t := range r.tables {
		tables[i] = t.Clone()
	}
	return tables
}

// Entries returns the applied operations in order
func (r *Runner) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Snapshot captures the current state for the snapshot file
func (r *Runner) Snapshot(dialect string) *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &Snapshot{Dialect: dialect}
	for _, t := range r.tables {
		s.Tables = append(s.Tables, *t.Clone())
	}
	for ns := range r.namespaces {
		s.Namespaces = append(s.Namespaces, ns)
	}
	sort.Strings(s.Namespaces)
	return s
}

func (r *Runner) index(name string) int {
	for i, t := range r.tables {
		if t.Name == name {
			return i
		}
	}
	for i, t := range r.tables {
		if types.SameTable(t.Name, name) {
			return i
		}
	}
	return -1
}

func (r *Runner) apply(ctx context.Context, op operation.Operation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	switch op.Kind {
	case operation.CreateSchema, operation.CreateDatabase, operation.DropSchema, operation.DropDatabase:
		return r.applyNamespace(op)
	}

	idx := r.index(op.Table)
	var current *types.Table
	if idx >= 0 {
		current = r.tables[idx]
	}
	switch {
	case op.Kind == operation.CreateTable && current != nil && op.IfNotExists:
		return nil
	case op.Kind == operation.DropTable && current == nil && op.IfExists:
		return nil
	case op.Kind == operation.RenameTable && r.index(op.NewName) >= 0:
		return fmt.Errorf("table %s already exists", op.NewName)
	}

	next, err := op.Apply(current)
	if err != nil {
		return err
	}
	entry, err := r.render(op, current, next)
	if err != nil {
		return err
	}

	switch {
	case idx < 0 && next != nil:
		r.tables = append(r.tables, next)
		idx = len(r.tables) - 1
	case idx >= 0 && next == nil:
		r.tables = append(r.tables[:idx], r.tables[idx+1:]...)
		idx = -1
	case idx >= 0:
		r.tables[idx] = next
	}
	if op.Kind == operation.RenameTable || op.Kind == operation.RenameColumn {
		for i := range r.tables {
			if i != idx {
				r.tables[i] = op.ApplyToReferencing(r.tables[i])
			}
		}
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *Runner) applyNamespace(op operation.Operation) error {
	key := namespaceKey(op.Kind, op.Namespace)
	exists := r.namespaces[key]
	switch op.Kind {
	case operation.CreateSchema, operation.CreateDatabase:
		if exists {
			if op.IfNotExists {
				return nil
			}
			return fmt.Errorf("%s already exists", key)
		}
	default:
		if !exists {
			if op.IfExists {
				return nil
			}
			return fmt.Errorf("%s does not exist", key)
		}
	}

	entry, err := r.render(op, nil, nil)
	if err != nil {
		return err
	}
	if op.Kind == operation.CreateSchema || op.Kind == operation.CreateDatabase {
		r.namespaces[key] = true
	} else {
		delete(r.namespaces, key)
	}
	r.entries = append(r.entries, entry)
	return nil
}

// render produces the statements for op and its inverse. The inverse is
// rendered against the table as op leaves it.
func (r *Runner) render(op operation.Operation, current, next *types.Table) (Entry, error) {
	entry := Entry{Operation: op}
	if r.generator == nil {
		return entry, nil
	}
	up, err := r.generator.GenerateSQL(op, current)
	if err != nil {
		return entry, err
	}
	inverse, err := op.InverseOn(current)
	if err != nil {
		return entry, err
	}
	down, err := r.generator.GenerateSQL(inverse, next)
	if err != nil {
		return entry, err
	}
	entry.Up, entry.Down = up, down
	return entry, nil
}

var _ executor.QueryRunner = (*Runner)(nil)
