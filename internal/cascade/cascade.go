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
package cascade

import (
	"fmt"

	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/naming"
	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/types"
)

// Dialect is the part of a provider the resolver consults
type Dialect interface {
	RenameStrategy(kind operation.Kind) dialect.RenameStrategy
}

// Resolver expands table and column renames into the renames of every
// object whose generated name embeds the renamed identifier.
type Resolver struct {
	names   *naming.Strategy
	dialect Dialect
	verbose bool
}

// New creates a rename cascade resolver
func New(names *naming.Strategy, d Dialect, verbose bool) *Resolver {
	return &Resolver{names: names, dialect: d, verbose: verbose}
}

// Result is the outcome of a cascaded rename: the operations in execution
// order and the table snapshots after they ran.
type Result struct {
	Operations []operation.Operation
	Tables     []*types.Table
}

// RenameTable renames a table and its generated dependents, including
// foreign keys in other tables that reference it. tables is not modified.
func (r *Resolver) RenameTable(tables []*types.Table, oldName, newName string) (*Result, error) {
	idx := find(tables, oldName)
	if idx < 0 {
		return nil, errors.NewConfigurationError("rename target does not exist", oldName)
	}
	if find(tables, newName) >= 0 {
		return nil, errors.NewConfigurationError("rename destination already exists", newName)
	}

	oldName = tables[idx].Name
	rename := operation.NewRenameTable(oldName, newName)
	res := &Result{Tables: cloneAll(tables)}
	if err := res.apply(idx, rename); err != nil {
		return nil, err
	}
	res.Tables[idx] = rename.ApplyToReferencing(res.Tables[idx])
	newName = res.Tables[idx].Name

	before := tables[idx]
	var err error

	if before.PrimaryKey != nil {
		err = r.cascade(res, idx, operation.RenamePrimaryKey, before.PrimaryKey.Name, func(table string) (string, error) {
			return r.names.PrimaryKeyName(table, before.PrimaryKey.Columns)
		}, oldName, newName)
		if err != nil {
			return nil, err
		}
	}
	for _, index := range before.Indexes {
		columns := index.Columns
		if err := r.cascade(res, idx, operation.RenameIndex, index.Name, func(table string) (string, error) {
			return r.names.IndexName(table, columns)
		}, oldName, newName); err != nil {
			return nil, err
		}
	}
	for _, unique := range before.Uniques {
		columns := unique.Columns
		if err := r.cascade(res, idx, operation.RenameUnique, unique.Name, func(table string) (string, error) {
			return r.names.UniqueName(table, columns)
		}, oldName, newName); err != nil {
			return nil, err
		}
	}
	for _, check := range before.Checks {
		expression := check.Expression
		if err := r.cascade(res, idx, operation.RenameCheck, check.Name, func(table string) (string, error) {
			return r.names.CheckName(table, expression)
		}, oldName, newName); err != nil {
			return nil, err
		}
	}
	for _, fk := range before.ForeignKeys {
		fk := fk
		selfReference := types.SameTable(fk.ReferencedTable, oldName)
		if err := r.cascade(res, idx, operation.RenameForeignKey, fk.Name, func(table string) (string, error) {
			referenced := fk.ReferencedTable
			if selfReference {
				referenced = table
			}
			return r.names.ForeignKeyName(table, fk.Columns, referenced)
		}, oldName, newName); err != nil {
			return nil, err
		}
	}
	for _, seq := range before.Sequences {
		column := seq.Column
		if column == "" {
			continue
		}
		if err := r.cascade(res, idx, operation.RenameSequence, seq.Name, func(table string) (string, error) {
			return r.names.SequenceName(table, column)
		}, oldName, newName); err != nil {
			return nil, err
		}
	}

	// foreign keys in other tables name the referenced table
	for i, other := range tables {
		if i == idx {
			continue
		}
		res.Tables[i] = rename.ApplyToReferencing(res.Tables[i])
		for _, fk := range other.ForeignKeys {
			if !types.SameTable(fk.ReferencedTable, oldName) {
				continue
			}
			fk := fk
			oldFK, err := r.names.ForeignKeyName(other.Name, fk.Columns, oldName)
			if err != nil {
				return nil, err
			}
			if fk.Name != oldFK {
				continue
			}
			newFK, err := r.names.ForeignKeyName(other.Name, fk.Columns, newName)
			if err != nil {
				return nil, err
			}
			if err := r.emit(res, i, operation.RenameForeignKey, other.Name, fk.Name, newFK); err != nil {
				return nil, err
			}
		}
	}

	if r.verbose {
		fmt.Printf("Rename table %s -> %s cascades to %d objects\n", oldName, newName, len(res.Operations)-1)
	}
	return res, nil
}

// RenameColumn renames a column and the generated names of the indexes and
// constraints built on it.
func (r *Resolver) RenameColumn(tables []*types.Table, table, oldName, newName string) (*Result, error) {
	idx := find(tables, table)
	if idx < 0 {
		return nil, errors.NewConfigurationError("table of renamed column does not exist", table)
	}
	before := tables[idx]
	if before.GetColumnByName(oldName) == nil {
		return nil, errors.NewConfigurationError("rename target column does not exist", before.Name+"."+oldName)
	}
	if before.GetColumnByName(newName) != nil {
		return nil, errors.NewConfigurationError("rename destination column already exists", before.Name+"."+newName)
	}

	rename := operation.NewRenameColumn(before.Name, oldName, newName)
	res := &Result{Tables: cloneAll(tables)}
	if err := res.apply(idx, rename); err != nil {
		return nil, err
	}
	for i := range res.Tables {
		if i != idx {
			res.Tables[i] = rename.ApplyToReferencing(res.Tables[i])
		}
	}

	t := before.Name
	renameIn := func(columns []string) []string { return types.ReplaceColumn(columns, oldName, newName) }
	dependent := func(kind operation.Kind, name string, columns []string, generate func([]string) (string, error)) error {
		if !types.ContainsColumn(columns, oldName) {
			return nil
		}
		current, err := generate(columns)
		if err != nil || name != current {
			return err
		}
		next, err := generate(renameIn(columns))
		if err != nil {
			return err
		}
		return r.emit(res, idx, kind, t, name, next)
	}

	if before.PrimaryKey != nil {
		if err := dependent(operation.RenamePrimaryKey, before.PrimaryKey.Name, before.PrimaryKey.Columns, func(c []string) (string, error) {
			return r.names.PrimaryKeyName(t, c)
		}); err != nil {
			return nil, err
		}
	}
	for _, index := range before.Indexes {
		if err := dependent(operation.RenameIndex, index.Name, index.Columns, func(c []string) (string, error) {
			return r.names.IndexName(t, c)
		}); err != nil {
			return nil, err
		}
	}
	for _, unique := range before.Uniques {
		if err := dependent(operation.RenameUnique, unique.Name, unique.Columns, func(c []string) (string, error) {
			return r.names.UniqueName(t, c)
		}); err != nil {
			return nil, err
		}
	}
	for _, check := range before.Checks {
		expression := operation.RenameInExpression(check.Expression, oldName, newName)
		if expression == check.Expression {
			continue
		}
		current, err := r.names.CheckName(t, check.Expression)
		if err != nil {
			return nil, err
		}
		if check.Name != current {
			continue
		}
		next, err := r.names.CheckName(t, expression)
		if err != nil {
			return nil, err
		}
		if err := r.emit(res, idx, operation.RenameCheck, t, check.Name, next); err != nil {
			return nil, err
		}
	}
	for _, fk := range before.ForeignKeys {
		referenced := fk.ReferencedTable
		if err := dependent(operation.RenameForeignKey, fk.Name, fk.Columns, func(c []string) (string, error) {
			return r.names.ForeignKeyName(t, c, referenced)
		}); err != nil {
			return nil, err
		}
	}
	for _, seq := range before.Sequences {
		if seq.Column != oldName {
			continue
		}
		if err := dependent(operation.RenameSequence, seq.Name, []string{seq.Column}, func(c []string) (string, error) {
			return r.names.SequenceName(t, c[0])
		}); err != nil {
			return nil, err
		}
	}

	if r.verbose {
		fmt.Printf("Rename column %s.%s -> %s cascades to %d objects\n", t, oldName, newName, len(res.Operations)-1)
	}
	return res, nil
}

// cascade renames one object of the renamed table when its name is the
// generated name for the old table name.
func (r *Resolver) cascade(res *Result, idx int, kind operation.Kind, name string, generate func(table string) (string, error), oldTable, newTable string) error {
	if name == "" {
		return nil
	}
	current, err := generate(oldTable)
	if err != nil {
		return err
	}
	if name != current {
		// user supplied name
		return nil
	}
	next, err := generate(newTable)
	if err != nil {
		return err
	}
	return r.emit(res, idx, kind, newTable, name, next)
}

// emit records a cascaded rename unless the dialect performs it implicitly,
// in which case only the snapshot follows the new name.
func (r *Resolver) emit(res *Result, idx int, kind operation.Kind, table, oldName, newName string) error {
	if oldName == newName {
		return nil
	}
	op := operation.NewRename(kind, table, oldName, newName)
	op.Cascaded = true
	if err := res.apply(idx, op); err != nil {
		return err
	}
	if r.dialect.RenameStrategy(kind) == dialect.Implicit {
		res.Operations = res.Operations[:len(res.Operations)-1]
	}
	return nil
}

func (res *Result) apply(idx int, op operation.Operation) error {
	next, err := op.Apply(res.Tables[idx])
	if err != nil {
		return errors.NewConfigurationError(fmt.Sprintf("cannot %s: %v", op.Describe(), err), op.Table)
	}
	res.Tables[idx] = next
	res.Operations = append(res.Operations, op)
	return nil
}

func find(tables []*types.Table, name string) int {
	for i, t := range tables {
		if t.Name == name {
			return i
		}
	}
	for i, t := range tables {
		if types.SameTable(t.Name, name) {
			return i
		}
	}
	return -1
}

func cloneAll(tables []*types.Table) []*types.Table {
	out := make([]*types.Table, len(tables))
	for i, t := range tables {
		out[i] = t.Clone()
	}
	return out
}
