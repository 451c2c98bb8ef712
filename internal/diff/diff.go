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
package diff

import (
	"fmt"
	"strings"

	"github.com/ocomsoft/schemasync/internal/cascade"
	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/types"
)

// Dialect is the part of a provider the differ consults
type Dialect interface {
	RenameStrategy(kind operation.Kind) dialect.RenameStrategy
}

// Engine compares desired snapshots against actual ones and emits the
// operations that turn the actual structure into the desired one.
type Engine struct {
	dialect  Dialect
	resolver *cascade.Resolver
	verbose  bool
}

// New creates a diff engine. Table and column renames declared through
// renamed_from are expanded by resolver.
func New(d Dialect, resolver *cascade.Resolver, verbose bool) *Engine {
	return &Engine{dialect: d, resolver: resolver, verbose: verbose}
}

// Options controls schema level comparison
type Options struct {
	// DropUnknownTables drops actual tables absent from the desired model
	DropUnknownTables bool
}

// CompareSchemas returns the unordered operations that transform actual
// into desired. Rename operations are immediately followed by the renames
// they cascade to.
func (e *Engine) CompareSchemas(desired, actual []*types.Table, opts Options) ([]operation.Operation, error) {
	if e.verbose {
		fmt.Printf("Comparing schemas: %d -> %d tables\n", len(actual), len(desired))
	}

	working := make([]*types.Table, len(actual))
	for i, t := range actual {
		working[i] = t.Clone()
	}
	var ops []operation.Operation

	if err := checkRenameHints(desired); err != nil {
		return nil, err
	}

	// table renames first, so every later comparison sees the new names
	for _, d := range desired {
		if d.RenamedFrom == "" || types.SameTable(d.Name, d.RenamedFrom) || findTable(working, d.RenamedFrom) == nil {
			continue
		}
		if findTable(working, d.Name) != nil {
			return nil, errors.NewConfigurationError("ambiguous rename: both tables exist", d.RenamedFrom, d.Name)
		}
		res, err := e.resolver.RenameTable(working, findTable(working, d.RenamedFrom).Name, d.Name)
		if err != nil {
			return nil, err
		}
		ops = append(ops, res.Operations...)
		working = res.Tables
	}

	for _, d := range desired {
		for _, column := range d.Columns {
			a := findTable(working, d.Name)
			if a == nil || column.RenamedFrom == "" || column.RenamedFrom == column.Name {
				continue
			}
			if a.GetColumnByName(column.RenamedFrom) == nil {
				continue
			}
			if a.GetColumnByName(column.Name) != nil {
				return nil, errors.NewConfigurationError("ambiguous rename: both columns exist", a.Name+"."+column.RenamedFrom, a.Name+"."+column.Name)
			}
			res, err := e.resolver.RenameColumn(working, a.Name, column.RenamedFrom, column.Name)
			if err != nil {
				return nil, err
			}
			ops = append(ops, res.Operations...)
			working = res.Tables
		}
	}

	matched := make(map[*types.Table]bool)
	for _, d := range desired {
		a := findTable(working, d.Name)
		if a == nil {
			if e.verbose {
				fmt.Printf("  + table %s\n", d.Name)
			}
			ops = append(ops, operation.NewCreateTable(stripHints(d), false))
			continue
		}
		matched[a] = true
		tableOps, err := e.CompareTables(d, a)
		if err != nil {
			return nil, err
		}
		ops = append(ops, tableOps...)
	}

	if opts.DropUnknownTables {
		for _, a := range working {
			if !matched[a] {
				if e.verbose {
					fmt.Printf("  - table %s\n", a.Name)
				}
				ops = append(ops, operation.NewDropTable(a, false))
			}
		}
	}

	if e.verbose {
		fmt.Printf("Diff generated: %d operations\n", len(ops))
	}
	return ops, nil
}

// checkRenameHints rejects two tables claiming the same previous name
func checkRenameHints(desired []*types.Table) error {
	claimed := make(map[string]string)
	for _, d := range desired {
		if d.RenamedFrom == "" {
			continue
		}
		if other, ok := claimed[d.RenamedFrom]; ok {
			return errors.NewConfigurationError("ambiguous rename: two tables renamed from "+d.RenamedFrom, other, d.Name)
		}
		claimed[d.RenamedFrom] = d.Name

		columns := make(map[string]string)
		for _, c := range d.Columns {
			if c.RenamedFrom == "" {
				continue
			}
			if other, ok := columns[c.RenamedFrom]; ok {
				return errors.NewConfigurationError("ambiguous rename: two columns renamed from "+d.Name+"."+c.RenamedFrom, other, c.Name)
			}
			columns[c.RenamedFrom] = c.Name
		}
	}
	return nil
}

// CompareTables diffs one table pair. Both snapshots must already carry the
// same table name; renames are resolved by CompareSchemas.
func (e *Engine) CompareTables(desired, actual *types.Table) ([]operation.Operation, error) {
	d := stripHints(desired)
	table := actual.Name
	var drops, columns, renames, creates []operation.Operation

	// columns, by name
	for _, dc := range d.Columns {
		ac := actual.GetColumnByName(dc.Name)
		switch {
		case ac == nil:
			op := operation.NewAddColumn(table, dc)
			if seq := d.GetSequenceForColumn(dc.Name); seq != nil {
				s := *seq
				op.Sequence = &s
			}
			columns = append(columns, op)
		case !dc.SameDefinition(ac):
			columns = append(columns, operation.NewChangeColumn(table, *ac, dc))
		}
	}
	for _, ac := range actual.Columns {
		if d.GetColumnByName(ac.Name) == nil {
			op := operation.NewDropColumn(table, ac)
			if seq := actual.GetSequenceForColumn(ac.Name); seq != nil {
				s := *seq
				op.Sequence = &s
			}
			columns = append(columns, op)
		}
	}

	// primary key, by column set
	dpk, apk := d.PrimaryKey, actual.PrimaryKey
	if !d.HasPrimaryKey() {
		dpk = nil
	}
	if !actual.HasPrimaryKey() {
		apk = nil
	}
	switch {
	case dpk != nil && apk != nil && types.ColumnsKey(dpk.Columns) == types.ColumnsKey(apk.Columns):
		if dpk.Name != apk.Name {
			drop := operation.NewDropPrimaryKey(table, *apk)
			create := operation.NewCreatePrimaryKey(table, *dpk)
			e.rename(operation.RenamePrimaryKey, table, apk.Name, dpk.Name, drop, create, &drops, &renames, &creates)
		}
	default:
		if apk != nil {
			drops = append(drops, operation.NewDropPrimaryKey(table, *apk))
		}
		if dpk != nil {
			creates = append(creates, operation.NewCreatePrimaryKey(table, *dpk))
		}
	}

	// indexes and constraints, by structure
	dIdx, aIdx := make([]element, len(d.Indexes)), make([]element, len(actual.Indexes))
	for i, ix := range d.Indexes {
		dIdx[i] = element{name: ix.Name, key: indexKey(ix)}
	}
	for i, ix := range actual.Indexes {
		aIdx[i] = element{name: ix.Name, key: indexKey(ix)}
	}
	pairs, added, removed := match(dIdx, aIdx)
	for _, p := range pairs {
		a, dd := actual.Indexes[p[1]], d.Indexes[p[0]]
		e.rename(operation.RenameIndex, table, a.Name, dd.Name, operation.NewDropIndex(table, a), operation.NewCreateIndex(table, dd), &drops, &renames, &creates)
	}
	for _, i := range removed {
		drops = append(drops, operation.NewDropIndex(table, actual.Indexes[i]))
	}
	for _, i := range added {
		creates = append(creates, operation.NewCreateIndex(table, d.Indexes[i]))
	}

	dUq, aUq := make([]element, len(d.Uniques)), make([]element, len(actual.Uniques))
	for i, u := range d.Uniques {
		dUq[i] = element{name: u.Name, key: types.ColumnsKey(u.Columns)}
	}
	for i, u := range actual.Uniques {
		aUq[i] = element{name: u.Name, key: types.ColumnsKey(u.Columns)}
	}
	pairs, added, removed = match(dUq, aUq)
	for _, p := range pairs {
		a, dd := actual.Uniques[p[1]], d.Uniques[p[0]]
		e.rename(operation.RenameUnique, table, a.Name, dd.Name, operation.NewDropUnique(table, a), operation.NewCreateUnique(table, dd), &drops, &renames, &creates)
	}
	for _, i := range removed {
		drops = append(drops, operation.NewDropUnique(table, actual.Uniques[i]))
	}
	for _, i := range added {
		creates = append(creates, operation.NewCreateUnique(table, d.Uniques[i]))
	}

	dChk, aChk := make([]element, len(d.Checks)), make([]element, len(actual.Checks))
	for i, c := range d.Checks {
		dChk[i] = element{name: c.Name, key: ExpressionKey(c.Expression)}
	}
	for i, c := range actual.Checks {
		aChk[i] = element{name: c.Name, key: ExpressionKey(c.Expression)}
	}
	pairs, added, removed = match(dChk, aChk)
	for _, p := range pairs {
		a, dd := actual.Checks[p[1]], d.Checks[p[0]]
		e.rename(operation.RenameCheck, table, a.Name, dd.Name, operation.NewDropCheck(table, a), operation.NewCreateCheck(table, dd), &drops, &renames, &creates)
	}
	for _, i := range removed {
		drops = append(drops, operation.NewDropCheck(table, actual.Checks[i]))
	}
	for _, i := range added {
		creates = append(creates, operation.NewCreateCheck(table, d.Checks[i]))
	}

	dFK, aFK := make([]element, len(d.ForeignKeys)), make([]element, len(actual.ForeignKeys))
	for i, fk := range d.ForeignKeys {
		dFK[i] = element{name: fk.Name, key: foreignKeyKey(fk)}
	}
	for i, fk := range actual.ForeignKeys {
		aFK[i] = element{name: fk.Name, key: foreignKeyKey(fk)}
	}
	pairs, added, removed = match(dFK, aFK)
	for _, p := range pairs {
		a, dd := actual.ForeignKeys[p[1]], d.ForeignKeys[p[0]]
		e.rename(operation.RenameForeignKey, table, a.Name, dd.Name, operation.NewDropForeignKey(table, a), operation.NewCreateForeignKey(table, dd), &drops, &renames, &creates)
	}
	for _, i := range removed {
		drops = append(drops, operation.NewDropForeignKey(table, actual.ForeignKeys[i]))
	}
	for _, i := range added {
		creates = append(creates, operation.NewCreateForeignKey(table, d.ForeignKeys[i]))
	}

	// sequences owned by columns present on both sides; added and dropped
	// columns carry theirs
	for _, dc := range d.Columns {
		if actual.GetColumnByName(dc.Name) == nil {
			continue
		}
		ds, as := d.GetSequenceForColumn(dc.Name), actual.GetSequenceForColumn(dc.Name)
		switch {
		case ds != nil && as != nil && ds.Name != as.Name:
			e.rename(operation.RenameSequence, table, as.Name, ds.Name, operation.NewDropSequence(table, *as), operation.NewCreateSequence(table, *ds), &drops, &renames, &creates)
		case ds != nil && as == nil:
			creates = append(creates, operation.NewCreateSequence(table, *ds))
		case ds == nil && as != nil:
			drops = append(drops, operation.NewDropSequence(table, *as))
		}
	}
	for _, ds := range d.Sequences {
		if ds.Column == "" && !hasSequence(actual, ds.Name) {
			creates = append(creates, operation.NewCreateSequence(table, ds))
		}
	}
	for _, as := range actual.Sequences {
		if as.Column == "" && !hasSequence(d, as.Name) {
			drops = append(drops, operation.NewDropSequence(table, as))
		}
	}

	var ops []operation.Operation
	ops = append(ops, drops...)
	ops = append(ops, columns...)
	ops = append(ops, renames...)
	ops = append(ops, creates...)
	if e.verbose && len(ops) > 0 {
		fmt.Printf("  ~ table %s: %d operations\n", table, len(ops))
	}
	return ops, nil
}

// rename records a name-only difference the way the dialect renames the
// object: natively, implicitly (nothing to do) or as a drop and a create
// when the dialect has no rename. Recreate strategies are expanded by the
// provider.
func (e *Engine) rename(kind operation.Kind, table, oldName, newName string, drop, create operation.Operation, drops, renames, creates *[]operation.Operation) {
	if oldName == newName {
		return
	}
	switch e.dialect.RenameStrategy(kind) {
	case dialect.Implicit:
	case dialect.Unsupported:
		*drops = append(*drops, drop)
		*creates = append(*creates, create)
	default:
		*renames = append(*renames, operation.NewRename(kind, table, oldName, newName))
	}
}

func hasSequence(t *types.Table, name string) bool {
	for _, s := range t.Sequences {
		if s.Name == name {
			return true
		}
	}
	return false
}

// stripHints drops rename hints, which describe the change and not the
// resulting structure.
func stripHints(t *types.Table) *types.Table {
	c := t.Clone()
	c.RenamedFrom = ""
	for i := range c.Columns {
		c.Columns[i].RenamedFrom = ""
	}
	return c
}

func findTable(tables []*types.Table, name string) *types.Table {
	for _, t := range tables {
		if t.Name == name {
			return t
		}
	}
	for _, t := range tables {
		if types.SameTable(t.Name, name) {
			return t
		}
	}
	return nil
}

func indexKey(ix types.Index) string {
	return fmt.Sprintf("%t|%s|%s", ix.Unique, types.ColumnsKey(ix.Columns), ExpressionKey(ix.Where))
}

func foreignKeyKey(fk types.ForeignKey) string {
	return fmt.Sprintf("%s->%s(%s)|%s|%s",
		types.ColumnsKey(fk.Columns),
		strings.ToLower(types.UnqualifiedName(fk.ReferencedTable)),
		types.ColumnsKey(fk.ReferencedColumns),
		NormalizeAction(fk.OnDelete),
		NormalizeAction(fk.OnUpdate))
}

// NormalizeAction maps equivalent referential actions to one spelling
func NormalizeAction(action string) string {
	action = strings.ToUpper(strings.Join(strings.Fields(action), " "))
	if action == "NO ACTION" {
		return ""
	}
	return action
}

// ExpressionKey reduces an SQL expression to a comparison key. Catalogs
// re-render expressions with their own quoting, spacing and parentheses.
func ExpressionKey(expression string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(expression) {
		switch r {
		case ' ', '\t', '\n', '\r', '(', ')', '"', '`', '[', ']':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
