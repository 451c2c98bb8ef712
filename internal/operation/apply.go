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
package operation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ocomsoft/schemasync/internal/types"
)

// Apply returns the snapshot of table after o has run. It never mutates
// table. CreateTable returns the new definition and DropTable returns nil.
// Namespace operations leave the table unchanged.
func (o Operation) Apply(table *types.Table) (*types.Table, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	switch o.Kind {
	case CreateTable:
		if table != nil {
			return nil, fmt.Errorf("table %s already exists", o.Table)
		}
		return o.Definition.Clone(), nil
	case CreateSchema, DropSchema, CreateDatabase, DropDatabase:
		return table.Clone(), nil
	}

	if table == nil {
		if o.Kind == CreateSequence || o.Kind == DropSequence || o.Kind == RenameSequence {
			return nil, nil
		}
		return nil, fmt.Errorf("table %s does not exist", o.Table)
	}
	if o.Kind == DropTable {
		return nil, nil
	}

	t := table.Clone()
	switch o.Kind {
	case RenameTable:
		t.Name = types.ParseTableName(t.Name).WithName(types.UnqualifiedName(o.NewName)).String()

	case AddColumn:
		if t.GetColumnByName(o.Column.Name) != nil {
			return nil, fmt.Errorf("column %s.%s already exists", t.Name, o.Column.Name)
		}
		at, err := insertAt(t, o.Position)
		if err != nil {
			return nil, err
		}
		t.Columns = append(t.Columns, types.Column{})
		copy(t.Columns[at+1:], t.Columns[at:])
		t.Columns[at] = o.Column.Clone()
		// a sequence created implicitly with the column, like SERIAL
		if o.Sequence != nil && t.GetSequenceForColumn(o.Column.Name) == nil {
			t.Sequences = append(t.Sequences, *o.Sequence)
		}

	case DropColumn:
		i := t.ColumnIndex(o.Column.Name)
		if i < 0 {
			return nil, fmt.Errorf("column %s.%s does not exist", t.Name, o.Column.Name)
		}
		t.Columns = append(t.Columns[:i], t.Columns[i+1:]...)
		seqs := t.Sequences[:0]
		for _, seq := range t.Sequences {
			if seq.Column != o.Column.Name {
				seqs = append(seqs, seq)
			}
		}
		t.Sequences = seqs

	case ChangeColumn:
		i := t.ColumnIndex(o.OldColumn.Name)
		if i < 0 {
			return nil, fmt.Errorf("column %s.%s does not exist", t.Name, o.OldColumn.Name)
		}
		t.Columns[i] = o.Column.Clone()

	case RenameColumn:
		i := t.ColumnIndex(o.OldName)
		if i < 0 {
			return nil, fmt.Errorf("column %s.%s does not exist", t.Name, o.OldName)
		}
		if t.GetColumnByName(o.NewName) != nil {
			return nil, fmt.Errorf("column %s.%s already exists", t.Name, o.NewName)
		}
		t.Columns[i].Name = o.NewName
		renameColumnReferences(t, o.OldName, o.NewName)

	case CreateIndex:
		if err := ensureFree(t, o.Index.Name); err != nil {
			return nil, err
		}
		t.Indexes = append(t.Indexes, *o.Index)
	case DropIndex:
		i := findIndex(t, o.Index.Name)
		if i < 0 {
			return nil, missing(t, "index", o.Index.Name)
		}
		t.Indexes = append(t.Indexes[:i], t.Indexes[i+1:]...)
	case RenameIndex:
		i := findIndex(t, o.OldName)
		if i < 0 {
			return nil, missing(t, "index", o.OldName)
		}
		if err := ensureFree(t, o.NewName); err != nil {
			return nil, err
		}
		t.Indexes[i].Name = o.NewName

	case CreateUnique:
		if err := ensureFree(t, o.Unique.Name); err != nil {
			return nil, err
		}
		t.Uniques = append(t.Uniques, *o.Unique)
	case DropUnique:
		i := findUnique(t, o.Unique.Name)
		if i < 0 {
			return nil, missing(t, "unique", o.Unique.Name)
		}
		t.Uniques = append(t.Uniques[:i], t.Uniques[i+1:]...)
	case RenameUnique:
		i := findUnique(t, o.OldName)
		if i < 0 {
			return nil, missing(t, "unique", o.OldName)
		}
		if err := ensureFree(t, o.NewName); err != nil {
			return nil, err
		}
		t.Uniques[i].Name = o.NewName

	case CreateCheck:
		if err := ensureFree(t, o.Check.Name); err != nil {
			return nil, err
		}
		t.Checks = append(t.Checks, *o.Check)
	case DropCheck:
		i := findCheck(t, o.Check.Name)
		if i < 0 {
			return nil, missing(t, "check", o.Check.Name)
		}
		t.Checks = append(t.Checks[:i], t.Checks[i+1:]...)
	case RenameCheck:
		i := findCheck(t, o.OldName)
		if i < 0 {
			return nil, missing(t, "check", o.OldName)
		}
		if err := ensureFree(t, o.NewName); err != nil {
			return nil, err
		}
		t.Checks[i].Name = o.NewName

	case CreateForeignKey:
		if err := ensureFree(t, o.ForeignKey.Name); err != nil {
			return nil, err
		}
		t.ForeignKeys = append(t.ForeignKeys, *o.ForeignKey)
	case DropForeignKey:
		i := findForeignKey(t, o.ForeignKey.Name)
		if i < 0 {
			return nil, missing(t, "foreign key", o.ForeignKey.Name)
		}
		t.ForeignKeys = append(t.ForeignKeys[:i], t.ForeignKeys[i+1:]...)
	case RenameForeignKey:
		i := findForeignKey(t, o.OldName)
		if i < 0 {
			return nil, missing(t, "foreign key", o.OldName)
		}
		if err := ensureFree(t, o.NewName); err != nil {
			return nil, err
		}
		t.ForeignKeys[i].Name = o.NewName

	case CreatePrimaryKey:
		if t.HasPrimaryKey() {
			return nil, fmt.Errorf("table %s already has primary key %s", t.Name, t.PrimaryKey.Name)
		}
		pk := *o.PrimaryKey
		t.PrimaryKey = &pk
	case DropPrimaryKey:
		if !t.HasPrimaryKey() {
			return nil, missing(t, "primary key", o.PrimaryKey.Name)
		}
		t.PrimaryKey = nil
	case RenamePrimaryKey:
		if !t.HasPrimaryKey() || t.PrimaryKey.Name != o.OldName {
			return nil, missing(t, "primary key", o.OldName)
		}
		t.PrimaryKey.Name = o.NewName

	case CreateSequence:
		if findSequence(t, o.Sequence.Name) >= 0 {
			return nil, fmt.Errorf("sequence %s already exists", o.Sequence.Name)
		}
		t.Sequences = append(t.Sequences, *o.Sequence)
	case DropSequence:
		i := findSequence(t, o.Sequence.Name)
		if i < 0 {
			return nil, missing(t, "sequence", o.Sequence.Name)
		}
		t.Sequences = append(t.Sequences[:i], t.Sequences[i+1:]...)
	case RenameSequence:
		i := findSequence(t, o.OldName)
		if i < 0 {
			return nil, missing(t, "sequence", o.OldName)
		}
		t.Sequences[i].Name = o.NewName
	}

	compact(t)
	return t, nil
}

// compact resets emptied collections to nil so snapshots compare equal
// regardless of the path that produced them.
func compact(t *types.Table) {
	if len(t.Columns) == 0 {
		t.Columns = nil
	}
	if len(t.Indexes) == 0 {
		t.Indexes = nil
	}
	if len(t.Uniques) == 0 {
		t.Uniques = nil
	}
	if len(t.Checks) == 0 {
		t.Checks = nil
	}
	if len(t.ForeignKeys) == 0 {
		t.ForeignKeys = nil
	}
	if len(t.Sequences) == 0 {
		t.Sequences = nil
	}
}

// ApplyToReferencing updates foreign keys in another table that point at
// the table renamed by o, or at the column renamed by o. Other kinds return
// a plain copy.
func (o Operation) ApplyToReferencing(table *types.Table) *types.Table {
	t := table.Clone()
	for i := range t.ForeignKeys {
		fk := &t.ForeignKeys[i]
		switch o.Kind {
		case RenameTable:
			if types.SameTable(fk.ReferencedTable, o.OldName) {
				fk.ReferencedTable = types.ParseTableName(fk.ReferencedTable).WithName(types.UnqualifiedName(o.NewName)).String()
			}
		case RenameColumn:
			if types.SameTable(fk.ReferencedTable, o.Table) {
				fk.ReferencedColumns = types.ReplaceColumn(fk.ReferencedColumns, o.OldName, o.NewName)
			}
		}
	}
	return t
}

// renameColumnReferences rewrites column lists inside the table after a
// column rename, the way databases do.
func renameColumnReferences(t *types.Table, oldName, newName string) {
	if t.PrimaryKey != nil {
		t.PrimaryKey.Columns = types.ReplaceColumn(t.PrimaryKey.Columns, oldName, newName)
	}
	for i := range t.Indexes {
		t.Indexes[i].Columns = types.ReplaceColumn(t.Indexes[i].Columns, oldName, newName)
	}
	for i := range t.Uniques {
		t.Uniques[i].Columns = types.ReplaceColumn(t.Uniques[i].Columns, oldName, newName)
	}
	for i := range t.ForeignKeys {
		t.ForeignKeys[i].Columns = types.ReplaceColumn(t.ForeignKeys[i].Columns, oldName, newName)
		if types.SameTable(t.ForeignKeys[i].ReferencedTable, t.Name) {
			t.ForeignKeys[i].ReferencedColumns = types.ReplaceColumn(t.ForeignKeys[i].ReferencedColumns, oldName, newName)
		}
	}
	for i := range t.Checks {
		t.Checks[i].Expression = RenameInExpression(t.Checks[i].Expression, oldName, newName)
	}
	for i := range t.Sequences {
		if t.Sequences[i].Column == oldName {
			t.Sequences[i].Column = newName
		}
	}
}

// RenameInExpression replaces whole-word references to oldName in a SQL
// expression, bare or quoted. String literals are left alone.
func RenameInExpression(expression, oldName, newName string) string {
	if oldName == "" || !strings.Contains(expression, oldName) {
		return expression
	}
	word := regexp.MustCompile(`\b` + regexp.QuoteMeta(oldName) + `\b`)
	parts := strings.Split(expression, "'")
	for i := 0; i < len(parts); i += 2 {
		parts[i] = word.ReplaceAllLiteralString(parts[i], newName)
	}
	return strings.Join(parts, "'")
}

// insertAt returns the column index position refers to
func insertAt(t *types.Table, position ColumnPosition) (int, error) {
	switch {
	case position.First:
		return 0, nil
	case position.After == "":
		return len(t.Columns), nil
	}
	i := t.ColumnIndex(position.After)
	if i < 0 {
		return 0, fmt.Errorf("column %s.%s does not exist", t.Name, position.After)
	}
	return i + 1, nil
}

func ensureFree(t *types.Table, name string) error {
	if name == "" {
		return fmt.Errorf("object on table %s has no name", t.Name)
	}
	for _, existing := range t.ConstraintNames() {
		if existing == name {
			return fmt.Errorf("object %s already exists on table %s", name, t.Name)
		}
	}
	return nil
}

func missing(t *types.Table, what, name string) error {
	return fmt.Errorf("%s %s does not exist on table %s", what, name, t.Name)
}

func findIndex(t *types.Table, name string) int {
	for i := range t.Indexes {
		if t.Indexes[i].Name == name {
			return i
		}
	}
	return -1
}

func findUnique(t *types.Table, name string) int {
	for i := range t.Uniques {
		if t.Uniques[i].Name == name {
			return i
		}
	}
	return -1
}

func findCheck(t *types.Table, name string) int {
	for i := range t.Checks {
		if t.Checks[i].Name == name {
			return i
		}
	}
	return -1
}

func findForeignKey(t *types.Table, name string) int {
	for i := range t.ForeignKeys {
		if t.ForeignKeys[i].Name == name {
			return i
		}
	}
	return -1
}

func findSequence(t *types.Table, name string) int {
	for i := range t.Sequences {
		if t.Sequences[i].Name == name {
			return i
		}
	}
	return -1
}
