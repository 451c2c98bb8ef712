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
	"strings"

	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/types"
)

// Kind identifies a structural change
type Kind string

const (
	CreateTable      Kind = "CreateTable"
	DropTable        Kind = "DropTable"
	RenameTable      Kind = "RenameTable"
	AddColumn        Kind = "AddColumn"
	DropColumn       Kind = "DropColumn"
	ChangeColumn     Kind = "ChangeColumn"
	RenameColumn     Kind = "RenameColumn"
	CreateIndex      Kind = "CreateIndex"
	DropIndex        Kind = "DropIndex"
	RenameIndex      Kind = "RenameIndex"
	CreateUnique     Kind = "CreateUnique"
	DropUnique       Kind = "DropUnique"
	RenameUnique     Kind = "RenameUnique"
	CreateCheck      Kind = "CreateCheck"
	DropCheck        Kind = "DropCheck"
	RenameCheck      Kind = "RenameCheck"
	CreateForeignKey Kind = "CreateForeignKey"
	DropForeignKey   Kind = "DropForeignKey"
	RenameForeignKey Kind = "RenameForeignKey"
	CreatePrimaryKey Kind = "CreatePrimaryKey"
	DropPrimaryKey   Kind = "DropPrimaryKey"
	RenamePrimaryKey Kind = "RenamePrimaryKey"
	CreateSequence   Kind = "CreateSequence"
	DropSequence     Kind = "DropSequence"
	RenameSequence   Kind = "RenameSequence"
	CreateSchema     Kind = "CreateSchema"
	DropSchema       Kind = "DropSchema"
	CreateDatabase   Kind = "CreateDatabase"
	DropDatabase     Kind = "DropDatabase"
)

// Kinds lists every operation kind
var Kinds = []Kind{
	CreateTable, DropTable, RenameTable,
	AddColumn, DropColumn, ChangeColumn, RenameColumn,
	CreateIndex, DropIndex, RenameIndex,
	CreateUnique, DropUnique, RenameUnique,
	CreateCheck, DropCheck, RenameCheck,
	CreateForeignKey, DropForeignKey, RenameForeignKey,
	CreatePrimaryKey, DropPrimaryKey, RenamePrimaryKey,
	CreateSequence, DropSequence, RenameSequence,
	CreateSchema, DropSchema, CreateDatabase, DropDatabase,
}

// Operation is one structural change. Only the fields relevant to Kind are
// set. Every operation carries the full definitions it touches so that its
// inverse can be derived without querying the database.
type Operation struct {
	Kind Kind
	// Table is the table the change applies to. For RenameTable it is the
	// old name.
	Table string

	// OldName and NewName are set on rename kinds
	OldName string
	NewName string

	Definition *types.Table
	Column     *types.Column
	OldColumn  *types.Column
	Index      *types.Index
	Unique     *types.Unique
	Check      *types.Check
	ForeignKey *types.ForeignKey
	PrimaryKey *types.PrimaryKey
	Sequence   *types.Sequence

	// Position places the column of an AddColumn
	Position ColumnPosition

	// Name of the schema or database for the namespace kinds
	Namespace string
	// IfExists applies to drops, IfNotExists to creates
	IfExists    bool
	IfNotExists bool

	// Cascaded marks renames derived from a table or column rename
	Cascaded bool
}

// ColumnPosition places an added column. The zero value appends it.
type ColumnPosition struct {
	First bool
	After string
}

// Appends reports whether the position puts the column after every column
// of table
func (p ColumnPosition) Appends(table *types.Table) bool {
	if p.First {
		return table == nil || len(table.Columns) == 0
	}
	if p.After == "" {
		return true
	}
	return table != nil && len(table.Columns) > 0 && table.Columns[len(table.Columns)-1].Name == p.After
}

// PositionOf returns the position column holds in table
func PositionOf(table *types.Table, column string) ColumnPosition {
	i := table.ColumnIndex(column)
	switch {
	case i < 0:
		return ColumnPosition{}
	case i == 0:
		return ColumnPosition{First: true}
	}
	return ColumnPosition{After: table.Columns[i-1].Name}
}

// IsRename reports whether the kind renames an object
func (k Kind) IsRename() bool {
	return strings.HasPrefix(string(k), "Rename")
}

// IsDrop reports whether the kind drops an object
func (k Kind) IsDrop() bool {
	return strings.HasPrefix(string(k), "Drop")
}

// IsCreate reports whether the kind creates an object
func (k Kind) IsCreate() bool {
	return strings.HasPrefix(string(k), "Create")
}

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// NewCreateTable creates a CreateTable operation
func NewCreateTable(definition *types.Table, ifNotExists bool) Operation {
	return Operation{Kind: CreateTable, Table: definition.Name, Definition: definition.Clone(), IfNotExists: ifNotExists}
}

// NewDropTable creates a DropTable operation carrying the full definition
func NewDropTable(definition *types.Table, ifExists bool) Operation {
	return Operation{Kind: DropTable, Table: definition.Name, Definition: definition.Clone(), IfExists: ifExists}
}

// NewRenameTable creates a RenameTable operation
func NewRenameTable(oldName, newName string) Operation {
	return Operation{Kind: RenameTable, Table: oldName, OldName: oldName, NewName: newName}
}

// NewAddColumn creates an AddColumn operation
func NewAddColumn(table string, column types.Column) Operation {
	c := column.Clone()
	return Operation{Kind: AddColumn, Table: table, Column: &c}
}

// NewDropColumn creates a DropColumn operation carrying the full column
func NewDropColumn(table string, column types.Column) Operation {
	c := column.Clone()
	return Operation{Kind: DropColumn, Table: table, Column: &c}
}

// NewChangeColumn creates a ChangeColumn operation from one definition to another
func NewChangeColumn(table string, from, to types.Column) Operation {
	f, t := from.Clone(), to.Clone()
	return Operation{Kind: ChangeColumn, Table: table, OldColumn: &f, Column: &t}
}

// NewRenameColumn creates a RenameColumn operation
func NewRenameColumn(table, oldName, newName string) Operation {
	return Operation{Kind: RenameColumn, Table: table, OldName: oldName, NewName: newName}
}

// NewCreateIndex creates a CreateIndex operation
func NewCreateIndex(table string, index types.Index) Operation {
	index.Columns = append([]string(nil), index.Columns...)
	return Operation{Kind: CreateIndex, Table: table, Index: &index}
}

// NewDropIndex creates a DropIndex operation
func NewDropIndex(table string, index types.Index) Operation {
	index.Columns = append([]string(nil), index.Columns...)
	return Operation{Kind: DropIndex, Table: table, Index: &index}
}

// NewCreateUnique creates a CreateUnique operation
func NewCreateUnique(table string, unique types.Unique) Operation {
	unique.Columns = append([]string(nil), unique.Columns...)
	return Operation{Kind: CreateUnique, Table: table, Unique: &unique}
}

// NewDropUnique creates a DropUnique operation
func NewDropUnique(table string, unique types.Unique) Operation {
	unique.Columns = append([]string(nil), unique.Columns...)
	return Operation{Kind: DropUnique, Table: table, Unique: &unique}
}

// NewCreateCheck creates a CreateCheck operation
func NewCreateCheck(table string, check types.Check) Operation {
	return Operation{Kind: CreateCheck, Table: table, Check: &check}
}

// NewDropCheck creates a DropCheck operation
func NewDropCheck(table string, check types.Check) Operation {
	return Operation{Kind: DropCheck, Table: table, Check: &check}
}

// NewCreateForeignKey creates a CreateForeignKey operation
func NewCreateForeignKey(table string, fk types.ForeignKey) Operation {
	fk.Columns = append([]string(nil), fk.Columns...)
	fk.ReferencedColumns = append([]string(nil), fk.ReferencedColumns...)
	return Operation{Kind: CreateForeignKey, Table: table, ForeignKey: &fk}
}

// NewDropForeignKey creates a DropForeignKey operation
func NewDropForeignKey(table string, fk types.ForeignKey) Operation {
	fk.Columns = append([]string(nil), fk.Columns...)
	fk.ReferencedColumns = append([]string(nil), fk.ReferencedColumns...)
	return Operation{Kind: DropForeignKey, Table: table, ForeignKey: &fk}
}

// NewCreatePrimaryKey creates a CreatePrimaryKey operation
func NewCreatePrimaryKey(table string, pk types.PrimaryKey) Operation {
	pk.Columns = append([]string(nil), pk.Columns...)
	return Operation{Kind: CreatePrimaryKey, Table: table, PrimaryKey: &pk}
}

// NewDropPrimaryKey creates a DropPrimaryKey operation
func NewDropPrimaryKey(table string, pk types.PrimaryKey) Operation {
	pk.Columns = append([]string(nil), pk.Columns...)
	return Operation{Kind: DropPrimaryKey, Table: table, PrimaryKey: &pk}
}

// NewCreateSequence creates a CreateSequence operation
func NewCreateSequence(table string, sequence types.Sequence) Operation {
	return Operation{Kind: CreateSequence, Table: table, Sequence: &sequence}
}

// NewDropSequence creates a DropSequence operation
func NewDropSequence(table string, sequence types.Sequence) Operation {
	return Operation{Kind: DropSequence, Table: table, Sequence: &sequence}
}

// NewRename creates a rename of an index, constraint or sequence on table.
// kind must be one of the object rename kinds.
func NewRename(kind Kind, table, oldName, newName string) Operation {
	return Operation{Kind: kind, Table: table, OldName: oldName, NewName: newName}
}

// NewCreateSchema creates a CreateSchema operation
func NewCreateSchema(name string, ifNotExists bool) Operation {
	return Operation{Kind: CreateSchema, Namespace: name, IfNotExists: ifNotExists}
}

// NewCreateDatabase creates a CreateDatabase operation
func NewCreateDatabase(name string, ifNotExists bool) Operation {
	return Operation{Kind: CreateDatabase, Namespace: name, IfNotExists: ifNotExists}
}

// Inverse returns the operation that undoes o
func (o Operation) Inverse() (Operation, error) {
	if err := o.Validate(); err != nil {
		return Operation{}, err
	}

	inv := o
	inv.Cascaded = false
	switch o.Kind {
	case CreateTable:
		inv = NewDropTable(o.Definition, false)
	case DropTable:
		inv = NewCreateTable(o.Definition, false)
	case RenameTable:
		inv = NewRenameTable(o.NewName, o.OldName)
	case AddColumn:
		inv.Kind = DropColumn
		inv.Position = ColumnPosition{}
	case DropColumn:
		inv.Kind = AddColumn
	case ChangeColumn:
		inv.Column, inv.OldColumn = o.OldColumn, o.Column
		if o.Column.Name != o.OldColumn.Name {
			return Operation{}, errors.NewConfigurationError("change column cannot rename; use RenameColumn", o.Table, o.OldColumn.Name, o.Column.Name)
		}
	case RenameColumn, RenameIndex, RenameUnique, RenameCheck, RenameForeignKey, RenamePrimaryKey, RenameSequence:
		inv.OldName, inv.NewName = o.NewName, o.OldName
	case CreateIndex:
		inv.Kind = DropIndex
	case DropIndex:
		inv.Kind = CreateIndex
	case CreateUnique:
		inv.Kind = DropUnique
	case DropUnique:
		inv.Kind = CreateUnique
	case CreateCheck:
		inv.Kind = DropCheck
	case DropCheck:
		inv.Kind = CreateCheck
	case CreateForeignKey:
		inv.Kind = DropForeignKey
	case DropForeignKey:
		inv.Kind = CreateForeignKey
	case CreatePrimaryKey:
		inv.Kind = DropPrimaryKey
	case DropPrimaryKey:
		inv.Kind = CreatePrimaryKey
	case CreateSequence:
		inv.Kind = DropSequence
	case DropSequence:
		inv.Kind = CreateSequence
	case CreateSchema:
		inv = Operation{Kind: DropSchema, Namespace: o.Namespace, IfExists: o.IfNotExists}
	case DropSchema:
		inv = Operation{Kind: CreateSchema, Namespace: o.Namespace, IfNotExists: o.IfExists}
	case CreateDatabase:
		inv = Operation{Kind: DropDatabase, Namespace: o.Namespace, IfExists: o.IfNotExists}
	case DropDatabase:
		inv = Operation{Kind: CreateDatabase, Namespace: o.Namespace, IfNotExists: o.IfExists}
	}
	if !o.Kind.IsRename() {
		inv.IfExists, inv.IfNotExists = o.IfNotExists, o.IfExists
	}
	return inv, nil
}

// InverseOn returns the operation that undoes o, given the table as it is
// before o runs. A dropped column is put back where it was.
func (o Operation) InverseOn(table *types.Table) (Operation, error) {
	inv, err := o.Inverse()
	if err != nil {
		return inv, err
	}
	if o.Kind == DropColumn && table != nil {
		inv.Position = PositionOf(table, o.Column.Name)
	}
	return inv, nil
}

// Validate checks that the fields required by Kind are present
func (o Operation) Validate() error {
	missing := func(field string) error {
		return errors.NewConfigurationError(fmt.Sprintf("%s operation requires %s", o.Kind, field), o.Table)
	}
	switch o.Kind {
	case CreateTable, DropTable:
		if o.Definition == nil {
			return missing("a table definition")
		}
	case AddColumn, DropColumn:
		if o.Column == nil {
			return missing("a column")
		}
	case ChangeColumn:
		if o.Column == nil || o.OldColumn == nil {
			return missing("both column definitions")
		}
	case RenameTable, RenameColumn, RenameIndex, RenameUnique, RenameCheck, RenameForeignKey, RenamePrimaryKey, RenameSequence:
		if o.OldName == "" || o.NewName == "" {
			return missing("old and new names")
		}
	case CreateIndex, DropIndex:
		if o.Index == nil {
			return missing("an index")
		}
	case CreateUnique, DropUnique:
		if o.Unique == nil {
			return missing("a unique constraint")
		}
	case CreateCheck, DropCheck:
		if o.Check == nil {
			return missing("a check constraint")
		}
	case CreateForeignKey, DropForeignKey:
		if o.ForeignKey == nil {
			return missing("a foreign key")
		}
	case CreatePrimaryKey, DropPrimaryKey:
		if o.PrimaryKey == nil {
			return missing("a primary key")
		}
	case CreateSequence, DropSequence:
		if o.Sequence == nil {
			return missing("a sequence")
		}
	case CreateSchema, DropSchema, CreateDatabase, DropDatabase:
		if o.Namespace == "" {
			return missing("a name")
		}
		return nil
	default:
		return errors.NewSequencingError("unknown operation kind "+string(o.Kind), o.Table)
	}
	if o.Table == "" && o.Kind != CreateSequence && o.Kind != DropSequence && o.Kind != RenameSequence {
		return missing("a table")
	}
	return nil
}

// ObjectName returns the name of the object the operation targets
func (o Operation) ObjectName() string {
	switch {
	case o.Kind.IsRename():
		return o.OldName
	case o.Definition != nil:
		return o.Definition.Name
	case o.Column != nil:
		return o.Column.Name
	case o.Index != nil:
		return o.Index.Name
	case o.Unique != nil:
		return o.Unique.Name
	case o.Check != nil:
		return o.Check.Name
	case o.ForeignKey != nil:
		return o.ForeignKey.Name
	case o.PrimaryKey != nil:
		return o.PrimaryKey.Name
	case o.Sequence != nil:
		return o.Sequence.Name
	}
	return o.Namespace
}

// Describe returns a one-line human readable description
func (o Operation) Describe() string {
	switch o.Kind {
	case CreateTable:
		return fmt.Sprintf("create table %s", o.Table)
	case DropTable:
		return fmt.Sprintf("drop table %s", o.Table)
	case RenameTable:
		return fmt.Sprintf("rename table %s to %s", o.OldName, o.NewName)
	case AddColumn:
		return fmt.Sprintf("add column %s.%s", o.Table, o.Column.Name)
	case DropColumn:
		return fmt.Sprintf("drop column %s.%s", o.Table, o.Column.Name)
	case ChangeColumn:
		return fmt.Sprintf("change column %s.%s", o.Table, o.Column.Name)
	case RenameColumn:
		return fmt.Sprintf("rename column %s.%s to %s", o.Table, o.OldName, o.NewName)
	case CreateSchema, DropSchema, CreateDatabase, DropDatabase:
		return fmt.Sprintf("%s %s", noun(o.Kind), o.Namespace)
	}
	if o.Kind.IsRename() {
		return fmt.Sprintf("%s %s to %s on %s", noun(o.Kind), o.OldName, o.NewName, o.Table)
	}
	return fmt.Sprintf("%s %s on %s", noun(o.Kind), o.ObjectName(), o.Table)
}

func (o Operation) String() string {
	return o.Describe()
}

// noun turns "CreateForeignKey" into "create foreign key"
func noun(kind Kind) string {
	var b strings.Builder
	for i, r := range string(kind) {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte(' ')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
