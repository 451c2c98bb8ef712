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
package dialect

import (
	"fmt"
	"strings"

	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/types"
)

// Builder renders ANSI-style DDL. Providers embed it and override the
// statements their dialect writes differently.
type Builder struct {
	Caps       Capabilities
	Quote      func(name string) string
	ColumnType func(column *types.Column) string
}

// Ident quotes a possibly qualified identifier part by part
func (b *Builder) Ident(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = b.Quote(parts[i])
	}
	return strings.Join(parts, ".")
}

// ColumnList quotes and joins column names
func (b *Builder) ColumnList(columns []string) string {
	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = b.Quote(column)
	}
	return strings.Join(quoted, ", ")
}

// ColumnDefinition renders a column for CREATE TABLE or ADD COLUMN
func (b *Builder) ColumnDefinition(column *types.Column) string {
	def := b.Quote(column.Name) + " " + b.ColumnType(column)
	if !column.IsNullable() {
		def += " NOT NULL"
	}
	if column.Default != "" {
		def += " DEFAULT " + column.Default
	}
	return def
}

func constraintPrefix(b *Builder, name string) string {
	if name == "" {
		return ""
	}
	return "CONSTRAINT " + b.Quote(name) + " "
}

// PrimaryKeyClause renders a table-level primary key
func (b *Builder) PrimaryKeyClause(pk *types.PrimaryKey) string {
	return constraintPrefix(b, pk.Name) + "PRIMARY KEY (" + b.ColumnList(pk.Columns) + ")"
}

// UniqueClause renders a table-level unique constraint
func (b *Builder) UniqueClause(unique *types.Unique) string {
	return constraintPrefix(b, unique.Name) + "UNIQUE (" + b.ColumnList(unique.Columns) + ")"
}

// CheckClause renders a check constraint
func (b *Builder) CheckClause(check *types.Check) string {
	return constraintPrefix(b, check.Name) + "CHECK (" + check.Expression + ")"
}

// ForeignKeyClause renders a foreign key constraint
func (b *Builder) ForeignKeyClause(fk *types.ForeignKey) string {
	clause := fmt.Sprintf("%sFOREIGN KEY (%s) REFERENCES %s (%s)",
		constraintPrefix(b, fk.Name), b.ColumnList(fk.Columns), b.Ident(fk.ReferencedTable), b.ColumnList(fk.ReferencedColumns))
	if fk.OnDelete != "" {
		clause += " ON DELETE " + strings.ToUpper(fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		clause += " ON UPDATE " + strings.ToUpper(fk.OnUpdate)
	}
	return clause
}

// TableBody renders the column and constraint list of a CREATE TABLE
func (b *Builder) TableBody(table *types.Table, columnDefinition func(*types.Column) string) []string {
	var lines []string
	for i := range table.Columns {
		lines = append(lines, columnDefinition(&table.Columns[i]))
	}
	if table.HasPrimaryKey() {
		lines = append(lines, b.PrimaryKeyClause(table.PrimaryKey))
	}
	for i := range table.Uniques {
		lines = append(lines, b.UniqueClause(&table.Uniques[i]))
	}
	for i := range table.Checks {
		lines = append(lines, b.CheckClause(&table.Checks[i]))
	}
	for i := range table.ForeignKeys {
		lines = append(lines, b.ForeignKeyClause(&table.ForeignKeys[i]))
	}
	return lines
}

// CreateTable renders CREATE TABLE followed by its indexes
func (b *Builder) CreateTable(table *types.Table, ifNotExists bool) []string {
	return b.CreateTableWith(table, ifNotExists, b.ColumnDefinition, b.CreateIndex)
}

// CreateTableWith is CreateTable with dialect specific column and index rendering
func (b *Builder) CreateTableWith(table *types.Table, ifNotExists bool, columnDefinition func(*types.Column) string, createIndex func(string, *types.Index) string) []string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	if ifNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(b.Ident(table.Name))
	sb.WriteString(" (\n    ")
	sb.WriteString(strings.Join(b.TableBody(table, columnDefinition), ",\n    "))
	sb.WriteString("\n)")

	statements := []string{sb.String()}
	for i := range table.Indexes {
		statements = append(statements, createIndex(table.Name, &table.Indexes[i]))
	}
	return statements
}

// CreateIndex renders CREATE INDEX
func (b *Builder) CreateIndex(table string, index *types.Index) string {
	kind := "INDEX"
	if index.Unique {
		kind = "UNIQUE INDEX"
	}
	stmt := fmt.Sprintf("CREATE %s %s ON %s (%s)", kind, b.Quote(index.Name), b.Ident(table), b.ColumnList(index.Columns))
	if index.Where != "" {
		stmt += " WHERE " + index.Where
	}
	return stmt
}

// AlterTable prefixes a clause with ALTER TABLE <table>
func (b *Builder) AlterTable(table, clause string) string {
	return "ALTER TABLE " + b.Ident(table) + " " + clause
}

// schemaOf returns "schema." for qualified table names so objects living in
// the table's schema can be addressed.
func (b *Builder) schemaOf(table string) string {
	q := types.ParseTableName(table)
	if q.Schema == "" {
		return ""
	}
	return b.Quote(q.Schema) + "."
}

// Unsupported returns the error for an operation the dialect cannot express
func (b *Builder) Unsupported(kind operation.Kind, message string) error {
	return errors.NewDialectUnsupportedError(b.Caps.Name, string(kind), message)
}

// Generate renders op in ANSI/PostgreSQL syntax. current is the table
// before op runs and may be nil.
func (b *Builder) Generate(op operation.Operation, current *types.Table) ([]string, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	switch op.Kind {
	case operation.CreateTable:
		return b.CreateTable(op.Definition, op.IfNotExists), nil
	case operation.DropTable:
		if op.IfExists {
			return []string{"DROP TABLE IF EXISTS " + b.Ident(op.Table)}, nil
		}
		return []string{"DROP TABLE " + b.Ident(op.Table)}, nil
	case operation.RenameTable:
		return []string{b.AlterTable(op.OldName, "RENAME TO "+b.Quote(types.UnqualifiedName(op.NewName)))}, nil

	case operation.AddColumn:
		return []string{b.AlterTable(op.Table, "ADD COLUMN "+b.ColumnDefinition(op.Column))}, nil
	case operation.DropColumn:
		return []string{b.AlterTable(op.Table, "DROP COLUMN "+b.Quote(op.Column.Name))}, nil
	case operation.ChangeColumn:
		return b.AlterColumn(op.Table, op.OldColumn, op.Column), nil
	case operation.RenameColumn:
		return []string{b.AlterTable(op.Table, fmt.Sprintf("RENAME COLUMN %s TO %s", b.Quote(op.OldName), b.Quote(op.NewName)))}, nil

	case operation.CreateIndex:
		return []string{b.CreateIndex(op.Table, op.Index)}, nil
	case operation.DropIndex:
		return []string{"DROP INDEX " + b.schemaOf(op.Table) + b.Quote(op.Index.Name)}, nil
	case operation.RenameIndex:
		return []string{fmt.Sprintf("ALTER INDEX %s%s RENAME TO %s", b.schemaOf(op.Table), b.Quote(op.OldName), b.Quote(op.NewName))}, nil

	case operation.CreateUnique:
		return []string{b.AlterTable(op.Table, "ADD "+b.UniqueClause(op.Unique))}, nil
	case operation.CreateCheck:
		return []string{b.AlterTable(op.Table, "ADD "+b.CheckClause(op.Check))}, nil
	case operation.CreateForeignKey:
		return []string{b.AlterTable(op.Table, "ADD "+b.ForeignKeyClause(op.ForeignKey))}, nil
	case operation.CreatePrimaryKey:
		return []string{b.AlterTable(op.Table, "ADD "+b.PrimaryKeyClause(op.PrimaryKey))}, nil
	case operation.DropUnique, operation.DropCheck, operation.DropForeignKey, operation.DropPrimaryKey:
		return []string{b.AlterTable(op.Table, "DROP CONSTRAINT "+b.Quote(op.ObjectName()))}, nil
	case operation.RenameUnique, operation.RenameCheck, operation.RenameForeignKey, operation.RenamePrimaryKey:
		return []string{b.AlterTable(op.Table, fmt.Sprintf("RENAME CONSTRAINT %s TO %s", b.Quote(op.OldName), b.Quote(op.NewName)))}, nil

	case operation.CreateSequence:
		return []string{"CREATE SEQUENCE " + b.schemaOf(op.Table) + b.Quote(op.Sequence.Name)}, nil
	case operation.DropSequence:
		return []string{"DROP SEQUENCE " + b.schemaOf(op.Table) + b.Quote(op.Sequence.Name)}, nil
	case operation.RenameSequence:
		return []string{fmt.Sprintf("ALTER SEQUENCE %s%s RENAME TO %s", b.schemaOf(op.Table), b.Quote(op.OldName), b.Quote(op.NewName))}, nil

	case operation.CreateSchema:
		if op.IfNotExists {
			return []string{"CREATE SCHEMA IF NOT EXISTS " + b.Quote(op.Namespace)}, nil
		}
		return []string{"CREATE SCHEMA " + b.Quote(op.Namespace)}, nil
	case operation.DropSchema:
		if op.IfExists {
			return []string{"DROP SCHEMA IF EXISTS " + b.Quote(op.Namespace)}, nil
		}
		return []string{"DROP SCHEMA " + b.Quote(op.Namespace)}, nil
	case operation.CreateDatabase:
		if op.IfNotExists {
			return []string{"CREATE DATABASE IF NOT EXISTS " + b.Quote(op.Namespace)}, nil
		}
		return []string{"CREATE DATABASE " + b.Quote(op.Namespace)}, nil
	case operation.DropDatabase:
		if op.IfExists {
			return []string{"DROP DATABASE IF EXISTS " + b.Quote(op.Namespace)}, nil
		}
		return []string{"DROP DATABASE " + b.Quote(op.Namespace)}, nil
	}

	return nil, b.Unsupported(op.Kind, "no SQL rendering")
}

// AlterColumn renders a column change as PostgreSQL style ALTER COLUMN clauses
func (b *Builder) AlterColumn(table string, from, to *types.Column) []string {
	var statements []string
	column := b.Quote(to.Name)
	if b.ColumnType(from) != b.ColumnType(to) {
		statements = append(statements, b.AlterTable(table, fmt.Sprintf("ALTER COLUMN %s TYPE %s", column, b.ColumnType(to))))
	}
	if from.IsNullable() != to.IsNullable() {
		if to.IsNullable() {
			statements = append(statements, b.AlterTable(table, fmt.Sprintf("ALTER COLUMN %s DROP NOT NULL", column)))
		} else {
			statements = append(statements, b.AlterTable(table, fmt.Sprintf("ALTER COLUMN %s SET NOT NULL", column)))
		}
	}
	if from.Default != to.Default {
		if to.Default == "" {
			statements = append(statements, b.AlterTable(table, fmt.Sprintf("ALTER COLUMN %s DROP DEFAULT", column)))
		} else {
			statements = append(statements, b.AlterTable(table, fmt.Sprintf("ALTER COLUMN %s SET DEFAULT %s", column, to.Default)))
		}
	}
	return statements
}

// RenameByStrategy handles the dialect independent part of renames: implicit
// renames render nothing, unsupported ones fail and recreated ones become a
// drop and a create rendered through generate. handled is false for native
// renames, which the caller renders itself.
func (b *Builder) RenameByStrategy(op operation.Operation, current *types.Table, generate func(operation.Operation, *types.Table) ([]string, error)) (statements []string, handled bool, err error) {
	if !op.Kind.IsRename() {
		return nil, false, nil
	}
	switch b.Caps.RenameStrategy(op.Kind) {
	case Native:
		return nil, false, nil
	case Implicit:
		return nil, true, nil
	case Recreate:
		drop, create, err := RecreateOperations(op, current)
		if err != nil {
			return nil, true, err
		}
		dropSQL, err := generate(drop, current)
		if err != nil {
			return nil, true, err
		}
		afterDrop, err := drop.Apply(current)
		if err != nil {
			return nil, true, err
		}
		createSQL, err := generate(create, afterDrop)
		if err != nil {
			return nil, true, err
		}
		return append(dropSQL, createSQL...), true, nil
	default:
		return nil, true, b.Unsupported(op.Kind, "no rename statement and no fallback")
	}
}

// RecreateOperations returns the drop and create pair that stands in for an
// object rename.
func RecreateOperations(op operation.Operation, current *types.Table) (operation.Operation, operation.Operation, error) {
	none := operation.Operation{}
	notFound := errors.NewConfigurationError(fmt.Sprintf("cannot recreate %s: object not found", op.OldName), op.Table)
	if current == nil {
		return none, none, notFound
	}

	switch op.Kind {
	case operation.RenameIndex:
		for _, index := range current.Indexes {
			if index.Name == op.OldName {
				renamed := index
				renamed.Name = op.NewName
				return operation.NewDropIndex(op.Table, index), operation.NewCreateIndex(op.Table, renamed), nil
			}
		}
	case operation.RenameUnique:
		for _, unique := range current.Uniques {
			if unique.Name == op.OldName {
				renamed := unique
				renamed.Name = op.NewName
				return operation.NewDropUnique(op.Table, unique), operation.NewCreateUnique(op.Table, renamed), nil
			}
		}
	case operation.RenameCheck:
		for _, check := range current.Checks {
			if check.Name == op.OldName {
				renamed := check
				renamed.Name = op.NewName
				return operation.NewDropCheck(op.Table, check), operation.NewCreateCheck(op.Table, renamed), nil
			}
		}
	case operation.RenameForeignKey:
		for _, fk := range current.ForeignKeys {
			if fk.Name == op.OldName {
				renamed := fk
				renamed.Name = op.NewName
				return operation.NewDropForeignKey(op.Table, fk), operation.NewCreateForeignKey(op.Table, renamed), nil
			}
		}
	case operation.RenamePrimaryKey:
		if current.PrimaryKey != nil && current.PrimaryKey.Name == op.OldName {
			renamed := *current.PrimaryKey
			renamed.Name = op.NewName
			return operation.NewDropPrimaryKey(op.Table, *current.PrimaryKey), operation.NewCreatePrimaryKey(op.Table, renamed), nil
		}
	case operation.RenameSequence:
		for _, seq := range current.Sequences {
			if seq.Name == op.OldName {
				renamed := seq
				renamed.Name = op.NewName
				return operation.NewDropSequence(op.Table, seq), operation.NewCreateSequence(op.Table, renamed), nil
			}
		}
	default:
		return none, none, errors.NewDialectUnsupportedError("", string(op.Kind), "cannot be recreated")
	}
	return none, none, notFound
}

// SplitList splits a comma separated catalog value, dropping blanks
func SplitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// StripParens removes redundant outer parentheses catalogs add around
// check expressions.
func StripParens(expression string) string {
	expression = strings.TrimSpace(expression)
	for strings.HasPrefix(expression, "(") && strings.HasSuffix(expression, ")") && balanced(expression[1:len(expression)-1]) {
		expression = strings.TrimSpace(expression[1 : len(expression)-1])
	}
	return expression
}

func balanced(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
