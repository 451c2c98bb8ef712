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
package sqlite

import (
	"fmt"

	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/types"
)

// UUIDDefault is the expression used for generated uuid columns
const UUIDDefault = "(lower(hex(randomblob(16))))"

// Provider implements the Provider interface for SQLite
type Provider struct {
	dialect.Builder
}

// Capabilities returns the SQLite capability set
func Capabilities() dialect.Capabilities {
	return dialect.Capabilities{
		Name: string(types.DatabaseSQLite),
		Operations: map[string]bool{
			dialect.OpRenameTable:       true,
			dialect.OpRenameColumn:      true,
			dialect.OpDropColumn:        true,
			dialect.OpIndexes:           true,
			dialect.OpPartialIndexes:    true,
			dialect.OpCheckConstraints:  true,
			dialect.OpForeignKeys:       true,
			dialect.OpSchemaScopedNames: true,
		},
		Renames: map[operation.Kind]dialect.RenameStrategy{
			operation.RenameTable:      dialect.Native,
			operation.RenameColumn:     dialect.Native,
			operation.RenameIndex:      dialect.Recreate,
			operation.RenameUnique:     dialect.Recreate,
			operation.RenameCheck:      dialect.Recreate,
			operation.RenameForeignKey: dialect.Recreate,
			operation.RenamePrimaryKey: dialect.Recreate,
		},
	}
}

// New creates a new SQLite provider
func New() *Provider {
	return NewWithCapabilities(Capabilities())
}

// NewWithCapabilities creates a SQLite-syntax provider with a different
// capability set, for SQLite compatible engines.
func NewWithCapabilities(caps dialect.Capabilities) *Provider {
	p := &Provider{}
	p.Builder = dialect.Builder{
		Caps:       caps,
		Quote:      p.QuoteName,
		ColumnType: p.ConvertColumnType,
	}
	return p
}

// Name returns the dialect name
func (p *Provider) Name() string {
	return p.Caps.Name
}

// MaxIdentifierLength returns 0; SQLite does not limit identifier length
func (p *Provider) MaxIdentifierLength() int {
	return p.Caps.MaxIdentifierLength
}

// QuoteName quotes database identifiers for SQLite
func (p *Provider) QuoteName(name string) string {
	return fmt.Sprintf(`"%s"`, name)
}

// SupportsOperation checks if SQLite supports a specific operation
func (p *Provider) SupportsOperation(operation string) bool {
	return p.Caps.Supports(operation)
}

// RenameStrategy returns how SQLite renames objects of the given kind
func (p *Provider) RenameStrategy(kind operation.Kind) dialect.RenameStrategy {
	return p.Caps.RenameStrategy(kind)
}

// ConvertColumnType converts a portable column type to the declared SQLite
// type. SQLite keeps declared types verbatim, so they are chosen to read
// back unambiguously.
func (p *Provider) ConvertColumnType(column *types.Column) string {
	switch column.Type {
	case "varchar":
		if column.Length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", column.Length)
		}
		return "VARCHAR"
	case "text":
		return "TEXT"
	case "integer":
		return "INTEGER"
	case "bigint":
		return "BIGINT"
	case "float":
		return "REAL"
	case "decimal":
		if column.Precision > 0 {
			return fmt.Sprintf("DECIMAL(%d,%d)", column.Precision, column.Scale)
		}
		return "DECIMAL"
	case "boolean":
		return "BOOLEAN"
	case "date":
		return "DATE"
	case "time":
		return "TIME"
	case "timestamp":
		return "TIMESTAMP"
	case "uuid":
		return "UUID"
	case "json":
		return "JSON"
	case "jsonb":
		return "JSONB"
	default:
		return "TEXT"
	}
}

// NormalizeTable reshapes a declared table the way SQLite stores it. Only a
// sole INTEGER primary key can auto increment.
func (p *Provider) NormalizeTable(table *types.Table) *types.Table {
	t := table.Clone()
	for i := range t.Columns {
		column := &t.Columns[i]
		if column.Generation == types.GenerationIdentity {
			column.Generation = types.GenerationIncrement
		}
		if column.Generation == types.GenerationIncrement {
			if !isSolePrimaryKey(t, column.Name) {
				column.Generation = ""
				continue
			}
			column.Type = "integer"
		}
	}
	return t
}

func isSolePrimaryKey(t *types.Table, column string) bool {
	return t.HasPrimaryKey() && len(t.PrimaryKey.Columns) == 1 && t.PrimaryKey.Columns[0] == column
}

// ColumnSQL renders a column definition. An auto increment column carries
// the primary key inline, since SQLite only allows AUTOINCREMENT there.
func (p *Provider) ColumnSQL(table *types.Table, column *types.Column) string {
	c := column.Clone()
	if c.Generation == types.GenerationUUID && c.Default == "" {
		c.Default = UUIDDefault
	}
	def := p.ColumnDefinition(&c)
	if table != nil && c.Generation == types.GenerationIncrement && isSolePrimaryKey(table, c.Name) {
		def = p.QuoteName(c.Name) + " INTEGER NOT NULL "
		if table.PrimaryKey.Name != "" {
			def += "CONSTRAINT " + p.QuoteName(table.PrimaryKey.Name) + " "
		}
		def += "PRIMARY KEY AUTOINCREMENT"
	}
	return def
}

// CreateTableSQL renders CREATE TABLE with the inline auto increment key
func (p *Provider) CreateTableSQL(table *types.Table, ifNotExists bool) []string {
	definition := table.Clone()
	inlineKey := false
	for _, column := range definition.Columns {
		if column.Generation == types.GenerationIncrement && isSolePrimaryKey(definition, column.Name) {
			inlineKey = true
		}
	}
	columnSQL := func(c *types.Column) string { return p.ColumnSQL(table, c) }
	if inlineKey {
		definition.PrimaryKey = nil
	}
	return p.CreateTableWith(definition, ifNotExists, columnSQL, p.CreateIndex)
}

// GenerateSQL renders op as SQLite statements. Constraint changes and
// column changes rebuild the table, since SQLite cannot alter them in place.
func (p *Provider) GenerateSQL(op operation.Operation, current *types.Table) ([]string, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	switch op.Kind {
	case operation.CreateTable:
		return p.CreateTableSQL(op.Definition, op.IfNotExists), nil
	case operation.RenameIndex:
		statements, _, err := p.RenameByStrategy(op, current, p.GenerateSQL)
		return statements, err
	case operation.AddColumn:
		// ADD COLUMN only appends
		if (op.Column.IsNullable() || op.Column.Default != "") && op.Position.Appends(current) {
			return []string{p.AlterTable(op.Table, "ADD COLUMN "+p.ColumnSQL(nil, op.Column))}, nil
		}
		return p.Rebuild(op, current)
	case operation.ChangeColumn,
		operation.CreateUnique, operation.DropUnique, operation.RenameUnique,
		operation.CreateCheck, operation.DropCheck, operation.RenameCheck,
		operation.CreateForeignKey, operation.DropForeignKey, operation.RenameForeignKey,
		operation.CreatePrimaryKey, operation.DropPrimaryKey, operation.RenamePrimaryKey:
		return p.Rebuild(op, current)
	case operation.CreateSequence, operation.DropSequence, operation.RenameSequence:
		return nil, p.Unsupported(op.Kind, "SQLite has no sequences")
	case operation.CreateSchema, operation.DropSchema, operation.CreateDatabase, operation.DropDatabase:
		return nil, p.Unsupported(op.Kind, "databases are attached files in SQLite")
	}
	return p.Generate(op, current)
}

// Rebuild recreates the table with op applied: create a temporary table with
// the new definition, copy the rows, drop the old table, rename the new one
// and recreate its indexes.
func (p *Provider) Rebuild(op operation.Operation, current *types.Table) ([]string, error) {
	if current == nil {
		return nil, p.Unsupported(op.Kind, "table definition required to rebuild "+op.Table)
	}
	after, err := op.Apply(current)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild %s: %w", op.Table, err)
	}

	q := types.ParseTableName(current.Name)
	temporary := after.Clone()
	temporary.Name = q.WithName("temporary_" + q.Name).String()
	temporary.Indexes = nil

	var common []string
	for _, column := range after.Columns {
		if current.GetColumnByName(column.Name) != nil {
			common = append(common, column.Name)
		}
	}

	statements := []string{"PRAGMA foreign_keys = OFF"}
	statements = append(statements, p.CreateTableSQL(temporary, false)...)
	if len(common) > 0 {
		columns := p.ColumnList(common)
		statements = append(statements, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			p.Ident(temporary.Name), columns, columns, p.Ident(current.Name)))
	}
	statements = append(statements,
		"DROP TABLE "+p.Ident(current.Name),
		p.AlterTable(temporary.Name, "RENAME TO "+p.QuoteName(q.Name)),
	)
	for i := range after.Indexes {
		statements = append(statements, p.CreateIndex(after.Name, &after.Indexes[i]))
	}
	return append(statements, "PRAGMA foreign_keys = ON"), nil
}

