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
package sqlserver

import (
	"fmt"
	"strings"

	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/types"
)

// Provider implements the Provider interface for SQL Server
type Provider struct {
	dialect.Builder
}

// Capabilities returns the SQL Server capability set
func Capabilities() dialect.Capabilities {
	return dialect.Capabilities{
		Name:                string(types.DatabaseSQLServer),
		MaxIdentifierLength: 128,
		Operations: map[string]bool{
			dialect.OpRenameTable:       true,
			dialect.OpRenameColumn:      true,
			dialect.OpDropColumn:        true,
			dialect.OpAlterColumn:       true,
			dialect.OpAlterConstraint:   true,
			dialect.OpSequences:         true,
			dialect.OpIndexes:           true,
			dialect.OpPartialIndexes:    true,
			dialect.OpCheckConstraints:  true,
			dialect.OpForeignKeys:       true,
			dialect.OpSchemas:           true,
			dialect.OpDatabases:         true,
			dialect.OpSchemaScopedNames: true,
		},
		Renames: map[operation.Kind]dialect.RenameStrategy{
			operation.RenameTable:      dialect.Native,
			operation.RenameColumn:     dialect.Native,
			operation.RenameIndex:      dialect.Native,
			operation.RenameUnique:     dialect.Native,
			operation.RenameCheck:      dialect.Native,
			operation.RenameForeignKey: dialect.Native,
			operation.RenamePrimaryKey: dialect.Native,
			operation.RenameSequence:   dialect.Native,
		},
	}
}

// New creates a new SQL Server provider
func New() *Provider {
	p := &Provider{}
	p.Builder = dialect.Builder{
		Caps:       Capabilities(),
		Quote:      p.QuoteName,
		ColumnType: p.ConvertColumnType,
	}
	return p
}

// Name returns the dialect name
func (p *Provider) Name() string {
	return p.Caps.Name
}

// MaxIdentifierLength returns the identifier length limit
func (p *Provider) MaxIdentifierLength() int {
	return p.Caps.MaxIdentifierLength
}

// QuoteName quotes database identifiers for SQL Server
func (p *Provider) QuoteName(name string) string {
	return fmt.Sprintf("[%s]", strings.ReplaceAll(name, "]", "]]"))
}

// SupportsOperation checks if SQL Server supports a specific operation
func (p *Provider) SupportsOperation(operation string) bool {
	return p.Caps.Supports(operation)
}

// RenameStrategy returns how SQL Server renames objects of the given kind
func (p *Provider) RenameStrategy(kind operation.Kind) dialect.RenameStrategy {
	return p.Caps.RenameStrategy(kind)
}

// ConvertColumnType converts a portable column type to a SQL Server-specific SQL type
func (p *Provider) ConvertColumnType(column *types.Column) string {
	base := p.baseType(column)
	if column.Generation == types.GenerationIncrement || column.Generation == types.GenerationIdentity {
		return base + " IDENTITY(1,1)"
	}
	return base
}

func (p *Provider) baseType(column *types.Column) string {
	switch column.Type {
	case "varchar":
		if column.Length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", column.Length)
		}
		return "NVARCHAR(MAX)"
	case "text":
		return "NVARCHAR(MAX)"
	case "integer":
		return "INT"
	case "bigint":
		return "BIGINT"
	case "float":
		return "FLOAT"
	case "decimal":
		if column.Precision > 0 {
			return fmt.Sprintf("DECIMAL(%d,%d)", column.Precision, column.Scale)
		}
		return "DECIMAL"
	case "boolean":
		return "BIT"
	case "date":
		return "DATE"
	case "time":
		return "TIME"
	case "timestamp":
		return "DATETIME2"
	case "uuid":
		return "UNIQUEIDENTIFIER"
	default:
		return "NVARCHAR(MAX)"
	}
}

// NormalizeTable reshapes a declared table into the types SQL Server stores
func (p *Provider) NormalizeTable(table *types.Table) *types.Table {
	t := table.Clone()
	for i := range t.Columns {
		column := &t.Columns[i]
		switch {
		case column.Type == "json", column.Type == "jsonb", column.Type == "varchar" && column.Length == 0:
			column.Type, column.Length = "text", 0
		case column.Type == "decimal" && column.Precision == 0:
			// DECIMAL without arguments is DECIMAL(18,0)
			column.Precision = 18
		}
		if column.Generation == types.GenerationIdentity {
			column.Generation = types.GenerationIncrement
		}
	}
	return t
}

// ColumnSQL renders a column definition, adding the uuid default
func (p *Provider) ColumnSQL(column *types.Column) string {
	if column.Generation == types.GenerationUUID && column.Default == "" {
		c := column.Clone()
		c.Default = "NEWID()"
		return p.ColumnDefinition(&c)
	}
	return p.ColumnDefinition(column)
}

// literal renders a string as an N'' literal
func literal(value string) string {
	return "N'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// rename renders an sp_rename call. Objects are addressed by their schema
// qualified name, columns and indexes through their table.
func (p *Provider) rename(table, oldName, newName, objectType string) string {
	q := types.ParseTableName(table)
	object := oldName
	switch objectType {
	case "COLUMN", "INDEX":
		object = q.String() + "." + oldName
	case "OBJECT":
		if q.Schema != "" {
			object = q.Schema + "." + oldName
		}
	}
	return fmt.Sprintf("EXEC sp_rename %s, %s, %s", literal(object), literal(newName), literal(objectType))
}

// dropDefault drops the unnamed default constraint SQL Server creates for a
// column default, looking its name up in the catalog.
func (p *Provider) dropDefault(table, column string) string {
	return fmt.Sprintf(`DECLARE @df sysname;
SELECT @df = dc.name FROM sys.default_constraints dc
    JOIN sys.columns c ON c.object_id = dc.parent_object_id AND c.column_id = dc.parent_column_id
    WHERE dc.parent_object_id = OBJECT_ID(%s) AND c.name = %s;
IF @df IS NOT NULL EXEC('ALTER TABLE %s DROP CONSTRAINT [' + @df + ']')`,
		literal(table), literal(column), strings.ReplaceAll(p.Ident(table), "'", "''"))
}

func hasDefault(column *types.Column) bool {
	return column.Default != "" || column.Generation == types.GenerationUUID
}

func effectiveDefault(column *types.Column) string {
	if column.Generation == types.GenerationUUID && column.Default == "" {
		return "NEWID()"
	}
	return column.Default
}

// GenerateSQL renders op as T-SQL statements
func (p *Provider) GenerateSQL(op operation.Operation, current *types.Table) ([]string, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	switch op.Kind {
	case operation.CreateTable:
		return p.CreateTableWith(op.Definition, op.IfNotExists, p.ColumnSQL, p.CreateIndex), nil
	case operation.RenameTable:
		return []string{fmt.Sprintf("EXEC sp_rename %s, %s", literal(op.OldName), literal(types.UnqualifiedName(op.NewName)))}, nil
	case operation.AddColumn:
		return []string{p.AlterTable(op.Table, "ADD "+p.ColumnSQL(op.Column))}, nil
	case operation.DropColumn:
		var statements []string
		if hasDefault(op.Column) {
			statements = append(statements, p.dropDefault(op.Table, op.Column.Name))
		}
		return append(statements, p.AlterTable(op.Table, "DROP COLUMN "+p.QuoteName(op.Column.Name))), nil
	case operation.ChangeColumn:
		return p.alterColumnSQL(op)
	case operation.RenameColumn:
		return []string{p.rename(op.Table, op.OldName, op.NewName, "COLUMN")}, nil
	case operation.DropIndex:
		return []string{fmt.Sprintf("DROP INDEX %s ON %s", p.QuoteName(op.Index.Name), p.Ident(op.Table))}, nil
	case operation.RenameIndex:
		return []string{p.rename(op.Table, op.OldName, op.NewName, "INDEX")}, nil
	case operation.RenameUnique, operation.RenameCheck, operation.RenameForeignKey, operation.RenamePrimaryKey, operation.RenameSequence:
		return []string{p.rename(op.Table, op.OldName, op.NewName, "OBJECT")}, nil
	case operation.CreateSequence:
		return []string{fmt.Sprintf("CREATE SEQUENCE %s%s AS BIGINT START WITH 1 INCREMENT BY 1",
			p.schemaPrefix(op.Table), p.QuoteName(op.Sequence.Name))}, nil
	case operation.CreateSchema:
		// No IF NOT EXISTS form; the runner checks the catalog first.
		return []string{"CREATE SCHEMA " + p.QuoteName(op.Namespace)}, nil
	case operation.CreateDatabase:
		return []string{"CREATE DATABASE " + p.QuoteName(op.Namespace)}, nil
	}
	return p.Generate(op, current)
}

func (p *Provider) schemaPrefix(table string) string {
	if q := types.ParseTableName(table); q.Schema != "" {
		return p.QuoteName(q.Schema) + "."
	}
	return ""
}

// alterColumnSQL renders ALTER COLUMN, which restates the full type and
// nullability, plus default constraint changes.
func (p *Provider) alterColumnSQL(op operation.Operation) ([]string, error) {
	from, to := op.OldColumn, op.Column
	fromIdentity := from.Generation == types.GenerationIncrement || from.Generation == types.GenerationIdentity
	toIdentity := to.Generation == types.GenerationIncrement || to.Generation == types.GenerationIdentity
	if fromIdentity != toIdentity {
		return nil, p.Unsupported(op.Kind, "SQL Server cannot add or remove IDENTITY on an existing column "+to.Name)
	}

	var statements []string
	fromDefault, toDefault := effectiveDefault(from), effectiveDefault(to)
	if fromDefault != toDefault && fromDefault != "" {
		statements = append(statements, p.dropDefault(op.Table, from.Name))
	}
	if p.baseType(from) != p.baseType(to) || from.IsNullable() != to.IsNullable() {
		nullability := "NULL"
		if !to.IsNullable() {
			nullability = "NOT NULL"
		}
		statements = append(statements, p.AlterTable(op.Table, fmt.Sprintf("ALTER COLUMN %s %s %s",
			p.QuoteName(to.Name), p.baseType(to), nullability)))
	}
	if fromDefault != toDefault && toDefault != "" {
		statements = append(statements, p.AlterTable(op.Table, fmt.Sprintf("ADD DEFAULT %s FOR %s", toDefault, p.QuoteName(to.Name))))
	}
	return statements, nil
}

// LockSQL returns session scoped application lock statements
func (p *Provider) LockSQL(key string) (string, string) {
	return fmt.Sprintf("EXEC sp_getapplock @Resource = %s, @LockMode = 'Exclusive', @LockOwner = 'Session'", literal(key)),
		fmt.Sprintf("EXEC sp_releaseapplock @Resource = %s, @LockOwner = 'Session'", literal(key))
}
