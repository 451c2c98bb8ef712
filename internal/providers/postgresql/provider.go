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
package postgresql

import (
	"fmt"

	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/types"
)

// Provider implements the Provider interface for PostgreSQL
type Provider struct {
	dialect.Builder
}

// Capabilities returns the PostgreSQL capability set
func Capabilities() dialect.Capabilities {
	return dialect.Capabilities{
		Name:                string(types.DatabasePostgreSQL),
		MaxIdentifierLength: 63,
		Operations: map[string]bool{
			dialect.OpRenameTable:       true,
			dialect.OpRenameColumn:      true,
			dialect.OpDropColumn:        true,
			dialect.OpAlterColumn:       true,
			dialect.OpAlterConstraint:   true,
			dialect.OpSequences:         true,
			dialect.OpOwnedSequences:    true,
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

// New creates a new PostgreSQL provider
func New() *Provider {
	return NewWithCapabilities(Capabilities())
}

// NewWithCapabilities creates a PostgreSQL-syntax provider with a different
// capability set, for PostgreSQL compatible engines.
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

// MaxIdentifierLength returns the identifier length limit
func (p *Provider) MaxIdentifierLength() int {
	return p.Caps.MaxIdentifierLength
}

// QuoteName quotes database identifiers for PostgreSQL
func (p *Provider) QuoteName(name string) string {
	return fmt.Sprintf(`"%s"`, name)
}

// SupportsOperation checks if PostgreSQL supports a specific operation
func (p *Provider) SupportsOperation(operation string) bool {
	return p.Caps.Supports(operation)
}

// RenameStrategy returns how PostgreSQL renames objects of the given kind
func (p *Provider) RenameStrategy(kind operation.Kind) dialect.RenameStrategy {
	return p.Caps.RenameStrategy(kind)
}

// ConvertColumnType converts a portable column type to a PostgreSQL-specific SQL type
func (p *Provider) ConvertColumnType(column *types.Column) string {
	if column.Generation == types.GenerationIncrement {
		if column.Type == "bigint" {
			return "BIGSERIAL"
		}
		return "SERIAL"
	}
	base := p.BaseType(column)
	if column.Generation == types.GenerationIdentity {
		return base + " GENERATED BY DEFAULT AS IDENTITY"
	}
	return base
}

// BaseType returns the storage type without generation clauses
func (p *Provider) BaseType(column *types.Column) string {
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

// ColumnSQL renders a column definition, adding the uuid default
func (p *Provider) ColumnSQL(column *types.Column) string {
	if column.Generation == types.GenerationUUID && column.Default == "" {
		c := column.Clone()
		c.Default = "gen_random_uuid()"
		return p.ColumnDefinition(&c)
	}
	return p.ColumnDefinition(column)
}

// GenerateSQL renders op as PostgreSQL statements
func (p *Provider) GenerateSQL(op operation.Operation, current *types.Table) ([]string, error) {
	if statements, handled, err := p.RenameByStrategy(op, current, p.GenerateSQL); handled {
		return statements, err
	}

	switch op.Kind {
	case operation.CreateTable:
		return p.CreateTableWith(op.Definition, op.IfNotExists, p.ColumnSQL, p.CreateIndex), nil
	case operation.AddColumn:
		return []string{p.AlterTable(op.Table, "ADD COLUMN "+p.ColumnSQL(op.Column))}, nil
	case operation.ChangeColumn:
		return p.AlterColumnSQL(op.Table, op.OldColumn, op.Column)
	case operation.CreateSequence:
		statements := []string{"CREATE SEQUENCE " + p.sequenceName(op.Table, op.Sequence.Name)}
		if owner := p.owningColumn(op, current); owner != "" {
			statements[0] += fmt.Sprintf(" OWNED BY %s.%s", p.Ident(op.Table), p.QuoteName(owner))
			statements = append(statements, p.AlterTable(op.Table, fmt.Sprintf("ALTER COLUMN %s SET DEFAULT nextval('%s')",
				p.QuoteName(owner), p.sequenceName(op.Table, op.Sequence.Name))))
		}
		return statements, nil
	case operation.DropSequence:
		var statements []string
		if owner := p.owningColumn(op, current); owner != "" {
			statements = append(statements, p.AlterTable(op.Table, fmt.Sprintf("ALTER COLUMN %s DROP DEFAULT", p.QuoteName(owner))))
		}
		return append(statements, "DROP SEQUENCE "+p.sequenceName(op.Table, op.Sequence.Name)), nil
	case operation.CreateDatabase:
		// No IF NOT EXISTS form; the runner checks the catalog first.
		return []string{"CREATE DATABASE " + p.QuoteName(op.Namespace)}, nil
	}

	return p.Generate(op, current)
}

func (p *Provider) sequenceName(table, name string) string {
	q := types.ParseTableName(table)
	if q.Schema == "" {
		return p.QuoteName(name)
	}
	return p.QuoteName(q.Schema) + "." + p.QuoteName(name)
}

// owningColumn returns the sequence's column when it exists in the table
func (p *Provider) owningColumn(op operation.Operation, current *types.Table) string {
	if op.Sequence.Column == "" || op.Table == "" || current == nil {
		return ""
	}
	if current.GetColumnByName(op.Sequence.Column) == nil {
		return ""
	}
	return op.Sequence.Column
}

// AlterColumnSQL renders ALTER COLUMN clauses for a column change
func (p *Provider) AlterColumnSQL(table string, from, to *types.Column) ([]string, error) {
	var statements []string
	column := p.QuoteName(to.Name)

	if from.Generation != to.Generation {
		switch {
		case from.Generation == types.GenerationIdentity && to.Generation == "":
			statements = append(statements, p.AlterTable(table, fmt.Sprintf("ALTER COLUMN %s DROP IDENTITY", column)))
		case from.Generation == "" && to.Generation == types.GenerationIdentity:
			statements = append(statements, p.AlterTable(table, fmt.Sprintf("ALTER COLUMN %s ADD GENERATED BY DEFAULT AS IDENTITY", column)))
		case from.Generation == types.GenerationUUID || to.Generation == types.GenerationUUID:
			// handled through the default below
		default:
			return nil, p.Unsupported(operation.ChangeColumn, fmt.Sprintf("cannot change generation of %s from %q to %q", to.Name, from.Generation, to.Generation))
		}
	}

	if p.BaseType(from) != p.BaseType(to) {
		statements = append(statements, p.AlterTable(table, fmt.Sprintf("ALTER COLUMN %s TYPE %s USING %s::%s",
			column, p.BaseType(to), column, p.BaseType(to))))
	}
	if from.IsNullable() != to.IsNullable() {
		if to.IsNullable() {
			statements = append(statements, p.AlterTable(table, fmt.Sprintf("ALTER COLUMN %s DROP NOT NULL", column)))
		} else {
			statements = append(statements, p.AlterTable(table, fmt.Sprintf("ALTER COLUMN %s SET NOT NULL", column)))
		}
	}

	fromDefault, toDefault := effectiveDefault(from), effectiveDefault(to)
	if fromDefault != toDefault {
		if toDefault == "" {
			statements = append(statements, p.AlterTable(table, fmt.Sprintf("ALTER COLUMN %s DROP DEFAULT", column)))
		} else {
			statements = append(statements, p.AlterTable(table, fmt.Sprintf("ALTER COLUMN %s SET DEFAULT %s", column, toDefault)))
		}
	}
	return statements, nil
}

func effectiveDefault(column *types.Column) string {
	if column.Generation == types.GenerationUUID && column.Default == "" {
		return "gen_random_uuid()"
	}
	return column.Default
}

// LockSQL returns the session level advisory lock statements
func (p *Provider) LockSQL(key string) (string, string) {
	return fmt.Sprintf("SELECT pg_advisory_lock(hashtext('%s'))", key),
		fmt.Sprintf("SELECT pg_advisory_unlock(hashtext('%s'))", key)
}
