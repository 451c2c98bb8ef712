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
package redshift

import (
	"fmt"

	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/types"
)

// Provider implements the Provider interface for Amazon Redshift
// Redshift is based on PostgreSQL but has no indexes, no sequences and no
// check constraints; its other constraints are informational.
type Provider struct {
	dialect.Builder
}

// Capabilities returns the Redshift capability set
func Capabilities() dialect.Capabilities {
	return dialect.Capabilities{
		Name:                string(types.DatabaseRedshift),
		MaxIdentifierLength: 127,
		Operations: map[string]bool{
			dialect.OpRenameTable:       true,
			dialect.OpRenameColumn:      true,
			dialect.OpDropColumn:        true,
			dialect.OpAlterColumn:       true,
			dialect.OpForeignKeys:       true,
			dialect.OpSchemas:           true,
			dialect.OpDatabases:         true,
			dialect.OpSchemaScopedNames: true,
		},
		Renames: map[operation.Kind]dialect.RenameStrategy{
			operation.RenameTable:      dialect.Native,
			operation.RenameColumn:     dialect.Native,
			operation.RenameUnique:     dialect.Recreate,
			operation.RenameForeignKey: dialect.Recreate,
			operation.RenamePrimaryKey: dialect.Recreate,
		},
	}
}

// New creates a new Redshift provider
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

// QuoteName quotes database identifiers for Redshift (same as PostgreSQL)
func (p *Provider) QuoteName(name string) string {
	return fmt.Sprintf(`"%s"`, name)
}

// SupportsOperation checks if Redshift supports a specific operation
func (p *Provider) SupportsOperation(operation string) bool {
	return p.Caps.Supports(operation)
}

// RenameStrategy returns how Redshift renames objects of the given kind
func (p *Provider) RenameStrategy(kind operation.Kind) dialect.RenameStrategy {
	return p.Caps.RenameStrategy(kind)
}

// ConvertColumnType converts a portable column type to a Redshift-specific SQL type
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
		return "VARCHAR(65535)" // Redshift max VARCHAR size
	case "text":
		return "VARCHAR(65535)" // Redshift doesn't have unlimited TEXT type
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
		return "DECIMAL(18,2)"
	case "boolean":
		return "BOOLEAN"
	case "date":
		return "DATE"
	case "time":
		return "TIME"
	case "timestamp":
		return "TIMESTAMP"
	case "uuid":
		return "VARCHAR(36)" // Redshift doesn't have native UUID type
	case "json", "jsonb":
		return "SUPER" // Redshift's native semi-structured type
	default:
		return "VARCHAR(65535)"
	}
}

// NormalizeTable reshapes a declared table into the types Redshift stores
func (p *Provider) NormalizeTable(table *types.Table) *types.Table {
	t := table.Clone()
	for i := range t.Columns {
		column := &t.Columns[i]
		switch column.Type {
		case "text":
			column.Type, column.Length = "varchar", 65535
		case "varchar":
			if column.Length == 0 {
				column.Length = 65535
			}
		case "uuid":
			column.Type, column.Length = "varchar", 36
		case "json":
			column.Type = "jsonb"
		case "decimal":
			if column.Precision == 0 {
				column.Precision, column.Scale = 18, 2
			}
		}
		if column.Generation == types.GenerationIdentity {
			column.Generation = types.GenerationIncrement
		}
	}
	return t
}

func (p *Provider) checkColumn(kind operation.Kind, column *types.Column) error {
	if column.Generation == types.GenerationUUID {
		return p.Unsupported(kind, "Redshift cannot generate uuid values for "+column.Name)
	}
	return nil
}

// GenerateSQL renders op as Redshift statements
func (p *Provider) GenerateSQL(op operation.Operation, current *types.Table) ([]string, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	if statements, handled, err := p.RenameByStrategy(op, current, p.GenerateSQL); handled {
		return statements, err
	}

	switch op.Kind {
	case operation.CreateTable:
		for i := range op.Definition.Columns {
			if err := p.checkColumn(op.Kind, &op.Definition.Columns[i]); err != nil {
				return nil, err
			}
		}
		if len(op.Definition.Indexes) > 0 {
			return nil, p.Unsupported(operation.CreateIndex, "Redshift has no indexes; use sort and distribution keys")
		}
		if len(op.Definition.Checks) > 0 {
			return nil, p.Unsupported(operation.CreateCheck, "Redshift has no check constraints")
		}
		return p.CreateTable(op.Definition, op.IfNotExists), nil
	case operation.AddColumn:
		if err := p.checkColumn(op.Kind, op.Column); err != nil {
			return nil, err
		}
	case operation.ChangeColumn:
		return p.alterColumnSQL(op)
	case operation.CreateIndex, operation.DropIndex, operation.RenameIndex:
		return nil, p.Unsupported(op.Kind, "Redshift has no indexes; use sort and distribution keys")
	case operation.CreateCheck, operation.DropCheck, operation.RenameCheck:
		return nil, p.Unsupported(op.Kind, "Redshift has no check constraints")
	case operation.CreateSequence, operation.DropSequence, operation.RenameSequence:
		return nil, p.Unsupported(op.Kind, "Redshift uses IDENTITY columns instead of sequences")
	}
	return p.Generate(op, current)
}

// alterColumnSQL renders a column change. Redshift only alters the length
// of VARCHAR columns in place.
func (p *Provider) alterColumnSQL(op operation.Operation) ([]string, error) {
	from, to := op.OldColumn, op.Column
	if from.Type == "varchar" && to.Type == "varchar" && p.sameExceptLength(from, to) {
		return []string{p.AlterTable(op.Table, fmt.Sprintf("ALTER COLUMN %s TYPE %s", p.QuoteName(to.Name), p.baseType(to)))}, nil
	}
	return nil, p.Unsupported(op.Kind, fmt.Sprintf("Redshift can only change the length of VARCHAR columns, not %s", to.Name))
}

func (p *Provider) sameExceptLength(from, to *types.Column) bool {
	a, b := from.Clone(), to.Clone()
	a.Length, b.Length = 0, 0
	return a.SameDefinition(&b)
}
