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
package mysql

import (
	"fmt"
	"strings"

	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/types"
)

// PrimaryKeyName is the fixed name MySQL gives every primary key
const PrimaryKeyName = "PRIMARY"

// Provider implements the Provider interface for MySQL
type Provider struct {
	dialect.Builder
}

// Capabilities returns the MySQL capability set
func Capabilities() dialect.Capabilities {
	return dialect.Capabilities{
		Name:                string(types.DatabaseMySQL),
		MaxIdentifierLength: 64,
		Operations: map[string]bool{
			dialect.OpRenameTable:      true,
			dialect.OpRenameColumn:     true,
			dialect.OpDropColumn:       true,
			dialect.OpAlterColumn:      true,
			dialect.OpAlterConstraint:  true,
			dialect.OpIndexes:          true,
			dialect.OpCheckConstraints: true,
			dialect.OpForeignKeys:      true,
			dialect.OpSchemas:          true,
			dialect.OpDatabases:        true,
		},
		Renames: map[operation.Kind]dialect.RenameStrategy{
			operation.RenameTable:      dialect.Native,
			operation.RenameColumn:     dialect.Native,
			operation.RenameIndex:      dialect.Native,
			operation.RenameUnique:     dialect.Native,
			operation.RenameCheck:      dialect.Recreate,
			operation.RenameForeignKey: dialect.Recreate,
			operation.RenamePrimaryKey: dialect.Implicit,
		},
	}
}

// New creates a new MySQL provider
func New() *Provider {
	return NewWithCapabilities(Capabilities())
}

// NewWithCapabilities creates a MySQL-syntax provider with a different
// capability set, for MySQL compatible engines.
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

// QuoteName quotes database identifiers for MySQL
func (p *Provider) QuoteName(name string) string {
	return fmt.Sprintf("`%s`", name)
}

// SupportsOperation checks if MySQL supports a specific operation
func (p *Provider) SupportsOperation(operation string) bool {
	return p.Caps.Supports(operation)
}

// RenameStrategy returns how MySQL renames objects of the given kind
func (p *Provider) RenameStrategy(kind operation.Kind) dialect.RenameStrategy {
	return p.Caps.RenameStrategy(kind)
}

// ConvertColumnType converts a portable column type to a MySQL-specific SQL type
func (p *Provider) ConvertColumnType(column *types.Column) string {
	var sqlType string
	switch column.Type {
	case "varchar":
		length := column.Length
		if length == 0 {
			length = 255
		}
		sqlType = fmt.Sprintf("VARCHAR(%d)", length)
	case "text":
		sqlType = "TEXT"
	case "integer":
		sqlType = "INT"
	case "bigint":
		sqlType = "BIGINT"
	case "float":
		sqlType = "FLOAT"
	case "decimal":
		if column.Precision > 0 {
			sqlType = fmt.Sprintf("DECIMAL(%d,%d)", column.Precision, column.Scale)
		} else {
			sqlType = "DECIMAL"
		}
	case "boolean":
		sqlType = "TINYINT(1)"
	case "date":
		sqlType = "DATE"
	case "time":
		sqlType = "TIME"
	case "timestamp":
		sqlType = "TIMESTAMP"
	case "uuid":
		sqlType = "CHAR(36)"
	case "json", "jsonb":
		sqlType = "JSON"
	default:
		sqlType = "TEXT"
	}

	switch column.Generation {
	case types.GenerationIncrement, types.GenerationIdentity:
		sqlType += " AUTO_INCREMENT"
	}
	return sqlType
}

// ColumnSQL renders a column definition, adding the uuid default
func (p *Provider) ColumnSQL(column *types.Column) string {
	if column.Generation == types.GenerationUUID && column.Default == "" {
		c := column.Clone()
		c.Default = "(UUID())"
		return p.ColumnDefinition(&c)
	}
	return p.ColumnDefinition(column)
}

// NormalizeTable reshapes a declared table the way MySQL stores it: unique
// indexes are unique constraints, the primary key is always named PRIMARY
// and JSONB is plain JSON.
func (p *Provider) NormalizeTable(table *types.Table) *types.Table {
	t := table.Clone()
	if t.PrimaryKey != nil {
		t.PrimaryKey.Name = PrimaryKeyName
	}
	var indexes []types.Index
	for _, index := range t.Indexes {
		if index.Unique && index.Where == "" {
			t.Uniques = append(t.Uniques, types.Unique{Name: index.Name, Columns: index.Columns})
			continue
		}
		indexes = append(indexes, index)
	}
	t.Indexes = indexes
	for i := range t.Columns {
		if t.Columns[i].Type == "jsonb" {
			t.Columns[i].Type = "json"
		}
		if t.Columns[i].Generation == types.GenerationIdentity {
			t.Columns[i].Generation = types.GenerationIncrement
		}
	}
	return t
}

// GenerateSQL renders op as MySQL statements
func (p *Provider) GenerateSQL(op operation.Operation, current *types.Table) ([]string, error) {
	if statements, handled, err := p.RenameByStrategy(op, current, p.GenerateSQL); handled {
		return statements, err
	}
	if err := op.Validate(); err != nil {
		return nil, err
	}

	switch op.Kind {
	case operation.CreateTable:
		for _, index := range op.Definition.Indexes {
			if index.Where != "" {
				return nil, p.Unsupported(operation.CreateIndex, "partial index "+index.Name)
			}
		}
		definition := op.Definition.Clone()
		if definition.PrimaryKey != nil {
			definition.PrimaryKey.Name = ""
		}
		return p.CreateTableWith(definition, op.IfNotExists, p.ColumnSQL, p.CreateIndex), nil
	case operation.RenameTable:
		return []string{fmt.Sprintf("RENAME TABLE %s TO %s", p.Ident(op.OldName), p.Ident(renamedQualified(op)))}, nil
	case operation.AddColumn:
		clause := "ADD COLUMN " + p.ColumnSQL(op.Column)
		if !op.Position.Appends(current) {
			if op.Position.First {
				clause += " FIRST"
			} else {
				clause += " AFTER " + p.QuoteName(op.Position.After)
			}
		}
		return []string{p.AlterTable(op.Table, clause)}, nil
	case operation.ChangeColumn:
		return []string{p.AlterTable(op.Table, "MODIFY COLUMN "+p.ColumnSQL(op.Column))}, nil

	case operation.CreateIndex:
		if op.Index.Where != "" {
			return nil, p.Unsupported(op.Kind, "partial index "+op.Index.Name)
		}
	case operation.DropIndex:
		return []string{fmt.Sprintf("DROP INDEX %s ON %s", p.QuoteName(op.Index.Name), p.Ident(op.Table))}, nil
	case operation.RenameIndex, operation.RenameUnique:
		return []string{p.AlterTable(op.Table, fmt.Sprintf("RENAME INDEX %s TO %s", p.QuoteName(op.OldName), p.QuoteName(op.NewName)))}, nil

	case operation.DropUnique:
		return []string{p.AlterTable(op.Table, "DROP INDEX "+p.QuoteName(op.Unique.Name))}, nil
	case operation.DropForeignKey:
		return []string{p.AlterTable(op.Table, "DROP FOREIGN KEY "+p.QuoteName(op.ForeignKey.Name))}, nil
	case operation.DropCheck:
		return []string{p.AlterTable(op.Table, "DROP CHECK "+p.QuoteName(op.Check.Name))}, nil
	case operation.CreatePrimaryKey:
		return []string{p.AlterTable(op.Table, "ADD PRIMARY KEY ("+p.ColumnList(op.PrimaryKey.Columns)+")")}, nil
	case operation.DropPrimaryKey:
		return []string{p.AlterTable(op.Table, "DROP PRIMARY KEY")}, nil

	case operation.CreateSequence, operation.DropSequence, operation.RenameSequence:
		return nil, p.Unsupported(op.Kind, "MySQL has no sequences; use AUTO_INCREMENT")
	}

	return p.Generate(op, current)
}

func renamedQualified(op operation.Operation) string {
	if strings.Contains(op.NewName, ".") {
		return op.NewName
	}
	return types.ParseTableName(op.OldName).WithName(op.NewName).String()
}

// LockSQL returns named lock statements
func (p *Provider) LockSQL(key string) (string, string) {
	return fmt.Sprintf("SELECT GET_LOCK('%s', -1)", key),
		fmt.Sprintf("SELECT RELEASE_LOCK('%s')", key)
}
