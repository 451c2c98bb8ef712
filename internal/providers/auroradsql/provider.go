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
package auroradsql

import (
	"strings"

	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/providers/postgresql"
	"github.com/ocomsoft/schemasync/internal/types"
)

// Provider implements the Provider interface for Aurora DSQL
// Aurora DSQL is AWS's serverless, distributed SQL database. It speaks the
// PostgreSQL dialect without foreign keys or sequences, and builds indexes
// asynchronously.
type Provider struct {
	*postgresql.Provider
}

// Capabilities returns the Aurora DSQL capability set
func Capabilities() dialect.Capabilities {
	caps := postgresql.Capabilities()
	caps.Name = string(types.DatabaseAuroraDSQL)
	for _, op := range []string{dialect.OpForeignKeys, dialect.OpSequences, dialect.OpOwnedSequences, dialect.OpPartialIndexes, dialect.OpDatabases} {
		delete(caps.Operations, op)
	}
	delete(caps.Renames, operation.RenameForeignKey)
	delete(caps.Renames, operation.RenameSequence)
	return caps
}

// New creates a new Aurora DSQL provider
func New() *Provider {
	p := &Provider{Provider: postgresql.NewWithCapabilities(Capabilities())}
	p.Provider.ColumnType = p.ConvertColumnType
	return p
}

// ConvertColumnType converts a portable column type to an Aurora DSQL type.
// Auto increment columns become identity columns, since SERIAL needs a
// sequence.
func (p *Provider) ConvertColumnType(column *types.Column) string {
	if column.Generation == types.GenerationIncrement {
		c := column.Clone()
		c.Generation = types.GenerationIdentity
		return p.Provider.ConvertColumnType(&c)
	}
	return p.Provider.ConvertColumnType(column)
}

// NormalizeTable reshapes a declared table the way Aurora DSQL stores it
func (p *Provider) NormalizeTable(table *types.Table) *types.Table {
	t := table.Clone()
	for i := range t.Columns {
		if t.Columns[i].Generation == types.GenerationIncrement {
			t.Columns[i].Generation = types.GenerationIdentity
		}
	}
	t.Sequences = nil
	return t
}

// CreateIndexAsync renders CREATE INDEX ASYNC
func (p *Provider) CreateIndexAsync(table string, index *types.Index) string {
	return strings.Replace(p.CreateIndex(table, index), "INDEX ", "INDEX ASYNC ", 1)
}

// GenerateSQL renders op as Aurora DSQL statements
func (p *Provider) GenerateSQL(op operation.Operation, current *types.Table) ([]string, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	switch op.Kind {
	case operation.CreateForeignKey, operation.DropForeignKey, operation.RenameForeignKey:
		return nil, p.Unsupported(op.Kind, "Aurora DSQL does not support foreign keys")
	case operation.CreateSequence, operation.DropSequence, operation.RenameSequence:
		return nil, p.Unsupported(op.Kind, "Aurora DSQL does not support sequences")
	case operation.CreateDatabase, operation.DropDatabase:
		return nil, p.Unsupported(op.Kind, "Aurora DSQL clusters hold a single database")
	case operation.CreateTable:
		if len(op.Definition.ForeignKeys) > 0 {
			return nil, p.Unsupported(operation.CreateForeignKey, "Aurora DSQL does not support foreign keys")
		}
		for i := range op.Definition.Indexes {
			if op.Definition.Indexes[i].Where != "" {
				return nil, p.Unsupported(operation.CreateIndex, "Aurora DSQL does not support partial indexes")
			}
		}
		return p.CreateTableWith(op.Definition, op.IfNotExists, p.ColumnSQL, p.CreateIndexAsync), nil
	case operation.CreateIndex:
		if op.Index.Where != "" {
			return nil, p.Unsupported(op.Kind, "Aurora DSQL does not support partial indexes")
		}
		return []string{p.CreateIndexAsync(op.Table, op.Index)}, nil
	}
	return p.Provider.GenerateSQL(op, current)
}

// LockSQL is not available; Aurora DSQL has no advisory locks
func (p *Provider) LockSQL(key string) (string, string) {
	return "", ""
}
