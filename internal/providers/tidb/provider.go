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
package tidb

import (
	"context"

	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/providers/mysql"
	"github.com/ocomsoft/schemasync/internal/types"
)

// Provider implements the Provider interface for TiDB.
// TiDB speaks the MySQL protocol and DDL but does not enforce check constraints.
type Provider struct {
	*mysql.Provider
}

// New creates a new TiDB provider
func New() *Provider {
	caps := mysql.Capabilities()
	caps.Name = string(types.DatabaseTiDB)
	delete(caps.Operations, dialect.OpCheckConstraints)
	caps.Renames[operation.RenameCheck] = dialect.Unsupported
	return &Provider{Provider: mysql.NewWithCapabilities(caps)}
}

// GenerateSQL renders op as TiDB statements
func (p *Provider) GenerateSQL(op operation.Operation, current *types.Table) ([]string, error) {
	switch op.Kind {
	case operation.CreateCheck, operation.DropCheck, operation.RenameCheck:
		return nil, p.Unsupported(op.Kind, "TiDB does not enforce check constraints")
	case operation.CreateTable:
		if len(op.Definition.Checks) > 0 {
			return nil, p.Unsupported(operation.CreateCheck, "TiDB does not enforce check constraints")
		}
	}
	return p.Provider.GenerateSQL(op, current)
}

// IntrospectTable reads a table without check constraints
func (p *Provider) IntrospectTable(ctx context.Context, q dialect.Querier, name string) (*types.Table, error) {
	return mysql.Introspect(ctx, q, name, false)
}
