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
package providers

import (
	"context"

	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/types"
)

// Provider defines the interface for database-specific SQL generation and
// catalog introspection. The synchronization core only talks to dialects
// through this interface.
type Provider interface {
	// Capabilities
	Name() string
	MaxIdentifierLength() int
	SupportsOperation(operation string) bool
	RenameStrategy(kind operation.Kind) dialect.RenameStrategy

	// DDL Generation. current is the table before op runs; it may be nil
	// for table creation and namespace operations.
	GenerateSQL(op operation.Operation, current *types.Table) ([]string, error)

	// Type Conversion
	ConvertColumnType(column *types.Column) string

	// Utilities
	QuoteName(name string) string

	// Database reverse engineering
	ListTables(ctx context.Context, q dialect.Querier) ([]string, error)
	IntrospectTable(ctx context.Context, q dialect.Querier, name string) (*types.Table, error)
	NamespaceExists(ctx context.Context, q dialect.Querier, kind operation.Kind, name string) (bool, error)
}

// Normalizer is implemented by providers that store some objects in a
// different shape than they are declared, so desired snapshots can be
// compared with introspected ones.
type Normalizer interface {
	NormalizeTable(table *types.Table) *types.Table
}

// Locker is implemented by providers with a database level advisory lock
type Locker interface {
	LockSQL(key string) (lock string, unlock string)
}

// Normalize applies the provider's normalization when it has one
func Normalize(p Provider, table *types.Table) *types.Table {
	if n, ok := p.(Normalizer); ok {
		return n.NormalizeTable(table)
	}
	return table.Clone()
}
