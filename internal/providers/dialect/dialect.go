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
	"context"
	"database/sql"

	"github.com/ocomsoft/schemasync/internal/operation"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Operation names accepted by SupportsOperation
const (
	OpRenameTable       = "RENAME_TABLE"
	OpRenameColumn      = "RENAME_COLUMN"
	OpDropColumn        = "DROP_COLUMN"
	OpAlterColumn       = "ALTER_COLUMN"
	OpAlterConstraint   = "ALTER_CONSTRAINT"
	OpSequences         = "SEQUENCES"
	OpOwnedSequences    = "OWNED_SEQUENCES"
	OpIndexes           = "INDEXES"
	OpPartialIndexes    = "PARTIAL_INDEXES"
	OpCheckConstraints  = "CHECK_CONSTRAINTS"
	OpForeignKeys       = "FOREIGN_KEYS"
	OpSchemas           = "SCHEMAS"
	OpDatabases         = "DATABASES"
	OpSchemaScopedNames = "SCHEMA_SCOPED_NAMES"
)

// RenameStrategy describes how a dialect renames an object
type RenameStrategy int

const (
	// Unsupported renames surface as DialectUnsupportedError
	Unsupported RenameStrategy = iota
	// Native renames use a single rename statement
	Native
	// Recreate drops the object and creates it under the new name
	Recreate
	// Implicit renames happen as a side effect of another change, or the
	// dialect does not keep the name at all
	Implicit
)

func (s RenameStrategy) String() string {
	switch s {
	case Native:
		return "native"
	case Recreate:
		return "recreate"
	case Implicit:
		return "implicit"
	default:
		return "unsupported"
	}
}

// Capabilities is the static description of a dialect
type Capabilities struct {
	Name                string
	MaxIdentifierLength int
	Operations          map[string]bool
	Renames             map[operation.Kind]RenameStrategy
}

// Supports reports whether the named operation is available
func (c Capabilities) Supports(op string) bool {
	return c.Operations[op]
}

// RenameStrategy returns how kind is renamed; unknown kinds are unsupported
func (c Capabilities) RenameStrategy(kind operation.Kind) RenameStrategy {
	if s, ok := c.Renames[kind]; ok {
		return s
	}
	return Unsupported
}

// Exists runs a COUNT(*) query and reports whether it found any row
func Exists(ctx context.Context, q Querier, query string, args ...any) (bool, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return false, err
		}
	}
	return count > 0, rows.Err()
}
