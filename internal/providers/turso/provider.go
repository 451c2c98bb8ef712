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
package turso

import (
	"fmt"

	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/providers/sqlite"
	"github.com/ocomsoft/schemasync/internal/types"
)

// Provider implements the Provider interface for Turso
// Turso is a distributed SQLite-compatible database for edge computing. Its
// libSQL engine can alter a column in place, which plain SQLite cannot.
type Provider struct {
	*sqlite.Provider
}

// Capabilities returns the Turso capability set
func Capabilities() dialect.Capabilities {
	caps := sqlite.Capabilities()
	caps.Name = string(types.DatabaseTurso)
	caps.Operations[dialect.OpAlterColumn] = true
	return caps
}

// New creates a new Turso provider
func New() *Provider {
	return &Provider{Provider: sqlite.NewWithCapabilities(Capabilities())}
}

// GenerateSQL renders op as libSQL statements
func (p *Provider) GenerateSQL(op operation.Operation, current *types.Table) ([]string, error) {
	if op.Kind == operation.ChangeColumn {
		if err := op.Validate(); err != nil {
			return nil, err
		}
		if op.Column.Generation == types.GenerationIncrement || op.OldColumn.Generation == types.GenerationIncrement {
			// the auto increment key lives in the table definition
			return p.Rebuild(op, current)
		}
		return []string{p.AlterTable(op.Table, fmt.Sprintf("ALTER COLUMN %s TO %s",
			p.QuoteName(op.OldColumn.Name), p.ColumnSQL(nil, op.Column)))}, nil
	}
	return p.Provider.GenerateSQL(op, current)
}
