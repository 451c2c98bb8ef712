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
package migration

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/state"
	"github.com/ocomsoft/schemasync/internal/types"
)

// Pair holds the statements for one operation and the statements that
// undo it.
type Pair struct {
	Operation operation.Operation
	Up        []string
	Down      []string
}

// Migration is a goose SQL migration built from statement pairs
type Migration struct {
	Number        int
	Name          string
	Filename      string
	Pairs         []Pair
	UpSQL         string
	DownSQL       string
	IsDestructive bool
}

// Up returns the forward statements in execution order
func (m *Migration) Up() []string {
	var out []string
	for _, p := range m.Pairs {
		out = append(out, p.Up...)
	}
	return out
}

// Down returns the undo statements in execution order, last pair first
func (m *Migration) Down() []string {
	var out []string
	for i := len(m.Pairs) - 1; i >= 0; i-- {
		out = append(out, m.Pairs[i].Down...)
	}
	return out
}

// Options controls migration rendering
type Options struct {
	IncludeDownSQL      bool
	ReviewCommentPrefix string
	// DestructiveOperations lists operation kinds that get a review comment
	DestructiveOperations []string
}

type Generator struct {
	stateManager *state.Manager
	options      Options
	verbose      bool
}

func New(stateManager *state.Manager, options Options, verbose bool) *Generator {
	return &Generator{
		stateManager: stateManager,
		options:      options,
		verbose:      verbose,
	}
}

// GenerateMigration numbers and renders pairs as the next migration
func (g *Generator) GenerateMigration(pairs []Pair, customName string) (*Migration, error) {
	number, err := g.stateManager.GetNextMigrationNumber()
	if err != nil {
		return nil, err
	}

	name := customName
	if name == "" {
		name = generateName(pairs)
	}
	name = sanitizeName(name)

	m := &Migration{
		Number:   number,
		Name:     name,
		Filename: fmt.Sprintf("%05d_%s.sql", number, name),
		Pairs:    pairs,
	}
	for _, p := range pairs {
		if g.isDestructive(p.Operation.Kind) {
			m.IsDestructive = true
		}
	}
	m.UpSQL = g.buildUpMigration(m)
	m.DownSQL = g.buildDownMigration(m)

	if g.verbose {
		fmt.Printf("Generated migration: %s\n", m.Filename)
		if m.IsDestructive {
			fmt.Println("  Warning: Contains destructive operations")
		}
	}

	return m, nil
}

func (g *Generator) isDestructive(kind operation.Kind) bool {
	for _, k := range g.options.DestructiveOperations {
		if strings.EqualFold(k, string(kind)) {
			return true
		}
	}
	return false
}

func (g *Generator) buildUpMigration(m *Migration) string {
	var sql strings.Builder
	sql.WriteString("-- +goose Up\n")
	for _, p := range m.Pairs {
		if len(p.Up) == 0 {
			continue
		}
		if g.isDestructive(p.Operation.Kind) && g.options.ReviewCommentPrefix != "" {
			sql.WriteString(g.options.ReviewCommentPrefix + p.Operation.Describe() + "\n")
		}
		for _, stmt := range p.Up {
			writeStatement(&sql, stmt)
		}
	}
	return sql.String()
}

func (g *Generator) buildDownMigration(m *Migration) string {
	var sql strings.Builder
	sql.WriteString("-- +goose Down\n")
	if !g.options.IncludeDownSQL {
		sql.WriteString("-- Down migration disabled by configuration\n")
		return sql.String()
	}
	for i := len(m.Pairs) - 1; i >= 0; i-- {
		for _, stmt := range m.Pairs[i].Down {
			writeStatement(&sql, stmt)
		}
	}
	return sql.String()
}

// writeStatement terminates stmt for goose. Statements with their own
// semicolons, like T-SQL batches, are fenced so goose sends them whole.
func writeStatement(sql *strings.Builder, stmt string) {
	stmt = strings.TrimSuffix(strings.TrimSpace(stmt), ";")
	if strings.Contains(stmt, ";") {
		sql.WriteString("-- +goose StatementBegin\n")
		sql.WriteString(stmt + ";\n")
		sql.WriteString("-- +goose StatementEnd\n")
		return
	}
	sql.WriteString(stmt + ";\n")
}

func generateName(pairs []Pair) string {
	var operations []string
	seen := make(map[string]bool)
	tables := make(map[string]bool)

	for _, p := range pairs {
		op := p.Operation
		table := strings.ToLower(types.UnqualifiedName(op.Table))
		var name string
		switch op.Kind {
		case operation.CreateTable:
			name = "create_" + table
		case operation.DropTable:
			name = "drop_" + table
		case operation.RenameTable:
			name = "rename_" + table + "_to_" + strings.ToLower(types.UnqualifiedName(op.NewName))
		case operation.AddColumn:
			name = "add_" + op.Column.Name + "_to_" + table
		case operation.DropColumn:
			name = "remove_" + op.Column.Name + "_from_" + table
		case operation.CreateSchema, operation.CreateDatabase:
			name = "create_" + op.Namespace
		default:
			if op.Cascaded {
				continue
			}
			name = "alter_" + table
		}
		if table != "" {
			tables[table] = true
		}
		if !seen[name] {
			seen[name] = true
			operations = append(operations, name)
		}
	}

	if len(operations) > 0 {
		if len(operations) <= 2 {
			return strings.Join(operations, "_and_")
		}
		return fmt.Sprintf("migrate_%d_tables", len(tables))
	}
	return "migration"
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

func sanitizeName(name string) string {
	name = unsafeName.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if len(name) > 100 {
		name = name[:100]
	}
	if name == "" {
		name = "migration"
	}
	return name
}
