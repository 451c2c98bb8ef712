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
	"reflect"
	"testing"

	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/types"
)

func TestProvider_ConvertColumnType(t *testing.T) {
	provider := New()

	tests := []struct {
		column   types.Column
		expected string
	}{
		{types.Column{Type: "varchar", Length: 255}, "VARCHAR(255)"},
		{types.Column{Type: "varchar"}, "VARCHAR(65535)"},
		{types.Column{Type: "text"}, "VARCHAR(65535)"},
		{types.Column{Type: "integer", Generation: types.GenerationIncrement}, "INTEGER IDENTITY(1,1)"},
		{types.Column{Type: "bigint", Generation: types.GenerationIdentity}, "BIGINT IDENTITY(1,1)"},
		{types.Column{Type: "decimal"}, "DECIMAL(18,2)"},
		{types.Column{Type: "uuid"}, "VARCHAR(36)"},
		{types.Column{Type: "jsonb"}, "SUPER"},
	}

	for _, test := range tests {
		result := provider.ConvertColumnType(&test.column)
		if result != test.expected {
			t.Errorf("ConvertColumnType(%+v) = %s; expected %s", test.column, result, test.expected)
		}
	}
}

func TestProvider_RenameStrategy(t *testing.T) {
	provider := New()

	tests := []struct {
		kind     operation.Kind
		expected dialect.RenameStrategy
	}{
		{operation.RenameTable, dialect.Native},
		{operation.RenameColumn, dialect.Native},
		{operation.RenameForeignKey, dialect.Recreate},
		{operation.RenameIndex, dialect.Unsupported},
		{operation.RenameSequence, dialect.Unsupported},
	}

	for _, test := range tests {
		if result := provider.RenameStrategy(test.kind); result != test.expected {
			t.Errorf("RenameStrategy(%s) = %s; expected %s", test.kind, result, test.expected)
		}
	}
}

func TestProvider_UnsupportedOperations(t *testing.T) {
	provider := New()
	table := &types.Table{
		Name:    "events",
		Columns: []types.Column{{Name: "id", Type: "integer"}, {Name: "kind", Type: "varchar", Length: 20}},
		Indexes: []types.Index{{Name: "IDX_events_kind", Columns: []string{"kind"}}},
	}

	ops := []operation.Operation{
		operation.NewCreateIndex("events", table.Indexes[0]),
		operation.NewCreateTable(table, false),
		operation.NewCreateSequence("events", types.Sequence{Name: "events_id_seq", Column: "id"}),
		operation.NewCreateCheck("events", types.Check{Name: "CHK_events", Expression: "id > 0"}),
		operation.NewAddColumn("events", types.Column{Name: "ref", Type: "uuid", Generation: types.GenerationUUID}),
		operation.NewChangeColumn("events", table.Columns[0], types.Column{Name: "id", Type: "bigint"}),
	}
	for _, op := range ops {
		if _, err := provider.GenerateSQL(op, table); !errors.IsDialectUnsupportedError(err) {
			t.Errorf("GenerateSQL(%s) error = %v; expected DialectUnsupportedError", op.Kind, err)
		}
	}
}

func TestProvider_GenerateSQL(t *testing.T) {
	provider := New()
	current := &types.Table{
		Name:        "orders",
		Columns:     []types.Column{{Name: "id", Type: "integer"}, {Name: "note", Type: "varchar", Length: 20}},
		ForeignKeys: []types.ForeignKey{{Name: "FK_orders_id_users", Columns: []string{"id"}, ReferencedTable: "users", ReferencedColumns: []string{"id"}}},
	}

	tests := []struct {
		name     string
		op       operation.Operation
		expected []string
	}{
		{
			name:     "widen varchar",
			op:       operation.NewChangeColumn("orders", current.Columns[1], types.Column{Name: "note", Type: "varchar", Length: 200}),
			expected: []string{`ALTER TABLE "orders" ALTER COLUMN "note" TYPE VARCHAR(200)`},
		},
		{
			name: "rename foreign key recreates it",
			op:   operation.NewRename(operation.RenameForeignKey, "orders", "FK_orders_id_users", "FK_orders_id_members"),
			expected: []string{
				`ALTER TABLE "orders" DROP CONSTRAINT "FK_orders_id_users"`,
				`ALTER TABLE "orders" ADD CONSTRAINT "FK_orders_id_members" FOREIGN KEY ("id") REFERENCES "users" ("id")`,
			},
		},
		{
			name:     "rename column",
			op:       operation.NewRenameColumn("orders", "note", "remark"),
			expected: []string{`ALTER TABLE "orders" RENAME COLUMN "note" TO "remark"`},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result, err := provider.GenerateSQL(test.op, current)
			if err != nil {
				t.Fatalf("GenerateSQL() returned error: %v", err)
			}
			if !reflect.DeepEqual(result, test.expected) {
				t.Errorf("GenerateSQL() = %q; expected %q", result, test.expected)
			}
		})
	}
}

func TestProvider_NormalizeTable(t *testing.T) {
	table := &types.Table{
		Name: "t",
		Columns: []types.Column{
			{Name: "a", Type: "text"},
			{Name: "b", Type: "uuid"},
			{Name: "c", Type: "decimal"},
			{Name: "d", Type: "integer", Generation: types.GenerationIdentity},
		},
	}
	normalized := New().NormalizeTable(table)

	expected := []types.Column{
		{Name: "a", Type: "varchar", Length: 65535},
		{Name: "b", Type: "varchar", Length: 36},
		{Name: "c", Type: "decimal", Precision: 18, Scale: 2},
		{Name: "d", Type: "integer", Generation: types.GenerationIncrement},
	}
	if !reflect.DeepEqual(normalized.Columns, expected) {
		t.Errorf("NormalizeTable() columns = %+v; expected %+v", normalized.Columns, expected)
	}
}
