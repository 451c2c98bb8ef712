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
	"reflect"
	"testing"

	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/types"
)

func TestProvider_QuoteName(t *testing.T) {
	provider := New()

	tests := []struct {
		input    string
		expected string
	}{
		{"users", `"users"`},
		{"user_id", `"user_id"`},
	}

	for _, test := range tests {
		result := provider.QuoteName(test.input)
		if result != test.expected {
			t.Errorf("QuoteName(%s) = %s; expected %s", test.input, result, test.expected)
		}
	}
}

func TestProvider_ConvertColumnType(t *testing.T) {
	provider := New()

	tests := []struct {
		column   types.Column
		expected string
	}{
		{types.Column{Type: "varchar", Length: 255}, "VARCHAR(255)"},
		{types.Column{Type: "integer"}, "INTEGER"},
		{types.Column{Type: "integer", Generation: types.GenerationIncrement}, "INTEGER GENERATED BY DEFAULT AS IDENTITY"},
		{types.Column{Type: "uuid"}, "UUID"},
		{types.Column{Type: "jsonb"}, "JSONB"},
	}

	for _, test := range tests {
		result := provider.ConvertColumnType(&test.column)
		if result != test.expected {
			t.Errorf("ConvertColumnType(%+v) = %s; expected %s", test.column, result, test.expected)
		}
	}
}

func TestProvider_GenerateCreateTable(t *testing.T) {
	provider := New()
	notNull := false

	table := &types.Table{
		Name: "users",
		Columns: []types.Column{
			{Name: "id", Type: "integer", Nullable: &notNull, Generation: types.GenerationIncrement},
			{Name: "email", Type: "varchar", Length: 255},
		},
		PrimaryKey: &types.PrimaryKey{Name: "PK_users_id", Columns: []string{"id"}},
		Indexes:    []types.Index{{Name: "IDX_users_email", Columns: []string{"email"}}},
	}

	result, err := provider.GenerateSQL(operation.NewCreateTable(table, false), nil)
	if err != nil {
		t.Fatalf("GenerateSQL() returned error: %v", err)
	}

	expected := []string{
		`CREATE TABLE "users" (
    "id" INTEGER GENERATED BY DEFAULT AS IDENTITY NOT NULL,
    "email" VARCHAR(255),
    CONSTRAINT "PK_users_id" PRIMARY KEY ("id")
)`,
		`CREATE INDEX ASYNC "IDX_users_email" ON "users" ("email")`,
	}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("GenerateSQL() = %q; expected %q", result, expected)
	}
}

func TestProvider_Unsupported(t *testing.T) {
	provider := New()
	fk := types.ForeignKey{Name: "FK_posts_user_id_users", Columns: []string{"user_id"}, ReferencedTable: "users", ReferencedColumns: []string{"id"}}

	ops := []operation.Operation{
		operation.NewCreateForeignKey("posts", fk),
		operation.NewCreateSequence("posts", types.Sequence{Name: "posts_id_seq", Column: "id"}),
		operation.NewCreateTable(&types.Table{Name: "posts", Columns: []types.Column{{Name: "user_id", Type: "integer"}}, ForeignKeys: []types.ForeignKey{fk}}, false),
		operation.NewCreateIndex("posts", types.Index{Name: "IDX_posts_user_id", Columns: []string{"user_id"}, Where: "user_id > 0"}),
	}
	for _, op := range ops {
		if _, err := provider.GenerateSQL(op, nil); !errors.IsDialectUnsupportedError(err) {
			t.Errorf("GenerateSQL(%s) error = %v; expected DialectUnsupportedError", op.Kind, err)
		}
	}
}

func TestProvider_Capabilities(t *testing.T) {
	provider := New()
	if provider.Name() != "auroradsql" {
		t.Errorf("Name() = %s; expected auroradsql", provider.Name())
	}
	if provider.MaxIdentifierLength() != 63 {
		t.Errorf("MaxIdentifierLength() = %d; expected 63", provider.MaxIdentifierLength())
	}
	if provider.SupportsOperation("FOREIGN_KEYS") || provider.SupportsOperation("SEQUENCES") {
		t.Error("foreign keys and sequences should be unsupported")
	}
	if !provider.SupportsOperation("RENAME_COLUMN") {
		t.Error("RENAME_COLUMN should be supported")
	}
}
