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
	"reflect"
	"testing"

	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/types"
)

func ansiBuilder(renames map[operation.Kind]RenameStrategy) *Builder {
	return &Builder{
		Caps:       Capabilities{Name: "ansi", Renames: renames},
		Quote:      func(name string) string { return `"` + name + `"` },
		ColumnType: func(c *types.Column) string { return c.Type },
	}
}

func TestStripParens(t *testing.T) {
	tests := map[string]string{
		"((age > 0))":           "age > 0",
		"(a > 0) AND (b > 0)":   "(a > 0) AND (b > 0)",
		"((a > 0) AND (b > 0))": "(a > 0) AND (b > 0)",
	}
	for input, expected := range tests {
		if got := StripParens(input); got != expected {
			t.Errorf("StripParens(%s) = %s; expected %s", input, got, expected)
		}
	}
}

func TestSplitList(t *testing.T) {
	if got := SplitList(" a, b ,,c "); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("SplitList() = %v; expected [a b c]", got)
	}
}

func TestBuilder_Ident(t *testing.T) {
	b := ansiBuilder(nil)
	if got := b.Ident("app.users"); got != `"app"."users"` {
		t.Errorf("Ident(app.users) = %s", got)
	}
}

func TestBuilder_ForeignKeyClause(t *testing.T) {
	b := ansiBuilder(nil)
	fk := &types.ForeignKey{
		Name: "FK_posts_user_id_users", Columns: []string{"user_id"},
		ReferencedTable: "users", ReferencedColumns: []string{"id"}, OnDelete: "cascade",
	}
	expected := `CONSTRAINT "FK_posts_user_id_users" FOREIGN KEY ("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`
	if got := b.ForeignKeyClause(fk); got != expected {
		t.Errorf("ForeignKeyClause() = %s; expected %s", got, expected)
	}
}

func TestBuilder_RenameByStrategy(t *testing.T) {
	b := ansiBuilder(map[operation.Kind]RenameStrategy{
		operation.RenameIndex:      Recreate,
		operation.RenamePrimaryKey: Implicit,
		operation.RenameColumn:     Native,
	})
	current := &types.Table{
		Name:       "users",
		Columns:    []types.Column{{Name: "email", Type: "text"}},
		Indexes:    []types.Index{{Name: "IDX_users_email", Columns: []string{"email"}}},
		PrimaryKey: &types.PrimaryKey{Name: "PK_users", Columns: []string{"email"}},
	}

	statements, handled, err := b.RenameByStrategy(operation.NewRename(operation.RenameIndex, "users", "IDX_users_email", "IDX_members_email"), current, b.Generate)
	if err != nil || !handled {
		t.Fatalf("RenameByStrategy(recreate) = %v, %v", handled, err)
	}
	expected := []string{`DROP INDEX "IDX_users_email"`, `CREATE INDEX "IDX_members_email" ON "users" ("email")`}
	if !reflect.DeepEqual(statements, expected) {
		t.Errorf("RenameByStrategy(recreate) = %q; expected %q", statements, expected)
	}

	statements, handled, err = b.RenameByStrategy(operation.NewRename(operation.RenamePrimaryKey, "users", "PK_users", "PK_members"), current, b.Generate)
	if err != nil || !handled || len(statements) != 0 {
		t.Errorf("RenameByStrategy(implicit) = %q, %v, %v; expected no statements", statements, handled, err)
	}

	_, handled, _ = b.RenameByStrategy(operation.NewRenameColumn("users", "email", "mail"), current, b.Generate)
	if handled {
		t.Error("RenameByStrategy(native) should leave the rename to the caller")
	}

	_, _, err = b.RenameByStrategy(operation.NewRename(operation.RenameSequence, "users", "a", "b"), current, b.Generate)
	if !errors.IsDialectUnsupportedError(err) {
		t.Errorf("RenameByStrategy(unsupported) error = %v; expected DialectUnsupportedError", err)
	}

	_, _, err = b.RenameByStrategy(operation.NewRename(operation.RenameIndex, "users", "IDX_missing", "IDX_other"), current, b.Generate)
	if !errors.IsConfigurationError(err) {
		t.Errorf("RenameByStrategy(missing) error = %v; expected ConfigurationError", err)
	}
}

func TestCapabilities_RenameStrategy(t *testing.T) {
	caps := Capabilities{Renames: map[operation.Kind]RenameStrategy{operation.RenameTable: Native}}
	if caps.RenameStrategy(operation.RenameTable) != Native {
		t.Error("RenameTable should be native")
	}
	if caps.RenameStrategy(operation.RenameIndex) != Unsupported {
		t.Error("unknown kinds should be unsupported")
	}
	if Recreate.String() != "recreate" {
		t.Errorf("Recreate.String() = %s", Recreate.String())
	}
}
