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
package sqlite

import (
	"context"
	"database/sql"
	"reflect"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/types"
)

func notNull() *bool {
	v := false
	return &v
}

func nullable() *bool {
	v := true
	return &v
}

func usersTable() *types.Table {
	return &types.Table{
		Name: "users",
		Columns: []types.Column{
			{Name: "id", Type: "integer", Nullable: notNull(), Generation: types.GenerationIncrement},
			{Name: "email", Type: "varchar", Length: 255, Nullable: notNull()},
		},
		PrimaryKey: &types.PrimaryKey{Name: "PK_users_id", Columns: []string{"id"}},
	}
}

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	// every connection to :memory: is a new database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func exec(t *testing.T, db *sql.DB, statements []string) {
	t.Helper()
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to execute %q: %v", stmt, err)
		}
	}
}

func TestProvider_ConvertColumnType(t *testing.T) {
	provider := New()

	tests := []struct {
		column   types.Column
		expected string
	}{
		{types.Column{Type: "varchar", Length: 100}, "VARCHAR(100)"},
		{types.Column{Type: "varchar"}, "VARCHAR"},
		{types.Column{Type: "decimal", Precision: 10, Scale: 2}, "DECIMAL(10,2)"},
		{types.Column{Type: "boolean"}, "BOOLEAN"},
		{types.Column{Type: "float"}, "REAL"},
		{types.Column{Type: "unknown"}, "TEXT"},
	}

	for _, test := range tests {
		result := provider.ConvertColumnType(&test.column)
		if result != test.expected {
			t.Errorf("ConvertColumnType(%+v) = %s; expected %s", test.column, result, test.expected)
		}
		if back := ConvertSQLType(result); test.column.Type != "unknown" && back.Type != test.column.Type {
			t.Errorf("ConvertSQLType(%s).Type = %s; expected %s", result, back.Type, test.column.Type)
		}
	}
}

func TestProvider_CreateTableInlinesAutoIncrement(t *testing.T) {
	provider := New()
	result := provider.CreateTableSQL(usersTable(), false)

	expected := "CREATE TABLE \"users\" (\n" +
		"    \"id\" INTEGER NOT NULL CONSTRAINT \"PK_users_id\" PRIMARY KEY AUTOINCREMENT,\n" +
		"    \"email\" VARCHAR(255) NOT NULL\n" +
		")"
	if len(result) != 1 || result[0] != expected {
		t.Errorf("CreateTableSQL() = %q; expected %q", result, expected)
	}
}

func TestProvider_NormalizeTable(t *testing.T) {
	provider := New()
	table := &types.Table{
		Name: "events",
		Columns: []types.Column{
			{Name: "id", Type: "bigint", Generation: types.GenerationIdentity},
			{Name: "counter", Type: "integer", Generation: types.GenerationIncrement},
		},
		PrimaryKey: &types.PrimaryKey{Name: "PK_events_id", Columns: []string{"id"}},
	}

	normalized := provider.NormalizeTable(table)
	if c := normalized.Columns[0]; c.Generation != types.GenerationIncrement || c.Type != "integer" {
		t.Errorf("id = %+v; expected an integer increment column", c)
	}
	if c := normalized.Columns[1]; c.Generation != "" {
		t.Errorf("counter generation = %q; expected none outside the primary key", c.Generation)
	}
	if table.Columns[0].Generation != types.GenerationIdentity {
		t.Error("NormalizeTable() modified its input")
	}
}

func TestProvider_Rebuild(t *testing.T) {
	provider := New()
	op := operation.NewCreateUnique("users", types.Unique{Name: "UQ_users_email", Columns: []string{"email"}})

	result, err := provider.GenerateSQL(op, usersTable())
	if err != nil {
		t.Fatalf("GenerateSQL() returned error: %v", err)
	}

	expected := []string{
		"PRAGMA foreign_keys = OFF",
		"CREATE TABLE \"temporary_users\" (\n" +
			"    \"id\" INTEGER NOT NULL CONSTRAINT \"PK_users_id\" PRIMARY KEY AUTOINCREMENT,\n" +
			"    \"email\" VARCHAR(255) NOT NULL,\n" +
			"    CONSTRAINT \"UQ_users_email\" UNIQUE (\"email\")\n" +
			")",
		`INSERT INTO "temporary_users" ("id", "email") SELECT "id", "email" FROM "users"`,
		`DROP TABLE "users"`,
		`ALTER TABLE "temporary_users" RENAME TO "users"`,
		"PRAGMA foreign_keys = ON",
	}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("GenerateSQL() =\n%q\nexpected\n%q", result, expected)
	}
}

func TestProvider_GenerateSQL(t *testing.T) {
	provider := New()
	nickname := types.Column{Name: "nickname", Type: "text"}

	tests := []struct {
		name     string
		op       operation.Operation
		expected []string
	}{
		{
			name:     "add nullable column",
			op:       operation.NewAddColumn("users", nickname),
			expected: []string{`ALTER TABLE "users" ADD COLUMN "nickname" TEXT`},
		},
		{
			name:     "rename column",
			op:       operation.NewRenameColumn("users", "email", "mail"),
			expected: []string{`ALTER TABLE "users" RENAME COLUMN "email" TO "mail"`},
		},
		{
			name:     "rename table",
			op:       operation.NewRenameTable("users", "members"),
			expected: []string{`ALTER TABLE "users" RENAME TO "members"`},
		},
		{
			name:     "drop index",
			op:       operation.NewDropIndex("users", types.Index{Name: "IDX_users_email", Columns: []string{"email"}}),
			expected: []string{`DROP INDEX "IDX_users_email"`},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result, err := provider.GenerateSQL(test.op, usersTable())
			if err != nil {
				t.Fatalf("GenerateSQL() returned error: %v", err)
			}
			if !reflect.DeepEqual(result, test.expected) {
				t.Errorf("GenerateSQL() = %q; expected %q", result, test.expected)
			}
		})
	}
}

func TestProvider_AddColumnInsideRebuilds(t *testing.T) {
	provider := New()
	op := operation.NewAddColumn("users", types.Column{Name: "nickname", Type: "text"})
	op.Position = operation.ColumnPosition{After: "id"}

	result, err := provider.GenerateSQL(op, usersTable())
	if err != nil {
		t.Fatalf("GenerateSQL() returned error: %v", err)
	}
	if len(result) < 2 || result[0] != "PRAGMA foreign_keys = OFF" {
		t.Fatalf("GenerateSQL() = %q; expected a table rebuild", result)
	}
	create := result[1]
	nickname, email := strings.Index(create, `"nickname"`), strings.Index(create, `"email"`)
	if nickname < 0 || email < 0 || nickname > email {
		t.Errorf("rebuilt table = %s; expected nickname before email", create)
	}
}

func TestProvider_RenameIndexRecreates(t *testing.T) {
	provider := New()
	table := usersTable()
	table.Indexes = []types.Index{{Name: "IDX_users_email", Columns: []string{"email"}}}

	result, err := provider.GenerateSQL(operation.NewRename(operation.RenameIndex, "users", "IDX_users_email", "IDX_members_email"), table)
	if err != nil {
		t.Fatalf("GenerateSQL() returned error: %v", err)
	}
	expected := []string{
		`DROP INDEX "IDX_users_email"`,
		`CREATE INDEX "IDX_members_email" ON "users" ("email")`,
	}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("GenerateSQL() = %q; expected %q", result, expected)
	}
}

func TestProvider_SequencesUnsupported(t *testing.T) {
	_, err := New().GenerateSQL(operation.NewCreateSequence("users", types.Sequence{Name: "users_id_seq", Column: "id"}), usersTable())
	if !errors.IsDialectUnsupportedError(err) {
		t.Errorf("expected DialectUnsupportedError, got %v", err)
	}
}

func TestParseConstraintNames(t *testing.T) {
	createSQL := `CREATE TABLE "posts" (
    "id" INTEGER NOT NULL CONSTRAINT "PK_posts_id" PRIMARY KEY AUTOINCREMENT,
    "user_id" INTEGER NOT NULL,
    "slug" VARCHAR(50),
    CONSTRAINT "UQ_posts_slug_user_id" UNIQUE ("user_id", "slug"),
    CONSTRAINT "CHK_posts_1a2b3c4d" CHECK (length("slug") > 0),
    CONSTRAINT "FK_posts_user_id_users" FOREIGN KEY ("user_id") REFERENCES "users" ("id") ON DELETE CASCADE
)`

	named := ParseConstraintNames(createSQL)
	if named.PrimaryKey != "PK_posts_id" {
		t.Errorf("PrimaryKey = %s; expected PK_posts_id", named.PrimaryKey)
	}
	if name := named.Uniques["slug,user_id"]; name != "UQ_posts_slug_user_id" {
		t.Errorf("Uniques[slug,user_id] = %q; expected UQ_posts_slug_user_id", name)
	}
	if name := named.ForeignKeys["user_id->users"]; name != "FK_posts_user_id_users" {
		t.Errorf("ForeignKeys[user_id->users] = %q; expected FK_posts_user_id_users", name)
	}
	expectedChecks := []types.Check{{Name: "CHK_posts_1a2b3c4d", Expression: `length("slug") > 0`}}
	if !reflect.DeepEqual(named.Checks, expectedChecks) {
		t.Errorf("Checks = %+v; expected %+v", named.Checks, expectedChecks)
	}
}

func TestProvider_IntrospectRoundTrip(t *testing.T) {
	ctx := context.Background()
	provider := New()
	db := openMemory(t)

	users := usersTable()
	users.Columns = append(users.Columns,
		types.Column{Name: "name", Type: "text", Nullable: nullable()},
		types.Column{Name: "created_at", Type: "timestamp", Nullable: nullable(), Default: "CURRENT_TIMESTAMP"},
	)
	users.Uniques = []types.Unique{{Name: "UQ_users_email", Columns: []string{"email"}}}
	users.Indexes = []types.Index{{Name: "IDX_users_name", Columns: []string{"name"}}}
	users.Checks = []types.Check{{Name: "CHK_users_email", Expression: "length(email) > 3"}}

	posts := &types.Table{
		Name: "posts",
		Columns: []types.Column{
			{Name: "id", Type: "integer", Nullable: notNull(), Generation: types.GenerationIncrement},
			{Name: "user_id", Type: "integer", Nullable: notNull()},
		},
		PrimaryKey: &types.PrimaryKey{Name: "PK_posts_id", Columns: []string{"id"}},
		ForeignKeys: []types.ForeignKey{{
			Name: "FK_posts_user_id_users", Columns: []string{"user_id"},
			ReferencedTable: "users", ReferencedColumns: []string{"id"}, OnDelete: "CASCADE",
		}},
	}

	exec(t, db, provider.CreateTableSQL(users, false))
	exec(t, db, provider.CreateTableSQL(posts, false))

	tables, err := provider.ListTables(ctx, db)
	if err != nil {
		t.Fatalf("ListTables() returned error: %v", err)
	}
	if !reflect.DeepEqual(tables, []string{"posts", "users"}) {
		t.Errorf("ListTables() = %v; expected [posts users]", tables)
	}

	got, err := provider.IntrospectTable(ctx, db, "users")
	if err != nil {
		t.Fatalf("IntrospectTable() returned error: %v", err)
	}
	if !reflect.DeepEqual(got.Columns, users.Columns) {
		t.Errorf("Columns = %+v; expected %+v", got.Columns, users.Columns)
	}
	if !reflect.DeepEqual(got.PrimaryKey, users.PrimaryKey) {
		t.Errorf("PrimaryKey = %+v; expected %+v", got.PrimaryKey, users.PrimaryKey)
	}
	if !reflect.DeepEqual(got.Uniques, users.Uniques) {
		t.Errorf("Uniques = %+v; expected %+v", got.Uniques, users.Uniques)
	}
	if !reflect.DeepEqual(got.Indexes, users.Indexes) {
		t.Errorf("Indexes = %+v; expected %+v", got.Indexes, users.Indexes)
	}
	if !reflect.DeepEqual(got.Checks, users.Checks) {
		t.Errorf("Checks = %+v; expected %+v", got.Checks, users.Checks)
	}

	gotPosts, err := provider.IntrospectTable(ctx, db, "posts")
	if err != nil {
		t.Fatalf("IntrospectTable() returned error: %v", err)
	}
	if !reflect.DeepEqual(gotPosts.ForeignKeys, posts.ForeignKeys) {
		t.Errorf("ForeignKeys = %+v; expected %+v", gotPosts.ForeignKeys, posts.ForeignKeys)
	}

	missing, err := provider.IntrospectTable(ctx, db, "absent")
	if err != nil || missing != nil {
		t.Errorf("IntrospectTable(absent) = %v, %v; expected nil, nil", missing, err)
	}
}

func TestProvider_RebuildOnLiveDatabase(t *testing.T) {
	ctx := context.Background()
	provider := New()
	db := openMemory(t)

	users := usersTable()
	exec(t, db, provider.CreateTableSQL(users, false))
	exec(t, db, []string{`INSERT INTO "users" ("email") VALUES ('a@example.com')`})

	op := operation.NewCreateUnique("users", types.Unique{Name: "UQ_users_email", Columns: []string{"email"}})
	statements, err := provider.GenerateSQL(op, users)
	if err != nil {
		t.Fatalf("GenerateSQL() returned error: %v", err)
	}
	exec(t, db, statements)

	got, err := provider.IntrospectTable(ctx, db, "users")
	if err != nil {
		t.Fatalf("IntrospectTable() returned error: %v", err)
	}
	if len(got.Uniques) != 1 || got.Uniques[0].Name != "UQ_users_email" {
		t.Errorf("Uniques = %+v; expected UQ_users_email", got.Uniques)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM "users"`).Scan(&count); err != nil || count != 1 {
		t.Errorf("row count = %d, %v; expected 1 row kept", count, err)
	}
}
