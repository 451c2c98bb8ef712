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
package synchronizer

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/executor"
	"github.com/ocomsoft/schemasync/internal/migration"
	"github.com/ocomsoft/schemasync/internal/naming"
	"github.com/ocomsoft/schemasync/internal/providers"
	"github.com/ocomsoft/schemasync/internal/state"
	"github.com/ocomsoft/schemasync/internal/types"
)

func newMemorySynchronizer(t *testing.T, dbType types.DatabaseType, options Options) (*Synchronizer, MemoryTarget) {
	t.Helper()
	provider, err := providers.NewProvider(dbType)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	names, err := naming.New(NamingConfig(provider, 0, 8, false))
	if err != nil {
		t.Fatalf("naming.New() error = %v", err)
	}
	target := NewMemoryTarget(state.NewRunner(nil, provider))
	return New(target, provider, names, options, false), target
}

func academic(name, renamedFrom string) *types.Table {
	return &types.Table{
		Name:        name,
		RenamedFrom: renamedFrom,
		Columns: []types.Column{
			{Name: "id", Type: "integer", Generation: types.GenerationIncrement},
			{Name: "title", Type: "varchar", Length: 100},
		},
		PrimaryKey: &types.PrimaryKey{Columns: []string{"id"}},
		Indexes:    []types.Index{{Columns: []string{"title"}}},
	}
}

func sequenceOf(t *testing.T, target MemoryTarget, table string) string {
	t.Helper()
	current, err := target.GetTable(context.Background(), table)
	if err != nil {
		t.Fatalf("GetTable(%s) error = %v", table, err)
	}
	if current == nil {
		t.Fatalf("table %s does not exist", table)
	}
	if len(current.Sequences) != 1 {
		t.Fatalf("table %s has %d sequences; expected 1", table, len(current.Sequences))
	}
	return current.Sequences[0].Name
}

func assertAbsent(t *testing.T, target MemoryTarget, tables ...string) {
	t.Helper()
	for _, name := range tables {
		current, err := target.GetTable(context.Background(), name)
		if err != nil {
			t.Fatalf("GetTable(%s) error = %v", name, err)
		}
		if current != nil {
			t.Errorf("table %s exists; expected it absent", name)
		}
	}
}

func TestRenameReplayScenario(t *testing.T) {
	ctx := context.Background()
	sync, target := newMemorySynchronizer(t, types.DatabasePostgreSQL, Options{Mode: executor.ModeMemoryReplay})

	applied, err := sync.Synchronize(ctx, []*types.Table{academic("faculty", "")})
	if err != nil {
		t.Fatalf("Synchronize(faculty) error = %v", err)
	}
	if len(applied) == 0 {
		t.Fatalf("Synchronize(faculty) applied nothing")
	}
	if got := sequenceOf(t, target, "faculty"); got != "faculty_id_seq" {
		t.Errorf("sequence = %q; expected %q", got, "faculty_id_seq")
	}
	sync.ClearSQLMemory()

	if _, err := sync.Synchronize(ctx, []*types.Table{academic("question", "faculty")}); err != nil {
		t.Fatalf("Synchronize(question) error = %v", err)
	}
	if got := sequenceOf(t, target, "question"); got != "question_id_seq" {
		t.Errorf("sequence = %q; expected %q", got, "question_id_seq")
	}
	question, _ := target.GetTable(ctx, "question")
	if question.PrimaryKey.Name != "PK_question_id" {
		t.Errorf("PrimaryKey.Name = %q; expected %q", question.PrimaryKey.Name, "PK_question_id")
	}
	if question.Indexes[0].Name != "IDX_question_title" {
		t.Errorf("Indexes[0].Name = %q; expected %q", question.Indexes[0].Name, "IDX_question_title")
	}
	assertAbsent(t, target, "faculty")

	if _, err := sync.Synchronize(ctx, []*types.Table{academic("answer", "question")}); err != nil {
		t.Fatalf("Synchronize(answer) error = %v", err)
	}
	if got := sequenceOf(t, target, "answer"); got != "answer_id_seq" {
		t.Errorf("sequence = %q; expected %q", got, "answer_id_seq")
	}
	assertAbsent(t, target, "faculty", "question")

	if err := sync.Revert(ctx); err != nil {
		t.Fatalf("Revert() error = %v", err)
	}
	if got := sequenceOf(t, target, "faculty"); got != "faculty_id_seq" {
		t.Errorf("sequence = %q; expected %q", got, "faculty_id_seq")
	}
	faculty, _ := target.GetTable(ctx, "faculty")
	if faculty.Indexes[0].Name != "IDX_faculty_title" {
		t.Errorf("Indexes[0].Name = %q; expected %q", faculty.Indexes[0].Name, "IDX_faculty_title")
	}
	assertAbsent(t, target, "question", "answer")
	if n := len(sync.DownLog()); n != 0 {
		t.Errorf("len(DownLog()) = %d; expected 0 after replay", n)
	}

	applied, err = sync.Synchronize(ctx, []*types.Table{academic("faculty", "")})
	if err != nil {
		t.Fatalf("Synchronize(faculty) again error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("Synchronize(faculty) again applied %d operations; expected 0", len(applied))
	}
}

type shape struct {
	columns     []string
	indexes     []string
	foreignKeys []string
}

func shapeOf(table *types.Table) shape {
	var s shape
	for _, c := range table.Columns {
		s.columns = append(s.columns, c.Name)
	}
	for _, i := range table.Indexes {
		s.indexes = append(s.indexes, fmt.Sprintf("%s%v unique=%v", i.Name, i.Columns, i.Unique))
	}
	for _, fk := range table.ForeignKeys {
		s.foreignKeys = append(s.foreignKeys, fmt.Sprintf("%s%v->%s%v delete=%s", fk.Name, fk.Columns, fk.ReferencedTable, fk.ReferencedColumns, fk.OnDelete))
	}
	sort.Strings(s.indexes)
	sort.Strings(s.foreignKeys)
	return s
}

func schoolSchema(columns []string, indexed []string, onDelete string) []*types.Table {
	faculty := &types.Table{
		Name:       "faculty",
		Columns:    []types.Column{{Name: "id", Type: "integer", Generation: types.GenerationIncrement}},
		PrimaryKey: &types.PrimaryKey{Columns: []string{"id"}},
	}
	for _, name := range columns {
		faculty.Columns = append(faculty.Columns, types.Column{Name: name, Type: "varchar", Length: 50})
	}
	for _, name := range indexed {
		faculty.Indexes = append(faculty.Indexes, types.Index{Columns: []string{name}})
	}
	question := &types.Table{
		Name: "question",
		Columns: []types.Column{
			{Name: "id", Type: "integer", Generation: types.GenerationIncrement},
			{Name: "faculty_id", Type: "integer"},
			{Name: "body", Type: "text"},
		},
		PrimaryKey: &types.PrimaryKey{Columns: []string{"id"}},
		ForeignKeys: []types.ForeignKey{{
			Columns: []string{"faculty_id"}, ReferencedTable: "faculty", ReferencedColumns: []string{"id"}, OnDelete: onDelete,
		}},
	}
	return []*types.Table{faculty, question}
}

func TestRevertRestoresShape(t *testing.T) {
	tests := []struct {
		name   string
		before []*types.Table
		after  []*types.Table
	}{
		{
			"middle column dropped",
			schoolSchema([]string{"a", "b"}, nil, ""),
			schoolSchema([]string{"b"}, nil, ""),
		},
		{
			"adjacent columns dropped",
			schoolSchema([]string{"a", "b", "c", "d"}, nil, ""),
			schoolSchema([]string{"a", "d"}, nil, ""),
		},
		{
			"indexed column dropped and index set changed",
			schoolSchema([]string{"title", "code", "room"}, []string{"title", "room"}, ""),
			schoolSchema([]string{"code", "room"}, []string{"code"}, ""),
		},
		{
			"foreign key dropped and created again",
			schoolSchema([]string{"title"}, []string{"title"}, ""),
			schoolSchema([]string{"title"}, []string{"title"}, "CASCADE"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			sync, target := newMemorySynchronizer(t, types.DatabasePostgreSQL, Options{Mode: executor.ModeMemoryReplay})
			if _, err := sync.Synchronize(ctx, tt.before); err != nil {
				t.Fatalf("Synchronize(before) error = %v", err)
			}
			sync.ClearSQLMemory()

			expected := make(map[string]shape)
			for _, table := range tt.before {
				current, _ := target.GetTable(ctx, table.Name)
				expected[table.Name] = shapeOf(current)
			}

			applied, err := sync.Synchronize(ctx, tt.after)
			if err != nil {
				t.Fatalf("Synchronize(after) error = %v", err)
			}
			if len(applied) == 0 {
				t.Fatalf("Synchronize(after) applied nothing")
			}
			if err := sync.Revert(ctx); err != nil {
				t.Fatalf("Revert() error = %v", err)
			}

			for name, want := range expected {
				current, err := target.GetTable(ctx, name)
				if err != nil || current == nil {
					t.Fatalf("GetTable(%s) = %v, %v", name, current, err)
				}
				if got := shapeOf(current); !reflect.DeepEqual(got, want) {
					t.Errorf("%s after Revert() = %+v; expected %+v", name, got, want)
				}
			}
		})
	}
}

func TestPlanDoesNotTouchTarget(t *testing.T) {
	ctx := context.Background()
	sync, target := newMemorySynchronizer(t, types.DatabasePostgreSQL, Options{})

	plan, err := sync.Plan(ctx, []*types.Table{academic("faculty", "")})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Empty() {
		t.Fatalf("Plan() is empty; expected operations")
	}
	if len(plan.Pairs) != len(plan.Operations) {
		t.Errorf("len(Pairs) = %d; expected %d", len(plan.Pairs), len(plan.Operations))
	}
	if len(plan.Tables) != 1 || plan.Tables[0].Name != "faculty" {
		t.Errorf("plan.Tables = %v; expected [faculty]", plan.Tables)
	}
	assertAbsent(t, target, "faculty")
}

func TestGenerateMigration(t *testing.T) {
	ctx := context.Background()
	manager := state.New(t.TempDir(), false)
	generator := migration.New(manager, migration.Options{IncludeDownSQL: true}, false)
	sync, target := newMemorySynchronizer(t, types.DatabasePostgreSQL, Options{Migrations: generator})

	question := academic("question", "")
	question.Columns = append(question.Columns, types.Column{Name: "faculty_id", Type: "integer"})
	question.ForeignKeys = []types.ForeignKey{
		{Columns: []string{"faculty_id"}, ReferencedTable: "faculty", ReferencedColumns: []string{"id"}},
	}
	desired := []*types.Table{question, academic("faculty", "")}

	m, err := sync.GenerateMigration(ctx, desired)
	if err != nil {
		t.Fatalf("GenerateMigration() error = %v", err)
	}
	if m == nil {
		t.Fatalf("GenerateMigration() = nil; expected a migration")
	}
	if !strings.HasPrefix(m.Filename, "00001_") {
		t.Errorf("Filename = %q; expected prefix 00001_", m.Filename)
	}
	if !strings.Contains(m.UpSQL, `CREATE TABLE "faculty"`) || !strings.Contains(m.UpSQL, `CREATE TABLE "question"`) {
		t.Errorf("UpSQL = %q; expected both tables created", m.UpSQL)
	}
	if strings.Index(m.UpSQL, `CREATE TABLE "faculty"`) > strings.Index(m.UpSQL, `CREATE TABLE "question"`) {
		t.Errorf("UpSQL creates question before the faculty table it references")
	}
	if !strings.Contains(m.DownSQL, `DROP TABLE "question"`) {
		t.Errorf("DownSQL = %q; expected question dropped", m.DownSQL)
	}
	assertAbsent(t, target, "faculty", "question")

	if _, err := sync.Synchronize(ctx, desired); err != nil {
		t.Fatalf("Synchronize() error = %v", err)
	}
	m, err = sync.GenerateMigration(ctx, desired)
	if err != nil {
		t.Fatalf("GenerateMigration() after sync error = %v", err)
	}
	if m != nil {
		t.Errorf("GenerateMigration() after sync = %s; expected nil", m.Filename)
	}
}

func TestPlanningErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("ambiguous rename", func(t *testing.T) {
		sync, target := newMemorySynchronizer(t, types.DatabasePostgreSQL, Options{})
		if _, err := sync.Synchronize(ctx, []*types.Table{academic("faculty", "")}); err != nil {
			t.Fatalf("Synchronize() error = %v", err)
		}
		_, err := sync.Synchronize(ctx, []*types.Table{academic("question", "faculty"), academic("answer", "faculty")})
		if !errors.IsConfigurationError(err) {
			t.Errorf("Synchronize() error = %v; expected ConfigurationError", err)
		}
		assertAbsent(t, target, "question", "answer")
	})

	t.Run("dialect unsupported", func(t *testing.T) {
		sync, target := newMemorySynchronizer(t, types.DatabaseAuroraDSQL, Options{})
		question := academic("question", "")
		question.Columns[0].Generation = ""
		question.Columns = append(question.Columns, types.Column{Name: "faculty_id", Type: "integer"})
		question.ForeignKeys = []types.ForeignKey{
			{Columns: []string{"faculty_id"}, ReferencedTable: "faculty", ReferencedColumns: []string{"id"}},
		}
		faculty := academic("faculty", "")
		faculty.Columns[0].Generation = ""

		_, err := sync.Synchronize(ctx, []*types.Table{faculty, question})
		if !errors.IsDialectUnsupportedError(err) {
			t.Fatalf("Synchronize() error = %v; expected DialectUnsupportedError", err)
		}
		if !errors.IsPlanningError(err) {
			t.Errorf("IsPlanningError(%v) = false; expected true", err)
		}
		assertAbsent(t, target, "faculty", "question")
	})
}

func TestRenameTableCommand(t *testing.T) {
	ctx := context.Background()
	sync, target := newMemorySynchronizer(t, types.DatabasePostgreSQL, Options{Mode: executor.ModeMemoryReplay})
	if _, err := sync.Synchronize(ctx, []*types.Table{academic("faculty", "")}); err != nil {
		t.Fatalf("Synchronize() error = %v", err)
	}

	applied, err := sync.RenameTable(ctx, "faculty", "department")
	if err != nil {
		t.Fatalf("RenameTable() error = %v", err)
	}
	if applied[0].Kind != "RenameTable" {
		t.Errorf("applied[0].Kind = %s; expected RenameTable first", applied[0].Kind)
	}
	if got := sequenceOf(t, target, "department"); got != "department_id_seq" {
		t.Errorf("sequence = %q; expected %q", got, "department_id_seq")
	}

	if _, err := sync.RenameColumn(ctx, "department", "title", "label"); err != nil {
		t.Fatalf("RenameColumn() error = %v", err)
	}
	department, _ := target.GetTable(ctx, "department")
	if department.Indexes[0].Name != "IDX_department_label" {
		t.Errorf("Indexes[0].Name = %q; expected %q", department.Indexes[0].Name, "IDX_department_label")
	}

	if _, err := sync.RenameTable(ctx, "missing", "other"); !errors.IsConfigurationError(err) {
		t.Errorf("RenameTable(missing) error = %v; expected ConfigurationError", err)
	}
}
