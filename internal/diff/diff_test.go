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
package diff

import (
	"reflect"
	"testing"

	"github.com/ocomsoft/schemasync/internal/cascade"
	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/naming"
	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/types"
)

type fakeDialect map[operation.Kind]dialect.RenameStrategy

func (d fakeDialect) RenameStrategy(kind operation.Kind) dialect.RenameStrategy {
	if s, ok := d[kind]; ok {
		return s
	}
	return dialect.Native
}

func newEngine(d fakeDialect) *Engine {
	names := naming.MustNew(naming.Config{MaxIdentifierLength: 63})
	return New(d, cascade.New(names, d, false), false)
}

func faculty() *types.Table {
	return &types.Table{
		Name: "faculty",
		Columns: []types.Column{
			{Name: "id", Type: "integer", Generation: types.GenerationIncrement},
			{Name: "name", Type: "varchar", Length: 100},
			{Name: "code", Type: "varchar", Length: 10},
		},
		PrimaryKey: &types.PrimaryKey{Name: "PK_faculty_id", Columns: []string{"id"}},
		Indexes:    []types.Index{{Name: "IDX_faculty_name", Columns: []string{"name"}}},
		Uniques:    []types.Unique{{Name: "UQ_custom", Columns: []string{"code"}}},
		Checks:     []types.Check{{Name: "CHK_faculty_code", Expression: "length(code) > 1"}},
		Sequences:  []types.Sequence{{Name: "faculty_id_seq", Column: "id"}},
	}
}

func link() *types.Table {
	return &types.Table{
		Name:    "link",
		Columns: []types.Column{{Name: "faculty_id", Type: "integer"}},
		ForeignKeys: []types.ForeignKey{{
			Name: "FK_link_faculty_id_faculty", Columns: []string{"faculty_id"},
			ReferencedTable: "faculty", ReferencedColumns: []string{"id"},
		}},
	}
}

func describe(ops []operation.Operation) []string {
	var out []string
	for _, op := range ops {
		out = append(out, op.Describe())
	}
	return out
}

func TestCompareIdentical(t *testing.T) {
	engine := newEngine(fakeDialect{})
	tables := []*types.Table{faculty(), link()}

	ops, err := engine.CompareSchemas(tables, []*types.Table{faculty(), link()}, Options{DropUnknownTables: true})
	if err != nil {
		t.Fatalf("CompareSchemas() error = %v", err)
	}
	if len(ops) != 0 {
		t.Errorf("CompareSchemas(D, D) = %v; expected no operations", describe(ops))
	}
}

func TestCompareColumns(t *testing.T) {
	engine := newEngine(fakeDialect{})

	desired := faculty()
	desired.Columns[1].Length = 200
	desired.Columns = append(desired.Columns, types.Column{Name: "serial", Type: "integer", Generation: types.GenerationIncrement})
	desired.Sequences = append(desired.Sequences, types.Sequence{Name: "faculty_serial_seq", Column: "serial"})

	actual := faculty()
	actual.Columns = append(actual.Columns, types.Column{Name: "legacy", Type: "text"})

	ops, err := engine.CompareTables(desired, actual)
	if err != nil {
		t.Fatalf("CompareTables() error = %v", err)
	}
	expected := []string{
		"change column faculty.name",
		"add column faculty.serial",
		"drop column faculty.legacy",
	}
	if got := describe(ops); !reflect.DeepEqual(got, expected) {
		t.Fatalf("CompareTables() = %v; expected %v", got, expected)
	}
	if ops[0].OldColumn.Length != 100 || ops[0].Column.Length != 200 {
		t.Errorf("change column lengths = %d -> %d; expected 100 -> 200", ops[0].OldColumn.Length, ops[0].Column.Length)
	}
	if ops[1].Sequence == nil || ops[1].Sequence.Name != "faculty_serial_seq" {
		t.Errorf("add column sequence = %v; expected faculty_serial_seq", ops[1].Sequence)
	}
}

func TestCompareRenamedIndex(t *testing.T) {
	tests := []struct {
		name     string
		strategy dialect.RenameStrategy
		expected []string
	}{
		{"native", dialect.Native, []string{"rename index IDX_faculty_name to IDX_faculty_title on faculty"}},
		{"recreate", dialect.Recreate, []string{"rename index IDX_faculty_name to IDX_faculty_title on faculty"}},
		{"implicit", dialect.Implicit, nil},
		{"unsupported", dialect.Unsupported, []string{
			"drop index IDX_faculty_name on faculty",
			"create index IDX_faculty_title on faculty",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newEngine(fakeDialect{operation.RenameIndex: tt.strategy})
			desired := faculty()
			desired.Indexes[0].Name = "IDX_faculty_title"

			ops, err := engine.CompareTables(desired, faculty())
			if err != nil {
				t.Fatalf("CompareTables() error = %v", err)
			}
			if got := describe(ops); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("CompareTables() = %v; expected %v", got, tt.expected)
			}
		})
	}
}

func TestCompareConstraints(t *testing.T) {
	engine := newEngine(fakeDialect{})

	desired := faculty()
	desired.PrimaryKey = &types.PrimaryKey{Name: "PK_faculty_id_code", Columns: []string{"id", "code"}}
	desired.Uniques = nil
	desired.Checks = []types.Check{{Name: "CHK_faculty_code", Expression: "(LENGTH(code) > 1)"}}
	desired.Indexes = append(desired.Indexes, types.Index{Name: "IDX_faculty_code", Columns: []string{"code"}, Unique: true})

	ops, err := engine.CompareTables(desired, faculty())
	if err != nil {
		t.Fatalf("CompareTables() error = %v", err)
	}
	expected := []string{
		"drop primary key PK_faculty_id on faculty",
		"drop unique UQ_custom on faculty",
		"create primary key PK_faculty_id_code on faculty",
		"create index IDX_faculty_code on faculty",
	}
	if got := describe(ops); !reflect.DeepEqual(got, expected) {
		t.Errorf("CompareTables() = %v; expected %v", got, expected)
	}
}

func TestCompareForeignKeyActions(t *testing.T) {
	engine := newEngine(fakeDialect{})

	desired := link()
	desired.ForeignKeys[0].OnDelete = "no action"
	ops, err := engine.CompareTables(desired, link())
	if err != nil {
		t.Fatalf("CompareTables() error = %v", err)
	}
	if len(ops) != 0 {
		t.Errorf("CompareTables() = %v; expected NO ACTION to equal no action", describe(ops))
	}

	desired.ForeignKeys[0].OnDelete = "CASCADE"
	ops, err = engine.CompareTables(desired, link())
	if err != nil {
		t.Fatalf("CompareTables() error = %v", err)
	}
	expected := []string{
		"drop foreign key FK_link_faculty_id_faculty on link",
		"create foreign key FK_link_faculty_id_faculty on link",
	}
	if got := describe(ops); !reflect.DeepEqual(got, expected) {
		t.Errorf("CompareTables() = %v; expected %v", got, expected)
	}
}

func TestCompareSchemasCreateAndDrop(t *testing.T) {
	engine := newEngine(fakeDialect{})
	desired := []*types.Table{faculty()}
	actual := []*types.Table{link()}

	ops, err := engine.CompareSchemas(desired, actual, Options{})
	if err != nil {
		t.Fatalf("CompareSchemas() error = %v", err)
	}
	if got := describe(ops); !reflect.DeepEqual(got, []string{"create table faculty"}) {
		t.Errorf("CompareSchemas() = %v; expected only the create", got)
	}

	ops, err = engine.CompareSchemas(desired, actual, Options{DropUnknownTables: true})
	if err != nil {
		t.Fatalf("CompareSchemas() error = %v", err)
	}
	expected := []string{"create table faculty", "drop table link"}
	if got := describe(ops); !reflect.DeepEqual(got, expected) {
		t.Errorf("CompareSchemas() = %v; expected %v", got, expected)
	}
	if ops[1].Definition == nil || len(ops[1].Definition.ForeignKeys) != 1 {
		t.Errorf("drop table should carry the full definition")
	}
}

func TestCompareSchemasRenameHint(t *testing.T) {
	names := naming.MustNew(naming.Config{MaxIdentifierLength: 63})
	engine := newEngine(fakeDialect{})

	question := faculty()
	question.Name = "question"
	question.RenamedFrom = "faculty"
	question.PrimaryKey.Name = "PK_question_id"
	question.Indexes[0].Name = "IDX_question_name"
	question.Checks[0].Name = "CHK_question_code"
	question.Sequences[0].Name = "question_id_seq"
	l := link()
	l.ForeignKeys[0].ReferencedTable = "question"
	fkName, err := names.ForeignKeyName("link", []string{"faculty_id"}, "question")
	if err != nil {
		t.Fatalf("ForeignKeyName() error = %v", err)
	}
	l.ForeignKeys[0].Name = fkName

	ops, err := engine.CompareSchemas([]*types.Table{question, l}, []*types.Table{faculty(), link()}, Options{DropUnknownTables: true})
	if err != nil {
		t.Fatalf("CompareSchemas() error = %v", err)
	}
	if len(ops) == 0 || ops[0].Kind != operation.RenameTable {
		t.Fatalf("CompareSchemas() = %v; expected a leading table rename", describe(ops))
	}
	for _, op := range ops {
		if !op.Kind.IsRename() {
			t.Errorf("unexpected operation %q; expected renames only", op.Describe())
		}
	}

	// once renamed, the hint is inert
	ops, err = engine.CompareSchemas([]*types.Table{question, l}, []*types.Table{question, l}, Options{DropUnknownTables: true})
	if err != nil {
		t.Fatalf("CompareSchemas() error = %v", err)
	}
	if len(ops) != 0 {
		t.Errorf("CompareSchemas() after rename = %v; expected no operations", describe(ops))
	}
}

func TestCompareSchemasColumnRename(t *testing.T) {
	engine := newEngine(fakeDialect{})
	desired := faculty()
	desired.Columns[1] = types.Column{Name: "title", RenamedFrom: "name", Type: "varchar", Length: 100}
	desired.Indexes[0] = types.Index{Name: "IDX_faculty_title", Columns: []string{"title"}}

	ops, err := engine.CompareSchemas([]*types.Table{desired}, []*types.Table{faculty()}, Options{})
	if err != nil {
		t.Fatalf("CompareSchemas() error = %v", err)
	}
	expected := []string{
		"rename column faculty.name to title",
		"rename index IDX_faculty_name to IDX_faculty_title on faculty",
	}
	if got := describe(ops); !reflect.DeepEqual(got, expected) {
		t.Errorf("CompareSchemas() = %v; expected %v", got, expected)
	}
}

func TestCompareSchemasAmbiguousRename(t *testing.T) {
	engine := newEngine(fakeDialect{})
	hinted := func(name, from string) *types.Table {
		table := faculty()
		table.Name, table.RenamedFrom = name, from
		return table
	}
	named := func(name string) *types.Table {
		table := faculty()
		table.Name = name
		return table
	}
	columnHinted := func() *types.Table {
		table := faculty()
		table.Columns = append(table.Columns, types.Column{Name: "title", Type: "varchar", Length: 100, RenamedFrom: "name"})
		return table
	}
	withTitle := func() *types.Table {
		table := faculty()
		table.Columns = append(table.Columns, types.Column{Name: "title", Type: "varchar", Length: 100})
		return table
	}

	tests := []struct {
		name    string
		desired []*types.Table
		actual  []*types.Table
	}{
		{"two tables claim one source", []*types.Table{hinted("question", "faculty"), hinted("answer", "faculty")}, []*types.Table{faculty()}},
		{"old and new tables both exist", []*types.Table{hinted("question", "faculty")}, []*types.Table{faculty(), named("question")}},
		{"old and new columns both exist", []*types.Table{columnHinted()}, []*types.Table{withTitle()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.CompareSchemas(tt.desired, tt.actual, Options{})
			if !errors.IsConfigurationError(err) {
				t.Errorf("CompareSchemas() error = %v; expected a configuration error", err)
			}
		})
	}

	ops, err := engine.CompareSchemas([]*types.Table{hinted("question", "faculty")}, []*types.Table{named("question")}, Options{})
	if err != nil {
		t.Fatalf("CompareSchemas() after the rename error = %v", err)
	}
	if len(ops) != 0 {
		t.Errorf("CompareSchemas() after the rename = %d operations; expected 0", len(ops))
	}
}

func TestMatch(t *testing.T) {
	desired := []element{{name: "a", key: "x"}, {name: "b", key: "x"}, {name: "d", key: "y"}}
	actual := []element{{name: "b", key: "x"}, {name: "c", key: "x"}, {name: "e", key: "z"}}

	pairs, added, removed := match(desired, actual)
	if expected := [][2]int{{1, 0}, {0, 1}}; !reflect.DeepEqual(pairs, expected) {
		t.Errorf("pairs = %v; expected %v", pairs, expected)
	}
	if !reflect.DeepEqual(added, []int{2}) {
		t.Errorf("added = %v; expected [2]", added)
	}
	if !reflect.DeepEqual(removed, []int{2}) {
		t.Errorf("removed = %v; expected [2]", removed)
	}
}

func TestExpressionKey(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{"length(code) > 1", "(LENGTH(\"code\") > 1)", true},
		{"price >= 0", "price>=0", true},
		{"price > 0", "price >= 0", false},
	}
	for _, tt := range tests {
		if got := ExpressionKey(tt.a) == ExpressionKey(tt.b); got != tt.same {
			t.Errorf("ExpressionKey(%q) == ExpressionKey(%q) = %v; expected %v", tt.a, tt.b, got, tt.same)
		}
	}
	if got := NormalizeAction(" no  action "); got != "" {
		t.Errorf("NormalizeAction(no action) = %q; expected empty", got)
	}
	if got := NormalizeAction("set null"); got != "SET NULL" {
		t.Errorf("NormalizeAction(set null) = %q; expected SET NULL", got)
	}
}
