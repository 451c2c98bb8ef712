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
package naming

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/types"
)

func TestObjectName(t *testing.T) {
	s := MustNew(Config{MaxIdentifierLength: 63})

	tests := []struct {
		name     string
		kind     Kind
		table    string
		columns  []string
		extra    []string
		expected string
	}{
		{"index", KindIndex, "question", []string{"name"}, nil, "IDX_question_name"},
		{"index columns sorted", KindIndex, "question", []string{"b", "a"}, nil, "IDX_question_a_b"},
		{"qualified table", KindIndex, "public.question", []string{"name"}, nil, "IDX_question_name"},
		{"unique", KindUnique, "question", []string{"name", "faculty_id"}, nil, "UQ_question_faculty_id_name"},
		{"primary key", KindPrimaryKey, "question", []string{"id"}, nil, "PK_question_id"},
		{"foreign key", KindForeignKey, "answer", []string{"question_id"}, []string{"question"}, "FK_answer_question_id_question"},
		{"sequence", KindSequence, "faculty", []string{"id"}, nil, "faculty_id_seq"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ObjectName(tt.kind, tt.table, tt.columns, tt.extra...)
			if err != nil {
				t.Fatalf("ObjectName() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("ObjectName() = %s; expected %s", got, tt.expected)
			}
		})
	}
}

func TestCheckNameIsStable(t *testing.T) {
	s := MustNew(Config{})
	a, err := s.CheckName("question", "age > 0")
	if err != nil {
		t.Fatalf("CheckName() error = %v", err)
	}
	b, _ := s.CheckName("question", "age  >   0")
	if a != b {
		t.Errorf("whitespace changes the check name: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "CHK_question_") || len(a) != len("CHK_question_")+8 {
		t.Errorf("CheckName() = %s; unexpected format", a)
	}
	c, _ := s.CheckName("question", "age > 1")
	if a == c {
		t.Errorf("different expressions produced the same name %s", a)
	}
}

func TestOverflowIsHashed(t *testing.T) {
	s := MustNew(Config{MaxIdentifierLength: 30})
	columns := []string{"a_really_long_column_name", "another_long_column_name"}

	first, err := s.IndexName("some_long_table_name", columns)
	if err != nil {
		t.Fatalf("IndexName() error = %v", err)
	}
	if len(first) != 30 {
		t.Errorf("len(%s) = %d; expected 30", first, len(first))
	}
	second, _ := s.IndexName("some_long_table_name", columns)
	if first != second {
		t.Errorf("names are not deterministic: %s vs %s", first, second)
	}
	other, _ := s.IndexName("some_long_table_name", []string{"a_really_long_column_name", "another_long_column_nam2"})
	if other == first {
		t.Errorf("different candidates hashed to the same name %s", first)
	}

	tests := []struct {
		table string
		max   int
	}{
		{"ééééééééééééé", 20},
		{"ééééééééééééé", 21},
		{"表格表格表格表格", 20},
		{"plain_ascii_table_name", 20},
	}
	for _, tt := range tests {
		name, err := MustNew(Config{MaxIdentifierLength: tt.max}).IndexName(tt.table, []string{"col"})
		if err != nil {
			t.Fatalf("IndexName(%s) error = %v", tt.table, err)
		}
		if !utf8.ValidString(name) {
			t.Errorf("IndexName(%s) = %q; expected valid UTF-8", tt.table, name)
		}
		if len(name) > tt.max {
			t.Errorf("len(IndexName(%s)) = %d; expected at most %d", tt.table, len(name), tt.max)
		}
	}
}

func TestLimitTooSmall(t *testing.T) {
	s := MustNew(Config{MaxIdentifierLength: 10})
	_, err := s.IndexName("question", []string{"name"})
	if !errors.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
	if _, err := New(Config{HashLength: 2}); !errors.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError for short hash, got %v", err)
	}
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"userID":      "user_id",
		"FacultyName": "faculty_name",
		"HTTPServer":  "http_server",
		"already_ok":  "already_ok",
	}
	for input, expected := range tests {
		if got := ToSnakeCase(input); got != expected {
			t.Errorf("ToSnakeCase(%s) = %s; expected %s", input, got, expected)
		}
	}

	s := MustNew(Config{SnakeCase: true})
	name, _ := s.ForeignKeyName("Answer", []string{"questionId"}, "Question")
	if name != "FK_answer_question_id_question" {
		t.Errorf("ForeignKeyName() = %s", name)
	}
}

func TestComplete(t *testing.T) {
	s := MustNew(Config{MaxIdentifierLength: 63})
	table := &types.Table{
		Name: "question",
		Columns: []types.Column{
			{Name: "id", Type: "integer", Generation: types.GenerationIncrement},
			{Name: "name", Type: "varchar"},
		},
		PrimaryKey: &types.PrimaryKey{Columns: []string{"id"}},
		Indexes:    []types.Index{{Columns: []string{"name"}}},
		Uniques:    []types.Unique{{Name: "UQ_custom", Columns: []string{"name"}}},
	}

	completed, err := s.Complete(table, true)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if completed.PrimaryKey.Name != "PK_question_id" {
		t.Errorf("primary key name = %s", completed.PrimaryKey.Name)
	}
	if completed.Indexes[0].Name != "IDX_question_name" {
		t.Errorf("index name = %s", completed.Indexes[0].Name)
	}
	if completed.Uniques[0].Name != "UQ_custom" {
		t.Errorf("user supplied name changed to %s", completed.Uniques[0].Name)
	}
	if len(completed.Sequences) != 1 || completed.Sequences[0].Name != "question_id_seq" {
		t.Errorf("sequences = %+v", completed.Sequences)
	}
	if table.Indexes[0].Name != "" {
		t.Errorf("Complete mutated its input")
	}

	table.Indexes = append(table.Indexes, types.Index{Columns: []string{"name"}, Where: "name IS NOT NULL"})
	if _, err := s.Complete(table, false); !errors.IsConfigurationError(err) {
		t.Errorf("expected collision ConfigurationError, got %v", err)
	}
}

func TestCompleteAllSchemaScoped(t *testing.T) {
	s := MustNew(Config{})
	a := &types.Table{Name: "a", Columns: []types.Column{{Name: "x", Type: "integer"}}, Indexes: []types.Index{{Name: "shared", Columns: []string{"x"}}}}
	b := &types.Table{Name: "b", Columns: []types.Column{{Name: "x", Type: "integer"}}, Indexes: []types.Index{{Name: "shared", Columns: []string{"x"}}}}

	if _, err := s.CompleteAll([]*types.Table{a, b}, false, false); err != nil {
		t.Errorf("table scoped names should not collide: %v", err)
	}
	if _, err := s.CompleteAll([]*types.Table{a, b}, false, true); !errors.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}
