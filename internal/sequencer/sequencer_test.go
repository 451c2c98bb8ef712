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
package sequencer

import (
	"reflect"
	"testing"

	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/types"
)

func table(name string, references ...string) *types.Table {
	t := &types.Table{
		Name:       name,
		Columns:    []types.Column{{Name: "id", Type: "integer"}},
		PrimaryKey: &types.PrimaryKey{Name: "PK_" + name + "_id", Columns: []string{"id"}},
	}
	for _, ref := range references {
		t.Columns = append(t.Columns, types.Column{Name: ref + "_id", Type: "integer"})
		t.ForeignKeys = append(t.ForeignKeys, types.ForeignKey{
			Name: "FK_" + name + "_" + ref, Columns: []string{ref + "_id"},
			ReferencedTable: ref, ReferencedColumns: []string{"id"},
		})
	}
	return t
}

func describe(ops []operation.Operation) []string {
	var out []string
	for _, op := range ops {
		out = append(out, op.Describe())
	}
	return out
}

func cascaded(op operation.Operation) operation.Operation {
	op.Cascaded = true
	return op
}

func TestSequencePhases(t *testing.T) {
	ops := []operation.Operation{
		operation.NewCreateForeignKey("posts", types.ForeignKey{Name: "FK_posts_users", Columns: []string{"user_id"}, ReferencedTable: "users", ReferencedColumns: []string{"id"}}),
		operation.NewAddColumn("posts", types.Column{Name: "user_id", Type: "integer"}),
		operation.NewDropIndex("posts", types.Index{Name: "IDX_posts_title", Columns: []string{"title"}}),
		operation.NewCreateTable(table("users"), false),
		operation.NewDropTable(table("legacy"), false),
		operation.NewRenameTable("faculty", "question"),
		cascaded(operation.NewRename(operation.RenamePrimaryKey, "question", "PK_faculty_id", "PK_question_id")),
		cascaded(operation.NewRename(operation.RenameSequence, "question", "faculty_id_seq", "question_id_seq")),
		operation.NewRename(operation.RenameIndex, "posts", "IDX_posts_body", "IDX_posts_title"),
		operation.NewCreateSchema("reporting", true),
	}

	got, err := New(false).Sequence(ops)
	if err != nil {
		t.Fatalf("Sequence() error = %v", err)
	}
	expected := []string{
		"create schema reporting",
		"rename table faculty to question",
		"rename primary key PK_faculty_id to PK_question_id on question",
		"rename sequence faculty_id_seq to question_id_seq on question",
		"drop index IDX_posts_title on posts",
		"rename index IDX_posts_body to IDX_posts_title on posts",
		"add column posts.user_id",
		"drop table legacy",
		"create table users",
		"create foreign key FK_posts_users on posts",
	}
	if d := describe(got); !reflect.DeepEqual(d, expected) {
		t.Errorf("Sequence() = %v; expected %v", d, expected)
	}
}

func TestSequenceCreateOrder(t *testing.T) {
	ops := []operation.Operation{
		operation.NewCreateTable(table("answer", "question"), false),
		operation.NewCreateTable(table("question", "faculty"), false),
		operation.NewCreateTable(table("faculty"), false),
	}
	got, err := New(false).Sequence(ops)
	if err != nil {
		t.Fatalf("Sequence() error = %v", err)
	}
	expected := []string{"create table faculty", "create table question", "create table answer"}
	if d := describe(got); !reflect.DeepEqual(d, expected) {
		t.Errorf("Sequence() = %v; expected %v", d, expected)
	}
	if len(got[2].Definition.ForeignKeys) != 1 {
		t.Errorf("acyclic creates should keep inline foreign keys")
	}
}

func TestSequenceCreateCycle(t *testing.T) {
	ops := []operation.Operation{
		operation.NewCreateTable(table("a", "b"), false),
		operation.NewCreateTable(table("b", "a"), false),
	}
	got, err := New(false).Sequence(ops)
	if err != nil {
		t.Fatalf("Sequence() error = %v", err)
	}
	expected := []string{
		"create table a",
		"create table b",
		"create foreign key FK_a_b on a",
		"create foreign key FK_b_a on b",
	}
	if d := describe(got); !reflect.DeepEqual(d, expected) {
		t.Fatalf("Sequence() = %v; expected %v", d, expected)
	}
	for _, op := range got[:2] {
		if len(op.Definition.ForeignKeys) != 0 {
			t.Errorf("%s still carries foreign keys", op.Describe())
		}
	}
	if len(ops[0].Definition.ForeignKeys) != 1 {
		t.Errorf("Sequence() modified its input")
	}
}

func TestSequenceForeignKeyWaitsForKey(t *testing.T) {
	reference := func(name string, columns ...string) *types.Table {
		t := table(name)
		t.Columns = append(t.Columns, types.Column{Name: "t1_code", Type: "varchar"})
		t.ForeignKeys = []types.ForeignKey{{
			Name: "FK_" + name + "_t1", Columns: []string{"t1_code"},
			ReferencedTable: "t1", ReferencedColumns: columns,
		}}
		return t
	}
	unique := operation.NewCreateUnique("t1", types.Unique{Name: "UQ_t1_code", Columns: []string{"code"}})
	uniqueIndex := operation.NewCreateIndex("t1", types.Index{Name: "IDX_t1_code", Columns: []string{"code"}, Unique: true})

	tests := []struct {
		name     string
		ops      []operation.Operation
		expected []string
		inline   int
	}{
		{
			"unique constraint",
			[]operation.Operation{operation.NewCreateTable(reference("t2", "code"), false), unique},
			[]string{"create table t2", "create unique UQ_t1_code on t1", "create foreign key FK_t2_t1 on t2"},
			0,
		},
		{
			"unique index",
			[]operation.Operation{operation.NewCreateTable(reference("t2", "code"), false), uniqueIndex},
			[]string{"create table t2", "create index IDX_t1_code on t1", "create foreign key FK_t2_t1 on t2"},
			0,
		},
		{
			"other key stays inline",
			[]operation.Operation{operation.NewCreateTable(reference("t2", "id"), false), unique},
			[]string{"create table t2", "create unique UQ_t1_code on t1"},
			1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(false).Sequence(tt.ops)
			if err != nil {
				t.Fatalf("Sequence() error = %v", err)
			}
			if d := describe(got); !reflect.DeepEqual(d, tt.expected) {
				t.Fatalf("Sequence() = %v; expected %v", d, tt.expected)
			}
			if n := len(got[0].Definition.ForeignKeys); n != tt.inline {
				t.Errorf("inline foreign keys = %d; expected %d", n, tt.inline)
			}
			if n := len(tt.ops[0].Definition.ForeignKeys); n != 1 {
				t.Errorf("Sequence() modified its input: %d foreign keys", n)
			}
		})
	}
}

func TestSequenceDropOrder(t *testing.T) {
	ops := []operation.Operation{
		operation.NewDropTable(table("faculty"), false),
		operation.NewDropTable(table("question", "faculty"), false),
	}
	got, err := New(false).Sequence(ops)
	if err != nil {
		t.Fatalf("Sequence() error = %v", err)
	}
	expected := []string{"drop table question", "drop table faculty"}
	if d := describe(got); !reflect.DeepEqual(d, expected) {
		t.Errorf("Sequence() = %v; expected %v", d, expected)
	}
}

func TestSequenceDropCycle(t *testing.T) {
	ops := []operation.Operation{
		operation.NewDropTable(table("a", "b"), false),
		operation.NewDropTable(table("b", "a"), false),
	}
	got, err := New(false).Sequence(ops)
	if err != nil {
		t.Fatalf("Sequence() error = %v", err)
	}
	expected := []string{
		"drop foreign key FK_a_b on a",
		"drop foreign key FK_b_a on b",
		"drop table a",
		"drop table b",
	}
	if d := describe(got); !reflect.DeepEqual(d, expected) {
		t.Errorf("Sequence() = %v; expected %v", d, expected)
	}
}

func TestSequenceRenameChain(t *testing.T) {
	ops := []operation.Operation{
		operation.NewRenameTable("a", "b"),
		operation.NewRenameTable("b", "c"),
	}
	got, err := New(false).Sequence(ops)
	if err != nil {
		t.Fatalf("Sequence() error = %v", err)
	}
	expected := []string{"rename table b to c", "rename table a to b"}
	if d := describe(got); !reflect.DeepEqual(d, expected) {
		t.Errorf("Sequence() = %v; expected %v", d, expected)
	}
}

func TestSequenceErrors(t *testing.T) {
	tests := []struct {
		name string
		ops  []operation.Operation
	}{
		{"rename cycle", []operation.Operation{
			operation.NewRenameTable("a", "b"),
			operation.NewRenameTable("b", "a"),
		}},
		{"column rename cycle", []operation.Operation{
			operation.NewRenameColumn("t", "x", "y"),
			operation.NewRenameColumn("t", "y", "x"),
		}},
		{"same target", []operation.Operation{
			operation.NewRenameTable("a", "c"),
			operation.NewRenameTable("b", "c"),
		}},
		{"duplicate", []operation.Operation{
			operation.NewCreateTable(table("a"), false),
			operation.NewCreateTable(table("a"), false),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(false).Sequence(tt.ops)
			if !errors.IsSequencingError(err) {
				t.Errorf("Sequence() error = %v; expected a sequencing error", err)
			}
		})
	}
}
