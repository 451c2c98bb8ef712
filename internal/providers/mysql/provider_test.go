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
package mysql

import (
	"reflect"
	"testing"

	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/types"
)

func question() *types.Table {
	return &types.Table{
		Name: "question",
		Columns: []types.Column{
			{Name: "id", Type: "integer", Generation: types.GenerationIncrement},
			{Name: "faculty_id", Type: "integer"},
			{Name: "age", Type: "integer"},
		},
		PrimaryKey:  &types.PrimaryKey{Name: "PRIMARY", Columns: []string{"id"}},
		Checks:      []types.Check{{Name: "CHK_question_1", Expression: "age > 0"}},
		ForeignKeys: []types.ForeignKey{{Name: "FK_question_faculty_id_faculty", Columns: []string{"faculty_id"}, ReferencedTable: "faculty", ReferencedColumns: []string{"id"}}},
	}
}

func TestProvider_ConvertColumnType(t *testing.T) {
	provider := New()

	tests := []struct {
		column   types.Column
		expected string
	}{
		{types.Column{Type: "varchar"}, "VARCHAR(255)"},
		{types.Column{Type: "varchar", Length: 50}, "VARCHAR(50)"},
		{types.Column{Type: "integer", Generation: types.GenerationIncrement}, "INT AUTO_INCREMENT"},
		{types.Column{Type: "boolean"}, "TINYINT(1)"},
		{types.Column{Type: "uuid"}, "CHAR(36)"},
		{types.Column{Type: "jsonb"}, "JSON"},
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
		{operation.RenameIndex, dialect.Native},
		{operation.RenameUnique, dialect.Native},
		{operation.RenameForeignKey, dialect.Recreate},
		{operation.RenamePrimaryKey, dialect.Implicit},
		{operation.RenameSequence, dialect.Unsupported},
	}
	for _, test := range tests {
		if got := provider.RenameStrategy(test.kind); got != test.expected {
			t.Errorf("RenameStrategy(%s) = %s; expected %s", test.kind, got, test.expected)
		}
	}
}

func TestProvider_GenerateSQL(t *testing.T) {
	provider := New()
	current := question()

	tests := []struct {
		name     string
		op       operation.Operation
		expected []string
	}{
		{
			"rename table",
			operation.NewRenameTable("question", "answer"),
			[]string{"RENAME TABLE `question` TO `answer`"},
		},
		{
			"rename index",
			operation.NewRename(operation.RenameIndex, "question", "IDX_a", "IDX_b"),
			[]string{"ALTER TABLE `question` RENAME INDEX `IDX_a` TO `IDX_b`"},
		},
		{
			"rename foreign key recreates",
			operation.NewRename(operation.RenameForeignKey, "question", "FK_question_faculty_id_faculty", "FK_answer_faculty_id_faculty"),
			[]string{
				"ALTER TABLE `question` DROP FOREIGN KEY `FK_question_faculty_id_faculty`",
				"ALTER TABLE `question` ADD CONSTRAINT `FK_answer_faculty_id_faculty` FOREIGN KEY (`faculty_id`) REFERENCES `faculty` (`id`)",
			},
		},
		{
			"rename check recreates",
			operation.NewRename(operation.RenameCheck, "question", "CHK_question_1", "CHK_answer_1"),
			[]string{
				"ALTER TABLE `question` DROP CHECK `CHK_question_1`",
				"ALTER TABLE `question` ADD CONSTRAINT `CHK_answer_1` CHECK (age > 0)",
			},
		},
		{
			"rename primary key is implicit",
			operation.NewRename(operation.RenamePrimaryKey, "question", "PRIMARY", "PK_answer_id"),
			nil,
		},
		{
			"modify column",
			operation.NewChangeColumn("question", current.Columns[2], types.Column{Name: "age", Type: "bigint", Default: "0"}),
			[]string{"ALTER TABLE `question` MODIFY COLUMN `age` BIGINT DEFAULT 0"},
		},
		{
			"drop unique",
			operation.NewDropUnique("question", types.Unique{Name: "UQ_x", Columns: []string{"age"}}),
			[]string{"ALTER TABLE `question` DROP INDEX `UQ_x`"},
		},
		{
			"drop primary key",
			operation.NewDropPrimaryKey("question", *current.PrimaryKey),
			[]string{"ALTER TABLE `question` DROP PRIMARY KEY"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := provider.GenerateSQL(tt.op, current)
			if err != nil {
				t.Fatalf("GenerateSQL() returned error: %v", err)
			}
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("GenerateSQL() = %q; expected %q", result, tt.expected)
			}
		})
	}
}

func TestProvider_AddColumnPosition(t *testing.T) {
	provider := New()
	rank := types.Column{Name: "rank", Type: "integer"}

	tests := []struct {
		position operation.ColumnPosition
		expected string
	}{
		{operation.ColumnPosition{}, "ALTER TABLE `question` ADD COLUMN `rank` INT"},
		{operation.ColumnPosition{After: "age"}, "ALTER TABLE `question` ADD COLUMN `rank` INT"},
		{operation.ColumnPosition{After: "faculty_id"}, "ALTER TABLE `question` ADD COLUMN `rank` INT AFTER `faculty_id`"},
		{operation.ColumnPosition{First: true}, "ALTER TABLE `question` ADD COLUMN `rank` INT FIRST"},
	}

	for _, test := range tests {
		op := operation.NewAddColumn("question", rank)
		op.Position = test.position
		result, err := provider.GenerateSQL(op, question())
		if err != nil {
			t.Fatalf("GenerateSQL() returned error: %v", err)
		}
		if len(result) != 1 || result[0] != test.expected {
			t.Errorf("GenerateSQL(%+v) = %q; expected %q", test.position, result, test.expected)
		}
	}
}

func TestProvider_RecreateWithoutDefinition(t *testing.T) {
	provider := New()
	_, err := provider.GenerateSQL(operation.NewRename(operation.RenameForeignKey, "question", "FK_missing", "FK_new"), question())
	if err == nil {
		t.Fatalf("expected error for unknown foreign key")
	}
	_, err = provider.GenerateSQL(operation.NewCreateSequence("question", types.Sequence{Name: "s"}), nil)
	if !errors.IsDialectUnsupportedError(err) {
		t.Errorf("expected DialectUnsupportedError for sequences, got %v", err)
	}
}

func TestProvider_NormalizeTable(t *testing.T) {
	provider := New()
	table := &types.Table{
		Name:       "t",
		Columns:    []types.Column{{Name: "a", Type: "jsonb"}},
		PrimaryKey: &types.PrimaryKey{Name: "PK_t_a", Columns: []string{"a"}},
		Indexes:    []types.Index{{Name: "IDX_t_a", Columns: []string{"a"}, Unique: true}},
	}
	normalized := provider.NormalizeTable(table)
	if normalized.PrimaryKey.Name != PrimaryKeyName {
		t.Errorf("primary key name = %s", normalized.PrimaryKey.Name)
	}
	if len(normalized.Indexes) != 0 || len(normalized.Uniques) != 1 {
		t.Errorf("unique index not converted: %+v", normalized)
	}
	if normalized.Columns[0].Type != "json" {
		t.Errorf("column type = %s", normalized.Columns[0].Type)
	}
	if table.PrimaryKey.Name != "PK_t_a" {
		t.Errorf("NormalizeTable mutated its input")
	}
}

func TestConvertSQLDefault(t *testing.T) {
	tests := []struct {
		value, columnType string
		generated         bool
		expected          string
	}{
		{"draft", "varchar", false, "'draft'"},
		{"0", "integer", false, "0"},
		{"CURRENT_TIMESTAMP", "timestamp", true, "CURRENT_TIMESTAMP"},
		{"it's", "text", false, "'it''s'"},
	}
	for _, tt := range tests {
		if got := convertSQLDefault(tt.value, tt.columnType, tt.generated); got != tt.expected {
			t.Errorf("convertSQLDefault(%s) = %s; expected %s", tt.value, got, tt.expected)
		}
	}
}
