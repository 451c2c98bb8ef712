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
package tidb

import (
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
		{"users", "`users`"},
		{"user_id", "`user_id`"},
		{"UsErS", "`UsErS`"},
	}

	for _, test := range tests {
		result := provider.QuoteName(test.input)
		if result != test.expected {
			t.Errorf("QuoteName(%s) = %s; expected %s", test.input, result, test.expected)
		}
	}
}

func TestProvider_SupportsOperation(t *testing.T) {
	provider := New()

	tests := []struct {
		operation string
		expected  bool
	}{
		{"RENAME_TABLE", true},
		{"DROP_COLUMN", true},
		{"ALTER_COLUMN", true},
		{"RENAME_COLUMN", true},
		{"CHECK_CONSTRAINTS", false},
		{"SEQUENCES", false},
		{"UNKNOWN_OPERATION", false},
	}

	for _, test := range tests {
		result := provider.SupportsOperation(test.operation)
		if result != test.expected {
			t.Errorf("SupportsOperation(%s) = %v; expected %v", test.operation, result, test.expected)
		}
	}
}

func TestProvider_Name(t *testing.T) {
	if name := New().Name(); name != "tidb" {
		t.Errorf("Name() = %s; expected tidb", name)
	}
}

func TestProvider_ChecksUnsupported(t *testing.T) {
	provider := New()
	_, err := provider.GenerateSQL(operation.NewCreateCheck("t", types.Check{Name: "CHK_t", Expression: "a > 0"}), nil)
	if !errors.IsDialectUnsupportedError(err) {
		t.Errorf("expected DialectUnsupportedError, got %v", err)
	}

	table := &types.Table{
		Name:    "t",
		Columns: []types.Column{{Name: "a", Type: "integer"}},
		Checks:  []types.Check{{Name: "CHK_t", Expression: "a > 0"}},
	}
	_, err = provider.GenerateSQL(operation.NewCreateTable(table, false), nil)
	if !errors.IsDialectUnsupportedError(err) {
		t.Errorf("expected DialectUnsupportedError for table with checks, got %v", err)
	}
}

func TestProvider_GenerateRenameIndex(t *testing.T) {
	provider := New()
	result, err := provider.GenerateSQL(operation.NewRename(operation.RenameIndex, "t", "IDX_a", "IDX_b"), nil)
	if err != nil {
		t.Fatalf("GenerateSQL() returned error: %v", err)
	}
	expected := "ALTER TABLE `t` RENAME INDEX `IDX_a` TO `IDX_b`"
	if len(result) != 1 || result[0] != expected {
		t.Errorf("GenerateSQL() = %q; expected %q", result, expected)
	}
}
