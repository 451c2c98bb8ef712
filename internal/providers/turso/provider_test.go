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
package turso

import (
	"reflect"
	"testing"

	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/types"
)

func TestProvider_Name(t *testing.T) {
	provider := New()
	if provider.Name() != "turso" {
		t.Errorf("Name() = %s; expected turso", provider.Name())
	}
	if !provider.SupportsOperation("ALTER_COLUMN") {
		t.Error("turso should alter columns in place")
	}
}

func TestProvider_ChangeColumnInPlace(t *testing.T) {
	provider := New()
	from := types.Column{Name: "title", Type: "varchar", Length: 50}
	to := types.Column{Name: "title", Type: "varchar", Length: 200, Default: "''"}

	result, err := provider.GenerateSQL(operation.NewChangeColumn("posts", from, to), nil)
	if err != nil {
		t.Fatalf("GenerateSQL() returned error: %v", err)
	}
	expected := []string{`ALTER TABLE "posts" ALTER COLUMN "title" TO "title" VARCHAR(200) DEFAULT ''`}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("GenerateSQL() = %q; expected %q", result, expected)
	}
}

func TestProvider_ConstraintsStillRebuild(t *testing.T) {
	provider := New()
	current := &types.Table{
		Name:    "posts",
		Columns: []types.Column{{Name: "title", Type: "text"}},
	}

	result, err := provider.GenerateSQL(operation.NewCreateCheck("posts", types.Check{Name: "CHK_posts", Expression: "length(title) > 0"}), current)
	if err != nil {
		t.Fatalf("GenerateSQL() returned error: %v", err)
	}
	if len(result) == 0 || result[0] != "PRAGMA foreign_keys = OFF" {
		t.Errorf("GenerateSQL() = %q; expected a table rebuild", result)
	}
}
