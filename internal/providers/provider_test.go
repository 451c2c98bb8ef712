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
package providers

import (
	"testing"

	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/types"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		dbType    types.DatabaseType
		maxLength int
	}{
		{types.DatabasePostgreSQL, 63},
		{types.DatabaseMySQL, 64},
		{types.DatabaseTiDB, 64},
		{types.DatabaseSQLite, 0},
		{types.DatabaseTurso, 0},
		{types.DatabaseSQLServer, 128},
		{types.DatabaseRedshift, 127},
		{types.DatabaseAuroraDSQL, 63},
	}

	for _, test := range tests {
		provider, err := NewProvider(test.dbType)
		if err != nil {
			t.Errorf("NewProvider(%s) returned error: %v", test.dbType, err)
			continue
		}
		if provider.Name() != string(test.dbType) {
			t.Errorf("NewProvider(%s).Name() = %s", test.dbType, provider.Name())
		}
		if provider.MaxIdentifierLength() != test.maxLength {
			t.Errorf("NewProvider(%s).MaxIdentifierLength() = %d; expected %d", test.dbType, provider.MaxIdentifierLength(), test.maxLength)
		}
		if provider.RenameStrategy(operation.RenameTable) != dialect.Native {
			t.Errorf("NewProvider(%s) should rename tables natively", test.dbType)
		}
	}

	if _, err := NewProvider("oracle"); err == nil {
		t.Error("NewProvider(oracle) should fail")
	}
}

func TestNormalize(t *testing.T) {
	table := &types.Table{
		Name:       "users",
		Columns:    []types.Column{{Name: "id", Type: "integer", Generation: types.GenerationIdentity}},
		PrimaryKey: &types.PrimaryKey{Name: "PK_users_id", Columns: []string{"id"}},
	}

	mysqlProvider, _ := NewProvider(types.DatabaseMySQL)
	if got := Normalize(mysqlProvider, table); got.PrimaryKey.Name != "PRIMARY" {
		t.Errorf("Normalize(mysql) primary key name = %s; expected PRIMARY", got.PrimaryKey.Name)
	}

	pg, _ := NewProvider(types.DatabasePostgreSQL)
	got := Normalize(pg, table)
	if got == table || got.PrimaryKey.Name != "PK_users_id" {
		t.Errorf("Normalize(postgresql) should return an unchanged copy, got %+v", got.PrimaryKey)
	}
}
