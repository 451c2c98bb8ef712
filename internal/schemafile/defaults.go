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
package schemafile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ocomsoft/schemasync/internal/types"
)

// defaultsFamily maps dialects without their own defaults block onto the
// dialect whose SQL they accept.
var defaultsFamily = map[types.DatabaseType]types.DatabaseType{
	types.DatabaseTiDB:       types.DatabaseMySQL,
	types.DatabaseTurso:      types.DatabaseSQLite,
	types.DatabaseRedshift:   types.DatabasePostgreSQL,
	types.DatabaseAuroraDSQL: types.DatabasePostgreSQL,
}

var sqlKeyword = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)

// ConvertDefaultValue converts a YAML default value to database-specific SQL
// using the schema's defaults mapping for the dialect.
func ConvertDefaultValue(schema *types.Schema, databaseType types.DatabaseType, defaultValue string) string {
	if defaultValue == "" {
		return ""
	}
	if schema != nil {
		if sqlDefault, ok := lookupDefault(schema.Defaults, databaseType, defaultValue); ok {
			return sqlDefault
		}
	}
	return HandleFallbackDefault(defaultValue)
}

func lookupDefault(defaults map[string]map[string]string, databaseType types.DatabaseType, value string) (string, bool) {
	if mapping, ok := defaults[string(databaseType)]; ok {
		if sqlDefault, ok := mapping[value]; ok {
			return sqlDefault, true
		}
	}
	if family, ok := defaultsFamily[databaseType]; ok {
		return lookupDefault(defaults, family, value)
	}
	return "", false
}

// HandleFallbackDefault handles values with no mapping. Numbers, booleans,
// quoted literals, function calls and bare upper-case keywords pass through;
// anything else becomes a string literal. NULL means no default.
func HandleFallbackDefault(defaultValue string) string {
	value := strings.TrimSpace(defaultValue)

	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return value
	}

	switch strings.ToLower(value) {
	case "true", "false":
		return strings.ToLower(value)
	case "null":
		return ""
	}

	if strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'") && len(value) > 1 {
		return value
	}
	if strings.Contains(value, "(") || sqlKeyword.MatchString(value) {
		return value
	}

	return fmt.Sprintf("'%s'", strings.ReplaceAll(value, "'", "''"))
}

// Tables resolves a parsed schema into the desired table snapshots for one
// dialect. Defaults are converted; the schema itself is left untouched.
func Tables(schema *types.Schema, databaseType types.DatabaseType) []*types.Table {
	tables := make([]*types.Table, 0, len(schema.Tables))
	for i := range schema.Tables {
		table := schema.Tables[i].Clone()
		for j := range table.Columns {
			table.Columns[j].Default = ConvertDefaultValue(schema, databaseType, table.Columns[j].Default)
		}
		tables = append(tables, table)
	}
	return tables
}
