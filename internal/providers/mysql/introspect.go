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
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/types"
)

// ListTables returns the base tables of the current database
func (p *Provider) ListTables(ctx context.Context, q dialect.Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// NamespaceExists reports whether a schema (database) exists
func (p *Provider) NamespaceExists(ctx context.Context, q dialect.Querier, kind operation.Kind, name string) (bool, error) {
	return dialect.Exists(ctx, q, `SELECT COUNT(*) FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?`, name)
}

// IntrospectTable reads a table from INFORMATION_SCHEMA; nil when absent
func (p *Provider) IntrospectTable(ctx context.Context, q dialect.Querier, name string) (*types.Table, error) {
	return Introspect(ctx, q, name, p.SupportsOperation(dialect.OpCheckConstraints))
}

// Introspect reads a table, optionally including check constraints
func Introspect(ctx context.Context, q dialect.Querier, name string, withChecks bool) (*types.Table, error) {
	qualified := types.ParseTableName(name)
	schema := qualified.Schema
	if qualified.Database != "" {
		schema = qualified.Database
	}

	columns, err := extractColumns(ctx, q, schema, qualified.Name)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, nil
	}
	table := &types.Table{Name: name, Columns: columns}

	if err := extractForeignKeys(ctx, q, schema, qualified.Name, table); err != nil {
		return nil, err
	}
	if err := extractIndexes(ctx, q, schema, qualified.Name, table); err != nil {
		return nil, err
	}
	if withChecks {
		if err := extractChecks(ctx, q, schema, qualified.Name, table); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func extractColumns(ctx context.Context, q dialect.Querier, schema, tableName string) ([]types.Column, error) {
	query := `
		SELECT
			COLUMN_NAME,
			DATA_TYPE,
			COLUMN_TYPE,
			CHARACTER_MAXIMUM_LENGTH,
			NUMERIC_PRECISION,
			NUMERIC_SCALE,
			IS_NULLABLE,
			COLUMN_DEFAULT,
			EXTRA
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
			AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`
	rows, err := q.QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns for table %s: %w", tableName, err)
	}
	defer rows.Close()

	var columns []types.Column
	for rows.Next() {
		var (
			columnName    string
			dataType      string
			columnType    string
			maxLength     sql.NullInt64
			numPrecision  sql.NullInt64
			numScale      sql.NullInt64
			isNullable    string
			columnDefault sql.NullString
			extra         string
		)
		if err := rows.Scan(&columnName, &dataType, &columnType, &maxLength, &numPrecision, &numScale, &isNullable, &columnDefault, &extra); err != nil {
			return nil, fmt.Errorf("failed to scan column data: %w", err)
		}

		column := types.Column{Name: columnName, Type: ConvertSQLType(dataType, columnType)}
		column.SetNullable(isNullable == "YES")
		switch column.Type {
		case "varchar":
			if maxLength.Valid {
				column.Length = int(maxLength.Int64)
			}
		case "decimal":
			if numPrecision.Valid {
				column.Precision = int(numPrecision.Int64)
			}
			if numScale.Valid {
				column.Scale = int(numScale.Int64)
			}
		}

		lowerExtra := strings.ToLower(extra)
		switch {
		case strings.Contains(lowerExtra, "auto_increment"):
			column.Generation = types.GenerationIncrement
		case columnDefault.Valid && strings.EqualFold(columnDefault.String, "uuid()"):
			column.Generation = types.GenerationUUID
		case columnDefault.Valid:
			column.Default = convertSQLDefault(columnDefault.String, column.Type, strings.Contains(lowerExtra, "default_generated"))
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}

func extractIndexes(ctx context.Context, q dialect.Querier, schema, tableName string, table *types.Table) error {
	query := `
		SELECT INDEX_NAME, NON_UNIQUE, COLUMN_NAME
		FROM INFORMATION_SCHEMA.STATISTICS
		WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
			AND TABLE_NAME = ?
		ORDER BY INDEX_NAME, SEQ_IN_INDEX
	`
	rows, err := q.QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return fmt.Errorf("failed to query indexes for table %s: %w", tableName, err)
	}
	defer rows.Close()

	type entry struct {
		unique  bool
		columns []string
	}
	indexes := make(map[string]*entry)
	var order []string
	for rows.Next() {
		var name, column string
		var nonUnique int
		if err := rows.Scan(&name, &nonUnique, &column); err != nil {
			return fmt.Errorf("failed to scan index: %w", err)
		}
		e, ok := indexes[name]
		if !ok {
			e = &entry{unique: nonUnique == 0}
			indexes[name] = e
			order = append(order, name)
		}
		e.columns = append(e.columns, column)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	foreignKeys := make(map[string]bool)
	for _, fk := range table.ForeignKeys {
		foreignKeys[fk.Name] = true
	}
	sort.Strings(order)
	for _, name := range order {
		e := indexes[name]
		switch {
		case name == PrimaryKeyName:
			table.PrimaryKey = &types.PrimaryKey{Name: PrimaryKeyName, Columns: e.columns}
		case foreignKeys[name]:
			// backing index created implicitly for the foreign key
		case e.unique:
			table.Uniques = append(table.Uniques, types.Unique{Name: name, Columns: e.columns})
		default:
			table.Indexes = append(table.Indexes, types.Index{Name: name, Columns: e.columns})
		}
	}
	return nil
}

func extractForeignKeys(ctx context.Context, q dialect.Querier, schema, tableName string, table *types.Table) error {
	query := `
		SELECT
			kcu.CONSTRAINT_NAME,
			kcu.COLUMN_NAME,
			kcu.REFERENCED_TABLE_SCHEMA,
			kcu.REFERENCED_TABLE_NAME,
			kcu.REFERENCED_COLUMN_NAME,
			rc.DELETE_RULE,
			rc.UPDATE_RULE
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
		JOIN INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc
			ON rc.CONSTRAINT_SCHEMA = kcu.CONSTRAINT_SCHEMA
			AND rc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
		WHERE kcu.TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
			AND kcu.TABLE_NAME = ?
			AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION
	`
	rows, err := q.QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return fmt.Errorf("failed to query foreign keys for table %s: %w", tableName, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, column, refSchema, refTable, refColumn, onDelete, onUpdate string
		if err := rows.Scan(&name, &column, &refSchema, &refTable, &refColumn, &onDelete, &onUpdate); err != nil {
			return fmt.Errorf("failed to scan foreign key: %w", err)
		}
		n := len(table.ForeignKeys)
		if n > 0 && table.ForeignKeys[n-1].Name == name {
			table.ForeignKeys[n-1].Columns = append(table.ForeignKeys[n-1].Columns, column)
			table.ForeignKeys[n-1].ReferencedColumns = append(table.ForeignKeys[n-1].ReferencedColumns, refColumn)
			continue
		}
		if schema != "" && refSchema != schema {
			refTable = refSchema + "." + refTable
		}
		table.ForeignKeys = append(table.ForeignKeys, types.ForeignKey{
			Name:              name,
			Columns:           []string{column},
			ReferencedTable:   refTable,
			ReferencedColumns: []string{refColumn},
			OnDelete:          convertRule(onDelete),
			OnUpdate:          convertRule(onUpdate),
		})
	}
	return rows.Err()
}

func extractChecks(ctx context.Context, q dialect.Querier, schema, tableName string, table *types.Table) error {
	query := `
		SELECT tc.CONSTRAINT_NAME, cc.CHECK_CLAUSE
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		JOIN INFORMATION_SCHEMA.CHECK_CONSTRAINTS cc
			ON cc.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA
			AND cc.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
		WHERE tc.TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
			AND tc.TABLE_NAME = ?
			AND tc.CONSTRAINT_TYPE = 'CHECK'
		ORDER BY tc.CONSTRAINT_NAME
	`
	rows, err := q.QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return fmt.Errorf("failed to query checks for table %s: %w", tableName, err)
	}
	defer rows.Close()

	for rows.Next() {
		var check types.Check
		if err := rows.Scan(&check.Name, &check.Expression); err != nil {
			return fmt.Errorf("failed to scan check: %w", err)
		}
		check.Expression = cleanCheckClause(check.Expression)
		table.Checks = append(table.Checks, check)
	}
	return rows.Err()
}

// ConvertSQLType maps MySQL data types to portable types
func ConvertSQLType(dataType, columnType string) string {
	switch strings.ToLower(dataType) {
	case "varchar", "char":
		if strings.EqualFold(columnType, "char(36)") {
			return "uuid"
		}
		return "varchar"
	case "text", "tinytext", "mediumtext", "longtext":
		return "text"
	case "int", "integer", "smallint", "mediumint":
		return "integer"
	case "tinyint":
		if strings.HasPrefix(strings.ToLower(columnType), "tinyint(1)") {
			return "boolean"
		}
		return "integer"
	case "bigint":
		return "bigint"
	case "float", "double", "real":
		return "float"
	case "decimal", "numeric":
		return "decimal"
	case "date":
		return "date"
	case "time":
		return "time"
	case "timestamp", "datetime":
		return "timestamp"
	case "json":
		return "json"
	default:
		return "text"
	}
}

// convertSQLDefault turns COLUMN_DEFAULT back into a SQL expression. MySQL
// reports literal defaults unquoted.
func convertSQLDefault(value, columnType string, generated bool) string {
	if generated || strings.EqualFold(value, "NULL") {
		if strings.EqualFold(value, "current_timestamp()") {
			return "CURRENT_TIMESTAMP"
		}
		return value
	}
	switch columnType {
	case "integer", "bigint", "float", "decimal", "boolean":
		return value
	}
	if strings.EqualFold(value, "CURRENT_TIMESTAMP") {
		return "CURRENT_TIMESTAMP"
	}
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func cleanCheckClause(clause string) string {
	clause = strings.ReplaceAll(clause, "`", "")
	return dialect.StripParens(clause)
}

func convertRule(rule string) string {
	switch strings.ToUpper(rule) {
	case "CASCADE", "SET NULL", "SET DEFAULT", "RESTRICT":
		return strings.ToUpper(rule)
	default:
		return ""
	}
}
