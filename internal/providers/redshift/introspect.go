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
package redshift

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/providers/postgresql"
	"github.com/ocomsoft/schemasync/internal/types"
)

// ListTables returns every user table; Redshift keeps the PostgreSQL
// information_schema layout.
func (p *Provider) ListTables(ctx context.Context, q dialect.Querier) ([]string, error) {
	return postgresql.ListTables(ctx, q)
}

// NamespaceExists reports whether a schema or database exists
func (p *Provider) NamespaceExists(ctx context.Context, q dialect.Querier, kind operation.Kind, name string) (bool, error) {
	query := `SELECT COUNT(*) FROM pg_namespace WHERE nspname = $1`
	if kind == operation.CreateDatabase || kind == operation.DropDatabase {
		query = `SELECT COUNT(*) FROM pg_database WHERE datname = $1`
	}
	return dialect.Exists(ctx, q, query, name)
}

// IntrospectTable reads a table through information_schema. Redshift's
// pg_catalog predates the array functions the PostgreSQL introspection uses.
func (p *Provider) IntrospectTable(ctx context.Context, q dialect.Querier, name string) (*types.Table, error) {
	qualified := types.ParseTableName(name)
	schema := qualified.Schema
	if schema == "" {
		schema = "public"
	}

	columns, err := extractColumns(ctx, q, schema, qualified.Name)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, nil
	}
	table := &types.Table{Name: name, Columns: columns}
	if err := extractConstraints(ctx, q, schema, qualified.Name, table); err != nil {
		return nil, err
	}
	return table, nil
}

func extractColumns(ctx context.Context, q dialect.Querier, schema, tableName string) ([]types.Column, error) {
	query := `
		SELECT column_name, data_type, character_maximum_length, numeric_precision,
			numeric_scale, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`
	rows, err := q.QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns for table %s: %w", tableName, err)
	}
	defer rows.Close()

	var columns []types.Column
	for rows.Next() {
		var (
			columnName, dataType, isNullable string
			maxLength, precision, scale      sql.NullInt64
			columnDefault                    sql.NullString
		)
		if err := rows.Scan(&columnName, &dataType, &maxLength, &precision, &scale, &isNullable, &columnDefault); err != nil {
			return nil, fmt.Errorf("failed to scan column data: %w", err)
		}

		column := types.Column{Name: columnName, Type: ConvertSQLType(dataType)}
		column.SetNullable(isNullable == "YES")
		switch column.Type {
		case "varchar":
			column.Length = int(maxLength.Int64)
		case "decimal":
			column.Precision, column.Scale = int(precision.Int64), int(scale.Int64)
		}
		switch {
		case strings.HasPrefix(columnDefault.String, `"identity"(`):
			column.Generation = types.GenerationIncrement
		case columnDefault.Valid:
			column.Default = postgresql.ConvertSQLDefault(columnDefault.String)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over column rows: %w", err)
	}
	return columns, nil
}

func extractConstraints(ctx context.Context, q dialect.Querier, schema, tableName string, table *types.Table) error {
	query := `
		SELECT tc.constraint_name, tc.constraint_type, kcu.column_name,
			COALESCE(ref.table_schema, ''), COALESCE(ref.table_name, ''), COALESCE(ref.column_name, ''),
			COALESCE(rc.update_rule, ''), COALESCE(rc.delete_rule, '')
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_schema = tc.constraint_schema AND kcu.constraint_name = tc.constraint_name
		LEFT JOIN information_schema.referential_constraints rc
			ON rc.constraint_schema = tc.constraint_schema AND rc.constraint_name = tc.constraint_name
		LEFT JOIN information_schema.key_column_usage ref
			ON ref.constraint_schema = rc.unique_constraint_schema
			AND ref.constraint_name = rc.unique_constraint_name
			AND ref.ordinal_position = kcu.position_in_unique_constraint
		WHERE tc.table_schema = $1 AND tc.table_name = $2
			AND tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE', 'FOREIGN KEY')
		ORDER BY tc.constraint_name, kcu.ordinal_position
	`
	rows, err := q.QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return fmt.Errorf("failed to query constraints for table %s: %w", tableName, err)
	}
	defer rows.Close()

	uniques := map[string]int{}
	fks := map[string]int{}
	for rows.Next() {
		var name, kind, column, refSchema, refTable, refColumn, updateRule, deleteRule string
		if err := rows.Scan(&name, &kind, &column, &refSchema, &refTable, &refColumn, &updateRule, &deleteRule); err != nil {
			return fmt.Errorf("failed to scan constraint data: %w", err)
		}
		switch kind {
		case "PRIMARY KEY":
			if table.PrimaryKey == nil {
				table.PrimaryKey = &types.PrimaryKey{Name: name}
			}
			table.PrimaryKey.Columns = append(table.PrimaryKey.Columns, column)
		case "UNIQUE":
			i, ok := uniques[name]
			if !ok {
				i = len(table.Uniques)
				uniques[name] = i
				table.Uniques = append(table.Uniques, types.Unique{Name: name})
			}
			table.Uniques[i].Columns = append(table.Uniques[i].Columns, column)
		case "FOREIGN KEY":
			i, ok := fks[name]
			if !ok {
				i = len(table.ForeignKeys)
				fks[name] = i
				if refSchema != "" && refSchema != "public" {
					refTable = refSchema + "." + refTable
				}
				table.ForeignKeys = append(table.ForeignKeys, types.ForeignKey{
					Name:            name,
					ReferencedTable: refTable,
					OnDelete:        convertRule(deleteRule),
					OnUpdate:        convertRule(updateRule),
				})
			}
			table.ForeignKeys[i].Columns = append(table.ForeignKeys[i].Columns, column)
			table.ForeignKeys[i].ReferencedColumns = append(table.ForeignKeys[i].ReferencedColumns, refColumn)
		}
	}
	return rows.Err()
}

// ConvertSQLType maps Redshift data types to portable types
func ConvertSQLType(dataType string) string {
	switch strings.ToLower(dataType) {
	case "super":
		return "jsonb"
	default:
		return postgresql.ConvertSQLType(dataType)
	}
}

func convertRule(rule string) string {
	if rule == "" || strings.EqualFold(rule, "NO ACTION") {
		return ""
	}
	return strings.ToUpper(rule)
}
