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
package sqlserver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/types"
)

// ListTables returns user tables. Tables in dbo are returned unqualified.
func (p *Provider) ListTables(ctx context.Context, q dialect.Querier) ([]string, error) {
	query := `
		SELECT s.name, t.name
		FROM sys.tables t
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE t.is_ms_shipped = 0
		ORDER BY s.name, t.name
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var schema, name string
		if err := rows.Scan(&schema, &name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		if schema == "dbo" {
			tables = append(tables, name)
		} else {
			tables = append(tables, schema+"."+name)
		}
	}
	return tables, rows.Err()
}

// NamespaceExists reports whether a schema or database exists
func (p *Provider) NamespaceExists(ctx context.Context, q dialect.Querier, kind operation.Kind, name string) (bool, error) {
	query := `SELECT COUNT(*) FROM sys.schemas WHERE name = @p1`
	if kind == operation.CreateDatabase || kind == operation.DropDatabase {
		query = `SELECT COUNT(*) FROM sys.databases WHERE name = @p1`
	}
	return dialect.Exists(ctx, q, query, name)
}

// IntrospectTable reads a table from the sys catalog views; it returns nil
// when the table does not exist.
func (p *Provider) IntrospectTable(ctx context.Context, q dialect.Querier, name string) (*types.Table, error) {
	columns, err := extractColumns(ctx, q, name)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, nil
	}

	table := &types.Table{Name: name, Columns: columns}
	if err := extractIndexes(ctx, q, name, table); err != nil {
		return nil, err
	}
	if err := extractForeignKeys(ctx, q, name, table); err != nil {
		return nil, err
	}
	if err := extractChecks(ctx, q, name, table); err != nil {
		return nil, err
	}
	return table, nil
}

func extractColumns(ctx context.Context, q dialect.Querier, tableName string) ([]types.Column, error) {
	query := `
		SELECT c.name, t.name, c.max_length, c.precision, c.scale, c.is_nullable, c.is_identity, dc.definition
		FROM sys.columns c
		JOIN sys.types t ON t.user_type_id = c.user_type_id
		LEFT JOIN sys.default_constraints dc
			ON dc.parent_object_id = c.object_id AND dc.parent_column_id = c.column_id
		WHERE c.object_id = OBJECT_ID(@p1)
		ORDER BY c.column_id
	`
	rows, err := q.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns for table %s: %w", tableName, err)
	}
	defer rows.Close()

	var columns []types.Column
	for rows.Next() {
		var (
			columnName, typeName   string
			maxLength              int
			precision, scale       int
			isNullable, isIdentity bool
			definition             sql.NullString
		)
		if err := rows.Scan(&columnName, &typeName, &maxLength, &precision, &scale, &isNullable, &isIdentity, &definition); err != nil {
			return nil, fmt.Errorf("failed to scan column data: %w", err)
		}

		column := ConvertSQLType(typeName, maxLength, precision, scale)
		column.Name = columnName
		column.SetNullable(isNullable)
		switch {
		case isIdentity:
			column.Generation = types.GenerationIncrement
		case definition.Valid && strings.EqualFold(dialect.StripParens(definition.String), "newid()"):
			column.Generation = types.GenerationUUID
		case definition.Valid:
			column.Default = ConvertSQLDefault(definition.String)
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}

func extractIndexes(ctx context.Context, q dialect.Querier, tableName string, table *types.Table) error {
	query := `
		SELECT i.name, i.is_unique, i.is_primary_key, i.is_unique_constraint,
			COALESCE(i.filter_definition, ''), c.name
		FROM sys.indexes i
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		WHERE i.object_id = OBJECT_ID(@p1) AND i.type > 0 AND ic.is_included_column = 0
		ORDER BY i.name, ic.key_ordinal
	`
	rows, err := q.QueryContext(ctx, query, tableName)
	if err != nil {
		return fmt.Errorf("failed to query indexes for table %s: %w", tableName, err)
	}
	defer rows.Close()

	uniques := map[string]int{}
	indexes := map[string]int{}
	for rows.Next() {
		var name, filter, column string
		var isUnique, isPrimaryKey, isUniqueConstraint bool
		if err := rows.Scan(&name, &isUnique, &isPrimaryKey, &isUniqueConstraint, &filter, &column); err != nil {
			return fmt.Errorf("failed to scan index: %w", err)
		}
		switch {
		case isPrimaryKey:
			if table.PrimaryKey == nil {
				table.PrimaryKey = &types.PrimaryKey{Name: name}
			}
			table.PrimaryKey.Columns = append(table.PrimaryKey.Columns, column)
		case isUniqueConstraint:
			i, ok := uniques[name]
			if !ok {
				i = len(table.Uniques)
				uniques[name] = i
				table.Uniques = append(table.Uniques, types.Unique{Name: name})
			}
			table.Uniques[i].Columns = append(table.Uniques[i].Columns, column)
		default:
			i, ok := indexes[name]
			if !ok {
				i = len(table.Indexes)
				indexes[name] = i
				table.Indexes = append(table.Indexes, types.Index{Name: name, Unique: isUnique, Where: dialect.StripParens(filter)})
			}
			table.Indexes[i].Columns = append(table.Indexes[i].Columns, column)
		}
	}
	return rows.Err()
}

func extractForeignKeys(ctx context.Context, q dialect.Querier, tableName string, table *types.Table) error {
	query := `
		SELECT fk.name, pc.name, SCHEMA_NAME(rt.schema_id), rt.name, rc.name,
			fk.delete_referential_action_desc, fk.update_referential_action_desc
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
		JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
		JOIN sys.tables rt ON rt.object_id = fkc.referenced_object_id
		JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
		WHERE fk.parent_object_id = OBJECT_ID(@p1)
		ORDER BY fk.name, fkc.constraint_column_id
	`
	rows, err := q.QueryContext(ctx, query, tableName)
	if err != nil {
		return fmt.Errorf("failed to query foreign keys for table %s: %w", tableName, err)
	}
	defer rows.Close()

	fks := map[string]int{}
	for rows.Next() {
		var name, column, refSchema, refTable, refColumn, onDelete, onUpdate string
		if err := rows.Scan(&name, &column, &refSchema, &refTable, &refColumn, &onDelete, &onUpdate); err != nil {
			return fmt.Errorf("failed to scan foreign key: %w", err)
		}
		i, ok := fks[name]
		if !ok {
			i = len(table.ForeignKeys)
			fks[name] = i
			if refSchema != "dbo" {
				refTable = refSchema + "." + refTable
			}
			table.ForeignKeys = append(table.ForeignKeys, types.ForeignKey{
				Name:            name,
				ReferencedTable: refTable,
				OnDelete:        convertAction(onDelete),
				OnUpdate:        convertAction(onUpdate),
			})
		}
		table.ForeignKeys[i].Columns = append(table.ForeignKeys[i].Columns, column)
		table.ForeignKeys[i].ReferencedColumns = append(table.ForeignKeys[i].ReferencedColumns, refColumn)
	}
	return rows.Err()
}

func extractChecks(ctx context.Context, q dialect.Querier, tableName string, table *types.Table) error {
	rows, err := q.QueryContext(ctx, `
		SELECT name, definition FROM sys.check_constraints
		WHERE parent_object_id = OBJECT_ID(@p1)
		ORDER BY name
	`, tableName)
	if err != nil {
		return fmt.Errorf("failed to query check constraints for table %s: %w", tableName, err)
	}
	defer rows.Close()

	for rows.Next() {
		var check types.Check
		if err := rows.Scan(&check.Name, &check.Expression); err != nil {
			return fmt.Errorf("failed to scan check constraint: %w", err)
		}
		check.Expression = dialect.StripParens(check.Expression)
		table.Checks = append(table.Checks, check)
	}
	return rows.Err()
}

// ConvertSQLType maps a sys.types name back to a portable column.
// maxLength is in bytes and -1 for MAX.
func ConvertSQLType(typeName string, maxLength, precision, scale int) types.Column {
	var column types.Column
	switch strings.ToLower(typeName) {
	case "varchar", "char":
		column.Type = "varchar"
		if maxLength > 0 {
			column.Length = maxLength
		} else {
			column.Type = "text"
		}
	case "nvarchar", "nchar":
		column.Type = "varchar"
		if maxLength > 0 {
			column.Length = maxLength / 2
		} else {
			column.Type = "text"
		}
	case "text", "ntext":
		column.Type = "text"
	case "int", "smallint", "tinyint":
		column.Type = "integer"
	case "bigint":
		column.Type = "bigint"
	case "float", "real":
		column.Type = "float"
	case "decimal", "numeric":
		column.Type = "decimal"
		column.Precision, column.Scale = precision, scale
	case "bit":
		column.Type = "boolean"
	case "date":
		column.Type = "date"
	case "time":
		column.Type = "time"
	case "datetime", "datetime2", "smalldatetime", "datetimeoffset":
		column.Type = "timestamp"
	case "uniqueidentifier":
		column.Type = "uuid"
	default:
		column.Type = "text"
	}
	return column
}

// ConvertSQLDefault strips the parentheses SQL Server stores around defaults
func ConvertSQLDefault(definition string) string {
	value := dialect.StripParens(definition)
	if strings.EqualFold(value, "getdate()") || strings.EqualFold(value, "sysdatetime()") {
		return "CURRENT_TIMESTAMP"
	}
	return value
}

func convertAction(action string) string {
	if action == "" || action == "NO_ACTION" {
		return ""
	}
	return strings.ReplaceAll(action, "_", " ")
}
