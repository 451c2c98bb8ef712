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
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/types"
)

// ListTables returns every base table outside the system schemas. Tables in
// the public schema are returned unqualified.
func (p *Provider) ListTables(ctx context.Context, q dialect.Querier) ([]string, error) {
	return ListTables(ctx, q)
}

// IntrospectTable reads a table from the catalog; it returns nil when the
// table does not exist.
func (p *Provider) IntrospectTable(ctx context.Context, q dialect.Querier, name string) (*types.Table, error) {
	return IntrospectTable(ctx, q, name)
}

// NamespaceExists reports whether a schema or database exists
func (p *Provider) NamespaceExists(ctx context.Context, q dialect.Querier, kind operation.Kind, name string) (bool, error) {
	query := `SELECT COUNT(*) FROM information_schema.schemata WHERE schema_name = $1`
	if kind == operation.CreateDatabase || kind == operation.DropDatabase {
		query = `SELECT COUNT(*) FROM pg_database WHERE datname = $1`
	}
	return dialect.Exists(ctx, q, query, name)
}

// ListTables lists tables through information_schema
func ListTables(ctx context.Context, q dialect.Querier) ([]string, error) {
	query := `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
			AND table_schema NOT IN ('pg_catalog', 'information_schema')
			AND table_schema NOT LIKE 'pg_temp%'
		ORDER BY table_schema, table_name
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
		if schema == "public" {
			tables = append(tables, name)
		} else {
			tables = append(tables, schema+"."+name)
		}
	}
	return tables, rows.Err()
}

// IntrospectTable materializes one table snapshot from pg_catalog
func IntrospectTable(ctx context.Context, q dialect.Querier, name string) (*types.Table, error) {
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
	if err := extractIndexes(ctx, q, schema, qualified.Name, table); err != nil {
		return nil, err
	}
	if err := extractSequences(ctx, q, schema, qualified.Name, table); err != nil {
		return nil, err
	}
	return table, nil
}

// extractColumns gets all columns for a specific table
func extractColumns(ctx context.Context, q dialect.Querier, schema, tableName string) ([]types.Column, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.character_maximum_length,
			c.numeric_precision,
			c.numeric_scale,
			c.is_nullable,
			c.column_default,
			c.is_identity
		FROM information_schema.columns c
		WHERE c.table_schema = $1
			AND c.table_name = $2
		ORDER BY c.ordinal_position
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
			maxLength     sql.NullInt64
			numPrecision  sql.NullInt64
			numScale      sql.NullInt64
			isNullable    string
			columnDefault sql.NullString
			isIdentity    sql.NullString
		)

		if err := rows.Scan(&columnName, &dataType, &maxLength, &numPrecision, &numScale, &isNullable, &columnDefault, &isIdentity); err != nil {
			return nil, fmt.Errorf("failed to scan column data: %w", err)
		}

		column := types.Column{
			Name: columnName,
			Type: ConvertSQLType(dataType),
		}
		column.SetNullable(isNullable == "YES")

		switch column.Type {
		case "varchar":
			if maxLength.Valid && maxLength.Int64 > 0 {
				column.Length = int(maxLength.Int64)
			}
		case "decimal":
			if numPrecision.Valid && numPrecision.Int64 > 0 {
				column.Precision = int(numPrecision.Int64)
			}
			if numScale.Valid && numScale.Int64 >= 0 {
				column.Scale = int(numScale.Int64)
			}
		}

		switch {
		case isIdentity.Valid && isIdentity.String == "YES":
			column.Generation = types.GenerationIdentity
		case strings.HasPrefix(columnDefault.String, "nextval("):
			column.Generation = types.GenerationIncrement
		case columnDefault.String == "gen_random_uuid()":
			column.Generation = types.GenerationUUID
		case columnDefault.Valid:
			column.Default = ConvertSQLDefault(columnDefault.String)
		}

		columns = append(columns, column)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over column rows: %w", err)
	}
	return columns, nil
}

const columnNames = `array_to_string(ARRAY(
	SELECT a.attname FROM unnest(%s) WITH ORDINALITY k(attnum, ord)
	JOIN pg_attribute a ON a.attrelid = %s AND a.attnum = k.attnum
	ORDER BY k.ord), ',')`

// extractConstraints reads primary key, unique, check and foreign key constraints
func extractConstraints(ctx context.Context, q dialect.Querier, schema, tableName string, table *types.Table) error {
	query := fmt.Sprintf(`
		SELECT
			c.conname,
			c.contype::text,
			%s,
			COALESCE(fn.nspname, ''),
			COALESCE(ft.relname, ''),
			%s,
			c.confdeltype::text,
			c.confupdtype::text,
			COALESCE(pg_get_expr(c.conbin, c.conrelid), '')
		FROM pg_constraint c
		JOIN pg_class t ON t.oid = c.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		LEFT JOIN pg_class ft ON ft.oid = c.confrelid
		LEFT JOIN pg_namespace fn ON fn.oid = ft.relnamespace
		WHERE n.nspname = $1
			AND t.relname = $2
			AND c.contype IN ('p', 'u', 'c', 'f')
		ORDER BY c.conname
	`, fmt.Sprintf(columnNames, "c.conkey", "c.conrelid"), fmt.Sprintf(columnNames, "c.confkey", "c.confrelid"))

	rows, err := q.QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return fmt.Errorf("failed to query constraints for table %s: %w", tableName, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, kind, columns, refSchema, refTable, refColumns, onDelete, onUpdate, expression string
		if err := rows.Scan(&name, &kind, &columns, &refSchema, &refTable, &refColumns, &onDelete, &onUpdate, &expression); err != nil {
			return fmt.Errorf("failed to scan constraint: %w", err)
		}
		switch kind {
		case "p":
			table.PrimaryKey = &types.PrimaryKey{Name: name, Columns: dialect.SplitList(columns)}
		case "u":
			table.Uniques = append(table.Uniques, types.Unique{Name: name, Columns: dialect.SplitList(columns)})
		case "c":
			table.Checks = append(table.Checks, types.Check{Name: name, Expression: dialect.StripParens(expression)})
		case "f":
			if refSchema != "" && refSchema != "public" {
				refTable = refSchema + "." + refTable
			}
			table.ForeignKeys = append(table.ForeignKeys, types.ForeignKey{
				Name:              name,
				Columns:           dialect.SplitList(columns),
				ReferencedTable:   refTable,
				ReferencedColumns: dialect.SplitList(refColumns),
				OnDelete:          convertAction(onDelete),
				OnUpdate:          convertAction(onUpdate),
			})
		}
	}
	return rows.Err()
}

// extractIndexes reads indexes that do not back a constraint
func extractIndexes(ctx context.Context, q dialect.Querier, schema, tableName string, table *types.Table) error {
	query := fmt.Sprintf(`
		SELECT
			i.relname,
			ix.indisunique,
			COALESCE(pg_get_expr(ix.indpred, ix.indrelid), ''),
			%s
		FROM pg_index ix
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE n.nspname = $1
			AND t.relname = $2
			AND NOT EXISTS (SELECT 1 FROM pg_constraint c WHERE c.conindid = ix.indexrelid AND c.conrelid = ix.indrelid)
		ORDER BY i.relname
	`, fmt.Sprintf(columnNames, "ix.indkey::int2[]", "ix.indrelid"))

	rows, err := q.QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return fmt.Errorf("failed to query indexes for table %s: %w", tableName, err)
	}
	defer rows.Close()

	for rows.Next() {
		var index types.Index
		var columns string
		if err := rows.Scan(&index.Name, &index.Unique, &index.Where, &columns); err != nil {
			return fmt.Errorf("failed to scan index: %w", err)
		}
		index.Columns = dialect.SplitList(columns)
		table.Indexes = append(table.Indexes, index)
	}
	return rows.Err()
}

// extractSequences reads sequences owned by the table's columns. Identity
// sequences are internal and skipped.
func extractSequences(ctx context.Context, q dialect.Querier, schema, tableName string, table *types.Table) error {
	query := `
		SELECT s.relname, a.attname
		FROM pg_class s
		JOIN pg_depend d ON d.objid = s.oid AND d.deptype = 'a'
		JOIN pg_class t ON t.oid = d.refobjid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = d.refobjsubid
		WHERE s.relkind = 'S'
			AND n.nspname = $1
			AND t.relname = $2
		ORDER BY s.relname
	`
	rows, err := q.QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return fmt.Errorf("failed to query sequences for table %s: %w", tableName, err)
	}
	defer rows.Close()

	for rows.Next() {
		var seq types.Sequence
		if err := rows.Scan(&seq.Name, &seq.Column); err != nil {
			return fmt.Errorf("failed to scan sequence: %w", err)
		}
		table.Sequences = append(table.Sequences, seq)
	}
	return rows.Err()
}

// ConvertSQLType maps information_schema data types to portable types
func ConvertSQLType(sqlType string) string {
	switch strings.ToLower(sqlType) {
	case "character varying", "character", "char", "varchar":
		return "varchar"
	case "text":
		return "text"
	case "integer", "smallint", "int", "int4", "int2":
		return "integer"
	case "bigint", "int8":
		return "bigint"
	case "real", "double precision", "float4", "float8":
		return "float"
	case "numeric", "decimal":
		return "decimal"
	case "boolean", "bool":
		return "boolean"
	case "date":
		return "date"
	case "time without time zone", "time with time zone", "time":
		return "time"
	case "timestamp without time zone", "timestamp with time zone", "timestamp":
		return "timestamp"
	case "uuid":
		return "uuid"
	case "json":
		return "json"
	case "jsonb":
		return "jsonb"
	default:
		return "text"
	}
}

var castSuffix = regexp.MustCompile(`^(.*?)::[a-z ]+(\[\])?$`)

// ConvertSQLDefault strips the type casts PostgreSQL adds to stored defaults
func ConvertSQLDefault(sqlDefault string) string {
	value := strings.TrimSpace(sqlDefault)
	for {
		m := castSuffix.FindStringSubmatch(value)
		if m == nil {
			break
		}
		value = m[1]
	}
	if value == "now()" {
		return "CURRENT_TIMESTAMP"
	}
	return value
}

func convertAction(code string) string {
	switch code {
	case "c":
		return "CASCADE"
	case "n":
		return "SET NULL"
	case "d":
		return "SET DEFAULT"
	case "r":
		return "RESTRICT"
	default:
		return ""
	}
}
