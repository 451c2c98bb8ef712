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
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/types"
)

// ListTables returns user tables from sqlite_master
func (p *Provider) ListTables(ctx context.Context, q dialect.Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
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

// NamespaceExists reports whether an attached database exists
func (p *Provider) NamespaceExists(ctx context.Context, q dialect.Querier, kind operation.Kind, name string) (bool, error) {
	return dialect.Exists(ctx, q, `SELECT COUNT(*) FROM pragma_database_list WHERE name = ?`, name)
}

type indexEntry struct {
	name    string
	unique  bool
	origin  string
	partial bool
}

// IntrospectTable reads a table through the pragma table functions. Names
// of table constraints are not exposed by any pragma and are parsed from the
// stored CREATE TABLE statement. Queries run one after another because q may
// be a single connection.
func (p *Provider) IntrospectTable(ctx context.Context, q dialect.Querier, name string) (*types.Table, error) {
	createSQL, err := p.tableSQL(ctx, q, name)
	if err != nil {
		return nil, err
	}
	if createSQL == "" {
		return nil, nil
	}
	named := ParseConstraintNames(createSQL)
	table := &types.Table{Name: name}

	var pkColumns []struct {
		position int
		name     string
	}
	err = p.queryRows(ctx, q, `SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?)`, name, func(rows *sql.Rows) error {
		var (
			columnName, declared string
			notNull, pk          int
			dflt                 sql.NullString
		)
		if err := rows.Scan(&columnName, &declared, &notNull, &dflt, &pk); err != nil {
			return err
		}
		column := ConvertSQLType(declared)
		column.Name = columnName
		column.SetNullable(notNull == 0)
		if dflt.Valid {
			// dflt_value holds DEFAULT (expr) without its outer parentheses
			if dflt.String == UUIDDefault || "("+dflt.String+")" == UUIDDefault {
				column.Generation = types.GenerationUUID
			} else {
				column.Default = dflt.String
			}
		}
		if pk > 0 {
			pkColumns = append(pkColumns, struct {
				position int
				name     string
			}{pk, columnName})
		}
		table.Columns = append(table.Columns, column)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", name, err)
	}

	if len(pkColumns) > 0 {
		sort.Slice(pkColumns, func(i, j int) bool { return pkColumns[i].position < pkColumns[j].position })
		pk := &types.PrimaryKey{Name: named.PrimaryKey}
		for _, c := range pkColumns {
			pk.Columns = append(pk.Columns, c.name)
		}
		table.PrimaryKey = pk
		if len(pk.Columns) == 1 && autoIncrement.MatchString(createSQL) {
			if column := table.GetColumnByName(pk.Columns[0]); column != nil {
				column.Generation = types.GenerationIncrement
			}
		}
	}

	var indexes []indexEntry
	err = p.queryRows(ctx, q, `SELECT name, "unique", origin, partial FROM pragma_index_list(?) ORDER BY name`, name, func(rows *sql.Rows) error {
		var e indexEntry
		var unique, partial int
		if err := rows.Scan(&e.name, &unique, &e.origin, &partial); err != nil {
			return err
		}
		e.unique, e.partial = unique == 1, partial == 1
		indexes = append(indexes, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read indexes of %s: %w", name, err)
	}

	for _, e := range indexes {
		columns, err := p.indexColumns(ctx, q, e.name)
		if err != nil {
			return nil, err
		}
		switch e.origin {
		case "c":
			index := types.Index{Name: e.name, Columns: columns, Unique: e.unique}
			if e.partial {
				if index.Where, err = p.partialWhere(ctx, q, e.name); err != nil {
					return nil, err
				}
			}
			table.Indexes = append(table.Indexes, index)
		case "u":
			table.Uniques = append(table.Uniques, types.Unique{Name: named.Uniques[types.ColumnsKey(columns)], Columns: columns})
		}
	}

	if err := p.readForeignKeys(ctx, q, table, named); err != nil {
		return nil, err
	}
	table.Checks = named.Checks
	return table, nil
}

func (p *Provider) tableSQL(ctx context.Context, q dialect.Querier, name string) (string, error) {
	var createSQL string
	err := p.queryRows(ctx, q, `SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, name, func(rows *sql.Rows) error {
		return rows.Scan(&createSQL)
	})
	if err != nil {
		return "", fmt.Errorf("failed to read definition of %s: %w", name, err)
	}
	return createSQL, nil
}

func (p *Provider) indexColumns(ctx context.Context, q dialect.Querier, index string) ([]string, error) {
	var columns []string
	err := p.queryRows(ctx, q, `SELECT name FROM pragma_index_info(?) ORDER BY seqno`, index, func(rows *sql.Rows) error {
		var column sql.NullString
		if err := rows.Scan(&column); err != nil {
			return err
		}
		columns = append(columns, column.String)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of index %s: %w", index, err)
	}
	return columns, nil
}

func (p *Provider) partialWhere(ctx context.Context, q dialect.Querier, index string) (string, error) {
	var indexSQL string
	err := p.queryRows(ctx, q, `SELECT sql FROM sqlite_master WHERE type = 'index' AND name = ?`, index, func(rows *sql.Rows) error {
		return rows.Scan(&indexSQL)
	})
	if err != nil {
		return "", fmt.Errorf("failed to read index %s: %w", index, err)
	}
	if m := whereClause.FindStringSubmatch(indexSQL); m != nil {
		return strings.TrimSpace(m[1]), nil
	}
	return "", nil
}

func (p *Provider) readForeignKeys(ctx context.Context, q dialect.Querier, table *types.Table, named ConstraintNames) error {
	byID := make(map[int]*types.ForeignKey)
	var ids []int
	err := p.queryRows(ctx, q, `SELECT id, "table", "from", "to", on_update, on_delete FROM pragma_foreign_key_list(?) ORDER BY id, seq`, table.Name, func(rows *sql.Rows) error {
		var id int
		var refTable, from, onUpdate, onDelete string
		var to sql.NullString
		if err := rows.Scan(&id, &refTable, &from, &to, &onUpdate, &onDelete); err != nil {
			return err
		}
		fk, ok := byID[id]
		if !ok {
			fk = &types.ForeignKey{ReferencedTable: refTable, OnDelete: convertAction(onDelete), OnUpdate: convertAction(onUpdate)}
			byID[id] = fk
			ids = append(ids, id)
		}
		fk.Columns = append(fk.Columns, from)
		fk.ReferencedColumns = append(fk.ReferencedColumns, to.String)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read foreign keys of %s: %w", table.Name, err)
	}

	// pragma_foreign_key_list numbers constraints in reverse declaration order
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	for _, id := range ids {
		fk := byID[id]
		fk.Name = named.ForeignKeys[types.ColumnsKey(fk.Columns)+"->"+fk.ReferencedTable]
		table.ForeignKeys = append(table.ForeignKeys, *fk)
	}
	return nil
}

func (p *Provider) queryRows(ctx context.Context, q dialect.Querier, query, arg string, scan func(*sql.Rows) error) error {
	rows, err := q.QueryContext(ctx, query, arg)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

var (
	autoIncrement   = regexp.MustCompile(`(?i)\bAUTOINCREMENT\b`)
	whereClause     = regexp.MustCompile(`(?is)\bWHERE\b(.*)$`)
	constraintStart = regexp.MustCompile(`(?i)CONSTRAINT\s+(?:"([^"]+)"|` + "`([^`]+)`" + `|\[([^\]]+)\]|(\w+))\s+(PRIMARY\s+KEY|UNIQUE|FOREIGN\s+KEY|CHECK)\s*`)
	references      = regexp.MustCompile(`(?i)^\s*REFERENCES\s+(?:"([^"]+)"|(\w+))`)
	declaredType    = regexp.MustCompile(`^\s*([A-Za-z ]+?)\s*(?:\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\))?\s*$`)
)

// ConstraintNames holds the constraint names declared in a CREATE TABLE
type ConstraintNames struct {
	PrimaryKey string
	// keyed by sorted column list
	Uniques map[string]string
	// keyed by sorted column list + "->" + referenced table
	ForeignKeys map[string]string
	Checks      []types.Check
}

// ParseConstraintNames extracts named constraints from a CREATE TABLE statement
func ParseConstraintNames(createSQL string) ConstraintNames {
	named := ConstraintNames{Uniques: map[string]string{}, ForeignKeys: map[string]string{}}
	for _, m := range constraintStart.FindAllStringSubmatchIndex(createSQL, -1) {
		name := ""
		for g := 1; g <= 4; g++ {
			if m[2*g] >= 0 {
				name = createSQL[m[2*g]:m[2*g+1]]
				break
			}
		}
		kind := strings.ToUpper(strings.Join(strings.Fields(createSQL[m[10]:m[11]]), " "))
		rest := createSQL[m[1]:]

		switch kind {
		case "PRIMARY KEY":
			named.PrimaryKey = name
		case "UNIQUE":
			if group, ok := parenGroup(rest); ok {
				named.Uniques[types.ColumnsKey(splitIdentifiers(group))] = name
			}
		case "CHECK":
			if group, ok := parenGroup(rest); ok {
				named.Checks = append(named.Checks, types.Check{Name: name, Expression: dialect.StripParens(group)})
			}
		case "FOREIGN KEY":
			group, ok := parenGroup(rest)
			if !ok {
				continue
			}
			after := rest[strings.Index(rest, group)+len(group)+1:]
			if ref := references.FindStringSubmatch(after); ref != nil {
				refTable := ref[1]
				if refTable == "" {
					refTable = ref[2]
				}
				named.ForeignKeys[types.ColumnsKey(splitIdentifiers(group))+"->"+refTable] = name
			}
		}
	}
	return named
}

// parenGroup returns the contents of the parenthesized group s starts with
func parenGroup(s string) (string, bool) {
	if !strings.HasPrefix(s, "(") {
		return "", false
	}
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[1:i], true
			}
		}
	}
	return "", false
}

func splitIdentifiers(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		part = strings.Trim(strings.TrimSpace(part), "\"`[]")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ConvertSQLType maps a declared SQLite type back to a portable column
func ConvertSQLType(declared string) types.Column {
	var column types.Column
	m := declaredType.FindStringSubmatch(declared)
	if m == nil {
		column.Type = "text"
		return column
	}
	first, _ := strconv.Atoi(m[2])
	second, _ := strconv.Atoi(m[3])
	switch strings.ToUpper(strings.TrimSpace(m[1])) {
	case "VARCHAR", "CHARACTER VARYING", "CHAR", "NVARCHAR":
		column.Type = "varchar"
		column.Length = first
	case "INTEGER", "INT", "SMALLINT", "TINYINT", "MEDIUMINT":
		column.Type = "integer"
	case "BIGINT":
		column.Type = "bigint"
	case "REAL", "FLOAT", "DOUBLE", "DOUBLE PRECISION":
		column.Type = "float"
	case "DECIMAL", "NUMERIC":
		column.Type = "decimal"
		column.Precision = first
		column.Scale = second
	case "BOOLEAN", "BOOL":
		column.Type = "boolean"
	case "DATE":
		column.Type = "date"
	case "TIME":
		column.Type = "time"
	case "TIMESTAMP", "DATETIME":
		column.Type = "timestamp"
	case "UUID":
		column.Type = "uuid"
	case "JSON":
		column.Type = "json"
	case "JSONB":
		column.Type = "jsonb"
	default:
		column.Type = "text"
	}
	return column
}

func convertAction(action string) string {
	switch strings.ToUpper(action) {
	case "CASCADE", "SET NULL", "SET DEFAULT", "RESTRICT":
		return strings.ToUpper(action)
	default:
		return ""
	}
}
