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
package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ocomsoft/schemasync/internal/errors"
)

// Schema represents a YAML schema file structure
type Schema struct {
	Database Database                     `yaml:"database"`
	Defaults map[string]map[string]string `yaml:"defaults,omitempty"`
	Tables   []Table                      `yaml:"tables"`
}

// Database represents the database metadata
type Database struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// Table is a snapshot of one table's structure at a point in time. The same
// type describes the desired model and the introspected database.
type Table struct {
	Name        string       `yaml:"name"`
	RenamedFrom string       `yaml:"renamed_from,omitempty"`
	Columns     []Column     `yaml:"columns"`
	PrimaryKey  *PrimaryKey  `yaml:"primary_key,omitempty"`
	Indexes     []Index      `yaml:"indexes,omitempty"`
	Uniques     []Unique     `yaml:"uniques,omitempty"`
	Checks      []Check      `yaml:"checks,omitempty"`
	ForeignKeys []ForeignKey `yaml:"foreign_keys,omitempty"`
	Sequences   []Sequence   `yaml:"sequences,omitempty"`
}

// Column represents a table column
type Column struct {
	Name        string `yaml:"name"`
	RenamedFrom string `yaml:"renamed_from,omitempty"`
	Type        string `yaml:"type"`
	Length      int    `yaml:"length,omitempty"`
	Precision   int    `yaml:"precision,omitempty"`
	Scale       int    `yaml:"scale,omitempty"`
	Nullable    *bool  `yaml:"nullable,omitempty"`
	// Default is a SQL expression; empty means no default.
	Default    string `yaml:"default,omitempty"`
	Generation string `yaml:"generation,omitempty"`
}

// Generation strategies
const (
	GenerationIncrement = "increment"
	GenerationIdentity  = "identity"
	GenerationUUID      = "uuid"
)

// Index represents a database index definition
type Index struct {
	Name    string   `yaml:"name,omitempty"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique,omitempty"`
	Where   string   `yaml:"where,omitempty"`
}

// Unique represents a unique constraint
type Unique struct {
	Name    string   `yaml:"name,omitempty"`
	Columns []string `yaml:"columns"`
}

// Check represents a check constraint
type Check struct {
	Name       string `yaml:"name,omitempty"`
	Expression string `yaml:"expression"`
}

// ForeignKey represents a foreign key relationship
type ForeignKey struct {
	Name              string   `yaml:"name,omitempty"`
	Columns           []string `yaml:"columns"`
	ReferencedTable   string   `yaml:"referenced_table"`
	ReferencedColumns []string `yaml:"referenced_columns"`
	OnDelete          string   `yaml:"on_delete,omitempty"`
	OnUpdate          string   `yaml:"on_update,omitempty"`
}

// PrimaryKey represents the primary key constraint
type PrimaryKey struct {
	Name    string   `yaml:"name,omitempty"`
	Columns []string `yaml:"columns"`
}

// Sequence is a named sequence, usually owned by a generated column
type Sequence struct {
	Name   string `yaml:"name"`
	Column string `yaml:"column,omitempty"`
}

// DatabaseType represents supported database types
type DatabaseType string

const (
	DatabasePostgreSQL DatabaseType = "postgresql"
	DatabaseMySQL      DatabaseType = "mysql"
	DatabaseSQLServer  DatabaseType = "sqlserver"
	DatabaseSQLite     DatabaseType = "sqlite"
	DatabaseRedshift   DatabaseType = "redshift"
	DatabaseTiDB       DatabaseType = "tidb"
	DatabaseTurso      DatabaseType = "turso"
	DatabaseAuroraDSQL DatabaseType = "auroradsql"
)

// ParseDatabaseType parses a string into a DatabaseType
func ParseDatabaseType(db string) (DatabaseType, error) {
	if IsValidDatabase(db) {
		return DatabaseType(db), nil
	}
	return "", fmt.Errorf("unsupported database type: %s (supported: postgresql, mysql, sqlserver, sqlite, redshift, tidb, turso, auroradsql)", db)
}

// IsValidDatabase checks if a database type is valid
func IsValidDatabase(db string) bool {
	switch DatabaseType(db) {
	case DatabasePostgreSQL, DatabaseMySQL, DatabaseSQLServer, DatabaseSQLite, DatabaseRedshift, DatabaseTiDB, DatabaseTurso, DatabaseAuroraDSQL:
		return true
	default:
		return false
	}
}

// ValidColumnTypes represents the portable column types understood by every provider
var ValidColumnTypes = map[string]bool{
	"varchar":   true,
	"text":      true,
	"integer":   true,
	"bigint":    true,
	"float":     true,
	"decimal":   true,
	"boolean":   true,
	"date":      true,
	"timestamp": true,
	"time":      true,
	"uuid":      true,
	"json":      true,
	"jsonb":     true,
}

// IsValidColumnType checks if a column type is valid
func IsValidColumnType(columnType string) bool {
	return ValidColumnTypes[columnType]
}

// IsNullable returns the nullable value, defaulting to true if not set
func (c *Column) IsNullable() bool {
	if c.Nullable == nil {
		return true
	}
	return *c.Nullable
}

// SetNullable sets the nullable field
func (c *Column) SetNullable(nullable bool) {
	c.Nullable = &nullable
}

// IsGenerated reports whether the column value is produced by the database
func (c *Column) IsGenerated() bool {
	return c.Generation != ""
}

// SameDefinition reports whether two columns have the same structure,
// ignoring their names.
func (c *Column) SameDefinition(other *Column) bool {
	return c.Type == other.Type &&
		c.Length == other.Length &&
		c.Precision == other.Precision &&
		c.Scale == other.Scale &&
		c.IsNullable() == other.IsNullable() &&
		c.Default == other.Default &&
		c.Generation == other.Generation
}

// Clone returns a deep copy of the column
func (c Column) Clone() Column {
	if c.Nullable != nil {
		nullable := *c.Nullable
		c.Nullable = &nullable
	}
	return c
}

// Clone returns a deep copy of the table. Snapshots are never mutated in
// place; every structural change works on a clone.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	clone := &Table{
		Name:        t.Name,
		RenamedFrom: t.RenamedFrom,
	}
	for _, column := range t.Columns {
		clone.Columns = append(clone.Columns, column.Clone())
	}
	if t.PrimaryKey != nil {
		pk := *t.PrimaryKey
		pk.Columns = copyStrings(pk.Columns)
		clone.PrimaryKey = &pk
	}
	for _, index := range t.Indexes {
		index.Columns = copyStrings(index.Columns)
		clone.Indexes = append(clone.Indexes, index)
	}
	for _, unique := range t.Uniques {
		unique.Columns = copyStrings(unique.Columns)
		clone.Uniques = append(clone.Uniques, unique)
	}
	clone.Checks = append(clone.Checks, t.Checks...)
	for _, fk := range t.ForeignKeys {
		fk.Columns = copyStrings(fk.Columns)
		fk.ReferencedColumns = copyStrings(fk.ReferencedColumns)
		clone.ForeignKeys = append(clone.ForeignKeys, fk)
	}
	clone.Sequences = append(clone.Sequences, t.Sequences...)
	return clone
}

// GetTableByName finds a table by name in the schema
func (s *Schema) GetTableByName(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// GetColumnByName finds a column by name in the table
func (t *Table) GetColumnByName(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// ColumnIndex returns the position of the named column or -1
func (t *Table) ColumnIndex(name string) int {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return i
		}
	}
	return -1
}

// GetSequenceForColumn returns the sequence owned by the named column
func (t *Table) GetSequenceForColumn(column string) *Sequence {
	for i := range t.Sequences {
		if t.Sequences[i].Column == column {
			return &t.Sequences[i]
		}
	}
	return nil
}

// HasPrimaryKey checks if the table has a primary key
func (t *Table) HasPrimaryKey() bool {
	return t.PrimaryKey != nil && len(t.PrimaryKey.Columns) > 0
}

// Normalize returns a copy with primary key columns marked NOT NULL, the way
// every database stores them.
func (t *Table) Normalize() *Table {
	n := t.Clone()
	if n.HasPrimaryKey() {
		for i := range n.Columns {
			if ContainsColumn(n.PrimaryKey.Columns, n.Columns[i].Name) {
				n.Columns[i].SetNullable(false)
			}
		}
	}
	return n
}

// ConstraintNames returns every index and constraint name defined on the table
func (t *Table) ConstraintNames() []string {
	var names []string
	if t.PrimaryKey != nil && t.PrimaryKey.Name != "" {
		names = append(names, t.PrimaryKey.Name)
	}
	for _, index := range t.Indexes {
		names = append(names, index.Name)
	}
	for _, unique := range t.Uniques {
		names = append(names, unique.Name)
	}
	for _, check := range t.Checks {
		names = append(names, check.Name)
	}
	for _, fk := range t.ForeignKeys {
		names = append(names, fk.Name)
	}
	return names
}

// Validate validates the table structure. Names left empty are allowed; the
// naming strategy fills them before diffing.
func (t *Table) Validate() error {
	if t.Name == "" {
		return errors.NewValidationError("table", "name is required")
	}
	if len(t.Columns) == 0 {
		return errors.NewValidationError(t.Name, "at least one column is required")
	}

	seen := make(map[string]bool)
	for i, column := range t.Columns {
		if column.Name == "" {
			return errors.NewValidationError(fmt.Sprintf("%s.column[%d]", t.Name, i), "name is required")
		}
		if seen[column.Name] {
			return errors.NewValidationError(t.Name+"."+column.Name, "duplicate column")
		}
		seen[column.Name] = true
		if err := column.Validate(); err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
	}

	checkColumns := func(owner string, columns []string) error {
		if len(columns) == 0 {
			return errors.NewValidationError(t.Name+"."+owner, "at least one column is required")
		}
		for _, name := range columns {
			if !seen[name] {
				return errors.NewValidationError(t.Name+"."+owner, fmt.Sprintf("column '%s' does not exist in table", name))
			}
		}
		return nil
	}

	if t.PrimaryKey != nil {
		if err := checkColumns("primary_key", t.PrimaryKey.Columns); err != nil {
			return err
		}
	}
	for _, index := range t.Indexes {
		if err := checkColumns("index "+index.Name, index.Columns); err != nil {
			return err
		}
	}
	for _, unique := range t.Uniques {
		if err := checkColumns("unique "+unique.Name, unique.Columns); err != nil {
			return err
		}
	}
	for _, check := range t.Checks {
		if strings.TrimSpace(check.Expression) == "" {
			return errors.NewValidationError(t.Name+".check "+check.Name, "expression is required")
		}
	}
	for _, fk := range t.ForeignKeys {
		if err := checkColumns("foreign_key "+fk.Name, fk.Columns); err != nil {
			return err
		}
		if fk.ReferencedTable == "" {
			return errors.NewValidationError(t.Name+".foreign_key "+fk.Name, "referenced_table is required")
		}
		if len(fk.ReferencedColumns) != len(fk.Columns) {
			return errors.NewValidationError(t.Name+".foreign_key "+fk.Name, "referenced_columns must match columns")
		}
	}

	names := make(map[string]bool)
	for _, name := range t.ConstraintNames() {
		if name == "" {
			continue
		}
		if names[name] {
			return errors.NewConfigurationError("duplicate constraint name in table "+t.Name, name)
		}
		names[name] = true
	}

	return nil
}

// Validate validates the column structure
func (c *Column) Validate() error {
	if c.Type == "" {
		return errors.NewValidationError(c.Name, "type is required")
	}
	if !IsValidColumnType(c.Type) {
		return errors.NewValidationError(c.Name, "invalid column type: "+c.Type)
	}
	switch c.Type {
	case "decimal":
		if c.Precision < 0 || c.Scale < 0 || (c.Precision > 0 && c.Scale > c.Precision) {
			return errors.NewValidationError(c.Name, "decimal scale must be between 0 and precision")
		}
	}
	switch c.Generation {
	case "", GenerationIncrement, GenerationIdentity, GenerationUUID:
	default:
		return errors.NewValidationError(c.Name, "invalid generation strategy: "+c.Generation)
	}
	if c.Generation == GenerationUUID && c.Type != "uuid" && c.Type != "varchar" {
		return errors.NewValidationError(c.Name, "uuid generation requires a uuid or varchar column")
	}
	return nil
}

// Validate validates the schema structure
func (s *Schema) Validate() error {
	if s.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if len(s.Tables) == 0 {
		return fmt.Errorf("at least one table is required")
	}
	seen := make(map[string]bool)
	for i := range s.Tables {
		if err := s.Tables[i].Validate(); err != nil {
			return err
		}
		if seen[s.Tables[i].Name] {
			return errors.NewValidationError(s.Tables[i].Name, "duplicate table")
		}
		seen[s.Tables[i].Name] = true
	}
	return nil
}

// SortedColumns returns a sorted copy of a column list
func SortedColumns(columns []string) []string {
	sorted := copyStrings(columns)
	sort.Strings(sorted)
	return sorted
}

// ColumnsKey returns a stable key for an unordered column set
func ColumnsKey(columns []string) string {
	return strings.Join(SortedColumns(columns), ",")
}

// ReplaceColumn returns a copy of columns with oldName replaced by newName
func ReplaceColumn(columns []string, oldName, newName string) []string {
	replaced := copyStrings(columns)
	for i := range replaced {
		if replaced[i] == oldName {
			replaced[i] = newName
		}
	}
	return replaced
}

// ContainsColumn reports whether name is in columns
func ContainsColumn(columns []string, name string) bool {
	for _, column := range columns {
		if column == name {
			return true
		}
	}
	return false
}

func copyStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
