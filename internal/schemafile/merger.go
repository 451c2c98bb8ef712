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

	"github.com/ocomsoft/schemasync/internal/types"
)

// Merger combines schema files from several modules into one schema
type Merger struct {
	verbose bool
}

// NewMerger creates a new schema merger
func NewMerger(verbose bool) *Merger {
	return &Merger{
		verbose: verbose,
	}
}

// MergeSchemas merges multiple schemas into a single schema. Tables keep the
// order in which they were first declared.
func (m *Merger) MergeSchemas(schemas []*types.Schema) (*types.Schema, error) {
	if len(schemas) == 0 {
		return nil, fmt.Errorf("no schemas to merge")
	}

	if m.verbose {
		fmt.Printf("Merging %d schemas\n", len(schemas))
	}

	merged := &types.Schema{
		Defaults: make(map[string]map[string]string),
	}

	var order []string
	tables := make(map[string][]types.Table)

	for _, schema := range schemas {
		if merged.Database.Name == "" {
			merged.Database.Name = schema.Database.Name
		}
		if merged.Database.Version == "" {
			merged.Database.Version = schema.Database.Version
		}
		m.mergeDefaults(merged.Defaults, schema.Defaults)

		for _, table := range schema.Tables {
			if _, ok := tables[table.Name]; !ok {
				order = append(order, table.Name)
			}
			tables[table.Name] = append(tables[table.Name], table)
		}
	}

	for _, name := range order {
		table, err := m.mergeTables(name, tables[name])
		if err != nil {
			return nil, err
		}
		merged.Tables = append(merged.Tables, *table)
	}

	if len(merged.Defaults) == 0 {
		merged.Defaults = nil
	}

	return merged, nil
}

// mergeDefaults merges default value mappings; later schemas win
func (m *Merger) mergeDefaults(target, source map[string]map[string]string) {
	for dialect, values := range source {
		if target[dialect] == nil {
			target[dialect] = make(map[string]string)
		}
		for key, value := range values {
			target[dialect][key] = value
		}
	}
}

func (m *Merger) mergeTables(name string, definitions []types.Table) (*types.Table, error) {
	merged := definitions[0].Clone()
	if len(definitions) == 1 {
		return merged, nil
	}

	if m.verbose {
		fmt.Printf("  Merging %d definitions of table %s\n", len(definitions), name)
	}

	for _, current := range definitions[1:] {
		if merged.RenamedFrom == "" {
			merged.RenamedFrom = current.RenamedFrom
		}

		for _, column := range current.Columns {
			existing := merged.GetColumnByName(column.Name)
			if existing == nil {
				merged.Columns = append(merged.Columns, column.Clone())
				continue
			}
			if err := m.mergeColumn(name, existing, column); err != nil {
				return nil, err
			}
		}

		if current.PrimaryKey != nil {
			if merged.PrimaryKey == nil {
				pk := *current.PrimaryKey
				pk.Columns = append([]string(nil), pk.Columns...)
				merged.PrimaryKey = &pk
			} else if types.ColumnsKey(merged.PrimaryKey.Columns) != types.ColumnsKey(current.PrimaryKey.Columns) {
				return nil, fmt.Errorf("incompatible primary keys for %s: (%s) vs (%s)",
					name, types.ColumnsKey(merged.PrimaryKey.Columns), types.ColumnsKey(current.PrimaryKey.Columns))
			}
		}

		for _, index := range current.Indexes {
			if !containsIndex(merged.Indexes, index) {
				merged.Indexes = append(merged.Indexes, index)
			}
		}
		for _, unique := range current.Uniques {
			if !containsUnique(merged.Uniques, unique) {
				merged.Uniques = append(merged.Uniques, unique)
			}
		}
		for _, check := range current.Checks {
			if !containsCheck(merged.Checks, check) {
				merged.Checks = append(merged.Checks, check)
			}
		}
		for _, fk := range current.ForeignKeys {
			found, err := containsForeignKey(name, merged.ForeignKeys, fk)
			if err != nil {
				return nil, err
			}
			if !found {
				merged.ForeignKeys = append(merged.ForeignKeys, fk)
			}
		}
		for _, sequence := range current.Sequences {
			if !containsSequence(merged.Sequences, sequence) {
				merged.Sequences = append(merged.Sequences, sequence)
			}
		}
	}

	return merged, nil
}

// mergeColumn folds another definition of the same column into merged
func (m *Merger) mergeColumn(tableName string, merged *types.Column, current types.Column) error {
	if merged.Type != current.Type {
		resolved, err := m.resolveTypeConflict(tableName, merged.Name, merged.Type, current.Type)
		if err != nil {
			return err
		}
		merged.Type = resolved
	}

	// Larger sizes win
	if current.Length > merged.Length {
		if m.verbose {
			fmt.Printf("    Resolved length conflict for %s.%s: %d -> %d\n", tableName, merged.Name, merged.Length, current.Length)
		}
		merged.Length = current.Length
	}
	if current.Precision > merged.Precision {
		merged.Precision = current.Precision
	}
	if current.Scale > merged.Scale {
		merged.Scale = current.Scale
	}

	// NOT NULL wins
	if !current.IsNullable() {
		merged.SetNullable(false)
	}

	// Later non-empty default wins
	if current.Default != "" && current.Default != merged.Default {
		if m.verbose && merged.Default != "" {
			fmt.Printf("    Resolved default conflict for %s.%s: using '%s'\n", tableName, merged.Name, current.Default)
		}
		merged.Default = current.Default
	}

	if current.Generation != "" {
		if merged.Generation == "" {
			merged.Generation = current.Generation
		} else if merged.Generation != current.Generation {
			return fmt.Errorf("incompatible generation for %s.%s: %s vs %s",
				tableName, merged.Name, merged.Generation, current.Generation)
		}
	}

	if merged.RenamedFrom == "" {
		merged.RenamedFrom = current.RenamedFrom
	}

	return nil
}

// resolveTypeConflict resolves conflicts between different column types
func (m *Merger) resolveTypeConflict(tableName, columnName, type1, type2 string) (string, error) {
	compatibleTypes := map[string][]string{
		"integer": {"bigint"},
		"varchar": {"text"},
		"float":   {"decimal"},
		"json":    {"jsonb"},
	}

	if canPromote(type1, type2, compatibleTypes) {
		if m.verbose {
			fmt.Printf("    Resolved type conflict: promoting %s to %s\n", type1, type2)
		}
		return type2, nil
	}

	if canPromote(type2, type1, compatibleTypes) {
		if m.verbose {
			fmt.Printf("    Resolved type conflict: promoting %s to %s\n", type2, type1)
		}
		return type1, nil
	}

	return "", fmt.Errorf("incompatible column types for %s.%s: %s vs %s", tableName, columnName, type1, type2)
}

// canPromote checks if fromType can be promoted to toType
func canPromote(fromType, toType string, compatibleTypes map[string][]string) bool {
	for _, promotion := range compatibleTypes[fromType] {
		if promotion == toType {
			return true
		}
	}
	return false
}

// ValidateMergedSchema validates the merged schema for consistency
func (m *Merger) ValidateMergedSchema(schema *types.Schema) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	return NewParser(m.verbose).ValidateForeignKeyReferences(schema)
}

// GetMergedTableNames returns the names of all tables defined by more than
// one schema, in declaration order
func (m *Merger) GetMergedTableNames(schemas []*types.Schema) []string {
	var order []string
	counts := make(map[string]int)
	for _, schema := range schemas {
		for _, table := range schema.Tables {
			if counts[table.Name] == 0 {
				order = append(order, table.Name)
			}
			counts[table.Name]++
		}
	}

	var merged []string
	for _, name := range order {
		if counts[name] > 1 {
			merged = append(merged, name)
		}
	}
	return merged
}

func containsIndex(indexes []types.Index, index types.Index) bool {
	for _, existing := range indexes {
		if index.Name != "" && existing.Name == index.Name {
			return true
		}
		if index.Name == "" && existing.Unique == index.Unique &&
			types.ColumnsKey(existing.Columns) == types.ColumnsKey(index.Columns) {
			return true
		}
	}
	return false
}

func containsUnique(uniques []types.Unique, unique types.Unique) bool {
	for _, existing := range uniques {
		if unique.Name != "" && existing.Name == unique.Name {
			return true
		}
		if unique.Name == "" && types.ColumnsKey(existing.Columns) == types.ColumnsKey(unique.Columns) {
			return true
		}
	}
	return false
}

func containsCheck(checks []types.Check, check types.Check) bool {
	for _, existing := range checks {
		if check.Name != "" && existing.Name == check.Name {
			return true
		}
		if check.Name == "" && existing.Expression == check.Expression {
			return true
		}
	}
	return false
}

func containsForeignKey(tableName string, fks []types.ForeignKey, fk types.ForeignKey) (bool, error) {
	for _, existing := range fks {
		sameName := fk.Name != "" && existing.Name == fk.Name
		sameColumns := types.ColumnsKey(existing.Columns) == types.ColumnsKey(fk.Columns)
		if !sameName && !(fk.Name == "" && sameColumns) {
			continue
		}
		if !types.SameTable(existing.ReferencedTable, fk.ReferencedTable) {
			return false, fmt.Errorf("incompatible foreign key definitions for %s(%s): references %s vs %s",
				tableName, types.ColumnsKey(fk.Columns), existing.ReferencedTable, fk.ReferencedTable)
		}
		return true, nil
	}
	return false, nil
}

func containsSequence(sequences []types.Sequence, sequence types.Sequence) bool {
	for _, existing := range sequences {
		if existing.Name == sequence.Name {
			return true
		}
	}
	return false
}
