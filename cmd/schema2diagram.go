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
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ocomsoft/schemasync/internal/schemafile"
	"github.com/ocomsoft/schemasync/internal/types"
)

var diagramOutput string

// schema2diagramCmd represents the schema2diagram command
var schema2diagramCmd = &cobra.Command{
	Use:   "schema2diagram",
	Short: "Generate Markdown documentation with diagrams from YAML schemas",
	Long: `Generate Markdown documentation with an Entity Relationship Diagram (ERD)
from the merged schema.yaml files.

The document contains a Mermaid erDiagram, an overview table, per-table column
documentation with defaults resolved for the configured database, and the
index, constraint and foreign key listings.

Examples:
  schemasync schema2diagram
  schemasync schema2diagram --output=docs/database-schema.md`,
	RunE: runSchema2Diagram,
}

func runSchema2Diagram(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	merged, err := env.loadMerged(".")
	if err != nil {
		if err == errNoSchemas {
			fmt.Fprintln(cmd.ErrOrStderr(), "No schema files found. Nothing to document.")
			return nil
		}
		return err
	}

	markdown := generateMarkdownDocumentation(merged.Database, schemafile.Tables(merged, env.dbType), time.Now())

	if dir := filepath.Dir(diagramOutput); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(diagramOutput, []byte(markdown), 0644); err != nil {
		return fmt.Errorf("failed to write documentation file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Schema documentation successfully generated: %s (%d tables)\n",
		diagramOutput, len(merged.Tables))
	return nil
}

// generateMarkdownDocumentation renders the tables as Markdown with a Mermaid ERD
func generateMarkdownDocumentation(db types.Database, tables []*types.Table, generated time.Time) string {
	var md strings.Builder

	md.WriteString("# Database Schema Documentation\n\n")
	fmt.Fprintf(&md, "**Database:** %s  \n", db.Name)
	fmt.Fprintf(&md, "**Version:** %s  \n", db.Version)
	fmt.Fprintf(&md, "**Generated:** %s  \n\n", generated.Format("2006-01-02 15:04:05"))

	sorted := make([]*types.Table, len(tables))
	copy(sorted, tables)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	generateERDSection(&md, sorted)
	generateOverviewSection(&md, sorted)
	generateTableDocumentation(&md, sorted)
	generateRelationshipsSection(&md, sorted)

	return md.String()
}

// mermaidName makes a table name usable as a Mermaid entity
func mermaidName(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, ".", "_"))
}

func generateERDSection(md *strings.Builder, tables []*types.Table) {
	md.WriteString("## Entity Relationship Diagram\n\n")
	md.WriteString("```mermaid\n")
	md.WriteString("erDiagram\n")

	for _, table := range tables {
		fmt.Fprintf(md, "    %s {\n", mermaidName(table.Name))
		for i := range table.Columns {
			column := &table.Columns[i]
			line := fmt.Sprintf("        %s %s", convertTypeForMermaid(column.Type), column.Name)
			if constraints := columnKeys(table, column.Name); constraints != "" {
				line += " " + constraints
			}
			md.WriteString(line + "\n")
		}
		md.WriteString("    }\n")
	}

	for _, table := range tables {
		for _, fk := range table.ForeignKeys {
			fmt.Fprintf(md, "    %s %s %s : \"%s\"\n",
				mermaidName(fk.ReferencedTable),
				generateRelationshipType(fk.OnDelete),
				mermaidName(table.Name),
				strings.Join(fk.Columns, ","))
		}
	}

	md.WriteString("```\n\n")
}

func generateOverviewSection(md *strings.Builder, tables []*types.Table) {
	md.WriteString("## Schema Overview\n\n")

	columns, indexes, foreignKeys := 0, 0, 0
	for _, table := range tables {
		columns += len(table.Columns)
		indexes += len(table.Indexes)
		foreignKeys += len(table.ForeignKeys)
	}

	md.WriteString("| Statistic | Count |\n")
	md.WriteString("|-----------|-------|\n")
	fmt.Fprintf(md, "| **Total Tables** | %d |\n", len(tables))
	fmt.Fprintf(md, "| **Total Columns** | %d |\n", columns)
	fmt.Fprintf(md, "| **Total Indexes** | %d |\n", indexes)
	fmt.Fprintf(md, "| **Foreign Key Relationships** | %d |\n\n", foreignKeys)
}

func generateTableDocumentation(md *strings.Builder, tables []*types.Table) {
	md.WriteString("## Table Documentation\n\n")

	for _, table := range tables {
		fmt.Fprintf(md, "### %s\n\n", table.Name)

		md.WriteString("| Column | Type | Constraints | Default |\n")
		md.WriteString("|--------|------|-------------|---------|\n")
		for i := range table.Columns {
			column := &table.Columns[i]
			defaultValue := "-"
			if column.Default != "" {
				defaultValue = "`" + column.Default + "`"
			}
			fmt.Fprintf(md, "| `%s` | %s | %s | %s |\n",
				column.Name, generateColumnTypeDescription(column),
				generateColumnConstraintsDescription(table, column), defaultValue)
		}
		md.WriteString("\n")

		if len(table.Indexes) > 0 || len(table.Uniques) > 0 || len(table.Checks) > 0 {
			md.WriteString("| Constraint | Kind | Definition |\n")
			md.WriteString("|------------|------|------------|\n")
			for _, index := range table.Indexes {
				kind := "Index"
				if index.Unique {
					kind = "Unique Index"
				}
				fmt.Fprintf(md, "| `%s` | %s | `%s` |\n", constraintName(index.Name), kind, strings.Join(index.Columns, ", "))
			}
			for _, unique := range table.Uniques {
				fmt.Fprintf(md, "| `%s` | Unique | `%s` |\n", constraintName(unique.Name), strings.Join(unique.Columns, ", "))
			}
			for _, check := range table.Checks {
				fmt.Fprintf(md, "| `%s` | Check | `%s` |\n", constraintName(check.Name), check.Expression)
			}
			md.WriteString("\n")
		}
	}
}

func generateRelationshipsSection(md *strings.Builder, tables []*types.Table) {
	md.WriteString("## Relationships\n\n")

	count := 0
	for _, table := range tables {
		count += len(table.ForeignKeys)
	}
	if count == 0 {
		md.WriteString("*No foreign key relationships defined in the schema.*\n\n")
		return
	}

	md.WriteString("| From Table | Columns | To Table | On Delete | Relationship Type |\n")
	md.WriteString("|------------|---------|----------|-----------|-------------------|\n")
	for _, table := range tables {
		for _, fk := range table.ForeignKeys {
			onDelete := fk.OnDelete
			if onDelete == "" {
				onDelete = "NO ACTION"
			}
			fmt.Fprintf(md, "| `%s` | `%s` | `%s` | %s | %s |\n",
				table.Name, strings.Join(fk.Columns, ", "), fk.ReferencedTable,
				onDelete, determineRelationshipType(fk.OnDelete))
		}
	}
	md.WriteString("\n")
}

func constraintName(name string) string {
	if name == "" {
		return "(generated)"
	}
	return name
}

func convertTypeForMermaid(columnType string) string {
	switch columnType {
	case "varchar", "text", "char":
		return "string"
	case "integer", "bigint", "smallint", "serial":
		return "int"
	case "decimal", "float", "numeric", "real", "double":
		return "decimal"
	case "boolean":
		return "boolean"
	case "timestamp", "date", "time":
		return "datetime"
	case "uuid":
		return "uuid"
	case "json", "jsonb":
		return "json"
	default:
		return "string"
	}
}

// columnKeys returns the Mermaid key markers for a column
func columnKeys(table *types.Table, column string) string {
	var keys []string
	if table.PrimaryKey != nil && types.ContainsColumn(table.PrimaryKey.Columns, column) {
		keys = append(keys, "PK")
	}
	for _, fk := range table.ForeignKeys {
		if types.ContainsColumn(fk.Columns, column) {
			keys = append(keys, "FK")
			break
		}
	}
	return strings.Join(keys, ",")
}

func generateRelationshipType(onDelete string) string {
	switch strings.ToUpper(onDelete) {
	case "CASCADE":
		return "||--o{"
	case "SET NULL":
		return "|o--o{"
	default:
		return "||--|{"
	}
}

func generateColumnTypeDescription(column *types.Column) string {
	typeName := strings.ToUpper(column.Type)
	switch {
	case column.Precision > 0:
		return fmt.Sprintf("%s(%d,%d)", typeName, column.Precision, column.Scale)
	case column.Length > 0:
		return fmt.Sprintf("%s(%d)", typeName, column.Length)
	default:
		return typeName
	}
}

func generateColumnConstraintsDescription(table *types.Table, column *types.Column) string {
	var constraints []string
	if table.PrimaryKey != nil && types.ContainsColumn(table.PrimaryKey.Columns, column.Name) {
		constraints = append(constraints, "PRIMARY KEY")
	}
	if column.IsNullable() {
		constraints = append(constraints, "NULLABLE")
	} else {
		constraints = append(constraints, "NOT NULL")
	}
	switch column.Generation {
	case types.GenerationIncrement, types.GenerationIdentity:
		constraints = append(constraints, "AUTO INCREMENT")
	case types.GenerationUUID:
		constraints = append(constraints, "GENERATED UUID")
	}
	return strings.Join(constraints, ", ")
}

func determineRelationshipType(onDelete string) string {
	switch strings.ToUpper(onDelete) {
	case "CASCADE":
		return "One-to-many (CASCADE)"
	case "RESTRICT":
		return "One-to-many (PROTECTED)"
	case "SET NULL":
		return "One-to-many (OPTIONAL)"
	default:
		return "One-to-many"
	}
}

func init() {
	rootCmd.AddCommand(schema2diagramCmd)

	schema2diagramCmd.Flags().StringVar(&diagramOutput, "output", "schema-documentation.md",
		"Output Markdown documentation file path")
}
