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

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ocomsoft/schemasync/internal/types"
)

var output string

// db2schemaCmd represents the db2schema command
var db2schemaCmd = &cobra.Command{
	Use:   "db2schema",
	Short: "Extract database schema to YAML schema file",
	Long: `Read the live database catalog and write it as a schema.yaml file.

Every table is written with its columns, primary key, indexes, unique and
check constraints, foreign keys and owned sequences, in the same format the
other commands read. Connection settings come from the config file and the
SCHEMASYNC_CONNECTION_* environment variables.

Examples:
  schemasync db2schema
  schemasync db2schema --output schema/schema.yaml --database mysql`,
	RunE: runDB2Schema,
}

func runDB2Schema(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	stderr := cmd.ErrOrStderr()

	ctx := commandContext(cmd)
	session, cleanup, err := env.connect(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if env.verbose {
		fmt.Fprintf(stderr, "Reading %s catalog...\n", env.dbType)
	}
	tables, err := session.Tables(ctx)
	if err != nil {
		return fmt.Errorf("failed to extract database schema: %w", err)
	}

	name := env.cfg.Connection.Name
	if name == "" {
		name = filepath.Base(env.cfg.Connection.Path)
	}
	schema := types.Schema{
		Database: types.Database{Name: name, Version: "1.0.0"},
	}
	for _, table := range tables {
		if env.verbose {
			fmt.Fprintf(stderr, "  - %s: %d columns, %d indexes\n", table.Name, len(table.Columns), len(table.Indexes))
		}
		schema.Tables = append(schema.Tables, *table)
	}

	yamlData, err := yaml.Marshal(&schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema to YAML: %w", err)
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(output, yamlData, 0644); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Database schema with %d tables extracted to: %s\n", len(schema.Tables), output)
	return nil
}

func init() {
	rootCmd.AddCommand(db2schemaCmd)

	db2schemaCmd.Flags().StringVar(&output, "output", "schema.yaml", "Output YAML schema file path")
}
