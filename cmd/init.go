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

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ocomsoft/schemasync/internal/config"
	"github.com/ocomsoft/schemasync/internal/state"
	"github.com/ocomsoft/schemasync/internal/types"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the migrations directory and create the initial migration",
	Long: `Initialize the migrations directory structure and create an initial migration
from existing schema.yaml files.

This command:
- Creates the migrations/ directory if it doesn't exist
- Writes migrations/schemasync.config.yaml with the selected database type
- Scans for schema.yaml files in Go module dependencies
- Creates an initial migration file (00001_initial.sql)
- Saves the schema snapshot used by future makemigration runs

Use this command when setting up schemasync for the first time in a project.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if _, err := os.Stat("go.mod"); os.IsNotExist(err) {
		return fmt.Errorf("go.mod not found. Please run this command from the root of a Go module")
	}

	configPath := config.GetConfigPath()
	if configFile != "" {
		configPath = configFile
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		if cmd.Flags().Changed("database") {
			if _, err := types.ParseDatabaseType(databaseType); err != nil {
				return fmt.Errorf("invalid database type: %w", err)
			}
			cfg.Database.Type = databaseType
		}
		if err := cfg.Save(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		fmt.Fprintln(out, color.GreenString("Created config file: %s", configPath))
	}

	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	manager := env.stateManager()
	if err := manager.EnsureMigrationsDir(); err != nil {
		return err
	}

	snapshotPath := manager.GetSnapshotPath()
	if _, err := os.Stat(snapshotPath); err == nil {
		fmt.Fprintln(out, color.YellowString("Project already initialized. Schema snapshot exists at: %s", snapshotPath))
		fmt.Fprintln(out, color.CyanString("Use 'schemasync makemigration' to generate new migrations."))
		return nil
	}

	if env.verbose {
		color.Cyan("Initializing schemasync for %s", env.dbType)
	}

	if err := generateMigration(cmd, env, "initial", false, false); err != nil {
		return err
	}

	// no schema files yet: start from an empty snapshot
	if _, err := os.Stat(snapshotPath); os.IsNotExist(err) {
		if err := manager.SaveSnapshot(&state.Snapshot{Dialect: string(env.dbType)}); err != nil {
			return fmt.Errorf("failed to create initial schema snapshot: %w", err)
		}
		fmt.Fprintln(out, color.GreenString("Created empty schema snapshot at: %s", snapshotPath))
	}

	fmt.Fprintln(out, color.GreenString("Project initialized successfully"))
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "  1. Review the migrations in %s\n", manager.GetMigrationsDir())
	fmt.Fprintf(out, "  2. Set the connection settings in %s\n", configPath)
	fmt.Fprintln(out, "  3. Apply with 'schemasync goose up' or synchronize directly with 'schemasync sync'")
	return nil
}
