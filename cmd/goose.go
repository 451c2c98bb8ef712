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
	"database/sql"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	goose "github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/ocomsoft/schemasync/internal/runner"
	"github.com/ocomsoft/schemasync/internal/types"
)

// gooseCmd represents the goose command
var gooseCmd = &cobra.Command{
	Use:   "goose",
	Short: "Database migration commands using goose",
	Long: `Database migration commands using goose library.

This command provides access to the goose migration operations using the
same configuration as schemasync (database type, connection settings and
migrations directory).

Available subcommands:
  up          Migrate the DB to the most recent version available
  up-by-one   Migrate the DB up by 1
  up-to       Migrate the DB to a specific VERSION
  down        Roll back the version by 1
  down-to     Roll back to a specific VERSION
  redo        Re-run the latest migration
  reset       Roll back all migrations
  status      Print the status of all migrations
  version     Print the current version of the database
  fix         Apply sequential ordering to migrations`,
}

// gooseDialect maps a database type onto the goose dialect that migrates it
func gooseDialect(dbType types.DatabaseType, driver string) string {
	switch dbType {
	case types.DatabaseRedshift:
		return "redshift"
	case types.DatabaseTiDB:
		return "tidb"
	case types.DatabaseTurso:
		return "turso"
	case types.DatabaseSQLServer:
		return "sqlserver"
	case types.DatabaseSQLite:
		return "sqlite3"
	case types.DatabaseMySQL:
		return "mysql"
	default:
		if driver == "pgx" {
			return "pgx"
		}
		return "postgres"
	}
}

// setupGooseDB opens the configured database and selects the goose dialect
func setupGooseDB(env *environment) (*sql.DB, error) {
	db, driver, err := runner.Open(env.dbType, env.cfg.Connection)
	if err != nil {
		return nil, err
	}

	if err := goose.SetDialect(gooseDialect(env.dbType, driver)); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return db, nil
}

func parseVersionArg(command string, args []string) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s requires a version argument", command)
	}
	version, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version: %s", args[0])
	}
	return version, nil
}

// runGooseCommand executes a goose command with proper error handling
func runGooseCommand(env *environment, command string, args ...string) error {
	fmt.Printf("%s Running goose %s...\n", color.BlueString("▶"), command)

	dir := env.cfg.Migration.Directory
	if command == "fix" {
		if err := goose.Fix(dir); err != nil {
			return fmt.Errorf("goose %s failed: %w", command, err)
		}
		fmt.Printf("%s goose %s completed successfully\n", color.GreenString("✓"), command)
		return nil
	}

	db, err := setupGooseDB(env)
	if err != nil {
		return err
	}
	defer closeDB(db)

	switch command {
	case "up":
		err = goose.Up(db, dir)
	case "up-by-one":
		err = goose.UpByOne(db, dir)
	case "up-to":
		var version int64
		if version, err = parseVersionArg(command, args); err == nil {
			err = goose.UpTo(db, dir, version)
		}
	case "down":
		err = goose.Down(db, dir)
	case "down-to":
		var version int64
		if version, err = parseVersionArg(command, args); err == nil {
			err = goose.DownTo(db, dir, version)
		}
	case "redo":
		err = goose.Redo(db, dir)
	case "reset":
		err = goose.Reset(db, dir)
	case "status":
		err = goose.Status(db, dir)
	case "version":
		var version int64
		if version, err = goose.GetDBVersion(db); err == nil {
			fmt.Printf("goose: version %d\n", version)
		}
	default:
		return fmt.Errorf("unknown goose command: %s", command)
	}

	if err != nil {
		return fmt.Errorf("goose %s failed: %w", command, err)
	}

	fmt.Printf("%s goose %s completed successfully\n", color.GreenString("✓"), command)
	return nil
}

// createGooseSubcommand creates a goose subcommand
func createGooseSubcommand(name, short string, args cobra.PositionalArgs) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(cmd)
			if err != nil {
				return err
			}
			return runGooseCommand(env, name, args...)
		},
	}
}

func init() {
	rootCmd.AddCommand(gooseCmd)

	gooseCmd.AddCommand(
		createGooseSubcommand("up", "Migrate the DB to the most recent version available", cobra.NoArgs),
		createGooseSubcommand("up-by-one", "Migrate the DB up by 1", cobra.NoArgs),
		createGooseSubcommand("up-to", "Migrate the DB to a specific VERSION", cobra.ExactArgs(1)),
		createGooseSubcommand("down", "Roll back the version by 1", cobra.NoArgs),
		createGooseSubcommand("down-to", "Roll back to a specific VERSION", cobra.ExactArgs(1)),
		createGooseSubcommand("redo", "Re-run the latest migration", cobra.NoArgs),
		createGooseSubcommand("reset", "Roll back all migrations", cobra.NoArgs),
		createGooseSubcommand("status", "Print the status of all migrations", cobra.NoArgs),
		createGooseSubcommand("version", "Print the current version of the database", cobra.NoArgs),
		createGooseSubcommand("fix", "Apply sequential ordering to migrations", cobra.NoArgs),
	)
}
