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
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ocomsoft/schemasync/internal/version"
)

var (
	configFile   string
	databaseType string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "schemasync",
	Short: "Reconcile YAML schema models with relational databases",
	Long: `Synchronize database structure with schema.yaml models found in Go modules.

schemasync scans the current module and its direct dependencies for
schema/schema.yaml files, merges them into one desired model, compares it with
the database and applies, plans or writes out the DDL needed to close the gap.
Every change is recorded with its exact inverse.

Available commands:
- sync: apply the changes to a live database
- plan: print the changes a sync would make, without executing them
- makemigration: write a goose migration against the last saved snapshot
- rename-table / rename-column: rename with every generated name that follows
- db2schema: dump a live database to a schema.yaml file
- goose: run generated migrations
- init: create the migrations directory and config file

Supported databases: postgresql, mysql, tidb, sqlite, turso, sqlserver,
redshift, auroradsql.`,
	SilenceUsage: true,
}

// GetRootCmd returns the root command for embedding in other applications
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version.GetFullVersion()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Config file path (default: migrations/schemasync.config.yaml)")
	rootCmd.PersistentFlags().StringVar(&databaseType, "database", "",
		"Target database type, overrides the config file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false,
		"Show detailed processing information")
}
