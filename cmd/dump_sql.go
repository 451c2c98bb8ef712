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

	"github.com/spf13/cobra"

	"github.com/ocomsoft/schemasync/internal/executor"
	"github.com/ocomsoft/schemasync/internal/state"
	"github.com/ocomsoft/schemasync/internal/synchronizer"
)

// dumpSQLCmd represents the dump-sql command
var dumpSQLCmd = &cobra.Command{
	Use:     "dump-sql",
	Aliases: []string{"dump_sql"},
	Short:   "Dump the complete merged schema as SQL to console",
	Long: `Dump the complete merged schema as SQL to console.

This command scans all schema files in Go module dependencies, merges them
into a unified schema and plans it against an empty database. The statements
are printed in execution order for the database selected with --database.

The SQL output is equivalent to what would be generated in an initial migration
but is sent to stdout instead of being written to a file.`,
	RunE: runDumpSQL,
}

func runDumpSQL(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	desired, err := env.loadDesired(".")
	if err != nil {
		if err == errNoSchemas {
			fmt.Fprintln(cmd.ErrOrStderr(), "No schema files found. Nothing to dump.")
			return nil
		}
		return err
	}

	empty := synchronizer.NewMemoryTarget(state.NewRunner(nil, env.provider))
	plan, err := env.newSynchronizer(empty, executor.ModeCommit, nil, "").Plan(commandContext(cmd), desired)
	if err != nil {
		return err
	}

	if env.verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d operations for %s\n", len(plan.Pairs), env.dbType)
	}

	out := cmd.OutOrStdout()
	for _, pair := range plan.Pairs {
		fmt.Fprintf(out, "-- %s\n", pair.Operation.Describe())
		for _, stmt := range pair.Up {
			fmt.Fprintf(out, "%s;\n", stmt)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(dumpSQLCmd)
}
