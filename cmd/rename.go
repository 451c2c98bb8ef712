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

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ocomsoft/schemasync/internal/executor"
	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/synchronizer"
)

// renameTableCmd represents the rename-table command
var renameTableCmd = &cobra.Command{
	Use:   "rename-table OLD NEW",
	Short: "Rename a table and the generated names that embed it",
	Long: `Rename a table in the live database. Indexes, constraints, sequences and
foreign keys in other tables whose names were generated from the old table
name are renamed to the names generated from the new one. Names chosen by
hand are left alone.

Update the table name in schema.yaml afterwards, or declare the rename there
with renamed_from and let sync perform it.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRename(cmd, func(sync *synchronizer.Synchronizer) ([]operation.Operation, error) {
			return sync.RenameTable(commandContext(cmd), args[0], args[1])
		})
	},
}

// renameColumnCmd represents the rename-column command
var renameColumnCmd = &cobra.Command{
	Use:   "rename-column TABLE OLD NEW",
	Short: "Rename a column and the generated names that embed it",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRename(cmd, func(sync *synchronizer.Synchronizer) ([]operation.Operation, error) {
			return sync.RenameColumn(commandContext(cmd), args[0], args[1], args[2])
		})
	},
}

func runRename(cmd *cobra.Command, rename func(*synchronizer.Synchronizer) ([]operation.Operation, error)) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	session, cleanup, err := env.connect(commandContext(cmd))
	if err != nil {
		return err
	}
	defer cleanup()

	applied, err := rename(env.newSynchronizer(session, executor.ModeCommit, nil, ""))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, op := range applied {
		fmt.Fprintf(out, "  %s %s\n", color.GreenString("✓"), op.Describe())
	}
	return nil
}

func init() {
	rootCmd.AddCommand(renameTableCmd)
	rootCmd.AddCommand(renameColumnCmd)
}
