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

	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/executor"
)

var syncMode string

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Apply schema changes to the database",
	Long: `Compare the merged schema.yaml model with the live database and apply the
changes that make the database match it.

The plan is checked on an in-memory copy first: it must execute and replay
cleanly before any statement reaches the database. Planning errors (name
collisions, ambiguous renames, unsupported dialect features) stop the run
before any DDL executes.

Modes:
- commit (default): changes are kept; a failure leaves the database partially
  migrated and reports how many operations ran
- replay: a failure replays the recorded inverses, undoing the partial run

Examples:
  schemasync sync
  schemasync sync --mode replay --verbose`,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("mode") {
		env.cfg.Sync.Mode = syncMode
	}
	mode, err := executor.ParseMode(env.cfg.Sync.Mode)
	if err != nil {
		return err
	}

	desired, err := env.loadDesired(".")
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	session, cleanup, err := env.connect(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sync := env.newSynchronizer(session, mode, nil, "")
	applied, err := sync.Synchronize(ctx, desired)
	if err != nil {
		if execErr, ok := errors.AsExecutionError(err); ok && mode == executor.ModeMemoryReplay {
			color.Yellow("Operation %q failed after %d changes, replaying inverses", execErr.Operation, execErr.DownLogSize)
			if revertErr := sync.Revert(ctx); revertErr != nil {
				return fmt.Errorf("%w; replay failed: %v", err, revertErr)
			}
			color.Yellow("Partial run undone")
		}
		return err
	}

	out := cmd.OutOrStdout()
	if len(applied) == 0 {
		fmt.Fprintln(out, color.GreenString("Database is up to date."))
		return nil
	}
	for _, op := range applied {
		fmt.Fprintf(out, "  %s %s\n", color.GreenString("✓"), op.Describe())
	}
	fmt.Fprintln(out, color.GreenString("Applied %d operations.", len(applied)))
	return nil
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVar(&syncMode, "mode", "commit", "Execution mode (commit, replay)")
}
