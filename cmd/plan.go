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
	"github.com/ocomsoft/schemasync/internal/synchronizer"
)

var planOffline bool

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the changes a sync would make",
	Long: `Print the sequenced operations and their SQL without executing anything.

By default the plan is computed against the live database. With --offline it
is computed against the snapshot saved by the last makemigration run.`,
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	desired, err := env.loadDesired(".")
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	var target synchronizer.Target
	if planOffline {
		memory, err := loadSnapshotRunner(env, env.stateManager())
		if err != nil {
			return err
		}
		target = synchronizer.NewMemoryTarget(memory)
	} else {
		session, cleanup, err := env.connect(ctx)
		if err != nil {
			return err
		}
		defer cleanup()
		target = session
	}

	plan, err := env.newSynchronizer(target, executor.ModeCommit, nil, "").Plan(ctx, desired)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if plan.Empty() {
		fmt.Fprintln(out, color.GreenString("No changes. Database matches the schema."))
		return nil
	}
	printPlan(out, plan)
	fmt.Fprintln(out, color.YellowString("%d operations planned.", len(plan.Operations)))
	return nil
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().BoolVar(&planOffline, "offline", false, "Plan against the saved snapshot instead of the database")
}
