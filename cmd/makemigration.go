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
	"github.com/ocomsoft/schemasync/internal/migration"
	"github.com/ocomsoft/schemasync/internal/state"
	"github.com/ocomsoft/schemasync/internal/synchronizer"
)

var (
	dryRun     bool
	check      bool
	customName string
)

// makemigrationCmd represents the makemigration command
var makemigrationCmd = &cobra.Command{
	Use:     "makemigration",
	Aliases: []string{"makemigrations"},
	Short:   "Write a goose migration for the schema changes",
	Long: `Generate a goose-compatible migration file from the schema.yaml models.

The desired model is compared with the snapshot saved in the migrations
directory by the previous run, so no database connection is needed. The
migration holds one statement group per operation in the Up section and the
inverse statements in reverse order in the Down section. Destructive
operations get a review comment.

Examples:
  schemasync makemigration
  schemasync makemigration --name add_faculty_code
  schemasync makemigration --dry-run
  schemasync makemigration --check   # exit non-zero when a migration is needed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(cmd)
		if err != nil {
			return err
		}
		return generateMigration(cmd, env, customName, dryRun, check)
	},
}

// loadSnapshotRunner returns an in-memory runner holding the saved snapshot
func loadSnapshotRunner(env *environment, manager *state.Manager) (*state.Runner, error) {
	snapshot, err := manager.LoadSnapshot()
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return state.NewRunner(nil, env.provider), nil
	}
	if snapshot.Dialect != "" && snapshot.Dialect != string(env.dbType) {
		return nil, fmt.Errorf("snapshot %s was written for %s, not %s",
			manager.GetSnapshotPath(), snapshot.Dialect, env.dbType)
	}
	return state.NewRunnerFromSnapshot(snapshot, env.provider), nil
}

func generateMigration(cmd *cobra.Command, env *environment, name string, dryRun, check bool) error {
	out := cmd.OutOrStdout()

	desired, err := env.loadDesired(".")
	if err != nil {
		if err == errNoSchemas {
			fmt.Fprintln(out, color.YellowString("No schema files found. Nothing to do."))
			return nil
		}
		return err
	}

	manager := env.stateManager()
	memory, err := loadSnapshotRunner(env, manager)
	if err != nil {
		return err
	}

	generator := migration.New(manager, env.migrationOptions(), env.verbose)
	sync := env.newSynchronizer(synchronizer.NewMemoryTarget(memory), executor.ModeCommit, generator, name)

	ctx := commandContext(cmd)
	m, err := sync.GenerateMigration(ctx, desired)
	if err != nil {
		return err
	}
	if m == nil {
		fmt.Fprintln(out, color.GreenString("No changes detected. Schema is up to date."))
		return nil
	}

	if check {
		return fmt.Errorf("schema changes detected (%d operations), run makemigration to generate them", len(m.Pairs))
	}

	writer := migration.NewWriter(env.verbose)
	if dryRun {
		fmt.Fprintln(out, color.CyanString("DRY RUN - migration %s:", m.Filename))
		fmt.Fprint(out, writer.PreviewMigration(m))
		return nil
	}

	if err := manager.EnsureMigrationsDir(); err != nil {
		return err
	}
	path, err := writer.WriteMigration(m, manager.GetMigrationsDir())
	if err != nil {
		return err
	}

	// the snapshot follows the migration just written
	if _, err := sync.Synchronize(ctx, desired); err != nil {
		return fmt.Errorf("failed to update snapshot: %w", err)
	}
	if err := manager.SaveSnapshot(memory.Snapshot(string(env.dbType))); err != nil {
		return err
	}

	fmt.Fprintln(out, color.GreenString("Migration generated: %s", path))
	if m.IsDestructive {
		fmt.Fprintln(out, color.RedString("WARNING: this migration contains destructive operations. Review it before applying."))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(makemigrationCmd)

	makemigrationCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Show what would be generated without creating files")
	makemigrationCmd.Flags().BoolVar(&check, "check", false,
		"Exit with error code if migrations are needed (for CI/CD)")
	makemigrationCmd.Flags().StringVar(&customName, "name", "",
		"Override auto-generated migration name")
}
