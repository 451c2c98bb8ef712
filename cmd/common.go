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
	"database/sql"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ocomsoft/schemasync/internal/config"
	"github.com/ocomsoft/schemasync/internal/executor"
	"github.com/ocomsoft/schemasync/internal/migration"
	"github.com/ocomsoft/schemasync/internal/naming"
	"github.com/ocomsoft/schemasync/internal/providers"
	"github.com/ocomsoft/schemasync/internal/runner"
	"github.com/ocomsoft/schemasync/internal/scanner"
	"github.com/ocomsoft/schemasync/internal/schemafile"
	"github.com/ocomsoft/schemasync/internal/state"
	"github.com/ocomsoft/schemasync/internal/synchronizer"
	"github.com/ocomsoft/schemasync/internal/types"
)

// errNoSchemas is returned when no schema.yaml file was found
var errNoSchemas = stderrors.New("no schema files found")

// environment is the resolved configuration shared by the commands
type environment struct {
	cfg      *config.Config
	dbType   types.DatabaseType
	provider providers.Provider
	names    *naming.Strategy
	verbose  bool
}

// loadEnvironment loads the config file and applies command-line overrides
func loadEnvironment(cmd *cobra.Command) (*environment, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("database") {
		cfg.Database.Type = databaseType
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Output.Verbose = verbose
	}
	if !cfg.Output.ColorEnabled {
		color.NoColor = true
	}

	dbType, err := types.ParseDatabaseType(cfg.Database.Type)
	if err != nil {
		return nil, fmt.Errorf("invalid database type: %w", err)
	}
	provider, err := providers.NewProvider(dbType)
	if err != nil {
		return nil, err
	}
	names, err := naming.New(synchronizer.NamingConfig(provider,
		cfg.Naming.MaxIdentifierLength, cfg.Naming.HashLength, cfg.Naming.SnakeCase))
	if err != nil {
		return nil, err
	}

	return &environment{
		cfg:      cfg,
		dbType:   dbType,
		provider: provider,
		names:    names,
		verbose:  cfg.Output.Verbose,
	}, nil
}

// loadMerged scans root for schema files and merges them into one schema
func (e *environment) loadMerged(root string) (*types.Schema, error) {
	if e.verbose {
		color.Blue("Scanning Go modules for schema files...")
	}

	files, err := scanner.New(e.verbose, scanner.Options{
		SchemaFileName: e.cfg.Schema.SchemaFileName,
		SearchPaths:    e.cfg.Schema.SearchPaths,
		IgnoreModules:  e.cfg.Schema.IgnoreModules,
	}).ScanModules(root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errNoSchemas
	}

	parser := schemafile.NewParser(e.verbose)
	var schemas []*types.Schema
	for _, file := range files {
		schema, err := parser.ParseSchema(file.Content, file.FilePath)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, schema)
	}

	merger := schemafile.NewMerger(e.verbose)
	merged, err := merger.MergeSchemas(schemas)
	if err != nil {
		return nil, err
	}
	if err := merger.ValidateMergedSchema(merged); err != nil {
		return nil, err
	}

	if e.verbose {
		color.Yellow("Loaded %d tables from %d schema files", len(merged.Tables), len(files))
	}
	return merged, nil
}

// loadDesired returns the merged tables with defaults resolved for the
// configured database
func (e *environment) loadDesired(root string) ([]*types.Table, error) {
	merged, err := e.loadMerged(root)
	if err != nil {
		return nil, err
	}
	return schemafile.Tables(merged, e.dbType), nil
}

// connect opens the configured database and takes a session on it
func (e *environment) connect(ctx context.Context) (*runner.Runner, func(), error) {
	db, driver, err := runner.Open(e.dbType, e.cfg.Connection)
	if err != nil {
		return nil, nil, err
	}
	if e.verbose {
		color.Yellow("Connected to %s using driver %s", e.dbType, driver)
	}

	session, err := runner.Acquire(ctx, db, e.provider, e.verbose)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return session, func() {
		if err := session.Release(); err != nil {
			color.Red("Failed to release session: %v", err)
		}
		closeDB(db)
	}, nil
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		color.Red("Failed to close database: %v", err)
	}
}

// newSynchronizer builds a synchronizer from the sync settings
func (e *environment) newSynchronizer(target synchronizer.Target, mode executor.Mode, generator *migration.Generator, name string) *synchronizer.Synchronizer {
	options := synchronizer.Options{
		Mode:              mode,
		DropUnknownTables: e.cfg.Sync.DropUnknownTables,
		DefaultSchema:     e.cfg.Database.DefaultSchema,
		Migrations:        generator,
		MigrationName:     name,
	}
	if e.cfg.Sync.Lock {
		options.LockKey = e.cfg.Sync.LockKey
	}
	return synchronizer.New(target, e.provider, e.names, options, e.verbose)
}

// stateManager returns the snapshot manager for the migrations directory
func (e *environment) stateManager() *state.Manager {
	return state.New(e.cfg.Migration.Directory, e.verbose).WithSnapshotFile(e.cfg.Migration.SnapshotFile)
}

// migrationOptions maps the migration settings
func (e *environment) migrationOptions() migration.Options {
	return migration.Options{
		IncludeDownSQL:        e.cfg.Migration.IncludeDownSQL,
		ReviewCommentPrefix:   e.cfg.Migration.ReviewCommentPrefix,
		DestructiveOperations: e.cfg.Migration.DestructiveOperations,
	}
}

// printPlan writes each planned operation with the statements it runs
func printPlan(out io.Writer, plan *synchronizer.Plan) {
	for i, pair := range plan.Pairs {
		fmt.Fprintf(out, "%s %s\n", color.CyanString("%3d.", i+1), pair.Operation.Describe())
		for _, stmt := range pair.Up {
			fmt.Fprintf(out, "     %s;\n", stmt)
		}
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
