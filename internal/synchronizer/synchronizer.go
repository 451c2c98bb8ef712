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
package synchronizer

import (
	"context"
	"fmt"
	"sync"

	"github.com/ocomsoft/schemasync/internal/cascade"
	"github.com/ocomsoft/schemasync/internal/diff"
	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/executor"
	"github.com/ocomsoft/schemasync/internal/migration"
	"github.com/ocomsoft/schemasync/internal/naming"
	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers"
	"github.com/ocomsoft/schemasync/internal/providers/dialect"
	"github.com/ocomsoft/schemasync/internal/sequencer"
	"github.com/ocomsoft/schemasync/internal/state"
	"github.com/ocomsoft/schemasync/internal/types"
)

// Target is a database session the synchronizer plans against and changes
type Target interface {
	executor.QueryRunner
	// Tables returns every table in the database
	Tables(ctx context.Context) ([]*types.Table, error)
}

// MemoryTarget is a Target over in-memory snapshots, used for offline
// migration generation and tests
type MemoryTarget struct {
	*state.Runner
}

// NewMemoryTarget wraps a state runner
func NewMemoryTarget(runner *state.Runner) MemoryTarget {
	return MemoryTarget{Runner: runner}
}

// Tables returns copies of the held tables
func (m MemoryTarget) Tables(ctx context.Context) ([]*types.Table, error) {
	return m.Runner.Tables(), nil
}

// Locker is implemented by targets that can hold a run lock
type Locker interface {
	Lock(ctx context.Context, key string) error
}

// Options controls a synchronizer
type Options struct {
	Mode              executor.Mode
	DropUnknownTables bool
	// DefaultSchema is created before anything else when the dialect has
	// schemas and it does not exist yet
	DefaultSchema string
	// LockKey names the run lock; empty disables locking
	LockKey string
	// Migrations renders GenerateMigration results
	Migrations    *migration.Generator
	MigrationName string
}

// Plan is the sequenced set of operations that brings a target to the
// desired model, with the statements each one runs and undoes.
type Plan struct {
	Operations []operation.Operation
	Pairs      []migration.Pair
	// Tables is the structure the target has once the plan ran
	Tables []*types.Table
}

// Empty reports whether the target already matches
func (p *Plan) Empty() bool {
	return len(p.Operations) == 0
}

// Synchronizer reconciles one target with desired table snapshots. Its
// executor, and with it the down-log, lives as long as the synchronizer.
type Synchronizer struct {
	mu        sync.Mutex
	target    Target
	provider  providers.Provider
	names     *naming.Strategy
	resolver  *cascade.Resolver
	differ    *diff.Engine
	sequencer *sequencer.Sequencer
	executor  *executor.Executor
	options   Options
	verbose   bool
	locked    bool
}

// New creates a synchronizer for target. names must be built for the
// provider's identifier length.
func New(target Target, provider providers.Provider, names *naming.Strategy, options Options, verbose bool) *Synchronizer {
	resolver := cascade.New(names, provider, verbose)
	return &Synchronizer{
		target:    target,
		provider:  provider,
		names:     names,
		resolver:  resolver,
		differ:    diff.New(provider, resolver, verbose),
		sequencer: sequencer.New(verbose),
		executor:  executor.New(target, options.Mode, verbose),
		options:   options,
		verbose:   verbose,
	}
}

// NamingConfig returns the naming configuration for a provider. A
// configured maximum identifier length overrides the dialect's own.
func NamingConfig(provider providers.Provider, maxIdentifierLength, hashLength int, snakeCase bool) naming.Config {
	if maxIdentifierLength == 0 {
		maxIdentifierLength = provider.MaxIdentifierLength()
	}
	return naming.Config{
		MaxIdentifierLength: maxIdentifierLength,
		HashLength:          hashLength,
		SnakeCase:           snakeCase,
	}
}

// Plan computes the operations needed to make the target match desired
// and proves them on an in-memory copy: the plan is executed, then replayed
// in reverse, and the replay must restore the original structure. Planning
// never changes the target.
func (s *Synchronizer) Plan(ctx context.Context, desired []*types.Table) (*Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan(ctx, desired)
}

func (s *Synchronizer) plan(ctx context.Context, desired []*types.Table) (*Plan, error) {
	actual, err := s.target.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read database structure: %w", err)
	}

	prepared, err := s.prepare(desired)
	if err != nil {
		return nil, err
	}

	ops, err := s.namespaceOperations(ctx, prepared)
	if err != nil {
		return nil, err
	}

	changes, err := s.differ.CompareSchemas(prepared, actual, diff.Options{DropUnknownTables: s.options.DropUnknownTables})
	if err != nil {
		return nil, err
	}
	ops = append(ops, changes...)

	sequenced, err := s.sequencer.Sequence(ops)
	if err != nil {
		return nil, err
	}

	if s.verbose {
		fmt.Printf("Planned %d operations\n", len(sequenced))
	}

	return s.simulate(ctx, actual, sequenced)
}

// prepare names, normalizes and validates the desired tables
func (s *Synchronizer) prepare(desired []*types.Table) ([]*types.Table, error) {
	completed, err := s.names.CompleteAll(desired,
		s.provider.SupportsOperation(dialect.OpOwnedSequences),
		s.provider.SupportsOperation(dialect.OpSchemaScopedNames))
	if err != nil {
		return nil, err
	}

	prepared := make([]*types.Table, 0, len(completed))
	for _, table := range completed {
		t := providers.Normalize(s.provider, table).Normalize()
		if err := t.Validate(); err != nil {
			return nil, errors.NewConfigurationError(fmt.Sprintf("invalid table: %v", err), t.Name)
		}
		prepared = append(prepared, t)
	}
	return prepared, nil
}

// namespaceOperations creates the default schema and every schema a
// desired table is qualified with, when the dialect has schemas
func (s *Synchronizer) namespaceOperations(ctx context.Context, desired []*types.Table) ([]operation.Operation, error) {
	if !s.provider.SupportsOperation(dialect.OpSchemas) {
		return nil, nil
	}

	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	add(s.options.DefaultSchema)
	for _, t := range desired {
		add(types.ParseTableName(t.Name).Schema)
	}

	var ops []operation.Operation
	for _, name := range names {
		exists, err := s.target.NamespaceExists(ctx, operation.CreateSchema, name)
		if err != nil {
			return nil, fmt.Errorf("failed to check schema %s: %w", name, err)
		}
		if !exists {
			ops = append(ops, operation.NewCreateSchema(name, true))
		}
	}
	return ops, nil
}

// simulate runs ops against a copy of actual, records the statements, then
// replays the down-log and checks the copy is back where it started
func (s *Synchronizer) simulate(ctx context.Context, actual []*types.Table, ops []operation.Operation) (*Plan, error) {
	memory := state.NewRunner(actual, s.provider)
	simulation := executor.New(memory, executor.ModeMemoryReplay, false)

	if _, err := simulation.ExecuteAll(ctx, ops); err != nil {
		return nil, fmt.Errorf("plan failed in simulation: %w", err)
	}

	plan := &Plan{
		Operations: ops,
		Tables:     memory.Tables(),
	}
	for _, entry := range memory.Entries() {
		plan.Pairs = append(plan.Pairs, migration.Pair{
			Operation: entry.Operation,
			Up:        entry.Up,
			Down:      entry.Down,
		})
	}

	if err := simulation.ExecuteMemoryDownSQL(ctx); err != nil {
		return nil, errors.NewMigrationError("replay", fmt.Sprintf("plan is not reversible: %v", err))
	}
	remaining, err := s.differ.CompareSchemas(actual, memory.Tables(), diff.Options{DropUnknownTables: true})
	if err != nil {
		return nil, err
	}
	if len(remaining) > 0 {
		return nil, errors.NewMigrationError("replay",
			fmt.Sprintf("plan is not reversible: replay left %d differences, first %s", len(remaining), remaining[0].Describe()))
	}
	if table := reordered(actual, memory.Tables()); table != "" {
		return nil, errors.NewMigrationError("replay",
			fmt.Sprintf("plan is not reversible: replay reordered the columns of %s", table))
	}

	return plan, nil
}

// reordered returns the first table whose columns are not in their
// original order after a replay
func reordered(before, after []*types.Table) string {
	restored := make(map[string]*types.Table, len(after))
	for _, t := range after {
		restored[t.Name] = t
	}
	for _, t := range before {
		r := restored[t.Name]
		if r == nil || len(r.Columns) != len(t.Columns) {
			continue
		}
		for i := range t.Columns {
			if r.Columns[i].Name != t.Columns[i].Name {
				return t.Name
			}
		}
	}
	return ""
}

// Synchronize applies the changes that make the target match desired and
// returns them in execution order. In memory-replay mode they can be undone
// with Revert.
func (s *Synchronizer) Synchronize(ctx context.Context, desired []*types.Table) ([]operation.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock(ctx); err != nil {
		return nil, err
	}

	plan, err := s.plan(ctx, desired)
	if err != nil {
		return nil, err
	}
	if plan.Empty() {
		if s.verbose {
			fmt.Println("Database is up to date")
		}
		return nil, nil
	}

	return s.executor.ExecuteAll(ctx, plan.Operations)
}

func (s *Synchronizer) lock(ctx context.Context) error {
	if s.locked || s.options.LockKey == "" {
		return nil
	}
	locker, ok := s.target.(Locker)
	if !ok {
		return nil
	}
	if err := locker.Lock(ctx, s.options.LockKey); err != nil {
		return err
	}
	s.locked = true
	return nil
}

// GenerateMigration renders the changes as a migration without executing
// anything. It returns nil when there is nothing to migrate.
func (s *Synchronizer) GenerateMigration(ctx context.Context, desired []*types.Table) (*migration.Migration, error) {
	if s.options.Migrations == nil {
		return nil, errors.NewMigrationError("generate", "no migration generator configured")
	}

	plan, err := s.Plan(ctx, desired)
	if err != nil {
		return nil, err
	}
	if plan.Empty() {
		return nil, nil
	}
	return s.options.Migrations.GenerateMigration(plan.Pairs, s.options.MigrationName)
}

// Revert replays the down-log, undoing every change since the last clear
func (s *Synchronizer) Revert(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executor.ExecuteMemoryDownSQL(ctx)
}

// ClearSQLMemory forgets the recorded changes
func (s *Synchronizer) ClearSQLMemory() {
	s.executor.ClearSQLMemory()
}

// DownLog returns the recorded inverses
func (s *Synchronizer) DownLog() []operation.Operation {
	return s.executor.DownLog()
}

// RenameTable renames a table and every generated name that embeds it
func (s *Synchronizer) RenameTable(ctx context.Context, oldName, newName string) ([]operation.Operation, error) {
	return s.rename(ctx, func(tables []*types.Table, resolver *cascade.Resolver) (*cascade.Result, error) {
		return resolver.RenameTable(tables, oldName, newName)
	})
}

// RenameColumn renames a column and every generated name that embeds it
func (s *Synchronizer) RenameColumn(ctx context.Context, table, oldName, newName string) ([]operation.Operation, error) {
	return s.rename(ctx, func(tables []*types.Table, resolver *cascade.Resolver) (*cascade.Result, error) {
		return resolver.RenameColumn(tables, table, oldName, newName)
	})
}

func (s *Synchronizer) rename(ctx context.Context, resolve func([]*types.Table, *cascade.Resolver) (*cascade.Result, error)) ([]operation.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock(ctx); err != nil {
		return nil, err
	}

	actual, err := s.target.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read database structure: %w", err)
	}

	result, err := resolve(actual, s.resolver)
	if err != nil {
		return nil, err
	}
	ops, err := s.sequencer.Sequence(result.Operations)
	if err != nil {
		return nil, err
	}
	if _, err := s.simulate(ctx, actual, ops); err != nil {
		return nil, err
	}
	return s.executor.ExecuteAll(ctx, ops)
}
