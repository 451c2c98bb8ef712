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
package runner

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/ocomsoft/schemasync/internal/executor"
	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/providers"
	"github.com/ocomsoft/schemasync/internal/types"
)

// Runner is a QueryRunner on one live connection. Statements are rendered
// by the provider against the table as the catalog currently describes it.
type Runner struct {
	executor.Operations

	db       *sql.DB
	conn     *sql.Conn
	provider providers.Provider
	verbose  bool
	unlock   func(context.Context) error
}

var _ executor.QueryRunner = (*Runner)(nil)

// Acquire takes a dedicated connection from db
func Acquire(ctx context.Context, db *sql.DB, provider providers.Provider, verbose bool) (*Runner, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	r := &Runner{db: db, conn: conn, provider: provider, verbose: verbose}
	r.Operations = executor.Operations{Apply: r.apply}
	return r, nil
}

// Provider returns the dialect the runner renders with
func (r *Runner) Provider() providers.Provider {
	return r.provider
}

func (r *Runner) GetTable(ctx context.Context, name string) (*types.Table, error) {
	return r.provider.IntrospectTable(ctx, r.conn, name)
}

// ListTables returns the user tables in the connected database
func (r *Runner) ListTables(ctx context.Context) ([]string, error) {
	return r.provider.ListTables(ctx, r.conn)
}

// Tables introspects every user table
func (r *Runner) Tables(ctx context.Context) ([]*types.Table, error) {
	names, err := r.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	var tables []*types.Table
	for _, name := range names {
		t, err := r.GetTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect table %s: %w", name, err)
		}
		if t != nil {
			tables = append(tables, t)
		}
	}
	return tables, nil
}

func (r *Runner) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
			} else {
				row[column] = values[i]
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *Runner) NamespaceExists(ctx context.Context, kind operation.Kind, name string) (bool, error) {
	return r.provider.NamespaceExists(ctx, r.conn, kind, name)
}

func (r *Runner) apply(ctx context.Context, op operation.Operation) error {
	var current *types.Table
	switch op.Kind {
	case operation.CreateTable, operation.CreateSchema, operation.DropSchema, operation.CreateDatabase, operation.DropDatabase:
	default:
		if op.Table != "" {
			t, err := r.GetTable(ctx, op.Table)
			if err != nil {
				return fmt.Errorf("failed to introspect table %s: %w", op.Table, err)
			}
			current = t
		}
	}

	statements, err := r.provider.GenerateSQL(op, current)
	if err != nil {
		return err
	}
	for _, stmt := range statements {
		if r.verbose {
			fmt.Printf("  %s\n", stmt)
		}
		if _, err := r.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// localLock identifies an in-process run lock. Runners on different pools
// never contend.
type localLock struct {
	db  *sql.DB
	key string
}

var (
	localMu    sync.Mutex
	localLocks = make(map[localLock]chan struct{})
)

// Lock holds the run lock for key until Release. Dialects with an advisory
// lock use it; the rest serialize runs on the same pool within this
// process. Waiting ends early when ctx is done.
func (r *Runner) Lock(ctx context.Context, key string) error {
	if r.unlock != nil {
		return fmt.Errorf("run lock already held")
	}
	if locker, ok := r.provider.(providers.Locker); ok {
		lock, unlock := locker.LockSQL(key)
		if lock != "" {
			if _, err := r.conn.ExecContext(ctx, lock); err != nil {
				return fmt.Errorf("failed to acquire run lock: %w", err)
			}
			r.unlock = func(ctx context.Context) error {
				_, err := r.conn.ExecContext(ctx, unlock)
				return err
			}
			return nil
		}
	}

	id := localLock{db: r.db, key: key}
	localMu.Lock()
	held, ok := localLocks[id]
	if !ok {
		held = make(chan struct{}, 1)
		localLocks[id] = held
	}
	localMu.Unlock()

	select {
	case held <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("failed to acquire run lock: %w", ctx.Err())
	}
	r.unlock = func(context.Context) error {
		<-held
		return nil
	}
	return nil
}

// Release drops the run lock and returns the connection to the pool
func (r *Runner) Release() error {
	var lockErr error
	if r.unlock != nil {
		lockErr = r.unlock(context.Background())
		r.unlock = nil
	}
	if err := r.conn.Close(); err != nil {
		return err
	}
	if lockErr != nil {
		return fmt.Errorf("failed to release run lock: %w", lockErr)
	}
	return nil
}
