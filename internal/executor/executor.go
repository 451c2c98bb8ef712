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
package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/operation"
)

// Mode selects what happens to the down-log after a run
type Mode int

const (
	// ModeCommit keeps the down-log for inspection only
	ModeCommit Mode = iota
	// ModeMemoryReplay allows the down-log to be replayed to undo the run
	ModeMemoryReplay
)

// ParseMode parses "commit" or "replay"
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "commit":
		return ModeCommit, nil
	case "replay", "memory-replay":
		return ModeMemoryReplay, nil
	}
	return ModeCommit, errors.NewConfigurationError(fmt.Sprintf("unknown execution mode %q", s))
}

func (m Mode) String() string {
	if m == ModeMemoryReplay {
		return "replay"
	}
	return "commit"
}

// Executor runs operations on one session and records the inverse of each
// successful operation. An Executor belongs to a single run; its methods
// are serialized.
type Executor struct {
	mu      sync.Mutex
	runner  QueryRunner
	mode    Mode
	verbose bool
	downLog []operation.Operation
}

// New creates an executor over runner
func New(runner QueryRunner, mode Mode, verbose bool) *Executor {
	return &Executor{runner: runner, mode: mode, verbose: verbose}
}

// Execute runs one operation. Nothing is rolled back on failure; the
// returned ExecutionError reports how many inverses were recorded.
func (e *Executor) Execute(ctx context.Context, op operation.Operation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.execute(ctx, op)
}

// ExecuteAll runs ops in order and stops at the first failure. It returns
// the operations that completed.
func (e *Executor) ExecuteAll(ctx context.Context, ops []operation.Operation) ([]operation.Operation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var applied []operation.Operation
	for _, op := range ops {
		if err := e.execute(ctx, op); err != nil {
			return applied, err
		}
		applied = append(applied, op)
	}
	return applied, nil
}

func (e *Executor) execute(ctx context.Context, op operation.Operation) error {
	if err := ctx.Err(); err != nil {
		return errors.NewExecutionError(op.Describe(), len(e.downLog), err)
	}
	inverse, err := e.inverse(ctx, op)
	if err != nil {
		return errors.NewExecutionError(op.Describe(), len(e.downLog), err)
	}

	// an if-not-exists create of an existing namespace changes nothing and
	// must not be undone
	record := true
	if (op.Kind == operation.CreateSchema || op.Kind == operation.CreateDatabase) && op.IfNotExists {
		exists, err := e.runner.NamespaceExists(ctx, op.Kind, op.Namespace)
		if err != nil {
			return errors.NewExecutionError(op.Describe(), len(e.downLog), err)
		}
		record = !exists
	}

	if e.verbose {
		fmt.Printf("Executing: %s\n", op.Describe())
	}
	if err := Dispatch(ctx, e.runner, op); err != nil {
		return errors.NewExecutionError(op.Describe(), len(e.downLog), err)
	}
	if record {
		e.downLog = append(e.downLog, inverse)
	}
	return nil
}

// inverse derives the inverse of op. A column drop needs the table as it is
// now so the column can be restored at its position.
func (e *Executor) inverse(ctx context.Context, op operation.Operation) (operation.Operation, error) {
	if op.Kind != operation.DropColumn {
		return op.Inverse()
	}
	current, err := e.runner.GetTable(ctx, op.Table)
	if err != nil {
		return operation.Operation{}, err
	}
	return op.InverseOn(current)
}

// DownLog returns a copy of the recorded inverses in recording order
func (e *Executor) DownLog() []operation.Operation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]operation.Operation(nil), e.downLog...)
}

// ExecuteMemoryDownSQL replays the down-log newest first, undoing the run.
// Each inverse leaves the log once it has run, so after a failure the log
// holds exactly what remains to be undone.
func (e *Executor) ExecuteMemoryDownSQL(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode != ModeMemoryReplay {
		return errors.NewMigrationError("replay", "down-log replay requires replay mode")
	}
	for len(e.downLog) > 0 {
		last := len(e.downLog) - 1
		op := e.downLog[last]
		if e.verbose {
			fmt.Printf("Reverting: %s\n", op.Describe())
		}
		if err := ctx.Err(); err != nil {
			return errors.NewExecutionError(op.Describe(), len(e.downLog), err)
		}
		if err := Dispatch(ctx, e.runner, op); err != nil {
			return errors.NewExecutionError(op.Describe(), len(e.downLog), err)
		}
		e.downLog = e.downLog[:last]
	}
	return nil
}

// ClearSQLMemory discards the recorded history
func (e *Executor) ClearSQLMemory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.downLog = nil
}

// Mode returns the execution mode
func (e *Executor) Mode() Mode {
	return e.mode
}
