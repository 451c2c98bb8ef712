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
package sequencer

import (
	"fmt"
	"strings"

	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/operation"
)

// Sequencer orders change operations so that every statement runs against
// the structure it expects.
type Sequencer struct {
	verbose bool
}

// New creates a sequencer
func New(verbose bool) *Sequencer {
	return &Sequencer{verbose: verbose}
}

// phases in execution order; kinds not listed run with the column changes
var phases = [][]operation.Kind{
	{operation.CreateDatabase, operation.CreateSchema},
	// rename blocks are placed here
	{operation.DropForeignKey},
	{operation.DropCheck, operation.DropUnique, operation.DropIndex},
	{operation.DropPrimaryKey},
	// object renames are placed here
	{operation.CreateSequence},
	{operation.DropColumn, operation.AddColumn, operation.ChangeColumn},
	{operation.DropSequence},
	// table drops, then table creates
	{operation.CreatePrimaryKey},
	{operation.CreateUnique, operation.CreateIndex, operation.CreateCheck},
	{operation.CreateForeignKey},
	{operation.DropSchema, operation.DropDatabase},
}

// Sequence returns ops in execution order. Ops is not modified.
//
// A RenameTable or RenameColumn and the cascaded renames following it stay
// one contiguous block. Foreign keys among created tables are split into
// their own phase when the tables reference each other in a cycle, and the
// same is done for dropped tables.
func (s *Sequencer) Sequence(ops []operation.Operation) ([]operation.Operation, error) {
	if err := checkDuplicates(ops); err != nil {
		return nil, err
	}

	var blocks, objectRenames [][]operation.Operation
	var creates, drops []operation.Operation
	byKind := make(map[operation.Kind][]operation.Operation)

	for i := 0; i < len(ops); i++ {
		op := ops[i]
		switch {
		case (op.Kind == operation.RenameTable || op.Kind == operation.RenameColumn) && !op.Cascaded:
			block := []operation.Operation{op}
			for i+1 < len(ops) && ops[i+1].Cascaded {
				i++
				block = append(block, ops[i])
			}
			blocks = append(blocks, block)
		case op.Kind.IsRename():
			objectRenames = append(objectRenames, []operation.Operation{op})
		case op.Kind == operation.CreateTable:
			creates = append(creates, op)
		case op.Kind == operation.DropTable:
			drops = append(drops, op)
		default:
			byKind[op.Kind] = append(byKind[op.Kind], op)
		}
	}

	blocks, err := orderRenames(blocks)
	if err != nil {
		return nil, err
	}
	objectRenames, err = orderRenames(objectRenames)
	if err != nil {
		return nil, err
	}

	creates, createFKs := s.orderCreates(creates, pendingKeys(byKind))
	drops, dropFKs := s.orderDrops(drops)
	byKind[operation.CreateForeignKey] = append(createFKs, byKind[operation.CreateForeignKey]...)
	byKind[operation.DropForeignKey] = append(dropFKs, byKind[operation.DropForeignKey]...)

	placed := make(map[operation.Kind]bool)
	var out []operation.Operation
	emit := func(kinds []operation.Kind) {
		for _, kind := range kinds {
			out = append(out, byKind[kind]...)
			placed[kind] = true
		}
	}

	emit(phases[0])
	for _, b := range blocks {
		out = append(out, b...)
	}
	emit(phases[1])
	emit(phases[2])
	emit(phases[3])
	for _, b := range objectRenames {
		out = append(out, b...)
	}
	emit(phases[4])
	emit(phases[5])
	emit(phases[6])
	out = append(out, drops...)
	out = append(out, creates...)
	emit(phases[7])
	emit(phases[8])
	emit(phases[9])
	emit(phases[10])

	for _, kind := range operation.Kinds {
		if !placed[kind] && len(byKind[kind]) > 0 {
			return nil, errors.NewSequencingError("no phase for operation kind " + string(kind))
		}
	}

	if s.verbose {
		fmt.Println("Operation order:")
		for i, op := range out {
			fmt.Printf("  %d. %s\n", i+1, op.Describe())
		}
	}
	return out, nil
}

// checkDuplicates rejects two operations doing the same thing to the same
// object, which cannot be ordered meaningfully.
func checkDuplicates(ops []operation.Operation) error {
	seen := make(map[string]bool)
	for _, op := range ops {
		key := fmt.Sprintf("%s|%s|%s|%s", op.Kind, strings.ToLower(op.Table), op.ObjectName(), op.OldName)
		if seen[key] {
			return errors.NewSequencingError("conflicting duplicate operation: "+op.Describe(), op.Table)
		}
		seen[key] = true
	}
	return nil
}

// renameKey returns the identities a rename vacates and takes
func renameKey(op operation.Operation) (from, to string) {
	switch op.Kind {
	case operation.RenameTable:
		return "table:" + strings.ToLower(op.OldName), "table:" + strings.ToLower(op.NewName)
	case operation.RenameColumn:
		prefix := "column:" + strings.ToLower(op.Table) + "."
		return prefix + op.OldName, prefix + op.NewName
	}
	prefix := "object:" + strings.ToLower(op.Table) + "."
	return prefix + op.OldName, prefix + op.NewName
}

// orderRenames runs a rename after the rename that frees its target name.
// A chain A->B, B->C becomes B->C, A->B; a cycle cannot be ordered.
func orderRenames(blocks [][]operation.Operation) ([][]operation.Operation, error) {
	bySource := make(map[string]int)
	targets := make(map[string]bool)
	for i, b := range blocks {
		from, to := renameKey(b[0])
		if _, dup := bySource[from]; dup {
			return nil, errors.NewSequencingError("object renamed twice: "+b[0].Describe(), b[0].OldName)
		}
		if targets[to] {
			return nil, errors.NewSequencingError("two renames to the same name: "+b[0].Describe(), b[0].NewName)
		}
		bySource[from] = i
		targets[to] = true
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(blocks))
	var ordered [][]operation.Operation
	var stack []string

	var visit func(i int) error
	visit = func(i int) error {
		op := blocks[i][0]
		switch state[i] {
		case done:
			return nil
		case visiting:
			cycle := append(stack, op.OldName)
			return errors.NewSequencingError("rename cycle: "+strings.Join(cycle, " -> "), cycle...)
		}
		state[i] = visiting
		stack = append(stack, op.OldName)
		_, to := renameKey(op)
		if j, ok := bySource[to]; ok && j != i {
			if err := visit(j); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[i] = done
		ordered = append(ordered, blocks[i])
		return nil
	}

	for i := range blocks {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}
