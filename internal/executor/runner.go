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

	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/operation"
	"github.com/ocomsoft/schemasync/internal/types"
)

// QueryRunner is one session on a database, live or simulated. Every
// structural method translates to dialect-correct SQL or its in-memory
// equivalent.
type QueryRunner interface {
	// GetTable returns the current structure of the table, nil when absent
	GetTable(ctx context.Context, name string) (*types.Table, error)
	Query(ctx context.Context, query string, args ...any) ([]map[string]any, error)
	NamespaceExists(ctx context.Context, kind operation.Kind, name string) (bool, error)

	CreateTable(ctx context.Context, table *types.Table, ifNotExists bool) error
	DropTable(ctx context.Context, table *types.Table, ifExists bool) error
	RenameTable(ctx context.Context, oldName, newName string) error

	AddColumn(ctx context.Context, table string, column types.Column, sequence *types.Sequence, position operation.ColumnPosition) error
	DropColumn(ctx context.Context, table string, column types.Column, sequence *types.Sequence) error
	ChangeColumn(ctx context.Context, table string, from, to types.Column) error
	RenameColumn(ctx context.Context, table, oldName, newName string) error

	CreateIndex(ctx context.Context, table string, index types.Index) error
	DropIndex(ctx context.Context, table string, index types.Index) error
	RenameIndex(ctx context.Context, table, oldName, newName string) error
	CreateUnique(ctx context.Context, table string, unique types.Unique) error
	DropUnique(ctx context.Context, table string, unique types.Unique) error
	RenameUnique(ctx context.Context, table, oldName, newName string) error
	CreateCheck(ctx context.Context, table string, check types.Check) error
	DropCheck(ctx context.Context, table string, check types.Check) error
	RenameCheck(ctx context.Context, table, oldName, newName string) error
	CreateForeignKey(ctx context.Context, table string, fk types.ForeignKey) error
	DropForeignKey(ctx context.Context, table string, fk types.ForeignKey) error
	RenameForeignKey(ctx context.Context, table, oldName, newName string) error
	CreatePrimaryKey(ctx context.Context, table string, pk types.PrimaryKey) error
	DropPrimaryKey(ctx context.Context, table string, pk types.PrimaryKey) error
	RenamePrimaryKey(ctx context.Context, table, oldName, newName string) error
	CreateSequence(ctx context.Context, table string, sequence types.Sequence) error
	DropSequence(ctx context.Context, table string, sequence types.Sequence) error
	RenameSequence(ctx context.Context, table, oldName, newName string) error

	CreateSchema(ctx context.Context, name string, ifNotExists bool) error
	DropSchema(ctx context.Context, name string, ifExists bool) error
	CreateDatabase(ctx context.Context, name string, ifNotExists bool) error
	DropDatabase(ctx context.Context, name string, ifExists bool) error

	// Release ends the session
	Release() error
}

// Dispatch calls the QueryRunner method for the operation's kind
func Dispatch(ctx context.Context, r QueryRunner, op operation.Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}
	switch op.Kind {
	case operation.CreateTable:
		return r.CreateTable(ctx, op.Definition, op.IfNotExists)
	case operation.DropTable:
		return r.DropTable(ctx, op.Definition, op.IfExists)
	case operation.RenameTable:
		return r.RenameTable(ctx, op.OldName, op.NewName)
	case operation.AddColumn:
		return r.AddColumn(ctx, op.Table, *op.Column, op.Sequence, op.Position)
	case operation.DropColumn:
		return r.DropColumn(ctx, op.Table, *op.Column, op.Sequence)
	case operation.ChangeColumn:
		return r.ChangeColumn(ctx, op.Table, *op.OldColumn, *op.Column)
	case operation.RenameColumn:
		return r.RenameColumn(ctx, op.Table, op.OldName, op.NewName)
	case operation.CreateIndex:
		return r.CreateIndex(ctx, op.Table, *op.Index)
	case operation.DropIndex:
		return r.DropIndex(ctx, op.Table, *op.Index)
	case operation.RenameIndex:
		return r.RenameIndex(ctx, op.Table, op.OldName, op.NewName)
	case operation.CreateUnique:
		return r.CreateUnique(ctx, op.Table, *op.Unique)
	case operation.DropUnique:
		return r.DropUnique(ctx, op.Table, *op.Unique)
	case operation.RenameUnique:
		return r.RenameUnique(ctx, op.Table, op.OldName, op.NewName)
	case operation.CreateCheck:
		return r.CreateCheck(ctx, op.Table, *op.Check)
	case operation.DropCheck:
		return r.DropCheck(ctx, op.Table, *op.Check)
	case operation.RenameCheck:
		return r.RenameCheck(ctx, op.Table, op.OldName, op.NewName)
	case operation.CreateForeignKey:
		return r.CreateForeignKey(ctx, op.Table, *op.ForeignKey)
	case operation.DropForeignKey:
		return r.DropForeignKey(ctx, op.Table, *op.ForeignKey)
	case operation.RenameForeignKey:
		return r.RenameForeignKey(ctx, op.Table, op.OldName, op.NewName)
	case operation.CreatePrimaryKey:
		return r.CreatePrimaryKey(ctx, op.Table, *op.PrimaryKey)
	case operation.DropPrimaryKey:
		return r.DropPrimaryKey(ctx, op.Table, *op.PrimaryKey)
	case operation.RenamePrimaryKey:
		return r.RenamePrimaryKey(ctx, op.Table, op.OldName, op.NewName)
	case operation.CreateSequence:
		return r.CreateSequence(ctx, op.Table, *op.Sequence)
	case operation.DropSequence:
		return r.DropSequence(ctx, op.Table, *op.Sequence)
	case operation.RenameSequence:
		return r.RenameSequence(ctx, op.Table, op.OldName, op.NewName)
	case operation.CreateSchema:
		return r.CreateSchema(ctx, op.Namespace, op.IfNotExists)
	case operation.DropSchema:
		return r.DropSchema(ctx, op.Namespace, op.IfExists)
	case operation.CreateDatabase:
		return r.CreateDatabase(ctx, op.Namespace, op.IfNotExists)
	case operation.DropDatabase:
		return r.DropDatabase(ctx, op.Namespace, op.IfExists)
	}
	return errors.NewConfigurationError(fmt.Sprintf("unknown operation kind %q", op.Kind))
}

// ApplyFunc applies one operation to a session
type ApplyFunc func(ctx context.Context, op operation.Operation) error

// Operations implements the structural QueryRunner methods by building the
// matching operation and handing it to Apply. Session types embed it and
// keep a single code path per operation.
type Operations struct {
	Apply ApplyFunc
}

func (o Operations) CreateTable(ctx context.Context, table *types.Table, ifNotExists bool) error {
	return o.Apply(ctx, operation.NewCreateTable(table, ifNotExists))
}

func (o Operations) DropTable(ctx context.Context, table *types.Table, ifExists bool) error {
	return o.Apply(ctx, operation.NewDropTable(table, ifExists))
}

func (o Operations) RenameTable(ctx context.Context, oldName, newName string) error {
	return o.Apply(ctx, operation.NewRenameTable(oldName, newName))
}

func (o Operations) AddColumn(ctx context.Context, table string, column types.Column, sequence *types.Sequence, position operation.ColumnPosition) error {
	op := operation.NewAddColumn(table, column)
	op.Sequence = sequence
	op.Position = position
	return o.Apply(ctx, op)
}

func (o Operations) DropColumn(ctx context.Context, table string, column types.Column, sequence *types.Sequence) error {
	op := operation.NewDropColumn(table, column)
	op.Sequence = sequence
	return o.Apply(ctx, op)
}

func (o Operations) ChangeColumn(ctx context.Context, table string, from, to types.Column) error {
	return o.Apply(ctx, operation.NewChangeColumn(table, from, to))
}

func (o Operations) RenameColumn(ctx context.Context, table, oldName, newName string) error {
	return o.Apply(ctx, operation.NewRenameColumn(table, oldName, newName))
}

func (o Operations) CreateIndex(ctx context.Context, table string, index types.Index) error {
	return o.Apply(ctx, operation.NewCreateIndex(table, index))
}

func (o Operations) DropIndex(ctx context.Context, table string, index types.Index) error {
	return o.Apply(ctx, operation.NewDropIndex(table, index))
}

func (o Operations) RenameIndex(ctx context.Context, table, oldName, newName string) error {
	return o.Apply(ctx, operation.NewRename(operation.RenameIndex, table, oldName, newName))
}

func (o Operations) CreateUnique(ctx context.Context, table string, unique types.Unique) error {
	return o.Apply(ctx, operation.NewCreateUnique(table, unique))
}

func (o Operations) DropUnique(ctx context.Context, table string, unique types.Unique) error {
	return o.Apply(ctx, operation.NewDropUnique(table, unique))
}

func (o Operations) RenameUnique(ctx context.Context, table, oldName, newName string) error {
	return o.Apply(ctx, operation.NewRename(operation.RenameUnique, table, oldName, newName))
}

func (o Operations) CreateCheck(ctx context.Context, table string, check types.Check) error {
	return o.Apply(ctx, operation.NewCreateCheck(table, check))
}

func (o Operations) DropCheck(ctx context.Context, table string, check types.Check) error {
	return o.Apply(ctx, operation.NewDropCheck(table, check))
}

func (o Operations) RenameCheck(ctx context.Context, table, oldName, newName string) error {
	return o.Apply(ctx, operation.NewRename(operation.RenameCheck, table, oldName, newName))
}

func (o Operations) CreateForeignKey(ctx context.Context, table string, fk types.ForeignKey) error {
	return o.Apply(ctx, operation.NewCreateForeignKey(table, fk))
}

func (o Operations) DropForeignKey(ctx context.Context, table string, fk types.ForeignKey) error {
	return o.Apply(ctx, operation.NewDropForeignKey(table, fk))
}

func (o Operations) RenameForeignKey(ctx context.Context, table, oldName, newName string) error {
	return o.Apply(ctx, operation.NewRename(operation.RenameForeignKey, table, oldName, newName))
}

func (o Operations) CreatePrimaryKey(ctx context.Context, table string, pk types.PrimaryKey) error {
	return o.Apply(ctx, operation.NewCreatePrimaryKey(table, pk))
}

func (o Operations) DropPrimaryKey(ctx context.Context, table string, pk types.PrimaryKey) error {
	return o.Apply(ctx, operation.NewDropPrimaryKey(table, pk))
}

func (o Operations) RenamePrimaryKey(ctx context.Context, table, oldName, newName string) error {
	return o.Apply(ctx, operation.NewRename(operation.RenamePrimaryKey, table, oldName, newName))
}

func (o Operations) CreateSequence(ctx context.Context, table string, sequence types.Sequence) error {
	return o.Apply(ctx, operation.NewCreateSequence(table, sequence))
}

func (o Operations) DropSequence(ctx context.Context, table string, sequence types.Sequence) error {
	return o.Apply(ctx, operation.NewDropSequence(table, sequence))
}

func (o Operations) RenameSequence(ctx context.Context, table, oldName, newName string) error {
	return o.Apply(ctx, operation.NewRename(operation.RenameSequence, table, oldName, newName))
}

func (o Operations) CreateSchema(ctx context.Context, name string, ifNotExists bool) error {
	return o.Apply(ctx, operation.NewCreateSchema(name, ifNotExists))
}

func (o Operations) DropSchema(ctx context.Context, name string, ifExists bool) error {
	return o.Apply(ctx, operation.Operation{Kind: operation.DropSchema, Namespace: name, IfExists: ifExists})
}

func (o Operations) CreateDatabase(ctx context.Context, name string, ifNotExists bool) error {
	return o.Apply(ctx, operation.NewCreateDatabase(name, ifNotExists))
}

func (o Operations) DropDatabase(ctx context.Context, name string, ifExists bool) error {
	return o.Apply(ctx, operation.Operation{Kind: operation.DropDatabase, Namespace: name, IfExists: ifExists})
}
