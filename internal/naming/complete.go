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
package naming

import (
	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/types"
)

// Complete returns a copy of table with every unnamed index and constraint
// given its generated name. When ownedSequences is set, each increment
// column also gets its owned sequence. Two objects ending up with the same
// name is a ConfigurationError.
func (s *Strategy) Complete(table *types.Table, ownedSequences bool) (*types.Table, error) {
	t := table.Clone()
	var err error

	if t.PrimaryKey != nil && t.PrimaryKey.Name == "" {
		if t.PrimaryKey.Name, err = s.PrimaryKeyName(t.Name, t.PrimaryKey.Columns); err != nil {
			return nil, err
		}
	}
	for i := range t.Indexes {
		if t.Indexes[i].Name == "" {
			if t.Indexes[i].Name, err = s.IndexName(t.Name, t.Indexes[i].Columns); err != nil {
				return nil, err
			}
		}
	}
	for i := range t.Uniques {
		if t.Uniques[i].Name == "" {
			if t.Uniques[i].Name, err = s.UniqueName(t.Name, t.Uniques[i].Columns); err != nil {
				return nil, err
			}
		}
	}
	for i := range t.Checks {
		if t.Checks[i].Name == "" {
			if t.Checks[i].Name, err = s.CheckName(t.Name, t.Checks[i].Expression); err != nil {
				return nil, err
			}
		}
	}
	for i := range t.ForeignKeys {
		fk := &t.ForeignKeys[i]
		if fk.Name == "" {
			if fk.Name, err = s.ForeignKeyName(t.Name, fk.Columns, fk.ReferencedTable); err != nil {
				return nil, err
			}
		}
	}

	if ownedSequences {
		for _, column := range t.Columns {
			if column.Generation != types.GenerationIncrement || t.GetSequenceForColumn(column.Name) != nil {
				continue
			}
			name, err := s.SequenceName(t.Name, column.Name)
			if err != nil {
				return nil, err
			}
			t.Sequences = append(t.Sequences, types.Sequence{Name: name, Column: column.Name})
		}
	}

	seen := make(map[string]bool)
	for _, name := range t.ConstraintNames() {
		if seen[name] {
			return nil, errors.NewConfigurationError("generated name collides with another object in table "+t.Name, name)
		}
		seen[name] = true
	}
	return t, nil
}

// CompleteAll completes every table and, when schemaScoped is set, also
// rejects names repeated across tables (dialects where index and constraint
// names share one namespace per schema).
func (s *Strategy) CompleteAll(tables []*types.Table, ownedSequences, schemaScoped bool) ([]*types.Table, error) {
	completed := make([]*types.Table, 0, len(tables))
	owners := make(map[string]string)
	for _, table := range tables {
		t, err := s.Complete(table, ownedSequences)
		if err != nil {
			return nil, err
		}
		if schemaScoped {
			names := t.ConstraintNames()
			for _, seq := range t.Sequences {
				names = append(names, seq.Name)
			}
			for _, name := range names {
				if owner, ok := owners[name]; ok && owner != t.Name {
					return nil, errors.NewConfigurationError("object name used by tables "+owner+" and "+t.Name, name)
				}
				owners[name] = t.Name
			}
		}
		completed = append(completed, t)
	}
	return completed, nil
}
