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
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/types"
)

// Kind discriminates the generated object a name belongs to
type Kind string

const (
	KindIndex      Kind = "index"
	KindUnique     Kind = "unique"
	KindPrimaryKey Kind = "primary_key"
	KindForeignKey Kind = "foreign_key"
	KindCheck      Kind = "check"
	KindSequence   Kind = "sequence"
)

// DefaultHashLength is the number of hex characters appended on overflow
const DefaultHashLength = 8

var prefixes = map[Kind]string{
	KindIndex:      "IDX",
	KindUnique:     "UQ",
	KindPrimaryKey: "PK",
	KindForeignKey: "FK",
	KindCheck:      "CHK",
}

// Config controls name generation for one data source.
// MaxIdentifierLength of 0 means no limit.
type Config struct {
	MaxIdentifierLength int
	HashLength          int
	SnakeCase           bool
}

// Strategy computes deterministic object names. It holds no mutable state
// and is safe for concurrent use.
type Strategy struct {
	config Config
}

// New creates a naming strategy
func New(config Config) (*Strategy, error) {
	if config.HashLength == 0 {
		config.HashLength = DefaultHashLength
	}
	if config.HashLength < 4 || config.HashLength > sha1.Size*2 {
		return nil, errors.NewConfigurationError(fmt.Sprintf("hash length must be between 4 and %d", sha1.Size*2))
	}
	if config.MaxIdentifierLength < 0 {
		return nil, errors.NewConfigurationError("max identifier length cannot be negative")
	}
	return &Strategy{config: config}, nil
}

// MustNew is New for static configurations
func MustNew(config Config) *Strategy {
	s, err := New(config)
	if err != nil {
		panic(err)
	}
	return s
}

// Config returns the strategy's configuration
func (s *Strategy) Config() Config {
	return s.config
}

// ObjectName returns the generated name for an object of the given kind.
// For foreign keys extra[0] is the referenced table; for checks extra[0] is
// the expression and columns are ignored.
func (s *Strategy) ObjectName(kind Kind, table string, columns []string, extra ...string) (string, error) {
	table = s.identifier(types.UnqualifiedName(table))

	var candidate string
	switch kind {
	case KindIndex, KindUnique, KindPrimaryKey:
		candidate = prefixes[kind] + "_" + table + "_" + s.columnList(columns)
	case KindForeignKey:
		if len(extra) == 0 || extra[0] == "" {
			return "", errors.NewConfigurationError("foreign key name requires a referenced table", table)
		}
		candidate = prefixes[kind] + "_" + table + "_" + s.columnList(columns) + "_" + s.identifier(types.UnqualifiedName(extra[0]))
	case KindCheck:
		if len(extra) == 0 || strings.TrimSpace(extra[0]) == "" {
			return "", errors.NewConfigurationError("check name requires an expression", table)
		}
		candidate = prefixes[kind] + "_" + table + "_" + hashOf(normalizeExpression(extra[0]))[:8]
	case KindSequence:
		if len(columns) != 1 {
			return "", errors.NewConfigurationError("sequence name requires exactly one column", table)
		}
		candidate = table + "_" + s.identifier(columns[0]) + "_seq"
	default:
		return "", errors.NewConfigurationError("unknown object kind "+string(kind), table)
	}

	return s.fit(kind, candidate)
}

// IndexName returns the generated name of an index
func (s *Strategy) IndexName(table string, columns []string) (string, error) {
	return s.ObjectName(KindIndex, table, columns)
}

// UniqueName returns the generated name of a unique constraint
func (s *Strategy) UniqueName(table string, columns []string) (string, error) {
	return s.ObjectName(KindUnique, table, columns)
}

// PrimaryKeyName returns the generated name of a primary key
func (s *Strategy) PrimaryKeyName(table string, columns []string) (string, error) {
	return s.ObjectName(KindPrimaryKey, table, columns)
}

// ForeignKeyName returns the generated name of a foreign key
func (s *Strategy) ForeignKeyName(table string, columns []string, referencedTable string) (string, error) {
	return s.ObjectName(KindForeignKey, table, columns, referencedTable)
}

// CheckName returns the generated name of a check constraint
func (s *Strategy) CheckName(table, expression string) (string, error) {
	return s.ObjectName(KindCheck, table, nil, expression)
}

// SequenceName returns the generated name of a column-owned sequence
func (s *Strategy) SequenceName(table, column string) (string, error) {
	return s.ObjectName(KindSequence, table, []string{column})
}

// TableName applies the identifier conversion to a table name, keeping any
// qualification.
func (s *Strategy) TableName(name string) string {
	q := types.ParseTableName(name)
	return q.WithName(s.identifier(q.Name)).String()
}

// ColumnName applies the identifier conversion to a column name
func (s *Strategy) ColumnName(name string) string {
	return s.identifier(name)
}

// fit enforces the maximum identifier length
func (s *Strategy) fit(kind Kind, candidate string) (string, error) {
	max := s.config.MaxIdentifierLength
	if max == 0 || len(candidate) <= max {
		return candidate, nil
	}
	hashLen := s.config.HashLength
	minimum := len(prefixes[kind]) + hashLen + 2
	if max < minimum {
		return "", errors.NewConfigurationError(
			fmt.Sprintf("identifier limit %d cannot hold a %d character hash", max, hashLen), candidate)
	}
	cut := max - hashLen - 1
	for cut > 0 && !utf8.RuneStart(candidate[cut]) {
		cut--
	}
	return candidate[:cut] + "_" + hashOf(candidate)[:hashLen], nil
}

func (s *Strategy) columnList(columns []string) string {
	sorted := types.SortedColumns(columns)
	for i := range sorted {
		sorted[i] = s.identifier(sorted[i])
	}
	return strings.Join(sorted, "_")
}

func (s *Strategy) identifier(name string) string {
	if s.config.SnakeCase {
		return ToSnakeCase(name)
	}
	return name
}

func hashOf(value string) string {
	sum := sha1.Sum([]byte(value))
	return hex.EncodeToString(sum[:])
}

func normalizeExpression(expression string) string {
	return strings.Join(strings.Fields(expression), " ")
}

// ToSnakeCase converts CamelCase identifiers to snake_case. Runs of capitals
// are kept together, so "userID" becomes "user_id".
func ToSnakeCase(s string) string {
	runes := []rune(s)
	var result strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' {
				prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
					result.WriteByte('_')
				}
			}
			result.WriteRune(unicode.ToLower(r))
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}
