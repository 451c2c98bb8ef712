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
package types

import "strings"

// QualifiedName is a table identifier split into its optional database and
// schema prefixes.
type QualifiedName struct {
	Database string
	Schema   string
	Name     string
}

// ParseTableName splits "db.schema.table", "schema.table" or "table".
func ParseTableName(name string) QualifiedName {
	parts := strings.Split(name, ".")
	switch len(parts) {
	case 1:
		return QualifiedName{Name: parts[0]}
	case 2:
		return QualifiedName{Schema: parts[0], Name: parts[1]}
	default:
		return QualifiedName{
			Database: parts[0],
			Schema:   strings.Join(parts[1:len(parts)-1], "."),
			Name:     parts[len(parts)-1],
		}
	}
}

// String joins the non-empty parts with dots
func (q QualifiedName) String() string {
	var parts []string
	if q.Database != "" {
		parts = append(parts, q.Database)
	}
	if q.Schema != "" {
		parts = append(parts, q.Schema)
	}
	parts = append(parts, q.Name)
	return strings.Join(parts, ".")
}

// WithName returns the same qualification with a different table name
func (q QualifiedName) WithName(name string) QualifiedName {
	q.Name = name
	return q
}

// UnqualifiedName strips any database or schema prefix from a table name
func UnqualifiedName(name string) string {
	return ParseTableName(name).Name
}

// SameTable reports whether two table identifiers refer to the same table.
// An unqualified name matches any qualification with the same table name.
func SameTable(a, b string) bool {
	if a == b {
		return true
	}
	qa, qb := ParseTableName(a), ParseTableName(b)
	if qa.Name != qb.Name {
		return false
	}
	if qa.Schema != "" && qb.Schema != "" && qa.Schema != qb.Schema {
		return false
	}
	if qa.Database != "" && qb.Database != "" && qa.Database != qb.Database {
		return false
	}
	return true
}
