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
package schemafile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ocomsoft/schemasync/internal/errors"
	"github.com/ocomsoft/schemasync/internal/types"
)

// Parser handles YAML schema parsing and validation
type Parser struct {
	verbose bool
}

// NewParser creates a new YAML schema parser
func NewParser(verbose bool) *Parser {
	return &Parser{
		verbose: verbose,
	}
}

var lineNumber = regexp.MustCompile(`line (\d+)`)

// ParseSchema parses YAML content into a Schema struct. Unknown keys are
// rejected so that a misspelt attribute does not silently vanish.
func (p *Parser) ParseSchema(content, filePath string) (*types.Schema, error) {
	if p.verbose {
		fmt.Printf("Parsing YAML schema content (%d bytes)\n", len(content))
	}

	var schema types.Schema
	decoder := yaml.NewDecoder(bytes.NewReader([]byte(content)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&schema); err != nil {
		if err == io.EOF {
			return nil, errors.NewSchemaParseError(filePath, 0, "schema file is empty")
		}
		return nil, errors.NewSchemaParseError(filePath, parseLine(err.Error()), err.Error())
	}

	p.normalizeTypes(&schema)

	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("schema validation failed for %s: %w", filePath, err)
	}

	if p.verbose {
		fmt.Printf("Successfully parsed schema with %d tables\n", len(schema.Tables))
	}

	return &schema, nil
}

// ParseSchemaFile reads and parses a YAML schema file from disk
func (p *Parser) ParseSchemaFile(filePath string) (*types.Schema, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", filePath, err)
	}
	return p.ParseSchema(string(content), filePath)
}

// ValidateForeignKeyReferences checks that every foreign key points at a
// table and columns declared somewhere in the schema. Schema-qualified
// references to tables outside the file are left to the database.
func (p *Parser) ValidateForeignKeyReferences(schema *types.Schema) error {
	for _, table := range schema.Tables {
		for _, fk := range table.ForeignKeys {
			ref := types.ParseTableName(fk.ReferencedTable)
			target := schema.GetTableByName(fk.ReferencedTable)
			if target == nil && ref.Schema == "" {
				return errors.NewValidationError(
					fmt.Sprintf("%s.%s", table.Name, fk.Name),
					fmt.Sprintf("referenced table '%s' does not exist", fk.ReferencedTable))
			}
			if target == nil {
				continue
			}
			for _, column := range fk.ReferencedColumns {
				if target.GetColumnByName(column) == nil {
					return errors.NewValidationError(
						fmt.Sprintf("%s.%s", table.Name, fk.Name),
						fmt.Sprintf("referenced column '%s.%s' does not exist", fk.ReferencedTable, column))
				}
			}
		}
	}
	return nil
}

func (p *Parser) normalizeTypes(schema *types.Schema) {
	for i := range schema.Tables {
		for j := range schema.Tables[i].Columns {
			column := &schema.Tables[i].Columns[j]
			column.Type = strings.ToLower(strings.TrimSpace(column.Type))
		}
	}
}

func parseLine(message string) int {
	match := lineNumber.FindStringSubmatch(message)
	if match == nil {
		return 0
	}
	line, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return line
}
