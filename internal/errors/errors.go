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
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Common error types for schemasync

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

type SchemaParseError struct {
	FilePath string
	Line     int
	Message  string
}

func (e SchemaParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("schema parse error in %s at line %d: %s", e.FilePath, e.Line, e.Message)
	}
	return fmt.Sprintf("schema parse error in %s: %s", e.FilePath, e.Message)
}

// ConfigurationError is raised while planning, before any DDL runs. It lists
// the identifiers that caused it.
type ConfigurationError struct {
	Identifiers []string
	Message     string
}

func (e ConfigurationError) Error() string {
	if len(e.Identifiers) == 0 {
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
	return fmt.Sprintf("configuration error: %s [%s]", e.Message, strings.Join(e.Identifiers, ", "))
}

// DialectUnsupportedError reports an operation the target dialect cannot
// express and for which no fallback exists.
type DialectUnsupportedError struct {
	Dialect   string
	Operation string
	Message   string
}

func (e DialectUnsupportedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s does not support %s", e.Dialect, e.Operation)
	}
	return fmt.Sprintf("%s does not support %s: %s", e.Dialect, e.Operation, e.Message)
}

// ExecutionError wraps a failed query. DownLogSize is the number of inverse
// operations recorded before the failure, available for replay.
type ExecutionError struct {
	Operation   string
	DownLogSize int
	Err         error
}

func (e ExecutionError) Error() string {
	return fmt.Sprintf("execution error during %s (%d down operations recorded): %v", e.Operation, e.DownLogSize, e.Err)
}

func (e ExecutionError) Unwrap() error {
	return e.Err
}

type SequencingError struct {
	Identifiers []string
	Message     string
}

func (e SequencingError) Error() string {
	if len(e.Identifiers) == 0 {
		return fmt.Sprintf("sequencing error: %s", e.Message)
	}
	return fmt.Sprintf("sequencing error: %s [%s]", e.Message, strings.Join(e.Identifiers, " -> "))
}

type MigrationError struct {
	Operation string
	Message   string
}

func (e MigrationError) Error() string {
	return fmt.Sprintf("migration error during %s: %s", e.Operation, e.Message)
}

// Error wrapping helpers
func NewValidationError(field, message string) error {
	return ValidationError{Field: field, Message: message}
}

func NewSchemaParseError(filePath string, line int, message string) error {
	return SchemaParseError{FilePath: filePath, Line: line, Message: message}
}

func NewConfigurationError(message string, identifiers ...string) error {
	return ConfigurationError{Identifiers: identifiers, Message: message}
}

func NewDialectUnsupportedError(dialect, operation, message string) error {
	return DialectUnsupportedError{Dialect: dialect, Operation: operation, Message: message}
}

func NewExecutionError(operation string, downLogSize int, err error) error {
	return ExecutionError{Operation: operation, DownLogSize: downLogSize, Err: err}
}

func NewSequencingError(message string, identifiers ...string) error {
	return SequencingError{Identifiers: identifiers, Message: message}
}

func NewMigrationError(operation, message string) error {
	return MigrationError{Operation: operation, Message: message}
}

// Utility functions for error checking. They look through wrapped errors.
func IsValidationError(err error) bool {
	var target ValidationError
	return stderrors.As(err, &target)
}

func IsSchemaParseError(err error) bool {
	var target SchemaParseError
	return stderrors.As(err, &target)
}

func IsConfigurationError(err error) bool {
	var target ConfigurationError
	return stderrors.As(err, &target)
}

func IsDialectUnsupportedError(err error) bool {
	var target DialectUnsupportedError
	return stderrors.As(err, &target)
}

func IsExecutionError(err error) bool {
	var target ExecutionError
	return stderrors.As(err, &target)
}

func IsSequencingError(err error) bool {
	var target SequencingError
	return stderrors.As(err, &target)
}

func IsMigrationError(err error) bool {
	var target MigrationError
	return stderrors.As(err, &target)
}

// IsPlanningError reports whether err was raised before any DDL executed.
func IsPlanningError(err error) bool {
	return IsConfigurationError(err) || IsSequencingError(err) || IsDialectUnsupportedError(err)
}

// AsExecutionError extracts an ExecutionError from err's chain.
func AsExecutionError(err error) (ExecutionError, bool) {
	var target ExecutionError
	ok := stderrors.As(err, &target)
	return target, ok
}
