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
package migration

import (
	"fmt"
	"os"
	"path/filepath"

	goose "github.com/pressly/goose/v3"
)

type Writer struct {
	verbose bool
}

func NewWriter(verbose bool) *Writer {
	return &Writer{
		verbose: verbose,
	}
}

// WriteMigration writes m into dir and checks that goose collects it under
// the expected version.
func (w *Writer) WriteMigration(m *Migration, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, m.Filename)
	if err := os.WriteFile(path, []byte(w.PreviewMigration(m)), 0644); err != nil {
		return "", fmt.Errorf("failed to write migration file: %w", err)
	}

	if err := Verify(dir, int64(m.Number)); err != nil {
		return path, err
	}

	if w.verbose {
		fmt.Printf("Written migration to: %s\n", path)
		if m.IsDestructive {
			fmt.Println("  ⚠️  Contains destructive operations - please review carefully")
		}
	}

	return path, nil
}

// PreviewMigration returns the file content
func (w *Writer) PreviewMigration(m *Migration) string {
	return m.UpSQL + "\n" + m.DownSQL
}

// Verify reports whether goose finds a migration with the given version in dir
func Verify(dir string, version int64) error {
	migrations, err := goose.CollectMigrations(dir, 0, goose.MaxVersion)
	if err != nil {
		return fmt.Errorf("goose rejected migrations in %s: %w", dir, err)
	}
	for _, m := range migrations {
		if m.Version == version {
			return nil
		}
	}
	return fmt.Errorf("goose did not collect migration version %d in %s", version, dir)
}
