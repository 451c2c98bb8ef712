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
package state

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ocomsoft/schemasync/internal/types"
)

const (
	DefaultMigrationsDir = "migrations"
	SnapshotFilename     = ".schema_snapshot.yaml"
)

// Snapshot is the recorded structure of a database after the last
// generated migration. Offline migration generation diffs against it.
type Snapshot struct {
	Dialect    string        `yaml:"dialect"`
	Namespaces []string      `yaml:"namespaces,omitempty"`
	Tables     []types.Table `yaml:"tables"`
}

// TablePointers returns the snapshot tables as clones
func (s *Snapshot) TablePointers() []*types.Table {
	tables := make([]*types.Table, len(s.Tables))
	for i := range s.Tables {
		tables[i] = s.Tables[i].Clone()
	}
	return tables
}

type Manager struct {
	migrationsDir string
	snapshotFile  string
	verbose       bool
}

func New(migrationsDir string, verbose bool) *Manager {
	if migrationsDir == "" {
		migrationsDir = DefaultMigrationsDir
	}
	return &Manager{
		migrationsDir: migrationsDir,
		snapshotFile:  SnapshotFilename,
		verbose:       verbose,
	}
}

// WithSnapshotFile sets the snapshot file name inside the migrations directory
func (m *Manager) WithSnapshotFile(name string) *Manager {
	if name != "" {
		m.snapshotFile = name
	}
	return m
}

func (m *Manager) EnsureMigrationsDir() error {
	if _, err := os.Stat(m.migrationsDir); os.IsNotExist(err) {
		if m.verbose {
			fmt.Printf("Creating migrations directory: %s\n", m.migrationsDir)
		}
		if err := os.MkdirAll(m.migrationsDir, 0755); err != nil {
			return fmt.Errorf("failed to create migrations directory: %w", err)
		}
	}
	return nil
}

func (m *Manager) GetSnapshotPath() string {
	return filepath.Join(m.migrationsDir, m.snapshotFile)
}

// LoadSnapshot reads the last saved snapshot. It returns nil without an
// error when no snapshot has been saved yet.
func (m *Manager) LoadSnapshot() (*Snapshot, error) {
	path := m.GetSnapshotPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if m.verbose {
				fmt.Println("No previous schema snapshot found - this is the first migration")
			}
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read schema snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse schema snapshot %s: %w", path, err)
	}
	for i := range snapshot.Tables {
		if err := snapshot.Tables[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid schema snapshot %s: %w", path, err)
		}
	}

	if m.verbose {
		fmt.Printf("Loaded schema snapshot from: %s (%d tables)\n", path, len(snapshot.Tables))
	}

	return &snapshot, nil
}

func (m *Manager) SaveSnapshot(snapshot *Snapshot) error {
	if err := m.EnsureMigrationsDir(); err != nil {
		return err
	}

	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal schema snapshot: %w", err)
	}

	path := m.GetSnapshotPath()
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write schema snapshot: %w", err)
	}

	if m.verbose {
		fmt.Printf("Saved schema snapshot to: %s\n", path)
	}

	return nil
}

func (m *Manager) GetMigrationsDir() string {
	return m.migrationsDir
}

func (m *Manager) GetNextMigrationNumber() (int, error) {
	if err := m.EnsureMigrationsDir(); err != nil {
		return 0, err
	}

	files, err := os.ReadDir(m.migrationsDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	maxNumber := 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		name := file.Name()
		if name == m.snapshotFile {
			continue
		}

		// e.g. "00001_initial.sql"
		var num int
		if _, err := fmt.Sscanf(name, "%d", &num); err == nil {
			if num > maxNumber {
				maxNumber = num
			}
		}
	}

	return maxNumber + 1, nil
}
