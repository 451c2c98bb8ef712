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
package config

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	cfg := LoadOrDefault(path)
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("LoadOrDefault() = %+v; expected defaults", cfg)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrations", "schemasync.config.yaml")

	cfg := DefaultConfig()
	cfg.Database.Type = "sqlite"
	cfg.Connection.Path = "app.db"
	cfg.Naming.MaxIdentifierLength = 30
	cfg.Sync.Mode = "replay"
	cfg.Sync.DropUnknownTables = true
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("Load() = %+v; expected %+v", loaded, cfg)
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("SCHEMASYNC_DATABASE_TYPE", "mysql")
	t.Setenv("SCHEMASYNC_SYNC_DROP_UNKNOWN_TABLES", "true")
	t.Setenv("SCHEMASYNC_CONNECTION_PORT", "3307")

	path := filepath.Join(t.TempDir(), "schemasync.config.yaml")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Type != "mysql" {
		t.Errorf("Database.Type = %q; expected mysql", cfg.Database.Type)
	}
	if !cfg.Sync.DropUnknownTables {
		t.Error("Sync.DropUnknownTables = false; expected true")
	}
	if cfg.Connection.Port != 3307 {
		t.Errorf("Connection.Port = %d; expected 3307", cfg.Connection.Port)
	}
}
