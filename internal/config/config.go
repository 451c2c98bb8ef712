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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	yaml "gopkg.in/yaml.v3"
)

// Config represents the schemasync configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Connection settings for commands that talk to a live database
	Connection ConnectionConfig `yaml:"connection" mapstructure:"connection"`

	// Generated object names
	Naming NamingConfig `yaml:"naming" mapstructure:"naming"`

	// Synchronization behaviour
	Sync SyncConfig `yaml:"sync" mapstructure:"sync"`

	// Migration settings
	Migration MigrationConfig `yaml:"migration" mapstructure:"migration"`

	// Schema settings
	Schema SchemaConfig `yaml:"schema" mapstructure:"schema"`

	// Output settings
	Output OutputConfig `yaml:"output" mapstructure:"output"`
}

// DatabaseConfig contains database-related settings
type DatabaseConfig struct {
	Type          string `yaml:"type" mapstructure:"type"`                     // postgresql, mysql, tidb, sqlserver, sqlite, turso, redshift, auroradsql
	DefaultSchema string `yaml:"default_schema" mapstructure:"default_schema"` // Schema created before synchronizing, for databases that support schemas
}

// ConnectionConfig describes how to reach the database. DSN wins over the
// individual parts when set.
type ConnectionConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"` // database/sql driver; empty picks the dialect default
	DSN      string `yaml:"dsn" mapstructure:"dsn"`
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Name     string `yaml:"name" mapstructure:"name"`
	SSLMode  string `yaml:"sslmode" mapstructure:"sslmode"`
	Path     string `yaml:"path" mapstructure:"path"` // database file for sqlite and turso
}

// NamingConfig controls generated identifiers
type NamingConfig struct {
	MaxIdentifierLength int  `yaml:"max_identifier_length" mapstructure:"max_identifier_length"` // 0 uses the dialect limit
	HashLength          int  `yaml:"hash_length" mapstructure:"hash_length"`
	SnakeCase           bool `yaml:"snake_case" mapstructure:"snake_case"`
}

// SyncConfig controls schema synchronization
type SyncConfig struct {
	Mode              string `yaml:"mode" mapstructure:"mode"`                               // commit or replay
	DropUnknownTables bool   `yaml:"drop_unknown_tables" mapstructure:"drop_unknown_tables"` // Drop tables missing from the schema files
	Lock              bool   `yaml:"lock" mapstructure:"lock"`                               // Hold an advisory lock while synchronizing
	LockKey           string `yaml:"lock_key" mapstructure:"lock_key"`
}

// MigrationConfig contains migration-related settings
type MigrationConfig struct {
	Directory             string   `yaml:"directory" mapstructure:"directory"`                           // Directory for migration files
	SnapshotFile          string   `yaml:"snapshot_file" mapstructure:"snapshot_file"`                   // Name of the schema snapshot file
	IncludeDownSQL        bool     `yaml:"include_down_sql" mapstructure:"include_down_sql"`             // Whether to generate DOWN migrations
	ReviewCommentPrefix   string   `yaml:"review_comment_prefix" mapstructure:"review_comment_prefix"`   // Prefix for review comments on destructive operations
	DestructiveOperations []string `yaml:"destructive_operations" mapstructure:"destructive_operations"` // Operation kinds to mark with review comments
}

// SchemaConfig contains schema scanning and processing settings
type SchemaConfig struct {
	SearchPaths    []string `yaml:"search_paths" mapstructure:"search_paths"`         // Additional paths to search for schema files
	IgnoreModules  []string `yaml:"ignore_modules" mapstructure:"ignore_modules"`     // Module patterns to ignore
	SchemaFileName string   `yaml:"schema_file_name" mapstructure:"schema_file_name"` // Name of schema files to look for
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Verbose      bool `yaml:"verbose" mapstructure:"verbose"`             // Enable verbose output
	ColorEnabled bool `yaml:"color_enabled" mapstructure:"color_enabled"` // Enable colored output
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Type:          "postgresql",
			DefaultSchema: "public",
		},
		Connection: ConnectionConfig{
			Host:    "localhost",
			SSLMode: "disable",
			Path:    "database.db",
		},
		Naming: NamingConfig{
			HashLength: 8,
		},
		Sync: SyncConfig{
			Mode:    "commit",
			Lock:    true,
			LockKey: "schemasync",
		},
		Migration: MigrationConfig{
			Directory:           "migrations",
			SnapshotFile:        ".schema_snapshot.yaml",
			IncludeDownSQL:      true,
			ReviewCommentPrefix: "-- REVIEW: ",
			DestructiveOperations: []string{
				"DropTable",
				"DropColumn",
				"DropIndex",
				"RenameTable",
				"RenameColumn",
				"ChangeColumn",
			},
		},
		Schema: SchemaConfig{
			SearchPaths:    []string{},
			IgnoreModules:  []string{},
			SchemaFileName: "schema.yaml",
		},
		Output: OutputConfig{
			Verbose:      false,
			ColorEnabled: true,
		},
	}
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("SCHEMASYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("schemasync.config")
		v.SetConfigType("yaml")
		v.AddConfigPath("migrations")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// a missing config file means defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads configuration or returns default if not found
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := `# Schemasync Configuration File
#
# All settings can be overridden using environment variables with the prefix SCHEMASYNC_
# For example: SCHEMASYNC_DATABASE_TYPE=mysql
#
# For nested values, use underscores: SCHEMASYNC_SYNC_DROP_UNKNOWN_TABLES=true
#
# sync.mode:
#   - commit: changes stay applied; the down-log is only reported
#   - replay: the down-log can be replayed to undo the run
#
# migration.destructive_operations lists operation kinds that get a review
# comment in generated migrations, e.g. DropTable, DropColumn, ChangeColumn.
#

`

	fullContent := []byte(header + string(data))
	if err := os.WriteFile(path, fullContent, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("database.type", cfg.Database.Type)
	v.SetDefault("database.default_schema", cfg.Database.DefaultSchema)

	v.SetDefault("connection.driver", cfg.Connection.Driver)
	v.SetDefault("connection.dsn", cfg.Connection.DSN)
	v.SetDefault("connection.host", cfg.Connection.Host)
	v.SetDefault("connection.port", cfg.Connection.Port)
	v.SetDefault("connection.user", cfg.Connection.User)
	v.SetDefault("connection.password", cfg.Connection.Password)
	v.SetDefault("connection.name", cfg.Connection.Name)
	v.SetDefault("connection.sslmode", cfg.Connection.SSLMode)
	v.SetDefault("connection.path", cfg.Connection.Path)

	v.SetDefault("naming.max_identifier_length", cfg.Naming.MaxIdentifierLength)
	v.SetDefault("naming.hash_length", cfg.Naming.HashLength)
	v.SetDefault("naming.snake_case", cfg.Naming.SnakeCase)

	v.SetDefault("sync.mode", cfg.Sync.Mode)
	v.SetDefault("sync.drop_unknown_tables", cfg.Sync.DropUnknownTables)
	v.SetDefault("sync.lock", cfg.Sync.Lock)
	v.SetDefault("sync.lock_key", cfg.Sync.LockKey)

	v.SetDefault("migration.directory", cfg.Migration.Directory)
	v.SetDefault("migration.snapshot_file", cfg.Migration.SnapshotFile)
	v.SetDefault("migration.include_down_sql", cfg.Migration.IncludeDownSQL)
	v.SetDefault("migration.review_comment_prefix", cfg.Migration.ReviewCommentPrefix)
	v.SetDefault("migration.destructive_operations", cfg.Migration.DestructiveOperations)

	v.SetDefault("schema.search_paths", cfg.Schema.SearchPaths)
	v.SetDefault("schema.ignore_modules", cfg.Schema.IgnoreModules)
	v.SetDefault("schema.schema_file_name", cfg.Schema.SchemaFileName)

	v.SetDefault("output.verbose", cfg.Output.Verbose)
	v.SetDefault("output.color_enabled", cfg.Output.ColorEnabled)
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	return filepath.Join("migrations", "schemasync.config.yaml")
}

// ConfigExists checks if a config file exists
func ConfigExists() bool {
	_, err := os.Stat(GetConfigPath())
	return err == nil
}
