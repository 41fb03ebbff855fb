// Package config loads the YAML project configuration: the database DSN,
// the on-disk revision directory, the filename format new revisions are
// rendered with, and the bookkeeping table name.
package config

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/go-wandern/wandern/pkg/revision"
	"github.com/go-wandern/wandern/pkg/wanderrors"
)

// DefaultMigrationTable is used when a config omits migration_table.
const DefaultMigrationTable = "wd_migrations"

// Config is the project configuration, loaded from a .wd.yaml file at the
// repository root.
type Config struct {
	// DSN is the database connection string, dialect-prefixed
	// (postgres://..., or a plain filesystem path for sqlite).
	DSN string `yaml:"dsn"`

	// MigrationDir is where revision .sql files live. It is used as given,
	// so a relative path resolves against the process's working directory.
	MigrationDir string `yaml:"migration_dir"`

	// FileFormat is the filename template new revisions are rendered
	// with. Defaults to revision.DefaultFileFormat.
	FileFormat string `yaml:"file_format,omitempty"`

	// MigrationTable is the bookkeeping table name. Defaults to
	// DefaultMigrationTable.
	MigrationTable string `yaml:"migration_table,omitempty"`
}

// Load parses a Config from r, applying defaults for any omitted optional
// field.
func Load(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, wanderrors.Config("failed to unmarshal config: %s", err)
	}

	if cfg.DSN == "" {
		return nil, wanderrors.Config("dsn is required")
	}
	if cfg.MigrationDir == "" {
		return nil, wanderrors.Config("migration_dir is required")
	}
	if cfg.FileFormat == "" {
		cfg.FileFormat = revision.DefaultFileFormat
	}
	if cfg.MigrationTable == "" {
		cfg.MigrationTable = DefaultMigrationTable
	}

	return &cfg, nil
}

// LoadFile is a convenience wrapper around Load that reads the config from
// the file at path.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wanderrors.IO(err, path)
	}
	defer func() { _ = f.Close() }()

	return Load(f)
}

// Save writes cfg as YAML to path, creating it if absent.
func Save(cfg *Config, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return wanderrors.IO(err, path)
	}
	defer func() { _ = f.Close() }()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()

	if err := enc.Encode(cfg); err != nil {
		return wanderrors.IO(err, path)
	}
	return nil
}
