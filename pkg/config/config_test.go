package config_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-wandern/wandern/pkg/config"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := config.Load(strings.NewReader(`
dsn: postgres://localhost:5432/app
migration_dir: db/migrations
`))
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost:5432/app", cfg.DSN)
	assert.Equal(t, config.DefaultMigrationTable, cfg.MigrationTable)
	assert.NotEmpty(t, cfg.FileFormat)
}

func TestLoad_RespectsOverrides(t *testing.T) {
	cfg, err := config.Load(strings.NewReader(`
dsn: sqlite:///tmp/app.db
migration_dir: migrations
migration_table: applied_revisions
file_format: "{version}_{message}"
`))
	require.NoError(t, err)

	assert.Equal(t, "applied_revisions", cfg.MigrationTable)
	assert.Equal(t, "{version}_{message}", cfg.FileFormat)
}

func TestLoad_MissingDSN(t *testing.T) {
	_, err := config.Load(strings.NewReader(`migration_dir: db/migrations`))
	require.Error(t, err)
}

func TestLoad_MissingMigrationDir(t *testing.T) {
	_, err := config.Load(strings.NewReader(`dsn: sqlite://app.db`))
	require.Error(t, err)
}
