package cmd

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/go-wandern/wandern/pkg/config"
)

// initCmd writes a new .wd.yaml project config and creates the migration
// directory. Re-running over an existing config is rejected with an error
// rather than silently overwriting it.
func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "initialize a new project in the current directory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dsn", Required: true, Usage: "database connection string"},
			&cli.StringFlag{Name: "dir", Value: "migrations", Usage: "migration directory"},
			&cli.StringFlag{Name: "table", Value: config.DefaultMigrationTable, Usage: "bookkeeping table name"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			path := c.String("config")
			if _, err := os.Stat(path); err == nil {
				return cli.Exit("project config already exists at "+path, 1)
			}

			cfg := &config.Config{
				DSN:            c.String("dsn"),
				MigrationDir:   c.String("dir"),
				MigrationTable: c.String("table"),
			}
			if err := os.MkdirAll(cfg.MigrationDir, 0o755); err != nil {
				return err
			}
			return config.Save(cfg, path)
		},
	}
}
