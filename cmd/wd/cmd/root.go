// Package cmd assembles the wd CLI: global flags, subcommand registration,
// and the mapping from the core's error taxonomy to process exit codes.
package cmd

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/go-wandern/wandern/pkg/config"
	"github.com/go-wandern/wandern/pkg/coordinator"
	"github.com/go-wandern/wandern/pkg/graph"
	"github.com/go-wandern/wandern/pkg/provider"
	"github.com/go-wandern/wandern/pkg/wanderrors"
)

// currentConfig is populated by the Before hook once a .wd.yaml is found.
// Subcommands that don't need a project (init) leave it nil.
var currentConfig *config.Config

// Run builds and executes the wd CLI application.
func Run(ctx context.Context, version string, args []string) error {
	app := &cli.Command{
		Name:    "wd",
		Usage:   "apply and author linear SQL schema migrations",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the project config file",
				Value:   ".wd.yaml",
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			path := c.String("config")
			if _, err := os.Stat(path); os.IsNotExist(err) {
				return ctx, nil
			}
			cfg, err := config.LoadFile(path)
			if err != nil {
				return ctx, err
			}
			currentConfig = cfg
			return ctx, nil
		},
		Commands: []*cli.Command{
			initCmd(),
			generateCmd(),
			promptCmd(),
			upCmd(),
			downCmd(),
			resetCmd(),
			browseCmd(),
			graphCmd(),
			listCmd(),
		},
	}

	err := app.Run(ctx, args)
	if err != nil {
		os.Exit(exitCodeFor(err))
	}
	return err
}

// exitCodeFor maps a wanderrors.Kind to the process exit code documented
// for operators; an error that isn't one of ours exits 1.
func exitCodeFor(err error) int {
	kinds := []wanderrors.Kind{
		wanderrors.KindConfig,
		wanderrors.KindConnect,
		wanderrors.KindInvalidMigrationFile,
		wanderrors.KindCycleDetected,
		wanderrors.KindDivergentBranch,
		wanderrors.KindPlan,
		wanderrors.KindSQL,
		wanderrors.KindIO,
	}
	for i, kind := range kinds {
		if wanderrors.Is(err, kind) {
			return i + 2
		}
	}
	return 1
}

// requireConfig fails fast with a ConfigError when no project config has
// been loaded, rather than letting a nil-pointer surface downstream.
func requireConfig() (*config.Config, error) {
	if currentConfig == nil {
		return nil, wanderrors.Config("no project config found; run `wd init` first")
	}
	return currentConfig, nil
}

// openCoordinator wires a fresh graph + provider into a Coordinator for a
// single CLI invocation, matching the tool's single-threaded, one-shot
// process model: nothing here outlives the command.
func openCoordinator(cfg *config.Config) (*coordinator.Coordinator, error) {
	g, err := graph.Build(cfg.MigrationDir)
	if err != nil {
		return nil, err
	}
	p, err := provider.New(cfg.DSN, cfg.MigrationTable)
	if err != nil {
		return nil, err
	}
	return coordinator.New(g, p, cfg.MigrationDir, logrus.StandardLogger()), nil
}
