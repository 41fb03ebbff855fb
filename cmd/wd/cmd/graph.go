package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/go-wandern/wandern/pkg/graph"
)

// graphCmd prints the on-disk migration graph as Graphviz DOT source. It
// never touches the database, so it works without a reachable provider.
func graphCmd() *cli.Command {
	return &cli.Command{
		Name:  "graph",
		Usage: "print the migration graph as Graphviz DOT",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			g, err := graph.Build(cfg.MigrationDir)
			if err != nil {
				return err
			}
			if err := g.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(c.Writer, g.DOT())
			return nil
		},
	}
}
