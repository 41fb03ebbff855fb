package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/go-wandern/wandern/pkg/coordinator"
)

// downCmd rolls back the applied head, one revision at a time, up to
// --steps (default 1; --steps 0 walks to the root).
func downCmd() *cli.Command {
	return &cli.Command{
		Name:  "down",
		Usage: "roll back applied revisions",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "steps", Value: 1, Usage: "how many revisions to roll back; 0 walks to the root"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			coord, err := openCoordinator(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = coord.Provider.Close() }()

			reverted, err := coord.Downgrade(ctx, coordinator.DowngradeOptions{Steps: int(c.Int("steps"))})
			for _, rev := range reverted {
				fmt.Fprintln(c.Writer, "down:", rev.RevisionID, rev.Message)
			}
			return err
		},
	}
}
