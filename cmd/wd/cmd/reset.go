package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// resetCmd undoes every applied revision, returning the database to an
// empty migration history.
func resetCmd() *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "roll back all applied revisions",
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

			reverted, err := coord.Reset(ctx)
			for _, rev := range reverted {
				fmt.Fprintln(c.Writer, "down:", rev.RevisionID, rev.Message)
			}
			return err
		},
	}
}
