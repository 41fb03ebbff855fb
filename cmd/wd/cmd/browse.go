package cmd

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/go-wandern/wandern/internal/browse"
)

// browseCmd opens the interactive, read-only revision browser.
func browseCmd() *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "interactively browse applied and pending revisions",
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

			return browse.Run(ctx, coord)
		},
	}
}
