package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/go-wandern/wandern/pkg/coordinator"
)

// generateCmd saves a new, hand-authored revision to disk. Its
// down_revision_id is whatever the current chain leaf is at save time; the
// coordinator does not re-validate this against the chain, so a stale
// local checkout will surface as a divergence on the next command that
// builds the graph.
func generateCmd() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "author and save a new revision",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Required: true},
			&cli.StringFlag{Name: "author", Aliases: []string{"a"}},
			&cli.StringFlag{Name: "tags", Usage: "comma-separated tags"},
			&cli.StringFlag{Name: "up", Usage: "up SQL body"},
			&cli.StringFlag{Name: "down", Usage: "down SQL body"},
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

			var tags []string
			if raw := c.String("tags"); raw != "" {
				tags = strings.Split(raw, ",")
			}

			_, filename, err := coord.Save(ctx, coordinator.SaveOptions{
				Message: c.String("message"),
				Author:  c.String("author"),
				Tags:    tags,
				UpSQL:   c.String("up"),
				DownSQL: c.String("down"),
				Format:  cfg.FileFormat,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(c.Writer, "wrote", filename)
			return nil
		},
	}
}
