package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/go-wandern/wandern/pkg/coordinator"
	"github.com/go-wandern/wandern/pkg/filter"
)

// upCmd applies every pending revision (or up to --steps of them),
// optionally narrowed by --author/--tags.
func upCmd() *cli.Command {
	return &cli.Command{
		Name:  "up",
		Usage: "apply pending revisions",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "steps", Usage: "limit how many revisions to apply"},
			&cli.StringFlag{Name: "author"},
			&cli.StringFlag{Name: "tags"},
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

			applied, err := coord.Upgrade(ctx, coordinator.UpgradeOptions{
				Predicate: filter.Predicate{Author: c.String("author"), Tags: splitCSV(c.String("tags"))},
				Steps:     int(c.Int("steps")),
			})
			for _, rev := range applied {
				fmt.Fprintln(c.Writer, "up:", rev.RevisionID, rev.Message)
			}
			return err
		},
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
