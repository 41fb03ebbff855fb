package cmd

import (
	"context"
	"strings"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v3"

	"github.com/go-wandern/wandern/pkg/filter"
)

// listCmd prints the combined applied/pending revision listing as a table,
// narrowed by --author/--tags.
func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list revisions, applied and pending",
		Flags: []cli.Flag{
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

			p := filter.Predicate{Author: c.String("author"), Tags: splitCSV(c.String("tags"))}
			listed, err := coord.CombinedList(ctx, p)
			if err != nil {
				return err
			}

			rows := [][]string{{"Revision", "Applied", "Author", "Tags", "Message"}}
			for _, entry := range listed {
				applied := "no"
				if entry.Applied {
					applied = "yes"
				}
				rows = append(rows, []string{
					entry.Revision.RevisionID,
					applied,
					entry.Revision.AuthorValue(),
					strings.Join(entry.Revision.TagSet(), ","),
					entry.Revision.Message,
				})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
		},
	}
}
