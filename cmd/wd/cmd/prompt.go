package cmd

import (
	"context"
	"fmt"
	"os/user"
	"strings"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v3"

	"github.com/go-wandern/wandern/pkg/wanderrors"
)

// promptCmd asks for a natural-language description and echoes it. The
// core ships no concrete generator.Generator and none is wired into this
// binary, so the command then fails with a ConfigError that points the
// operator at `wd generate`; no revision is written.
func promptCmd() *cli.Command {
	return &cli.Command{
		Name:  "prompt",
		Usage: "generate a new revision from a natural-language description",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "author", Aliases: []string{"a"}},
			&cli.StringFlag{Name: "tags"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if _, err := requireConfig(); err != nil {
				return err
			}

			author := c.String("author")
			if author == "" {
				if u, err := user.Current(); err == nil {
					author = u.Username
				}
			}
			_ = strings.Split(c.String("tags"), ",")

			description, _ := pterm.DefaultInteractiveTextInput.
				WithDefaultText("Describe the migration").
				Show()
			fmt.Fprintln(c.Writer, "description:", description)

			return wanderrors.Config(
				"no migration generator is configured; build wd with a generator.Generator implementation wired into cmd.promptCmd, or use `wd generate` to author the revision by hand")
		},
	}
}
