// Command wd manages linear SQL schema migrations: authoring revision
// files, applying them to a database in order, and walking them back down.
//
// Usage:
//
//	# Initialize a new project in the current directory
//	wd init --dsn postgres://localhost:5432/app --dir db/migrations
//
//	# Save a new hand-written revision
//	wd generate --message "add email column" --author jane
//
//	# Apply every pending revision
//	wd up
//
//	# Roll back one step
//	wd down --steps 1
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/go-wandern/wandern/cmd/wd/cmd"
	_ "github.com/go-wandern/wandern/pkg/provider/postgres"
	_ "github.com/go-wandern/wandern/pkg/provider/sqlite"
)

var (
	version string = "local"
	commit  string = "local"
	date    string = time.Now().UTC().Format(time.RFC3339)
)

func main() {
	cli.VersionPrinter = func(c *cli.Command) {
		fmt.Fprintln(c.Writer, "Version:", version)
		fmt.Fprintln(c.Writer, "Commit:", commit)
		fmt.Fprintln(c.Writer, "Date:", date)
	}

	if err := cmd.Run(context.Background(), version, os.Args); err != nil {
		log.Fatal(err)
	}
}
