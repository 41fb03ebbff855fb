// Package browse implements the interactive, read-only terminal browser
// over the combined applied/unapplied revision listing. It never calls
// apply_up or apply_down; it only renders and re-queries the coordinator's
// combined listing against an operator-adjustable filter.
package browse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/go-wandern/wandern/pkg/coordinator"
	"github.com/go-wandern/wandern/pkg/filter"
)

const (
	optionFilterAuthor = "Filter by author"
	optionFilterTags   = "Filter by tags"
	optionFilterSince  = "Filter by date"
	optionClear        = "Clear filters"
	optionExit         = "Exit"
)

// Run drives the select/render loop until the operator chooses Exit.
func Run(ctx context.Context, c *coordinator.Coordinator) error {
	var predicate filter.Predicate

	for {
		listed, err := c.CombinedList(ctx, predicate)
		if err != nil {
			return err
		}
		render(listed, predicate)

		choice, err := pterm.DefaultInteractiveSelect.
			WithDefaultText("Choose an action").
			WithOptions([]string{optionFilterAuthor, optionFilterTags, optionFilterSince, optionClear, optionExit}).
			Show()
		if err != nil {
			return err
		}

		switch choice {
		case optionFilterAuthor:
			author, _ := pterm.DefaultInteractiveTextInput.
				WithDefaultText("Author").
				Show()
			predicate.Author = strings.TrimSpace(author)
		case optionFilterTags:
			tags, _ := pterm.DefaultInteractiveTextInput.
				WithDefaultText("Comma-separated tags").
				Show()
			predicate.Tags = splitTags(tags)
		case optionFilterSince:
			since, _ := pterm.DefaultInteractiveTextInput.
				WithDefaultText("Since (YYYY-MM-DD)").
				Show()
			if t, err := time.Parse("2006-01-02", strings.TrimSpace(since)); err == nil {
				predicate.Since = t
			}
		case optionClear:
			predicate = filter.Predicate{}
		case optionExit:
			return nil
		}
	}
}

func splitTags(s string) []string {
	var out []string
	for _, tag := range strings.Split(s, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func render(listed []coordinator.ListedRevision, predicate filter.Predicate) {
	rows := pterm.TableData{{"Revision", "Message", "Author", "Status", "Created"}}
	for _, entry := range listed {
		status := "not applied"
		if entry.Applied {
			status = "applied"
		}
		rows = append(rows, []string{
			entry.Revision.RevisionID,
			entry.Revision.Message,
			entry.Revision.AuthorValue(),
			status,
			entry.CreatedAt.Format(time.RFC3339),
		})
	}

	if !predicate.IsZero() {
		pterm.Info.Println(describePredicate(predicate))
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func describePredicate(p filter.Predicate) string {
	var parts []string
	if p.Author != "" {
		parts = append(parts, fmt.Sprintf("author=%s", p.Author))
	}
	if len(p.Tags) > 0 {
		parts = append(parts, fmt.Sprintf("tags=%s", strings.Join(p.Tags, ",")))
	}
	if !p.Since.IsZero() {
		parts = append(parts, fmt.Sprintf("since=%s", p.Since.Format("2006-01-02")))
	}
	return "active filter: " + strings.Join(parts, " ")
}
