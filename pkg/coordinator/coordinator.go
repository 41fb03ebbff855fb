// Package coordinator implements the upgrade/downgrade planner: it wires
// the graph (C4), a provider (C3), and the filter predicates (C6) together
// into the operations a CLI invokes once per run.
package coordinator

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/go-wandern/wandern/pkg/filter"
	"github.com/go-wandern/wandern/pkg/generator"
	"github.com/go-wandern/wandern/pkg/graph"
	"github.com/go-wandern/wandern/pkg/provider"
	"github.com/go-wandern/wandern/pkg/revision"
	"github.com/go-wandern/wandern/pkg/wanderrors"
	"github.com/go-wandern/wandern/pkg/writer"
)

// Coordinator is the migration coordinator (C5): the only component
// holding references to both the graph and a provider.
type Coordinator struct {
	Graph    *graph.Graph
	Provider provider.Provider
	Writer   writer.Writer
	Dir      string
	Log      *logrus.Logger
}

// New builds a Coordinator. log defaults to logrus.StandardLogger() when nil.
func New(g *graph.Graph, p provider.Provider, dir string, log *logrus.Logger) *Coordinator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Coordinator{Graph: g, Provider: p, Writer: writer.FileWriter{}, Dir: dir, Log: log}
}

// UpgradeOptions narrows an Upgrade call.
type UpgradeOptions struct {
	Predicate filter.Predicate
	Steps     int // 0 means unlimited
}

// Upgrade runs the upgrade plan: ensure bookkeeping exists, compute the
// candidate sequence from head, apply any filter with a continuity check,
// truncate to Steps, then apply each revision in order. Stops at the first
// error; already-applied revisions remain applied.
func (c *Coordinator) Upgrade(ctx context.Context, opts UpgradeOptions) ([]*revision.Revision, error) {
	if err := c.Provider.CreateBookkeeping(ctx); err != nil {
		return nil, err
	}

	head, hasHead, err := c.Provider.GetHead(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []*revision.Revision
	if !hasHead {
		candidates, err = c.Graph.Chain()
	} else {
		candidates, err = c.Graph.ChainFrom(head.RevisionID)
	}
	if err != nil {
		return nil, err
	}

	filtered := candidates
	if !opts.Predicate.IsZero() {
		filtered = applyPredicate(candidates, opts.Predicate)
		expectedDown := ""
		if hasHead {
			expectedDown = head.RevisionID
		}
		if err := checkContinuity(filtered, expectedDown); err != nil {
			return nil, err
		}
	}

	if opts.Steps > 0 && len(filtered) > opts.Steps {
		filtered = filtered[:opts.Steps]
	}

	applied := make([]*revision.Revision, 0, len(filtered))
	for _, rev := range filtered {
		if _, err := c.Provider.ApplyUp(ctx, rev); err != nil {
			c.Log.WithError(err).WithField("revision_id", rev.RevisionID).Error("apply up failed")
			return applied, err
		}
		c.Log.WithField("revision_id", rev.RevisionID).Info("applied up")
		applied = append(applied, rev)
	}
	return applied, nil
}

// applyPredicate filters revisions in chain order by the given predicate.
func applyPredicate(revisions []*revision.Revision, p filter.Predicate) []*revision.Revision {
	out := make([]*revision.Revision, 0, len(revisions))
	for _, rev := range revisions {
		if p.Match(rev.AuthorValue(), rev.TagSet(), rev.CreatedAt) {
			out = append(out, rev)
		}
	}
	return out
}

// checkContinuity verifies filtered is a gapless prefix of the chain
// starting immediately after expectedDown ("" meaning the root).
func checkContinuity(filtered []*revision.Revision, expectedDown string) error {
	for i, rev := range filtered {
		down, ok := rev.DownRevision()
		var got string
		if ok {
			got = down
		}
		want := expectedDown
		if i > 0 {
			want = filtered[i-1].RevisionID
		}
		if got != want {
			return wanderrors.Plan(rev.RevisionID,
				"filtered upgrade sequence has a gap at %s: expected down_revision_id %q, got %q",
				rev.RevisionID, want, got)
		}
	}
	return nil
}

// DowngradeOptions narrows a Downgrade call.
type DowngradeOptions struct {
	Steps int // 0 means unlimited (walk to root)
}

// Downgrade runs the downgrade plan: read head, walk backward through the
// graph applying apply_down at each step, stopping at Steps (if given) or
// when the root has been undone.
func (c *Coordinator) Downgrade(ctx context.Context, opts DowngradeOptions) ([]*revision.Revision, error) {
	head, hasHead, err := c.Provider.GetHead(ctx)
	if err != nil {
		return nil, err
	}
	if !hasHead {
		return nil, nil
	}

	current, ok := c.Graph.Get(head.RevisionID)
	if !ok {
		return nil, wanderrors.Plan(head.RevisionID,
			"applied head %s is not present on disk; repository is out of sync", head.RevisionID)
	}

	var reverted []*revision.Revision
	for current != nil {
		if _, err := c.Provider.ApplyDown(ctx, current); err != nil {
			c.Log.WithError(err).WithField("revision_id", current.RevisionID).Error("apply down failed")
			return reverted, err
		}
		c.Log.WithField("revision_id", current.RevisionID).Info("applied down")
		reverted = append(reverted, current)

		if opts.Steps > 0 && len(reverted) >= opts.Steps {
			break
		}

		downID, hasDown := current.DownRevision()
		if !hasDown {
			break
		}
		next, ok := c.Graph.Get(downID)
		if !ok {
			return reverted, wanderrors.Plan(downID,
				"revision %s references missing predecessor %s", current.RevisionID, downID)
		}
		current = next
	}
	return reverted, nil
}

// Reset downgrades every applied revision back to an empty history.
func (c *Coordinator) Reset(ctx context.Context) ([]*revision.Revision, error) {
	return c.Downgrade(ctx, DowngradeOptions{})
}

// SaveOptions describes a new revision to persist to disk.
type SaveOptions struct {
	Message string
	Author  string
	Tags    []string
	UpSQL   string
	DownSQL string
	Format  string
}

// Save renders a new revision's filename and body and writes it to Dir. The
// new revision's down_revision_id is the leaf of the in-memory graph
// (Graph.Head), or absent when the graph is empty or fails validation. The
// directory is not re-read, so a revision added on disk since the graph was
// built surfaces as a divergence the next time a graph is validated.
func (c *Coordinator) Save(ctx context.Context, opts SaveOptions) (*revision.Revision, string, error) {
	id := revision.NewRevisionID()
	downID := ""
	if head, err := c.Graph.Head(); err == nil && head != nil {
		downID = head.RevisionID
	}

	filename, err := revision.RenderFilename(opts.Format, id, opts.Message, opts.Author)
	if err != nil {
		return nil, "", err
	}

	rev := revision.New(id, downID, opts.Message, opts.Author, opts.Tags, opts.UpSQL, opts.DownSQL, time.Now().UTC())

	body, err := writer.Render(rev)
	if err != nil {
		return nil, "", err
	}
	if err := c.Writer.Write(c.Dir, filename, body); err != nil {
		return nil, "", err
	}
	return rev, filename, nil
}

// GenerateAndSave delegates SQL authoring to gen, then saves the result the
// same way Save does. The core ships no Generator implementation; callers
// (the CLI's prompt subcommand) supply their own.
func (c *Coordinator) GenerateAndSave(ctx context.Context, gen generator.Generator, prompt, author string) (*revision.Revision, string, error) {
	generated, err := gen.Generate(ctx, prompt)
	if err != nil {
		return nil, "", err
	}
	return c.Save(ctx, SaveOptions{
		Message: generated.Message,
		Author:  author,
		UpSQL:   generated.UpSQL,
		DownSQL: generated.DownSQL,
		Format:  revision.DefaultFileFormat,
	})
}

// ListedRevision is one row of the combined browse listing.
type ListedRevision struct {
	Revision  *revision.Revision
	Applied   bool
	CreatedAt time.Time
}

// CombinedList merges applied history from the provider with the on-disk
// graph, tagging each entry as applied/not-applied, sorted by created_at
// descending. Both sides are narrowed by the same Predicate.
func (c *Coordinator) CombinedList(ctx context.Context, p filter.Predicate) ([]ListedRevision, error) {
	applied, err := c.Provider.List(ctx, p.ToListFilter())
	if err != nil {
		return nil, err
	}
	appliedIDs := make(map[string]struct{}, len(applied))

	out := make([]ListedRevision, 0, len(applied))
	for i := range applied {
		appliedIDs[applied[i].RevisionID] = struct{}{}
		rev, ok := c.Graph.Get(applied[i].RevisionID)
		if !ok {
			continue
		}
		out = append(out, ListedRevision{Revision: rev, Applied: true, CreatedAt: applied[i].CreatedAt})
	}

	chain, err := c.Graph.Chain()
	if err != nil {
		return nil, err
	}
	for _, rev := range chain {
		if _, ok := appliedIDs[rev.RevisionID]; ok {
			continue
		}
		if !p.Match(rev.AuthorValue(), rev.TagSet(), rev.CreatedAt) {
			continue
		}
		out = append(out, ListedRevision{Revision: rev, Applied: false, CreatedAt: rev.CreatedAt})
	}

	sortListedDescending(out)
	return out, nil
}

func sortListedDescending(list []ListedRevision) {
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && list[j].CreatedAt.After(list[j-1].CreatedAt); j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}
}
