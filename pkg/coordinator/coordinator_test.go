package coordinator_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-wandern/wandern/pkg/coordinator"
	"github.com/go-wandern/wandern/pkg/filter"
	"github.com/go-wandern/wandern/pkg/graph"
	"github.com/go-wandern/wandern/pkg/provider"
	"github.com/go-wandern/wandern/pkg/revision"
)

// fakeProvider is an in-memory stand-in for provider.Provider, used so the
// coordinator's planning logic can be tested without a real database.
type fakeProvider struct {
	bookkeepingCreated bool
	rows               []provider.AppliedRevision
	failOn             string
}

func (f *fakeProvider) CreateBookkeeping(ctx context.Context) error {
	f.bookkeepingCreated = true
	return nil
}

func (f *fakeProvider) DropBookkeeping(ctx context.Context) error { return nil }

func (f *fakeProvider) GetHead(ctx context.Context) (*provider.AppliedRevision, bool, error) {
	if len(f.rows) == 0 {
		return nil, false, nil
	}
	latest := f.rows[0]
	for _, r := range f.rows {
		if r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return &latest, true, nil
}

func (f *fakeProvider) ApplyUp(ctx context.Context, rev *revision.Revision) (int64, error) {
	if rev.RevisionID == f.failOn {
		return 0, assertError{}
	}
	down, _ := rev.DownRevision()
	f.rows = append(f.rows, provider.AppliedRevision{
		RevisionID:     rev.RevisionID,
		DownRevisionID: down,
		Message:        rev.Message,
		Tags:           rev.TagSet(),
		Author:         rev.AuthorValue(),
		CreatedAt:      rev.CreatedAt,
	})
	return 1, nil
}

func (f *fakeProvider) ApplyDown(ctx context.Context, rev *revision.Revision) (int64, error) {
	for i, r := range f.rows {
		if r.RevisionID == rev.RevisionID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeProvider) List(ctx context.Context, filt provider.ListFilter) ([]provider.AppliedRevision, error) {
	var out []provider.AppliedRevision
	for _, r := range f.rows {
		if filt.Author != "" && filt.Author != r.Author {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeProvider) Close() error { return nil }

type assertError struct{}

func (assertError) Error() string { return "forced failure" }

func writeRevisionFile(t *testing.T, dir, name, id, revises string, createdAt time.Time) {
	t.Helper()
	writeRevisionFileWithAuthor(t, dir, name, id, revises, "", createdAt)
}

func writeRevisionFileWithAuthor(t *testing.T, dir, name, id, revises, author string, createdAt time.Time) {
	t.Helper()
	content := "/*\nTimestamp: " + createdAt.Format("2006-01-02T15:04:05") + "\nRevision ID: " + id +
		"\nRevises: " + revises + "\nMessage: msg " + id
	if author != "" {
		content += "\nAuthor: " + author
	}
	content += "\n*/\n\n-- UP\nSELECT 1;\n\n-- DOWN\nSELECT 1;\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestUpgrade_FirstRunAppliesEntireChain(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeRevisionFile(t, dir, "1.sql", "r1", "none", base)
	writeRevisionFile(t, dir, "2.sql", "r2", "r1", base.Add(time.Hour))
	writeRevisionFile(t, dir, "3.sql", "r3", "r2", base.Add(2*time.Hour))

	g, err := graph.Build(dir)
	require.NoError(t, err)

	p := &fakeProvider{}
	c := coordinator.New(g, p, dir, nil)

	applied, err := c.Upgrade(context.Background(), coordinator.UpgradeOptions{})
	require.NoError(t, err)
	require.Len(t, applied, 3)
	assert.Equal(t, "r3", applied[2].RevisionID)
	assert.True(t, p.bookkeepingCreated)
}

func TestUpgrade_StopsOnFirstFailure(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeRevisionFile(t, dir, "1.sql", "r1", "none", base)
	writeRevisionFile(t, dir, "2.sql", "r2", "r1", base.Add(time.Hour))

	g, err := graph.Build(dir)
	require.NoError(t, err)

	p := &fakeProvider{failOn: "r2"}
	c := coordinator.New(g, p, dir, nil)

	applied, err := c.Upgrade(context.Background(), coordinator.UpgradeOptions{})
	require.Error(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "r1", applied[0].RevisionID)
}

func TestUpgrade_FilterMatchingNothingSucceeds(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeRevisionFile(t, dir, "1.sql", "r1", "none", base)
	writeRevisionFile(t, dir, "2.sql", "r2", "r1", base.Add(time.Hour))
	writeRevisionFile(t, dir, "3.sql", "r3", "r2", base.Add(2*time.Hour))

	g, err := graph.Build(dir)
	require.NoError(t, err)

	p := &fakeProvider{}
	c := coordinator.New(g, p, dir, nil)

	// Filtering on an author nothing matches leaves an empty sequence,
	// which trivially satisfies continuity.
	_, err = c.Upgrade(context.Background(), coordinator.UpgradeOptions{
		Predicate: filter.Predicate{Author: "nobody"},
	})
	require.NoError(t, err)
}

func TestUpgrade_AuthorFilterRejectsNonGaplessSubset(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeRevisionFileWithAuthor(t, dir, "1.sql", "r1", "none", "alice", base)
	writeRevisionFileWithAuthor(t, dir, "2.sql", "r2", "r1", "bob", base.Add(time.Hour))
	writeRevisionFileWithAuthor(t, dir, "3.sql", "r3", "r2", "alice", base.Add(2*time.Hour))

	g, err := graph.Build(dir)
	require.NoError(t, err)

	p := &fakeProvider{}
	c := coordinator.New(g, p, dir, nil)

	// r1 (alice) -> r2 (bob) -> r3 (alice): filtering to author=alice keeps
	// r1 and r3 but drops r2, leaving r3's actual predecessor (r2) out of
	// the filtered sequence. r3 no longer follows r1 directly, so this must
	// be rejected rather than silently applied out of order.
	_, err = c.Upgrade(context.Background(), coordinator.UpgradeOptions{
		Predicate: filter.Predicate{Author: "alice"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "r3")
	assert.Empty(t, p.rows)
}

func TestDowngrade_WalksBackToRoot(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeRevisionFile(t, dir, "1.sql", "r1", "none", base)
	writeRevisionFile(t, dir, "2.sql", "r2", "r1", base.Add(time.Hour))

	g, err := graph.Build(dir)
	require.NoError(t, err)

	p := &fakeProvider{}
	c := coordinator.New(g, p, dir, nil)

	_, err = c.Upgrade(context.Background(), coordinator.UpgradeOptions{})
	require.NoError(t, err)

	reverted, err := c.Downgrade(context.Background(), coordinator.DowngradeOptions{})
	require.NoError(t, err)
	require.Len(t, reverted, 2)
	assert.Equal(t, "r2", reverted[0].RevisionID)
	assert.Equal(t, "r1", reverted[1].RevisionID)

	_, hasHead, err := p.GetHead(context.Background())
	require.NoError(t, err)
	assert.False(t, hasHead)
}

func TestDowngrade_NoOpWhenNothingApplied(t *testing.T) {
	dir := t.TempDir()
	writeRevisionFile(t, dir, "1.sql", "r1", "none", time.Now())

	g, err := graph.Build(dir)
	require.NoError(t, err)

	p := &fakeProvider{}
	c := coordinator.New(g, p, dir, nil)

	reverted, err := c.Downgrade(context.Background(), coordinator.DowngradeOptions{})
	require.NoError(t, err)
	assert.Empty(t, reverted)
}

func TestSave_RendersAndWritesFile(t *testing.T) {
	dir := t.TempDir()
	g, err := graph.Build(dir)
	require.NoError(t, err)

	p := &fakeProvider{}
	c := coordinator.New(g, p, dir, nil)

	rev, filename, err := c.Save(context.Background(), coordinator.SaveOptions{
		Message: "create users table",
		UpSQL:   "CREATE TABLE users (id serial primary key);",
		DownSQL: "DROP TABLE users;",
		Format:  revision.DefaultFileFormat,
	})
	require.NoError(t, err)
	assert.True(t, rev.IsRoot())

	_, err = os.Stat(filepath.Join(dir, filename))
	require.NoError(t, err)
}

func TestCombinedList_MarksAppliedAndUnapplied(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeRevisionFile(t, dir, "1.sql", "r1", "none", base)
	writeRevisionFile(t, dir, "2.sql", "r2", "r1", base.Add(time.Hour))

	g, err := graph.Build(dir)
	require.NoError(t, err)

	p := &fakeProvider{}
	c := coordinator.New(g, p, dir, nil)

	_, err = c.Upgrade(context.Background(), coordinator.UpgradeOptions{Steps: 1})
	require.NoError(t, err)

	list, err := c.CombinedList(context.Background(), filter.Predicate{})
	require.NoError(t, err)
	require.Len(t, list, 2)

	byID := map[string]bool{}
	for _, entry := range list {
		byID[entry.Revision.RevisionID] = entry.Applied
	}
	assert.True(t, byID["r1"])
	assert.False(t, byID["r2"])
}
