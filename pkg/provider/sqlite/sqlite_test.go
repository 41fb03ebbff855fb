package sqlite

import (
	"context"
	"testing"

	"github.com/oapi-codegen/nullable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-wandern/wandern/pkg/provider"
	"github.com/go-wandern/wandern/pkg/revision"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(":memory:", "wd_migrations")
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	require.NoError(t, p.CreateBookkeeping(context.Background()))
	return p
}

func TestGetHead_EmptyTable(t *testing.T) {
	p := newTestProvider(t)

	_, found, err := p.GetHead(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestApplyUp_ThenGetHead(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	rev := &revision.Revision{RevisionID: "r1", Message: "init"}
	n, err := p.ApplyUp(ctx, rev)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	head, found, err := p.GetHead(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "r1", head.RevisionID)
	assert.Equal(t, "", head.DownRevisionID)
}

func TestApplyUpThenApplyDown_RoundTrip(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	rev := &revision.Revision{RevisionID: "r1", Message: "init"}
	_, err := p.ApplyUp(ctx, rev)
	require.NoError(t, err)

	n, err := p.ApplyDown(ctx, rev)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, found, err := p.GetHead(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestList_FiltersByTag(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	r1 := &revision.Revision{RevisionID: "r1", Message: "feature work"}
	r1.Tags = nullable.NewNullableWithValue([]string{"feature", "backend"})
	r2 := &revision.Revision{RevisionID: "r2", Message: "bugfix"}
	r2.DownRevisionID = nullable.NewNullableWithValue("r1")
	r2.Tags = nullable.NewNullableWithValue([]string{"bugfix"})

	_, err := p.ApplyUp(ctx, r1)
	require.NoError(t, err)
	_, err = p.ApplyUp(ctx, r2)
	require.NoError(t, err)

	found, err := p.List(ctx, provider.ListFilter{Tags: []string{"feature"}})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "r1", found[0].RevisionID)
}
