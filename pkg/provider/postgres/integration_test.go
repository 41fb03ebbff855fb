package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/go-wandern/wandern/pkg/provider/postgres"
	"github.com/go-wandern/wandern/pkg/revision"
)

// TestRoundTrip_ApplyUpThenDown spins up a real PostgreSQL container and
// exercises the full create-bookkeeping / apply-up / apply-down cycle
// against it, rather than a mocked driver.
func TestRoundTrip_ApplyUpThenDown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in -short mode")
	}

	ctx := context.Background()
	waitForLogs := wait.ForLog("database system is ready to accept connections").
		WithOccurrence(2).
		WithStartupTimeout(30 * time.Second)

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("wandern_test"),
		tcpostgres.WithUsername("wandern"),
		tcpostgres.WithPassword("wandern"),
		testcontainers.WithWaitStrategy(waitForLogs),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(ctx) })

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	p, err := postgres.New(connStr, "wd_migrations")
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	require.NoError(t, p.CreateBookkeeping(ctx))

	root := &revision.Revision{RevisionID: "r1", Message: "create users table"}
	_, err = p.ApplyUp(ctx, root)
	require.NoError(t, err)

	head, found, err := p.GetHead(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "r1", head.RevisionID)

	_, err = p.ApplyDown(ctx, root)
	require.NoError(t, err)

	_, found, err = p.GetHead(ctx)
	require.NoError(t, err)
	require.False(t, found)
}
