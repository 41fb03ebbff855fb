// Package postgres implements the provider.Provider capability set for
// PostgreSQL: a bookkeeping table with a native text[] tags column, retried
// against transient lock-timeout errors, and an advisory lock taken around
// every apply so concurrent invocations serialise instead of racing.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/cloudflare/backoff"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/go-wandern/wandern/pkg/provider"
	"github.com/go-wandern/wandern/pkg/revision"
	"github.com/go-wandern/wandern/pkg/wanderrors"
)

func init() {
	provider.Register("postgres", func(dsn, migrationTable string) (provider.Provider, error) {
		return New(dsn, migrationTable)
	})
}

const (
	lockNotAvailableErrorCode pq.ErrorCode = "55P03"
	maxBackoffDuration                     = 1 * time.Minute
	backoffInterval                        = 1 * time.Second
)

// Provider is the PostgreSQL implementation of provider.Provider.
type Provider struct {
	db             *sql.DB
	migrationTable string
	// advisoryLockKey is derived once from migrationTable so every process
	// pointed at the same bookkeeping table contends on the same lock.
	advisoryLockKey int64
	log             *logrus.Logger
}

// New opens a connection pool against dsn. Connection failures surface as
// wanderrors.KindConnect, distinct from errors raised once connected.
func New(dsn, migrationTable string) (*Provider, error) {
	log := logrus.StandardLogger()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.WithError(err).WithField("dsn", dsn).Error("failed to open postgres connection")
		return nil, wanderrors.Connect(err, dsn)
	}
	if err := db.Ping(); err != nil {
		log.WithError(err).WithField("dsn", dsn).Error("failed to ping postgres")
		return nil, wanderrors.Connect(err, dsn)
	}
	return &Provider{
		db:              db,
		migrationTable:  migrationTable,
		advisoryLockKey: lockKeyFor(migrationTable),
		log:             log,
	}, nil
}

func lockKeyFor(migrationTable string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(migrationTable))
	return int64(h.Sum64())
}

func (p *Provider) Close() error { return p.db.Close() }

// CreateBookkeeping creates the bookkeeping table if it doesn't already
// exist, with a foreign key from down_revision_id back into the table and a
// partial unique index ensuring at most one root row — a belt-and-
// suspenders check on top of the graph's own linear-chain validation.
func (p *Provider) CreateBookkeeping(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			revision_id TEXT PRIMARY KEY,
			down_revision_id TEXT REFERENCES %[1]s(revision_id),
			message TEXT NOT NULL,
			tags TEXT[],
			author TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, pq.QuoteIdentifier(p.migrationTable))
	if _, err := p.execRetrying(ctx, query); err != nil {
		return wanderrors.SQL(err, "")
	}

	index := fmt.Sprintf(
		`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s ((down_revision_id IS NULL)) WHERE down_revision_id IS NULL`,
		p.migrationTable+"_single_root", pq.QuoteIdentifier(p.migrationTable))
	if _, err := p.execRetrying(ctx, index); err != nil {
		return wanderrors.SQL(err, "")
	}
	return nil
}

// DropBookkeeping drops the bookkeeping table if present.
func (p *Provider) DropBookkeeping(ctx context.Context) error {
	query := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, pq.QuoteIdentifier(p.migrationTable))
	_, err := p.execRetrying(ctx, query)
	if err != nil {
		return wanderrors.SQL(err, "")
	}
	return nil
}

// GetHead returns the most recently applied revision, if any.
func (p *Provider) GetHead(ctx context.Context) (*provider.AppliedRevision, bool, error) {
	query := fmt.Sprintf(`
		SELECT revision_id, COALESCE(down_revision_id, ''), message, COALESCE(tags, '{}'), COALESCE(author, ''), created_at
		FROM %s ORDER BY created_at DESC LIMIT 1`, pq.QuoteIdentifier(p.migrationTable))

	row := p.db.QueryRowContext(ctx, query)
	rev, err := scanApplied(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wanderrors.SQL(err, "")
	}
	return rev, true, nil
}

// ApplyUp executes rev's up SQL (if present) and inserts its bookkeeping
// row as a single transaction, retrying the whole attempt on a transient
// lock-timeout.
func (p *Provider) ApplyUp(ctx context.Context, rev *revision.Revision) (int64, error) {
	var inserted int64
	err := p.withRetryableTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := p.acquireAdvisoryLock(ctx, tx); err != nil {
			return err
		}
		if sqlBody := rev.UpSQLValue(); sqlBody != "" {
			if _, err := tx.ExecContext(ctx, sqlBody); err != nil {
				return err
			}
		}
		downRevisionID, _ := rev.DownRevision()
		query := fmt.Sprintf(`
			INSERT INTO %s (revision_id, down_revision_id, message, tags, author, created_at)
			VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''), $6)`,
			pq.QuoteIdentifier(p.migrationTable))
		res, err := tx.ExecContext(ctx, query,
			rev.RevisionID, downRevisionID, rev.Message, pq.Array(rev.TagSet()), rev.AuthorValue(), rev.CreatedAt)
		if err != nil {
			return err
		}
		inserted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, wanderrors.SQL(err, rev.RevisionID)
	}
	return inserted, nil
}

// ApplyDown executes rev's down SQL (if present) and deletes its
// bookkeeping row as a single transaction.
func (p *Provider) ApplyDown(ctx context.Context, rev *revision.Revision) (int64, error) {
	var deleted int64
	err := p.withRetryableTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := p.acquireAdvisoryLock(ctx, tx); err != nil {
			return err
		}
		if sqlBody := rev.DownSQLValue(); sqlBody != "" {
			if _, err := tx.ExecContext(ctx, sqlBody); err != nil {
				return err
			}
		}
		query := fmt.Sprintf(`DELETE FROM %s WHERE revision_id = $1`, pq.QuoteIdentifier(p.migrationTable))
		res, err := tx.ExecContext(ctx, query, rev.RevisionID)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, wanderrors.SQL(err, rev.RevisionID)
	}
	return deleted, nil
}

// List returns applied revisions ordered by created_at descending, narrowed
// by the given filter.
func (p *Provider) List(ctx context.Context, filter provider.ListFilter) ([]provider.AppliedRevision, error) {
	query := fmt.Sprintf(`
		SELECT revision_id, COALESCE(down_revision_id, ''), message, COALESCE(tags, '{}'), COALESCE(author, ''), created_at
		FROM %s WHERE ($1 = '' OR author = $1) AND ($2::text[] IS NULL OR tags && $2) AND created_at >= $3
		ORDER BY created_at DESC`, pq.QuoteIdentifier(p.migrationTable))

	var tagsArg interface{}
	if len(filter.Tags) > 0 {
		tagsArg = pq.Array(filter.Tags)
	}
	rows, err := p.db.QueryContext(ctx, query, filter.Author, tagsArg, filter.Since)
	if err != nil {
		return nil, wanderrors.SQL(err, "")
	}
	defer rows.Close()

	var out []provider.AppliedRevision
	for rows.Next() {
		rev, err := scanApplied(rows)
		if err != nil {
			return nil, wanderrors.SQL(err, "")
		}
		out = append(out, *rev)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanApplied(s scanner) (*provider.AppliedRevision, error) {
	var rev provider.AppliedRevision
	var tags pq.StringArray
	if err := s.Scan(&rev.RevisionID, &rev.DownRevisionID, &rev.Message, &tags, &rev.Author, &rev.CreatedAt); err != nil {
		return nil, err
	}
	rev.Tags = []string(tags)
	return &rev, nil
}

func (p *Provider) acquireAdvisoryLock(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, p.advisoryLockKey)
	return err
}

func (p *Provider) execRetrying(ctx context.Context, query string, args ...any) (sql.Result, error) {
	b := backoffPolicy()
	for {
		res, err := p.db.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}
		if !isLockTimeout(err) {
			return nil, err
		}
		wait := b.Duration()
		p.log.WithError(err).WithField("wait", wait).Warn("retrying after advisory lock timeout")
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (p *Provider) withRetryableTransaction(ctx context.Context, f func(context.Context, *sql.Tx) error) error {
	b := backoffPolicy()
	for {
		tx, err := p.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		err = f(ctx, tx)
		if err == nil {
			return tx.Commit()
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			return rbErr
		}
		if !isLockTimeout(err) {
			return err
		}
		wait := b.Duration()
		p.log.WithError(err).WithField("wait", wait).Warn("retrying transaction after advisory lock timeout")
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}

func backoffPolicy() *backoff.Backoff {
	return backoff.New(maxBackoffDuration, backoffInterval)
}

func isLockTimeout(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == lockNotAvailableErrorCode
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
