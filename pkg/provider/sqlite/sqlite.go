// Package sqlite implements the provider.Provider capability set for
// SQLite. SQLite has no array type, so tags are stored as a single
// comma-joined column and filtered with one LIKE clause per requested tag.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/go-wandern/wandern/pkg/provider"
	"github.com/go-wandern/wandern/pkg/revision"
	"github.com/go-wandern/wandern/pkg/wanderrors"
)

func init() {
	provider.Register("sqlite", func(dsn, migrationTable string) (provider.Provider, error) {
		return New(dsn, migrationTable)
	})
}

// Provider is the SQLite implementation of provider.Provider.
type Provider struct {
	db             *sql.DB
	migrationTable string
	log            *logrus.Logger
}

// New opens the SQLite database file at dsn (a plain filesystem path, an
// optional "sqlite://" prefix is stripped).
func New(dsn, migrationTable string) (*Provider, error) {
	log := logrus.StandardLogger()

	dsn = strings.TrimPrefix(dsn, "sqlite://")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.WithError(err).WithField("dsn", dsn).Error("failed to open sqlite connection")
		return nil, wanderrors.Connect(err, dsn)
	}
	if err := db.Ping(); err != nil {
		log.WithError(err).WithField("dsn", dsn).Error("failed to ping sqlite")
		return nil, wanderrors.Connect(err, dsn)
	}
	return &Provider{db: db, migrationTable: migrationTable, log: log}, nil
}

func (p *Provider) Close() error { return p.db.Close() }

func (p *Provider) CreateBookkeeping(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]q (
			revision_id TEXT PRIMARY KEY NOT NULL,
			down_revision_id TEXT,
			message TEXT NOT NULL,
			tags TEXT,
			author TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, p.migrationTable)
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return wanderrors.SQL(err, "")
	}
	return nil
}

func (p *Provider) DropBookkeeping(ctx context.Context) error {
	query := fmt.Sprintf(`DROP TABLE IF EXISTS %q`, p.migrationTable)
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return wanderrors.SQL(err, "")
	}
	return nil
}

func (p *Provider) GetHead(ctx context.Context) (*provider.AppliedRevision, bool, error) {
	query := fmt.Sprintf(`
		SELECT revision_id, COALESCE(down_revision_id, ''), message, COALESCE(tags, ''), COALESCE(author, ''), created_at
		FROM %q ORDER BY created_at DESC LIMIT 1`, p.migrationTable)

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

func (p *Provider) ApplyUp(ctx context.Context, rev *revision.Revision) (int64, error) {
	var inserted int64
	err := p.withTransaction(ctx, func(tx *sql.Tx) error {
		if sqlBody := rev.UpSQLValue(); sqlBody != "" {
			if _, err := tx.ExecContext(ctx, sqlBody); err != nil {
				return err
			}
		}
		downRevisionID, _ := rev.DownRevision()
		query := fmt.Sprintf(`
			INSERT INTO %q (revision_id, down_revision_id, message, tags, author, created_at)
			VALUES (?, NULLIF(?, ''), ?, ?, NULLIF(?, ''), ?)`, p.migrationTable)
		res, err := tx.ExecContext(ctx, query,
			rev.RevisionID, downRevisionID, rev.Message, strings.Join(rev.TagSet(), ","), rev.AuthorValue(), rev.CreatedAt)
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

func (p *Provider) ApplyDown(ctx context.Context, rev *revision.Revision) (int64, error) {
	var deleted int64
	err := p.withTransaction(ctx, func(tx *sql.Tx) error {
		if sqlBody := rev.DownSQLValue(); sqlBody != "" {
			if _, err := tx.ExecContext(ctx, sqlBody); err != nil {
				return err
			}
		}
		query := fmt.Sprintf(`DELETE FROM %q WHERE revision_id = ?`, p.migrationTable)
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

// List returns applied revisions ordered by created_at descending. Tag
// filters are applied as one LIKE clause per requested tag against the
// comma-joined column, OR-ed together so a row matches when it carries any
// requested tag, since SQLite has no native array/overlap operator.
func (p *Provider) List(ctx context.Context, filter provider.ListFilter) ([]provider.AppliedRevision, error) {
	var b strings.Builder
	fmt.Fprintf(&b, `SELECT revision_id, COALESCE(down_revision_id, ''), message, COALESCE(tags, ''), COALESCE(author, ''), created_at FROM %q WHERE 1=1`, p.migrationTable)

	var args []any
	if filter.Author != "" {
		b.WriteString(" AND author = ?")
		args = append(args, filter.Author)
	}
	if len(filter.Tags) > 0 {
		clauses := make([]string, 0, len(filter.Tags))
		for _, tag := range filter.Tags {
			clauses = append(clauses, "(',' || tags || ',') LIKE ?")
			args = append(args, "%,"+tag+",%")
		}
		b.WriteString(" AND (" + strings.Join(clauses, " OR ") + ")")
	}
	if !filter.Since.IsZero() {
		b.WriteString(" AND created_at >= ?")
		args = append(args, filter.Since)
	}
	b.WriteString(" ORDER BY created_at DESC")

	rows, err := p.db.QueryContext(ctx, b.String(), args...)
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
	var tags string
	var createdAt time.Time
	if err := s.Scan(&rev.RevisionID, &rev.DownRevisionID, &rev.Message, &tags, &rev.Author, &createdAt); err != nil {
		return nil, err
	}
	rev.CreatedAt = createdAt
	if tags != "" {
		rev.Tags = strings.Split(tags, ",")
	}
	return &rev, nil
}

func (p *Provider) withTransaction(ctx context.Context, f func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return rbErr
		}
		return err
	}
	return tx.Commit()
}
