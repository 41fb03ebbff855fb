// Package provider defines the database provider abstraction: a narrow
// capability set for bookkeeping table lifecycle, head lookup, atomic
// up/down application, and filtered listing, implemented once per SQL
// dialect.
package provider

import (
	"context"
	"strings"
	"time"

	"github.com/go-wandern/wandern/pkg/revision"
	"github.com/go-wandern/wandern/pkg/wanderrors"
)

// AppliedRevision is a bookkeeping row: the subset of a Revision's fields
// that are persisted once a migration has been applied. It carries no SQL
// bodies, those only ever live on disk.
type AppliedRevision struct {
	RevisionID     string
	DownRevisionID string // empty means this was the root
	Message        string
	Tags           []string
	Author         string
	CreatedAt      time.Time
}

// ListFilter narrows a List call. A zero-valued field means "no filter on
// that dimension".
type ListFilter struct {
	Author string
	Tags   []string
	Since  time.Time
}

// Provider is the capability set a migration dialect must implement.
// CreateBookkeeping and DropBookkeeping are idempotent. ApplyUp and
// ApplyDown execute the revision's SQL body and mutate the bookkeeping
// table as a single atomic transaction; either both happen or neither does.
type Provider interface {
	CreateBookkeeping(ctx context.Context) error
	DropBookkeeping(ctx context.Context) error
	GetHead(ctx context.Context) (*AppliedRevision, bool, error)
	ApplyUp(ctx context.Context, rev *revision.Revision) (int64, error)
	ApplyDown(ctx context.Context, rev *revision.Revision) (int64, error)
	List(ctx context.Context, filter ListFilter) ([]AppliedRevision, error)
	Close() error
}

// Opener constructs a Provider for a DSN and bookkeeping table name.
// Registered per dialect in an init() in that dialect's package so this
// package never imports database drivers directly.
type Opener func(dsn, migrationTable string) (Provider, error)

var openers = map[string]Opener{}

// Register associates a DSN scheme (e.g. "postgres", "sqlite") with an
// Opener. Dialect packages call this from their own init().
func Register(scheme string, open Opener) {
	openers[scheme] = open
}

// New dispatches to the registered Opener matching dsn's scheme.
func New(dsn, migrationTable string) (Provider, error) {
	scheme := schemeOf(dsn)
	open, ok := openers[scheme]
	if !ok {
		return nil, wanderrors.Config("unsupported dsn scheme %q", scheme)
	}
	return open(dsn, migrationTable)
}

func schemeOf(dsn string) string {
	if i := strings.Index(dsn, "://"); i != -1 {
		scheme := dsn[:i]
		if scheme == "postgresql" {
			return "postgres"
		}
		return scheme
	}
	// Bare filesystem paths (sqlite's common case) have no scheme prefix.
	return "sqlite"
}
