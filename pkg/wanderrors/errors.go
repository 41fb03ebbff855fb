// Package wanderrors defines the error taxonomy shared by every wandern
// component: configuration problems, connection failures, malformed
// migration files, graph shape violations, planning failures, and SQL
// failures. Each kind wraps an underlying cause with enough context
// (revision id, filename, or edge list) for a user to remediate without
// reading the source.
package wanderrors

import "github.com/pkg/errors"

// Kind identifies which taxonomy bucket an error belongs to. The CLI uses
// Kind to pick a process exit code; the core never assigns exit codes
// itself.
type Kind string

const (
	KindConfig               Kind = "config"
	KindConnect              Kind = "connect"
	KindInvalidMigrationFile Kind = "invalid_migration_file"
	KindCycleDetected        Kind = "cycle_detected"
	KindDivergentBranch      Kind = "divergent_branch"
	KindPlan                 Kind = "plan"
	KindSQL                  Kind = "sql"
	KindIO                   Kind = "io"
)

// Error is the concrete type returned for every taxonomy member. Callers
// that need to branch on the kind should use errors.As with *Error and
// inspect Kind, or the Is helper below.
type Error struct {
	Kind Kind
	// RevisionID, Filename, and Edges carry whatever remediation context
	// is relevant to this Kind; zero values mean "not applicable".
	RevisionID string
	Filename   string
	Edges      []string
	cause      error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": "
	if e.cause != nil {
		msg += e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

func newErr(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

// Config wraps a malformed or missing configuration option.
func Config(format string, args ...any) error {
	return newErr(KindConfig, errors.Errorf(format, args...))
}

// Connect wraps a failure to reach the database at startup or first use,
// distinct from a SQLError raised once connected.
func Connect(cause error, dsn string) error {
	e := newErr(KindConnect, errors.Wrap(cause, "failed to connect to database"))
	e.Filename = dsn
	return e
}

// InvalidMigrationFile wraps a file that cannot be parsed, is not .sql, or
// is a directory where a migration file was expected.
func InvalidMigrationFile(cause error, filename string) error {
	e := newErr(KindInvalidMigrationFile, errors.Wrap(cause, "invalid migration file"))
	e.Filename = filename
	return e
}

// CycleDetected wraps a cycle found while validating the migration graph.
// edges is the cycle's edge list in "from -> to" form, in cycle order.
func CycleDetected(edges []string) error {
	e := newErr(KindCycleDetected, errors.Errorf("cycle detected: %v", edges))
	e.Edges = edges
	return e
}

// DivergentBranch wraps a graph node with more than one successor.
func DivergentBranch(node string, successors []string) error {
	e := newErr(KindDivergentBranch, errors.Errorf("divergent branch from %s to %v", node, successors))
	e.RevisionID = node
	e.Edges = successors
	return e
}

// Plan wraps a filtered upgrade sequence that is not a contiguous chain
// from head, or a downgrade step referencing a revision missing on disk.
func Plan(revisionID string, format string, args ...any) error {
	e := newErr(KindPlan, errors.Errorf(format, args...))
	e.RevisionID = revisionID
	return e
}

// SQL wraps a database rejection of user-provided SQL, surfaced verbatim
// alongside the offending revision id.
func SQL(cause error, revisionID string) error {
	e := newErr(KindSQL, errors.Wrap(cause, "sql execution failed"))
	e.RevisionID = revisionID
	return e
}

// IO wraps a filesystem read/write failure.
func IO(cause error, filename string) error {
	e := newErr(KindIO, errors.Wrap(cause, "io failure"))
	e.Filename = filename
	return e
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
