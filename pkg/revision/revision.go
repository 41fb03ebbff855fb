// Package revision defines the migration Revision data model, the script
// parser that reads a Revision back off disk, and the filename renderer
// used when a new Revision is saved.
package revision

import (
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/nullable"
)

// Revision is the atomic unit of schema change: a forward ("up") SQL body,
// an optional reverse ("down") SQL body, and a pointer to the immediate
// predecessor's revision id. Fields that the source format treats as
// genuinely optional (DownRevisionID, Author, Tags, UpSQL, DownSQL) use
// nullable.Nullable so "absent" and "present but empty" stay distinguishable,
// rather than overloading the empty string the way the tool this spec was
// distilled from does in places.
type Revision struct {
	RevisionID     string
	DownRevisionID nullable.Nullable[string]
	Message        string
	Author         nullable.Nullable[string]
	Tags           nullable.Nullable[[]string]
	UpSQL          nullable.Nullable[string]
	DownSQL        nullable.Nullable[string]
	CreatedAt      time.Time
}

// IsRoot reports whether this revision has no predecessor.
func (r *Revision) IsRoot() bool {
	return !r.DownRevisionID.IsSpecified() || r.DownRevisionID.IsNull()
}

// DownRevision returns the predecessor id and whether one is set.
func (r *Revision) DownRevision() (string, bool) {
	if !r.DownRevisionID.IsSpecified() || r.DownRevisionID.IsNull() {
		return "", false
	}
	v, _ := r.DownRevisionID.Get()
	return v, true
}

// TagSet returns the revision's tags as a slice, or nil when absent.
func (r *Revision) TagSet() []string {
	if !r.Tags.IsSpecified() || r.Tags.IsNull() {
		return nil
	}
	v, _ := r.Tags.Get()
	return v
}

// AuthorValue returns the author string, or "" when absent.
func (r *Revision) AuthorValue() string {
	if !r.Author.IsSpecified() || r.Author.IsNull() {
		return ""
	}
	v, _ := r.Author.Get()
	return v
}

// UpSQLValue returns the up SQL body, or "" when absent.
func (r *Revision) UpSQLValue() string {
	if !r.UpSQL.IsSpecified() || r.UpSQL.IsNull() {
		return ""
	}
	v, _ := r.UpSQL.Get()
	return v
}

// DownSQLValue returns the down SQL body, or "" when absent.
func (r *Revision) DownSQLValue() string {
	if !r.DownSQL.IsSpecified() || r.DownSQL.IsNull() {
		return ""
	}
	v, _ := r.DownSQL.Get()
	return v
}

// NewRevisionID generates a new opaque revision id, matching the original
// tool's convention of the first 8 hex characters of a v4 UUID.
func NewRevisionID() string {
	return uuid.New().String()[:8]
}

// New builds a Revision from plain values, the shape a caller assembling a
// new revision in memory actually has on hand. An empty downRevisionID
// means root; an empty author, nil tags, or empty SQL body are recorded as
// absent rather than present-but-empty.
func New(revisionID, downRevisionID, message, author string, tags []string, upSQL, downSQL string, createdAt time.Time) *Revision {
	rev := &Revision{
		RevisionID:     revisionID,
		DownRevisionID: absent[string](),
		Message:        message,
		Author:         absent[string](),
		Tags:           absent[[]string](),
		UpSQL:          absent[string](),
		DownSQL:        absent[string](),
		CreatedAt:      createdAt,
	}
	if downRevisionID != "" {
		rev.DownRevisionID = present(downRevisionID)
	}
	if author != "" {
		rev.Author = present(author)
	}
	if len(tags) > 0 {
		rev.Tags = present(tags)
	}
	if upSQL != "" {
		rev.UpSQL = present(upSQL)
	}
	if downSQL != "" {
		rev.DownSQL = present(downSQL)
	}
	return rev
}

// present wraps a known value; absent marks a field as explicitly unset,
// used when a source file simply omits the header line.
func present[T any](v T) nullable.Nullable[T] {
	return nullable.NewNullableWithValue(v)
}

func absent[T any]() nullable.Nullable[T] {
	return nullable.NewNullNullable[T]()
}
