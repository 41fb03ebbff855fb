package revision

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/oapi-codegen/nullable"

	"github.com/go-wandern/wandern/pkg/wanderrors"
)

// migrationPattern splits a revision file into its header comment block and
// its UP/DOWN SQL bodies. Mirrors the two-pass grammar of the tool this
// format was carried over from: an outer DOTALL match for structure, then
// per-field regexes against the captured comment block.
var migrationPattern = regexp.MustCompile(`(?s)/\*(?P<comment_block>.*?)\*/\s*--\s*UP\s*\n(?P<up_sql>.*?)--\s*DOWN\s*\n(?P<down_sql>.*)`)

var (
	timestampPattern  = regexp.MustCompile(`(?i)Timestamp:\s*([^\n]+)`)
	revisionIDPattern = regexp.MustCompile(`(?i)Revision\s+ID:\s*(\w+)`)
	revisesPattern    = regexp.MustCompile(`(?i)Revises:\s*([^\n]+)`)
	messagePattern    = regexp.MustCompile(`(?i)Message:\s*([^\n]+)`)
	authorPattern     = regexp.MustCompile(`(?i)Author:\s*([^\n]+)`)
	tagsPattern       = regexp.MustCompile(`(?i)Tags:\s*([^\n]+)`)
)

// ParseFile reads filename off disk and parses it into a Revision.
func ParseFile(filename string) (*Revision, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, wanderrors.IO(err, filename)
	}
	rev, err := Parse(string(data))
	if err != nil {
		return nil, wanderrors.InvalidMigrationFile(err, filename)
	}
	return rev, nil
}

// Parse reads the header-comment-plus-UP/DOWN grammar out of content and
// builds a Revision. The required header fields are Timestamp, Revision ID,
// Revises, and Message; Author and Tags are optional.
func Parse(content string) (*Revision, error) {
	m := migrationPattern.FindStringSubmatch(content)
	if m == nil {
		return nil, errMissing("invalid migration file format: missing /* ... */ header or -- UP / -- DOWN sections")
	}
	names := migrationPattern.SubexpNames()
	fields := make(map[string]string, len(names))
	for i, name := range names {
		if name != "" {
			fields[name] = m[i]
		}
	}

	commentBlock := fields["comment_block"]
	upSQL := strings.TrimSpace(fields["up_sql"])
	downSQL := strings.TrimSpace(fields["down_sql"])

	timestamp := firstSubmatch(timestampPattern, commentBlock)
	revisionID := firstSubmatch(revisionIDPattern, commentBlock)
	revises := firstSubmatch(revisesPattern, commentBlock)
	message := firstSubmatch(messagePattern, commentBlock)
	author := firstSubmatch(authorPattern, commentBlock)
	tags := firstSubmatch(tagsPattern, commentBlock)

	switch {
	case timestamp == "":
		return nil, errMissing("Timestamp field is required in migration file")
	case revisionID == "":
		return nil, errMissing("Revision ID field is required in migration file")
	case revises == "":
		return nil, errMissing("Revises field is required in migration file")
	case message == "":
		return nil, errMissing("Message field is required in migration file")
	}

	createdAt, err := time.Parse(time.RFC3339, strings.TrimSpace(timestamp))
	if err != nil {
		createdAt, err = time.Parse("2006-01-02T15:04:05", strings.TrimSpace(timestamp))
		if err != nil {
			return nil, errMissing("Timestamp field is not a valid ISO-8601 timestamp: " + timestamp)
		}
	}

	rev := &Revision{
		RevisionID:     strings.TrimSpace(revisionID),
		DownRevisionID: downRevisionFromHeader(revises),
		Message:        strings.TrimSpace(message),
		Author:         absent[string](),
		Tags:           absent[[]string](),
		UpSQL:          present(upSQL),
		DownSQL:        present(downSQL),
		CreatedAt:      createdAt,
	}
	if author != "" {
		rev.Author = present(strings.TrimSpace(author))
	}
	if tags != "" {
		// Tags are comma-joined; whitespace around each tag is preserved,
		// not trimmed, since a tag like "needs review" is legitimate input.
		rev.Tags = present(strings.Split(tags, ","))
	}
	return rev, nil
}

func downRevisionFromHeader(revises string) nullable.Nullable[string] {
	revises = strings.TrimSpace(revises)
	if revises == "" || strings.EqualFold(revises, "none") {
		return absent[string]()
	}
	return present(revises)
}

func firstSubmatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func errMissing(msg string) error {
	return &parseError{msg: msg}
}

type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }
