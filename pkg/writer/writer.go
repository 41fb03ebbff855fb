// Package writer renders a new revision's header-comment-plus-UP/DOWN body
// and writes it to the migration directory under its rendered filename.
package writer

import (
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/go-wandern/wandern/pkg/revision"
	"github.com/go-wandern/wandern/pkg/wanderrors"
)

// migrationTemplate matches the grammar a revision.Parse call expects back:
// a block comment header followed by -- UP / -- DOWN sections.
var migrationTemplate = template.Must(template.New("migration.sql").Parse(
	`/*
Timestamp: {{.CreatedAt}}
Revision ID: {{.RevisionID}}
Revises: {{.Revises}}
Message: {{.Message}}
{{- if .Author}}
Author: {{.Author}}
{{- end}}
{{- if .Tags}}
Tags: {{.Tags}}
{{- end}}
*/

-- UP
{{.UpSQL}}

-- DOWN
{{.DownSQL}}
`))

type templateArgs struct {
	CreatedAt  string
	RevisionID string
	Revises    string
	Message    string
	Author     string
	Tags       string
	UpSQL      string
	DownSQL    string
}

// Writer persists a rendered revision file. Abstracted behind an interface
// so the coordinator's tests can swap an in-memory implementation.
type Writer interface {
	Write(dir, filename, contents string) error
}

// FileWriter writes to the real filesystem.
type FileWriter struct{}

// Write creates dir if necessary and writes contents to dir/filename.
func (FileWriter) Write(dir, filename, contents string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return wanderrors.IO(err, dir)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return wanderrors.IO(err, path)
	}
	return nil
}

// Render renders rev into the file body a parser can read back.
func Render(rev *revision.Revision) (string, error) {
	revises := "none"
	if down, ok := rev.DownRevision(); ok {
		revises = down
	}

	var b strings.Builder
	err := migrationTemplate.Execute(&b, templateArgs{
		CreatedAt:  rev.CreatedAt.Format("2006-01-02T15:04:05"),
		RevisionID: rev.RevisionID,
		Revises:    revises,
		Message:    rev.Message,
		Author:     rev.AuthorValue(),
		Tags:       strings.Join(rev.TagSet(), ","),
		UpSQL:      rev.UpSQLValue(),
		DownSQL:    rev.DownSQLValue(),
	})
	if err != nil {
		return "", wanderrors.IO(err, rev.RevisionID+".sql")
	}
	return b.String(), nil
}
