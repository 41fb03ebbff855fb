// Package generator defines the narrow interface a natural-language
// migration generator must satisfy. The core ships no implementation:
// turning a prompt into SQL is delegated to an external service, and the
// CLI's prompt subcommand is the only expected caller.
package generator

import "context"

// Generated is the SQL body a Generator produces for a single revision.
type Generated struct {
	Message string
	UpSQL   string
	DownSQL string
}

// Generator turns a natural-language prompt into a Generated revision body.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Generated, error)
}
