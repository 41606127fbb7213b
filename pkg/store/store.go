package store

import (
	"context"
	"errors"
	"strings"
)

// ErrStore marks any failure while executing a traversal against the remote
// graph engine (connection, auth, malformed traversal). Callers check it
// with errors.Is to decide whether re-running the idempotent mutation unit
// is worthwhile.
var ErrStore = errors.New("graph store error")

// Row is one decoded result row from the graph engine, typically the output
// of a valueMap(true) or project() step.
type Row map[string]any

// GraphStore executes traversal strings, optionally with named parameter
// bindings, against a remote graph engine. Implementations own the
// connection lifecycle and nothing else; retry policy belongs to callers
// because every write issued through this interface is a conditional create.
type GraphStore interface {
	Execute(ctx context.Context, query string, bindings map[string]any) ([]Row, error)
	Close(ctx context.Context) error
}

// EscapeString escapes a literal for embedding inside a single-quoted
// traversal string. Backslashes are doubled before quotes are escaped so the
// two rules cannot interfere. Every literal built into a traversal must pass
// through here; entity text is caller-controlled input.
func EscapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return s
}
