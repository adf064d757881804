package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indicates no session matched a reference.
var ErrNotFound = errors.New("session not found")

// AmbiguousError indicates a partial reference matched more
// than one session. Candidates holds the matching file paths.
type AmbiguousError struct {
	Ref        string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf(
		"reference %q matches %d sessions:\n  %s",
		e.Ref, len(e.Candidates),
		strings.Join(e.Candidates, "\n  "),
	)
}

// MalformedError indicates a file exists but violates the
// structural preconditions of a resumable session.
type MalformedError struct {
	Path   string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed session %s: %s", e.Path, e.Reason)
}
