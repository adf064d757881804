package session

import (
	"os"
	"strings"
)

// Resolve turns a user-supplied reference into a session. The
// reference may be a file path, a full session ID, or an ID
// prefix or substring. Partial matches prefer sessions recorded
// under cwd; an ambiguous reference is an error listing the
// candidates.
func (st *Store) Resolve(ref, cwd string) (Session, error) {
	if ref == "" {
		return Session{}, ErrNotFound
	}

	// File path first: a path the user can name wins outright.
	if fi, err := os.Stat(ref); err == nil && !fi.IsDir() {
		return resumable(Classify(ref))
	}

	// Exact ID lookups avoid a full discovery pass.
	if p := FindClaudeSource(st.ClaudeHome, ref); p != "" {
		return resumable(ClassifyAs(p, AgentClaude))
	}
	if p := FindCodexSource(st.CodexHome, ref); p != "" {
		return resumable(ClassifyAs(p, AgentCodex))
	}

	all := st.Discover(Filter{IncludeInvalid: true})

	var local, global []Session
	lowRef := strings.ToLower(ref)
	for _, s := range all {
		if !strings.Contains(strings.ToLower(s.ID), lowRef) {
			continue
		}
		global = append(global, s)
		if cwd != "" && s.CWD == cwd {
			local = append(local, s)
		}
	}

	pool := global
	if len(local) > 0 {
		pool = local
	}
	switch len(pool) {
	case 0:
		return Session{}, ErrNotFound
	case 1:
		return resumable(pool[0], nil)
	}
	paths := make([]string, len(pool))
	for i, s := range pool {
		paths[i] = s.Path
	}
	return Session{}, &AmbiguousError{Ref: ref, Candidates: paths}
}

// resumable rejects directly-named sessions that hold no
// conversational events. Listings merely skip such files, but a
// direct reference to one is an error.
func resumable(s Session, err error) (Session, error) {
	if err != nil {
		return s, err
	}
	if !s.Valid {
		return Session{}, &MalformedError{
			Path:   s.Path,
			Reason: "no conversational events",
		}
	}
	return s, nil
}
