// Package lineage walks the parent pointers recorded in the
// first event of derived session files.
package lineage

import (
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/agentsess/agentsess/internal/session"
)

// Link is one step of a lineage chain. Relationship says how
// this file was derived from its parent; the chain's last link
// is always the original.
type Link struct {
	Path         string
	Relationship session.Derivation
	Missing      bool // file no longer exists on disk
}

// ParentInfo reads the first event of a session file and
// returns the parent path and derivation kind. Continuation
// metadata takes precedence over trim metadata. An original
// session returns ("", DerivationOriginal, nil).
func ParentInfo(path string) (string, session.Derivation, error) {
	if _, err := os.Stat(path); err != nil {
		return "", "", err
	}
	line := session.FirstLine(path)
	if line == "" || !gjson.Valid(line) {
		return "", session.DerivationOriginal, nil
	}
	if cm := gjson.Get(line, "continue_metadata"); cm.Exists() {
		if pf := cm.Get("parent_session_file").Str; pf != "" {
			return pf, session.DerivationContinued, nil
		}
	}
	if tm := gjson.Get(line, "trim_metadata"); tm.Exists() {
		if pf := tm.Get("parent_file").Str; pf != "" {
			return pf, session.DerivationTrimmed, nil
		}
	}
	return "", session.DerivationOriginal, nil
}

// Chain returns the full lineage of a session, newest first,
// ending with the original. A parent that no longer exists on
// disk terminates the chain with a Missing link. A visited set
// guards against pointer cycles.
func Chain(path string) ([]Link, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	var chain []Link
	visited := map[string]bool{}
	current := abs
	for {
		if visited[current] {
			// Cycle: stop where we already stand.
			break
		}
		visited[current] = true

		parent, rel, err := ParentInfo(current)
		if err != nil {
			return nil, err
		}
		chain = append(chain, Link{
			Path:         current,
			Relationship: rel,
		})
		if rel == session.DerivationOriginal {
			break
		}
		if _, err := os.Stat(parent); err != nil {
			chain = append(chain, Link{
				Path:         parent,
				Relationship: session.DerivationOriginal,
				Missing:      true,
			})
			break
		}
		current = parent
	}
	return chain, nil
}

// ContinuationChain returns the lineage reached by continue
// handoffs alone, newest first. The walk stops at the first
// session that was not produced by a continuation; that session
// closes the chain as its root, whatever its own derivation.
func ContinuationChain(path string) ([]Link, error) {
	chain, err := Chain(path)
	if err != nil {
		return nil, err
	}
	var out []Link
	for _, link := range chain {
		out = append(out, link)
		if link.Relationship != session.DerivationContinued {
			break
		}
	}
	return out, nil
}

// Original returns the path of the chain's root session.
func Original(path string) (string, error) {
	chain, err := Chain(path)
	if err != nil {
		return "", err
	}
	return chain[len(chain)-1].Path, nil
}

// Descendants lists sessions whose recorded parent is the given
// file, across every session the store can discover.
func Descendants(st *session.Store, path string) []session.Session {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	var out []session.Session
	for _, s := range st.Discover(session.Filter{IncludeInvalid: true}) {
		if s.ParentFile == "" {
			continue
		}
		if s.ParentFile == abs || s.ParentFile == path {
			out = append(out, s)
		}
	}
	return out
}

// IsDerived reports whether the session file records any parent.
func IsDerived(path string) bool {
	parent, _, err := ParentInfo(path)
	return err == nil && parent != ""
}
