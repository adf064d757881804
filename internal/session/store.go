package session

import (
	"log/slog"
	"sort"
)

// Store discovers and classifies sessions across the configured
// agent homes.
type Store struct {
	ClaudeHome string
	CodexHome  string
	Log        *slog.Logger
}

// NewStore builds a Store over the given agent homes. A nil
// logger discards classification warnings.
func NewStore(claudeHome, codexHome string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Store{
		ClaudeHome: claudeHome,
		CodexHome:  codexHome,
		Log:        log,
	}
}

// HomeFor returns the store's home root for the agent.
func (st *Store) HomeFor(a Agent) string {
	if a == AgentCodex {
		return st.CodexHome
	}
	return st.ClaudeHome
}

// Discover lists sessions matching the filter, newest first.
// Files that fail to classify are logged and skipped.
func (st *Store) Discover(f Filter) []Session {
	type candidate struct {
		path  string
		agent Agent
	}
	var paths []candidate
	if f.wantsAgent(AgentClaude) {
		for _, p := range DiscoverClaude(st.ClaudeHome) {
			paths = append(paths, candidate{p, AgentClaude})
		}
	}
	if f.wantsAgent(AgentCodex) {
		for _, p := range DiscoverCodex(st.CodexHome) {
			paths = append(paths, candidate{p, AgentCodex})
		}
	}

	var sessions []Session
	for _, c := range paths {
		s, err := ClassifyAs(c.path, c.agent)
		if err != nil {
			st.Log.Warn("skipping unreadable session",
				"path", c.path, "error", err)
			continue
		}
		if !f.matches(s) {
			continue
		}
		if !f.matchesKeywords(c.path) {
			continue
		}
		sessions = append(sessions, s)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].ModifiedAt.After(sessions[j].ModifiedAt)
	})
	return sessions
}

// Latest returns the most recently modified session matching
// the filter, or ErrNotFound. A branch constraint is a
// preference: when nothing matches it (sessions often record no
// branch at all), the search retries without it.
func (st *Store) Latest(f Filter) (Session, error) {
	sessions := st.Discover(f)
	if len(sessions) == 0 && f.Branch != "" {
		f.Branch = ""
		sessions = st.Discover(f)
	}
	if len(sessions) == 0 {
		return Session{}, ErrNotFound
	}
	return sessions[0], nil
}
