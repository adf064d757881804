// Package session presents a uniform view over the on-disk
// conversation logs written by the Claude Code and Codex CLIs:
// discovery, classification, filtering, and reference
// resolution.
package session

import (
	"path/filepath"
	"time"
)

// Agent identifies the CLI that produced a session.
type Agent string

const (
	AgentClaude Agent = "claude"
	AgentCodex  Agent = "codex"
)

// AgentDef describes a supported agent's filesystem layout,
// configuration keys, and CLI entrypoint.
type AgentDef struct {
	Agent       Agent
	DisplayName string
	CLIName     string // executable name
	EnvVar      string // env var overriding the home root ("" = none)
	DefaultHome string // path relative to $HOME
	SessionsDir string // subdir of home holding session files
}

// Registry lists the supported agents in stable order.
var Registry = []AgentDef{
	{
		Agent:       AgentClaude,
		DisplayName: "Claude Code",
		CLIName:     "claude",
		EnvVar:      "CLAUDE_CONFIG_DIR",
		DefaultHome: ".claude",
		SessionsDir: "projects",
	},
	{
		Agent:       AgentCodex,
		DisplayName: "Codex",
		CLIName:     "codex",
		DefaultHome: ".codex",
		SessionsDir: "sessions",
	},
}

// AgentByName returns the AgentDef for the given agent.
func AgentByName(a Agent) (AgentDef, bool) {
	for _, def := range Registry {
		if def.Agent == a {
			return def, true
		}
	}
	return AgentDef{}, false
}

// SessionsRoot returns the directory holding def's session
// files under the given home root.
func (def AgentDef) SessionsRoot(home string) string {
	return filepath.Join(home, def.SessionsDir)
}

// Derivation describes how a session came to exist.
type Derivation string

const (
	DerivationOriginal  Derivation = "original"
	DerivationTrimmed   Derivation = "trimmed"
	DerivationContinued Derivation = "continued"
)

// Session is the uniform record over both dialects. The on-disk
// file is authoritative; this is a view derived from it.
type Session struct {
	ID        string
	Agent     Agent
	Path      string
	CWD       string
	GitBranch string

	CreatedAt  time.Time
	ModifiedAt time.Time
	LineCount  int

	FirstUserMessage string
	LastUserMessage  string

	Derivation      Derivation
	ParentFile      string
	ParentSessionID string

	IsSidechain bool
	Valid       bool
	Helper      bool
}

// Project returns a short project label derived from the
// session's working directory.
func (s Session) Project() string {
	if s.CWD == "" {
		return ""
	}
	return filepath.Base(s.CWD)
}
