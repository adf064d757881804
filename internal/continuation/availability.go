package continuation

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/agentsess/agentsess/internal/session"
)

// ErrAgentUnavailable means no usable agent CLI was found, not
// even the source session's own.
var ErrAgentUnavailable = errors.New("agent CLI not available")

// Available reports whether an agent can run on this host:
// either its CLI is on PATH or its config directory exists under
// the user's home. The agent name is matched case-insensitively.
func Available(agent session.Agent) bool {
	name := strings.ToLower(string(agent))
	def, ok := session.AgentByName(session.Agent(name))
	if !ok {
		return false
	}
	if _, err := exec.LookPath(def.CLIName); err == nil {
		return true
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(home, "."+name))
	return err == nil && info.IsDir()
}

// chooseTarget degrades to the source agent when the requested
// target is unavailable.
func chooseTarget(requested, source session.Agent) session.Agent {
	if requested == "" {
		return source
	}
	if requested != source && !Available(requested) {
		return source
	}
	return requested
}
