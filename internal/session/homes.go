package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Home resolves the agent's home root. Precedence: explicit
// argument, then the agent's env var, then ~/<default>.
func (def AgentDef) Home(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if def.EnvVar != "" {
		if v := os.Getenv(def.EnvVar); v != "" {
			return v, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, def.DefaultHome), nil
}

// EncodeProjectPath converts an absolute working directory into
// the directory name Claude Code uses under projects/. Path
// separators, underscores, and dots all map to dashes.
func EncodeProjectPath(cwd string) string {
	r := strings.NewReplacer("/", "-", "_", "-", ".", "-")
	return r.Replace(cwd)
}

// ClaudeProjectDir returns the per-project session directory
// for cwd under the given Claude home.
func ClaudeProjectDir(claudeHome, cwd string) string {
	return filepath.Join(
		claudeHome, "projects", EncodeProjectPath(cwd),
	)
}
