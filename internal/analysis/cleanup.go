package analysis

import (
	"os"
	"path/filepath"

	"github.com/agentsess/agentsess/internal/derive"
	"github.com/agentsess/agentsess/internal/session"
)

// helperMarker is injected into helper sessions before deletion
// so an indexing pass racing the cleanup still skips them.
type helperMarker struct {
	Purpose string `json:"purpose"`
}

// cleanupClaudeHelper marks and removes the session a headless
// claude run persisted under cwd. Best effort: failures are
// ignored so analysis itself never fails on cleanup.
func cleanupClaudeHelper(claudeHome, cwd, sessionID string) {
	if sessionID == "" || !session.IsValidSessionID(sessionID) {
		return
	}
	path := filepath.Join(
		session.ClaudeProjectDir(claudeHome, cwd),
		sessionID+".jsonl",
	)
	markAndRemove(path)
}

// cleanupCodexHelper locates the rollout file for a codex
// thread id and removes it.
func cleanupCodexHelper(codexHome, threadID string) {
	if threadID == "" || !session.IsValidSessionID(threadID) {
		return
	}
	if path := session.FindCodexSource(codexHome, threadID); path != "" {
		markAndRemove(path)
	}
}

func markAndRemove(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = derive.InjectFirstLine(
		path, session.HelperMarkerKey,
		helperMarker{Purpose: "trim_analysis"},
	)
	_ = os.Remove(path)
}
