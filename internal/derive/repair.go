package derive

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/agentsess/agentsess/internal/session"
)

// Repair rewrites every embedded session identifier in a file
// to match the identifier encoded in its filename, restoring
// the identity invariant for files produced by earlier clone
// and smart-trim revisions. Idempotent: a consistent file is
// left byte-identical. Returns how many lines were fixed.
//
// Descendants are not touched: children reference this file by
// path, and the path never changes here.
func Repair(path string) (int, error) {
	agent, err := session.DetectAgent(path)
	if err != nil {
		return 0, err
	}
	wantID := session.IDFromPath(path)
	if !session.IsValidSessionID(wantID) {
		return 0, fmt.Errorf(
			"cannot derive a session id from %s", path,
		)
	}

	lines, err := session.ReadLines(path)
	if err != nil {
		return 0, err
	}

	fixed := 0
	for i, line := range lines {
		if !gjson.Valid(line) {
			continue
		}
		if embeddedID(line, agent) == "" {
			continue
		}
		updated := rewriteIdentity(line, agent, wantID)
		if updated != line {
			lines[i] = updated
			fixed++
		}
	}
	if fixed == 0 {
		return 0, nil
	}
	content := strings.Join(lines, "\n") + "\n"
	if err := writeFileAtomic(path, content); err != nil {
		return 0, err
	}
	return fixed, nil
}

// embeddedID extracts the session identifier a line carries,
// or "" when it has none.
func embeddedID(line string, agent session.Agent) string {
	switch agent {
	case session.AgentClaude:
		return gjson.Get(line, "sessionId").Str
	case session.AgentCodex:
		if gjson.Get(line, "type").Str == "session_meta" {
			return gjson.Get(line, "payload.id").Str
		}
	}
	return ""
}
