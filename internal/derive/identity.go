package derive

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/agentsess/agentsess/internal/session"
)

// rewriteIdentity replaces the embedded session identifier on
// one line with newID, leaving every other field intact. Claude
// lines carry a top-level sessionId; Codex records the id only
// in session_meta payloads.
func rewriteIdentity(
	line string, agent session.Agent, newID string,
) string {
	if !gjson.Valid(line) {
		return line
	}
	switch agent {
	case session.AgentClaude:
		if gjson.Get(line, "sessionId").Exists() {
			if out, err := sjson.Set(line, "sessionId", newID); err == nil {
				return out
			}
		}
	case session.AgentCodex:
		if gjson.Get(line, "type").Str == "session_meta" &&
			gjson.Get(line, "payload.id").Exists() {
			if out, err := sjson.Set(line, "payload.id", newID); err == nil {
				return out
			}
		}
	}
	return line
}
