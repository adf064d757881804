// Package derive creates new session files from existing ones:
// deterministic trims, LLM-guided smart trims, clones, and
// identity repair. Every derived file gets a fresh identifier
// in its agent's naming convention and rewritten embedded
// session-id fields.
package derive

import (
	"strconv"

	"github.com/agentsess/agentsess/internal/session"
)

// Result reports a completed derivation.
type Result struct {
	SessionID  string
	OutputFile string
	Agent      session.Agent

	ToolsTrimmed     int
	AssistantTrimmed int
	LinesTrimmed     int
	CharsSaved       int
	TokensSaved      int
}

// commaFormat renders n with thousands separators, matching
// the notices embedded in trimmed content.
func commaFormat(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var out []byte
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
