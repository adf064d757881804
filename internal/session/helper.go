package session

import "strings"

// HelperMarkerKey is injected into the first event of sessions
// this tool creates for its own analysis or summarization runs.
// Files carrying the marker never appear in user listings.
const HelperMarkerKey = "helper_metadata"

// helperFingerprints identify analysis prompts echoed into a
// session body. A file matching a fingerprint with at most
// maxHelperMessages message events is a helper even without
// the marker key (the CLI may persist the session before we
// can mark it).
var helperFingerprints = []string{
	"identifying which lines can be trimmed from a coding agent session",
	"Strategically use PARALLEL SUB-AGENTS to explore",
}

const maxHelperMessages = 5

// matchesHelperFingerprint reports whether a raw session line
// contains a known analysis-prompt fingerprint.
func matchesHelperFingerprint(line string) bool {
	for _, fp := range helperFingerprints {
		if strings.Contains(line, fp) {
			return true
		}
	}
	return false
}
