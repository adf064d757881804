package analysis

import (
	"encoding/json"
)

// Verdict is one trimmable-line judgement from a worker.
type Verdict struct {
	Line      int
	Rationale string
	Summary   string
}

// extractArray returns the outermost balanced JSON array inside
// text, or "" when none exists.
func extractArray(text string) string {
	start := -1
	for i, c := range text {
		if c == '[' {
			start = i
			break
		}
	}
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// parseVerdicts pulls the verdict array out of a worker's reply
// text. Malformed entries are dropped silently; replies with no
// array yield nothing. Both object entries ({"line": N, ...})
// and bare integers are accepted.
func parseVerdicts(text string) []Verdict {
	raw := extractArray(text)
	if raw == "" {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}

	var out []Verdict
	for _, item := range items {
		var obj struct {
			Line      *int   `json:"line"`
			Rationale string `json:"rationale"`
			Summary   string `json:"summary"`
		}
		if err := json.Unmarshal(item, &obj); err == nil &&
			obj.Line != nil && *obj.Line >= 0 {
			out = append(out, Verdict{
				Line:      *obj.Line,
				Rationale: obj.Rationale,
				Summary:   obj.Summary,
			})
			continue
		}
		var n int
		if err := json.Unmarshal(item, &n); err == nil && n >= 0 {
			out = append(out, Verdict{Line: n})
		}
	}
	return out
}
