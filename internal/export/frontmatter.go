// Package export renders sessions into front-matter-plus-body
// text files, incrementally, for reading and for indexing.
package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/tidwall/gjson"

	"github.com/agentsess/agentsess/internal/lineage"
	"github.com/agentsess/agentsess/internal/session"
	"github.com/agentsess/agentsess/internal/timeutil"
)

// previewLen caps first_msg/last_msg content in the front matter.
const previewLen = 200

// Msg is a role-tagged message preview in the front matter.
type Msg struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
}

// TrimStats mirrors the stats block of a trimmed session's
// metadata with the same key names.
type TrimStats struct {
	NumToolsTrimmed     int `yaml:"num_tools_trimmed,omitempty"`
	NumAssistantTrimmed int `yaml:"num_assistant_trimmed,omitempty"`
	NumLinesTrimmed     int `yaml:"num_lines_trimmed,omitempty"`
	TokensSaved         int `yaml:"tokens_saved"`
}

// Meta is the front matter of an exported session. Field order
// is the serialization order, so unchanged inputs export
// byte-identically.
type Meta struct {
	SessionID         string     `yaml:"session_id"`
	Agent             string     `yaml:"agent"`
	FilePath          string     `yaml:"file_path"`
	Project           string     `yaml:"project,omitempty"`
	Branch            string     `yaml:"branch,omitempty"`
	CWD               string     `yaml:"cwd,omitempty"`
	Lines             int        `yaml:"lines,omitempty"`
	Created           string     `yaml:"created,omitempty"`
	Modified          string     `yaml:"modified,omitempty"`
	DerivationType    string     `yaml:"derivation_type,omitempty"`
	IsSidechain       bool       `yaml:"is_sidechain,omitempty"`
	ParentSessionID   string     `yaml:"parent_session_id,omitempty"`
	ParentSessionFile string     `yaml:"parent_session_file,omitempty"`
	OriginalSessionID string     `yaml:"original_session_id,omitempty"`
	FirstMsg          *Msg       `yaml:"first_msg,omitempty"`
	LastMsg           *Msg       `yaml:"last_msg,omitempty"`
	TrimStats         *TrimStats `yaml:"trim_stats,omitempty"`
}

// ExtractMeta builds the front matter for one session file.
func ExtractMeta(path string, agent session.Agent) (Meta, error) {
	s, err := session.ClassifyAs(path, agent)
	if err != nil {
		return Meta{}, err
	}

	m := Meta{
		SessionID:   s.ID,
		Agent:       string(s.Agent),
		FilePath:    s.Path,
		Project:     s.Project(),
		Branch:      s.GitBranch,
		CWD:         s.CWD,
		Lines:       s.LineCount,
		Created:     timeutil.Format(s.CreatedAt),
		Modified:    timeutil.Format(s.ModifiedAt),
		IsSidechain: s.IsSidechain,
	}
	if m.Branch == "" && s.CWD != "" {
		m.Branch = session.CurrentBranch(s.CWD)
	}
	if s.Derivation != session.DerivationOriginal {
		m.DerivationType = string(s.Derivation)
		m.ParentSessionID = s.ParentSessionID
		m.ParentSessionFile = s.ParentFile
		if m.ParentSessionID == "" && s.ParentFile != "" {
			m.ParentSessionID = session.IDFromPath(s.ParentFile)
		}
		if orig, err := lineage.Original(path); err == nil {
			if id := session.IDFromPath(orig); id != "" && id != s.ID {
				m.OriginalSessionID = id
			}
		}
		m.TrimStats = readTrimStats(path)
	}
	m.FirstMsg, m.LastMsg = firstLastMessages(path, agent)
	return m, nil
}

// readTrimStats pulls the stats block out of a trimmed session's
// first-line metadata, or nil when absent.
func readTrimStats(path string) *TrimStats {
	stats := gjson.Get(session.FirstLine(path), "trim_metadata.stats")
	if !stats.Exists() {
		return nil
	}
	return &TrimStats{
		NumToolsTrimmed:     int(stats.Get("num_tools_trimmed").Int()),
		NumAssistantTrimmed: int(stats.Get("num_assistant_trimmed").Int()),
		NumLinesTrimmed:     int(stats.Get("num_lines_trimmed").Int()),
		TokensSaved:         int(stats.Get("tokens_saved").Int()),
	}
}

// firstLastMessages scans the whole file for the first and last
// text-bearing message of either role.
func firstLastMessages(path string, agent session.Agent) (first, last *Msg) {
	lines, err := session.ReadLines(path)
	if err != nil {
		return nil, nil
	}
	for _, line := range lines {
		if !gjson.Valid(line) {
			continue
		}
		root := gjson.Parse(line)
		var role, text string
		switch agent {
		case session.AgentClaude:
			role = root.Get("type").Str
			if role != "user" && role != "assistant" {
				continue
			}
			text = firstTextBlock(root.Get("message.content"))
		case session.AgentCodex:
			if root.Get("type").Str != "response_item" {
				continue
			}
			payload := root.Get("payload")
			if payload.Get("type").Str != "message" {
				continue
			}
			role = payload.Get("role").Str
			text = firstTextBlock(payload.Get("content"))
		}
		if role == "" || text == "" {
			continue
		}
		m := &Msg{Role: role, Content: collapse(text, previewLen)}
		if first == nil {
			first = m
		}
		last = m
	}
	return first, last
}

// firstTextBlock returns the first non-empty text block of a
// message content value (bare string or block array).
func firstTextBlock(content gjson.Result) string {
	if content.Type == gjson.String {
		return strings.TrimSpace(content.Str)
	}
	var text string
	content.ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").Str {
		case "text", "input_text", "output_text":
			if t := strings.TrimSpace(block.Get("text").Str); t != "" {
				text = t
				return false
			}
		}
		return true
	})
	return text
}

// collapse joins all whitespace runs into single spaces and
// truncates to maxLen.
func collapse(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// renderFrontMatter serializes the front matter between ---
// delimiter lines.
func renderFrontMatter(m Meta) (string, error) {
	body, err := yaml.Marshal(m)
	if err != nil {
		return "", err
	}
	return "---\n" + string(body) + "---\n", nil
}

// ParseExported splits an exported file back into its front
// matter and body.
func ParseExported(path string) (Meta, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Meta{}, "", err
	}
	text := string(data)
	if !strings.HasPrefix(text, "---\n") {
		return Meta{}, "", fmt.Errorf(
			"%s: missing front matter delimiter", path)
	}
	end := strings.Index(text[4:], "\n---\n")
	if end == -1 {
		return Meta{}, "", fmt.Errorf(
			"%s: unterminated front matter", path)
	}
	var m Meta
	if err := yaml.Unmarshal([]byte(text[4:4+end]), &m); err != nil {
		return Meta{}, "", fmt.Errorf("%s: front matter: %w", path, err)
	}
	body := text[4+end+len("\n---\n"):]
	body = strings.TrimPrefix(body, "\n")
	return m, body, nil
}
