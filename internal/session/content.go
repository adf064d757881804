package session

import (
	"strings"

	"github.com/tidwall/gjson"
)

// claudeMessageText flattens the text blocks of a Claude
// message.content value (a bare string or a block array).
func claudeMessageText(content gjson.Result) string {
	if content.Type == gjson.String {
		return content.Str
	}
	if !content.IsArray() {
		return ""
	}
	var parts []string
	content.ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").Str == "text" {
			if t := block.Get("text").Str; t != "" {
				parts = append(parts, t)
			}
		}
		return true
	})
	return strings.Join(parts, "\n")
}

// codexMessageText flattens the text blocks of a Codex message
// payload (input_text / output_text / text block kinds).
func codexMessageText(content gjson.Result) string {
	if !content.IsArray() {
		return ""
	}
	var parts []string
	content.ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").Str {
		case "input_text", "output_text", "text":
			if t := block.Get("text").Str; t != "" {
				parts = append(parts, t)
			}
		}
		return true
	})
	return strings.Join(parts, "\n")
}

// hasToolResult reports whether a Claude user message carries a
// tool_result block.
func hasToolResult(content gjson.Result) bool {
	if !content.IsArray() {
		return false
	}
	found := false
	content.ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").Str == "tool_result" {
			found = true
			return false
		}
		return true
	})
	return found
}

// isClaudeSystemMessage reports whether user-message content
// matches a known system-injected pattern.
func isClaudeSystemMessage(content string) bool {
	trimmed := strings.TrimSpace(content)
	prefixes := [...]string{
		"This session is being continued",
		"[Request interrupted",
		"<task-notification>",
		"<command-message>",
		"<command-name>",
		"<local-command-",
		"Stop hook feedback:",
	}
	for _, p := range prefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func preview(s string) string {
	return truncate(strings.ReplaceAll(s, "\n", " "), 300)
}
