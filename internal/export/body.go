package export

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/agentsess/agentsess/internal/session"
)

const (
	userPrefix      = "> "
	assistantPrefix = "⏺ "
	resultPrefix    = "  ⎿  "
	resultIndent    = "     "
)

// Render formats a session's conversation as prefixed text:
// "> " user lines, "⏺ " assistant lines, "⏺ Name(args)" tool
// calls, and "  ⎿  " tool results with aligned continuations.
func Render(path string, agent session.Agent) (string, error) {
	lines, err := session.ReadLines(path)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, line := range lines {
		if !gjson.Valid(line) {
			continue
		}
		root := gjson.Parse(line)
		switch agent {
		case session.AgentClaude:
			renderClaudeEvent(&sb, root)
		case session.AgentCodex:
			renderCodexEvent(&sb, root)
		}
	}
	return sb.String(), nil
}

func renderClaudeEvent(sb *strings.Builder, root gjson.Result) {
	role := root.Get("type").Str
	if role != "user" && role != "assistant" {
		return
	}
	if root.Get("isMeta").Bool() {
		return
	}
	content := root.Get("message.content")
	if content.Type == gjson.String {
		if role == "user" {
			writeBlock(sb, userPrefix, "", content.Str)
		} else {
			writeBlock(sb, assistantPrefix, "", content.Str)
		}
		return
	}
	content.ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").Str {
		case "text":
			if text := block.Get("text").Str; strings.TrimSpace(text) != "" {
				if role == "user" {
					writeBlock(sb, userPrefix, "", text)
				} else {
					writeBlock(sb, assistantPrefix, "", text)
				}
			}
		case "tool_use":
			if role == "assistant" {
				writeToolCall(sb,
					block.Get("name").Str, block.Get("input"))
			}
		case "tool_result":
			if role == "user" {
				writeBlock(sb, resultPrefix, resultIndent,
					flattenResultBlocks(block.Get("content")))
			}
		}
		return true
	})
}

func renderCodexEvent(sb *strings.Builder, root gjson.Result) {
	if root.Get("type").Str != "response_item" {
		return
	}
	payload := root.Get("payload")
	switch payload.Get("type").Str {
	case "message":
		role := payload.Get("role").Str
		payload.Get("content").ForEach(func(_, block gjson.Result) bool {
			text := block.Get("text").Str
			if strings.TrimSpace(text) == "" {
				return true
			}
			switch block.Get("type").Str {
			case "input_text":
				if role == "user" {
					writeBlock(sb, userPrefix, "", text)
				}
			case "output_text":
				if role == "assistant" {
					writeBlock(sb, assistantPrefix, "", text)
				}
			}
			return true
		})
	case "function_call":
		args := gjson.Parse(payload.Get("arguments").Str)
		writeToolCall(sb, payload.Get("name").Str, args)
	case "custom_tool_call":
		writeToolCall(sb,
			payload.Get("name").Str, payload.Get("input"))
	case "function_call_output", "custom_tool_call_output":
		writeBlock(sb, resultPrefix, resultIndent,
			codexOutputText(payload.Get("output")))
	}
}

// codexOutputText unwraps the double-encoded {"output": ...}
// wrapper codex uses for tool output, falling back to the raw
// value.
func codexOutputText(output gjson.Result) string {
	if output.Type == gjson.String {
		inner := gjson.Parse(output.Str)
		if inner.IsObject() && inner.Get("output").Exists() {
			return inner.Get("output").Str
		}
		return output.Str
	}
	return output.Raw
}

// flattenResultBlocks joins the text blocks of a tool_result
// content value.
func flattenResultBlocks(content gjson.Result) string {
	if content.Type == gjson.String {
		return content.Str
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

// writeBlock emits one entry: prefix on the first line,
// indent on continuation lines, then a blank separator line.
func writeBlock(sb *strings.Builder, prefix, indent, text string) {
	text = strings.TrimRight(text, "\n")
	if strings.TrimSpace(text) == "" {
		return
	}
	for i, line := range strings.Split(text, "\n") {
		if i == 0 {
			sb.WriteString(prefix)
		} else {
			sb.WriteString(indent)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func writeToolCall(sb *strings.Builder, name string, input gjson.Result) {
	if name == "" {
		name = "Unknown"
	}
	sb.WriteString(assistantPrefix)
	sb.WriteString(name)
	sb.WriteString("(")
	sb.WriteString(compactArgs(input))
	sb.WriteString(")\n\n")
}
