package derive

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/agentsess/agentsess/internal/session"
)

// buildClaudeToolMap maps tool_use ids to tool names so trimmed
// tool results can cite which tool produced them.
func buildClaudeToolMap(lines []string) map[string]string {
	toolMap := map[string]string{}
	for _, line := range lines {
		if !gjson.Valid(line) ||
			gjson.Get(line, "type").Str != "assistant" {
			continue
		}
		content := gjson.Get(line, "message.content")
		if !content.IsArray() {
			continue
		}
		content.ForEach(func(_, block gjson.Result) bool {
			if block.Get("type").Str == "tool_use" {
				id := block.Get("id").Str
				name := block.Get("name").Str
				if id != "" && name != "" {
					toolMap[id] = name
				}
			}
			return true
		})
	}
	return toolMap
}

// claudeAssistantTextLen sums the text blocks of an assistant
// line.
func claudeAssistantTextLen(line string) int {
	total := 0
	gjson.Get(line, "message.content").ForEach(
		func(_, block gjson.Result) bool {
			if block.Get("type").Str == "text" {
				total += len(block.Get("text").Str)
			}
			return true
		})
	return total
}

// flattenToolResult joins the textual pieces of a tool_result
// content value, which may be a bare string or a block list.
func flattenToolResult(content gjson.Result) string {
	if content.Type == gjson.String {
		return content.Str
	}
	if !content.IsArray() {
		return content.Raw
	}
	var out string
	content.ForEach(func(_, item gjson.Result) bool {
		if t := item.Get("text"); t.Exists() {
			out += t.Str
		} else {
			out += item.Raw
		}
		return true
	})
	return out
}

func claudeAssistantPlaceholder(
	originalLength, lineNum int, parentFile string,
) string {
	return fmt.Sprintf(
		"[Assistant message trimmed - original content was %s "+
			"characters. See line %d of %s for full content]",
		commaFormat(originalLength), lineNum, parentFile,
	)
}

// trimClaudeLines applies the trim to a Claude session, line by
// line, rewriting identity as it goes.
func trimClaudeLines(
	lines []string, opts TrimOptions, newID, parentFile string,
) ([]string, trimStats) {
	threshold := opts.threshold()
	toolSet := opts.toolSet()
	toolMap := buildClaudeToolMap(lines)

	// First pass: pick assistant messages to trim.
	var qualifying []int
	if opts.AssistantMessages != nil {
		for i, line := range lines {
			if gjson.Valid(line) &&
				gjson.Get(line, "type").Str == "assistant" &&
				claudeAssistantTextLen(line) >= threshold {
				qualifying = append(qualifying, i+1)
			}
		}
	}
	selected := selectAssistant(qualifying, opts.AssistantMessages)

	var stats trimStats
	out := make([]string, len(lines))
	for i, line := range lines {
		lineNum := i + 1
		if !gjson.Valid(line) {
			out[i] = line
			continue
		}

		switch gjson.Get(line, "type").Str {
		case "assistant":
			if selected[lineNum] {
				line = trimClaudeAssistant(
					line, threshold, lineNum, parentFile, &stats,
				)
			}
		case "user":
			line = trimClaudeToolResults(
				line, threshold, lineNum, parentFile,
				toolMap, toolSet, opts, &stats,
			)
		}

		out[i] = rewriteIdentity(line, session.AgentClaude, newID)
	}
	return out, stats
}

func trimClaudeAssistant(
	line string, threshold, lineNum int,
	parentFile string, stats *trimStats,
) string {
	content := gjson.Get(line, "message.content")
	trimmed := false
	content.ForEach(func(key, block gjson.Result) bool {
		if block.Get("type").Str != "text" {
			return true
		}
		text := block.Get("text").Str
		if len(text) < threshold {
			return true
		}
		placeholder := claudeAssistantPlaceholder(
			len(text), lineNum, parentFile,
		)
		path := fmt.Sprintf("message.content.%d.text", key.Int())
		if updated, err := sjson.Set(line, path, placeholder); err == nil {
			line = updated
			stats.charsSaved += len(text) - len(placeholder)
			trimmed = true
		}
		return true
	})
	// One message, one count, however many text blocks it holds.
	if trimmed {
		stats.assistant++
	}
	return line
}

func trimClaudeToolResults(
	line string, threshold, lineNum int, parentFile string,
	toolMap map[string]string, toolSet map[string]bool,
	opts TrimOptions, stats *trimStats,
) string {
	content := gjson.Get(line, "message.content")
	if !content.IsArray() {
		return line
	}

	content.ForEach(func(key, block gjson.Result) bool {
		if block.Get("type").Str != "tool_result" {
			return true
		}
		toolName := toolMap[block.Get("tool_use_id").Str]
		if toolName == "" {
			toolName = "Unknown"
		}
		flat := flattenToolResult(block.Get("content"))
		if len(flat) < threshold ||
			!opts.wantsTool(toolSet, toolName) {
			return true
		}
		truncated := truncateContent(
			flat, threshold, lineNum, parentFile,
		)
		saved := len(flat) - len(truncated)
		if saved <= 0 {
			return true
		}
		path := fmt.Sprintf("message.content.%d.content", key.Int())
		if updated, err := sjson.Set(line, path, truncated); err == nil {
			line = updated
			stats.tools++
			stats.charsSaved += saved
		}
		return true
	})

	// Mirror the truncation into the sidecar toolUseResult field
	// some Claude versions record.
	if tur := gjson.Get(line, "toolUseResult.content"); tur.Exists() {
		toolUseID := ""
		gjson.Get(line, "message.content").ForEach(
			func(_, block gjson.Result) bool {
				if block.Get("type").Str == "tool_result" {
					toolUseID = block.Get("tool_use_id").Str
					return false
				}
				return true
			})
		if toolUseID != "" {
			toolName := toolMap[toolUseID]
			if toolName == "" {
				toolName = "Unknown"
			}
			flat := flattenToolResult(tur)
			if len(flat) >= threshold &&
				opts.wantsTool(toolSet, toolName) {
				truncated := truncateContent(
					flat, threshold, lineNum, parentFile,
				)
				if len(truncated) < len(flat) {
					if updated, err := sjson.Set(
						line, "toolUseResult.content", truncated,
					); err == nil {
						line = updated
					}
				}
			}
		}
	}
	return line
}
