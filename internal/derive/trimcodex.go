package derive

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/agentsess/agentsess/internal/session"
)

// buildCodexToolMap maps function_call ids to tool names.
func buildCodexToolMap(lines []string) map[string]string {
	toolMap := map[string]string{}
	for _, line := range lines {
		if !gjson.Valid(line) ||
			gjson.Get(line, "type").Str != "response_item" {
			continue
		}
		payload := gjson.Get(line, "payload")
		if payload.Get("type").Str != "function_call" {
			continue
		}
		id := payload.Get("call_id").Str
		name := payload.Get("name").Str
		if id != "" && name != "" {
			toolMap[id] = name
		}
	}
	return toolMap
}

// codexOutputLength measures the content of a Codex tool
// output, which is usually JSON-encoded a second time with an
// inner "output" field.
func codexOutputLength(output string) int {
	parsed := gjson.Parse(output)
	if parsed.IsObject() {
		if inner := parsed.Get("output"); inner.Exists() {
			if inner.Type == gjson.String {
				return len(inner.Str)
			}
			return len(inner.Raw)
		}
	}
	return len(output)
}

// codexAssistantTextLen sums the output_text blocks of an
// assistant response_item.
func codexAssistantTextLen(line string) int {
	payload := gjson.Get(line, "payload")
	if payload.Get("type").Str != "message" ||
		payload.Get("role").Str != "assistant" {
		return 0
	}
	total := 0
	payload.Get("content").ForEach(
		func(_, block gjson.Result) bool {
			if block.Get("type").Str == "output_text" {
				total += len(block.Get("text").Str)
			}
			return true
		})
	return total
}

// suppressedCodexOutput rebuilds a double-encoded output value
// with a placeholder, preserving the original metadata.
func suppressedCodexOutput(
	toolName string, originalLength int, metadata json.RawMessage,
) string {
	placeholder := fmt.Sprintf(
		"[Results from %s tool suppressed - original content "+
			"was %s characters]",
		toolName, commaFormat(originalLength),
	)
	out, err := json.Marshal(struct {
		Output   string          `json:"output"`
		Metadata json.RawMessage `json:"metadata"`
	}{Output: placeholder, Metadata: metadata})
	if err != nil {
		return placeholder
	}
	return string(out)
}

func codexAssistantPlaceholder(originalLength int) string {
	return fmt.Sprintf(
		"[Assistant message trimmed - original content was %s "+
			"characters]",
		commaFormat(originalLength),
	)
}

// trimCodexLines applies the trim to a Codex session.
func trimCodexLines(
	lines []string, opts TrimOptions, newID string,
) ([]string, trimStats) {
	threshold := opts.threshold()
	toolSet := opts.toolSet()
	toolMap := buildCodexToolMap(lines)

	var qualifying []int
	if opts.AssistantMessages != nil {
		for i, line := range lines {
			if gjson.Valid(line) &&
				gjson.Get(line, "type").Str == "response_item" &&
				codexAssistantTextLen(line) >= threshold {
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

		if gjson.Get(line, "type").Str == "response_item" {
			if selected[lineNum] {
				line = trimCodexAssistant(line, threshold, &stats)
			}
			line = trimCodexToolOutput(
				line, threshold, toolMap, toolSet, opts, &stats,
			)
		}

		out[i] = rewriteIdentity(line, session.AgentCodex, newID)
	}
	return out, stats
}

func trimCodexAssistant(
	line string, threshold int, stats *trimStats,
) string {
	payload := gjson.Get(line, "payload")
	if payload.Get("type").Str != "message" ||
		payload.Get("role").Str != "assistant" {
		return line
	}
	trimmed := false
	payload.Get("content").ForEach(
		func(key, block gjson.Result) bool {
			if block.Get("type").Str != "output_text" {
				return true
			}
			text := block.Get("text").Str
			if len(text) < threshold {
				return true
			}
			placeholder := codexAssistantPlaceholder(len(text))
			path := fmt.Sprintf(
				"payload.content.%d.text", key.Int(),
			)
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

func trimCodexToolOutput(
	line string, threshold int,
	toolMap map[string]string, toolSet map[string]bool,
	opts TrimOptions, stats *trimStats,
) string {
	payload := gjson.Get(line, "payload")
	if payload.Get("type").Str != "function_call_output" {
		return line
	}

	toolName := toolMap[payload.Get("call_id").Str]
	if toolName == "" {
		toolName = "Unknown"
	}
	output := payload.Get("output").Str
	length := codexOutputLength(output)
	if length < threshold || !opts.wantsTool(toolSet, toolName) {
		return line
	}

	metadata := json.RawMessage("{}")
	if parsed := gjson.Parse(output); parsed.IsObject() {
		if md := parsed.Get("metadata"); md.Exists() {
			metadata = json.RawMessage(md.Raw)
		}
	}

	suppressed := suppressedCodexOutput(toolName, length, metadata)
	if updated, err := sjson.Set(line, "payload.output", suppressed); err == nil {
		line = updated
		stats.tools++
		stats.charsSaved += length - len(suppressed)
	}
	return line
}
