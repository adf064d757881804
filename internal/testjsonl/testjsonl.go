// Package testjsonl provides shared JSONL fixture builders for
// Claude and Codex session test data.
package testjsonl

import (
	"encoding/json"
	"strings"
)

// ClaudeUserJSON returns a Claude user message as a JSON string.
func ClaudeUserJSON(
	content, timestamp string, cwd ...string,
) string {
	m := map[string]any{
		"type":      "user",
		"timestamp": timestamp,
		"message": map[string]any{
			"content": content,
		},
	}
	if len(cwd) > 0 {
		m["cwd"] = cwd[0]
	}
	return mustMarshal(m)
}

// ClaudeUserWithSessionIDJSON returns a Claude user message
// with a sessionId field as a JSON string.
func ClaudeUserWithSessionIDJSON(
	content, timestamp, sessionID string, cwd ...string,
) string {
	m := map[string]any{
		"type":      "user",
		"timestamp": timestamp,
		"sessionId": sessionID,
		"message": map[string]any{
			"content": content,
		},
	}
	if len(cwd) > 0 {
		m["cwd"] = cwd[0]
	}
	return mustMarshal(m)
}

// ClaudeMetaUserJSON returns a Claude user message with
// optional isMeta and isCompactSummary flags as a JSON string.
func ClaudeMetaUserJSON(
	content, timestamp string, meta, compact bool,
) string {
	m := map[string]any{
		"type":      "user",
		"timestamp": timestamp,
		"message": map[string]any{
			"content": content,
		},
	}
	if meta {
		m["isMeta"] = true
	}
	if compact {
		m["isCompactSummary"] = true
	}
	return mustMarshal(m)
}

// ClaudeAssistantJSON returns a Claude assistant message as a
// JSON string. content is a bare string or a block array.
func ClaudeAssistantJSON(content any, timestamp string) string {
	m := map[string]any{
		"type":      "assistant",
		"timestamp": timestamp,
		"message": map[string]any{
			"content": content,
		},
	}
	return mustMarshal(m)
}

// ClaudeAssistantTextJSON returns a Claude assistant message
// with a single text block.
func ClaudeAssistantTextJSON(text, timestamp string) string {
	return ClaudeAssistantJSON(
		[]map[string]string{{"type": "text", "text": text}},
		timestamp,
	)
}

// ClaudeToolUseJSON returns a Claude assistant message carrying
// a tool_use block.
func ClaudeToolUseJSON(
	name string, input map[string]any, timestamp string,
) string {
	return ClaudeAssistantJSON(
		[]map[string]any{{
			"type":  "tool_use",
			"id":    "toolu_test",
			"name":  name,
			"input": input,
		}},
		timestamp,
	)
}

// ClaudeToolResultJSON returns a Claude user message carrying a
// tool_result block with string content.
func ClaudeToolResultJSON(content, timestamp string) string {
	m := map[string]any{
		"type":      "user",
		"timestamp": timestamp,
		"message": map[string]any{
			"content": []map[string]any{{
				"type":        "tool_result",
				"tool_use_id": "toolu_test",
				"content":     content,
			}},
		},
	}
	return mustMarshal(m)
}

// ClaudeSidechainUserJSON returns a Claude user message flagged
// as a sidechain, with an optional git branch.
func ClaudeSidechainUserJSON(
	content, timestamp, branch string,
) string {
	m := map[string]any{
		"type":        "user",
		"timestamp":   timestamp,
		"isSidechain": true,
		"message": map[string]any{
			"content": content,
		},
	}
	if branch != "" {
		m["gitBranch"] = branch
	}
	return mustMarshal(m)
}

// CodexSessionMetaJSON returns a Codex session_meta message as
// a JSON string. branch may be empty.
func CodexSessionMetaJSON(
	id, cwd, branch, timestamp string,
) string {
	payload := map[string]any{
		"id":  id,
		"cwd": cwd,
	}
	if branch != "" {
		payload["git"] = map[string]any{"branch": branch}
	}
	m := map[string]any{
		"type":      "session_meta",
		"timestamp": timestamp,
		"payload":   payload,
	}
	return mustMarshal(m)
}

// CodexMsgJSON returns a Codex response_item message as a JSON
// string.
func CodexMsgJSON(role, text, timestamp string) string {
	contentType := "output_text"
	if role == "user" {
		contentType = "input_text"
	}
	m := map[string]any{
		"type":      "response_item",
		"timestamp": timestamp,
		"payload": map[string]any{
			"type": "message",
			"role": role,
			"content": []map[string]string{
				{
					"type": contentType,
					"text": text,
				},
			},
		},
	}
	return mustMarshal(m)
}

// CodexFunctionCallJSON returns a Codex function_call
// response_item as a JSON string.
func CodexFunctionCallJSON(
	name, arguments, timestamp string,
) string {
	payload := map[string]any{
		"type":    "function_call",
		"name":    name,
		"call_id": "call_test",
	}
	if arguments != "" {
		payload["arguments"] = arguments
	}
	m := map[string]any{
		"type":      "response_item",
		"timestamp": timestamp,
		"payload":   payload,
	}
	return mustMarshal(m)
}

// CodexFunctionCallOutputJSON returns a Codex
// function_call_output response_item as a JSON string. The
// output field carries the raw string the CLI recorded.
func CodexFunctionCallOutputJSON(
	output, timestamp string,
) string {
	m := map[string]any{
		"type":      "response_item",
		"timestamp": timestamp,
		"payload": map[string]any{
			"type":    "function_call_output",
			"call_id": "call_test",
			"output":  output,
		},
	}
	return mustMarshal(m)
}

// WithTrimMetadata injects trim provenance into a JSON line,
// the way derived sessions record their parent.
func WithTrimMetadata(line, parentFile, trimmedAt string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		panic(err)
	}
	m["trim_metadata"] = map[string]any{
		"parent_file": parentFile,
		"trimmed_at":  trimmedAt,
		"trim_params": map[string]any{
			"threshold": 1500,
			"tools":     []string{"Bash", "Read"},
		},
		"stats": map[string]any{
			"num_tools_trimmed":     1,
			"num_assistant_trimmed": 0,
			"tokens_saved":          100,
		},
	}
	return mustMarshal(m)
}

// WithContinueMetadata injects continuation provenance into a
// JSON line.
func WithContinueMetadata(
	line, parentID, parentFile, continuedAt string,
) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		panic(err)
	}
	m["continue_metadata"] = map[string]any{
		"parent_session_id":   parentID,
		"parent_session_file": parentFile,
		"continued_at":        continuedAt,
	}
	return mustMarshal(m)
}

// WithField injects an arbitrary top-level field into a JSON
// line.
func WithField(line, key string, value any) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		panic(err)
	}
	m[key] = value
	return mustMarshal(m)
}

// JoinJSONL joins JSON lines with newlines and appends a
// trailing newline.
func JoinJSONL(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

// SessionBuilder constructs JSONL session content using a
// fluent API.
type SessionBuilder struct {
	lines []string
}

// NewSessionBuilder returns a new empty SessionBuilder.
func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{}
}

// AddClaudeUser appends a Claude user message line.
func (b *SessionBuilder) AddClaudeUser(
	timestamp, content string, cwd ...string,
) *SessionBuilder {
	b.lines = append(b.lines, ClaudeUserJSON(content, timestamp, cwd...))
	return b
}

// AddClaudeUserWithSessionID appends a Claude user message
// line with a sessionId field.
func (b *SessionBuilder) AddClaudeUserWithSessionID(
	timestamp, content, sessionID string, cwd ...string,
) *SessionBuilder {
	b.lines = append(
		b.lines,
		ClaudeUserWithSessionIDJSON(
			content, timestamp, sessionID, cwd...,
		),
	)
	return b
}

// AddClaudeMetaUser appends a Claude user message line with
// isMeta and/or isCompactSummary flags.
func (b *SessionBuilder) AddClaudeMetaUser(
	timestamp, content string, meta, compact bool,
) *SessionBuilder {
	b.lines = append(
		b.lines,
		ClaudeMetaUserJSON(content, timestamp, meta, compact),
	)
	return b
}

// AddClaudeAssistant appends a Claude assistant message line
// with a single text block.
func (b *SessionBuilder) AddClaudeAssistant(
	timestamp, text string,
) *SessionBuilder {
	b.lines = append(
		b.lines, ClaudeAssistantTextJSON(text, timestamp),
	)
	return b
}

// AddClaudeToolUse appends a Claude tool_use line.
func (b *SessionBuilder) AddClaudeToolUse(
	timestamp, name string, input map[string]any,
) *SessionBuilder {
	b.lines = append(
		b.lines, ClaudeToolUseJSON(name, input, timestamp),
	)
	return b
}

// AddClaudeToolResult appends a Claude tool_result line.
func (b *SessionBuilder) AddClaudeToolResult(
	timestamp, content string,
) *SessionBuilder {
	b.lines = append(
		b.lines, ClaudeToolResultJSON(content, timestamp),
	)
	return b
}

// AddCodexMeta appends a Codex session_meta line.
func (b *SessionBuilder) AddCodexMeta(
	timestamp, id, cwd, branch string,
) *SessionBuilder {
	b.lines = append(
		b.lines,
		CodexSessionMetaJSON(id, cwd, branch, timestamp),
	)
	return b
}

// AddCodexMessage appends a Codex response_item message line.
func (b *SessionBuilder) AddCodexMessage(
	timestamp, role, text string,
) *SessionBuilder {
	b.lines = append(b.lines, CodexMsgJSON(role, text, timestamp))
	return b
}

// AddCodexFunctionCall appends a Codex function_call line.
func (b *SessionBuilder) AddCodexFunctionCall(
	timestamp, name, arguments string,
) *SessionBuilder {
	b.lines = append(
		b.lines,
		CodexFunctionCallJSON(name, arguments, timestamp),
	)
	return b
}

// AddCodexFunctionCallOutput appends a Codex
// function_call_output line.
func (b *SessionBuilder) AddCodexFunctionCallOutput(
	timestamp, output string,
) *SessionBuilder {
	b.lines = append(
		b.lines,
		CodexFunctionCallOutputJSON(output, timestamp),
	)
	return b
}

// AddRaw appends an arbitrary raw line.
func (b *SessionBuilder) AddRaw(line string) *SessionBuilder {
	b.lines = append(b.lines, line)
	return b
}

// String returns the JSONL content with a trailing newline.
func (b *SessionBuilder) String() string {
	return strings.Join(b.lines, "\n") + "\n"
}

// StringNoTrailingNewline returns the JSONL content without a
// trailing newline.
func (b *SessionBuilder) StringNoTrailingNewline() string {
	return strings.Join(b.lines, "\n")
}

func mustMarshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
