package derive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/agentsess/agentsess/internal/timeutil"
)

// TrimParams records what a trim was asked to do.
type TrimParams struct {
	Method             string   `json:"method,omitempty"`
	Threshold          int      `json:"threshold,omitempty"`
	Tools              []string `json:"tools"`
	TrimAssistantMsgs  *int     `json:"trim_assistant_messages,omitempty"`
	ContentThreshold   int      `json:"content_threshold,omitempty"`
	PreserveRecent     int      `json:"preserve_recent,omitempty"`
	PreserveHead       int      `json:"preserve_head,omitempty"`
	AnalysisAgent      string   `json:"analysis_agent,omitempty"`
	CustomInstructions string   `json:"custom_instructions,omitempty"`
}

// TrimStats records what a trim actually did.
type TrimStats struct {
	NumToolsTrimmed     int `json:"num_tools_trimmed,omitempty"`
	NumAssistantTrimmed int `json:"num_assistant_trimmed,omitempty"`
	NumLinesTrimmed     int `json:"num_lines_trimmed,omitempty"`
	TokensSaved         int `json:"tokens_saved"`
}

// TrimMetadata is injected into the first event of a trimmed
// session.
type TrimMetadata struct {
	ParentFile string     `json:"parent_file"`
	TrimmedAt  string     `json:"trimmed_at"`
	TrimParams TrimParams `json:"trim_params"`
	Stats      TrimStats  `json:"stats"`
}

// ContinueMetadata is injected into the first event of a
// continuation session.
type ContinueMetadata struct {
	ParentSessionID   string `json:"parent_session_id"`
	ParentSessionFile string `json:"parent_session_file"`
	ExportedChatLog   string `json:"exported_chat_log,omitempty"`
	ContinuedAt       string `json:"continued_at"`
}

// NewTrimMetadata stamps the current UTC time onto a metadata
// record for parentFile.
func NewTrimMetadata(
	parentFile string, params TrimParams, stats TrimStats,
) TrimMetadata {
	return TrimMetadata{
		ParentFile: parentFile,
		TrimmedAt:  timeutil.UTCISOSeconds(timeNow()),
		TrimParams: params,
		Stats:      stats,
	}
}

// InjectFirstLine sets key on the first line of path to the
// JSON encoding of value, rewriting the file in place. A first
// line that is not valid JSON leaves the file untouched.
func InjectFirstLine(path, key string, value any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) == 0 || !gjson.Valid(lines[0]) {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	first, err := sjson.SetRaw(lines[0], key, string(raw))
	if err != nil {
		return fmt.Errorf("injecting %s: %w", key, err)
	}
	lines[0] = first
	return writeFileAtomic(path, strings.Join(lines, "\n"))
}

// writeFileAtomic writes content to a temp file in the target
// directory and renames it into place.
func writeFileAtomic(path, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
