package derive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/agentsess/agentsess/internal/session"
)

// DefaultThreshold is the character length at which tool
// results and assistant messages become trim candidates.
const DefaultThreshold = 500

// TrimOptions control a deterministic trim.
type TrimOptions struct {
	// Tools restricts trimming to these tool names
	// (case-insensitive). Empty means all tools.
	Tools []string

	// Threshold is the minimum content length to trim.
	// Zero means DefaultThreshold.
	Threshold int

	// AssistantMessages selects assistant messages to replace
	// wholesale: positive N trims the first N qualifying
	// messages, negative N trims all but the last |N|. Nil
	// leaves assistant messages alone.
	AssistantMessages *int

	// OutputDir overrides the destination directory.
	OutputDir string
}

func (o TrimOptions) threshold() int {
	if o.Threshold <= 0 {
		return DefaultThreshold
	}
	return o.Threshold
}

// toolSet returns the lowercased target set, or nil for "all".
func (o TrimOptions) toolSet() map[string]bool {
	if len(o.Tools) == 0 {
		return nil
	}
	set := make(map[string]bool, len(o.Tools))
	for _, t := range o.Tools {
		set[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return set
}

func (o TrimOptions) wantsTool(set map[string]bool, name string) bool {
	return set == nil || set[strings.ToLower(name)]
}

// Trim produces a size-reduced copy of parentPath as a new
// session with fresh identity and trim_metadata on its first
// event. The output file appears only after the whole trim
// succeeds.
func Trim(parentPath string, opts TrimOptions) (Result, error) {
	agent, err := session.DetectAgent(parentPath)
	if err != nil {
		return Result{}, err
	}

	lines, err := session.ReadLines(parentPath)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", parentPath, err)
	}

	parentAbs, err := filepath.Abs(parentPath)
	if err != nil {
		parentAbs = parentPath
	}

	id, outPath, err := NewDerivedPath(agent, parentPath, opts.OutputDir)
	if err != nil {
		return Result{}, err
	}

	var (
		out   []string
		stats trimStats
	)
	switch agent {
	case session.AgentCodex:
		out, stats = trimCodexLines(lines, opts, id)
	default:
		out, stats = trimClaudeLines(lines, opts, id, parentAbs)
	}

	res := Result{
		SessionID:        id,
		OutputFile:       outPath,
		Agent:            agent,
		ToolsTrimmed:     stats.tools,
		AssistantTrimmed: stats.assistant,
		CharsSaved:       stats.charsSaved,
		TokensSaved:      stats.charsSaved / 4,
	}

	content := strings.Join(out, "\n") + "\n"
	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		return Result{}, err
	}

	md := NewTrimMetadata(parentAbs, TrimParams{
		Threshold:         opts.threshold(),
		Tools:             opts.Tools,
		TrimAssistantMsgs: opts.AssistantMessages,
	}, TrimStats{
		NumToolsTrimmed:     res.ToolsTrimmed,
		NumAssistantTrimmed: res.AssistantTrimmed,
		TokensSaved:         res.TokensSaved,
	})
	if err := InjectFirstLine(outPath, "trim_metadata", md); err != nil {
		os.Remove(outPath)
		return Result{}, err
	}
	return res, nil
}

type trimStats struct {
	tools      int
	assistant  int
	charsSaved int
}

// selectAssistant picks the 1-based line numbers of assistant
// messages to replace, from the qualifying lines in order.
// Positive n picks the first n; negative n picks all but the
// last |n|.
func selectAssistant(qualifying []int, n *int) map[int]bool {
	selected := map[int]bool{}
	if n == nil {
		return selected
	}
	switch {
	case *n > 0:
		count := min(*n, len(qualifying))
		for _, ln := range qualifying[:count] {
			selected[ln] = true
		}
	case *n < 0:
		keep := min(-*n, len(qualifying))
		for _, ln := range qualifying[:len(qualifying)-keep] {
			selected[ln] = true
		}
	}
	return selected
}

// truncationNotice is appended after the preserved prefix of a
// trimmed tool result.
func truncationNotice(
	originalLength, threshold, lineNum int, parentFile string,
) string {
	return fmt.Sprintf(
		"\n\n[...truncated - original content was %s characters, "+
			"showing first %d. See line %d of %s for full content]",
		commaFormat(originalLength), threshold, lineNum, parentFile,
	)
}

// truncateContent keeps the first threshold characters of
// content and appends a truncation notice, unless doing so
// would not shrink the content.
func truncateContent(
	content string, threshold, lineNum int, parentFile string,
) string {
	if len(content) <= threshold {
		return content
	}
	cut := threshold
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	result := content[:cut] +
		truncationNotice(len(content), threshold, lineNum, parentFile)
	if len(result) >= len(content) {
		return content
	}
	return result
}
