package derive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/agentsess/agentsess/internal/session"
)

const (
	// SmartTrimFloor is the hard floor: verdicts for lines with
	// less extractable content than this are dropped.
	SmartTrimFloor = 500

	// minCandidateLength keeps lines out of the candidate pool
	// when trimming them cannot save meaningful space (the
	// placeholder itself costs a few hundred characters).
	minCandidateLength = 800

	// extractMinLength is the per-field extraction cutoff.
	extractMinLength = 200

	// DefaultPreserveRecent protects the newest events.
	DefaultPreserveRecent = 10

	// DefaultChunkSize is the candidate count per analysis chunk.
	DefaultChunkSize = 100
)

// Candidate is one trimmable line offered to the analysis
// pipeline. Line is the 0-based index into the session file.
type Candidate struct {
	Line    int
	Length  int
	Preview string
}

// Label renders the candidate the way analysis prompts list it.
func (c Candidate) Label() string {
	return fmt.Sprintf(
		"LINE %d [len=%d]: %s", c.Line, c.Length, c.Preview,
	)
}

// Analyzer returns the line numbers an external model judged
// trimmable for the given chunks. Implementations must treat a
// failed chunk as contributing no verdicts.
type Analyzer interface {
	AnalyzeChunks(
		ctx context.Context,
		chunks [][]Candidate,
		instructions string,
	) ([]int, error)
}

// SmartTrimOptions control an LLM-guided trim.
type SmartTrimOptions struct {
	Instructions   string
	ExcludeTypes   []string
	PreserveRecent int // 0 = DefaultPreserveRecent, negative = none
	PreserveHead   int
	ChunkSize      int // 0 = DefaultChunkSize
	OutputDir      string
	AnalysisAgent  string // which CLI ran the analysis
}

func (o SmartTrimOptions) preserveRecent() int {
	if o.PreserveRecent == 0 {
		return DefaultPreserveRecent
	}
	if o.PreserveRecent < 0 {
		return 0
	}
	return o.PreserveRecent
}

func (o SmartTrimOptions) chunkSize() int {
	if o.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return o.ChunkSize
}

// labeledContent is one extracted field of a line.
type labeledContent struct {
	label   string
	content string
}

// extractRelevant pulls the trimmable text out of one event,
// handling both dialects by shape rather than by session agent.
func extractRelevant(line string) []labeledContent {
	if !gjson.Valid(line) {
		return nil
	}
	var out []labeledContent
	add := func(label, content string) {
		if len(content) >= extractMinLength {
			out = append(out, labeledContent{label, content})
		}
	}

	switch gjson.Get(line, "type").Str {
	case "response_item":
		payload := gjson.Get(line, "payload")
		switch payload.Get("type").Str {
		case "message":
			label := roleLabel(payload.Get("role").Str)
			payload.Get("content").ForEach(
				func(_, block gjson.Result) bool {
					add(label, block.Get("text").Str)
					return true
				})
		case "function_call_output":
			add("[TOOL_RESULT]", payload.Get("output").Str)
		}

	case "message": // old Codex layout
		label := roleLabel(gjson.Get(line, "role").Str)
		gjson.Get(line, "content").ForEach(
			func(_, block gjson.Result) bool {
				add(label, block.Get("text").Str)
				return true
			})

	case "function_call_output": // old Codex layout
		add("[TOOL_RESULT]", gjson.Get(line, "output").Str)

	case "assistant":
		gjson.Get(line, "message.content").ForEach(
			func(_, block gjson.Result) bool {
				if block.Get("type").Str == "text" {
					add("[ASSISTANT]", block.Get("text").Str)
				}
				return true
			})

	case "user":
		gjson.Get(line, "message.content").ForEach(
			func(_, block gjson.Result) bool {
				switch block.Get("type").Str {
				case "text":
					add("[USER]", block.Get("text").Str)
				case "tool_result":
					if c := block.Get("content"); c.Type == gjson.String {
						add("[TOOL_RESULT]", c.Str)
					}
				case "":
					if t := block.Get("text"); t.Exists() {
						add("[USER]", t.Str)
					}
				}
				return true
			})
	}
	return out
}

func roleLabel(role string) string {
	if role == "user" {
		return "[USER]"
	}
	return "[ASSISTANT]"
}

// isUserEvent reports whether a line carries user-authored text
// in either dialect. Claude user events that only carry tool
// results do not count.
func isUserEvent(line string) bool {
	switch gjson.Get(line, "type").Str {
	case "user":
		content := gjson.Get(line, "message.content")
		if content.Type == gjson.String {
			return true
		}
		userText := false
		content.ForEach(func(_, block gjson.Result) bool {
			switch block.Get("type").Str {
			case "text":
				userText = true
			case "":
				userText = block.Get("text").Exists()
			}
			return !userText
		})
		return userText
	case "response_item":
		payload := gjson.Get(line, "payload")
		return payload.Get("type").Str == "message" &&
			payload.Get("role").Str == "user"
	case "message":
		return gjson.Get(line, "role").Str == "user"
	}
	return false
}

// SmartTrimCandidates builds the candidate pool: one entry per
// line with enough extractable content to be worth trimming.
func SmartTrimCandidates(lines []string) []Candidate {
	var out []Candidate
	for idx, line := range lines {
		relevant := extractRelevant(line)
		if len(relevant) == 0 {
			continue
		}
		total := 0
		for _, lc := range relevant {
			total += len(lc.content)
		}
		if total < minCandidateLength {
			continue
		}

		var parts []string
		for _, lc := range relevant[:min(2, len(relevant))] {
			preview := lc.content
			if len(preview) > 300 {
				preview = preview[:300]
			}
			preview = strings.TrimSpace(
				strings.ReplaceAll(preview, "\n", " "),
			)
			parts = append(parts, lc.label+": "+preview)
		}
		out = append(out, Candidate{
			Line:    idx,
			Length:  total,
			Preview: strings.Join(parts, " | "),
		})
	}
	return out
}

// protectedLines marks line indices smart-trim must never
// touch. User messages are protected unconditionally;
// ExcludeTypes, the head window, and the recent window add to
// that.
func protectedLines(
	lines []string, opts SmartTrimOptions,
) map[int]bool {
	protected := map[int]bool{}
	exclude := map[string]bool{}
	for _, t := range opts.ExcludeTypes {
		exclude[t] = true
	}
	for idx, line := range lines {
		if !gjson.Valid(line) {
			continue
		}
		if isUserEvent(line) || exclude[gjson.Get(line, "type").Str] {
			protected[idx] = true
		}
	}
	for idx := 0; idx < min(opts.PreserveHead, len(lines)); idx++ {
		protected[idx] = true
	}
	recent := opts.preserveRecent()
	for idx := max(0, len(lines)-recent); idx < len(lines); idx++ {
		protected[idx] = true
	}
	return protected
}

// chunkCandidates partitions the pool in original order.
func chunkCandidates(pool []Candidate, size int) [][]Candidate {
	var chunks [][]Candidate
	for start := 0; start < len(pool); start += size {
		chunks = append(chunks, pool[start:min(start+size, len(pool))])
	}
	return chunks
}

// SmartTrim runs the full LLM-guided trim. A nil result with a
// nil error means the analysis found nothing worth trimming and
// no file was written.
func SmartTrim(
	ctx context.Context,
	parentPath string,
	an Analyzer,
	opts SmartTrimOptions,
) (*Result, error) {
	agent, err := session.DetectAgent(parentPath)
	if err != nil {
		return nil, err
	}
	lines, err := session.ReadLines(parentPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", parentPath, err)
	}

	pool := SmartTrimCandidates(lines)
	if len(pool) == 0 {
		return nil, nil
	}
	lengths := make(map[int]int, len(pool))
	for _, c := range pool {
		lengths[c.Line] = c.Length
	}

	verdicts, err := an.AnalyzeChunks(
		ctx, chunkCandidates(pool, opts.chunkSize()),
		opts.Instructions,
	)
	if err != nil {
		return nil, err
	}

	protected := protectedLines(lines, opts)
	plan := map[int]bool{}
	for _, v := range verdicts {
		length, isCandidate := lengths[v]
		if !isCandidate || protected[v] || length < SmartTrimFloor {
			continue
		}
		plan[v] = true
	}
	if len(plan) == 0 {
		return nil, nil
	}

	parentAbs, err := filepath.Abs(parentPath)
	if err != nil {
		parentAbs = parentPath
	}
	id, outPath, err := NewDerivedPath(agent, parentPath, opts.OutputDir)
	if err != nil {
		return nil, err
	}

	charsSaved := 0
	out := make([]string, len(lines))
	for idx, line := range lines {
		if plan[idx] {
			placeholder := fmt.Sprintf(
				`{"trimmed_line":true,"original_length":%d,"line_number":%d}`,
				len(line), idx,
			)
			charsSaved += len(line) - len(placeholder)
			out[idx] = placeholder
			continue
		}
		out[idx] = rewriteIdentity(line, agent, id)
	}

	content := strings.Join(out, "\n") + "\n"
	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		return nil, err
	}

	res := &Result{
		SessionID:    id,
		OutputFile:   outPath,
		Agent:        agent,
		LinesTrimmed: len(plan),
		CharsSaved:   charsSaved,
		TokensSaved:  charsSaved / 4,
	}
	md := NewTrimMetadata(parentAbs, TrimParams{
		Method:             "smart-trim",
		ContentThreshold:   extractMinLength,
		PreserveRecent:     opts.preserveRecent(),
		PreserveHead:       opts.PreserveHead,
		AnalysisAgent:      opts.AnalysisAgent,
		CustomInstructions: opts.Instructions,
	}, TrimStats{
		NumLinesTrimmed: res.LinesTrimmed,
		TokensSaved:     res.TokensSaved,
	})
	if err := InjectFirstLine(outPath, "trim_metadata", md); err != nil {
		os.Remove(outPath)
		return nil, err
	}
	return res, nil
}
