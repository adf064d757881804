// Package analysis fans session chunks out to an external LLM
// and merges the per-chunk trimmable-line verdicts. Two modes
// share one verdict contract: parallel per-chunk claude workers,
// or a single batched codex run.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agentsess/agentsess/internal/derive"
)

// DefaultTimeout bounds one worker invocation.
const DefaultTimeout = 10 * time.Minute

// Options configure either analyzer.
type Options struct {
	// Model overrides the CLI's default model.
	Model string

	// Timeout is the per-chunk deadline. Zero = DefaultTimeout.
	Timeout time.Duration

	// WorkDir receives the spilled chunk files. Empty = temp dir.
	WorkDir string

	// CWD is the directory helper sessions are created under.
	CWD string

	// ClaudeHome and CodexHome locate helper session files for
	// cleanup.
	ClaudeHome string
	CodexHome  string

	Log *slog.Logger
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

func (o Options) log() *slog.Logger {
	if o.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Log
}

// spillChunk writes a chunk's candidate labels to disk so the
// prompt can reference a file instead of embedding the body.
func spillChunk(
	workDir string, idx int, chunk []derive.Candidate,
) (string, error) {
	dir := workDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, c := range chunk {
		sb.WriteString(c.Label())
		sb.WriteString("\n")
	}
	path := filepath.Join(dir, fmt.Sprintf("chunk-%03d.txt", idx))
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ClaudeAnalyzer is Mode 1: one headless claude worker per
// chunk, running concurrently.
type ClaudeAnalyzer struct {
	Options
}

// AnalyzeChunks dispatches every chunk in parallel and unions
// the verdicts. A chunk whose worker fails, times out, or
// replies unparseably contributes nothing; the call still
// succeeds.
func (a *ClaudeAnalyzer) AnalyzeChunks(
	ctx context.Context,
	chunks [][]derive.Candidate,
	instructions string,
) ([]int, error) {
	log := a.log()

	type chunkResult struct {
		verdicts []Verdict
		helperID string
	}
	results := make([]chunkResult, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []derive.Candidate) {
			defer wg.Done()

			path, err := spillChunk(a.WorkDir, i, chunk)
			if err != nil {
				log.Warn("chunk spill failed",
					"chunk", i, "error", err)
				return
			}
			defer os.Remove(path)

			prompt := buildPrompt(
				path, i, len(chunks), instructions, false,
			)
			chunkCtx, cancel := context.WithTimeout(
				ctx, a.timeout(),
			)
			defer cancel()

			reply, err := runClaude(chunkCtx, prompt, a.Model)
			if err != nil {
				log.Warn("analysis worker failed",
					"error", &WorkerError{
						Chunk:   i,
						Timeout: errors.Is(err, context.DeadlineExceeded),
						Err:     err,
					})
				return
			}
			if extractArray(reply.text) == "" {
				log.Warn("analysis worker failed",
					"error", &WorkerError{Chunk: i, Unparseable: true})
			}
			results[i] = chunkResult{
				verdicts: parseVerdicts(reply.text),
				helperID: reply.helperID,
			}
		}(i, chunk)
	}
	wg.Wait()

	var lines []int
	for _, r := range results {
		for _, v := range r.verdicts {
			lines = append(lines, v.Line)
		}
		cleanupClaudeHelper(a.ClaudeHome, a.CWD, r.helperID)
	}
	return lines, nil
}

// CodexAnalyzer is Mode 2: every chunk spills into one file and
// a single codex batch run explores it internally.
type CodexAnalyzer struct {
	Options
}

// AnalyzeChunks flattens the chunks into one spilled file,
// invokes codex exec once, and parses the combined verdicts.
func (a *CodexAnalyzer) AnalyzeChunks(
	ctx context.Context,
	chunks [][]derive.Candidate,
	instructions string,
) ([]int, error) {
	var all []derive.Candidate
	for _, chunk := range chunks {
		all = append(all, chunk...)
	}
	if len(all) == 0 {
		return nil, nil
	}

	path, err := spillChunk(a.WorkDir, 0, all)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	prompt := buildPrompt(path, 0, 1, instructions, true)
	runCtx, cancel := context.WithTimeout(ctx, a.timeout())
	defer cancel()

	reply, err := runCodex(runCtx, prompt, a.Model)
	if err != nil {
		a.log().Warn("batch analysis failed",
			"error", &WorkerError{
				Timeout: errors.Is(err, context.DeadlineExceeded),
				Err:     err,
			})
		return nil, nil
	}
	cleanupCodexHelper(a.CodexHome, reply.helperID)

	var lines []int
	for _, v := range parseVerdicts(reply.text) {
		lines = append(lines, v.Line)
	}
	return lines, nil
}
