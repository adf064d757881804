// Package continuation hands a session that ran out of context
// over to a fresh session, in the same or a different agent,
// seeded with summaries of the full export lineage.
package continuation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentsess/agentsess/internal/derive"
	"github.com/agentsess/agentsess/internal/export"
	"github.com/agentsess/agentsess/internal/lineage"
	"github.com/agentsess/agentsess/internal/session"
	"github.com/agentsess/agentsess/internal/timeutil"
)

// Options configure one continuation run.
type Options struct {
	// Target is the agent to continue in. Unavailable targets
	// silently degrade to the source session's agent; empty means
	// the source agent.
	Target session.Agent

	// Instructions are custom summarization instructions appended
	// verbatim to the transfer prompt.
	Instructions string

	// ExportRoot overrides the default export destination.
	ExportRoot string

	// AnalysisModel runs the codex summarization step; the
	// interactive handoff uses DefaultModel ("" = agent default).
	AnalysisModel string
	DefaultModel  string

	// Launcher is a shell-style command template for spawning
	// agent CLIs. Empty means `$SHELL -i -c`.
	Launcher string

	ClaudeHome string
	CodexHome  string
	CWD        string

	Log *slog.Logger
}

func (o Options) log() *slog.Logger {
	if o.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Log
}

func (o Options) cwd() string {
	if o.CWD != "" {
		return o.CWD
	}
	wd, _ := os.Getwd()
	return wd
}

// Result describes the new session plus the interactive attach
// command the caller should exec with inherited stdio.
type Result struct {
	NewSessionID string
	Agent        session.Agent
	Exports      []string
	AttachArgv   []string
}

var timeNow = time.Now

// Continue runs the full handoff: export the lineage, spawn a
// fresh target session, inject the summarization prompt, stamp
// continuation provenance, and return the attach command.
func Continue(ctx context.Context, src session.Session, opts Options) (*Result, error) {
	log := opts.log()

	exports, err := exportLineage(src, opts)
	if err != nil {
		return nil, err
	}

	target := chooseTarget(opts.Target, src.Agent)
	if target != opts.Target && opts.Target != "" {
		log.Warn("requested agent unavailable, staying with source",
			"requested", opts.Target, "using", target)
	}
	if !Available(target) {
		return nil, fmt.Errorf("%s: %w", target, ErrAgentUnavailable)
	}

	var newID string
	switch target {
	case session.AgentCodex:
		newID, err = spawnCodex(ctx)
	default:
		newID, err = spawnClaude(ctx, opts.Launcher)
	}
	if err != nil {
		return nil, fmt.Errorf("spawning %s session: %w", target, err)
	}
	log.Info("created continuation session",
		"agent", target, "session", newID)

	prompt := summaryPrompt(exports, opts.Instructions,
		target == session.AgentCodex)
	switch target {
	case session.AgentCodex:
		err = injectCodex(ctx, newID, prompt, opts.AnalysisModel)
	default:
		err = injectClaude(ctx, opts.Launcher, newID, prompt)
	}
	if err != nil {
		return nil, fmt.Errorf("seeding context: %w", err)
	}

	stampProvenance(src, target, newID, exports, opts)

	argv, err := attachArgv(target, newID, opts)
	if err != nil {
		return nil, err
	}
	return &Result{
		NewSessionID: newID,
		Agent:        target,
		Exports:      exports,
		AttachArgv:   argv,
	}, nil
}

// exportLineage exports every ancestor of src oldest-first, then
// src itself, returning the export paths in chronological order.
func exportLineage(src session.Session, opts Options) ([]string, error) {
	chain, err := lineage.Chain(src.Path)
	if err != nil {
		return nil, fmt.Errorf("tracing lineage: %w", err)
	}

	var exports []string
	for i := len(chain) - 1; i >= 0; i-- {
		link := chain[i]
		if link.Missing {
			continue
		}
		agent, err := session.DetectAgent(link.Path)
		if err != nil {
			opts.log().Warn("skipping unreadable ancestor",
				"path", link.Path, "error", err)
			continue
		}
		dest, _, err := export.Export(link.Path, agent, export.Options{
			Root: opts.ExportRoot,
			Log:  opts.Log,
		})
		if err != nil {
			if link.Path == src.Path {
				return nil, fmt.Errorf("exporting session: %w", err)
			}
			opts.log().Warn("could not export ancestor",
				"path", link.Path, "error", err)
			continue
		}
		exports = append(exports, dest)
	}
	if len(exports) == 0 {
		return nil, fmt.Errorf("no exportable sessions in lineage of %s",
			src.Path)
	}
	return exports, nil
}

// stampProvenance injects continue_metadata into the new session
// file. Best effort: a stamp failure never fails the handoff.
func stampProvenance(
	src session.Session, target session.Agent,
	newID string, exports []string, opts Options,
) {
	var newPath string
	switch target {
	case session.AgentClaude:
		newPath = filepath.Join(
			session.ClaudeProjectDir(opts.ClaudeHome, opts.cwd()),
			newID+".jsonl",
		)
	case session.AgentCodex:
		newPath = session.FindCodexSource(opts.CodexHome, newID)
	}
	if newPath == "" {
		opts.log().Warn("new session file not found, skipping stamp",
			"session", newID)
		return
	}

	parentAbs, err := filepath.Abs(src.Path)
	if err != nil {
		parentAbs = src.Path
	}
	meta := derive.ContinueMetadata{
		ParentSessionID:   src.ID,
		ParentSessionFile: parentAbs,
		ExportedChatLog:   displayPath(exports[len(exports)-1], opts.cwd()),
		ContinuedAt:       timeutil.UTCISOSeconds(timeNow()),
	}
	if err := derive.InjectFirstLine(
		newPath, "continue_metadata", meta,
	); err != nil {
		opts.log().Warn("could not stamp continuation metadata",
			"path", newPath, "error", err)
	}
}

// displayPath prefers a cwd-relative path when the target sits
// under cwd.
func displayPath(path, cwd string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(cwd, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return abs
	}
	return rel
}

// attachArgv builds the interactive handoff command.
func attachArgv(
	target session.Agent, id string, opts Options,
) ([]string, error) {
	switch target {
	case session.AgentCodex:
		argv := []string{"codex"}
		if opts.DefaultModel != "" {
			argv = append(argv, "--model", opts.DefaultModel)
		}
		return append(argv, "resume", id), nil
	default:
		return ShellArgv(opts.Launcher,
			"claude --resume "+ShellQuote(id))
	}
}
