package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// sidechainWindow bounds how many leading events are read
	// for the sidechain flag and other header metadata.
	sidechainWindow = 30
	// cwdWindow bounds how many leading events are read for
	// working-directory discovery.
	cwdWindow = 5
)

// DetectAgent inspects the first 20 events of a session file
// and reports which dialect wrote it. Claude is the fallback
// when nothing matches.
func DetectAgent(path string) (Agent, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	lr := newLineReader(f)
	for i := 0; i < 20; i++ {
		line, ok := lr.next()
		if !ok {
			break
		}
		if !gjson.Valid(line) {
			continue
		}
		switch gjson.Get(line, "type").Str {
		case "session_meta":
			return AgentCodex, nil
		case "response_item":
			if gjson.Get(line, "payload").Exists() {
				return AgentCodex, nil
			}
		case "user", "assistant":
			if gjson.Get(line, "message").Exists() {
				return AgentClaude, nil
			}
		}
		if gjson.Get(line, "sessionId").Exists() {
			return AgentClaude, nil
		}
	}
	return AgentClaude, nil
}

// Classify reads a session file and produces its uniform
// record. Only a bounded prefix is parsed in full; the rest of
// the file is streamed for counts and previews.
func Classify(path string) (Session, error) {
	agent, err := DetectAgent(path)
	if err != nil {
		return Session{}, err
	}
	return ClassifyAs(path, agent)
}

// ClassifyAs is Classify with the dialect already known.
func ClassifyAs(path string, agent Agent) (Session, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Session{}, fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return Session{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s := Session{
		ID:         IDFromPath(path),
		Agent:      agent,
		Path:       path,
		ModifiedAt: info.ModTime(),
		Derivation: DerivationOriginal,
	}
	// Codex files not following the rollout naming scheme get
	// their ID from session_meta instead of the filename stem.
	if agent == AgentCodex && RolloutUUID(filepath.Base(path)) == "" {
		s.ID = ""
	}

	var (
		lr            = newLineReader(f)
		idx           int
		messageEvents int
		fingerprinted bool
	)

	for {
		line, ok := lr.next()
		if !ok {
			break
		}
		idx++
		s.LineCount++

		if !gjson.Valid(line) {
			continue
		}
		if idx == 1 {
			readDerivation(line, &s)
			if gjson.Get(line, HelperMarkerKey).Exists() {
				s.Helper = true
			}
		}

		switch agent {
		case AgentClaude:
			messageEvents += scanClaudeLine(line, idx, &s)
		case AgentCodex:
			messageEvents += scanCodexLine(line, &s)
		}

		if !fingerprinted && messageEvents <= maxHelperMessages &&
			matchesHelperFingerprint(line) {
			fingerprinted = true
		}
	}

	// A continued session echoes the handoff prompt, which looks
	// like an analysis fingerprint; its provenance metadata says
	// it is the user's interactive session, so it is never a
	// helper on fingerprint evidence alone.
	if fingerprinted && messageEvents <= maxHelperMessages &&
		s.Derivation != DerivationContinued {
		s.Helper = true
	}
	if s.ID == "" {
		s.ID = IDFromPath(path)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = s.ModifiedAt
	}
	return s, nil
}

// readDerivation extracts parent metadata from the first event.
// Continuation metadata takes precedence over trim metadata.
func readDerivation(line string, s *Session) {
	if cm := gjson.Get(line, "continue_metadata"); cm.Exists() {
		if pf := cm.Get("parent_session_file").Str; pf != "" {
			s.Derivation = DerivationContinued
			s.ParentFile = pf
			s.ParentSessionID = cm.Get("parent_session_id").Str
			return
		}
	}
	if tm := gjson.Get(line, "trim_metadata"); tm.Exists() {
		if pf := tm.Get("parent_file").Str; pf != "" {
			s.Derivation = DerivationTrimmed
			s.ParentFile = pf
		}
	}
}

// scanClaudeLine updates s from one Claude event and returns 1
// when the event is a message, else 0.
func scanClaudeLine(line string, idx int, s *Session) int {
	if idx <= sidechainWindow {
		if gjson.Get(line, "isSidechain").Bool() {
			s.IsSidechain = true
		}
		if s.GitBranch == "" {
			s.GitBranch = gjson.Get(line, "gitBranch").Str
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = parseTimestamp(
				gjson.Get(line, "timestamp").Str,
			)
		}
	}
	if idx <= cwdWindow && s.CWD == "" {
		s.CWD = gjson.Get(line, "cwd").Str
	}

	entryType := gjson.Get(line, "type").Str
	if entryType != "user" && entryType != "assistant" {
		return 0
	}

	content := gjson.Get(line, "message.content")
	if entryType == "user" {
		if hasToolResult(content) {
			s.Valid = true
		}
		if gjson.Get(line, "isMeta").Bool() ||
			gjson.Get(line, "isCompactSummary").Bool() {
			return 1
		}
		text := claudeMessageText(content)
		if text != "" && !isClaudeSystemMessage(text) {
			s.Valid = true
			if s.FirstUserMessage == "" {
				s.FirstUserMessage = preview(text)
			}
			s.LastUserMessage = preview(text)
		}
		return 1
	}

	// assistant
	s.Valid = true
	return 1
}

// scanCodexLine updates s from one Codex event and returns 1
// when the event is a message, else 0.
func scanCodexLine(line string, s *Session) int {
	switch gjson.Get(line, "type").Str {
	case "session_meta":
		payload := gjson.Get(line, "payload")
		if id := payload.Get("id").Str; id != "" && s.ID == "" {
			s.ID = id
		}
		if s.CWD == "" {
			s.CWD = payload.Get("cwd").Str
		}
		if s.GitBranch == "" {
			s.GitBranch = payload.Get("git.branch").Str
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = parseTimestamp(
				gjson.Get(line, "timestamp").Str,
			)
		}
		return 0

	case "response_item":
		payload := gjson.Get(line, "payload")
		switch payload.Get("type").Str {
		case "message":
			s.Valid = true
			if payload.Get("role").Str == "user" {
				text := codexMessageText(payload.Get("content"))
				if text != "" {
					if s.FirstUserMessage == "" {
						s.FirstUserMessage = preview(text)
					}
					s.LastUserMessage = preview(text)
				}
			}
			return 1
		case "function_call_output":
			s.Valid = true
		}
		return 0

	// Old Codex layout: events at top level.
	case "message":
		s.Valid = true
		text := codexMessageText(gjson.Get(line, "content"))
		if text != "" && gjson.Get(line, "role").Str == "user" {
			if s.FirstUserMessage == "" {
				s.FirstUserMessage = preview(text)
			}
			s.LastUserMessage = preview(text)
		}
		return 1
	case "function_call_output":
		s.Valid = true
	}
	return 0
}

func parseTimestamp(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339Nano, time.RFC3339,
	} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t
		}
	}
	return time.Time{}
}
