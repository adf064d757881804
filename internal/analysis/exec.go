package analysis

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/tidwall/gjson"
)

// claudeReply is the parsed wrapper of a headless claude run.
type claudeReply struct {
	text     string
	helperID string // session the CLI persisted for this run
}

// runClaude executes one headless claude invocation and returns
// its assistant text plus the helper session id for cleanup.
func runClaude(
	ctx context.Context, prompt, model string,
) (claudeReply, error) {
	args := []string{
		"-p",
		"--no-session-persistence",
		"--output-format", "json",
		"--permission-mode", "bypassPermissions",
	}
	if model != "" {
		args = append(args, "--model", model)
	}
	args = append(args, prompt)

	cmd := exec.CommandContext(ctx, "claude", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return claudeReply{}, fmt.Errorf(
			"claude worker: %w: %s", err, firstLineOf(stderr.String()),
		)
	}

	out := stdout.String()
	if !gjson.Valid(out) {
		return claudeReply{text: out}, nil
	}
	return claudeReply{
		text:     gjson.Get(out, "result").Str,
		helperID: gjson.Get(out, "session_id").Str,
	}, nil
}

// runCodex executes one codex batch invocation, streaming its
// JSONL events. The thread id identifies the helper session.
func runCodex(
	ctx context.Context, prompt, model string,
) (claudeReply, error) {
	args := []string{"exec", "--json"}
	if model != "" {
		args = append(args, "--model", model)
	}
	args = append(args, prompt)

	cmd := exec.CommandContext(ctx, "codex", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return claudeReply{}, err
	}
	if err := cmd.Start(); err != nil {
		return claudeReply{}, fmt.Errorf("codex worker: %w", err)
	}

	var reply claudeReply
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 20*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !gjson.Valid(line) {
			continue
		}
		switch gjson.Get(line, "type").Str {
		case "thread.started":
			reply.helperID = gjson.Get(line, "thread_id").Str
		case "response_item":
			payload := gjson.Get(line, "payload")
			if payload.Get("type").Str != "message" {
				continue
			}
			payload.Get("content").ForEach(
				func(_, block gjson.Result) bool {
					reply.text += block.Get("text").Str
					return true
				})
		}
	}

	if err := cmd.Wait(); err != nil {
		return claudeReply{}, fmt.Errorf(
			"codex worker: %w: %s", err, firstLineOf(stderr.String()),
		)
	}
	return reply, nil
}

func firstLineOf(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
