package continuation

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/google/shlex"
	"github.com/tidwall/gjson"
)

// sessionIDMarker prefixes the new session id in the spawn
// output so it survives shell prompt and title noise.
const sessionIDMarker = "SESSION_ID:"

var ansiEscape = regexp.MustCompile(
	`\x1B(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)

// ShellArgv wraps a command string in the user's login shell so
// aliases and shell functions are honored. A configured launcher
// template replaces the default `$SHELL -i -c`.
func ShellArgv(launcher, command string) ([]string, error) {
	if launcher == "" {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		return []string{shell, "-i", "-c", command}, nil
	}
	parts, err := shlex.Split(launcher)
	if err != nil || len(parts) == 0 {
		return nil, fmt.Errorf("invalid launcher %q: %w", launcher, err)
	}
	return append(parts, command), nil
}

// ShellQuote single-quotes s for POSIX shells.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func runShell(ctx context.Context, launcher, command string) (string, error) {
	argv, err := ShellArgv(launcher, command)
	if err != nil {
		return "", err
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s",
			argv[0], err, firstLineOf(stderr.String()))
	}
	return stdout.String(), nil
}

// spawnClaude creates a fresh claude session with a dummy
// message and returns its id, extracted from a jq-added marker.
func spawnClaude(ctx context.Context, launcher string) (string, error) {
	command := `claude -p 'Hello' --output-format json` +
		` | jq -r '"` + sessionIDMarker + `" + .session_id'`
	out, err := runShell(ctx, launcher, command)
	if err != nil {
		return "", err
	}
	id, err := extractMarkedID(out)
	if err != nil {
		return "", fmt.Errorf("creating claude session: %w", err)
	}
	return id, nil
}

// extractMarkedID pulls the first token after the marker out of
// possibly ANSI-decorated shell output.
func extractMarkedID(output string) (string, error) {
	clean := ansiEscape.ReplaceAllString(output, "")
	_, after, found := strings.Cut(clean, sessionIDMarker)
	if !found {
		return "", fmt.Errorf(
			"no %s marker in output: %s",
			sessionIDMarker, firstLineOf(clean))
	}
	fields := strings.Fields(after)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty session id after marker")
	}
	return fields[0], nil
}

// injectClaude resumes the new session headlessly with the
// summarization prompt; the reply is discarded.
func injectClaude(ctx context.Context, launcher, id, prompt string) error {
	command := "claude -p " + ShellQuote(prompt) +
		" --resume " + ShellQuote(id)
	_, err := runShell(ctx, launcher, command)
	return err
}

// spawnCodex creates a fresh codex thread with a dummy message,
// returning the thread id from the streamed thread.started
// event.
func spawnCodex(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "codex", "exec", "--json", "Hello")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", err
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("codex: %w", err)
	}

	var threadID string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 20*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !gjson.Valid(line) {
			continue
		}
		if gjson.Get(line, "type").Str == "thread.started" {
			threadID = gjson.Get(line, "thread_id").Str
		}
	}
	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("codex: %w: %s",
			err, firstLineOf(stderr.String()))
	}
	if threadID == "" {
		return "", fmt.Errorf(
			"no thread.started event in codex exec output")
	}
	return threadID, nil
}

// injectCodex resumes the new thread with the summarization
// prompt, on the configured analysis model when set.
func injectCodex(ctx context.Context, id, prompt, model string) error {
	args := []string{"exec"}
	if model != "" {
		args = append(args, "--model", model)
	}
	args = append(args, "resume", id, prompt)
	cmd := exec.CommandContext(ctx, "codex", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("codex: %w: %s",
			err, firstLineOf(stderr.String()))
	}
	return nil
}

func firstLineOf(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
