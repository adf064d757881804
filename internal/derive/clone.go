package derive

import (
	"fmt"
	"os"
	"strings"

	"github.com/agentsess/agentsess/internal/session"
)

// Clone copies a session under a fresh identity so the user can
// diverge without touching the parent. No trim metadata is
// written; the output is a trim with nothing trimmed.
func Clone(parentPath, outputDir string) (Result, error) {
	agent, err := session.DetectAgent(parentPath)
	if err != nil {
		return Result{}, err
	}

	lines, err := session.ReadLines(parentPath)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", parentPath, err)
	}

	id, outPath, err := NewDerivedPath(agent, parentPath, outputDir)
	if err != nil {
		return Result{}, err
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = rewriteIdentity(line, agent, id)
	}

	content := strings.Join(out, "\n") + "\n"
	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		return Result{}, err
	}
	return Result{
		SessionID:  id,
		OutputFile: outPath,
		Agent:      agent,
	}, nil
}
