package derive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/agentsess/agentsess/internal/session"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// NewDerivedPath mints a fresh session identifier and the path
// a derived file should be written to, in the agent's naming
// convention. Claude files sit beside the parent; Codex files
// go under the sessions root's per-date directory for now.
// outputDir overrides the destination directory when non-empty.
func NewDerivedPath(
	agent session.Agent, parentPath, outputDir string,
) (id, path string, err error) {
	id = uuid.NewString()

	if agent == session.AgentCodex {
		now := timeNow()
		name := fmt.Sprintf(
			"rollout-%s-%s.jsonl",
			now.Format("2006-01-02T15-04-05"), id,
		)
		dir := outputDir
		if dir == "" {
			// parent sits at <root>/yyyy/mm/dd/file.jsonl
			dir = filepath.Dir(filepath.Dir(filepath.Dir(
				filepath.Dir(parentPath))))
		}
		dir = filepath.Join(
			dir,
			now.Format("2006"), now.Format("01"), now.Format("02"),
		)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", "", err
		}
		return id, filepath.Join(dir, name), nil
	}

	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(parentPath)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	return id, filepath.Join(dir, id+".jsonl"), nil
}
