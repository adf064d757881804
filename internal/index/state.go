package index

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// fileState records what was true of a source file when it was
// last indexed.
type fileState struct {
	Mtime int64 `json:"mtime"` // unix nanoseconds
	Size  int64 `json:"size"`
}

// loadState reads the sidecar state file. A missing or corrupt
// sidecar yields an empty state, forcing a full reindex.
func (ix *Index) loadState() map[string]fileState {
	data, err := os.ReadFile(ix.statePath())
	if err != nil {
		return map[string]fileState{}
	}
	var state map[string]fileState
	if err := json.Unmarshal(data, &state); err != nil {
		ix.log.Warn("index state unreadable, rebuilding",
			"path", ix.statePath(), "error", err)
		return map[string]fileState{}
	}
	return state
}

// saveState rewrites the sidecar atomically.
func (ix *Index) saveState(state map[string]fileState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(ix.dir, "state-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), ix.statePath())
}

func (ix *Index) statePath() string {
	return filepath.Join(ix.dir, "state.json")
}

// changed reports whether path needs reindexing given the
// recorded state.
func changed(state map[string]fileState, path string, info os.FileInfo) bool {
	prev, ok := state[path]
	if !ok {
		return true
	}
	return prev.Mtime != info.ModTime().UnixNano() ||
		prev.Size != info.Size()
}
