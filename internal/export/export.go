package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/agentsess/agentsess/internal/session"
)

// Options control a single export or a bulk run.
type Options struct {
	// Dest is an explicit destination file. Empty = DefaultDest.
	Dest string

	// Root overrides the export tree root. Empty = the session's
	// cwd (falling back to the process cwd) plus
	// "exported-sessions".
	Root string

	// Force exports even when the destination is newer than the
	// source.
	Force bool

	Log *slog.Logger
}

func (o Options) log() *slog.Logger {
	if o.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Log
}

// Stats summarizes a bulk export run.
type Stats struct {
	Exported int
	Skipped  int
	Failed   int
}

// DefaultDest returns <root>/<agent>/<session_id>.txt, where
// root defaults to exported-sessions under the session's cwd.
func DefaultDest(s session.Session, root string) string {
	if root == "" {
		base := s.CWD
		if base == "" {
			base, _ = os.Getwd()
		}
		root = filepath.Join(base, "exported-sessions")
	}
	return filepath.Join(root, string(s.Agent), s.ID+".txt")
}

// Export writes one session's front matter and rendered body to
// its destination. The export is skipped, without error, when
// the destination is at least as new as the source and Force is
// off. Returns the destination path and whether a file was
// written.
func Export(path string, agent session.Agent, opts Options) (string, bool, error) {
	meta, err := ExtractMeta(path, agent)
	if err != nil {
		return "", false, err
	}

	dest := opts.Dest
	if dest == "" {
		s, err := session.ClassifyAs(path, agent)
		if err != nil {
			return "", false, err
		}
		dest = DefaultDest(s, opts.Root)
	}

	if !opts.Force && !needsExport(path, dest) {
		return dest, false, nil
	}

	front, err := renderFrontMatter(meta)
	if err != nil {
		return "", false, err
	}
	body, err := Render(path, agent)
	if err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", false, err
	}
	if err := os.WriteFile(dest, []byte(front+"\n"+body), 0o644); err != nil {
		return "", false, err
	}
	return dest, true, nil
}

// ExportAll exports every session the store discovers under the
// filter. Individual failures are logged and counted, never
// fatal.
func ExportAll(st *session.Store, f session.Filter, opts Options) Stats {
	log := opts.log()
	var stats Stats
	for _, s := range st.Discover(f) {
		perSession := opts
		perSession.Dest = ""
		dest, written, err := Export(s.Path, s.Agent, perSession)
		switch {
		case err != nil:
			log.Warn("export failed",
				"session", s.ID, "path", s.Path, "error", err)
			stats.Failed++
		case written:
			log.Debug("exported", "session", s.ID, "dest", dest)
			stats.Exported++
		default:
			stats.Skipped++
		}
	}
	return stats
}

// needsExport reports whether the source has changed since the
// destination was last written.
func needsExport(src, dest string) bool {
	di, err := os.Stat(dest)
	if err != nil {
		return true
	}
	si, err := os.Stat(src)
	if err != nil {
		return true
	}
	return si.ModTime().After(di.ModTime())
}

// String renders the bulk counts for CLI summaries.
func (s Stats) String() string {
	return fmt.Sprintf("%d exported, %d skipped, %d failed",
		s.Exported, s.Skipped, s.Failed)
}
