package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentsess/agentsess/internal/export"
	"github.com/agentsess/agentsess/internal/session"
)

// Document is one indexed session. ExportPath is the upsert key:
// the export file for export builds, the session file for raw
// builds.
type Document struct {
	SessionID       string
	Agent           string
	Project         string
	Branch          string
	CWD             string
	Created         string
	Modified        string
	Lines           int
	ExportPath      string
	FirstMsgRole    string
	FirstMsgContent string
	LastMsgRole     string
	LastMsgContent  string
	DerivationType  string
	IsSidechain     bool
	Content         string
}

// BuildStats summarizes one incremental build.
type BuildStats struct {
	Indexed int
	Skipped int
	Removed int
	Failed  int
}

func (s BuildStats) String() string {
	return fmt.Sprintf("%d indexed, %d skipped, %d removed, %d failed",
		s.Indexed, s.Skipped, s.Removed, s.Failed)
}

// BuildFromExports incrementally indexes every export file under
// root (one subdirectory per agent). Files unchanged since the
// last build are skipped unless force; documents whose source
// file vanished are removed.
func (ix *Index) BuildFromExports(root string, force bool) (BuildStats, error) {
	var paths []string
	for _, def := range session.Registry {
		matches, err := filepath.Glob(
			filepath.Join(root, string(def.Agent), "*.txt"))
		if err != nil {
			return BuildStats{}, err
		}
		paths = append(paths, matches...)
	}
	return ix.build(paths, force, func(path string) (Document, error) {
		meta, body, err := export.ParseExported(path)
		if err != nil {
			return Document{}, err
		}
		doc := docFromMeta(meta, body)
		doc.ExportPath = path
		return doc, nil
	})
}

// BuildFromSessions incrementally indexes raw session files from
// the store, rendering a synthetic body with tool-call markers
// so tool activity is searchable.
func (ix *Index) BuildFromSessions(st *session.Store, force bool) (BuildStats, error) {
	sessions := st.Discover(session.Filter{})
	byPath := make(map[string]session.Session, len(sessions))
	paths := make([]string, 0, len(sessions))
	for _, s := range sessions {
		byPath[s.Path] = s
		paths = append(paths, s.Path)
	}
	return ix.build(paths, force, func(path string) (Document, error) {
		s := byPath[path]
		meta, err := export.ExtractMeta(path, s.Agent)
		if err != nil {
			return Document{}, err
		}
		body, err := export.Render(path, s.Agent)
		if err != nil {
			return Document{}, err
		}
		doc := docFromMeta(meta, body)
		doc.ExportPath = path
		return doc, nil
	})
}

// build is the shared incremental pass: upsert changed files,
// drop documents whose source is gone, then commit the new
// sidecar state.
func (ix *Index) build(
	paths []string, force bool,
	load func(path string) (Document, error),
) (BuildStats, error) {
	state := ix.loadState()
	next := make(map[string]fileState, len(paths))
	var stats BuildStats
	var docs []Document

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			ix.log.Warn("index source unreadable",
				"path", path, "error", err)
			stats.Failed++
			continue
		}
		if !force && !changed(state, path, info) {
			next[path] = state[path]
			stats.Skipped++
			continue
		}
		doc, err := load(path)
		if err != nil {
			ix.log.Warn("index parse failed",
				"path", path, "error", err)
			stats.Failed++
			continue
		}
		docs = append(docs, doc)
		next[path] = fileState{
			Mtime: info.ModTime().UnixNano(),
			Size:  info.Size(),
		}
		stats.Indexed++
	}

	var stale []string
	for path := range state {
		if _, ok := next[path]; !ok {
			stale = append(stale, path)
		}
	}

	err := ix.update(func(tx *sql.Tx) error {
		for _, doc := range docs {
			if err := upsert(tx, doc); err != nil {
				return err
			}
		}
		for _, path := range stale {
			if _, err := tx.Exec(
				`DELETE FROM documents WHERE export_path = ?`, path,
			); err != nil {
				return err
			}
			stats.Removed++
		}
		return nil
	})
	if err != nil {
		return stats, err
	}
	if err := ix.saveState(next); err != nil {
		return stats, fmt.Errorf("saving index state: %w", err)
	}
	return stats, nil
}

func docFromMeta(m export.Meta, body string) Document {
	doc := Document{
		SessionID:      m.SessionID,
		Agent:          m.Agent,
		Project:        m.Project,
		Branch:         m.Branch,
		CWD:            m.CWD,
		Created:        m.Created,
		Modified:       m.Modified,
		Lines:          m.Lines,
		DerivationType: m.DerivationType,
		IsSidechain:    m.IsSidechain,
		Content:        body,
	}
	if m.FirstMsg != nil {
		doc.FirstMsgRole = m.FirstMsg.Role
		doc.FirstMsgContent = m.FirstMsg.Content
	}
	if m.LastMsg != nil {
		doc.LastMsgRole = m.LastMsg.Role
		doc.LastMsgContent = m.LastMsg.Content
	}
	return doc
}

func upsert(tx *sql.Tx, doc Document) error {
	sidechain := "false"
	if doc.IsSidechain {
		sidechain = "true"
	}
	_, err := tx.Exec(`
		INSERT INTO documents (
			session_id, agent, project, branch, cwd,
			created, modified, lines, export_path,
			first_msg_role, first_msg_content,
			last_msg_role, last_msg_content,
			derivation_type, is_sidechain, content
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(export_path) DO UPDATE SET
			session_id = excluded.session_id,
			agent = excluded.agent,
			project = excluded.project,
			branch = excluded.branch,
			cwd = excluded.cwd,
			created = excluded.created,
			modified = excluded.modified,
			lines = excluded.lines,
			first_msg_role = excluded.first_msg_role,
			first_msg_content = excluded.first_msg_content,
			last_msg_role = excluded.last_msg_role,
			last_msg_content = excluded.last_msg_content,
			derivation_type = excluded.derivation_type,
			is_sidechain = excluded.is_sidechain,
			content = excluded.content`,
		doc.SessionID, doc.Agent, doc.Project, doc.Branch, doc.CWD,
		doc.Created, doc.Modified, doc.Lines, doc.ExportPath,
		doc.FirstMsgRole, doc.FirstMsgContent,
		doc.LastMsgRole, doc.LastMsgContent,
		doc.DerivationType, sidechain, doc.Content,
	)
	return err
}
