// Package index maintains an incremental SQLite FTS5 index over
// exported sessions and answers recency-adjusted queries.
package index

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const schemaFTS = `
CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
    content,
    content='documents',
    content_rowid='id',
    tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
    INSERT INTO documents_fts(rowid, content) VALUES (new.id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
    INSERT INTO documents_fts(documents_fts, rowid, content)
        VALUES('delete', old.id, old.content);
END;

CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE ON documents BEGIN
    INSERT INTO documents_fts(documents_fts, rowid, content)
        VALUES('delete', old.id, old.content);
    INSERT INTO documents_fts(rowid, content) VALUES (new.id, new.content);
END;
`

// Index manages a single-writer connection, a read-only pool,
// and the sidecar incrementality state beside the database.
type Index struct {
	writer *sql.DB
	reader *sql.DB
	mu     sync.Mutex // serializes writes

	dir string
	log *slog.Logger
}

// makeDSN builds a SQLite connection string with shared pragmas.
func makeDSN(path string, readOnly bool) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_cache_size", "-64000")
	if readOnly {
		params.Set("mode", "ro")
	} else {
		params.Set("_synchronous", "NORMAL")
	}
	return path + "?" + params.Encode()
}

// Open creates or opens the index under dir (the database lives
// at dir/index.db, the state sidecar beside it).
func Open(dir string, log *slog.Logger) (*Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	path := filepath.Join(dir, "index.db")

	writer, err := sql.Open("sqlite3", makeDSN(path, false))
	if err != nil {
		return nil, fmt.Errorf("opening writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	reader, err := sql.Open("sqlite3", makeDSN(path, true))
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("opening reader: %w", err)
	}
	reader.SetMaxOpenConns(4)

	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ix := &Index{writer: writer, reader: reader, dir: dir, log: log}
	if err := ix.init(); err != nil {
		ix.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return ix, nil
}

func (ix *Index) init() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, err := ix.writer.Exec(schemaSQL); err != nil {
		return err
	}
	// A runtime without the fts5 module can still build and list;
	// full-text queries fail later with ErrNoFTS.
	if _, err := ix.writer.Exec(schemaFTS); err != nil {
		if !strings.Contains(err.Error(), "no such module") {
			return fmt.Errorf("initializing FTS: %w", err)
		}
	}
	return nil
}

// ErrNoFTS reports that the sqlite runtime lacks the fts5
// module, so full-text queries cannot run.
var ErrNoFTS = errors.New("sqlite fts5 module unavailable")

// HasFTS checks that the fts5 module actually loads at runtime.
func (ix *Index) HasFTS() bool {
	_, err := ix.reader.Exec("SELECT 1 FROM documents_fts LIMIT 1")
	return err == nil
}

// Close closes both connections.
func (ix *Index) Close() error {
	return errors.Join(ix.writer.Close(), ix.reader.Close())
}

// update executes fn within the write lock and a transaction.
func (ix *Index) update(fn func(tx *sql.Tx) error) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	tx, err := ix.writer.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
