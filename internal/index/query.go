package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultLimit        = 10
	DefaultHalfLifeDays = 7
	snippetWindow       = 200
)

// QueryOptions select and scope one search.
type QueryOptions struct {
	Project          string
	Limit            int
	IncludeSidechain bool
}

func (o QueryOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultLimit
	}
	return o.Limit
}

// Result is one scored hit.
type Result struct {
	SessionID      string
	Agent          string
	Project        string
	Branch         string
	CWD            string
	Created        string
	Modified       string
	Lines          int
	ExportPath     string
	FirstMsg       string
	LastMsg        string
	DerivationType string
	Snippet        string
	Score          float64
}

var timeNow = time.Now

// Query searches the index. An empty query returns the most
// recently modified documents; otherwise FTS hits are re-ranked
// by bm25 relevance boosted by recency.
func (ix *Index) Query(
	ctx context.Context, query string, opts QueryOptions,
) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return ix.recent(ctx, opts)
	}
	return ix.search(ctx, query, opts)
}

func (ix *Index) recent(
	ctx context.Context, opts QueryOptions,
) ([]Result, error) {
	where, args := opts.filter(nil)
	rows, err := ix.reader.QueryContext(ctx, `
		SELECT `+resultColumns+`
		FROM documents d
		WHERE `+where+`
		ORDER BY d.modified DESC
		LIMIT ?`,
		append(args, opts.limit())...)
	if err != nil {
		return nil, fmt.Errorf("listing recent documents: %w", err)
	}
	defer rows.Close()
	return scanResults(rows, func(r *Result, content string) {
		r.Snippet = makeSnippet(content, "")
	})
}

func (ix *Index) search(
	ctx context.Context, query string, opts QueryOptions,
) ([]Result, error) {
	if !ix.HasFTS() {
		return nil, ErrNoFTS
	}
	where, filterArgs := opts.filter([]string{"documents_fts MATCH ?"})
	args := append([]any{matchExpr(query)}, filterArgs...)

	rows, err := ix.reader.QueryContext(ctx, `
		SELECT `+resultColumns+`, -rank AS raw
		FROM documents_fts
		JOIN documents d ON documents_fts.rowid = d.id
		WHERE `+where+`
		ORDER BY rank
		LIMIT ?`,
		append(args, 2*opts.limit())...)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	now := timeNow()
	results, err := scanScoredResults(rows, func(r *Result, content string) {
		r.Snippet = makeSnippet(content, query)
		r.Score *= recencyBoost(r.Modified, now)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > opts.limit() {
		results = results[:opts.limit()]
	}
	return results, nil
}

const resultColumns = `
	d.session_id, d.agent, d.project, d.branch, d.cwd,
	d.created, d.modified, d.lines, d.export_path,
	d.first_msg_content, d.last_msg_content,
	d.derivation_type, d.content`

func (o QueryOptions) filter(clauses []string) (string, []any) {
	var args []any
	if !o.IncludeSidechain {
		clauses = append(clauses, "d.is_sidechain = 'false'")
	}
	if o.Project != "" {
		clauses = append(clauses, "d.project = ?")
		args = append(args, o.Project)
	}
	if len(clauses) == 0 {
		clauses = append(clauses, "1=1")
	}
	return strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanResults(
	rows rowScanner, finish func(*Result, string),
) ([]Result, error) {
	var results []Result
	for rows.Next() {
		var r Result
		var content string
		if err := rows.Scan(
			&r.SessionID, &r.Agent, &r.Project, &r.Branch, &r.CWD,
			&r.Created, &r.Modified, &r.Lines, &r.ExportPath,
			&r.FirstMsg, &r.LastMsg, &r.DerivationType, &content,
		); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		finish(&r, content)
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanScoredResults(
	rows rowScanner, finish func(*Result, string),
) ([]Result, error) {
	var results []Result
	for rows.Next() {
		var r Result
		var content string
		if err := rows.Scan(
			&r.SessionID, &r.Agent, &r.Project, &r.Branch, &r.CWD,
			&r.Created, &r.Modified, &r.Lines, &r.ExportPath,
			&r.FirstMsg, &r.LastMsg, &r.DerivationType, &content,
			&r.Score,
		); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		finish(&r, content)
		results = append(results, r)
	}
	return results, rows.Err()
}

// matchExpr quotes each query token so user text cannot inject
// FTS5 query syntax.
func matchExpr(query string) string {
	tokens := strings.Fields(query)
	quoted := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		quoted = append(quoted,
			`"`+strings.ReplaceAll(tok, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

// recencyBoost maps document age onto (1, 2]: a just-modified
// document doubles its raw score, one much older than the
// half-life keeps roughly its raw score.
func recencyBoost(modified string, now time.Time) float64 {
	t, err := time.Parse(time.RFC3339Nano, modified)
	if err != nil {
		return 1
	}
	age := now.Sub(t).Seconds()
	if age < 0 {
		age = 0
	}
	return 1 + math.Exp(-age/(DefaultHalfLifeDays*86400))
}

// makeSnippet centers a ~200 char window on the first case-folded
// match of the query (falling back to any single token, then to
// the head of the document), collapses whitespace, and brackets
// truncated edges with ellipses.
func makeSnippet(content, query string) string {
	folded := strings.ToLower(content)
	match, matchLen := -1, 0
	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		if i := strings.Index(folded, q); i >= 0 {
			match, matchLen = i, len(q)
		} else {
			for _, tok := range strings.Fields(q) {
				if i := strings.Index(folded, tok); i >= 0 {
					match, matchLen = i, len(tok)
					break
				}
			}
		}
	}
	if match < 0 {
		match, matchLen = 0, 0
	}

	center := match + matchLen/2
	start := center - snippetWindow/2
	if start < 0 {
		start = 0
	}
	end := start + snippetWindow
	if end > len(content) {
		end = len(content)
		start = end - snippetWindow
		if start < 0 {
			start = 0
		}
	}
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}

	snippet := strings.Join(strings.Fields(content[start:end]), " ")
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet += "..."
	}
	return snippet
}
