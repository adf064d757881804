package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentsess/agentsess/internal/export"
	"github.com/agentsess/agentsess/internal/session"
	"github.com/agentsess/agentsess/internal/testjsonl"
)

// exportFixture writes three claude sessions with distinct
// vocabularies, exports them under root, and pins mtimes so
// recency ordering is deterministic.
func exportFixture(t *testing.T) (root string, ids [3]string) {
	t.Helper()
	srcDir := t.TempDir()
	root = t.TempDir()

	ids = [3]string{
		"aaaa1111-2222-3333-4444-555566667777",
		"bbbb1111-2222-3333-4444-555566667777",
		"cccc1111-2222-3333-4444-555566667777",
	}
	topics := [3]string{
		"explain python decorators in depth",
		"compare go interfaces and embedding",
		"fighting the rust borrow checker again",
	}
	for i, id := range ids {
		src := filepath.Join(srcDir, id+".jsonl")
		content := testjsonl.NewSessionBuilder().
			AddClaudeUser(
				"2024-06-01T10:00:00Z", topics[i], "/work/alpha",
			).
			AddClaudeAssistant("2024-06-01T10:00:05Z", "sure").
			String()
		require.NoError(t,
			os.WriteFile(src, []byte(content), 0o644))

		mt := time.Date(2024, 6, 1+i, 12, 0, 0, 0, time.UTC)
		require.NoError(t, os.Chtimes(src, mt, mt))

		_, written, err := export.Export(src, session.AgentClaude,
			export.Options{
				Dest: filepath.Join(root, "claude", id+".txt"),
			})
		require.NoError(t, err)
		require.True(t, written)
	}
	return root, ids
}

func openIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestBuildFromExportsIdempotent(t *testing.T) {
	root, _ := exportFixture(t)
	ix := openIndex(t)

	stats, err := ix.BuildFromExports(root, false)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Indexed)
	assert.Equal(t, 0, stats.Skipped)

	stats, err = ix.BuildFromExports(root, false)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Indexed)
	assert.Equal(t, 3, stats.Skipped)
}

func TestQueryRoundTrip(t *testing.T) {
	root, ids := exportFixture(t)
	ix := openIndex(t)
	_, err := ix.BuildFromExports(root, false)
	require.NoError(t, err)
	if !ix.HasFTS() {
		t.Skip("no FTS support")
	}

	ctx := context.Background()

	t.Run("keyword finds the right session", func(t *testing.T) {
		results, err := ix.Query(ctx, "decorators", QueryOptions{})
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, ids[0], results[0].SessionID)
		assert.Contains(t, results[0].Snippet, "decorators")
	})

	t.Run("empty query orders by modified desc", func(t *testing.T) {
		results, err := ix.Query(ctx, "", QueryOptions{})
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, ids[2], results[0].SessionID)
		assert.Equal(t, ids[1], results[1].SessionID)
		assert.Equal(t, ids[0], results[2].SessionID)
	})

	t.Run("project filter", func(t *testing.T) {
		results, err := ix.Query(ctx, "",
			QueryOptions{Project: "alpha"})
		require.NoError(t, err)
		assert.Len(t, results, 3)

		results, err = ix.Query(ctx, "",
			QueryOptions{Project: "nothere"})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("identical queries are stable", func(t *testing.T) {
		a, err := ix.Query(ctx, "borrow checker", QueryOptions{})
		require.NoError(t, err)
		b, err := ix.Query(ctx, "borrow checker", QueryOptions{})
		require.NoError(t, err)
		require.NotEmpty(t, a)
		assert.Equal(t, a[0].SessionID, b[0].SessionID)
	})
}

func TestRemovedExportDropsDocument(t *testing.T) {
	root, ids := exportFixture(t)
	ix := openIndex(t)
	_, err := ix.BuildFromExports(root, false)
	require.NoError(t, err)

	require.NoError(t, os.Remove(
		filepath.Join(root, "claude", ids[1]+".txt")))

	stats, err := ix.BuildFromExports(root, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)

	results, err := ix.Query(context.Background(), "", QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.NotEqual(t, ids[1], r.SessionID)
	}
}

func TestBuildFromSessions(t *testing.T) {
	claudeHome := t.TempDir()
	path := filepath.Join(claudeHome, "projects", "-work-alpha",
		"aaaa1111-2222-3333-4444-555566667777.jsonl")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	content := testjsonl.NewSessionBuilder().
		AddClaudeUser(
			"2024-06-01T10:00:00Z", "review the parser", "/work/alpha",
		).
		AddClaudeToolUse("2024-06-01T10:00:02Z", "Read",
			map[string]any{"file_path": "/work/alpha/parser.go"}).
		String()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	st := session.NewStore(claudeHome, t.TempDir(), nil)
	ix := openIndex(t)

	stats, err := ix.BuildFromSessions(st, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Indexed)
	if !ix.HasFTS() {
		t.Skip("no FTS support")
	}

	// Tool-call markers in the synthetic body are searchable.
	results, err := ix.Query(context.Background(), "parser",
		QueryOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, path, results[0].ExportPath)
}

func TestRecencyBoost(t *testing.T) {
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	fresh := recencyBoost(now.Format(time.RFC3339Nano), now)
	dayOld := recencyBoost(
		now.AddDate(0, 0, -1).Format(time.RFC3339Nano), now)
	monthOld := recencyBoost(
		now.AddDate(0, -1, 0).Format(time.RFC3339Nano), now)

	assert.Greater(t, fresh, dayOld)
	assert.Greater(t, dayOld, monthOld)
	assert.InDelta(t, 2.0, fresh, 0.01)
	assert.Less(t, monthOld, 1.05)
	assert.Equal(t, 1.0, recencyBoost("not a time", now))
}

func TestMakeSnippet(t *testing.T) {
	long := strings.Repeat("filler words here ", 40) +
		"the needle sentence " +
		strings.Repeat("more trailing text ", 40)

	t.Run("centered with ellipses", func(t *testing.T) {
		s := makeSnippet(long, "needle")
		assert.Contains(t, s, "needle")
		assert.True(t, strings.HasPrefix(s, "..."))
		assert.True(t, strings.HasSuffix(s, "..."))
		assert.LessOrEqual(t, len(s), snippetWindow+8)
	})

	t.Run("token fallback", func(t *testing.T) {
		s := makeSnippet(long, "missing needle")
		assert.Contains(t, s, "needle")
	})

	t.Run("no match takes the head", func(t *testing.T) {
		s := makeSnippet(long, "zebra")
		assert.True(t, strings.HasPrefix(s, "filler"))
		assert.True(t, strings.HasSuffix(s, "..."))
	})

	t.Run("short content untouched", func(t *testing.T) {
		assert.Equal(t, "tiny body",
			makeSnippet("tiny body", "tiny"))
	})
}

func TestMatchExpr(t *testing.T) {
	assert.Equal(t, `"decorators"`, matchExpr("decorators"))
	assert.Equal(t, `"borrow" "checker"`, matchExpr("borrow checker"))
	assert.Equal(t, `"a""b"`, matchExpr(`a"b`))
}
