package lineage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentsess/agentsess/internal/session"
	"github.com/agentsess/agentsess/internal/testjsonl"
)

func writeSession(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func originalContent() string {
	return testjsonl.NewSessionBuilder().
		AddClaudeUser(
			"2024-06-01T10:00:00Z", "start here", "/work/p",
		).
		AddClaudeAssistant("2024-06-01T10:00:05Z", "ok").
		String()
}

func trimmedContent(parent string) string {
	first := testjsonl.WithTrimMetadata(
		testjsonl.ClaudeUserJSON(
			"start here", "2024-06-01T10:00:00Z", "/work/p",
		),
		parent, "2024-06-02T09:00:00Z",
	)
	return testjsonl.JoinJSONL(first,
		testjsonl.ClaudeAssistantTextJSON(
			"ok", "2024-06-01T10:00:05Z",
		))
}

func continuedContent(parentID, parent string) string {
	first := testjsonl.WithContinueMetadata(
		testjsonl.ClaudeUserJSON(
			"picking up", "2024-06-03T10:00:00Z", "/work/p",
		),
		parentID, parent, "2024-06-03T10:00:00Z",
	)
	return testjsonl.JoinJSONL(first,
		testjsonl.ClaudeAssistantTextJSON(
			"resumed", "2024-06-03T10:00:05Z",
		))
}

func TestParentInfo(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "orig.jsonl")
	writeSession(t, orig, originalContent())

	t.Run("original", func(t *testing.T) {
		parent, rel, err := ParentInfo(orig)
		require.NoError(t, err)
		assert.Empty(t, parent)
		assert.Equal(t, session.DerivationOriginal, rel)
	})

	t.Run("trimmed", func(t *testing.T) {
		child := filepath.Join(dir, "trim.jsonl")
		writeSession(t, child, trimmedContent(orig))
		parent, rel, err := ParentInfo(child)
		require.NoError(t, err)
		assert.Equal(t, orig, parent)
		assert.Equal(t, session.DerivationTrimmed, rel)
	})

	t.Run("continuation wins over trim", func(t *testing.T) {
		first := testjsonl.WithTrimMetadata(
			testjsonl.ClaudeUserJSON("x", "2024-06-01T10:00:00Z"),
			"/tmp/trim-parent.jsonl", "2024-06-02T09:00:00Z",
		)
		first = testjsonl.WithContinueMetadata(
			first, "pid", orig, "2024-06-03T09:00:00Z",
		)
		child := filepath.Join(dir, "both.jsonl")
		writeSession(t, child, testjsonl.JoinJSONL(first))

		parent, rel, err := ParentInfo(child)
		require.NoError(t, err)
		assert.Equal(t, orig, parent)
		assert.Equal(t, session.DerivationContinued, rel)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := ParentInfo(filepath.Join(dir, "nope.jsonl"))
		assert.Error(t, err)
	})
}

func TestChain(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "orig.jsonl")
	trim := filepath.Join(dir, "trim.jsonl")
	cont := filepath.Join(dir, "cont.jsonl")
	writeSession(t, orig, originalContent())
	writeSession(t, trim, trimmedContent(orig))
	writeSession(t, cont, continuedContent("trim-id", trim))

	chain, err := Chain(cont)
	require.NoError(t, err)
	require.Len(t, chain, 3)

	assert.Equal(t, cont, chain[0].Path)
	assert.Equal(t, session.DerivationContinued, chain[0].Relationship)
	assert.Equal(t, trim, chain[1].Path)
	assert.Equal(t, session.DerivationTrimmed, chain[1].Relationship)
	assert.Equal(t, orig, chain[2].Path)
	assert.Equal(t, session.DerivationOriginal, chain[2].Relationship)

	root, err := Original(cont)
	require.NoError(t, err)
	assert.Equal(t, orig, root)
}

func TestContinuationChain(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "orig.jsonl")
	trim := filepath.Join(dir, "trim.jsonl")
	cont := filepath.Join(dir, "cont.jsonl")
	cont2 := filepath.Join(dir, "cont2.jsonl")
	writeSession(t, orig, originalContent())
	writeSession(t, trim, trimmedContent(orig))
	writeSession(t, cont, continuedContent("trim-id", trim))
	writeSession(t, cont2, continuedContent("cont-id", cont))

	// Two continuations back to the trimmed session; the trim
	// parent pointer beyond it is not followed.
	chain, err := ContinuationChain(cont2)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, cont2, chain[0].Path)
	assert.Equal(t, session.DerivationContinued, chain[0].Relationship)
	assert.Equal(t, cont, chain[1].Path)
	assert.Equal(t, session.DerivationContinued, chain[1].Relationship)
	assert.Equal(t, trim, chain[2].Path)
	assert.Equal(t, session.DerivationTrimmed, chain[2].Relationship)

	// An original is its own one-link chain.
	chain, err = ContinuationChain(orig)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, orig, chain[0].Path)
}

func TestChainMissingParent(t *testing.T) {
	dir := t.TempDir()
	gone := filepath.Join(dir, "gone.jsonl")
	child := filepath.Join(dir, "child.jsonl")
	writeSession(t, child, trimmedContent(gone))

	chain, err := Chain(child)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, child, chain[0].Path)
	assert.Equal(t, gone, chain[1].Path)
	assert.True(t, chain[1].Missing)
}

func TestChainCycle(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jsonl")
	b := filepath.Join(dir, "b.jsonl")
	writeSession(t, a, trimmedContent(b))
	writeSession(t, b, trimmedContent(a))

	chain, err := Chain(a)
	require.NoError(t, err)
	// a -> b, then the pointer back to a is dropped.
	require.Len(t, chain, 2)
	assert.Equal(t, a, chain[0].Path)
	assert.Equal(t, b, chain[1].Path)
}

func TestDescendants(t *testing.T) {
	claudeHome := t.TempDir()
	codexHome := t.TempDir()
	projDir := filepath.Join(claudeHome, "projects", "-work-p")

	orig := filepath.Join(projDir, "orig-1111.jsonl")
	writeSession(t, orig, originalContent())
	writeSession(t,
		filepath.Join(projDir, "trim-2222.jsonl"),
		trimmedContent(orig))
	writeSession(t,
		filepath.Join(projDir, "cont-3333.jsonl"),
		continuedContent("orig-1111", orig))
	writeSession(t,
		filepath.Join(projDir, "other-4444.jsonl"),
		originalContent())

	st := session.NewStore(claudeHome, codexHome, nil)
	kids := Descendants(st, orig)
	require.Len(t, kids, 2)
	ids := []string{kids[0].ID, kids[1].ID}
	assert.Contains(t, ids, "trim-2222")
	assert.Contains(t, ids, "cont-3333")
}
