package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentsess/agentsess/internal/testjsonl"
)

// fixtureHomes builds a claude home with two sessions and a
// codex home with one, returning the homes and the three paths.
func fixtureHomes(t *testing.T) (claudeHome, codexHome string, paths [3]string) {
	t.Helper()
	claudeHome = t.TempDir()
	codexHome = t.TempDir()

	paths[0] = filepath.Join(
		claudeHome, "projects", "-work-alpha",
		"aaaa1111-2222-3333-4444-555566667777.jsonl",
	)
	writeFile(t, paths[0], testjsonl.NewSessionBuilder().
		AddClaudeUser(
			"2024-06-01T10:00:00Z", "alpha task one", "/work/alpha",
		).
		AddClaudeAssistant("2024-06-01T10:00:05Z", "ok").
		String())

	paths[1] = filepath.Join(
		claudeHome, "projects", "-work-beta",
		"bbbb1111-2222-3333-4444-555566667777.jsonl",
	)
	writeFile(t, paths[1], testjsonl.NewSessionBuilder().
		AddClaudeUser(
			"2024-06-02T10:00:00Z", "beta needs a fix", "/work/beta",
		).
		AddClaudeAssistant("2024-06-02T10:00:05Z", "sure").
		String())

	paths[2] = filepath.Join(
		codexHome, "sessions", "2024", "06", "03",
		"rollout-2024-06-03T10-00-00-"+
			"cccc1111-2222-3333-4444-555566667777.jsonl",
	)
	writeFile(t, paths[2], testjsonl.NewSessionBuilder().
		AddCodexMeta(
			"2024-06-03T10:00:00Z",
			"cccc1111-2222-3333-4444-555566667777",
			"/work/alpha", "main",
		).
		AddCodexMessage(
			"2024-06-03T10:00:01Z", "user", "alpha task two",
		).
		AddCodexMessage("2024-06-03T10:00:09Z", "assistant", "done").
		String())

	// Deterministic mtimes so newest-first ordering is testable.
	for i, mt := range []time.Time{
		time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 2, 11, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC),
	} {
		require.NoError(t, os.Chtimes(paths[i], mt, mt))
	}
	return claudeHome, codexHome, paths
}

func TestDiscoverNewestFirst(t *testing.T) {
	claudeHome, codexHome, paths := fixtureHomes(t)
	st := NewStore(claudeHome, codexHome, nil)

	got := st.Discover(Filter{})
	require.Len(t, got, 3)
	assert.Equal(t, paths[2], got[0].Path)
	assert.Equal(t, paths[1], got[1].Path)
	assert.Equal(t, paths[0], got[2].Path)
}

func TestDiscoverFilters(t *testing.T) {
	claudeHome, codexHome, paths := fixtureHomes(t)
	st := NewStore(claudeHome, codexHome, nil)

	t.Run("by agent", func(t *testing.T) {
		got := st.Discover(Filter{Agents: []Agent{AgentCodex}})
		require.Len(t, got, 1)
		assert.Equal(t, AgentCodex, got[0].Agent)
	})

	t.Run("by cwd", func(t *testing.T) {
		got := st.Discover(Filter{CWD: "/work/alpha"})
		require.Len(t, got, 2)
		assert.Equal(t, paths[2], got[0].Path)
		assert.Equal(t, paths[0], got[1].Path)
	})

	t.Run("by keywords all must match", func(t *testing.T) {
		got := st.Discover(Filter{Keywords: []string{"BETA", "fix"}})
		require.Len(t, got, 1)
		assert.Equal(t, paths[1], got[0].Path)

		got = st.Discover(Filter{Keywords: []string{"beta", "alpha"}})
		assert.Empty(t, got)
	})

	t.Run("by time window", func(t *testing.T) {
		got := st.Discover(Filter{
			Since: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
			Until: time.Date(2024, 6, 2, 23, 0, 0, 0, time.UTC),
		})
		require.Len(t, got, 1)
		assert.Equal(t, paths[1], got[0].Path)
	})

	t.Run("min lines", func(t *testing.T) {
		got := st.Discover(Filter{MinLines: 3})
		require.Len(t, got, 1)
		assert.Equal(t, paths[2], got[0].Path)
	})
}

func TestDiscoverExcludesHelpersAndDerived(t *testing.T) {
	claudeHome, codexHome, _ := fixtureHomes(t)

	helperLine := testjsonl.WithField(
		testjsonl.ClaudeUserJSON("hi", "2024-06-04T10:00:00Z"),
		HelperMarkerKey, map[string]any{"purpose": "analysis"},
	)
	writeFile(t,
		filepath.Join(claudeHome, "projects", "-work-alpha",
			"dddd1111-2222-3333-4444-555566667777.jsonl"),
		testjsonl.JoinJSONL(helperLine,
			testjsonl.ClaudeAssistantTextJSON(
				"ok", "2024-06-04T10:00:05Z",
			)))

	trimmedFirst := testjsonl.WithTrimMetadata(
		testjsonl.ClaudeUserJSON(
			"hi", "2024-06-05T10:00:00Z", "/work/alpha",
		),
		"/work/parent.jsonl", "2024-06-05T10:00:00Z",
	)
	trimmedPath := filepath.Join(
		claudeHome, "projects", "-work-alpha",
		"eeee1111-2222-3333-4444-555566667777.jsonl",
	)
	writeFile(t, trimmedPath, testjsonl.JoinJSONL(trimmedFirst,
		testjsonl.ClaudeAssistantTextJSON(
			"ok", "2024-06-05T10:00:05Z",
		)))

	st := NewStore(claudeHome, codexHome, nil)

	all := st.Discover(Filter{})
	for _, s := range all {
		assert.False(t, s.Helper)
	}
	assert.Len(t, all, 4)

	originals := st.Discover(Filter{OriginalOnly: true})
	for _, s := range originals {
		assert.Equal(t, DerivationOriginal, s.Derivation)
	}
	assert.Len(t, originals, 3)

	derived := st.Discover(Filter{SkipTrimmed: true})
	for _, s := range derived {
		assert.NotEqual(t, s.Path, trimmedPath)
	}
}

func TestLatest(t *testing.T) {
	claudeHome, codexHome, paths := fixtureHomes(t)
	st := NewStore(claudeHome, codexHome, nil)

	s, err := st.Latest(Filter{CWD: "/work/alpha"})
	require.NoError(t, err)
	assert.Equal(t, paths[2], s.Path)

	s, err = st.Latest(Filter{
		CWD: "/work/alpha", Branch: "main",
	})
	require.NoError(t, err)
	assert.Equal(t, paths[2], s.Path)

	// An unmatched branch is a preference, not a hard filter:
	// sessions that recorded no branch still qualify.
	s, err = st.Latest(Filter{
		CWD: "/work/alpha", Branch: "feature/nope",
	})
	require.NoError(t, err)
	assert.Equal(t, paths[2], s.Path)

	_, err = st.Latest(Filter{CWD: "/nowhere"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve(t *testing.T) {
	claudeHome, codexHome, paths := fixtureHomes(t)
	st := NewStore(claudeHome, codexHome, nil)

	t.Run("file path", func(t *testing.T) {
		s, err := st.Resolve(paths[0], "")
		require.NoError(t, err)
		assert.Equal(t, paths[0], s.Path)
	})

	t.Run("exact claude id", func(t *testing.T) {
		s, err := st.Resolve(
			"aaaa1111-2222-3333-4444-555566667777", "",
		)
		require.NoError(t, err)
		assert.Equal(t, paths[0], s.Path)
	})

	t.Run("exact codex id", func(t *testing.T) {
		s, err := st.Resolve(
			"cccc1111-2222-3333-4444-555566667777", "",
		)
		require.NoError(t, err)
		assert.Equal(t, paths[2], s.Path)
	})

	t.Run("prefix", func(t *testing.T) {
		s, err := st.Resolve("bbbb1111", "")
		require.NoError(t, err)
		assert.Equal(t, paths[1], s.Path)
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		_, err := st.Resolve("1111-2222", "")
		var ambig *AmbiguousError
		require.ErrorAs(t, err, &ambig)
		assert.Len(t, ambig.Candidates, 3)
	})

	t.Run("cwd scoping disambiguates", func(t *testing.T) {
		s, err := st.Resolve("1111-2222", "/work/beta")
		require.NoError(t, err)
		assert.Equal(t, paths[1], s.Path)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := st.Resolve("zzzz", "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("malformed file is fatal on direct resolve", func(t *testing.T) {
		path := filepath.Join(
			claudeHome, "projects", "-work-alpha",
			"dddd1111-2222-3333-4444-555566667777.jsonl",
		)
		writeFile(t, path, testjsonl.JoinJSONL(
			`{"type":"summary","summary":"snapshot only"}`,
		))

		for _, ref := range []string{path, "dddd1111"} {
			_, err := st.Resolve(ref, "")
			var malformed *MalformedError
			require.ErrorAs(t, err, &malformed, ref)
			assert.Equal(t, path, malformed.Path)
		}
	})
}

func TestLatestMissingHomes(t *testing.T) {
	st := NewStore(
		filepath.Join(t.TempDir(), "noclaude"),
		filepath.Join(t.TempDir(), "nocodex"),
		nil,
	)
	assert.Empty(t, st.Discover(Filter{}))
	_, err := st.Latest(Filter{})
	assert.True(t, errors.Is(err, ErrNotFound))
}
