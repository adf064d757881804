package derive

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/agentsess/agentsess/internal/session"
	"github.com/agentsess/agentsess/internal/testjsonl"
)

// stubAnalyzer returns canned verdicts and records what it saw.
type stubAnalyzer struct {
	verdicts []int
	chunks   [][]Candidate
}

func (s *stubAnalyzer) AnalyzeChunks(
	_ context.Context, chunks [][]Candidate, _ string,
) ([]int, error) {
	s.chunks = chunks
	return s.verdicts, nil
}

// bulkySession builds a claude session with numBulky assistant
// lines of ~1000 chars each, bracketed by a user ask and a
// short wrap-up.
func bulkySession(numBulky int) string {
	long := strings.Repeat("w", 1000)
	b := testjsonl.NewSessionBuilder().
		AddClaudeUser("2024-06-01T10:00:00Z", "do the thing", "/w")
	for i := 0; i < numBulky; i++ {
		b.AddClaudeAssistant("2024-06-01T10:01:00Z", long)
	}
	b.AddClaudeAssistant("2024-06-01T10:05:00Z", "done")
	return b.String()
}

func TestSmartTrimCandidates(t *testing.T) {
	lines := strings.Split(
		strings.TrimSuffix(bulkySession(3), "\n"), "\n",
	)
	pool := SmartTrimCandidates(lines)
	require.Len(t, pool, 3)

	// The short user ask and wrap-up fall below the pool cutoff.
	assert.Equal(t, 1, pool[0].Line)
	assert.Equal(t, 1000, pool[0].Length)
	assert.True(t, strings.HasPrefix(
		pool[0].Label(), "LINE 1 [len=1000]: [ASSISTANT]: www",
	))
}

func TestSmartTrimCandidatesCodex(t *testing.T) {
	long := strings.Repeat("q", 900)
	lines := []string{
		testjsonl.CodexSessionMetaJSON(
			"id-1", "/w", "main", "2024-06-01T10:00:00Z",
		),
		testjsonl.CodexFunctionCallOutputJSON(
			long, "2024-06-01T10:00:02Z",
		),
		testjsonl.CodexMsgJSON(
			"assistant", "short", "2024-06-01T10:00:03Z",
		),
	}
	pool := SmartTrimCandidates(lines)
	require.Len(t, pool, 1)
	assert.Equal(t, 1, pool[0].Line)
	assert.Contains(t, pool[0].Preview, "[TOOL_RESULT]: qqq")
}

func TestSmartTrimReplacesPlannedLines(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "parent.jsonl")
	writeFile(t, parent, bulkySession(15))

	an := &stubAnalyzer{verdicts: []int{1, 2, 3}}
	res, err := SmartTrim(context.Background(), parent, an,
		SmartTrimOptions{PreserveRecent: 5, AnalysisAgent: "claude"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 3, res.LinesTrimmed)

	outLines, err := session.ReadLines(res.OutputFile)
	require.NoError(t, err)
	for _, idx := range []int{1, 2, 3} {
		line := outLines[idx]
		assert.True(t, gjson.Get(line, "trimmed_line").Bool())
		assert.Equal(t, int64(idx),
			gjson.Get(line, "line_number").Int())
		assert.Greater(t,
			gjson.Get(line, "original_length").Int(), int64(1000))
	}
	// Unplanned lines copy through.
	assert.Equal(t, "do the thing",
		gjson.Get(outLines[0], "message.content").Str)

	md := gjson.Get(outLines[0], "trim_metadata")
	require.True(t, md.Exists())
	assert.Equal(t, "smart-trim",
		md.Get("trim_params.method").Str)
	assert.Equal(t, "claude",
		md.Get("trim_params.analysis_agent").Str)
	assert.Equal(t, int64(3),
		md.Get("stats.num_lines_trimmed").Int())
}

func TestSmartTrimProtectedNeverTrimmed(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "parent.jsonl")
	writeFile(t, parent, bulkySession(15)) // 17 lines total

	// Verdicts include protected tail lines and a non-candidate.
	an := &stubAnalyzer{verdicts: []int{2, 14, 15, 16, 0}}
	res, err := SmartTrim(context.Background(), parent, an,
		SmartTrimOptions{PreserveRecent: 5})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.LinesTrimmed)

	outLines, err := session.ReadLines(res.OutputFile)
	require.NoError(t, err)
	assert.True(t, gjson.Get(outLines[2], "trimmed_line").Bool())
	for _, idx := range []int{0, 14, 15, 16} {
		assert.False(t,
			gjson.Get(outLines[idx], "trimmed_line").Bool(),
			"line %d must not be trimmed", idx)
	}
}

func TestSmartTrimNeverTrimsUserMessages(t *testing.T) {
	t.Run("claude", func(t *testing.T) {
		longUser := strings.Repeat("u", 1300)
		parent := filepath.Join(t.TempDir(), "parent.jsonl")
		writeFile(t, parent, testjsonl.NewSessionBuilder().
			AddClaudeUser("2024-06-01T10:00:00Z", longUser, "/w").
			AddClaudeAssistant("2024-06-01T10:01:00Z",
				strings.Repeat("a", 1200)).
			AddClaudeAssistant("2024-06-01T10:02:00Z", "done").
			String())

		// Verdicts name the user line; only the assistant line
		// may be trimmed.
		an := &stubAnalyzer{verdicts: []int{0, 1}}
		res, err := SmartTrim(context.Background(), parent, an,
			SmartTrimOptions{PreserveRecent: 1})
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, 1, res.LinesTrimmed)

		outLines, err := session.ReadLines(res.OutputFile)
		require.NoError(t, err)
		assert.False(t, gjson.Get(outLines[0], "trimmed_line").Bool())
		assert.Equal(t, longUser,
			gjson.Get(outLines[0], "message.content").Str)
		assert.True(t, gjson.Get(outLines[1], "trimmed_line").Bool())
	})

	t.Run("codex", func(t *testing.T) {
		longUser := strings.Repeat("u", 1300)
		parent := filepath.Join(t.TempDir(), "parent.jsonl")
		lines := []string{
			testjsonl.CodexSessionMetaJSON(
				"id-1", "/w", "main", "2024-06-01T10:00:00Z",
			),
			testjsonl.CodexMsgJSON(
				"user", longUser, "2024-06-01T10:00:01Z",
			),
			testjsonl.CodexFunctionCallOutputJSON(
				strings.Repeat("o", 1200), "2024-06-01T10:00:02Z",
			),
		}
		writeFile(t, parent, strings.Join(lines, "\n")+"\n")

		an := &stubAnalyzer{verdicts: []int{1, 2}}
		res, err := SmartTrim(context.Background(), parent, an,
			SmartTrimOptions{PreserveRecent: -1})
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, 1, res.LinesTrimmed)

		outLines, err := session.ReadLines(res.OutputFile)
		require.NoError(t, err)
		assert.False(t, gjson.Get(outLines[1], "trimmed_line").Bool())
		assert.Contains(t, outLines[1], longUser)
		assert.True(t, gjson.Get(outLines[2], "trimmed_line").Bool())
	})
}

func TestSmartTrimAlreadyOptimal(t *testing.T) {
	t.Run("no candidates", func(t *testing.T) {
		dir := t.TempDir()
		parent := filepath.Join(dir, "parent.jsonl")
		writeFile(t, parent, testjsonl.NewSessionBuilder().
			AddClaudeUser("2024-06-01T10:00:00Z", "tiny", "/w").
			AddClaudeAssistant("2024-06-01T10:00:05Z", "ok").
			String())

		an := &stubAnalyzer{}
		res, err := SmartTrim(context.Background(), parent, an,
			SmartTrimOptions{})
		require.NoError(t, err)
		assert.Nil(t, res)
		assert.Nil(t, an.chunks) // analysis never ran

		entries, err := filepath.Glob(filepath.Join(dir, "*"))
		require.NoError(t, err)
		assert.Len(t, entries, 1) // only the parent
	})

	t.Run("empty verdicts", func(t *testing.T) {
		dir := t.TempDir()
		parent := filepath.Join(dir, "parent.jsonl")
		writeFile(t, parent, bulkySession(15))

		res, err := SmartTrim(context.Background(), parent,
			&stubAnalyzer{}, SmartTrimOptions{})
		require.NoError(t, err)
		assert.Nil(t, res)

		entries, err := filepath.Glob(filepath.Join(dir, "*"))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestChunkCandidates(t *testing.T) {
	pool := make([]Candidate, 250)
	for i := range pool {
		pool[i] = Candidate{Line: i}
	}
	chunks := chunkCandidates(pool, 100)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	assert.Len(t, chunks[1], 100)
	assert.Len(t, chunks[2], 50)
	assert.Equal(t, 100, chunks[1][0].Line)
}
