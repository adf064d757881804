package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentsess/agentsess/internal/testjsonl"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDetectAgent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Agent
	}{
		{
			name: "codex session_meta",
			content: testjsonl.NewSessionBuilder().
				AddCodexMeta(
					"2024-06-01T10:00:00Z",
					"abc-123", "/work/proj", "main",
				).
				String(),
			want: AgentCodex,
		},
		{
			name: "codex response_item only",
			content: testjsonl.NewSessionBuilder().
				AddCodexMessage(
					"2024-06-01T10:00:00Z", "user", "hi",
				).
				String(),
			want: AgentCodex,
		},
		{
			name: "claude sessionId",
			content: testjsonl.NewSessionBuilder().
				AddClaudeUserWithSessionID(
					"2024-06-01T10:00:00Z", "hello", "sess-1",
				).
				String(),
			want: AgentClaude,
		},
		{
			name: "claude message envelope",
			content: testjsonl.NewSessionBuilder().
				AddClaudeUser("2024-06-01T10:00:00Z", "hello").
				String(),
			want: AgentClaude,
		},
		{
			name:    "unrecognized defaults to claude",
			content: "{\"foo\": 1}\n",
			want:    AgentClaude,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "s.jsonl")
			writeFile(t, path, tt.content)
			got, err := DetectAgent(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyClaude(t *testing.T) {
	content := testjsonl.NewSessionBuilder().
		AddClaudeUser(
			"2024-06-01T10:00:00Z", "fix the parser bug",
			"/work/myproj",
		).
		AddClaudeAssistant("2024-06-01T10:00:05Z", "Looking now.").
		AddClaudeUser("2024-06-01T10:02:00Z", "also add a test").
		String()

	path := filepath.Join(t.TempDir(), "abc-def-123.jsonl")
	writeFile(t, path, content)

	s, err := Classify(path)
	require.NoError(t, err)

	assert.Equal(t, "abc-def-123", s.ID)
	assert.Equal(t, AgentClaude, s.Agent)
	assert.Equal(t, "/work/myproj", s.CWD)
	assert.Equal(t, "myproj", s.Project())
	assert.Equal(t, 3, s.LineCount)
	assert.Equal(t, "fix the parser bug", s.FirstUserMessage)
	assert.Equal(t, "also add a test", s.LastUserMessage)
	assert.Equal(t, DerivationOriginal, s.Derivation)
	assert.True(t, s.Valid)
	assert.False(t, s.Helper)
	assert.False(t, s.IsSidechain)
	assert.Equal(t, "2024-06-01T10:00:00Z",
		s.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"))
}

func TestClassifyClaudeSkipsSystemMessages(t *testing.T) {
	content := testjsonl.NewSessionBuilder().
		AddClaudeUser(
			"2024-06-01T10:00:00Z",
			"This session is being continued from a previous one",
		).
		AddClaudeUser("2024-06-01T10:01:00Z", "real question").
		AddClaudeMetaUser(
			"2024-06-01T10:02:00Z", "meta note", true, false,
		).
		String()

	path := filepath.Join(t.TempDir(), "s1.jsonl")
	writeFile(t, path, content)

	s, err := Classify(path)
	require.NoError(t, err)
	assert.Equal(t, "real question", s.FirstUserMessage)
	assert.Equal(t, "real question", s.LastUserMessage)
}

func TestClassifyCodex(t *testing.T) {
	content := testjsonl.NewSessionBuilder().
		AddCodexMeta(
			"2024-06-01T10:00:00Z",
			"0199a213-81e2-7800-8892-56d4b161d79a",
			"/work/api", "feature/x",
		).
		AddCodexMessage(
			"2024-06-01T10:00:01Z", "user", "refactor the handler",
		).
		AddCodexMessage(
			"2024-06-01T10:00:09Z", "assistant", "Done.",
		).
		String()

	name := "rollout-2024-06-01T10-00-00-" +
		"0199a213-81e2-7800-8892-56d4b161d79a.jsonl"
	path := filepath.Join(t.TempDir(), name)
	writeFile(t, path, content)

	s, err := Classify(path)
	require.NoError(t, err)

	assert.Equal(t,
		"0199a213-81e2-7800-8892-56d4b161d79a", s.ID)
	assert.Equal(t, AgentCodex, s.Agent)
	assert.Equal(t, "/work/api", s.CWD)
	assert.Equal(t, "feature/x", s.GitBranch)
	assert.Equal(t, "refactor the handler", s.FirstUserMessage)
	assert.True(t, s.Valid)
}

func TestClassifyDerivation(t *testing.T) {
	base := testjsonl.ClaudeUserJSON(
		"hello", "2024-06-01T10:00:00Z", "/work/p",
	)

	t.Run("trim metadata", func(t *testing.T) {
		first := testjsonl.WithTrimMetadata(
			base, "/home/u/.claude/projects/p/parent.jsonl",
			"2024-06-02T09:00:00Z",
		)
		path := filepath.Join(t.TempDir(), "child.jsonl")
		writeFile(t, path, testjsonl.JoinJSONL(
			first,
			testjsonl.ClaudeAssistantTextJSON(
				"ok", "2024-06-01T10:00:05Z",
			),
		))

		s, err := Classify(path)
		require.NoError(t, err)
		assert.Equal(t, DerivationTrimmed, s.Derivation)
		assert.Equal(t,
			"/home/u/.claude/projects/p/parent.jsonl",
			s.ParentFile)
	})

	t.Run("continue metadata wins over trim", func(t *testing.T) {
		first := testjsonl.WithTrimMetadata(
			base, "/tmp/trim-parent.jsonl", "2024-06-02T09:00:00Z",
		)
		first = testjsonl.WithContinueMetadata(
			first, "parent-id", "/tmp/cont-parent.jsonl",
			"2024-06-03T09:00:00Z",
		)
		path := filepath.Join(t.TempDir(), "child.jsonl")
		writeFile(t, path, testjsonl.JoinJSONL(
			first,
			testjsonl.ClaudeAssistantTextJSON(
				"ok", "2024-06-01T10:00:05Z",
			),
		))

		s, err := Classify(path)
		require.NoError(t, err)
		assert.Equal(t, DerivationContinued, s.Derivation)
		assert.Equal(t, "/tmp/cont-parent.jsonl", s.ParentFile)
		assert.Equal(t, "parent-id", s.ParentSessionID)
	})
}

func TestClassifyHelper(t *testing.T) {
	t.Run("marker key", func(t *testing.T) {
		first := testjsonl.WithField(
			testjsonl.ClaudeUserJSON(
				"hi", "2024-06-01T10:00:00Z",
			),
			HelperMarkerKey,
			map[string]any{"purpose": "trim_analysis"},
		)
		path := filepath.Join(t.TempDir(), "h.jsonl")
		writeFile(t, path, testjsonl.JoinJSONL(first))

		s, err := Classify(path)
		require.NoError(t, err)
		assert.True(t, s.Helper)
	})

	t.Run("fingerprint with few messages", func(t *testing.T) {
		prompt := "You are identifying which lines can be " +
			"trimmed from a coding agent session log."
		path := filepath.Join(t.TempDir(), "h.jsonl")
		writeFile(t, path, testjsonl.NewSessionBuilder().
			AddClaudeUser("2024-06-01T10:00:00Z", prompt).
			AddClaudeAssistant("2024-06-01T10:00:09Z", "[[1,0,5]]").
			String())

		s, err := Classify(path)
		require.NoError(t, err)
		assert.True(t, s.Helper)
	})

	t.Run("continued session echoing handoff prompt", func(t *testing.T) {
		prompt := "Strategically use PARALLEL SUB-AGENTS to " +
			"explore /tmp/chat.txt (which may be very long)"
		first := testjsonl.WithContinueMetadata(
			testjsonl.ClaudeUserJSON("Hello", "2024-06-01T10:00:00Z"),
			"eeee1111-2222-3333-4444-555566667777",
			"/home/u/.claude/projects/-w/parent.jsonl",
			"2024-06-01T10:00:00Z",
		)
		path := filepath.Join(t.TempDir(), "c.jsonl")
		writeFile(t, path, testjsonl.JoinJSONL(
			first,
			testjsonl.ClaudeUserJSON(prompt, "2024-06-01T10:00:05Z"),
			testjsonl.ClaudeAssistantJSON(
				"Understood, exploring the export now.",
				"2024-06-01T10:00:30Z",
			),
		))

		s, err := Classify(path)
		require.NoError(t, err)
		assert.False(t, s.Helper,
			"continued sessions stay visible in listings")
		assert.Equal(t, DerivationContinued, s.Derivation)
	})

	t.Run("fingerprint quoted in long session", func(t *testing.T) {
		b := testjsonl.NewSessionBuilder()
		b.AddClaudeUser("2024-06-01T10:00:00Z",
			"the prompt mentions identifying which lines can be "+
				"trimmed from a coding agent session")
		for i := 0; i < 8; i++ {
			b.AddClaudeUser("2024-06-01T10:01:00Z", "more work")
			b.AddClaudeAssistant("2024-06-01T10:01:05Z", "ok")
		}
		path := filepath.Join(t.TempDir(), "long.jsonl")
		writeFile(t, path, b.String())

		s, err := Classify(path)
		require.NoError(t, err)
		assert.False(t, s.Helper)
	})
}

func TestClassifyValidity(t *testing.T) {
	t.Run("tool result alone is substantive", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "s.jsonl")
		writeFile(t, path, testjsonl.NewSessionBuilder().
			AddClaudeToolResult("2024-06-01T10:00:00Z", "output").
			String())

		s, err := Classify(path)
		require.NoError(t, err)
		assert.True(t, s.Valid)
	})

	t.Run("system-only session is invalid", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "s.jsonl")
		writeFile(t, path, testjsonl.NewSessionBuilder().
			AddClaudeUser(
				"2024-06-01T10:00:00Z", "<command-name>clear",
			).
			String())

		s, err := Classify(path)
		require.NoError(t, err)
		assert.False(t, s.Valid)
	})
}

func TestEncodeProjectPath(t *testing.T) {
	tests := []struct {
		cwd  string
		want string
	}{
		{"/home/user/my_project", "-home-user-my-project"},
		{"/work/app.v2", "-work-app-v2"},
		{"/plain/path", "-plain-path"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EncodeProjectPath(tt.cwd))
	}
}

func TestRolloutUUID(t *testing.T) {
	assert.Equal(t,
		"0199a213-81e2-7800-8892-56d4b161d79a",
		RolloutUUID("rollout-2024-06-01T10-00-00-"+
			"0199a213-81e2-7800-8892-56d4b161d79a.jsonl"))
	assert.Equal(t, "", RolloutUUID("notes.jsonl"))
	assert.Equal(t, "", RolloutUUID("rollout-missing-uuid.jsonl"))
}
