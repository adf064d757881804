package continuation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryPromptSingleFile(t *testing.T) {
	t.Run("claude wants parallel sub-agents", func(t *testing.T) {
		p := summaryPrompt([]string{"/tmp/chat.txt"}, "", false)
		assert.Contains(t, p, "/tmp/chat.txt")
		assert.Contains(t, p, "PARALLEL SUB-AGENTS")
		assert.Contains(t, p, "DO NOT TRY TO READ /tmp/chat.txt by YOURSELF!")
		assert.Contains(t, p,
			"state your understanding of the most recent task")
	})

	t.Run("codex gets the cautious variant", func(t *testing.T) {
		p := summaryPrompt([]string{"/tmp/chat.txt"}, "", true)
		assert.Contains(t, p, "CAUTION: /tmp/chat.txt may be very large.")
		assert.NotContains(t, p, "PARALLEL SUB-AGENTS")
	})
}

func TestSummaryPromptMultiFile(t *testing.T) {
	exports := []string{"/e/one.txt", "/e/two.txt", "/e/three.txt"}
	p := summaryPrompt(exports, "", false)

	assert.Contains(t, p, "CHAIN of past conversations")
	assert.Contains(t, p, "1. /e/one.txt\n2. /e/two.txt\n3. /e/three.txt")
	assert.Contains(t, p, "The LAST file (/e/three.txt)")
	assert.Contains(t, p,
		"Exploring the most recent file (/e/three.txt) thoroughly")
	assert.Contains(t, p,
		"state your understanding of the full task history")
}

func TestSummaryPromptCustomInstructions(t *testing.T) {
	p := summaryPrompt([]string{"/tmp/chat.txt"},
		"Focus on the database migration.", false)
	assert.Contains(t, p, "special instructions from the user")
	assert.True(t, strings.HasSuffix(p,
		"Focus on the database migration."))

	p = summaryPrompt([]string{"/tmp/chat.txt"}, "", false)
	assert.NotContains(t, p, "special instructions")
}

func TestExtractMarkedID(t *testing.T) {
	t.Run("plain output", func(t *testing.T) {
		id, err := extractMarkedID(
			"SESSION_ID:abcd1234-5678\n")
		require.NoError(t, err)
		assert.Equal(t, "abcd1234-5678", id)
	})

	t.Run("shell noise around marker", func(t *testing.T) {
		id, err := extractMarkedID(
			"welcome to zsh\nSESSION_ID:abcd1234 trailing junk\n")
		require.NoError(t, err)
		assert.Equal(t, "abcd1234", id)
	})

	t.Run("ansi codes stripped", func(t *testing.T) {
		id, err := extractMarkedID(
			"\x1b[1mSESSION_ID:\x1b[0mabcd1234\n")
		require.NoError(t, err)
		assert.Equal(t, "abcd1234", id)
	})

	t.Run("missing marker", func(t *testing.T) {
		_, err := extractMarkedID("no id here")
		assert.Error(t, err)
	})

	t.Run("marker with nothing after", func(t *testing.T) {
		_, err := extractMarkedID("SESSION_ID: \n")
		assert.Error(t, err)
	})
}

func TestShellArgv(t *testing.T) {
	t.Run("default login shell", func(t *testing.T) {
		t.Setenv("SHELL", "/bin/zsh")
		argv, err := ShellArgv("", "claude --resume x")
		require.NoError(t, err)
		assert.Equal(t,
			[]string{"/bin/zsh", "-i", "-c", "claude --resume x"}, argv)
	})

	t.Run("fallback without SHELL", func(t *testing.T) {
		t.Setenv("SHELL", "")
		argv, err := ShellArgv("", "true")
		require.NoError(t, err)
		assert.Equal(t, "/bin/sh", argv[0])
	})

	t.Run("launcher template", func(t *testing.T) {
		argv, err := ShellArgv(`bash --login -c`, "claude")
		require.NoError(t, err)
		assert.Equal(t,
			[]string{"bash", "--login", "-c", "claude"}, argv)
	})

	t.Run("quoted launcher words", func(t *testing.T) {
		argv, err := ShellArgv(`"/opt/my shell/zsh" -i -c`, "x")
		require.NoError(t, err)
		assert.Equal(t, "/opt/my shell/zsh", argv[0])
	})
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, ShellQuote("plain"))
	assert.Equal(t, `'it'\''s'`, ShellQuote("it's"))
	assert.Equal(t, `'a b'`, ShellQuote("a b"))
}

func TestDisplayPath(t *testing.T) {
	assert.Equal(t, "exports/a.txt",
		displayPath("/work/alpha/exports/a.txt", "/work/alpha"))
	assert.Equal(t, "/elsewhere/a.txt",
		displayPath("/elsewhere/a.txt", "/work/alpha"))
}

func TestChooseTarget(t *testing.T) {
	assert.Equal(t, "claude",
		string(chooseTarget("", "claude")))
	assert.Equal(t, "codex",
		string(chooseTarget("codex", "codex")))
}
