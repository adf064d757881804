package analysis

import (
	"fmt"
	"strings"
)

const defaultInstructions = "Trim messages that are not " +
	"relevant to the last task being worked on in this session."

const promptHeader = `I need help identifying which lines can be trimmed from a coding agent session.

The session representation is in: %s
%s
IMPORTANT - FILE FORMAT:
Each entry in that file is on a single line with format: LINE N [len=X]: [TYPE]: <preview>
- N is a LABEL (the original line number in the session file, 0-indexed)
- X is the content length in characters
- TYPE is one of: [ASSISTANT], [USER], or [TOOL_RESULT]
- The entries are NOT consecutive - there are gaps in the N values (e.g., LINE 4, LINE 22, LINE 53...)

CRITICAL: When returning results, use the EXACT value of N from the "LINE N" label.
Do NOT use the position of the entry in this file. For example, if you see:
  LINE 4 [len=6394]: ...
  LINE 22 [len=1120]: ...
And you want to trim the second entry, return "line": 22 (not "line": 2).

I am trying to truncate selected messages to clear out context, but still be able
to continue the work in this session.

================================================================================
TRIMMING INSTRUCTIONS (PAY SPECIAL ATTENTION):
%s
================================================================================
`

const claudePromptBody = `
Session files can be huge, so you MUST strategically deploy PARALLEL SUB-AGENTS
to analyze different portions of the session. Give each sub-agent the proper
context including the TRIMMING INSTRUCTIONS above so they can accurately identify
which messages can be safely trimmed.
`

const codexPromptBody = `
Session files can be huge, so you MUST strategically explore it
to analyze different portions of the session.

Read the session file and identify entries that can be safely trimmed. Focus on:
- Verbose tool results that were one-time analysis only
- Lengthy explanations no longer relevant to current work
- Intermediate debugging output
- Large file reads that served their purpose
`

const promptFooter = `
Return your results as a JSON array of objects, where each object has:
- "line": the EXACT N value from the "LINE N" label (NOT the position in the file)
- "rationale": brief reason why it can be trimmed (max 5-6 words)
- "summary": 1-2 sentence summary of what the content contains

Example: If the file contains "LINE 42 [len=5000]: ..." and you want to trim it:
[
  {"line": 42, "rationale": "verbose tool output", "summary": "Reading config.py"}
]
`

// buildPrompt assembles the analysis prompt. chunkIdx and
// chunkTotal position a Mode 1 chunk within the whole session;
// a total of 1 omits the positioning note.
func buildPrompt(
	chunkFile string, chunkIdx, chunkTotal int,
	instructions string, codex bool,
) string {
	if strings.TrimSpace(instructions) == "" {
		instructions = defaultInstructions
	}
	position := ""
	if chunkTotal > 1 {
		position = fmt.Sprintf(
			"This file holds chunk %d of %d of the session's "+
				"trimmable lines.\n",
			chunkIdx+1, chunkTotal,
		)
	}
	body := claudePromptBody
	if codex {
		body = codexPromptBody
	}
	return fmt.Sprintf(
		promptHeader, chunkFile, position, instructions,
	) + body + promptFooter
}
