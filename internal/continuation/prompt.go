package continuation

import (
	"fmt"
	"strings"
)

// summaryPrompt builds the context-transfer prompt sent to the
// fresh session. Single-file lineages instruct the agent to fan
// sub-agents out over one export; multi-file lineages list the
// chain oldest-first and emphasize that the newest file carries
// the current state. Custom instructions are appended verbatim
// under a delimiter.
func summaryPrompt(exports []string, instructions string, codex bool) string {
	var sb strings.Builder
	if len(exports) == 1 {
		sb.WriteString(singleFilePrompt(exports[0], codex))
	} else {
		sb.WriteString(multiFilePrompt(exports, codex))
	}
	if instructions != "" {
		sb.WriteString("\n\nBelow are some special instructions " +
			"from the user. Prioritize these in combination with " +
			"the above instructions:\n\n")
		sb.WriteString(instructions)
	}
	return sb.String()
}

func singleFilePrompt(chatLog string, codex bool) string {
	if codex {
		return fmt.Sprintf(`There is a log of a past conversation with an AI agent in this file: %[1]s. We were running out of context, so I exported the chat log to that file.

CAUTION: %[1]s may be very large. Strategically use parallel sub-agents if available, or use another strategy to efficiently read the file so your context window is not overloaded. For example, you could read specific sections (beginning, middle, end) rather than the entire file at once.

When done exploring, state your understanding of the most recent task to me.`, chatLog)
	}
	return fmt.Sprintf(`There is a log of a past conversation with an AI agent in this file: %[1]s. We were running out of context, so I exported the chat log to that file.

Strategically use PARALLEL SUB-AGENTS to explore %[1]s (which may be very long) so that YOU have proper CONTEXT to continue the task that the agent was working on at the end of that chat.

DO NOT TRY TO READ %[1]s by YOURSELF! To save your own context, you must use parallel sub-agents, possibly to explore the beginning, middle, and end of that chat, so that you have sufficient context to continue the work where the agent left off.

If in this conversation you need more information about what happened during that previous conversation/session, you can again use a sub-agent(s) to explore %[1]s

When done exploring, state your understanding of the most recent task to me.`, chatLog)
}

func multiFilePrompt(exports []string, codex bool) string {
	var list strings.Builder
	for i, path := range exports {
		fmt.Fprintf(&list, "%d. %s\n", i+1, path)
	}
	newest := exports[len(exports)-1]

	header := fmt.Sprintf(`There is a CHAIN of past conversations with an AI agent. The work was continued across multiple sessions as we ran out of context. Here are ALL the exported chat logs in CHRONOLOGICAL ORDER (oldest to newest):

%s
Each session was a continuation of the previous one. The LAST file (%s) is the most recent session that ran out of context.

`, list.String(), newest)

	if codex {
		return header + fmt.Sprintf(`CAUTION: These files may be very large. Strategically use parallel sub-agents if available, or use another strategy to efficiently read the files so your context window is not overloaded. Consider:
- Reading the beginning of the first file to understand the original task
- Reading the end of each continuation to see what was accomplished
- Reading the most recent file (%s) thoroughly to understand the current state

When done exploring, state your understanding of the full task history and the most recent work to me.`, newest)
	}
	return header + fmt.Sprintf(`Strategically use PARALLEL SUB-AGENTS to explore ALL these files so that YOU have proper CONTEXT to continue the task. You should understand:
- The original task and requirements
- How the work progressed across sessions
- What was accomplished in each continuation
- The current state and what needs to be done next

DO NOT TRY TO READ these files by YOURSELF! To save your own context, you must use parallel sub-agents to explore these files. Consider:
- Exploring the beginning of the first file to understand the original task
- Exploring the end of each continuation to see what was accomplished
- Exploring the most recent file (%s) thoroughly to understand the current state

If later in this conversation you need more information about what happened during those previous sessions, you can again use sub-agent(s) to explore the relevant files.

When done exploring, state your understanding of the full task history and the most recent work to me.`, newest)
}
