package conversations

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// SkippedToolResult is the payload recorded for tool calls that never ran
// because the turn hit its tool-call ceiling.
const SkippedToolResult = `{"status":"tool_call_skipped","note":"tool call limit reached before this call ran"}`

// Text returns the canonical plain text of a message, whether the provider
// answered with a string or with content parts.
func Text(m *schema.Message) string {
	if m == nil {
		return ""
	}
	if s := strings.TrimSpace(m.Content); s != "" {
		return s
	}
	if len(m.MultiContent) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range m.MultiContent {
		if part.Type != schema.ChatMessagePartTypeText || strings.TrimSpace(part.Text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.TrimSpace(part.Text))
	}
	return b.String()
}

// Provider glitches sometimes leak function-call markup into the text
// channel; such content is never shown to the user.
var callMarkup = regexp.MustCompile(`(?i)(<\s*/?\s*(function_calls?|invoke|tool_call|parameter)\b|^\s*\{\s*"(tool_calls?|function_call)"\s*:|^\s*` + "```" + `tool_code)`)

// AnswerText returns the text of m when it is a presentable answer: an
// assistant message with no tool calls whose text is not leaked call
// markup. Otherwise it returns "".
func AnswerText(m *schema.Message) string {
	if m == nil || m.Role != schema.Assistant || len(m.ToolCalls) > 0 {
		return ""
	}
	text := Text(m)
	if callMarkup.MatchString(text) {
		return ""
	}
	return text
}

// BuildModelContext assembles the message list sent to a model: the system
// prompt, a bounded tail of history, then any trailing instructions.
func BuildModelContext(systemPrompt string, history []*schema.Message, maxMessages int, trailing ...*schema.Message) []*schema.Message {
	recent := trimTail(history, maxMessages)
	out := make([]*schema.Message, 0, len(recent)+len(trailing)+1)
	if systemPrompt != "" {
		out = append(out, schema.SystemMessage(systemPrompt))
	}
	out = append(out, recent...)
	for _, m := range trailing {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// trimTail keeps at most maxMessages trailing messages, starting the window
// at a human message so no tool result is separated from its call. When no
// human message falls inside the window the whole current exchange is kept.
func trimTail(messages []*schema.Message, maxMessages int) []*schema.Message {
	if maxMessages <= 0 || len(messages) <= maxMessages {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	start := len(messages) - maxMessages
	cut := -1
	for i := start; i < len(messages); i++ {
		if messages[i] != nil && messages[i].Role == schema.User {
			cut = i
			break
		}
	}
	if cut < 0 {
		for i := start - 1; i >= 0; i-- {
			if messages[i] != nil && messages[i].Role == schema.User {
				cut = i
				break
			}
		}
	}
	if cut < 0 {
		cut = 0
	}
	source := messages[cut:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}

// SealDanglingToolCalls returns one skipped-result tool message for every
// call in the trailing assistant message that has no answer yet. The
// returned messages are meant to be appended to history as-is.
func SealDanglingToolCalls(history []*schema.Message) []*schema.Message {
	idx := -1
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m == nil {
			continue
		}
		if m.Role == schema.Assistant && len(m.ToolCalls) > 0 {
			idx = i
			break
		}
		if m.Role != schema.Tool {
			return nil
		}
	}
	if idx < 0 {
		return nil
	}

	answered := make(map[string]bool)
	for _, m := range history[idx+1:] {
		if m != nil && m.Role == schema.Tool {
			answered[m.ToolCallID] = true
		}
	}

	var sealed []*schema.Message
	for i, call := range history[idx].ToolCalls {
		id := call.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i+1)
		}
		if answered[id] {
			continue
		}
		sealed = append(sealed, schema.ToolMessage(SkippedToolResult, id, schema.WithToolName(call.Function.Name)))
	}
	return sealed
}

// TurnPair scans msgs newest-first for the latest human input and the latest
// presentable answer (see AnswerText), stopping once both are found.
func TurnPair(msgs []*schema.Message) (userInput, answer string, ok bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		switch m.Role {
		case schema.User:
			if userInput == "" {
				userInput = Text(m)
			}
		case schema.Assistant:
			if answer == "" {
				answer = AnswerText(m)
			}
		}
		if userInput != "" && answer != "" {
			return userInput, answer, true
		}
	}
	return userInput, answer, false
}
