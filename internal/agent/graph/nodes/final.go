package nodes

import (
	"github.com/cloudwego/eino/schema"

	"github.com/dinewise-core/server/internal/agent/graph/conversations"
)

// FinalAnswer picks the user-facing text of a turn: the newest assistant
// message without tool calls. Text riding on a tool-calling step is never
// an answer. It returns "" when the turn produced nothing presentable.
func FinalAnswer(turn []*schema.Message) string {
	for i := len(turn) - 1; i >= 0; i-- {
		if text := conversations.AnswerText(turn[i]); text != "" {
			return text
		}
	}
	return ""
}
