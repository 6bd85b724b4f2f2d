package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewAllCallbacks aggregates the model, tool and prompt observers for one
// thread into a single callbacks.Handler.
func NewAllCallbacks(threadID string) einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		Tool(newToolHandler(threadID)).
		ChatModel(newModelHandler(threadID)).
		Prompt(newPromptHandler(threadID)).
		Handler()
}
