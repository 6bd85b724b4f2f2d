package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/tool"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/dinewise-core/server/pkg/logger"
)

func newToolHandler(threadID string) *callbackHelper.ToolCallbackHandler {
	return &callbackHelper.ToolCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *tool.CallbackInput) context.Context {
			if input == nil {
				return ctx
			}
			logx.Debug().
				Str("thread_id", threadID).
				Str("tool_name", info.Name).
				Str("arguments", preview(input.ArgumentsInJSON)).
				Msg("Tool start")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *tool.CallbackOutput) context.Context {
			if output == nil {
				return ctx
			}
			logx.Debug().
				Str("thread_id", threadID).
				Str("tool_name", info.Name).
				Str("response", preview(output.Response)).
				Msg("Tool end")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).
				Str("thread_id", threadID).
				Str("tool_name", info.Name).
				Msg("Tool execution failed")
			return ctx
		},
	}
}
