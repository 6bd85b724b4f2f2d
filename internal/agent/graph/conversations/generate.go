package conversations

import (
	"context"
	"fmt"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Generate invokes m with chat-model callbacks attributed to name. A reply
// without a role is treated as an assistant message.
func Generate(ctx context.Context, m einomodel.BaseChatModel, name string, msgs []*schema.Message) (*schema.Message, error) {
	ctx = einocb.ReuseHandlers(ctx, &einocb.RunInfo{
		Name:      name,
		Type:      "ChatModel",
		Component: components.ComponentOfChatModel,
	})
	reply, err := m.Generate(ctx, msgs)
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, fmt.Errorf("%s model returned no message", name)
	}
	if reply.Role == "" {
		reply.Role = schema.Assistant
	}
	return reply, nil
}
