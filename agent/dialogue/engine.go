package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/cdgi-bus-assistant/agent/contract"
	logx "github.com/tanpawarit/cdgi-bus-assistant/pkg/logger"
)

// Engine runs one turn: a tool-enabled completion, at most one tool
// round-trip, then a tool-free completion for the final answer.
type Engine struct {
	chatModel einomodel.BaseChatModel
	toolModel einomodel.BaseChatModel
	registry  contractx.ToolRegistry
	runner    compose.Runnable[*turnState, contractx.TurnResult]
}

var _ contractx.TurnRunner = (*Engine)(nil)

func New(ctx context.Context, chatModel einomodel.ToolCallingChatModel, registry contractx.ToolRegistry) (*Engine, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: tool registry is required", contractx.ErrValidation)
	}

	infos, err := registry.Infos(ctx)
	if err != nil {
		return nil, err
	}
	toolModel, err := chatModel.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
	}

	e := &Engine{
		chatModel: chatModel,
		toolModel: toolModel,
		registry:  registry,
	}

	runner, err := compileTurnGraph(ctx, e.request, e.runTool, e.answer, e.finalize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	e.runner = runner

	return e, nil
}

// CompleteTurn never mutates history; the returned result carries the
// extended copy.
func (e *Engine) CompleteTurn(ctx context.Context, history []*schema.Message) (contractx.TurnResult, error) {
	if len(history) == 0 {
		return contractx.TurnResult{}, fmt.Errorf("%w: history is empty", contractx.ErrValidation)
	}

	st := &turnState{
		History: append(make([]*schema.Message, 0, len(history)+3), history...),
	}

	out, err := e.runner.Invoke(ctx, st)
	if err != nil {
		if st.fault != nil {
			return contractx.TurnResult{}, st.fault
		}
		if errors.Is(err, contractx.ErrModelInvoke) || errors.Is(err, contractx.ErrToolInvoke) {
			return contractx.TurnResult{}, err
		}
		return contractx.TurnResult{}, fmt.Errorf("%w: turn graph: %v", contractx.ErrModelInvoke, err)
	}
	return out, nil
}

func (e *Engine) request(ctx context.Context, st *turnState) (*turnState, error) {
	msg, err := e.toolModel.Generate(ctx, st.History)
	st.ModelCalls++
	if err != nil {
		return nil, st.fail(fmt.Errorf("%w: tool-enabled completion: %v", contractx.ErrModelInvoke, err))
	}
	if msg == nil {
		return nil, st.fail(fmt.Errorf("%w: empty tool-enabled completion", contractx.ErrModelInvoke))
	}
	st.Reply = msg
	return st, nil
}

func (e *Engine) answer(ctx context.Context, st *turnState) (contractx.TurnResult, error) {
	st.History = append(st.History, st.Reply)
	return contractx.TurnResult{
		History:    st.History,
		Answer:     st.Reply.Content,
		ModelCalls: st.ModelCalls,
	}, nil
}

// runTool serves only the first tool call of the reply; the rest are dropped.
func (e *Engine) runTool(ctx context.Context, st *turnState) (*turnState, error) {
	calls := st.Reply.ToolCalls
	call := calls[0]
	if len(calls) > 1 {
		logx.FromContext(ctx).Warn().
			Str("tool", call.Function.Name).
			Int("dropped", len(calls)-1).
			Msg("model requested several tools; handling the first only")
	}

	name := strings.TrimSpace(call.Function.Name)
	t, ok := e.registry.Lookup(name)
	if !ok {
		return nil, st.fail(fmt.Errorf("%w: tool=%q", contractx.ErrUnknownTool, name))
	}

	output, err := t.InvokableRun(ctx, call.Function.Arguments)
	if err != nil {
		if !errors.Is(err, contractx.ErrToolInvoke) {
			err = fmt.Errorf("%w: tool=%s: %v", contractx.ErrToolInvoke, name, err)
		}
		return nil, st.fail(err)
	}

	request := *st.Reply
	request.ToolCalls = []schema.ToolCall{call}
	if request.Role == "" {
		request.Role = schema.Assistant
	}

	st.History = append(st.History,
		&request,
		&schema.Message{
			Role:       schema.Tool,
			Content:    output,
			ToolCallID: call.ID,
			ToolName:   name,
		},
	)
	st.ToolName = name
	return st, nil
}

func (e *Engine) finalize(ctx context.Context, st *turnState) (contractx.TurnResult, error) {
	msg, err := e.chatModel.Generate(ctx, st.History)
	st.ModelCalls++
	if err != nil {
		return contractx.TurnResult{}, st.fail(fmt.Errorf("%w: final completion: %v", contractx.ErrModelInvoke, err))
	}
	if msg == nil {
		return contractx.TurnResult{}, st.fail(fmt.Errorf("%w: empty final completion", contractx.ErrModelInvoke))
	}

	st.History = append(st.History, schema.AssistantMessage(msg.Content, nil))
	return contractx.TurnResult{
		History:    st.History,
		Answer:     msg.Content,
		ModelCalls: st.ModelCalls,
		ToolName:   st.ToolName,
	}, nil
}
