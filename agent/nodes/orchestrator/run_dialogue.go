package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/cdgi-bus-assistant/agent/contract"
	logx "github.com/tanpawarit/cdgi-bus-assistant/pkg/logger"
)

func RunDialogue(
	ctx context.Context,
	in *GraphState,
	runner contractx.TurnRunner,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	result, err := runner.CompleteTurn(ctx, in.History)
	if err != nil {
		return nil, err
	}
	in.Result = result

	logx.FromContext(ctx).Debug().
		Str("channel", string(in.Channel)).
		Str("call_id", in.CallID).
		Int("model_calls", result.ModelCalls).
		Str("tool", result.ToolName).
		Msg("dialogue turn completed")

	return in, nil
}
