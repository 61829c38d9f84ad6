package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/cdgi-bus-assistant/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Result.Answer)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: model returned empty answer", contractx.ErrValidation)
	}
	return GraphOutput{
		Reply:      reply,
		ModelCalls: in.Result.ModelCalls,
		ToolName:   in.Result.ToolName,
	}, nil
}
