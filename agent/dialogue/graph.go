package dialogue

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/cdgi-bus-assistant/agent/contract"
)

const (
	nodeRequest  = "request"
	nodeAnswer   = "answer"
	nodeRunTool  = "run_tool"
	nodeFinalize = "finalize"
)

// turnState travels through the turn graph. fault keeps the typed error a
// node failed with so callers can match it with errors.Is.
type turnState struct {
	History    []*schema.Message
	Reply      *schema.Message
	ModelCalls int
	ToolName   string
	fault      error
}

func (s *turnState) fail(err error) error {
	if s.fault == nil {
		s.fault = err
	}
	return err
}

type turnStep = func(context.Context, *turnState) (*turnState, error)
type turnFinish = func(context.Context, *turnState) (contractx.TurnResult, error)

func compileTurnGraph(
	ctx context.Context,
	request turnStep,
	runTool turnStep,
	answer turnFinish,
	finalize turnFinish,
) (compose.Runnable[*turnState, contractx.TurnResult], error) {
	graph := compose.NewGraph[*turnState, contractx.TurnResult]()

	if err := graph.AddLambdaNode(nodeRequest, compose.InvokableLambda(request)); err != nil {
		return nil, fmt.Errorf("add turn node %s: %w", nodeRequest, err)
	}
	if err := graph.AddLambdaNode(nodeAnswer, compose.InvokableLambda(answer)); err != nil {
		return nil, fmt.Errorf("add turn node %s: %w", nodeAnswer, err)
	}
	if err := graph.AddLambdaNode(nodeRunTool, compose.InvokableLambda(runTool)); err != nil {
		return nil, fmt.Errorf("add turn node %s: %w", nodeRunTool, err)
	}
	if err := graph.AddLambdaNode(nodeFinalize, compose.InvokableLambda(finalize)); err != nil {
		return nil, fmt.Errorf("add turn node %s: %w", nodeFinalize, err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *turnState) (string, error) {
			if in == nil || in.Reply == nil {
				return "", fmt.Errorf("%w: turn state has no model reply", contractx.ErrValidation)
			}
			if len(in.Reply.ToolCalls) == 0 {
				return nodeAnswer, nil
			}
			return nodeRunTool, nil
		},
		map[string]bool{
			nodeAnswer:  true,
			nodeRunTool: true,
		},
	)
	if err := graph.AddBranch(nodeRequest, branch); err != nil {
		return nil, fmt.Errorf("add turn branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, nodeRequest},
		{nodeAnswer, compose.END},
		{nodeRunTool, nodeFinalize},
		{nodeFinalize, compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add turn edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("dialogue.turn"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}
