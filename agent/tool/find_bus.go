package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/cdgi-bus-assistant/agent/contract"
)

const ToolFindBusForStop = "find_bus_for_stop"

type FindBusForStopInput struct {
	StopName string `json:"stop_name"`
}

type findBusForStop struct {
	finder contractx.StopFinder
}

var _ einotool.InvokableTool = (*findBusForStop)(nil)

func NewFindBusForStop(finder contractx.StopFinder) einotool.InvokableTool {
	return &findBusForStop{finder: finder}
}

func (t *findBusForStop) Info(context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: ToolFindBusForStop,
		Desc: "Get the bus details (Serial Number, Driver Name, etc.) for a specific stop name provided by a student.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"stop_name": {
				Type:     schema.String,
				Desc:     "The name of the bus stop the student wants to go to, e.g., 'Main Market', 'Sector 15', 'Vijay Nagar'.",
				Required: true,
			},
		}),
	}, nil
}

// InvokableRun returns the route record or the error payload as JSON. Only
// malformed arguments produce a Go error.
func (t *findBusForStop) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...einotool.Option) (string, error) {
	var in FindBusForStopInput
	raw := strings.TrimSpace(argumentsInJSON)
	if raw == "" {
		raw = "{}"
	}
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return "", fmt.Errorf("%w: invalid args for tool=%s: %v", contractx.ErrToolInvoke, ToolFindBusForStop, err)
	}

	var result contractx.StopResult
	if t.finder == nil {
		result = contractx.StopResult{Error: "Sorry, the bus schedule service is temporarily unavailable due to a configuration error."}
	} else {
		result = t.finder.FindStop(ctx, in.StopName)
	}

	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("%w: marshal result for tool=%s: %v", contractx.ErrToolInvoke, ToolFindBusForStop, err)
	}
	return string(out), nil
}
