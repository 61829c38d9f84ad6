package orchestratornode

import (
	"fmt"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/cdgi-bus-assistant/agent/contract"
)

// BuildHistory appends the user message to the session history, or to a
// fresh seeded history when there is no session.
func BuildHistory(in *GraphState, seed func() []*schema.Message) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	var base []*schema.Message
	if in.Session != nil {
		base = in.Session.History
	} else {
		base = seed()
	}
	if len(base) == 0 || base[0] == nil || base[0].Role != schema.System {
		return nil, fmt.Errorf("%w: history must start with the system instruction", contractx.ErrValidation)
	}

	history := make([]*schema.Message, 0, len(base)+4)
	history = append(history, base...)
	in.History = append(history, schema.UserMessage(in.Text))
	return in, nil
}
