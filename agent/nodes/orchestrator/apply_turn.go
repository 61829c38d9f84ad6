package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/cdgi-bus-assistant/agent/contract"
)

// ApplyTurn commits the extended history to the session. The caller owns
// persistence; stateless channels have nothing to commit.
func ApplyTurn(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Session == nil {
		return in, nil
	}
	if len(in.Result.History) <= len(in.History) {
		return nil, fmt.Errorf("%w: turn did not extend the history", contractx.ErrValidation)
	}

	in.Session.History = in.Result.History
	in.Session.Touch(in.Now)
	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}
	return in, nil
}
