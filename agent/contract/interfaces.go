package contract

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// StopFinder looks up the route record for a stop name fragment.
type StopFinder interface {
	FindStop(ctx context.Context, fragment string) StopResult
}

// ToolRegistry is the catalog the dialogue engine offers to the model.
type ToolRegistry interface {
	Infos(ctx context.Context) ([]*schema.ToolInfo, error)
	Lookup(name string) (tool.InvokableTool, bool)
}

// TurnRunner runs one dialogue turn over a history.
type TurnRunner interface {
	CompleteTurn(ctx context.Context, history []*schema.Message) (TurnResult, error)
}

// Messenger delivers an out-of-band message to a channel user.
type Messenger interface {
	SendMessage(ctx context.Context, from, to, body string) (string, error)
}
