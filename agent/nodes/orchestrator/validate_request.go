package orchestratornode

import (
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/cdgi-bus-assistant/agent/contract"
	"github.com/tanpawarit/cdgi-bus-assistant/agent/session"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidCall    = errors.New("call id is empty")
	ErrInvalidChannel = errors.New("channel is not supported")
)

// GraphInput is one inbound utterance. Session is set for voice turns and
// nil for stateless channels.
type GraphInput struct {
	Channel contractx.Channel
	CallID  string
	Text    string
	Session *session.Session
}

type GraphOutput struct {
	Reply      string
	ModelCalls int
	ToolName   string
}

type GraphState struct {
	Channel contractx.Channel
	CallID  string
	Text    string
	Now     time.Time

	Session *session.Session
	History []*schema.Message
	Result  contractx.TurnResult
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	switch in.Channel {
	case contractx.ChannelVoice:
		if strings.TrimSpace(in.CallID) == "" {
			return nil, ErrInvalidCall
		}
		if in.Session == nil {
			return nil, session.ErrNilSession
		}
	case contractx.ChannelWhatsApp:
	default:
		return nil, ErrInvalidChannel
	}

	return &GraphState{
		Channel: in.Channel,
		CallID:  strings.TrimSpace(in.CallID),
		Text:    text,
		Now:     nowFn().UTC(),
		Session: in.Session,
	}, nil
}
