package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/cdgi-bus-assistant/agent/contract"
	"github.com/tanpawarit/cdgi-bus-assistant/agent/locale"
	nodex "github.com/tanpawarit/cdgi-bus-assistant/agent/nodes/orchestrator"
	"github.com/tanpawarit/cdgi-bus-assistant/agent/session"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidCall    = nodex.ErrInvalidCall
	ErrInvalidChannel = nodex.ErrInvalidChannel
	ErrCallNotFound   = session.ErrSessionNotFound
)

// Orchestrator runs dialogue turns for both channels. Voice turns read and
// extend the call session under the session manager's per-call lock;
// WhatsApp turns start from a fresh history every time.
type Orchestrator struct {
	runner   contractx.TurnRunner
	sessions *session.Manager
	seed     func() []*schema.Message

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(
	runner contractx.TurnRunner,
	sessions *session.Manager,
	seed func() []*schema.Message,
) (*Orchestrator, error) {
	if runner == nil {
		return nil, errors.New("turn runner is required")
	}
	if sessions == nil {
		return nil, errors.New("session manager is required")
	}
	if seed == nil {
		return nil, errors.New("history seed is required")
	}

	o := &Orchestrator{
		runner:   runner,
		sessions: sessions,
		seed:     seed,
		now:      time.Now,
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// StartCall opens (or restarts) the session for a call in the chosen language.
func (o *Orchestrator) StartCall(ctx context.Context, callID string, lang locale.Code) error {
	_, err := o.sessions.Create(ctx, callID, lang)
	return err
}

// CallLanguage returns the language selected for an active call.
func (o *Orchestrator) CallLanguage(ctx context.Context, callID string) (locale.Code, error) {
	sess, err := o.sessions.Get(ctx, callID)
	if err != nil {
		return "", err
	}
	return sess.Language, nil
}

// HandleVoiceTurn runs one turn for an active call. The session history is
// only extended when the whole turn succeeds.
func (o *Orchestrator) HandleVoiceTurn(ctx context.Context, callID string, text string) (string, error) {
	var reply string
	err := o.sessions.Update(ctx, callID, func(sess *session.Session) error {
		out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
			Channel: contractx.ChannelVoice,
			CallID:  callID,
			Text:    text,
			Session: sess,
		})
		if err != nil {
			return err
		}
		reply = out.Reply
		return nil
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

// HandleMessage answers one stateless message.
func (o *Orchestrator) HandleMessage(ctx context.Context, channel contractx.Channel, text string) (string, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		Channel: channel,
		Text:    text,
	})
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}

func (o *Orchestrator) EndCall(ctx context.Context, callID string) error {
	return o.sessions.End(ctx, callID)
}
