package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/cdgi-bus-assistant/agent/contract"
	"github.com/tanpawarit/cdgi-bus-assistant/agent/locale"
	"github.com/tanpawarit/cdgi-bus-assistant/agent/prompt"
	"github.com/tanpawarit/cdgi-bus-assistant/agent/session"
)

// fakeRunner answers every turn with the queued replies, extending the
// history the way the dialogue engine does.
type fakeRunner struct {
	answers []string
	toolFor map[string]bool
	err     error
	calls   int
	inputs  [][]*schema.Message
}

func (f *fakeRunner) CompleteTurn(ctx context.Context, history []*schema.Message) (contractx.TurnResult, error) {
	f.calls++
	f.inputs = append(f.inputs, append([]*schema.Message(nil), history...))
	if f.err != nil {
		return contractx.TurnResult{}, f.err
	}
	idx := f.calls - 1
	if idx >= len(f.answers) {
		return contractx.TurnResult{}, errors.New("no answer left")
	}
	answer := f.answers[idx]
	out := append(append([]*schema.Message(nil), history...), schema.AssistantMessage(answer, nil))
	res := contractx.TurnResult{History: out, Answer: answer, ModelCalls: 1}
	if f.toolFor[answer] {
		res.ModelCalls = 2
		res.ToolName = "find_bus_for_stop"
	}
	return res, nil
}

type failingStore struct {
	session.Store
	saveErr error
	saves   int
}

func (f *failingStore) Save(ctx context.Context, s *session.Session) error {
	f.saves++
	if f.saves > 1 {
		return f.saveErr
	}
	return f.Store.Save(ctx, s)
}

func newTestOrchestrator(t *testing.T, runner contractx.TurnRunner, store session.Store) *Orchestrator {
	t.Helper()
	if store == nil {
		mem, err := session.NewMemoryStore(30 * time.Minute)
		if err != nil {
			t.Fatalf("NewMemoryStore() error = %v", err)
		}
		store = mem
	}
	sessions, err := session.NewManager(store, prompt.SeedHistory)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	o, err := New(runner, sessions, prompt.SeedHistory)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func TestHandleVoiceTurnInvalidInput(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, &fakeRunner{}, nil)
	ctx := context.Background()

	_, err := o.HandleVoiceTurn(ctx, "   ", "hello")
	if !errors.Is(err, session.ErrInvalidCallID) {
		t.Fatalf("expected ErrInvalidCallID, got %v", err)
	}

	if err := o.StartCall(ctx, "CA1", locale.English); err != nil {
		t.Fatalf("StartCall() error = %v", err)
	}
	_, err = o.HandleVoiceTurn(ctx, "CA1", "    ")
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestHandleVoiceTurnUnknownCall(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{answers: []string{"never"}}
	o := newTestOrchestrator(t, runner, nil)

	_, err := o.HandleVoiceTurn(context.Background(), "CA404", "hello")
	if !errors.Is(err, ErrCallNotFound) {
		t.Fatalf("expected ErrCallNotFound, got %v", err)
	}
	if runner.calls != 0 {
		t.Fatalf("runner called %d times for an unknown call", runner.calls)
	}
}

func TestHandleVoiceTurnAccumulatesHistory(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		answers: []string{"Bus number 7 stops at Vijay Nagar.", "It leaves at 7:30."},
		toolFor: map[string]bool{"Bus number 7 stops at Vijay Nagar.": true},
	}
	o := newTestOrchestrator(t, runner, nil)
	ctx := context.Background()

	if err := o.StartCall(ctx, "CA1", locale.Hindi); err != nil {
		t.Fatalf("StartCall() error = %v", err)
	}
	lang, err := o.CallLanguage(ctx, "CA1")
	if err != nil || lang != locale.Hindi {
		t.Fatalf("CallLanguage() = %q, %v", lang, err)
	}

	reply, err := o.HandleVoiceTurn(ctx, "CA1", " Vijay Nagar ")
	if err != nil {
		t.Fatalf("HandleVoiceTurn() error = %v", err)
	}
	if reply != "Bus number 7 stops at Vijay Nagar." {
		t.Fatalf("unexpected reply: %q", reply)
	}

	if _, err := o.HandleVoiceTurn(ctx, "CA1", "When does it leave?"); err != nil {
		t.Fatalf("second HandleVoiceTurn() error = %v", err)
	}

	second := runner.inputs[1]
	wantRoles := []schema.RoleType{schema.System, schema.User, schema.Assistant, schema.User}
	if len(second) != len(wantRoles) {
		t.Fatalf("second turn history len = %d, want %d", len(second), len(wantRoles))
	}
	for i, role := range wantRoles {
		if second[i].Role != role {
			t.Fatalf("history[%d].Role = %s, want %s", i, second[i].Role, role)
		}
	}
	if second[1].Content != "Vijay Nagar" {
		t.Fatalf("user message = %q, want trimmed text", second[1].Content)
	}
}

func TestHandleVoiceTurnFailureKeepsHistory(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: contractx.ErrModelInvoke}
	o := newTestOrchestrator(t, runner, nil)
	ctx := context.Background()
	_ = o.StartCall(ctx, "CA1", locale.English)

	_, err := o.HandleVoiceTurn(ctx, "CA1", "Vijay Nagar")
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}

	runner.err = nil
	runner.answers = []string{"ok"}
	runner.calls = 0
	if _, err := o.HandleVoiceTurn(ctx, "CA1", "again"); err != nil {
		t.Fatalf("HandleVoiceTurn() error = %v", err)
	}
	if got := len(runner.inputs[len(runner.inputs)-1]); got != 2 {
		t.Fatalf("history after failed turn has %d messages, want 2", got)
	}
}

func TestHandleVoiceTurnEmptyAnswer(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, &fakeRunner{answers: []string{"   "}}, nil)
	ctx := context.Background()
	_ = o.StartCall(ctx, "CA1", locale.English)

	_, err := o.HandleVoiceTurn(ctx, "CA1", "hello")
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !strings.Contains(err.Error(), "model returned empty answer") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestHandleVoiceTurnSaveFailure(t *testing.T) {
	t.Parallel()

	mem, _ := session.NewMemoryStore(time.Minute)
	saveErr := errors.New("redis down")
	store := &failingStore{Store: mem, saveErr: saveErr}
	o := newTestOrchestrator(t, &fakeRunner{answers: []string{"ok"}}, store)
	ctx := context.Background()
	_ = o.StartCall(ctx, "CA1", locale.English)

	_, err := o.HandleVoiceTurn(ctx, "CA1", "hello")
	if !errors.Is(err, saveErr) {
		t.Fatalf("expected save error, got %v", err)
	}
}

func TestHandleMessageIsStateless(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{answers: []string{"first", "second"}}
	o := newTestOrchestrator(t, runner, nil)
	ctx := context.Background()

	for _, text := range []string{"Vijay Nagar", "Palasia"} {
		if _, err := o.HandleMessage(ctx, contractx.ChannelWhatsApp, text); err != nil {
			t.Fatalf("HandleMessage(%q) error = %v", text, err)
		}
	}
	for i, in := range runner.inputs {
		if len(in) != 2 || in[0].Role != schema.System || in[1].Role != schema.User {
			t.Fatalf("input %d = %+v, want [system, user]", i, in)
		}
	}
}

func TestHandleMessageRejectsUnknownChannel(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, &fakeRunner{}, nil)
	_, err := o.HandleMessage(context.Background(), contractx.Channel("sms"), "hi")
	if !errors.Is(err, ErrInvalidChannel) {
		t.Fatalf("expected ErrInvalidChannel, got %v", err)
	}
}

func TestEndCall(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, &fakeRunner{}, nil)
	ctx := context.Background()
	_ = o.StartCall(ctx, "CA1", locale.English)

	if err := o.EndCall(ctx, "CA1"); err != nil {
		t.Fatalf("EndCall() error = %v", err)
	}
	if _, err := o.CallLanguage(ctx, "CA1"); !errors.Is(err, ErrCallNotFound) {
		t.Fatalf("CallLanguage() after end error = %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	mem, _ := session.NewMemoryStore(time.Minute)
	sessions, _ := session.NewManager(mem, prompt.SeedHistory)
	if _, err := New(nil, sessions, prompt.SeedHistory); err == nil {
		t.Fatal("expected error for nil runner")
	}
	if _, err := New(&fakeRunner{}, nil, prompt.SeedHistory); err == nil {
		t.Fatal("expected error for nil session manager")
	}
}
