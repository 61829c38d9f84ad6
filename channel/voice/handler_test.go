package voice

import (
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/cdgi-bus-assistant/agent/contract"
	"github.com/tanpawarit/cdgi-bus-assistant/agent/locale"
	"github.com/tanpawarit/cdgi-bus-assistant/agent/session"
)

type turn struct {
	callID string
	text   string
}

type fakeConversations struct {
	mu       sync.Mutex
	langs    map[string]locale.Code
	answer   string
	startErr error
	turnErr  error
	turns    []turn
	ended    []string
}

func newFakeConversations() *fakeConversations {
	return &fakeConversations{langs: map[string]locale.Code{}}
}

func (f *fakeConversations) StartCall(_ context.Context, callID string, lang locale.Code) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.langs[callID] = lang
	return nil
}

func (f *fakeConversations) CallLanguage(_ context.Context, callID string) (locale.Code, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lang, ok := f.langs[callID]
	if !ok {
		return "", session.ErrSessionNotFound
	}
	return lang, nil
}

func (f *fakeConversations) HandleVoiceTurn(_ context.Context, callID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, turn{callID: callID, text: text})
	if f.turnErr != nil {
		return "", f.turnErr
	}
	return f.answer, nil
}

func (f *fakeConversations) EndCall(_ context.Context, callID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, callID)
	delete(f.langs, callID)
	return nil
}

type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []node     `xml:",any"`
}

func (n node) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (n node) names() []string {
	out := make([]string, 0, len(n.Nodes))
	for _, c := range n.Nodes {
		out = append(out, c.XMLName.Local)
	}
	return out
}

func newMux(t *testing.T, conv Conversations) *http.ServeMux {
	t.Helper()
	h, err := NewHandler(conv)
	require.NoError(t, err)
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func post(t *testing.T, mux http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func parseTwiML(t *testing.T, rec *httptest.ResponseRecorder) node {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	var doc node
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &doc))
	require.Equal(t, "Response", doc.XMLName.Local)
	return doc
}

func TestVoiceWithoutDigitsPlaysMenu(t *testing.T) {
	t.Parallel()

	conv := newFakeConversations()
	doc := parseTwiML(t, post(t, newMux(t, conv), "/voice", url.Values{"CallSid": {"CA1"}}))

	require.Equal(t, []string{"Gather", "Redirect"}, doc.names())
	gather := doc.Nodes[0]
	assert.Equal(t, "1", gather.attr("numDigits"))
	assert.Equal(t, "/voice", gather.attr("action"))
	assert.Equal(t, "POST", gather.attr("method"))
	require.Len(t, gather.Nodes, 2)
	assert.Equal(t, menuEnglish, gather.Nodes[0].Text)
	assert.Equal(t, "en-US", gather.Nodes[0].attr("language"))
	assert.Equal(t, menuHindi, gather.Nodes[1].Text)
	assert.Equal(t, "Polly.Aditi", gather.Nodes[1].attr("voice"))
	assert.Equal(t, "/voice", doc.Nodes[1].Text)
	assert.Empty(t, conv.langs)
}

func TestVoiceDigitStartsSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		digit string
		lang  locale.Code
		voice string
	}{
		{digit: "1", lang: locale.English, voice: "Polly.Joanna"},
		{digit: "2", lang: locale.Hindi, voice: "Polly.Aditi"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.digit, func(t *testing.T) {
			t.Parallel()

			conv := newFakeConversations()
			doc := parseTwiML(t, post(t, newMux(t, conv), "/voice", url.Values{"CallSid": {"CA1"}, "Digits": {tt.digit}}))

			assert.Equal(t, tt.lang, conv.langs["CA1"])
			require.Equal(t, []string{"Gather", "Redirect"}, doc.names())

			gather := doc.Nodes[0]
			assert.Equal(t, "speech", gather.attr("input"))
			assert.Equal(t, "/respond?lang="+string(tt.lang), gather.attr("action"))
			assert.Equal(t, "auto", gather.attr("speechTimeout"))
			assert.Equal(t, string(tt.lang), gather.attr("language"))
			require.Len(t, gather.Nodes, 1)
			assert.Equal(t, locale.LookupOrDefault(string(tt.lang)).Greeting, gather.Nodes[0].Text)
			assert.Equal(t, tt.voice, gather.Nodes[0].attr("voice"))
			assert.Equal(t, "/respond?lang="+string(tt.lang), doc.Nodes[1].Text)
		})
	}
}

func TestVoiceInvalidDigit(t *testing.T) {
	t.Parallel()

	conv := newFakeConversations()
	doc := parseTwiML(t, post(t, newMux(t, conv), "/voice", url.Values{"CallSid": {"CA1"}, "Digits": {"9"}}))

	require.Equal(t, []string{"Say", "Redirect"}, doc.names())
	assert.Equal(t, "Invalid selection.", doc.Nodes[0].Text)
	assert.Equal(t, "/voice", doc.Nodes[1].Text)
	assert.Empty(t, conv.langs)
}

func TestVoiceStartFailureSpeaksFallback(t *testing.T) {
	t.Parallel()

	conv := newFakeConversations()
	conv.startErr = errors.New("store down")
	doc := parseTwiML(t, post(t, newMux(t, conv), "/voice", url.Values{"CallSid": {"CA1"}, "Digits": {"2"}}))

	require.Equal(t, []string{"Say", "Redirect"}, doc.names())
	assert.Equal(t, locale.LookupOrDefault("hi-IN").Fallback, doc.Nodes[0].Text)
	assert.Equal(t, "/voice", doc.Nodes[1].Text)
}

func TestRespondUnknownCallHangsUp(t *testing.T) {
	t.Parallel()

	conv := newFakeConversations()
	doc := parseTwiML(t, post(t, newMux(t, conv), "/respond?lang=en-US", url.Values{"CallSid": {"CA404"}, "SpeechResult": {"hello"}}))

	require.Equal(t, []string{"Say", "Hangup"}, doc.names())
	assert.Equal(t, "Sorry, there was a system error. Please call again.", doc.Nodes[0].Text)
	assert.Empty(t, conv.turns)
}

func TestRespondRunsTurnInSessionLanguage(t *testing.T) {
	t.Parallel()

	conv := newFakeConversations()
	conv.langs["CA1"] = locale.Hindi
	conv.answer = "बस नंबर 7 विजय नगर जाती है।"

	doc := parseTwiML(t, post(t, newMux(t, conv), "/respond?lang=en-US", url.Values{"CallSid": {"CA1"}, "SpeechResult": {" Vijay Nagar "}}))

	require.Len(t, conv.turns, 1)
	assert.Equal(t, turn{callID: "CA1", text: "Vijay Nagar"}, conv.turns[0])

	require.Equal(t, []string{"Say", "Gather"}, doc.names())
	assert.Equal(t, conv.answer, doc.Nodes[0].Text)
	assert.Equal(t, "Polly.Aditi", doc.Nodes[0].attr("voice"))
	assert.Equal(t, "hi-IN", doc.Nodes[0].attr("language"))
	assert.Equal(t, "/respond?lang=hi-IN", doc.Nodes[1].attr("action"))
	assert.Equal(t, "hi-IN", doc.Nodes[1].attr("language"))
}

func TestRespondWithoutSpeechSkipsTurn(t *testing.T) {
	t.Parallel()

	conv := newFakeConversations()
	conv.langs["CA1"] = locale.English

	doc := parseTwiML(t, post(t, newMux(t, conv), "/respond?lang=en-US", url.Values{"CallSid": {"CA1"}, "SpeechResult": {"  "}}))

	assert.Empty(t, conv.turns)
	require.Equal(t, []string{"Gather"}, doc.names())
	assert.Equal(t, "speech", doc.Nodes[0].attr("input"))
	assert.Empty(t, doc.Nodes[0].Nodes)
}

func TestRespondTurnFaultSpeaksFallback(t *testing.T) {
	t.Parallel()

	for _, fault := range []error{contractx.ErrModelInvoke, contractx.ErrUnknownTool, contractx.ErrToolInvoke} {
		fault := fault
		t.Run(fault.Error(), func(t *testing.T) {
			t.Parallel()

			conv := newFakeConversations()
			conv.langs["CA1"] = locale.English
			conv.turnErr = fault

			doc := parseTwiML(t, post(t, newMux(t, conv), "/respond?lang=en-US", url.Values{"CallSid": {"CA1"}, "SpeechResult": {"Vijay Nagar"}}))

			require.Equal(t, []string{"Say", "Gather"}, doc.names())
			assert.Equal(t, "Sorry, something went wrong. Please try again.", doc.Nodes[0].Text)
			assert.Equal(t, "Polly.Joanna", doc.Nodes[0].attr("voice"))
		})
	}
}

func TestStatusEndsSessionOnTerminalStatus(t *testing.T) {
	t.Parallel()

	conv := newFakeConversations()
	conv.langs["CA1"] = locale.English
	conv.langs["CA2"] = locale.English
	mux := newMux(t, conv)

	rec := post(t, mux, "/voice/status", url.Values{"CallSid": {"CA1"}, "CallStatus": {"completed"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = post(t, mux, "/voice/status", url.Values{"CallSid": {"CA2"}, "CallStatus": {"in-progress"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, []string{"CA1"}, conv.ended)
	assert.Contains(t, conv.langs, "CA2")
}

func TestVoiceRejectsGet(t *testing.T) {
	t.Parallel()

	mux := newMux(t, newFakeConversations())
	req := httptest.NewRequest(http.MethodGet, "/voice", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNewHandlerRequiresConversations(t *testing.T) {
	t.Parallel()

	_, err := NewHandler(nil)
	require.Error(t, err)
}
