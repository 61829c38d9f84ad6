package voice

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/twilio/twilio-go/twiml"

	"github.com/tanpawarit/cdgi-bus-assistant/agent/locale"
	"github.com/tanpawarit/cdgi-bus-assistant/agent/session"
	logx "github.com/tanpawarit/cdgi-bus-assistant/pkg/logger"
)

// Conversations is the call lifecycle the voice webhooks drive.
type Conversations interface {
	StartCall(ctx context.Context, callID string, lang locale.Code) error
	CallLanguage(ctx context.Context, callID string) (locale.Code, error)
	HandleVoiceTurn(ctx context.Context, callID string, text string) (string, error)
	EndCall(ctx context.Context, callID string) error
}

// Twilio CallStatus values after which no further webhooks arrive.
var terminalStatuses = map[string]struct{}{
	"completed": {},
	"busy":      {},
	"failed":    {},
	"no-answer": {},
	"canceled":  {},
}

type Handler struct {
	conv Conversations
}

func NewHandler(conv Conversations) (*Handler, error) {
	if conv == nil {
		return nil, errors.New("voice: conversations are required")
	}
	return &Handler{conv: conv}, nil
}

// Register mounts the voice webhooks on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST "+pathVoice, h.Voice)
	mux.HandleFunc("POST "+pathRespond, h.Respond)
	mux.HandleFunc("POST "+pathVoice+"/status", h.Status)
}

// Voice serves the language menu and, once a digit arrives, opens the
// session and greets the caller.
func (h *Handler) Voice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	callID := strings.TrimSpace(r.PostForm.Get("CallSid"))
	log := logx.FromContext(ctx).With().Str("call_id", callID).Logger()

	if _, pressed := r.PostForm["Digits"]; !pressed {
		writeTwiML(ctx, w, languageMenu())
		return
	}

	lang, ok := locale.FromDigit(r.PostForm.Get("Digits"))
	if !ok {
		log.Info().Str("digits", r.PostForm.Get("Digits")).Msg("invalid language selection")
		writeTwiML(ctx, w, invalidSelection())
		return
	}

	if err := h.conv.StartCall(ctx, callID, lang.Code); err != nil {
		log.Error().Err(err).Str("language", string(lang.Code)).Msg("start call failed")
		writeTwiML(ctx, w, []twiml.Element{
			say(lang, lang.Fallback),
			&twiml.VoiceRedirect{Url: pathVoice},
		})
		return
	}

	log.Info().Str("language", string(lang.Code)).Msg("call started")
	writeTwiML(ctx, w, greeting(lang))
}

// Respond runs one conversational turn. Turn faults are spoken as the
// localized fallback and the call keeps listening.
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	callID := strings.TrimSpace(r.PostForm.Get("CallSid"))
	hint := locale.LookupOrDefault(r.URL.Query().Get("lang"))
	log := logx.FromContext(ctx).With().Str("call_id", callID).Logger()

	code, err := h.conv.CallLanguage(ctx, callID)
	switch {
	case isCallGone(err):
		log.Warn().Msg("respond for unknown call")
		writeTwiML(ctx, w, callNotFound(hint.Code))
		return
	case err != nil:
		log.Error().Err(err).Msg("load call failed")
		writeTwiML(ctx, w, []twiml.Element{say(hint, hint.Fallback), speechGather(hint, "")})
		return
	}
	lang := locale.LookupOrDefault(string(code))

	var verbs []twiml.Element
	if speech := strings.TrimSpace(r.PostForm.Get("SpeechResult")); speech != "" {
		answer, err := h.conv.HandleVoiceTurn(ctx, callID, speech)
		switch {
		case isCallGone(err):
			log.Warn().Msg("call ended during turn")
			writeTwiML(ctx, w, callNotFound(lang.Code))
			return
		case err != nil:
			log.Error().Err(err).Msg("voice turn failed")
			verbs = append(verbs, say(lang, lang.Fallback))
		default:
			verbs = append(verbs, say(lang, answer))
		}
	}

	verbs = append(verbs, speechGather(lang, ""))
	writeTwiML(ctx, w, verbs)
}

// Status is the Twilio call status callback. Terminal statuses end the
// session.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	callID := strings.TrimSpace(r.PostForm.Get("CallSid"))
	status := strings.ToLower(strings.TrimSpace(r.PostForm.Get("CallStatus")))

	if _, done := terminalStatuses[status]; done && callID != "" {
		log := logx.FromContext(ctx)
		if err := h.conv.EndCall(ctx, callID); err != nil {
			log.Error().Err(err).Str("call_id", callID).Msg("end call failed")
		} else {
			log.Info().Str("call_id", callID).Str("status", status).Msg("call ended")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func isCallGone(err error) bool {
	return errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrInvalidCallID)
}

func writeTwiML(ctx context.Context, w http.ResponseWriter, verbs []twiml.Element) {
	doc, err := twiml.Voice(verbs)
	if err != nil {
		logx.FromContext(ctx).Error().Err(err).Msg("render twiml failed")
		http.Error(w, "render twiml", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}
