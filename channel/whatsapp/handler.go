package whatsapp

import (
	"context"
	"errors"
	"net/http"
	"strings"

	contractx "github.com/tanpawarit/cdgi-bus-assistant/agent/contract"
	"github.com/tanpawarit/cdgi-bus-assistant/agent/locale"
	logx "github.com/tanpawarit/cdgi-bus-assistant/pkg/logger"
)

const Path = "/whatsapp"

// Replier answers one stateless message.
type Replier interface {
	HandleMessage(ctx context.Context, channel contractx.Channel, text string) (string, error)
}

type Handler struct {
	replier   Replier
	messenger contractx.Messenger
	fallback  string
}

func NewHandler(replier Replier, messenger contractx.Messenger) (*Handler, error) {
	if replier == nil {
		return nil, errors.New("whatsapp: replier is required")
	}
	if messenger == nil {
		return nil, errors.New("whatsapp: messenger is required")
	}
	return &Handler{
		replier:   replier,
		messenger: messenger,
		fallback:  locale.LookupOrDefault(string(locale.English)).Fallback,
	}, nil
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST "+Path, h.Message)
}

// Message answers the inbound message out of band through the messenger and
// always acknowledges with 204. A failed turn sends the fallback text
// instead, so every inbound message produces exactly one outbound send.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	body := strings.TrimSpace(r.PostForm.Get("Body"))
	from := strings.TrimSpace(r.PostForm.Get("From"))
	to := strings.TrimSpace(r.PostForm.Get("To"))
	log := logx.FromContext(ctx).With().Str("from", from).Logger()

	if from == "" || to == "" {
		log.Warn().Msg("whatsapp message without sender or recipient")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	log.Info().Str("body", body).Msg("incoming whatsapp message")

	reply, err := h.replier.HandleMessage(ctx, contractx.ChannelWhatsApp, body)
	if err != nil {
		log.Error().Err(err).Msg("whatsapp turn failed")
		reply = h.fallback
	}

	// The reply goes from the number that received the message.
	sid, err := h.messenger.SendMessage(ctx, to, from, reply)
	if err != nil {
		log.Error().Err(err).Msg("send whatsapp reply failed")
	} else {
		log.Info().Str("message_sid", sid).Msg("whatsapp reply sent")
	}

	w.WriteHeader(http.StatusNoContent)
}
