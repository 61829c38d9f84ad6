package session

import (
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/cdgi-bus-assistant/agent/locale"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNilSession      = errors.New("session is nil")
	ErrInvalidCallID   = errors.New("call id is empty")
)

// Session is the per-call conversation: selected language plus the message
// history, which always starts with the system instruction.
type Session struct {
	CallID    string            `json:"call_id"`
	Language  locale.Code       `json:"language"`
	History   []*schema.Message `json:"history"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func NewSession(callID string, lang locale.Code, seed []*schema.Message, now time.Time) *Session {
	return &Session{
		CallID:    strings.TrimSpace(callID),
		Language:  lang,
		History:   append([]*schema.Message(nil), seed...),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// Append adds messages to the history.
func (s *Session) Append(msgs ...*schema.Message) {
	s.History = append(s.History, msgs...)
}

// Clone copies the history slice. Messages themselves are never mutated
// once appended, so they are shared.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.History = append([]*schema.Message(nil), s.History...)
	return &cp
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(s.CallID) == "" {
		return ErrInvalidCallID
	}
	if _, ok := locale.Lookup(string(s.Language)); !ok {
		return errors.New("session language is not supported: " + string(s.Language))
	}
	if len(s.History) == 0 || s.History[0] == nil || s.History[0].Role != schema.System {
		return errors.New("session history must start with the system instruction")
	}
	return nil
}
