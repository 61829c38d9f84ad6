package session

import (
	"context"
)

// Store persists sessions for the lifetime of a call. Implementations expire
// entries ttl after the last Save.
type Store interface {
	Load(ctx context.Context, callID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, callID string) error
}
