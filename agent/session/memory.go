package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	logx "github.com/tanpawarit/cdgi-bus-assistant/pkg/logger"
)

type memoryEntry struct {
	session   *Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process. Entries expire ttl after their last
// Save; expired entries are invisible to Load and removed by Sweep.
type MemoryStore struct {
	entries *xsync.MapOf[string, memoryEntry]
	ttl     time.Duration
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now. Tests use it to move past the TTL.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) (*MemoryStore, error) {
	if ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	s := &MemoryStore{
		entries: xsync.NewMapOf[string, memoryEntry](),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *MemoryStore) Load(_ context.Context, callID string) (*Session, error) {
	id := strings.TrimSpace(callID)
	if id == "" {
		return nil, ErrInvalidCallID
	}
	now := s.now()
	var found *Session
	s.entries.Compute(id, func(cur memoryEntry, loaded bool) (memoryEntry, bool) {
		if !loaded || s.expired(cur, now) {
			return cur, true
		}
		found = cur.session
		return cur, false
	})
	if found == nil {
		return nil, ErrSessionNotFound
	}
	return found.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	if sess == nil {
		return ErrNilSession
	}
	id := strings.TrimSpace(sess.CallID)
	if id == "" {
		return ErrInvalidCallID
	}
	now := s.now()
	entry := memoryEntry{session: sess.Clone()}
	if s.ttl > 0 {
		entry.expiresAt = now.Add(s.ttl)
	}
	s.entries.Store(id, entry)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, callID string) error {
	id := strings.TrimSpace(callID)
	if id == "" {
		return ErrInvalidCallID
	}
	s.entries.Delete(id)
	return nil
}

func (s *MemoryStore) Len() int {
	return s.entries.Size()
}

// Sweep removes every entry expired at now and returns how many were dropped.
func (s *MemoryStore) Sweep(now time.Time) int {
	removed := 0
	s.entries.Range(func(id string, entry memoryEntry) bool {
		if s.expired(entry, now) && s.dropExpired(id, now) {
			removed++
		}
		return true
	})
	return removed
}

// dropExpired deletes id only if the entry stored right now is still
// expired, so a Save that lands after the scan survives.
func (s *MemoryStore) dropExpired(id string, now time.Time) bool {
	dropped := false
	s.entries.Compute(id, func(cur memoryEntry, loaded bool) (memoryEntry, bool) {
		if !loaded {
			return cur, true
		}
		if s.expired(cur, now) {
			dropped = true
			return cur, true
		}
		return cur, false
	})
	return dropped
}

// Run sweeps every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := logx.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				log.Debug().Int("expired", n).Int("remaining", s.Len()).Msg("swept voice sessions")
			}
		}
	}
}

func (s *MemoryStore) expired(entry memoryEntry, now time.Time) bool {
	return !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt)
}
