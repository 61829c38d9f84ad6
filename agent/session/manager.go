package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/tanpawarit/cdgi-bus-assistant/agent/locale"
)

// Manager owns the voice session lifecycle. Every mutation of one call ID runs
// under that call's lock, so overlapping webhooks for a call are applied one
// after the other while other calls proceed.
type Manager struct {
	store Store
	seed  func() []*schema.Message
	now   func() time.Time
	locks *xsync.MapOf[string, *callLock]
}

// callLock is dropped from the table once no caller holds or waits on it.
type callLock struct {
	mu   sync.Mutex
	refs int
}

type ManagerOption func(*Manager)

func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager returns a Manager. seed produces the opening history of a new
// session and must start with the system instruction.
func NewManager(store Store, seed func() []*schema.Message, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if seed == nil {
		return nil, errors.New("history seed is required")
	}
	m := &Manager{
		store: store,
		seed:  seed,
		now:   time.Now,
		locks: xsync.NewMapOf[string, *callLock](),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Create starts (or restarts) the session for callID.
func (m *Manager) Create(ctx context.Context, callID string, lang locale.Code) (*Session, error) {
	id := strings.TrimSpace(callID)
	if id == "" {
		return nil, ErrInvalidCallID
	}
	defer m.lock(id)()

	sess := NewSession(id, lang, m.seed(), m.now())
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session %s: %w", id, err)
	}
	return sess.Clone(), nil
}

func (m *Manager) Get(ctx context.Context, callID string) (*Session, error) {
	id := strings.TrimSpace(callID)
	if id == "" {
		return nil, ErrInvalidCallID
	}
	defer m.lock(id)()
	return m.store.Load(ctx, id)
}

// Update loads the session, applies fn and saves the result. Nothing is
// saved when fn fails.
func (m *Manager) Update(ctx context.Context, callID string, fn func(*Session) error) error {
	id := strings.TrimSpace(callID)
	if id == "" {
		return ErrInvalidCallID
	}
	defer m.lock(id)()

	sess, err := m.store.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(sess); err != nil {
		return err
	}
	sess.Touch(m.now())
	if err := m.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

// End drops the session. Ending an unknown call is not an error.
func (m *Manager) End(ctx context.Context, callID string) error {
	id := strings.TrimSpace(callID)
	if id == "" {
		return ErrInvalidCallID
	}
	defer m.lock(id)()
	return m.store.Delete(ctx, id)
}

// lock blocks until id is held and returns its release func.
func (m *Manager) lock(id string) func() {
	l, _ := m.locks.Compute(id, func(cur *callLock, loaded bool) (*callLock, bool) {
		if !loaded {
			cur = &callLock{}
		}
		cur.refs++
		return cur, false
	})
	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.locks.Compute(id, func(cur *callLock, loaded bool) (*callLock, bool) {
			if !loaded {
				return cur, true
			}
			cur.refs--
			return cur, cur.refs == 0
		})
	}
}
