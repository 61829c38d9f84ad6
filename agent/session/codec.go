package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultStoreKeyPrefix = "cdgi:call:"
	defaultStoreTTL       = 30 * time.Minute
)

// keyspace is the part of a Redis-backed store that does not depend on the
// transport: the key layout, the expiry and the JSON stored under each key.
type keyspace struct {
	prefix string
	ttl    time.Duration
}

func newKeyspace(prefix string, ttl time.Duration) (keyspace, error) {
	k := keyspace{prefix: prefix, ttl: ttl}
	return k, k.validate()
}

func (k keyspace) validate() error {
	if k.ttl < 0 {
		return errors.New("ttl must be >= 0")
	}
	return nil
}

func (k keyspace) key(callID string) (string, error) {
	id := strings.TrimSpace(callID)
	if id == "" {
		return "", ErrInvalidCallID
	}
	prefix := strings.TrimSpace(k.prefix)
	if prefix == "" {
		prefix = defaultStoreKeyPrefix
	}
	return prefix + id, nil
}

// record returns the key and payload to write for sess.
func (k keyspace) record(sess *Session) (string, []byte, error) {
	if sess == nil {
		return "", nil, ErrNilSession
	}
	key, err := k.key(sess.CallID)
	if err != nil {
		return "", nil, err
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return "", nil, fmt.Errorf("marshal session: %w", err)
	}
	return key, payload, nil
}

// session decodes a stored payload and rejects anything a turn could not
// resume from.
func (k keyspace) session(payload []byte) (*Session, error) {
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if err := sess.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session loaded from store: %w", err)
	}
	return &sess, nil
}

// ttlSeconds rounds up so a sub-second TTL still expires.
func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
