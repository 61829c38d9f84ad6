package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxUpstashResponseBytes = 2 << 20

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// StoreOption customizes UpstashRedisStore.
type StoreOption func(*UpstashRedisStore)

func WithKeyPrefix(prefix string) StoreOption {
	return func(s *UpstashRedisStore) {
		if p := strings.TrimSpace(prefix); p != "" {
			s.prefix = p
		}
	}
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *UpstashRedisStore) { s.ttl = ttl }
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(s *UpstashRedisStore) {
		if client != nil {
			s.rest.http = client
		}
	}
}

// UpstashRedisStore keeps sessions in Upstash Redis through its REST API,
// for deployments that cannot hold a TCP connection to Redis.
type UpstashRedisStore struct {
	keyspace
	rest upstashREST
}

var _ Store = (*UpstashRedisStore)(nil)

func NewUpstashRedisStore(cfg UpstashRedisConfig, opts ...StoreOption) (*UpstashRedisStore, error) {
	rest, err := newUpstashREST(cfg)
	if err != nil {
		return nil, err
	}
	s := &UpstashRedisStore{
		keyspace: keyspace{prefix: defaultStoreKeyPrefix, ttl: defaultStoreTTL},
		rest:     rest,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *UpstashRedisStore) Load(ctx context.Context, callID string) (*Session, error) {
	key, err := s.key(callID)
	if err != nil {
		return nil, err
	}
	result, err := s.rest.do(ctx, "GET", key)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrSessionNotFound
	}
	// GET answers with the stored value as a JSON string.
	var value string
	if err := json.Unmarshal(result, &value); err != nil {
		return nil, fmt.Errorf("upstash get %s: %w", key, err)
	}
	return s.session([]byte(value))
}

func (s *UpstashRedisStore) Save(ctx context.Context, sess *Session) error {
	key, payload, err := s.record(sess)
	if err != nil {
		return err
	}
	args := []any{"SET", key, string(payload)}
	if s.ttl > 0 {
		args = append(args, "EX", ttlSeconds(s.ttl))
	}
	_, err = s.rest.do(ctx, args...)
	return err
}

func (s *UpstashRedisStore) Delete(ctx context.Context, callID string) error {
	key, err := s.key(callID)
	if err != nil {
		return err
	}
	_, err = s.rest.do(ctx, "DEL", key)
	return err
}

// upstashREST posts one Redis command per request as a JSON array.
type upstashREST struct {
	endpoint string
	token    string
	http     *http.Client
}

func newUpstashREST(cfg UpstashRedisConfig) (upstashREST, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if endpoint == "" {
		return upstashREST{}, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return upstashREST{}, fmt.Errorf("invalid redis rest url: %w", err)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return upstashREST{}, errors.New("upstash redis token is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return upstashREST{
		endpoint: endpoint,
		token:    token,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

// do runs one command and returns its raw result.
func (c upstashREST) do(ctx context.Context, args ...any) (json.RawMessage, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstashResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, raw)
	}

	var out struct {
		Result json.RawMessage `json:"result"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if out.Error != "" {
		return nil, errors.New(out.Error)
	}
	return bytes.TrimSpace(out.Result), nil
}
