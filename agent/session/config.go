package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	logx "github.com/tanpawarit/cdgi-bus-assistant/pkg/logger"
)

const (
	BackendMemory  = "memory"
	BackendRedis   = "redis"
	BackendUpstash = "upstash"
)

// Config is read from SESSION_* variables.
type Config struct {
	Backend       string        `envconfig:"BACKEND" default:"memory"`
	TTL           time.Duration `envconfig:"TTL" default:"30m"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" split_words:"true" default:"1m"`
	KeyPrefix     string        `envconfig:"KEY_PREFIX" split_words:"true" default:"cdgi:call:"`
	RedisURL      string        `envconfig:"REDIS_URL" split_words:"true"`
	UpstashURL    string        `envconfig:"UPSTASH_URL" split_words:"true"`
	UpstashToken  string        `envconfig:"UPSTASH_TOKEN" split_words:"true"`
	Timeout       time.Duration `envconfig:"TIMEOUT" default:"10s"`
}

func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.TTL < 0 {
		return fmt.Errorf("session ttl must be >= 0, got %s", c.TTL)
	}
	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("SESSION_REDIS_URL is required for the %s backend", c.Backend)
		}
	case BackendUpstash:
		if strings.TrimSpace(c.UpstashURL) == "" || strings.TrimSpace(c.UpstashToken) == "" {
			return fmt.Errorf("SESSION_UPSTASH_URL and SESSION_UPSTASH_TOKEN are required for the %s backend", c.Backend)
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.Backend)
	}
	return nil
}

// Open builds the configured store. For the memory backend it also starts
// the expiry janitor, which stops with ctx.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logx.FromContext(ctx)

	switch cfg.Backend {
	case BackendRedis:
		store, err := OpenRedisStore(ctx, cfg.RedisURL, cfg.KeyPrefix, cfg.TTL)
		if err != nil {
			return nil, err
		}
		log.Info().Str("backend", cfg.Backend).Dur("ttl", cfg.TTL).Msg("session store ready")
		return store, nil
	case BackendUpstash:
		store, err := NewUpstashRedisStore(
			UpstashRedisConfig{URL: cfg.UpstashURL, Token: cfg.UpstashToken, Timeout: cfg.Timeout},
			WithKeyPrefix(cfg.KeyPrefix),
			WithTTL(cfg.TTL),
		)
		if err != nil {
			return nil, err
		}
		log.Info().Str("backend", cfg.Backend).Dur("ttl", cfg.TTL).Msg("session store ready")
		return store, nil
	default:
		store, err := NewMemoryStore(cfg.TTL)
		if err != nil {
			return nil, err
		}
		go store.Run(ctx, cfg.SweepInterval)
		log.Info().Str("backend", BackendMemory).Dur("ttl", cfg.TTL).Dur("sweep_interval", cfg.SweepInterval).Msg("session store ready")
		return store, nil
	}
}
