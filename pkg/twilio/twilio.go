package twilio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	twiliosdk "github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type Config struct {
	AccountSID string        `envconfig:"ACCOUNT_SID" split_words:"true" required:"true"`
	AuthToken  string        `envconfig:"AUTH_TOKEN" split_words:"true" required:"true"`
	Timeout    time.Duration `split_words:"true" default:"10s"`
}

// Client sends outbound messages through the Twilio REST API.
type Client struct {
	accountSID string
	rest       *twiliosdk.RestClient
}

// Option customizes Client.
type Option func(*http.Client)

// WithTransport swaps the HTTP transport, e.g. to point the SDK at a test server.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *http.Client) {
		if rt != nil {
			c.Transport = rt
		}
	}
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	sid := strings.TrimSpace(cfg.AccountSID)
	if sid == "" {
		return nil, errors.New("twilio account sid is required")
	}
	token := strings.TrimSpace(cfg.AuthToken)
	if token == "" {
		return nil, errors.New("twilio auth token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	for _, opt := range opts {
		if opt != nil {
			opt(httpClient)
		}
	}

	rest := twiliosdk.NewRestClientWithParams(twiliosdk.ClientParams{
		Username: sid,
		Password: token,
		Client: &twilioclient.Client{
			Credentials: twilioclient.NewCredentials(sid, token),
			HTTPClient:  httpClient,
		},
	})

	return &Client{accountSID: sid, rest: rest}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// SendMessage creates a new outbound message. The SDK call is not
// context-aware, so ctx is only checked before dispatch.
func (c *Client) SendMessage(ctx context.Context, from, to, body string) (string, error) {
	if c == nil || c.rest == nil {
		return "", errors.New("twilio client is nil")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetPathAccountSid(c.accountSID)
	params.SetFrom(from)
	params.SetTo(to)
	params.SetBody(body)

	resp, err := c.rest.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio create message: %w", err)
	}
	if resp == nil || resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}
