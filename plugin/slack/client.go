// Package slack implements a minimal Slack Web API client for the digest
// pipeline: channel discovery and windowed message history.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://slack.com/api"

	// PageLimit bounds every listing call to a single page of this many
	// results. There is no cursor follow-through: workspaces with more
	// channels, or channels with more messages in the window, are truncated
	// at this limit.
	PageLimit = 200
)

// Channel is a conversation space in the workspace. Identity is the ID; the
// name is what ends up in the digest.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Message is a raw message as returned by conversations.history.
type Message struct {
	Ts   string `json:"ts"`             // Slack timestamp, seconds.micros as a string
	User string `json:"user,omitempty"` // empty for bot/integration posts
	Text string `json:"text,omitempty"`
}

// Time converts the Slack ts field to a time.Time. A malformed ts yields the
// zero time rather than an error; the digest renders it as-is.
func (m Message) Time() time.Time {
	seconds, err := strconv.ParseFloat(m.Ts, 64)
	if err != nil {
		return time.Time{}
	}
	sec, frac := math.Modf(seconds)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}

// Client talks to the Slack Web API with bearer-token auth. All calls go
// through a shared rate limiter to stay inside Slack's tier limits.
type Client struct {
	token   string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a Slack Web API client.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		// conversations.* are Tier 3 methods (~50 req/min); one request per
		// second with a small burst keeps sequential channel fetches inside it.
		limiter: rate.NewLimiter(rate.Limit(1), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiEnvelope is the common response wrapper of Slack Web API methods.
type apiEnvelope struct {
	OK       bool      `json:"ok"`
	Error    string    `json:"error,omitempty"`
	Channels []Channel `json:"channels,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}

// ListChannels returns the non-archived channels visible to the token as a
// single page of up to PageLimit entries. Any API-level failure is a hard
// error: a truncated channel list would silently under-report activity.
func (c *Client) ListChannels(ctx context.Context) ([]Channel, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(PageLimit))
	query.Set("exclude_archived", "true")

	env, err := c.call(ctx, "conversations.list", query)
	if err != nil {
		return nil, err
	}
	if !env.OK {
		return nil, errors.Errorf("conversations.list: %s", env.Error)
	}

	slog.Debug("slack: listed channels", "count", len(env.Channels))
	return env.Channels, nil
}

// ListMessages returns the messages of a channel posted at or after oldest
// (inclusive lower bound), as a single page of up to PageLimit entries.
//
// not_in_channel and channel_not_found are routine membership gaps and map to
// an empty result; every other API error is fatal to the caller's run.
func (c *Client) ListMessages(ctx context.Context, channelID string, oldest time.Time) ([]Message, error) {
	query := url.Values{}
	query.Set("channel", channelID)
	query.Set("oldest", strconv.FormatInt(oldest.Unix(), 10))
	query.Set("limit", strconv.Itoa(PageLimit))
	query.Set("exclude_archived", "true")

	env, err := c.call(ctx, "conversations.history", query)
	if err != nil {
		return nil, err
	}
	if !env.OK {
		if env.Error == "not_in_channel" || env.Error == "channel_not_found" {
			slog.Debug("slack: skipping inaccessible channel", "channel", channelID, "reason", env.Error)
			return nil, nil
		}
		return nil, errors.Errorf("conversations.history: %s", env.Error)
	}

	return env.Messages, nil
}

func (c *Client) call(ctx context.Context, method string, query url.Values) (*apiEnvelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrapf(err, "rate limiter wait for %s", method)
	}

	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, method, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to construct %s request", method)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to call %s", method)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s response", method)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("%s: status code %d, response body: %s", method, resp.StatusCode, body)
	}

	env := &apiEnvelope{}
	if err := json.Unmarshal(body, env); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal %s response", method)
	}
	return env, nil
}
