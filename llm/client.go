// Client - single-shot wrapper around a Provider for vision queries.
//
// Information Hiding:
// - Request pacing against the vision endpoint
// - Message assembly for one image plus one prompt
// - Token usage accounting across calls

package llm

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Client wraps a Provider and answers one image/prompt pair per call.
// It is safe for concurrent use.
type Client struct {
	provider Provider
	limiter  *rate.Limiter

	mu    sync.Mutex
	usage TokenUsage
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRateLimit paces requests to at most perSecond calls with the given burst.
// A non-positive perSecond leaves the client unthrottled.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewClient creates a new client from a provider.
func NewClient(provider Provider, opts ...ClientOption) *Client {
	c := &Client{provider: provider}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Look sends the image and the prompt as a single user turn and returns the
// raw text reply. No system message and no history are sent.
func (c *Client) Look(ctx context.Context, img Image, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	response, err := c.provider.Chat(ctx, []ChatMessage{UserMessageWithImages(prompt, img)})
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.usage.Add(response.Usage)
	c.mu.Unlock()

	return response.Content, nil
}

// Usage returns the accumulated token usage.
func (c *Client) Usage() TokenUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}
