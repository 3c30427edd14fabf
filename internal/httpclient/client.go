// Package httpclient provides the outbound HTTP client used for third-party
// lookups such as reverse geocoding. It applies a per-request deadline,
// injects a User-Agent and reports every round trip to an optional Observer.
package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/privacy"
)

const (
	// DefaultTimeout is applied when the request context carries no deadline.
	DefaultTimeout = 10 * time.Second

	defaultMaxIdleConnsPerHost   = 4
	defaultIdleConnTimeout       = 90 * time.Second
	defaultTLSHandshakeTimeout   = 5 * time.Second
	defaultResponseHeaderTimeout = 5 * time.Second
	defaultDialTimeout           = 5 * time.Second

	defaultUserAgent = "mshd-backend"
)

// Observer receives the outcome of every request. status is 0 when the
// round trip failed before a response arrived.
type Observer interface {
	ObserveHTTPRequest(host string, status int, elapsed time.Duration, err error)
}

// Config holds configuration for creating an HTTP client.
type Config struct {
	Timeout             time.Duration
	UserAgent           string
	MaxIdleConnsPerHost int

	// Transport replaces the tuned default transport, mainly for tests.
	Transport http.RoundTripper
	Observer  Observer
}

// Client is safe for concurrent use.
type Client struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	observer  Observer
}

// New creates a client; zero values in cfg fall back to defaults.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   defaultDialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:       defaultIdleConnTimeout,
			TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
			ResponseHeaderTimeout: defaultResponseHeaderTimeout,
		}
	}

	return &Client{
		client:    &http.Client{Transport: transport},
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		observer:  cfg.Observer,
	}
}

// Get issues a GET request. The returned cancel func must be called once the
// response body has been consumed; it releases the request deadline.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, context.CancelFunc, error) {
	cancel := context.CancelFunc(func() {})
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		cancel()
		return nil, nil, errors.New(fmt.Errorf("failed to create GET request: %w", err)).
			Component("httpclient").
			Category(errors.CategoryValidation).
			Build()
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if c.observer != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		c.observer.ObserveHTTPRequest(req.URL.Host, status, time.Since(start), err)
	}
	if err != nil {
		cancel()
		// url.Error carries the full URL, query string included
		return nil, nil, errors.New(privacy.WrapError(err)).
			Component("httpclient").
			Category(errors.CategoryNetwork).
			NetworkContext(req.URL.Redacted(), c.timeout).
			Build()
	}
	return resp, cancel, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}
