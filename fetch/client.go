// Package fetch downloads booking pages with per-site rate limiting,
// retries and browser-like request headers.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout           = 60 * time.Second
	DefaultMaxRetries        = 3
	DefaultRequestsPerMinute = 30
	defaultMaxBodyBytes      = 10 << 20
)

// DefaultUserAgents are rotated across requests.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:120.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0",
}

// Page is a fetched document.
type Page struct {
	URL        string // final URL after redirects
	StatusCode int
	Body       string
}

// StatusError is returned when the site answers with a 4xx or 5xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Temporary reports whether retrying may help.
func (e *StatusError) Temporary() bool { return e.StatusCode >= 500 }

type Client struct {
	http       *http.Client
	maxRetries int
	perMinute  int
	userAgents []string
	newBackOff func() backoff.BackOff
	log        zerolog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = max(0, n) }
}
func WithRequestsPerMinute(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.perMinute = n
		}
	}
}
func WithUserAgents(agents ...string) Option {
	return func(c *Client) {
		if len(agents) > 0 {
			c.userAgents = agents
		}
	}
}

// WithBackOff replaces the retry schedule; newBackOff is called once per Get.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = newBackOff }
}
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a Client. Redirects are followed by the underlying http.Client.
func New(opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		perMinute:  DefaultRequestsPerMinute,
		userAgents: DefaultUserAgents,
		newBackOff: defaultBackOff,
		log:        zerolog.Nop(),
		limiters:   make(map[string]*rate.Limiter),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// 1s, 2s, 4s ... with jitter.
func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	b.MaxInterval = 30 * time.Second
	return b
}

// Get fetches rawURL. Server errors and network failures are retried up to
// the configured limit; client errors are returned immediately.
func (c *Client) Get(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	limiter := c.limiter(u.Hostname())

	attempt := 0
	op := func() (*Page, error) {
		attempt++
		if err := limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("rate limit wait for %s: %w", u.Hostname(), err))
		}
		c.log.Debug().Str("url", rawURL).Int("attempt", attempt).Msg("fetching page")

		page, err := c.do(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			c.log.Warn().Str("url", rawURL).Int("status", se.StatusCode).Msg("client error, not retrying")
			return nil, backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	page, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.maxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.log.Warn().Err(err).Str("url", rawURL).Dur("retry_in", next).Msg("fetch failed, retrying")
		}),
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return nil, err
	}
	return page, nil
}

func (c *Client) do(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.Debug().Err(closeErr).Msg("closing response body")
		}
	}()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, defaultMaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Page{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}, nil
}

// setHeaders makes the request look like it came from a desktop browser.
// Accept-Encoding is left to the transport so gzip is decoded for us.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgents[rand.IntN(len(c.userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

// limiter returns the token bucket for host, creating it on first use.
func (c *Client) limiter(host string) *rate.Limiter {
	host = strings.ToLower(host)
	if host == "" {
		host = "unknown"
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(c.perMinute)), c.perMinute)
		c.limiters[host] = l
	}
	return l
}
