package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

const DefaultBaseURL = "http://localhost:8000"

// Client talks to a running tripparse API.
type Client struct {
	http    *http.Client
	baseURL *url.URL
	token   string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q", baseURL)
	}
	c := &Client{
		http:    &http.Client{Timeout: 2 * time.Minute},
		baseURL: u,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ResponseError is a non-2xx answer from the API.
type ResponseError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Do sends body as JSON (when not nil) and returns the raw response body.
func (c *Client) Do(ctx context.Context, method, p string, body any) (json.RawMessage, error) {
	u := *c.baseURL
	u.Path = path.Join(u.Path, p)

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		rerr := &ResponseError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(data))}
		var e struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			rerr.Code, rerr.Message = e.Error, e.Message
		}
		return nil, rerr
	}
	return data, nil
}
