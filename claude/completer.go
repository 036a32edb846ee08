// Package claude turns booking page text into travel records using the
// Anthropic Messages API.
package claude

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultModel       = "claude-3-5-sonnet-20241022"
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.1
)

var (
	// ErrRateLimited matches provider errors with HTTP 429.
	ErrRateLimited = errors.New("llm rate limited")
	// ErrQuotaExceeded matches provider errors that mention quota or billing.
	ErrQuotaExceeded = errors.New("llm quota exceeded")
	// ErrTimeout wraps requests that ran past their deadline.
	ErrTimeout = errors.New("llm request timed out")
	// ErrInvalidResponse is returned when the reply holds no usable JSON object.
	ErrInvalidResponse = errors.New("llm returned invalid response")
)

// Completer sends a single user prompt and returns the text of the reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// APIError is a failed call to the model provider.
type APIError struct {
	StatusCode int // 0 when the request never got a response
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("llm api: %v", e.Err)
	}
	return fmt.Sprintf("llm api: HTTP %d: %v", e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrQuotaExceeded:
		msg := strings.ToLower(e.Err.Error())
		return strings.Contains(msg, "quota") || strings.Contains(msg, "billing")
	}
	return false
}

// AnthropicCompleter is a Completer backed by the Anthropic SDK.
type AnthropicCompleter struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

type Option func(*anthropicOptions)

type anthropicOptions struct {
	model       string
	maxTokens   int64
	temperature float64
	request     []option.RequestOption
}

func WithModel(model string) Option {
	return func(o *anthropicOptions) {
		if model != "" {
			o.model = model
		}
	}
}
func WithBaseURL(url string) Option {
	return func(o *anthropicOptions) {
		if url != "" {
			o.request = append(o.request, option.WithBaseURL(url))
		}
	}
}
func WithHTTPClient(h *http.Client) Option {
	return func(o *anthropicOptions) { o.request = append(o.request, option.WithHTTPClient(h)) }
}
func WithMaxRetries(n int) Option {
	return func(o *anthropicOptions) { o.request = append(o.request, option.WithMaxRetries(n)) }
}
func WithMaxTokens(n int64) Option {
	return func(o *anthropicOptions) { o.maxTokens = n }
}
func WithTemperature(t float64) Option {
	return func(o *anthropicOptions) { o.temperature = t }
}

// NewAnthropic returns a Completer that authenticates with apiKey.
func NewAnthropic(apiKey string, opts ...Option) (*AnthropicCompleter, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic api key required")
	}
	o := anthropicOptions{
		model:       DefaultModel,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
	}
	for _, fn := range opts {
		fn(&o)
	}

	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, o.request...)
	return &AnthropicCompleter{
		client:      anthropic.NewClient(reqOpts...),
		model:       o.model,
		maxTokens:   o.maxTokens,
		temperature: o.temperature,
	}, nil
}

// Complete implements Completer.
func (c *AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", classify(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.StatusCode, Err: err}
	}
	return &APIError{Err: err}
}
