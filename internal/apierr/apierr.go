// Package apierr maps pipeline errors to the API's error codes.
package apierr

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/briangreenhill/tripparse/claude"
	"github.com/briangreenhill/tripparse/fetch"
	"github.com/briangreenhill/tripparse/parser"
	"github.com/briangreenhill/tripparse/travel"
)

// Error codes returned in the "error" field of error responses.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidURL         = "INVALID_URL"
	CodeParsingFailed      = "PARSING_FAILED"
	CodeURLUnreachable     = "URL_UNREACHABLE"
	CodeRateLimited        = "RATE_LIMITED"
	CodeTimeout            = "TIMEOUT"
	CodeLLMRateLimited     = "LLM_RATE_LIMITED"
	CodeLLMQuotaExceeded   = "LLM_QUOTA_EXCEEDED"
	CodeLLMTimeout         = "LLM_TIMEOUT"
	CodeLLMInvalidResponse = "LLM_INVALID_RESPONSE"
	CodeLLMAPIError        = "LLM_API_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
)

// Classify returns the HTTP status and error code for err.
// A nil error classifies as 200 with an empty code.
func Classify(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}

	var (
		statusErr *fetch.StatusError
		llmErr    *claude.APIError
		netErr    net.Error
	)
	switch {
	case errors.Is(err, parser.ErrInvalidURL):
		return http.StatusBadRequest, CodeInvalidURL
	case errors.Is(err, parser.ErrNoContent), errors.Is(err, travel.ErrInvalidRecord):
		return http.StatusInternalServerError, CodeParsingFailed

	case errors.Is(err, claude.ErrRateLimited):
		return http.StatusTooManyRequests, CodeLLMRateLimited
	case errors.Is(err, claude.ErrQuotaExceeded):
		return http.StatusTooManyRequests, CodeLLMQuotaExceeded
	case errors.Is(err, claude.ErrTimeout):
		return http.StatusInternalServerError, CodeLLMTimeout
	case errors.Is(err, claude.ErrInvalidResponse):
		return http.StatusInternalServerError, CodeLLMInvalidResponse
	case errors.As(err, &llmErr):
		return http.StatusInternalServerError, CodeLLMAPIError

	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests:
		return http.StatusTooManyRequests, CodeRateLimited
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusInternalServerError, CodeTimeout
	case errors.As(err, &statusErr), errors.As(err, &netErr):
		return http.StatusInternalServerError, CodeURLUnreachable
	}
	return http.StatusInternalServerError, CodeInternal
}

// Code returns only the error code for err.
func Code(err error) string {
	_, code := Classify(err)
	return code
}
