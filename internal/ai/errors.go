package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrMissingAPIKey is returned before any request is made when no credential is configured.
	ErrMissingAPIKey = errors.New("api key is missing (set OPENAI_API_KEY)")
	// ErrEmptyResponse is returned when the provider answers without any choices.
	ErrEmptyResponse = errors.New("empty response from model")
)

// APIError is a non-2xx answer from a provider.
type APIError struct {
	StatusCode int            `json:"-"`
	Code       string         `json:"code,omitempty"`
	Message    string         `json:"message,omitempty"`
	Raw        map[string]any `json:"-"`
	RequestID  string         `json:"-"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "api error: status=%d", e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " code=%s", e.Code)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, " request_id=%s", e.RequestID)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " message=%s", e.Message)
	}
	return b.String()
}

// AuthError is a 401/403: the key is wrong or lacks access.
type AuthError struct{ *APIError }

func (e *AuthError) Error() string { return "authentication failed: " + e.APIError.Error() }
func (e *AuthError) Unwrap() error { return e.APIError }

// RateLimitError is a 429. RetryAfter is informational; nothing is retried.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (try again in ~%ds): %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return "rate limited: " + e.APIError.Error()
}
func (e *RateLimitError) Unwrap() error { return e.APIError }

type ModelNotFoundError struct{ *APIError }

func (e *ModelNotFoundError) Error() string { return "model not found: " + e.APIError.Error() }
func (e *ModelNotFoundError) Unwrap() error { return e.APIError }

type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return "bad request: " + e.APIError.Error() }
func (e *BadRequestError) Unwrap() error { return e.APIError }

// QuotaExceededError covers billing and quota exhaustion.
type QuotaExceededError struct{ *APIError }

func (e *QuotaExceededError) Error() string { return "quota exceeded: " + e.APIError.Error() }
func (e *QuotaExceededError) Unwrap() error { return e.APIError }

// ServerError is a 5xx from the provider.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return "provider error: " + e.APIError.Error() }
func (e *ServerError) Unwrap() error { return e.APIError }

// UnreachableError means the runtime could not be contacted at all (e.g. local Ollama down).
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "unreachable"
	}
	if e.Host != "" {
		return fmt.Sprintf("endpoint unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("endpoint unreachable: %v", e.Err)
}
func (e *UnreachableError) Unwrap() error { return e.Err }

// Hint returns a short suggestion for a completion failure, or "".
func Hint(err error) string {
	var (
		auth  *AuthError
		quota *QuotaExceededError
		rl    *RateLimitError
		nf    *ModelNotFoundError
		ur    *UnreachableError
	)
	switch {
	case errors.Is(err, ErrMissingAPIKey):
		return "set OPENAI_API_KEY in the environment or a .env file"
	case errors.As(err, &auth):
		return "check the API key"
	case errors.As(err, &quota):
		return "check billing and quota for the API key"
	case errors.As(err, &rl):
		return "wait a moment and send the question again"
	case errors.As(err, &nf):
		return "pick another model with --model or `config set model`"
	case errors.As(err, &ur):
		return "is the local runtime running? try `ollama serve`"
	}
	return ""
}
