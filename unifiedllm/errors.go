package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SDKError is the root of the error hierarchy.
type SDKError struct {
	Message string
	Cause   error
}

func (e *SDKError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *SDKError) Unwrap() error { return e.Cause }

// ProviderError is a failure reported by a provider. Retryable is decided
// when the error is built.
type ProviderError struct {
	SDKError
	Provider   string
	StatusCode int
	ErrorCode  string
	Retryable  bool
	RetryAfter time.Duration // zero when the provider sent no hint
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
}

type (
	AuthenticationError struct{ ProviderError }
	AccessDeniedError   struct{ ProviderError }
	NotFoundError       struct{ ProviderError }
	InvalidRequestError struct{ ProviderError }
	RateLimitError      struct{ ProviderError }
	ServerError         struct{ ProviderError }
	ContentFilterError  struct{ ProviderError }
	ContextLengthError  struct{ ProviderError }
	QuotaExceededError  struct{ ProviderError }
)

type (
	RequestTimeoutError struct{ SDKError }
	AbortError          struct{ SDKError }
	NetworkError        struct{ SDKError }
	ConfigurationError  struct{ SDKError }
)

// retryClassifier is implemented by every error in the hierarchy.
type retryClassifier interface{ retryable() bool }

func (e *ProviderError) retryable() bool       { return e.Retryable }
func (e *RequestTimeoutError) retryable() bool { return true }
func (e *NetworkError) retryable() bool        { return true }
func (e *AbortError) retryable() bool          { return false }
func (e *ConfigurationError) retryable() bool  { return false }

// statusErrors maps HTTP status codes onto the hierarchy. The bool is the
// retryability of the resulting error.
var statusErrors = map[int]struct {
	build     func(ProviderError) error
	retryable bool
}{
	400: {func(p ProviderError) error { return &InvalidRequestError{p} }, false},
	401: {func(p ProviderError) error { return &AuthenticationError{p} }, false},
	402: {func(p ProviderError) error { return &QuotaExceededError{p} }, false},
	403: {func(p ProviderError) error { return &AccessDeniedError{p} }, false},
	404: {func(p ProviderError) error { return &NotFoundError{p} }, false},
	408: {func(p ProviderError) error { return &RequestTimeoutError{p.SDKError} }, true},
	413: {func(p ProviderError) error { return &ContextLengthError{p} }, false},
	422: {func(p ProviderError) error { return &InvalidRequestError{p} }, false},
	429: {func(p ProviderError) error { return &RateLimitError{p} }, true},
	500: {func(p ProviderError) error { return &ServerError{p} }, true},
	502: {func(p ProviderError) error { return &ServerError{p} }, true},
	503: {func(p ProviderError) error { return &ServerError{p} }, true},
	504: {func(p ProviderError) error { return &ServerError{p} }, true},
}

// HTTPFailure describes a non-2xx answer from a provider SDK.
type HTTPFailure struct {
	Provider string
	Status   int
	Message  string
	Code     string
	Response *http.Response // optional, consulted for Retry-After
	Cause    error
}

// Classify turns f into the matching error type. Unmapped statuses produce a
// retryable *ProviderError.
func (f HTTPFailure) Classify() error {
	pe := ProviderError{
		SDKError:   SDKError{Message: f.Message, Cause: f.Cause},
		Provider:   f.Provider,
		StatusCode: f.Status,
		ErrorCode:  f.Code,
		RetryAfter: retryAfterHeader(f.Response, time.Now()),
	}
	entry, ok := statusErrors[f.Status]
	if !ok {
		pe.Retryable = true
		return &pe
	}
	pe.Retryable = entry.retryable
	return entry.build(pe)
}

// retryAfterHeader reads Retry-After as seconds or as an HTTP date.
func retryAfterHeader(resp *http.Response, at time.Time) time.Duration {
	if resp == nil {
		return 0
	}
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if when, err := http.ParseTime(v); err == nil && when.After(at) {
		return when.Sub(at)
	}
	return 0
}

// FromContextError maps context errors into the hierarchy and returns other
// errors unchanged.
func FromContextError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &RequestTimeoutError{SDKError{Message: "request timed out", Cause: err}}
	case errors.Is(err, context.Canceled):
		return &AbortError{SDKError{Message: "request cancelled", Cause: err}}
	}
	return err
}

// IsRetryable reports whether err, or the first hierarchy error it wraps,
// may succeed on a second attempt. Errors from outside the hierarchy are
// treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var rc retryClassifier
	if errors.As(err, &rc) {
		return rc.retryable()
	}
	return true
}
