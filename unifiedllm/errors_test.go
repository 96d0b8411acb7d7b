package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestHTTPFailureClassify(t *testing.T) {
	tests := []struct {
		status    int
		is        func(error) bool
		retryable bool
	}{
		{400, func(e error) bool { var x *InvalidRequestError; return errors.As(e, &x) }, false},
		{401, func(e error) bool { var x *AuthenticationError; return errors.As(e, &x) }, false},
		{402, func(e error) bool { var x *QuotaExceededError; return errors.As(e, &x) }, false},
		{403, func(e error) bool { var x *AccessDeniedError; return errors.As(e, &x) }, false},
		{404, func(e error) bool { var x *NotFoundError; return errors.As(e, &x) }, false},
		{408, func(e error) bool { var x *RequestTimeoutError; return errors.As(e, &x) }, true},
		{413, func(e error) bool { var x *ContextLengthError; return errors.As(e, &x) }, false},
		{422, func(e error) bool { var x *InvalidRequestError; return errors.As(e, &x) }, false},
		{429, func(e error) bool { var x *RateLimitError; return errors.As(e, &x) }, true},
		{503, func(e error) bool { var x *ServerError; return errors.As(e, &x) }, true},
		{418, func(e error) bool { _, ok := e.(*ProviderError); return ok }, true},
	}
	for _, tt := range tests {
		err := HTTPFailure{Provider: "openai", Status: tt.status, Message: "failed"}.Classify()
		if !tt.is(err) {
			t.Errorf("status %d: unexpected type %T", tt.status, err)
		}
		if got := IsRetryable(err); got != tt.retryable {
			t.Errorf("status %d: retryable = %v, want %v", tt.status, got, tt.retryable)
		}
	}
}

func TestHTTPFailureKeepsCause(t *testing.T) {
	cause := errors.New("sdk said no")
	err := HTTPFailure{Provider: "anthropic", Status: 500, Message: "boom", Cause: cause}.Classify()
	if !errors.Is(err, cause) {
		t.Error("expected the SDK error in the chain")
	}
	if msg := err.Error(); !strings.Contains(msg, "[anthropic]") || !strings.Contains(msg, "status=500") {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestRetryAfterHeader(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	resp := func(v string) *http.Response {
		r := &http.Response{Header: http.Header{}}
		if v != "" {
			r.Header.Set("Retry-After", v)
		}
		return r
	}
	tests := []struct {
		name string
		resp *http.Response
		want time.Duration
	}{
		{"no response", nil, 0},
		{"no header", resp(""), 0},
		{"seconds", resp("3"), 3 * time.Second},
		{"fractional", resp("0.5"), 500 * time.Millisecond},
		{"http date", resp(at.Add(10 * time.Second).Format(http.TimeFormat)), 10 * time.Second},
		{"date in the past", resp(at.Add(-time.Minute).Format(http.TimeFormat)), 0},
		{"garbage", resp("soon"), 0},
	}
	for _, tt := range tests {
		if got := retryAfterHeader(tt.resp, at); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"auth", &AuthenticationError{}, false},
		{"content filter", &ContentFilterError{}, false},
		{"config", &ConfigurationError{}, false},
		{"abort", &AbortError{}, false},
		{"flagged rate limit", &RateLimitError{ProviderError{Retryable: true}}, true},
		{"network", &NetworkError{}, true},
		{"timeout", &RequestTimeoutError{}, true},
		{"wrapped auth", fmt.Errorf("complete: %w", &AuthenticationError{}), false},
		{"wrapped server", fmt.Errorf("complete: %w", &ServerError{ProviderError{Retryable: true}}), true},
		{"foreign error", errors.New("unknown"), true},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.retryable {
			t.Errorf("%s: IsRetryable = %v, want %v", tt.name, got, tt.retryable)
		}
	}
}

func TestFromContextError(t *testing.T) {
	if _, ok := FromContextError(context.DeadlineExceeded).(*RequestTimeoutError); !ok {
		t.Error("expected RequestTimeoutError for deadline exceeded")
	}
	if _, ok := FromContextError(fmt.Errorf("call: %w", context.Canceled)).(*AbortError); !ok {
		t.Error("expected AbortError for cancellation")
	}
	plain := errors.New("plain")
	if FromContextError(plain) != plain {
		t.Error("expected non-context errors to pass through")
	}
}
