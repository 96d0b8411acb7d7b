package unifiedllm

import (
	"context"
	"log/slog"
	"time"
)

// TimeoutMiddleware bounds every provider call by d. A call that runs past the
// deadline fails with a RequestTimeoutError.
func TimeoutMiddleware(d time.Duration) Middleware {
	return func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		if d <= 0 {
			return next(ctx, req)
		}
		callCtx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		resp, err := next(callCtx, req)
		if err != nil && callCtx.Err() != nil && ctx.Err() == nil {
			return nil, FromContextError(callCtx.Err())
		}
		return resp, err
	}
}

// RetryMiddleware re-issues failed provider calls according to policy.
// Place it before TimeoutMiddleware so each attempt gets its own deadline.
func RetryMiddleware(policy RetryPolicy) Middleware {
	return func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		return Retry(ctx, policy, func(ctx context.Context) (*Response, error) {
			return next(ctx, req)
		})
	}
}

// LoggingMiddleware logs each provider call at debug level and failures at
// warn level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		if logger == nil {
			return next(ctx, req)
		}
		start := time.Now()
		resp, err := next(ctx, req)
		if err != nil {
			logger.Warn("completion failed",
				slog.String("provider", req.Provider),
				slog.String("model", req.Model),
				slog.Duration("elapsed", time.Since(start)),
				slog.Any("error", err),
			)
			return nil, err
		}
		logger.Debug("completion",
			slog.String("provider", req.Provider),
			slog.String("model", resp.Model),
			slog.Int("messages", len(req.Messages)),
			slog.String("finish_reason", resp.FinishReason.Reason),
			slog.Int("total_tokens", resp.Usage.TotalTokens),
			slog.Duration("elapsed", time.Since(start)),
		)
		return resp, nil
	}
}
