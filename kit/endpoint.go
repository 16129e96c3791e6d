package kit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so that the first one is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Logging logs each call of the named endpoint with its duration.
func Logging(logger *slog.Logger, name string) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			if err != nil {
				logger.Warn("kit: endpoint failed", "endpoint", name, "error", err, "duration", time.Since(start))
			} else {
				logger.Debug("kit: endpoint", "endpoint", name, "duration", time.Since(start))
			}
			return resp, err
		}
	}
}

// Recovering turns a panic inside the endpoint into an error.
func Recovering(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (resp any, err error) {
			defer func() {
				if p := recover(); p != nil {
					logger.Error("kit: endpoint panic", "panic", p)
					resp, err = nil, fmt.Errorf("kit: panic: %v", p)
				}
			}()
			return next(ctx, req)
		}
	}
}
