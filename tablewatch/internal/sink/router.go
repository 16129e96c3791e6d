package sink

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/tablewatch/tablewatch/event"
)

// Router fans out events to all configured sinks. One sink error does not
// block the others: errors are logged and the first is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

func (r *Router) SendHunt(ctx context.Context, h event.Hunt) error {
	return r.each("hunt", func(s Sink) error { return s.SendHunt(ctx, h) })
}

func (r *Router) SendSeating(ctx context.Context, st event.Seating) error {
	return r.each("seating", func(s Sink) error { return s.SendSeating(ctx, st) })
}

func (r *Router) SendRound(ctx context.Context, rs event.RoundStarted) error {
	return r.each("round", func(s Sink) error { return s.SendRound(ctx, rs) })
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) each(kind string, send func(Sink) error) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := send(s); err != nil {
			r.logger.Warn("sink: send failed", "kind", kind, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
