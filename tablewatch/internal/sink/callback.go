package sink

import (
	"context"

	"github.com/hazyhaar/tablewatch/tablewatch/event"
)

// HuntFunc is called for each hunt outcome.
type HuntFunc func(ctx context.Context, h event.Hunt) error

// SeatingFunc is called for each seating.
type SeatingFunc func(ctx context.Context, s event.Seating) error

// RoundFunc is called for each round start.
type RoundFunc func(ctx context.Context, r event.RoundStarted) error

// Callback delivers events as in-process function calls. Any handler may
// be nil.
type Callback struct {
	onHunt    HuntFunc
	onSeating SeatingFunc
	onRound   RoundFunc
}

// NewCallback creates a Callback sink.
func NewCallback(onHunt HuntFunc, onSeating SeatingFunc, onRound RoundFunc) *Callback {
	return &Callback{onHunt: onHunt, onSeating: onSeating, onRound: onRound}
}

func (c *Callback) SendHunt(ctx context.Context, h event.Hunt) error {
	if c.onHunt != nil {
		return c.onHunt(ctx, h)
	}
	return nil
}

func (c *Callback) SendSeating(ctx context.Context, s event.Seating) error {
	if c.onSeating != nil {
		return c.onSeating(ctx, s)
	}
	return nil
}

func (c *Callback) SendRound(ctx context.Context, r event.RoundStarted) error {
	if c.onRound != nil {
		return c.onRound(ctx, r)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
