// Package sink defines output backends for tablewatch events.
package sink

import (
	"context"

	"github.com/hazyhaar/tablewatch/tablewatch/event"
)

// Sink delivers events to one backend (stdout, webhook, SQLite,
// in-process callback).
type Sink interface {
	SendHunt(ctx context.Context, h event.Hunt) error
	SendSeating(ctx context.Context, s event.Seating) error
	SendRound(ctx context.Context, r event.RoundStarted) error
	Close() error
}
