// Package observer watches a found table and emits one event per round
// that starts while it is watched.
package observer

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/tablewatch/idgen"
	"github.com/hazyhaar/tablewatch/tablewatch/event"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/players"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/policy"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/round"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/sink"
)

// Config for creating an Observer.
type Config struct {
	Players *players.Identifier
	Rounds  *round.Tracker
	// Policy decides whether the table is recorded. Default: policy.RecordAll.
	Policy policy.Policy
	Sink   sink.Sink
	// SessionID is stamped on every event.
	SessionID string
	// NewID generates event IDs. Default: idgen.Event.
	NewID  idgen.Generator
	Logger *slog.Logger
}

// Observer runs the per-game watch loop on one page.
type Observer struct {
	cfg Config
}

// New creates an Observer.
func New(cfg Config) *Observer {
	if cfg.Policy == nil {
		cfg.Policy = policy.RecordAll
	}
	if cfg.NewID == nil {
		cfg.NewID = idgen.Event
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Observer{cfg: cfg}
}

// Observe identifies the seating, then emits a RoundStarted for every new
// round until ctx is done. The round already in play at entry is only used
// as the baseline. Observe returns nil when the policy rejects the table,
// otherwise ctx.Err().
func (o *Observer) Observe(ctx context.Context) error {
	log := o.cfg.Logger

	seats := o.cfg.Players.Identify(ctx)
	record := o.cfg.Policy(seats)
	o.send(ctx, "seating", func() error {
		return o.cfg.Sink.SendSeating(ctx, event.Seating{
			ID:        o.cfg.NewID(),
			SessionID: o.cfg.SessionID,
			Seats:     seats.Strings(),
			Record:    record,
			Timestamp: time.Now().UnixMilli(),
		})
	})
	if !record {
		log.Info("observer: table rejected by policy", "seated", seats.Count())
		return nil
	}

	last := o.cfg.Rounds.Current(ctx)
	if !last.Known() {
		// No concrete round yet: the first one seen becomes the baseline,
		// never an event.
		var err error
		if last, err = o.cfg.Rounds.AwaitNext(ctx, round.Undetermined); err != nil {
			return err
		}
	}
	log.Info("observer: synchronised", "round", int(last), "seated", seats.Count())

	for {
		next, err := o.cfg.Rounds.AwaitNext(ctx, last)
		if err != nil {
			return err
		}
		if next < last {
			log.Debug("observer: round went backwards, ignored", "last", int(last), "read", int(next))
			continue
		}

		log.Info("observer: round started", "round", int(next), "previous", int(last))
		o.send(ctx, "round", func() error {
			return o.cfg.Sink.SendRound(ctx, event.RoundStarted{
				ID:        o.cfg.NewID(),
				SessionID: o.cfg.SessionID,
				Round:     int(next),
				Previous:  int(last),
				Seats:     seats.Strings(),
				Timestamp: time.Now().UnixMilli(),
			})
		})
		last = next
	}
}

// send delivers one event. A failing sink is logged and never stops the
// watch loop.
func (o *Observer) send(ctx context.Context, kind string, fn func() error) {
	if o.cfg.Sink == nil {
		return
	}
	if err := fn(); err != nil && ctx.Err() == nil {
		o.cfg.Logger.Warn("observer: emit failed", "kind", kind, "error", err)
	}
}
