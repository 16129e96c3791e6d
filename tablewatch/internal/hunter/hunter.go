// Package hunter walks the site's spectator tables until it lands on a
// tournament table.
//
// Each attempt waits for the UI to settle and classifies the page:
//
//	target indicator visible  -> Found (stop, no click)
//	switch control visible    -> click it, settle, next attempt
//	neither                   -> Blocked (probably back in the lobby)
//
// Running out of attempts ends in Exhausted.
package hunter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/tablewatch/tablewatch/internal/probe"
)

// State is the hunter's state machine position.
type State int

const (
	Searching State = iota
	Found
	Exhausted
	Blocked
)

func (s State) String() string {
	switch s {
	case Searching:
		return "searching"
	case Found:
		return "found"
	case Exhausted:
		return "exhausted"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Classification is what one attempt saw on the page.
type Classification int

const (
	Unknown Classification = iota
	Target
	Standard
)

func (c Classification) String() string {
	switch c {
	case Target:
		return "target"
	case Standard:
		return "standard"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of a hunt.
type Outcome struct {
	State    State
	Attempts int // classification cycles run
	Clicks   int // switch-table clicks performed
}

// Found reports whether the hunt ended on a target table.
func (o Outcome) Found() bool { return o.State == Found }

// Config for creating a Hunter.
type Config struct {
	Probe probe.Probe
	// TargetSelector marks a tournament table.
	TargetSelector string
	// SwitchSelector is the "next table" control.
	SwitchSelector string
	// MaxAttempts bounds the classification cycles. Default: 20.
	MaxAttempts int
	// Settle is waited before each classification. Default: 2s.
	Settle time.Duration
	// SwitchSettle is waited after clicking the switch control. Default: 3s.
	SwitchSettle time.Duration
	// ProbeTimeout bounds each visibility check. Default: 1s.
	ProbeTimeout time.Duration
	Logger       *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 20
	}
	if c.Settle <= 0 {
		c.Settle = 2 * time.Second
	}
	if c.SwitchSettle <= 0 {
		c.SwitchSettle = 3 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Hunter runs hunts on one page. Not safe for concurrent hunts: the page
// is owned by a single flow.
type Hunter struct {
	cfg Config
}

// New creates a Hunter.
func New(cfg Config) *Hunter {
	cfg.defaults()
	return &Hunter{cfg: cfg}
}

// Classify inspects the page once. The target check always runs first so a
// page showing both indicators counts as Target.
func (h *Hunter) Classify(ctx context.Context) Classification {
	if h.cfg.Probe.Visible(ctx, h.cfg.TargetSelector, h.cfg.ProbeTimeout) {
		return Target
	}
	if ctx.Err() != nil {
		return Unknown
	}
	if h.cfg.Probe.Visible(ctx, h.cfg.SwitchSelector, h.cfg.ProbeTimeout) {
		return Standard
	}
	return Unknown
}

// Hunt runs the state machine with a fresh budget. It returns an error only
// when ctx is done or a switch click fails; every other ending is reported
// through Outcome.
func (h *Hunter) Hunt(ctx context.Context) (Outcome, error) {
	log := h.cfg.Logger
	out := Outcome{State: Searching}

	for budget := h.cfg.MaxAttempts; budget > 0; budget-- {
		if err := probe.Wait(ctx, h.cfg.Settle); err != nil {
			return out, err
		}
		out.Attempts++

		class := h.Classify(ctx)
		if err := ctx.Err(); err != nil {
			return out, err
		}

		switch class {
		case Target:
			out.State = Found
			log.Info("hunter: tournament table found", "attempt", out.Attempts)
			return out, nil

		case Standard:
			log.Debug("hunter: standard table, switching",
				"attempt", out.Attempts, "remaining", budget-1)
			if err := h.cfg.Probe.Click(ctx, h.cfg.SwitchSelector); err != nil {
				return out, fmt.Errorf("hunter: switch table: %w", err)
			}
			out.Clicks++
			if err := probe.Wait(ctx, h.cfg.SwitchSettle); err != nil {
				return out, err
			}

		default:
			out.State = Blocked
			log.Warn("hunter: no table indicator nor switch control, likely back in lobby",
				"attempt", out.Attempts)
			return out, nil
		}
	}

	out.State = Exhausted
	log.Warn("hunter: attempt budget exhausted", "attempts", out.Attempts)
	return out, nil
}
