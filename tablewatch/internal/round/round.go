// Package round reads the table's round counter and waits for it to move.
package round

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/hazyhaar/tablewatch/tablewatch/internal/probe"
)

// Number is a round counter value. Undetermined means the counter could
// not be read this cycle.
type Number int

// Undetermined is never treated as a round change.
const Undetermined Number = -1

// Known reports whether n is a concrete round value.
func (n Number) Known() bool { return n >= 0 }

var digits = regexp.MustCompile(`[0-9]+`)

// Parse extracts the first run of decimal digits from a label such as
// "TOUR 11". It returns probe.ErrUnparsable when there is none.
func Parse(label string) (Number, error) {
	m := digits.FindString(label)
	if m == "" {
		return Undetermined, probe.ErrUnparsable
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return Undetermined, probe.ErrUnparsable
	}
	return Number(n), nil
}

// Tracker reads the round label through a probe.
type Tracker struct {
	probe    probe.Probe
	selector string
	timeout  time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// Config for creating a Tracker.
type Config struct {
	Probe    probe.Probe
	Selector string
	// Timeout per label read. Default: 1s.
	Timeout time.Duration
	// Interval between polls in AwaitNext. Default: 1s.
	Interval time.Duration
	Logger   *slog.Logger
}

// NewTracker creates a Tracker.
func NewTracker(cfg Config) *Tracker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Tracker{
		probe:    cfg.Probe,
		selector: cfg.Selector,
		timeout:  cfg.Timeout,
		interval: cfg.Interval,
		logger:   cfg.Logger,
	}
}

// Current reads the counter once. Any failure yields Undetermined.
func (t *Tracker) Current(ctx context.Context) Number {
	txt, err := t.probe.Text(ctx, t.selector, t.timeout)
	if err != nil {
		return Undetermined
	}
	n, err := Parse(txt)
	if err != nil {
		t.logger.Debug("round: label unparsable", "text", txt)
		return Undetermined
	}
	return n
}

// AwaitNext polls every interval until the counter shows a concrete value
// different from known, and returns it. Undetermined readings are skipped.
// It only returns early when ctx is done.
func (t *Tracker) AwaitNext(ctx context.Context, known Number) (Number, error) {
	for {
		if err := probe.Wait(ctx, t.interval); err != nil {
			return Undetermined, err
		}
		n := t.Current(ctx)
		if n.Known() && n != known {
			return n, nil
		}
	}
}

// Interval returns the poll interval.
func (t *Tracker) Interval() time.Duration { return t.interval }
