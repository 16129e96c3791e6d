package observer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/tablewatch/idgen"
	"github.com/hazyhaar/tablewatch/tablewatch/event"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/players"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/probe/probetest"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/round"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/sink"
)

const label = "#roundNumber"

type recorder struct {
	mu       sync.Mutex
	seatings []event.Seating
	rounds   []event.RoundStarted
	stopAt   int
	cancel   context.CancelFunc
	fail     bool
}

func (r *recorder) sink() sink.Sink {
	return sink.NewCallback(nil,
		func(_ context.Context, s event.Seating) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.seatings = append(r.seatings, s)
			return nil
		},
		func(_ context.Context, rs event.RoundStarted) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.rounds = append(r.rounds, rs)
			if len(r.rounds) >= r.stopAt && r.cancel != nil {
				r.cancel()
			}
			if r.fail {
				return errors.New("sink down")
			}
			return nil
		})
}

func newObserver(page *probetest.Page, rec *recorder, opts ...func(*Config)) *Observer {
	cfg := Config{
		Players:   players.NewIdentifier(players.Config{Probe: page, Timeout: time.Millisecond}),
		Rounds:    round.NewTracker(round.Config{Probe: page, Selector: label, Interval: time.Millisecond}),
		Sink:      rec.sink(),
		SessionID: "ses_test",
		NewID:     idgen.Sequence("evt"),
	}
	for _, o := range opts {
		o(&cfg)
	}
	return New(cfg)
}

func seat(page *probetest.Page) {
	page.SetText(players.BadgeSelector(players.North), "Alice")
	page.SetText(players.BadgeSelector(players.South), "Bob")
}

func TestObserve_EmitsEachNewRoundOnce(t *testing.T) {
	page := probetest.New()
	seat(page)
	page.SetReplies(label,
		probetest.Reply{Text: "TOUR 5"}, // baseline, in progress at entry
		probetest.Reply{Text: "TOUR 5"},
		probetest.Absent,
		probetest.Reply{Text: "TOUR 6"},
		probetest.Reply{Text: "TOUR 6"},
		probetest.Reply{Text: "TOUR 4"},
		probetest.Reply{Text: "TOUR 7"},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &recorder{stopAt: 2, cancel: cancel}

	err := newObserver(page, rec).Observe(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Observe err = %v, want Canceled", err)
	}

	if len(rec.rounds) != 2 {
		t.Fatalf("rounds = %+v, want 2", rec.rounds)
	}
	if rec.rounds[0].Round != 6 || rec.rounds[0].Previous != 5 {
		t.Fatalf("first event = %+v, want 6 after 5", rec.rounds[0])
	}
	if rec.rounds[1].Round != 7 || rec.rounds[1].Previous != 6 {
		t.Fatalf("second event = %+v, want 7 after 6", rec.rounds[1])
	}
	if rec.rounds[0].SessionID != "ses_test" || rec.rounds[0].Seats["nord"] != "Alice" {
		t.Fatalf("event metadata = %+v", rec.rounds[0])
	}
	if rec.rounds[0].ID == rec.rounds[1].ID {
		t.Fatal("events share an ID")
	}
}

func TestObserve_NoEventForRoundAtEntry(t *testing.T) {
	page := probetest.New()
	page.SetText(label, "TOUR 9")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	rec := &recorder{}

	err := newObserver(page, rec).Observe(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Observe err = %v", err)
	}
	if len(rec.rounds) != 0 {
		t.Fatalf("rounds = %+v, want none", rec.rounds)
	}
	if len(rec.seatings) != 1 || !rec.seatings[0].Record {
		t.Fatalf("seatings = %+v", rec.seatings)
	}
}

func TestObserve_UndeterminedAtEntrySyncsOnFirstValue(t *testing.T) {
	page := probetest.New()
	page.SetReplies(label,
		probetest.Absent,
		probetest.Absent,
		probetest.Reply{Text: "TOUR 3"}, // first concrete value: baseline only
		probetest.Reply{Text: "TOUR 3"},
		probetest.Reply{Text: "TOUR 4"},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &recorder{stopAt: 1, cancel: cancel}

	_ = newObserver(page, rec).Observe(ctx)

	if len(rec.rounds) != 1 || rec.rounds[0].Round != 4 || rec.rounds[0].Previous != 3 {
		t.Fatalf("rounds = %+v, want only 4 after 3", rec.rounds)
	}
}

func TestObserve_PolicyRejects(t *testing.T) {
	page := probetest.New()
	seat(page)
	page.SetText(label, "TOUR 1")
	rec := &recorder{}

	err := newObserver(page, rec, func(c *Config) {
		c.Policy = func(players.Map) bool { return false }
	}).Observe(context.Background())
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if page.TextCalls(label) != 0 {
		t.Fatal("round label read for a rejected table")
	}
	if len(rec.seatings) != 1 || rec.seatings[0].Record {
		t.Fatalf("seatings = %+v, want one with record=false", rec.seatings)
	}
	if len(rec.seatings[0].Seats) != 4 {
		t.Fatalf("seats = %v, want four positions", rec.seatings[0].Seats)
	}
}

func TestObserve_SinkFailureKeepsWatching(t *testing.T) {
	page := probetest.New()
	page.SetReplies(label,
		probetest.Reply{Text: "TOUR 1"},
		probetest.Reply{Text: "TOUR 2"},
		probetest.Reply{Text: "TOUR 3"},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &recorder{stopAt: 2, cancel: cancel, fail: true}

	_ = newObserver(page, rec).Observe(ctx)

	if len(rec.rounds) != 2 {
		t.Fatalf("rounds = %d, want 2 despite sink errors", len(rec.rounds))
	}
}
