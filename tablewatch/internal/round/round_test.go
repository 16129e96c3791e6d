package round

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hazyhaar/tablewatch/tablewatch/internal/probe"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/probe/probetest"
)

const label = "#roundNumber"

func newTracker(page *probetest.Page) *Tracker {
	return NewTracker(Config{
		Probe:    page,
		Selector: label,
		Interval: time.Millisecond,
	})
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Number
		wantErr bool
	}{
		{"TOUR 11", 11, false},
		{"Tour 3 / 8", 3, false},
		{"7", 7, false},
		{"round 007", 7, false},
		{"TOUR", Undetermined, true},
		{"", Undetermined, true},
		{"99999999999999999999999", Undetermined, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if got != tt.want {
			t.Errorf("Parse(%q) = %d, want %d", tt.in, got, tt.want)
		}
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, probe.ErrUnparsable) {
			t.Errorf("Parse(%q) err = %v, want ErrUnparsable", tt.in, err)
		}
	}
}

func TestCurrent_Label(t *testing.T) {
	page := probetest.New()
	page.SetText(label, "TOUR 11")

	if got := newTracker(page).Current(context.Background()); got != 11 {
		t.Fatalf("Current = %d, want 11", got)
	}
}

func TestCurrent_AbsentIsUndetermined(t *testing.T) {
	page := probetest.New()

	got := newTracker(page).Current(context.Background())
	if got != Undetermined {
		t.Fatalf("Current = %d, want Undetermined", got)
	}
	if got.Known() {
		t.Fatal("Undetermined reported as known")
	}
}

func TestCurrent_UnparsableIsUndetermined(t *testing.T) {
	page := probetest.New()
	page.SetText(label, "TOUR ?")

	if got := newTracker(page).Current(context.Background()); got != Undetermined {
		t.Fatalf("Current = %d, want Undetermined", got)
	}
}

func TestCurrent_Idempotent(t *testing.T) {
	page := probetest.New()
	page.SetText(label, "TOUR 4")
	tr := newTracker(page)

	for i := 0; i < 5; i++ {
		if got := tr.Current(context.Background()); got != 4 {
			t.Fatalf("call %d: Current = %d, want 4", i, got)
		}
	}
}

func TestAwaitNext_SkipsUndeterminedAndSame(t *testing.T) {
	page := probetest.New()
	page.SetReplies(label,
		probetest.Absent,
		probetest.Reply{Text: "TOUR 11"},
		probetest.Reply{Text: "TOUR ?"},
		probetest.Reply{Text: "TOUR 11"},
		probetest.Reply{Text: "TOUR 12"},
	)

	got, err := newTracker(page).AwaitNext(context.Background(), 11)
	if err != nil {
		t.Fatalf("AwaitNext: %v", err)
	}
	if got != 12 {
		t.Fatalf("AwaitNext = %d, want 12", got)
	}
	if n := page.TextCalls(label); n != 5 {
		t.Fatalf("polls = %d, want 5", n)
	}
}

func TestAwaitNext_FromUndetermined(t *testing.T) {
	page := probetest.New()
	page.SetReplies(label, probetest.Absent, probetest.Reply{Text: "TOUR 1"})

	got, err := newTracker(page).AwaitNext(context.Background(), Undetermined)
	if err != nil {
		t.Fatalf("AwaitNext: %v", err)
	}
	if got != 1 {
		t.Fatalf("AwaitNext = %d, want 1", got)
	}
}

func TestAwaitNext_Cancelled(t *testing.T) {
	page := probetest.New()
	page.SetText(label, "TOUR 11")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	got, err := newTracker(page).AwaitNext(ctx, 11)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("AwaitNext err = %v, want DeadlineExceeded", err)
	}
	if got != Undetermined {
		t.Fatalf("AwaitNext = %d on cancel, want Undetermined", got)
	}
	if page.TextCalls(label) == 0 {
		t.Fatal("AwaitNext never polled")
	}
}
