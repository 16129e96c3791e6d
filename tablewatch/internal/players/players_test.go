package players

import (
	"context"
	"testing"

	"github.com/hazyhaar/tablewatch/tablewatch/internal/probe"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/probe/probetest"
)

func TestBadgeSelector(t *testing.T) {
	if got := BadgeSelector(North); got != "#nord div[data-role='badge']" {
		t.Fatalf("BadgeSelector(North) = %q", got)
	}
	if got := BadgeSelector(West); got != "#ouest div[data-role='badge']" {
		t.Fatalf("BadgeSelector(West) = %q", got)
	}
}

func TestIdentify_AllSeats(t *testing.T) {
	page := probetest.New()
	page.SetText(BadgeSelector(North), "Alice")
	page.SetText(BadgeSelector(East), "Bob")
	page.SetText(BadgeSelector(South), "Chloé")
	page.SetText(BadgeSelector(West), "Dédé")

	m := NewIdentifier(Config{Probe: page}).Identify(context.Background())

	want := Map{North: "Alice", East: "Bob", South: "Chloé", West: "Dédé"}
	for _, p := range Positions {
		if m[p] != want[p] {
			t.Errorf("%s: got %q, want %q", p, m[p], want[p])
		}
	}
	if m.Count() != 4 {
		t.Fatalf("Count = %d, want 4", m.Count())
	}
}

func TestIdentify_MissingSeatsStillTotal(t *testing.T) {
	tests := []struct {
		name    string
		present map[Position]string
	}{
		{"none", nil},
		{"one", map[Position]string{South: "Zoé"}},
		{"three", map[Position]string{North: "A", East: "B", West: "D"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := probetest.New()
			for p, name := range tt.present {
				page.SetText(BadgeSelector(p), name)
			}

			m := NewIdentifier(Config{Probe: page}).Identify(context.Background())

			if len(m) != 4 {
				t.Fatalf("len = %d, want 4", len(m))
			}
			for _, p := range Positions {
				if _, ok := m[p]; !ok {
					t.Fatalf("missing key %s", p)
				}
				if want := tt.present[p]; m[p] != want {
					t.Errorf("%s: got %q, want %q", p, m[p], want)
				}
			}
			if m.Count() != len(tt.present) {
				t.Fatalf("Count = %d, want %d", m.Count(), len(tt.present))
			}
		})
	}
}

func TestIdentify_ActionErrorsAreSwallowed(t *testing.T) {
	page := probetest.New()
	page.SetReplies(BadgeSelector(North), probetest.Reply{Err: probe.ErrActionFailed})
	page.SetText(BadgeSelector(East), "Bob")

	m := NewIdentifier(Config{Probe: page}).Identify(context.Background())
	if m.Known(North) {
		t.Fatalf("North: got %q, want Unknown", m[North])
	}
	if m[East] != "Bob" {
		t.Fatalf("East: got %q", m[East])
	}
}

func TestIdentify_StripsBadgeMarkup(t *testing.T) {
	page := probetest.New()
	page.SetHTML(BadgeSelector(North), "<div data-role=\"badge\">  <b>Jean</b>\n  &amp; Co  </div>")

	m := NewIdentifier(Config{Probe: page}).Identify(context.Background())
	if m[North] != "Jean & Co" {
		t.Fatalf("North: got %q, want %q", m[North], "Jean & Co")
	}
}

func TestIdentify_KeepsLiteralNames(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"angle brackets", "Bob<Alice>", "Bob<Alice>"},
		{"less than", "x<y", "x<y"},
		{"escaped entity", "Tom &amp; Co", "Tom &amp; Co"},
		{"quotes", `L'As "du" pique`, `L'As "du" pique`},
		{"blank", "   ", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := probetest.New()
			page.SetText(BadgeSelector(North), tt.text)

			m := NewIdentifier(Config{Probe: page}).Identify(context.Background())
			if m[North] != tt.want {
				t.Fatalf("North: got %q, want %q", m[North], tt.want)
			}
		})
	}
}

func TestIdentify_CancelledContext(t *testing.T) {
	page := probetest.New()
	page.SetText(BadgeSelector(North), "Alice")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewIdentifier(Config{Probe: page}).Identify(ctx)
	if len(m) != 4 || m.Count() != 0 {
		t.Fatalf("got %v, want four unknown seats", m)
	}
}
