package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_Format(t *testing.T) {
	id := UUIDv7()()
	parts := strings.Split(id, "-")
	if len(parts) != 5 {
		t.Fatalf("UUIDv7: expected 5 parts, got %d in %q", len(parts), id)
	}
	if len(id) != 36 {
		t.Fatalf("UUIDv7: expected length 36, got %d", len(id))
	}
	if _, err := Parse(id); err != nil {
		t.Fatalf("Parse(%q): %v", id, err)
	}
}

func TestUUIDv7_Sortable(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for i := 0; i < 50; i++ {
		id := gen()
		if id <= prev {
			t.Fatalf("UUIDv7 not increasing: %q after %q", id, prev)
		}
		prev = id
	}
}

func TestPrefixed(t *testing.T) {
	id := Session()
	if !strings.HasPrefix(id, "ses_") {
		t.Fatalf("Session: got %q, want ses_ prefix", id)
	}
	if _, err := Parse(strings.TrimPrefix(id, "ses_")); err != nil {
		t.Fatalf("Session suffix is not a UUID: %v", err)
	}
	if id := Event(); !strings.HasPrefix(id, "evt_") {
		t.Fatalf("Event: got %q, want evt_ prefix", id)
	}
}

func TestSequence(t *testing.T) {
	gen := Sequence("evt")
	if got := gen(); got != "evt-1" {
		t.Fatalf("first: got %q", got)
	}
	if got := gen(); got != "evt-2" {
		t.Fatalf("second: got %q", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Fatal("Parse: expected error")
	}
}
