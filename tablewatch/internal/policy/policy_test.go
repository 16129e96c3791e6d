package policy

import (
	"testing"

	"github.com/hazyhaar/tablewatch/tablewatch/internal/players"
)

func TestRecordAll(t *testing.T) {
	for _, m := range []players.Map{
		{},
		{players.North: "A", players.South: "", players.East: "", players.West: ""},
	} {
		if !RecordAll(m) {
			t.Fatalf("RecordAll(%v) = false", m)
		}
	}
}

func TestByName(t *testing.T) {
	partial := players.Map{players.North: "A", players.South: "B", players.East: "", players.West: "D"}
	full := players.Map{players.North: "A", players.South: "B", players.East: "C", players.West: "D"}

	if !ByName("")(partial) {
		t.Fatal("default policy rejected partial table")
	}
	p := ByName("full_table")
	if p(partial) {
		t.Fatal("full_table accepted partial table")
	}
	if !p(full) {
		t.Fatal("full_table rejected full table")
	}
}
