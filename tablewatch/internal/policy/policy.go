// Package policy decides whether a table's game is worth recording.
package policy

import "github.com/hazyhaar/tablewatch/tablewatch/internal/players"

// Policy is a pure predicate over the seating. It must not block or
// mutate anything.
type Policy func(players.Map) bool

// RecordAll accepts every table.
func RecordAll(players.Map) bool { return true }

// RequireSeated accepts a table only when at least n seats are readable.
func RequireSeated(n int) Policy {
	return func(m players.Map) bool { return m.Count() >= n }
}

// ByName returns the named policy. Unknown names fall back to RecordAll.
func ByName(name string) Policy {
	switch name {
	case "full_table":
		return RequireSeated(len(players.Positions))
	default:
		return RecordAll
	}
}
