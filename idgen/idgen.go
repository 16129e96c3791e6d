// Package idgen generates identifiers for tablewatch sessions and events.
//
// Components take a Generator so tests can pin IDs to predictable values.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// IDs sort by creation time, which keeps SQLite rows in emission order.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Sequence returns a Generator yielding prefix-1, prefix-2, ...
// Intended for tests.
func Sequence(prefix string) Generator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// Default is UUIDv7.
var Default Generator = UUIDv7()

// Session produces IDs for one watch session (login to shutdown).
var Session Generator = Prefixed("ses_", Default)

// Event produces IDs for emitted events.
var Event Generator = Prefixed("evt_", Default)

// New produces an ID using the Default generator.
func New() string {
	return Default()
}

// Parse validates a bare UUID string (no prefix).
func Parse(s string) (string, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid UUID: %w", err)
	}
	return u.String(), nil
}
