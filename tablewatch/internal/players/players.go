// Package players reads who is seated at the current table.
package players

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/tablewatch/tablewatch/internal/probe"
)

// Position is a fixed seat, named as in the site's DOM ids.
type Position string

const (
	North Position = "nord"
	South Position = "sud"
	East  Position = "est"
	West  Position = "ouest"
)

// Positions lists every seat in table order.
var Positions = []Position{North, East, South, West}

// Unknown is the name recorded for a seat whose badge could not be read.
const Unknown = ""

// Map holds one entry per Position. Identify always fills all four.
type Map map[Position]string

// Known reports whether the seat has a readable name.
func (m Map) Known(p Position) bool {
	return m[p] != Unknown
}

// Count returns the number of seats with a known name.
func (m Map) Count() int {
	n := 0
	for _, p := range Positions {
		if m.Known(p) {
			n++
		}
	}
	return n
}

// Strings converts the map for serialisation.
func (m Map) Strings() map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

// BadgeSelector returns the CSS selector of a seat's name badge.
func BadgeSelector(p Position) string {
	return fmt.Sprintf("#%s div[data-role='badge']", p)
}

// Identifier reads the four seat badges.
type Identifier struct {
	probe    probe.Probe
	timeout  time.Duration
	selector func(Position) string
	policy   *bluemonday.Policy
	logger   *slog.Logger
}

// Config for creating an Identifier.
type Config struct {
	Probe probe.Probe
	// Timeout per badge read. Default: 2s.
	Timeout time.Duration
	// Selector overrides BadgeSelector.
	Selector func(Position) string
	Logger   *slog.Logger
}

// NewIdentifier creates an Identifier.
func NewIdentifier(cfg Config) *Identifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.Selector == nil {
		cfg.Selector = BadgeSelector
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Identifier{
		probe:    cfg.Probe,
		timeout:  cfg.Timeout,
		selector: cfg.Selector,
		policy:   bluemonday.StrictPolicy(),
		logger:   cfg.Logger,
	}
}

// Identify reads every seat. A seat that cannot be read is recorded as
// Unknown and does not stop the others.
func (id *Identifier) Identify(ctx context.Context) Map {
	m := make(Map, len(Positions))
	for _, pos := range Positions {
		src, err := id.probe.HTML(ctx, id.selector(pos), id.timeout)
		if err != nil {
			id.logger.Debug("players: seat unreadable", "position", pos, "error", err)
			m[pos] = Unknown
			continue
		}
		m[pos] = id.clean(src)
	}
	return m
}

// clean reduces a badge's HTML to its display name: tags are dropped,
// entities decoded once and whitespace collapsed. Literal "<" or "&" in a
// name arrive escaped and survive.
func (id *Identifier) clean(s string) string {
	s = html.UnescapeString(id.policy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}
