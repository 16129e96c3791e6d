// Package probe is the narrow view of a live browser tab that the table
// hunter, round tracker and player identifier work against.
//
// Every call waits at most a bounded time. Absence is reported as false or
// ErrElementNotFound, never as a panic or an unbounded wait.
package probe

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrElementNotFound means the selector did not appear within the timeout.
	ErrElementNotFound = errors.New("probe: element not found")

	// ErrActionFailed means an interaction was attempted on an element that
	// vanished or refused the input.
	ErrActionFailed = errors.New("probe: action failed")

	// ErrUnparsable means the element was found but its text did not hold
	// the expected value.
	ErrUnparsable = errors.New("probe: unparsable text")
)

// Probe is one exclusively-owned browser tab.
type Probe interface {
	// Visible waits up to timeout for selector to be present and visible.
	Visible(ctx context.Context, selector string, timeout time.Duration) bool

	// Text returns the element's text, or ErrElementNotFound.
	Text(ctx context.Context, selector string, timeout time.Duration) (string, error)

	// HTML returns the element's outer HTML, entities intact, or
	// ErrElementNotFound.
	HTML(ctx context.Context, selector string, timeout time.Duration) (string, error)

	// Click clicks the element. ErrElementNotFound if it never shows up,
	// ErrActionFailed if the click itself fails.
	Click(ctx context.Context, selector string) error

	// Fill replaces the input's value.
	Fill(ctx context.Context, selector, value string) error

	// Screenshot writes a PNG of the viewport to path.
	Screenshot(ctx context.Context, path string) error
}

// Wait suspends for d or until ctx is done. It returns ctx.Err() on
// cancellation.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
