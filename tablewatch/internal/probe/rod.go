package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Rod implements Probe on top of a go-rod page.
type Rod struct {
	page          *rod.Page
	actionTimeout time.Duration
	logger        *slog.Logger
}

// RodOption configures a Rod probe.
type RodOption func(*Rod)

// WithActionTimeout bounds how long Click and Fill wait for their target.
// Default: 10s.
func WithActionTimeout(d time.Duration) RodOption {
	return func(r *Rod) { r.actionTimeout = d }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) RodOption {
	return func(r *Rod) { r.logger = l }
}

// NewRod wraps page.
func NewRod(page *rod.Page, opts ...RodOption) *Rod {
	r := &Rod{
		page:          page,
		actionTimeout: 10 * time.Second,
		logger:        slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Rod) Visible(ctx context.Context, selector string, timeout time.Duration) bool {
	pg := r.page.Context(ctx).Timeout(timeout)
	defer pg.CancelTimeout()

	el, err := pg.Element(selector)
	if err != nil {
		return false
	}
	if err := el.WaitVisible(); err != nil {
		return false
	}
	return true
}

func (r *Rod) Text(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	pg := r.page.Context(ctx).Timeout(timeout)
	defer pg.CancelTimeout()

	el, err := pg.Element(selector)
	if err != nil {
		return "", r.absent(ctx, selector, err)
	}
	txt, err := el.Text()
	if err != nil {
		// Detached between lookup and read: same as never found.
		return "", r.absent(ctx, selector, err)
	}
	return txt, nil
}

func (r *Rod) HTML(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	pg := r.page.Context(ctx).Timeout(timeout)
	defer pg.CancelTimeout()

	el, err := pg.Element(selector)
	if err != nil {
		return "", r.absent(ctx, selector, err)
	}
	src, err := el.HTML()
	if err != nil {
		return "", r.absent(ctx, selector, err)
	}
	return src, nil
}

func (r *Rod) Click(ctx context.Context, selector string) error {
	pg := r.page.Context(ctx).Timeout(r.actionTimeout)
	defer pg.CancelTimeout()

	el, err := pg.Element(selector)
	if err != nil {
		return r.absent(ctx, selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: click %s: %w", ErrActionFailed, selector, err)
	}
	return nil
}

func (r *Rod) Fill(ctx context.Context, selector, value string) error {
	pg := r.page.Context(ctx).Timeout(r.actionTimeout)
	defer pg.CancelTimeout()

	el, err := pg.Element(selector)
	if err != nil {
		return r.absent(ctx, selector, err)
	}
	if err := el.SelectAllText(); err != nil {
		r.logger.Debug("probe: select all before fill", "selector", selector, "error", err)
	}
	if err := el.Input(value); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: fill %s: %w", ErrActionFailed, selector, err)
	}
	return nil
}

func (r *Rod) Screenshot(ctx context.Context, path string) error {
	data, err := r.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return fmt.Errorf("probe: screenshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("probe: write screenshot: %w", err)
	}
	return nil
}

// absent maps a lookup failure to ErrElementNotFound unless the caller's
// own context ended, in which case that takes precedence.
func (r *Rod) absent(ctx context.Context, selector string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return fmt.Errorf("%w: %s: %w", ErrElementNotFound, selector, err)
}
