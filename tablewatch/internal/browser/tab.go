package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
)

// Tab is the single page a run drives from sign-in to shutdown.
type Tab struct {
	Page    *rod.Page
	PageURL string
	hijack  *rod.HijackRouter
}

// OpenTab creates a stealth tab, navigates to pageURL and waits for the
// single-page app to go quiet. A slow idle wait is logged, not fatal.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	log := mgr.cfg.Logger

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	tab := &Tab{Page: page, PageURL: pageURL}
	tab.hijack = mgr.blocked.hijack(page)

	navCtx, cancel := context.WithTimeout(ctx, mgr.cfg.NavigationTimeout)
	defer cancel()

	log.Info("browser: navigating", "url", pageURL)
	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		tab.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		log.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	if err := page.Context(ctx).WaitIdle(mgr.cfg.IdleTimeout); err != nil {
		log.Warn("browser: page slow to go idle, continuing", "url", pageURL, "error", err)
	}
	return tab, nil
}

// Close stops request interception and closes the tab.
func (t *Tab) Close() error {
	if t.hijack != nil {
		t.hijack.Stop()
		t.hijack = nil
	}
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
