// Package probetest provides a scripted in-memory probe.Probe for tests.
//
// Each selector holds a sequence of answers. Every call consumes the next
// answer; the last one repeats forever. Unknown selectors behave like an
// empty page: not visible, text not found.
package probetest

import (
	"context"
	"fmt"
	"html"
	"sync"
	"time"

	"github.com/hazyhaar/tablewatch/tablewatch/internal/probe"
)

// Reply is one scripted answer to a Text call.
type Reply struct {
	Text string
	Err  error
}

// Absent is a Reply for an element that never appears.
var Absent = Reply{Err: probe.ErrElementNotFound}

// Page is a scripted probe.Probe. Safe for concurrent use.
type Page struct {
	mu          sync.Mutex
	visible     map[string][]bool
	texts       map[string][]Reply
	htmls       map[string][]Reply
	clickErr    map[string]error
	fillErr     map[string]error
	visCalls    map[string]int
	textCalls   map[string]int
	htmlCalls   map[string]int
	clicks      []string
	fills       map[string]string
	screenshots []string

	// OnClick runs after a successful click, under no lock. Tests use it to
	// change the page in reaction to the click.
	OnClick func(selector string)
}

var _ probe.Probe = (*Page)(nil)

// New creates an empty page.
func New() *Page {
	return &Page{
		visible:   make(map[string][]bool),
		texts:     make(map[string][]Reply),
		htmls:     make(map[string][]Reply),
		clickErr:  make(map[string]error),
		fillErr:   make(map[string]error),
		visCalls:  make(map[string]int),
		textCalls: make(map[string]int),
		htmlCalls: make(map[string]int),
		fills:     make(map[string]string),
	}
}

// SetVisible scripts the answers of Visible for selector.
func (p *Page) SetVisible(selector string, seq ...bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible[selector] = seq
}

// SetText scripts Text for selector with plain strings.
func (p *Page) SetText(selector string, seq ...string) {
	replies := make([]Reply, len(seq))
	for i, s := range seq {
		replies[i] = Reply{Text: s}
	}
	p.SetReplies(selector, replies...)
}

// SetReplies scripts Text for selector with explicit replies.
func (p *Page) SetReplies(selector string, seq ...Reply) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts[selector] = seq
}

// SetHTML scripts HTML for selector. Without it, HTML answers with the
// scripted Text, entity-escaped, as a browser serialises a text-only node.
func (p *Page) SetHTML(selector string, seq ...string) {
	replies := make([]Reply, len(seq))
	for i, s := range seq {
		replies[i] = Reply{Text: s}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.htmls[selector] = replies
}

// FailClick makes every click on selector return err.
func (p *Page) FailClick(selector string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clickErr[selector] = err
}

// FailFill makes every fill on selector return err.
func (p *Page) FailFill(selector string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fillErr[selector] = err
}

// Clicks returns the selectors clicked so far, in order.
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// Filled returns the last value filled into selector.
func (p *Page) Filled(selector string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.fills[selector]
	return v, ok
}

// Screenshots returns the paths passed to Screenshot.
func (p *Page) Screenshots() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.screenshots...)
}

// VisibleCalls counts Visible calls for selector.
func (p *Page) VisibleCalls(selector string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visCalls[selector]
}

// TextCalls counts Text calls for selector.
func (p *Page) TextCalls(selector string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.textCalls[selector]
}

func (p *Page) Visible(ctx context.Context, selector string, _ time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.visCalls[selector]
	p.visCalls[selector] = n + 1
	return pick(p.visible[selector], n, false)
}

func (p *Page) Text(ctx context.Context, selector string, _ time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.textCalls[selector]
	p.textCalls[selector] = n + 1
	r := pick(p.texts[selector], n, Absent)
	if r.Err != nil {
		return "", fmt.Errorf("%w (%s)", r.Err, selector)
	}
	return r.Text, nil
}

func (p *Page) HTML(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	seq, ok := p.htmls[selector]
	if !ok {
		p.mu.Unlock()
		txt, err := p.Text(ctx, selector, timeout)
		if err != nil {
			return "", err
		}
		return html.EscapeString(txt), nil
	}
	n := p.htmlCalls[selector]
	p.htmlCalls[selector] = n + 1
	p.mu.Unlock()
	return pick(seq, n, Reply{}).Text, nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	if err := p.clickErr[selector]; err != nil {
		p.mu.Unlock()
		return err
	}
	p.clicks = append(p.clicks, selector)
	hook := p.OnClick
	p.mu.Unlock()

	if hook != nil {
		hook(selector)
	}
	return nil
}

func (p *Page) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fillErr[selector]; err != nil {
		return err
	}
	p.fills[selector] = value
	return nil
}

func (p *Page) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screenshots = append(p.screenshots, path)
	return nil
}

func pick[T any](seq []T, n int, zero T) T {
	if len(seq) == 0 {
		return zero
	}
	if n >= len(seq) {
		return seq[len(seq)-1]
	}
	return seq[n]
}
