package browser

import (
	"context"
	"sync"
	"sync/atomic"
)

// Tracker wraps a Driver and counts every browser, context and page acquired
// through it and every one released. Close on a tracked scope is counted once
// no matter how often it is called.
type Tracker struct {
	Driver

	acquired atomic.Int64
	released atomic.Int64
}

// NewTracker wraps d
func NewTracker(d Driver) *Tracker {
	return &Tracker{Driver: d}
}

// Acquired returns how many scopes were opened
func (t *Tracker) Acquired() int64 {
	return t.acquired.Load()
}

// Released returns how many scopes were closed
func (t *Tracker) Released() int64 {
	return t.released.Load()
}

// Open returns the number of scopes still open
func (t *Tracker) Open() int64 {
	return t.Acquired() - t.Released()
}

// Balanced reports whether every acquired scope was released
func (t *Tracker) Balanced() bool {
	return t.Open() == 0
}

func (t *Tracker) Launch(ctx context.Context) (Browser, error) {
	b, err := t.Driver.Launch(ctx)
	if err != nil {
		return nil, err
	}
	t.acquired.Add(1)
	return &trackedBrowser{Browser: b, closer: t.newCloser(b.Close)}, nil
}

// closer runs fn once and records the release
type closer struct {
	once sync.Once
	fn   func() error
	err  error
	t    *Tracker
}

func (t *Tracker) newCloser(fn func() error) *closer {
	return &closer{fn: fn, t: t}
}

func (c *closer) Close() error {
	c.once.Do(func() {
		c.err = c.fn()
		c.t.released.Add(1)
	})
	return c.err
}

type trackedBrowser struct {
	Browser
	closer *closer
}

func (b *trackedBrowser) NewContext(ctx context.Context) (Context, error) {
	c, err := b.Browser.NewContext(ctx)
	if err != nil {
		return nil, err
	}
	b.closer.t.acquired.Add(1)
	return &trackedContext{Context: c, closer: b.closer.t.newCloser(c.Close)}, nil
}

func (b *trackedBrowser) Close() error {
	return b.closer.Close()
}

type trackedContext struct {
	Context
	closer *closer
}

func (c *trackedContext) NewPage(ctx context.Context) (Page, error) {
	p, err := c.Context.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	c.closer.t.acquired.Add(1)
	return &trackedPage{Page: p, closer: c.closer.t.newCloser(p.Close)}, nil
}

func (c *trackedContext) Close() error {
	return c.closer.Close()
}

type trackedPage struct {
	Page
	closer *closer
}

func (p *trackedPage) Close() error {
	return p.closer.Close()
}
