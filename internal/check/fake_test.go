package check

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"navcheck/internal/browser"
	"navcheck/internal/domain"
)

// fakeDriver is a scriptable in-memory backend
type fakeDriver struct {
	launchErr  error
	contextErr error
	pageErr    error
	gotoErr    error
	settleErr  error
	// redirects maps a target URL to the URL the page lands on
	redirects map[string]string
	// content lists the expectations that are visible on every page
	content    map[domain.ContentExpectation]bool
	visibleErr error
	panicOnURL bool
	// blockGoto makes Goto wait for ctx
	blockGoto bool

	visibleCalls atomic.Int64
	gotoCalls    atomic.Int64
	lastReady    atomic.Value
}

func (d *fakeDriver) Name() string { return "fake" }

func (d *fakeDriver) Launch(ctx context.Context) (browser.Browser, error) {
	if d.launchErr != nil {
		return nil, d.launchErr
	}
	return &fakeBrowser{d: d}, nil
}

func (d *fakeDriver) Close() error { return nil }

type fakeBrowser struct{ d *fakeDriver }

func (b *fakeBrowser) NewContext(ctx context.Context) (browser.Context, error) {
	if b.d.contextErr != nil {
		return nil, b.d.contextErr
	}
	return &fakeContext{d: b.d}, nil
}

func (b *fakeBrowser) Close() error { return nil }

type fakeContext struct{ d *fakeDriver }

func (c *fakeContext) NewPage(ctx context.Context) (browser.Page, error) {
	if c.d.pageErr != nil {
		return nil, c.d.pageErr
	}
	return &fakePage{d: c.d, url: "about:blank"}, nil
}

func (c *fakeContext) Close() error { return errors.New("context already gone") }

type fakePage struct {
	d   *fakeDriver
	url string
}

func (p *fakePage) Goto(ctx context.Context, url string, ready browser.ReadinessCriterion, timeout time.Duration) error {
	p.d.gotoCalls.Add(1)
	p.d.lastReady.Store(ready)
	if p.d.blockGoto {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(timeout):
			return browser.ErrNavigationTimeout
		}
	}
	if p.d.gotoErr != nil {
		return p.d.gotoErr
	}
	p.url = url
	if to, ok := p.d.redirects[url]; ok {
		p.url = to
	}
	return nil
}

func (p *fakePage) WaitForLoadState(ctx context.Context, ready browser.ReadinessCriterion, timeout time.Duration) error {
	return p.d.settleErr
}

func (p *fakePage) URL(ctx context.Context) (string, error) {
	if p.d.panicOnURL {
		panic("renderer crashed")
	}
	return p.url, nil
}

func (p *fakePage) IsVisible(ctx context.Context, exp domain.ContentExpectation, timeout time.Duration) (bool, error) {
	p.d.visibleCalls.Add(1)
	if p.d.visibleErr != nil {
		return false, p.d.visibleErr
	}
	return p.d.content[exp], nil
}

func (p *fakePage) Close() error { return nil }
