package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"navcheck/internal/domain"
)

// PlaywrightDriver drives chromium, firefox or webkit through playwright-go.
// The playwright helper process starts on the first Launch and is shared by
// every browser launched afterwards.
type PlaywrightDriver struct {
	opts   Options
	logger *zap.Logger

	mu sync.Mutex
	pw *playwright.Playwright
}

// NewPlaywrightDriver creates a driver for opts.Engine
func NewPlaywrightDriver(opts Options) (*PlaywrightDriver, error) {
	opts = opts.withDefaults()
	switch opts.Engine {
	case "chromium", "firefox", "webkit":
	default:
		return nil, fmt.Errorf("unknown playwright engine %q (must be chromium, firefox or webkit)", opts.Engine)
	}
	return &PlaywrightDriver{
		opts:   opts,
		logger: opts.Logger.With(zap.String("component", "playwright_driver")),
	}, nil
}

// Name returns the backend name
func (d *PlaywrightDriver) Name() string {
	return BackendPlaywright
}

// start installs and runs playwright once.
func (d *PlaywrightDriver) start() (*playwright.Playwright, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pw != nil {
		return d.pw, nil
	}

	// Discard driver output so it does not interleave with the progress bar
	runOpts := &playwright.RunOptions{
		Browsers: []string{d.opts.Engine},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if !d.opts.SkipInstall {
		d.logger.Debug("installing playwright", zap.String("engine", d.opts.Engine))
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	d.pw = pw
	return pw, nil
}

func (d *PlaywrightDriver) browserType(pw *playwright.Playwright) playwright.BrowserType {
	switch d.opts.Engine {
	case "firefox":
		return pw.Firefox
	case "webkit":
		return pw.WebKit
	default:
		return pw.Chromium
	}
}

// Launch starts a new browser instance
func (d *PlaywrightDriver) Launch(ctx context.Context) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := d.start()
	if err != nil {
		return nil, err
	}

	b, err := d.browserType(pw).Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(d.opts.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	d.logger.Debug("browser launched", zap.String("engine", d.opts.Engine), zap.Bool("headless", d.opts.Headless))
	return &playwrightBrowser{browser: b, opts: d.opts}, nil
}

// Close stops the playwright helper process
func (d *PlaywrightDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pw == nil {
		return nil
	}
	err := d.pw.Stop()
	d.pw = nil
	if err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

type playwrightBrowser struct {
	browser playwright.Browser
	opts    Options
}

func (b *playwrightBrowser) NewContext(ctx context.Context) (Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  b.opts.ViewportWidth,
			Height: b.opts.ViewportHeight,
		},
	}
	if b.opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(b.opts.UserAgent)
	}

	bc, err := b.browser.NewContext(contextOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	return &playwrightContext{context: bc}, nil
}

func (b *playwrightBrowser) Close() error {
	return b.browser.Close()
}

type playwrightContext struct {
	context playwright.BrowserContext
}

func (c *playwrightContext) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := c.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &playwrightPage{page: page}, nil
}

func (c *playwrightContext) Close() error {
	return c.context.Close()
}

type playwrightPage struct {
	page playwright.Page
}

// await runs a blocking playwright call and aborts it by closing the page
// when ctx is cancelled first.
func (p *playwrightPage) await(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = p.page.Close()
		<-done
		return ctx.Err()
	}
}

func (p *playwrightPage) Goto(ctx context.Context, url string, ready ReadinessCriterion, timeout time.Duration) error {
	waitUntil := playwright.WaitUntilState(ready)
	gotoOpts := playwright.PageGotoOptions{
		WaitUntil: &waitUntil,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	}

	err := p.await(ctx, func() error {
		_, err := p.page.Goto(url, gotoOpts)
		return err
	})
	return wrapPlaywrightNavigation(err)
}

func (p *playwrightPage) WaitForLoadState(ctx context.Context, ready ReadinessCriterion, timeout time.Duration) error {
	// Commit is reached by the time Goto returns; there is no load state for it.
	if ready == ReadyCommit {
		return nil
	}

	state := playwright.LoadState(ready)
	err := p.await(ctx, func() error {
		return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   &state,
			Timeout: playwright.Float(float64(timeout.Milliseconds())),
		})
	})
	return wrapPlaywrightNavigation(err)
}

func (p *playwrightPage) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.URL(), nil
}

func (p *playwrightPage) IsVisible(ctx context.Context, exp domain.ContentExpectation, timeout time.Duration) (bool, error) {
	var locator playwright.Locator
	switch exp.Kind {
	case domain.ContentText:
		// Unquoted text is matched ignoring case and whitespace; Exact makes
		// it a case-sensitive whole-text match.
		locator = p.page.GetByText(exp.Value, playwright.PageGetByTextOptions{
			Exact: playwright.Bool(exp.Exact),
		})
	case domain.ContentSelector:
		locator = p.page.Locator(exp.Value)
	default:
		return false, fmt.Errorf("unsupported content expectation %q", exp.Kind)
	}

	// Any match counts, so hidden duplicates earlier in the page do not
	// hide a visible one.
	return pollVisible(ctx, timeout, visibilityPollInterval, func() (bool, error) {
		var visible bool
		err := p.await(ctx, func() error {
			count, err := locator.Count()
			if err != nil {
				return err
			}
			visible, err = anyVisible(count, func(i int) (bool, error) {
				return locator.Nth(i).IsVisible()
			})
			return err
		})
		return visible, err
	})
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}

func wrapPlaywrightNavigation(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrNavigationTimeout, err)
	}
	return fmt.Errorf("navigation failed: %w", err)
}
