package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"navcheck/internal/domain"
)

const (
	// chromedpPollInterval is how often visibility and ready state are re-evaluated
	chromedpPollInterval = visibilityPollInterval
	// chromedpQueryTimeout bounds short queries such as reading the location
	chromedpQueryTimeout = 5 * time.Second
)

// ChromedpDriver drives a local Chrome/Chromium over the DevTools protocol.
// Every Launch starts its own browser process.
type ChromedpDriver struct {
	opts   Options
	logger *zap.Logger
}

// NewChromedpDriver creates a chromedp driver
func NewChromedpDriver(opts Options) *ChromedpDriver {
	opts = opts.withDefaults()
	return &ChromedpDriver{
		opts:   opts,
		logger: opts.Logger.With(zap.String("component", "chromedp_driver")),
	}
}

// Name returns the backend name
func (d *ChromedpDriver) Name() string {
	return BackendChromedp
}

// Launch starts a browser process
func (d *ChromedpDriver) Launch(ctx context.Context) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.opts.Headless),
		chromedp.WindowSize(d.opts.ViewportWidth, d.opts.ViewportHeight),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if d.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(d.opts.UserAgent))
	}

	// The browser outlives the launching call, so it hangs off Background and
	// is torn down by Close.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			d.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	d.logger.Debug("chromedp browser started",
		zap.Bool("headless", d.opts.Headless),
		zap.Int("viewport_w", d.opts.ViewportWidth),
		zap.Int("viewport_h", d.opts.ViewportHeight))

	return &chromedpBrowser{ctx: browserCtx, cancel: browserCancel, allocCancel: allocCancel}, nil
}

// Close is a no-op: browser processes belong to the browsers launched.
func (d *ChromedpDriver) Close() error {
	return nil
}

type chromedpBrowser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

func (b *chromedpBrowser) NewContext(ctx context.Context) (Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bctx, cancel := chromedp.NewContext(b.ctx, chromedp.WithNewBrowserContext())
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	// Creates the browser context and its first target.
	if err := chromedp.Run(bctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	return &chromedpContext{ctx: bctx, cancel: cancel}, nil
}

func (b *chromedpBrowser) Close() error {
	err := chromedp.Cancel(b.ctx)
	b.cancel()
	b.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type chromedpContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	firstUsed bool
}

func (c *chromedpContext) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The context already owns a target; hand it out before opening tabs.
	if !c.firstUsed {
		c.firstUsed = true
		return &chromedpPage{ctx: c.ctx}, nil
	}

	pctx, cancel := chromedp.NewContext(c.ctx)
	if err := chromedp.Run(pctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &chromedpPage{ctx: pctx, cancel: cancel}, nil
}

func (c *chromedpContext) Close() error {
	err := chromedp.Cancel(c.ctx)
	c.cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type chromedpPage struct {
	ctx    context.Context
	cancel context.CancelFunc // nil for the context's own target
}

// run executes actions on the page target, bounded by timeout and by ctx.
func (p *chromedpPage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrNavigationTimeout, timeout)
	}
	return err
}

func (p *chromedpPage) Goto(ctx context.Context, url string, ready ReadinessCriterion, timeout time.Duration) error {
	var err error
	if ready == ReadyNetworkIdle {
		err = p.gotoNetworkIdle(ctx, url, timeout)
	} else {
		// Navigate waits for the load event, which also covers commit and
		// domcontentloaded.
		err = p.run(ctx, timeout, chromedp.Navigate(url))
	}
	if err != nil && !errors.Is(err, ErrNavigationTimeout) && ctx.Err() == nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return err
}

// gotoNetworkIdle navigates and waits for the networkIdle lifecycle event of
// the new document.
func (p *chromedpPage) gotoNetworkIdle(ctx context.Context, url string, timeout time.Duration) error {
	var (
		mu      sync.Mutex
		current cdp.LoaderID
		once    sync.Once
	)
	idle := make(chan struct{})

	lctx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	chromedp.ListenTarget(lctx, func(ev interface{}) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		switch e.Name {
		case "init":
			current = e.LoaderID
		case "networkIdle":
			if current != "" && e.LoaderID == current {
				once.Do(func() { close(idle) })
			}
		}
	})

	return p.run(ctx, timeout,
		page.SetLifecycleEventsEnabled(true),
		chromedp.Navigate(url),
		chromedp.ActionFunc(func(ctx context.Context) error {
			select {
			case <-idle:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}),
	)
}

func (p *chromedpPage) WaitForLoadState(ctx context.Context, ready ReadinessCriterion, timeout time.Duration) error {
	want := "complete"
	switch ready {
	case ReadyCommit:
		return nil
	case ReadyDOMContentLoaded:
		want = "interactive"
	}

	deadline := time.Now().Add(timeout)
	for {
		var state string
		if err := p.run(ctx, chromedpQueryTimeout, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
			return err
		}
		if state == "complete" || state == want {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: document.readyState is %q after %s", ErrNavigationTimeout, state, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(chromedpPollInterval):
		}
	}
}

func (p *chromedpPage) URL(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, chromedpQueryTimeout, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to get URL: %w", err)
	}
	return url, nil
}

func (p *chromedpPage) IsVisible(ctx context.Context, exp domain.ContentExpectation, timeout time.Duration) (bool, error) {
	script, err := visibilityScript(exp)
	if err != nil {
		return false, err
	}

	return pollVisible(ctx, timeout, chromedpPollInterval, func() (bool, error) {
		var visible bool
		err := p.run(ctx, chromedpQueryTimeout, chromedp.Evaluate(script, &visible))
		return visible, err
	})
}

func (p *chromedpPage) Close() error {
	if p.cancel == nil {
		return nil
	}
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

const visibleFn = `function visible(el) {
  if (!el) return false;
  const style = window.getComputedStyle(el);
  if (style.visibility === "hidden" || style.display === "none") return false;
  return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
}`

// visibilityScript builds an expression that evaluates to true when the
// expectation is visible on the current document.
func visibilityScript(exp domain.ContentExpectation) (string, error) {
	quoted, err := json.Marshal(exp.Value)
	if err != nil {
		return "", err
	}

	switch exp.Kind {
	case domain.ContentText:
		// innerText is the rendered text, so fragments split across inline
		// elements still match.
		return fmt.Sprintf(`(() => {
  %s
  const norm = (s) => (s || "").replace(/\s+/g, " ").trim();
  const exact = %t;
  const raw = norm(%s);
  const needle = exact ? raw : raw.toLowerCase();
  const root = document.body || document.documentElement;
  if (!exact) return norm(root.innerText).toLowerCase().includes(needle);
  return Array.from(root.querySelectorAll("*")).some((el) => visible(el) && norm(el.innerText) === needle);
})()`, visibleFn, exp.Exact, quoted), nil
	case domain.ContentSelector:
		return fmt.Sprintf(`(() => {
  %s
  return Array.from(document.querySelectorAll(%s)).some(visible);
})()`, visibleFn, quoted), nil
	default:
		return "", fmt.Errorf("unsupported content expectation %q", exp.Kind)
	}
}
