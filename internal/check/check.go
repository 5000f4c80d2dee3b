// Package check runs a single navigation case: acquire a page, navigate, and
// assert the final URL and optional visible content. Every browser resource
// acquired for a case is released before Run returns.
package check

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"navcheck/internal/browser"
	"navcheck/internal/domain"
)

// minSettleTimeout bounds the post-navigation readiness wait when the
// navigation itself used up the budget.
const minSettleTimeout = 250 * time.Millisecond

// Options configures a Checker. Zero values fall back to the defaults.
type Options struct {
	WaitUntil         browser.ReadinessCriterion
	NavigationTimeout time.Duration
	ContentTimeout    time.Duration
	Logger            *zap.Logger
}

// Checker runs navigation cases against a driver. It holds no per-case state
// and is safe for concurrent use.
type Checker struct {
	driver            browser.Driver
	waitUntil         browser.ReadinessCriterion
	navigationTimeout time.Duration
	contentTimeout    time.Duration
	logger            *zap.Logger
}

// Outcome is what a check observed, set as far as the check got
type Outcome struct {
	FinalURL  string
	Readiness browser.ReadinessCriterion
}

// New creates a Checker
func New(driver browser.Driver, opts Options) *Checker {
	if opts.WaitUntil == "" {
		opts.WaitUntil = browser.ReadyLoad
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}
	if opts.ContentTimeout <= 0 {
		opts.ContentTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Checker{
		driver:            driver,
		waitUntil:         opts.WaitUntil,
		navigationTimeout: opts.NavigationTimeout,
		contentTimeout:    opts.ContentTimeout,
		logger:            opts.Logger.With(zap.String("component", "checker")),
	}
}

// Run executes one case. A nil error means every assertion passed; otherwise
// the error is a *domain.CheckError.
func (c *Checker) Run(ctx context.Context, nc domain.NavigationCase) (out Outcome, err error) {
	logger := c.logger.With(zap.String("case", nc.Name), zap.String("target_url", nc.TargetURL))

	ready := c.waitUntil
	if nc.WaitUntil != "" {
		r, perr := browser.ParseReadiness(nc.WaitUntil)
		if perr != nil {
			return out, fmt.Errorf("case %q: %w", nc.Name, perr)
		}
		ready = r
	}
	out.Readiness = ready

	fail := func(kind domain.Kind, actual string, cause error) *domain.CheckError {
		return &domain.CheckError{
			Kind:            kind,
			TargetURL:       nc.TargetURL,
			ExpectedURL:     nc.ExpectedURL,
			ExpectedContent: nc.ExpectedContent,
			Actual:          actual,
			Err:             cause,
		}
	}

	// Scopes are released in reverse order of acquisition on every path out,
	// panics included.
	b, err := c.driver.Launch(ctx)
	if err != nil {
		return out, fail(domain.KindResourceAcquisition, "browser", err)
	}
	defer c.release(logger, "browser", b.Close)

	bctx, err := b.NewContext(ctx)
	if err != nil {
		return out, fail(domain.KindResourceAcquisition, "browser context", err)
	}
	defer c.release(logger, "browser context", bctx.Close)

	page, err := bctx.NewPage(ctx)
	if err != nil {
		return out, fail(domain.KindResourceAcquisition, "page", err)
	}
	defer c.release(logger, "page", page.Close)

	started := time.Now()
	if err := page.Goto(ctx, nc.TargetURL, ready, c.navigationTimeout); err != nil {
		logger.Debug("navigation failed", zap.Error(err))
		return out, fail(domain.KindNavigationTimeout, "", err)
	}

	// Some pages settle only after client-side redirects; wait again within
	// what is left of the navigation budget.
	settle := c.navigationTimeout - time.Since(started)
	if settle < minSettleTimeout {
		settle = minSettleTimeout
	}
	if err := page.WaitForLoadState(ctx, ready, settle); err != nil {
		logger.Debug("page did not settle", zap.Error(err))
		return out, fail(domain.KindNavigationTimeout, "", err)
	}

	finalURL, err := page.URL(ctx)
	if err != nil {
		return out, fail(domain.KindNavigationTimeout, "", err)
	}
	out.FinalURL = finalURL
	logger.Debug("navigated", zap.String("final_url", finalURL), zap.String("wait_until", string(ready)))

	// Exact comparison: a trailing slash or a different scheme is a mismatch.
	if finalURL != nc.ExpectedURL {
		return out, fail(domain.KindURLMismatch, finalURL, nil)
	}

	exp := nc.Content()
	if !exp.IsSet() {
		return out, nil
	}

	timeout := c.contentTimeout
	if nc.ContentTimeout > 0 {
		timeout = nc.ContentTimeout
	}
	visible, err := page.IsVisible(ctx, exp, timeout)
	if err != nil {
		return out, fail(domain.KindContentNotFound, finalURL, err)
	}
	if !visible {
		return out, fail(domain.KindContentNotFound, finalURL, fmt.Errorf("not visible within %s", timeout))
	}

	return out, nil
}

func (c *Checker) release(logger *zap.Logger, scope string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Warn("failed to release "+scope, zap.Error(err))
	}
}
