// Package browser is the automation surface a navigation check needs: launch a
// browser, open an isolated context and a page, navigate, read the URL back and
// query for visible content. Backends live next to it: playwright, chromedp and
// a static HTTP fetcher.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"navcheck/internal/domain"
)

// ErrNavigationTimeout is returned, wrapped, when a page does not reach its
// readiness criterion in time or cannot be reached at all.
var ErrNavigationTimeout = errors.New("page did not reach readiness criterion")

// Driver launches browsers. A driver may hold a long-lived helper process and
// must be closed once the run is over.
type Driver interface {
	Name() string
	Launch(ctx context.Context) (Browser, error)
	Close() error
}

// Browser is a launched browser instance
type Browser interface {
	NewContext(ctx context.Context) (Context, error)
	Close() error
}

// Context is an isolated browsing context: no cookies or storage shared with
// other contexts.
type Context interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single tab
type Page interface {
	// Goto navigates and blocks until the readiness criterion is met.
	Goto(ctx context.Context, url string, ready ReadinessCriterion, timeout time.Duration) error
	// WaitForLoadState blocks until the current document reaches ready.
	WaitForLoadState(ctx context.Context, ready ReadinessCriterion, timeout time.Duration) error
	// URL returns the URL the page currently reports.
	URL(ctx context.Context) (string, error)
	// IsVisible waits up to timeout for the expectation to be visible. Every
	// backend applies the same rule: the expectation holds when any matching
	// element is rendered, not only the first match in document order. Text
	// is matched as documented on domain.ContentExpectation. It returns
	// false, not an error, when the wait runs out.
	IsVisible(ctx context.Context, exp domain.ContentExpectation, timeout time.Duration) (bool, error)
	Close() error
}

// ReadinessCriterion decides when a navigation has settled
type ReadinessCriterion string

const (
	ReadyLoad             ReadinessCriterion = "load"
	ReadyDOMContentLoaded ReadinessCriterion = "domcontentloaded"
	ReadyNetworkIdle      ReadinessCriterion = "networkidle"
	ReadyCommit           ReadinessCriterion = "commit"
)

// ReadinessCriteria lists every supported criterion
var ReadinessCriteria = []ReadinessCriterion{ReadyLoad, ReadyDOMContentLoaded, ReadyNetworkIdle, ReadyCommit}

// ParseReadiness validates a criterion name. Empty means ReadyLoad.
func ParseReadiness(s string) (ReadinessCriterion, error) {
	if s == "" {
		return ReadyLoad, nil
	}
	for _, c := range ReadinessCriteria {
		if string(c) == s {
			return c, nil
		}
	}
	names := make([]string, len(ReadinessCriteria))
	for i, c := range ReadinessCriteria {
		names[i] = string(c)
	}
	return "", fmt.Errorf("invalid readiness criterion %q (must be one of %s)", s, strings.Join(names, ", "))
}
