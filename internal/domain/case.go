package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// NavigationCase is a single page to visit and what to expect once it settles
type NavigationCase struct {
	Name            string        // Case name, unique within its file
	File            string        // Path to the case file it was read from
	TargetURL       string        // Page to visit
	ExpectedURL     string        // URL the page must report after navigation
	ExpectedContent string        // Optional text fragment or selector that must be visible
	WaitUntil       string        // Optional readiness criterion override
	ContentTimeout  time.Duration // Optional bounded wait override for ExpectedContent
}

// Validate checks the case invariants: both URLs are absolute.
func (c NavigationCase) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("case name is required")
	}
	if err := validateAbsoluteURL(c.TargetURL); err != nil {
		return fmt.Errorf("case %q: target_url: %w", c.Name, err)
	}
	if err := validateAbsoluteURL(c.ExpectedURL); err != nil {
		return fmt.Errorf("case %q: expected_url: %w", c.Name, err)
	}
	if c.ContentTimeout < 0 {
		return fmt.Errorf("case %q: content_timeout must not be negative", c.Name)
	}
	if _, err := ParseContentExpectation(c.ExpectedContent); err != nil {
		return fmt.Errorf("case %q: expected_content: %w", c.Name, err)
	}
	return nil
}

// Content returns the parsed content expectation. Validate must have passed.
func (c NavigationCase) Content() ContentExpectation {
	exp, _ := ParseContentExpectation(c.ExpectedContent)
	return exp
}

func validateAbsoluteURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("url %q is not absolute", raw)
	}
	return nil
}

// ContentKind tells how a content expectation is matched against the page
type ContentKind string

const (
	// ContentNone means no content is expected
	ContentNone ContentKind = ""
	// ContentText matches a visible text fragment
	ContentText ContentKind = "text"
	// ContentSelector matches a visible element by CSS selector
	ContentSelector ContentKind = "css"
)

// ContentExpectation is the parsed form of NavigationCase.ExpectedContent.
//
// Text matches ignore case and collapse whitespace, and the fragment may
// appear anywhere in the visible text. A quoted fragment (text="Log out")
// sets Exact: it must then equal, case included, the whole visible text of
// some element.
type ContentExpectation struct {
	Kind  ContentKind
	Value string
	Exact bool
}

// IsSet reports whether anything is expected
func (e ContentExpectation) IsSet() bool {
	return e.Kind != ContentNone
}

func (e ContentExpectation) String() string {
	if !e.IsSet() {
		return ""
	}
	if e.Exact {
		return string(e.Kind) + "=" + strconv.Quote(e.Value)
	}
	return string(e.Kind) + "=" + e.Value
}

// ParseContentExpectation accepts "text=<fragment>", "css=<selector>" or a bare
// fragment, which is treated as text.
func ParseContentExpectation(raw string) (ContentExpectation, error) {
	if strings.TrimSpace(raw) == "" {
		return ContentExpectation{}, nil
	}

	kind := ContentText
	value := raw
	if prefix, rest, ok := strings.Cut(raw, "="); ok {
		switch strings.TrimSpace(prefix) {
		case "text":
			value = rest
		case "css":
			kind = ContentSelector
			value = rest
		}
	}

	value = strings.TrimSpace(value)
	exact := false
	if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
		value = value[1 : len(value)-1]
		exact = kind == ContentText
	}
	if value == "" {
		return ContentExpectation{}, fmt.Errorf("empty %s expectation", kind)
	}

	return ContentExpectation{Kind: kind, Value: value, Exact: exact}, nil
}
