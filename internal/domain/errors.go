package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why a navigation check failed
type Kind string

const (
	KindURLMismatch         Kind = "url_mismatch"
	KindContentNotFound     Kind = "content_not_found"
	KindNavigationTimeout   Kind = "navigation_timeout"
	KindResourceAcquisition Kind = "resource_acquisition_failure"
)

// Sentinels for errors.Is. A *CheckError matches the sentinel of its Kind.
var (
	ErrURLMismatch         = errors.New("url mismatch")
	ErrContentNotFound     = errors.New("content not found")
	ErrNavigationTimeout   = errors.New("navigation timeout")
	ErrResourceAcquisition = errors.New("resource acquisition failure")
)

var sentinels = map[Kind]error{
	KindURLMismatch:         ErrURLMismatch,
	KindContentNotFound:     ErrContentNotFound,
	KindNavigationTimeout:   ErrNavigationTimeout,
	KindResourceAcquisition: ErrResourceAcquisition,
}

// CheckError is the terminal failure of one navigation case
type CheckError struct {
	Kind            Kind
	TargetURL       string
	ExpectedURL     string
	ExpectedContent string
	Actual          string // Actual URL for mismatches, resource name for acquisition failures
	Err             error  // Underlying cause, if any
}

func (e *CheckError) Error() string {
	var b strings.Builder
	b.WriteString(e.Detail())
	fmt.Fprintf(&b, " (target: %s, expected: %s)", e.TargetURL, e.ExpectedURL)
	return b.String()
}

// Detail is the mismatch description without the URL context
func (e *CheckError) Detail() string {
	switch e.Kind {
	case KindURLMismatch:
		return fmt.Sprintf("url mismatch: got %q, want %q", e.Actual, e.ExpectedURL)
	case KindContentNotFound:
		msg := fmt.Sprintf("content not found: %s", e.ExpectedContent)
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		return msg
	case KindNavigationTimeout:
		if e.Err != nil {
			return fmt.Sprintf("navigation timeout: %v", e.Err)
		}
		return "navigation timeout"
	case KindResourceAcquisition:
		if e.Err != nil {
			return fmt.Sprintf("failed to acquire %s: %v", e.Actual, e.Err)
		}
		return fmt.Sprintf("failed to acquire %s", e.Actual)
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return string(e.Kind)
	}
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *CheckError) Is(target error) bool {
	sentinel, ok := sentinels[e.Kind]
	return ok && target == sentinel
}

// KindOf returns the kind of a check failure, or "" for other errors
func KindOf(err error) Kind {
	var ce *CheckError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
