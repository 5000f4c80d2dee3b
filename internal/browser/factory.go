package browser

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const (
	BackendPlaywright = "playwright"
	BackendChromedp   = "chromedp"
	BackendHTTP       = "http"
)

// Backends lists the supported backend names
var Backends = []string{BackendPlaywright, BackendChromedp, BackendHTTP}

// Options configures a driver. Fields a backend has no use for are ignored.
type Options struct {
	Headless       bool
	Engine         string // playwright only: chromium, firefox or webkit
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string
	// SkipInstall skips downloading the playwright driver and browsers.
	SkipInstall bool
	// Transport overrides the HTTP transport of the http backend.
	Transport http.RoundTripper
	Logger    *zap.Logger
}

const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultUserAgent      = "navcheck/1.0"
)

func (o Options) withDefaults() Options {
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = DefaultViewportWidth
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = DefaultViewportHeight
	}
	if o.Engine == "" {
		o.Engine = "chromium"
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// ValidateBackend reports whether name is a known backend
func ValidateBackend(name string) error {
	for _, b := range Backends {
		if b == name {
			return nil
		}
	}
	return fmt.Errorf("unknown browser backend %q (must be one of %s)", name, strings.Join(Backends, ", "))
}

// New returns the driver for a backend name
func New(name string, opts Options) (Driver, error) {
	opts = opts.withDefaults()
	switch name {
	case BackendPlaywright:
		d, err := NewPlaywrightDriver(opts)
		if err != nil {
			return nil, err
		}
		return d, nil
	case BackendChromedp:
		return NewChromedpDriver(opts), nil
	case BackendHTTP:
		return NewHTTPDriver(opts), nil
	default:
		return nil, ValidateBackend(name)
	}
}
