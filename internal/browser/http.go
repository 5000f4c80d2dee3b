package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"

	"navcheck/internal/domain"
)

// maxBodySize caps how much of a document the http backend reads
const maxBodySize = 10 << 20

// HTTPDriver is a browserless backend: it fetches documents with net/http,
// follows redirects and evaluates content against the static DOM. Scripts are
// not executed, so every readiness criterion is met once the body is read.
type HTTPDriver struct {
	opts      Options
	logger    *zap.Logger
	transport http.RoundTripper
}

// NewHTTPDriver creates an http driver
func NewHTTPDriver(opts Options) *HTTPDriver {
	opts = opts.withDefaults()
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &HTTPDriver{
		opts:      opts,
		logger:    opts.Logger.With(zap.String("component", "http_driver")),
		transport: transport,
	}
}

// Name returns the backend name
func (d *HTTPDriver) Name() string {
	return BackendHTTP
}

// Launch returns a browser value; nothing is started.
func (d *HTTPDriver) Launch(ctx context.Context) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &httpBrowser{driver: d}, nil
}

// Close releases idle connections
func (d *HTTPDriver) Close() error {
	if t, ok := d.transport.(interface{ CloseIdleConnections() }); ok {
		t.CloseIdleConnections()
	}
	return nil
}

type httpBrowser struct {
	driver *HTTPDriver
}

// NewContext returns a context with its own cookie jar.
func (b *httpBrowser) NewContext(ctx context.Context) (Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &httpContext{
		driver: b.driver,
		client: &http.Client{Transport: b.driver.transport, Jar: jar},
	}, nil
}

func (b *httpBrowser) Close() error {
	return nil
}

type httpContext struct {
	driver *HTTPDriver
	client *http.Client
}

func (c *httpContext) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &httpPage{driver: c.driver, client: c.client, url: "about:blank"}, nil
}

func (c *httpContext) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

type httpPage struct {
	driver *HTTPDriver
	client *http.Client

	mu     sync.Mutex
	url    string
	status int
	doc    *goquery.Document
}

func (p *httpPage) Goto(ctx context.Context, url string, ready ReadinessCriterion, timeout time.Duration) error {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	doc, finalURL, status, err := p.fetch(reqCtx, url)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s: %v", ErrNavigationTimeout, timeout, err)
		}
		return fmt.Errorf("navigation failed: %w", err)
	}

	p.mu.Lock()
	p.url = finalURL
	p.status = status
	p.doc = doc
	p.mu.Unlock()

	p.driver.logger.Debug("document loaded",
		zap.String("url", url),
		zap.String("final_url", finalURL),
		zap.Int("status", status),
		zap.String("wait_until", string(ready)))
	return nil
}

func (p *httpPage) fetch(ctx context.Context, url string) (*goquery.Document, string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", 0, err
	}
	req.Header.Set("User-Agent", p.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	// Setting Accept-Encoding turns off transparent gzip; decodeBody handles it.
	req.Header.Set("Accept-Encoding", "gzip, deflate, br, zstd")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", 0, err
	}
	// Ensure that the entire response body is read and closed, e.g. in case of decoding errors
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	body, closeBody, err := decodeBody(resp)
	if err != nil {
		return nil, "", 0, err
	}
	defer closeBody()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(body, maxBodySize))
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to parse document: %w", err)
	}

	// Browsers report the URL of the last request in a redirect chain.
	return doc, resp.Request.URL.String(), resp.StatusCode, nil
}

func (p *httpPage) userAgent() string {
	if p.driver.opts.UserAgent != "" {
		return p.driver.opts.UserAgent
	}
	return DefaultUserAgent
}

func (p *httpPage) WaitForLoadState(ctx context.Context, ready ReadinessCriterion, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil && ready != ReadyCommit {
		return fmt.Errorf("%w: no document loaded", ErrNavigationTimeout)
	}
	return nil
}

func (p *httpPage) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

// IsVisible evaluates the expectation against the static document. The
// document cannot change, so there is nothing to wait for.
func (p *httpPage) IsVisible(ctx context.Context, exp domain.ContentExpectation, timeout time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	doc := p.doc
	p.mu.Unlock()
	if doc == nil {
		return false, nil
	}

	switch exp.Kind {
	case domain.ContentText:
		return textVisible(doc, exp), nil
	case domain.ContentSelector:
		visible := false
		doc.Find(exp.Value).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if isRendered(s.Nodes[0]) {
				visible = true
				return false
			}
			return true
		})
		return visible, nil
	default:
		return false, fmt.Errorf("unsupported content expectation %q", exp.Kind)
	}
}

func (p *httpPage) Close() error {
	p.mu.Lock()
	p.doc = nil
	p.mu.Unlock()
	return nil
}

// decodeBody transparently decompresses a body with a content-encoding we
// support. The returned func releases decoder resources.
func decodeBody(resp *http.Response) (io.Reader, func(), error) {
	noop := func() {}
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "", "identity":
		return resp.Body, noop, nil
	case "gzip":
		r, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, noop, fmt.Errorf("error decompressing response body (%w)", err)
		}
		return r, func() { _ = r.Close() }, nil
	case "deflate":
		r, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, noop, fmt.Errorf("error decompressing response body (%w)", err)
		}
		return r, func() { _ = r.Close() }, nil
	case "br":
		return brotli.NewReader(resp.Body), noop, nil
	case "zstd":
		r, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, noop, fmt.Errorf("error decompressing response body (%w)", err)
		}
		return r, r.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

// blockElements get a separating space so adjacent blocks do not run together
var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "br": true, "tr": true, "td": true, "th": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true, "nav": true,
	"ul": true, "ol": true, "table": true, "form": true, "main": true, "aside": true,
}

// VisibleText returns the whitespace-normalized text a user could see in doc
func VisibleText(doc *goquery.Document) string {
	var b strings.Builder
	for _, n := range doc.Selection.Nodes {
		collectText(n, &b)
	}
	return normalizeSpace(b.String())
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if hiddenElement(n) {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
	if n.Type == html.ElementNode && blockElements[n.Data] {
		b.WriteByte(' ')
	}
}

// textVisible applies the text matching rules of ContentExpectation to the
// rendered text of doc
func textVisible(doc *goquery.Document, exp domain.ContentExpectation) bool {
	needle := normalizeSpace(exp.Value)
	if !exp.Exact {
		return strings.Contains(strings.ToLower(VisibleText(doc)), strings.ToLower(needle))
	}

	found := false
	doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		n := s.Nodes[0]
		if !isRendered(n) {
			return true
		}
		var b strings.Builder
		collectText(n, &b)
		if normalizeSpace(b.String()) == needle {
			found = true
			return false
		}
		return true
	})
	return found
}

// isRendered reports whether n and all its ancestors are rendered
func isRendered(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && hiddenElement(n) {
			return false
		}
	}
	return true
}

func hiddenElement(n *html.Node) bool {
	switch n.Data {
	case "head", "script", "style", "template", "noscript":
		return true
	}
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "hidden":
			return true
		case "type":
			if n.Data == "input" && strings.EqualFold(attr.Val, "hidden") {
				return true
			}
		case "style":
			style := strings.ToLower(strings.Join(strings.Fields(attr.Val), ""))
			if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
				return true
			}
		}
	}
	return false
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
