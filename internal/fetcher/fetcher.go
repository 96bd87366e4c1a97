package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"

	"github.com/holos-company/etldrivers/internal/htmlutil"
	"github.com/holos-company/etldrivers/internal/retry"
	"github.com/holos-company/etldrivers/pkg/etl"
)

// Fetcher retrieves pages with proxy and user agent rotation.
// A Fetcher must not be used by more than one goroutine at a time.
type Fetcher struct {
	cfg      etl.FetcherConfig
	logger   etl.Logger
	client   *resty.Client
	proxies  etl.ProxyPicker
	agents   etl.UserAgentSource
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithProxyPicker replaces the random proxy picker.
func WithProxyPicker(p etl.ProxyPicker) Option {
	return func(f *Fetcher) { f.proxies = p }
}

// WithUserAgentSource replaces the random user agent source.
func WithUserAgentSource(s etl.UserAgentSource) Option {
	return func(f *Fetcher) { f.agents = s }
}

// WithClient replaces the HTTP client. Its timeout is overwritten with
// the configured one.
func WithClient(c *resty.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// New creates a Fetcher. Zero Timeout, Retries and FallbackUserAgent take
// their defaults; an empty proxy list means direct connections.
func New(cfg etl.FetcherConfig, logger etl.Logger, opts ...Option) (*Fetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = etl.DefaultFetchTimeout
	}
	if cfg.Retries <= 0 {
		cfg.Retries = etl.DefaultFetchRetries
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.FallbackUserAgent == "" {
		cfg.FallbackUserAgent = etl.DefaultFallbackUserAgent
	}
	if err := ValidateProxies(cfg.Proxies); err != nil {
		return nil, err
	}

	f := &Fetcher{
		cfg:     cfg,
		logger:  logger,
		proxies: NewRandomProxyPicker(cfg.Proxies, nil),
		agents:  NewRandomUserAgents(cfg.Browsers, cfg.FallbackUserAgent),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = resty.New()
	}
	f.client.SetTimeout(cfg.Timeout)
	return f, nil
}

// FetchOption customises a single Fetch call.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	retries int
}

// WithRetries overrides the configured number of attempts for one call.
// Values below 1 keep the configured count.
func WithRetries(n int) FetchOption {
	return func(o *fetchOptions) {
		if n > 0 {
			o.retries = n
		}
	}
}

func (f *Fetcher) executor(retries int) *retry.Executor {
	return retry.NewExecutor(
		retry.NewFetchErrorClassifier(),
		retry.NewConstantBackoff(f.cfg.RetryDelay, retries-1),
	).WithOnRetry(func(attempt int, err error, delay time.Duration) {
		f.logger.Info("Retrying in %s (attempt %d/%d)", delay, attempt+2, retries)
	})
}

// Fetch downloads url and parses it as HTML. After the last failed attempt
// it returns a nil document and an error wrapping etl.ErrFetchFailed.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts ...FetchOption) (*goquery.Document, error) {
	o := fetchOptions{retries: f.cfg.Retries}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		doc      *goquery.Document
		attempts int
	)

	err := f.executor(o.retries).Execute(ctx, func(ctx context.Context) error {
		attempts++
		d, err := f.attempt(ctx, url)
		if err != nil {
			f.logger.Error("Request for %s failed: %v", url, err)
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		f.logger.Error("Requests failed, unable to fetch %s", url)
		return nil, fmt.Errorf("%w: %s after %d attempts: %w", etl.ErrFetchFailed, url, attempts, err)
	}

	f.logger.Verbose("Fetched %s in %d attempts", url, attempts)
	return doc, nil
}

func (f *Fetcher) attempt(ctx context.Context, url string) (*goquery.Document, error) {
	proxy := f.proxies.PickProxy()
	if proxy != "" {
		f.client.SetProxy(proxy)
	} else {
		f.client.RemoveProxy()
	}
	ua := f.agents.UserAgent()
	f.logger.Verbose("GET %s via %s as %q", url, proxyLabel(proxy), ua)

	res, err := f.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", ua).
		Get(url)
	if err != nil {
		return nil, err
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("unexpected status %s", res.Status())
	}

	body, err := charset.NewReader(bytes.NewReader(res.Body()), res.Header().Get("Content-Type"))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("decode body: %w", err))
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("parse html: %w", err))
	}
	return doc, nil
}

func proxyLabel(proxy string) string {
	if proxy == "" {
		return "direct connection"
	}
	return proxy
}

// IsEmpty reports whether doc has no content worth saving.
func IsEmpty(doc *goquery.Document) bool {
	if doc == nil || len(doc.Nodes) == 0 {
		return true
	}
	return doc.Find("head, body").Children().Length() == 0 && strings.TrimSpace(doc.Text()) == ""
}

// Save writes doc to path as indented HTML, replacing any existing file.
// An empty document is logged and skipped.
func (f *Fetcher) Save(doc *goquery.Document, path string) error {
	if IsEmpty(doc) {
		f.logger.Info("Nothing to save to '%s': document is empty", path)
		return nil
	}

	out, err := htmlutil.Prettify(doc.Nodes[0])
	if err != nil {
		f.logger.Error("Failed to render HTML for '%s': %v", path, err)
		return err
	}
	return f.write(path, out, "HTML content")
}

// SaveText writes doc to path as plain text.
func (f *Fetcher) SaveText(doc *goquery.Document, path string) error {
	if IsEmpty(doc) {
		f.logger.Info("Nothing to save to '%s': document is empty", path)
		return nil
	}

	out, err := htmlutil.ToText(doc.Nodes[0])
	if err != nil {
		f.logger.Error("Failed to render text for '%s': %v", path, err)
		return err
	}
	return f.write(path, out+"\n", "Text content")
}

func (f *Fetcher) write(path, content, what string) error {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		f.logger.Error("Failed to save '%s': %v", path, err)
		return err
	}
	f.logger.Info("%s saved as '%s'", what, path)
	return nil
}
