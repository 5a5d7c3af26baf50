package feed

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	logx "rsscat/pkg/logx"
)

// rsshubPublicHost is the public RSSHub instance. Sources registered against
// it are rewritten to the configured self-hosted backend before fetching.
const rsshubPublicHost = "rsshub.app"

const defaultMaxBodySize = 10 << 20 // 10 MiB

// ClientConfig controls outbound feed requests.
type ClientConfig struct {
	UserAgent string
	// RSSHubBackend replaces scheme+host of rsshub.app URLs when non-empty,
	// e.g. "https://rsshub.example.org". Path and query are preserved.
	RSSHubBackend string
	MaxBodySize   int64
}

// Client fetches raw feed documents. It is safe for concurrent use.
type Client struct {
	cfg  ClientConfig
	http *http.Client
	log  logx.Logger
}

func NewClient(cfg ClientConfig, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultMaxBodySize
	}
	return &Client{
		cfg: cfg,
		// Per-call timeouts come from the request context; the client itself
		// stays unbounded so the validator can pick its own deadline.
		http: &http.Client{},
		log:  log,
	}
}

// Fetch issues a GET for rawURL and returns the body and response headers.
// The timeout applies to the whole call including body read. All failure
// modes (network error, timeout, non-2xx status) surface as *FetchError.
func (c *Client) Fetch(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, http.Header, error) {
	target := c.rewriteBackend(rawURL)
	if target != rawURL {
		c.log.Debug("rsshub backend rewrite", logx.String("from", rawURL), logx.String("to", target))
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, &FetchError{URL: rawURL, Err: err}
	}
	if ua := strings.TrimSpace(c.cfg.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, &FetchError{URL: rawURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodySize))
	if err != nil {
		return nil, nil, &FetchError{URL: rawURL, Err: err}
	}
	return body, resp.Header, nil
}

// rewriteBackend swaps the public RSSHub host for the configured backend.
// Invalid URLs pass through untouched; the fetch itself will report them.
func (c *Client) rewriteBackend(rawURL string) string {
	backend := strings.TrimSpace(c.cfg.RSSHubBackend)
	if backend == "" {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || !strings.EqualFold(u.Hostname(), rsshubPublicHost) {
		return rawURL
	}
	b, err := url.Parse(backend)
	if err != nil || b.Host == "" {
		return rawURL
	}
	u.Scheme = b.Scheme
	u.Host = b.Host
	return u.String()
}
