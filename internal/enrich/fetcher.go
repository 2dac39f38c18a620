package enrich

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxRedirects = 5

// FetcherConfig configures page retrieval
type FetcherConfig struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBytes     int64
	AllowPrivate bool // Disable the internal-address guard (tests, trusted networks)
	HTTPProxy    string
	HTTPSProxy   string
	NoProxy      string
}

// Fetcher retrieves HTML pages
type Fetcher struct {
	httpClient   *http.Client
	userAgent    string
	maxBytes     int64
	allowPrivate bool
}

// FetchResult is a retrieved page
type FetchResult struct {
	Body        []byte
	ContentType string
	FinalURL    *url.URL
	StatusCode  int
}

// NewFetcher creates a fetcher. Unless AllowPrivate is set, connections to
// internal addresses are refused at dial time and on every redirect hop.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 1 << 20
	}

	dialer := &net.Dialer{Timeout: cfg.Timeout, KeepAlive: 30 * time.Second}
	proxied := cfg.HTTPProxy != "" || cfg.HTTPSProxy != ""
	if !cfg.AllowPrivate && !proxied {
		dialer.Control = dialControl
	}

	transport := &http.Transport{
		Proxy:                 proxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		DialContext:           dialer.DialContext,
		MaxIdleConns:          64,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
	}

	f := &Fetcher{
		userAgent:    cfg.UserAgent,
		maxBytes:     cfg.MaxBytes,
		allowPrivate: cfg.AllowPrivate,
	}
	f.httpClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return checkURL(req.URL, f.allowPrivate)
		},
	}
	return f
}

// Client exposes the guarded client for auxiliary requests such as robots.txt
func (f *Fetcher) Client() *http.Client {
	return f.httpClient
}

// Fetch retrieves rawURL. Non-2xx responses are errors. The body is cut at
// the configured byte limit.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if err := checkURL(u, f.allowPrivate); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL,
		StatusCode:  resp.StatusCode,
	}, nil
}

// isHTML reports whether a Content-Type header denotes an HTML document.
// A missing header is given the benefit of the doubt.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml" || strings.HasSuffix(mediaType, "+html")
}
