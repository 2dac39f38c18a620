// Package enrich fetches page previews for URL claims on a best-effort basis.
package enrich

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/truescope/internal/cache"
	"github.com/ppiankov/truescope/internal/extract"
	"github.com/ppiankov/truescope/internal/logging"
	"github.com/ppiankov/truescope/internal/model"
	"github.com/ppiankov/truescope/internal/ratelimit"
)

// Enricher returns preview metadata for a URL. It never fails: any problem
// yields an empty (or partial) record.
type Enricher interface {
	Fetch(ctx context.Context, url string) model.Metadata
}

// Nop never fetches anything
type Nop struct{}

// Fetch returns empty metadata
func (Nop) Fetch(context.Context, string) model.Metadata { return model.Metadata{} }

// Outcome labels reported to the Observer
const (
	ResultOK      = "ok"
	ResultEmpty   = "empty"
	ResultFailed  = "failed"
	ResultCached  = "cached"
	ResultSkipped = "skipped"
)

// Observer receives one outcome per Fetch call
type Observer interface {
	EnrichmentResult(result string)
}

var (
	errRobotsDisallowed = errors.New("disallowed by robots.txt")
	errNotHTML          = errors.New("response is not html")
)

// HTTPEnricher is the production Enricher
type HTTPEnricher struct {
	fetcher  *Fetcher
	robots   *RobotsChecker
	limiter  *ratelimit.Limiter
	cache    cache.Cache
	cacheTTL time.Duration
	timeout  time.Duration
	observer Observer
	logger   logging.Logger
}

// Option customizes an HTTPEnricher
type Option func(*HTTPEnricher)

// WithCache remembers successful lookups for ttl
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(e *HTTPEnricher) { e.cache, e.cacheTTL = c, ttl }
}

// WithObserver reports outcomes, typically to metrics
func WithObserver(o Observer) Option { return func(e *HTTPEnricher) { e.observer = o } }

// WithLogger sets the logger for swallowed failures (debug level)
func WithLogger(l logging.Logger) Option { return func(e *HTTPEnricher) { e.logger = l } }

// New builds an enricher from cfg
func New(cfg model.EnrichConfig, opts ...Option) *HTTPEnricher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	e := &HTTPEnricher{
		fetcher: NewFetcher(FetcherConfig{
			Timeout:      cfg.Timeout,
			UserAgent:    cfg.UserAgent,
			MaxBytes:     cfg.MaxBodyBytes,
			AllowPrivate: cfg.AllowPrivateHosts,
			HTTPProxy:    cfg.HTTPProxy,
			HTTPSProxy:   cfg.HTTPSProxy,
			NoProxy:      cfg.NoProxy,
		}),
		timeout: cfg.Timeout,
		logger:  logging.Discard(),
	}
	if cfg.RespectRobots {
		e.robots = NewRobotsChecker(e.fetcher.Client(), cfg.UserAgent, time.Hour)
	}
	if cfg.RequestsPerSecond > 0 {
		e.limiter = ratelimit.New(cfg.RequestsPerSecond, cfg.Burst)
	}

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fetch returns metadata for url within the configured time budget
func (e *HTTPEnricher) Fetch(ctx context.Context, url string) model.Metadata {
	if e.cache != nil {
		if m, ok := e.cache.Get(url); ok {
			e.observe(ResultCached)
			return m
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	m, err := e.fetch(ctx, url)
	if err != nil {
		result := ResultFailed
		if errors.Is(err, errRobotsDisallowed) || errors.Is(err, errNotHTML) {
			result = ResultSkipped
		}
		e.observe(result)
		e.logger.WithFields(logrus.Fields{"url": url, "result": result}).WithError(err).Debug("enrichment failed")
		return model.Metadata{}
	}

	if m.IsZero() {
		e.observe(ResultEmpty)
	} else {
		e.observe(ResultOK)
	}
	if e.cache != nil {
		if err := e.cache.Set(url, m, e.cacheTTL); err != nil {
			e.logger.WithError(err).WithField("url", url).Warn("enrichment cache write failed")
		}
	}
	return m
}

func (e *HTTPEnricher) fetch(ctx context.Context, url string) (model.Metadata, error) {
	if e.robots != nil && !e.robots.Allowed(ctx, url) {
		return model.Metadata{}, errRobotsDisallowed
	}

	if e.limiter != nil {
		host, err := ratelimit.HostOf(url)
		if err != nil {
			return model.Metadata{}, err
		}
		if err := e.limiter.Wait(ctx, host); err != nil {
			return model.Metadata{}, fmt.Errorf("rate limit: %w", err)
		}
	}

	res, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return model.Metadata{}, err
	}
	if !isHTML(res.ContentType) {
		return model.Metadata{}, fmt.Errorf("%w: %s", errNotHTML, res.ContentType)
	}

	m, err := extract.Metadata(bytes.NewReader(res.Body), res.FinalURL)
	if err != nil {
		return model.Metadata{}, fmt.Errorf("parse: %w", err)
	}
	return m, nil
}

func (e *HTTPEnricher) observe(result string) {
	if e.observer != nil {
		e.observer.EnrichmentResult(result)
	}
}
