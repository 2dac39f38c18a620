// Package ratelimit provides token buckets keyed by client or host.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	sweepThreshold = 10000
	idleTTL        = 10 * time.Minute
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per key
type Limiter struct {
	mu           sync.Mutex
	entries      map[string]*entry
	defaultRate  rate.Limit
	defaultBurst int
	now          func() time.Time
}

// New creates a limiter allowing requestsPerSecond per key with the given burst
func New(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		entries:      make(map[string]*entry),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
		now:          time.Now,
	}
}

// Allow reports whether key may proceed now. When it may not, retryAfter
// is how long until a token is available.
func (l *Limiter) Allow(key string) (ok bool, retryAfter time.Duration) {
	lim := l.get(key)
	r := lim.ReserveN(l.now(), 1)
	if !r.OK() {
		return false, time.Second
	}
	if d := r.DelayFrom(l.now()); d > 0 {
		r.CancelAt(l.now())
		return false, d
	}
	return true, 0
}

// Wait blocks until key may proceed or ctx is done
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.get(key).Wait(ctx)
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.entries[key]; ok {
		e.lastSeen = now
		return e.limiter
	}

	if len(l.entries) >= sweepThreshold {
		l.sweep(now)
	}

	e := &entry{limiter: rate.NewLimiter(l.defaultRate, l.defaultBurst), lastSeen: now}
	l.entries[key] = e
	return e.limiter
}

// sweep drops keys idle longer than idleTTL. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	for k, e := range l.entries {
		if now.Sub(e.lastSeen) > idleTTL {
			delete(l.entries, k)
		}
	}
}

// HostOf returns the lowercased host[:port] of rawURL, the key for per-host limits
func HostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return strings.ToLower(parsed.Host), nil
}
