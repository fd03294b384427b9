package httpmiddleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client request limiter.
type RateLimitConfig struct {
	// Max requests allowed per window.
	Max int
	// Window length. Counters reset at window boundaries (fixed window).
	Window time.Duration
	// KeyFor derives the limiter key from a request. Nil means client IP.
	KeyFor func(*http.Request) string
}

type counter struct {
	n       int
	started time.Time
}

type limiter struct {
	cfg  RateLimitConfig
	mu   sync.Mutex
	seen map[string]*counter
}

// take records one request for key and reports whether it fits the window.
func (l *limiter) take(key string, now time.Time) (remaining int, reset time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.seen[key]
	if c == nil || now.Sub(c.started) >= l.cfg.Window {
		c = &counter{started: now}
		l.seen[key] = c
	}
	reset = c.started.Add(l.cfg.Window)

	if c.n >= l.cfg.Max {
		return 0, reset, false
	}
	c.n++
	return l.cfg.Max - c.n, reset, true
}

// evict drops counters whose window ended, keeping the map bounded by the
// set of clients active in the last window.
func (l *limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, c := range l.seen {
		if now.Sub(c.started) >= l.cfg.Window {
			delete(l.seen, key)
		}
	}
}

// RateLimit returns middleware enforcing a fixed-window request limit per
// client. Rejected requests get 429 with a Retry-After header; every
// response carries X-RateLimit-Limit, -Remaining and -Reset. A background
// goroutine evicts idle clients until ctx is cancelled.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.KeyFor == nil {
		cfg.KeyFor = clientIP
	}
	l := &limiter{cfg: cfg, seen: make(map[string]*counter)}

	go func() {
		ticker := time.NewTicker(cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.evict(now)
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, reset, ok := l.take(cfg.KeyFor(r), time.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if !ok {
				wait := int(time.Until(reset).Seconds()) + 1
				if wait < 1 {
					wait = 1
				}
				h.Set("Retry-After", strconv.Itoa(wait))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"message": "rate limit exceeded",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
