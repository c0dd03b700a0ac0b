package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/stockroom/internal/envelope"
)

// rateLimitEntry tracks request counts for a single IP within a time window.
type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// RateLimiter is a fixed-window, per-IP request counter kept in memory.
// It guards the sign-in endpoints.
type RateLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*rateLimitEntry
}

// NewRateLimiter allows max requests per IP per window.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:     max,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*rateLimitEntry),
	}
}

// Allow records a request from ip and reports whether it is within limit.
func (l *RateLimiter) Allow(ip string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[ip]
	if !ok || now.Sub(entry.windowStart) > l.window {
		l.entries[ip] = &rateLimitEntry{count: 1, windowStart: now}
		return true
	}
	entry.count++
	return entry.count <= l.max
}

// Sweep drops entries whose window ended long enough ago to be irrelevant.
func (l *RateLimiter) Sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, entry := range l.entries {
		if now.Sub(entry.windowStart) > l.window*2 {
			delete(l.entries, ip)
		}
	}
}

// Run sweeps every minute until done is closed.
func (l *RateLimiter) Run(done <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Middleware rejects requests over the limit with 429.
func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l.Allow(c.RealIP()) {
				return next(c)
			}
			c.Response().Header().Set("Retry-After", retryAfter(l.window))
			if isAPIPath(c.Request().URL.Path) {
				return envelope.Write(c, http.StatusTooManyRequests,
					envelope.Fail(http.StatusText(http.StatusTooManyRequests)))
			}
			return echo.NewHTTPError(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
		}
	}
}

func retryAfter(window time.Duration) string {
	secs := int(window.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
