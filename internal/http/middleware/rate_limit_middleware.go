package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sandeepkv93/support-space-backend/internal/http/response"
	"github.com/sandeepkv93/support-space-backend/internal/observability"
	"github.com/sandeepkv93/support-space-backend/internal/security"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands each client key its own token bucket. Buckets idle for
// longer than limiterIdleTTL are dropped.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	scope   string
	keyFunc func(r *http.Request) string
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*limiterEntry
	cleanup time.Time
}

// NewRateLimiter allows perMinute requests per client IP with a burst of the
// same size.
func NewRateLimiter(perMinute int, scope string) *RateLimiter {
	return NewRateLimiterWithKey(perMinute, scope, clientIPKey)
}

func NewRateLimiterWithKey(perMinute int, scope string, keyFunc func(r *http.Request) string) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	if keyFunc == nil {
		keyFunc = clientIPKey
	}
	return &RateLimiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		scope:   scope,
		keyFunc: keyFunc,
		now:     time.Now,
		entries: make(map[string]*limiterEntry),
	}
}

func (l *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter, remaining := l.allow(l.keyFunc(r))
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", l.burst))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
			if !allowed {
				observability.RecordLoginThrottle(r.Context(), "ip_"+l.scope, "blocked")
				w.Header().Set("Retry-After", retryAfterHeader(retryAfter))
				response.Error(w, r, http.StatusTooManyRequests, response.CodeRateLimited, "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *RateLimiter) allow(key string) (bool, time.Duration, int) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.After(l.cleanup) {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(l.entries, k)
			}
		}
		l.cleanup = now.Add(time.Minute)
	}
	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	res := e.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay, 0
	}
	return true, 0, int(e.limiter.TokensAt(now))
}

func clientIPKey(r *http.Request) string {
	if ip := security.ClientIP(r); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func retryAfterHeader(d time.Duration) string {
	if d <= 0 {
		return "1"
	}
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return fmt.Sprintf("%d", seconds)
}
