package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aanand-mishra/clients-api/internal/logger"
	"github.com/aanand-mishra/clients-api/internal/utils/response"
	"golang.org/x/time/rate"
)

// ClientIP returns the caller's address, preferring the first hop of
// X-Forwarded-For, then X-Real-IP, then RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// limiterSet hands out one token bucket per key and forgets buckets that
// have refilled completely, so idle callers do not accumulate.
type limiterSet struct {
	limit rate.Limit
	burst int

	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	lastCleanup time.Time
}

func (ls *limiterSet) get(key string) *rate.Limiter {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if time.Since(ls.lastCleanup) > 5*time.Minute {
		for k, l := range ls.limiters {
			if l.Tokens() >= float64(ls.burst) {
				delete(ls.limiters, k)
			}
		}
		ls.lastCleanup = time.Now()
	}

	l, ok := ls.limiters[key]
	if !ok {
		l = rate.NewLimiter(ls.limit, ls.burst)
		ls.limiters[key] = l
	}
	return l
}

// RateLimit allows requestsPerMinute requests per client IP with the given
// burst. A requestsPerMinute of 0 returns a pass-through middleware.
// A burst of 0 defaults to requestsPerMinute.
func RateLimit(requestsPerMinute, burst int) Middleware {
	if requestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst <= 0 {
		burst = requestsPerMinute
	}

	ls := &limiterSet{
		limit:       rate.Limit(float64(requestsPerMinute) / time.Minute.Seconds()),
		burst:       burst,
		limiters:    make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)
			limiter := ls.get(key)

			if !limiter.Allow() {
				// Peek at when the next token arrives without consuming it.
				reservation := limiter.Reserve()
				delay := reservation.Delay()
				reservation.Cancel()

				retryAfter := max(int(delay.Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				logger.FromContext(r.Context()).Warn("rate limit exceeded",
					"key", key,
					"retry_after", retryAfter,
				)

				response.WriteJSON(w, http.StatusTooManyRequests,
					response.Detail("Too many requests. Please try again later."))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
