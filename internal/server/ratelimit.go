package server

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"atsquick/internal/errors"

	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 10 * time.Minute
	limiterIdleTTL         = 10 * time.Minute
)

// visitor is one client's token bucket and when it was last charged
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key (IP or API key).
// Buckets idle for longer than limiterIdleTTL are evicted.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	perSec   rate.Limit
	burst    int
	now      func() time.Time

	stop   chan struct{}
	closed sync.Once
	logger *errors.Logger
}

// NewRateLimiter allows requestsPerMin sustained requests per key with bursts
// up to burstCapacity, and starts the eviction loop
func NewRateLimiter(requestsPerMin, burstCapacity int, logger *errors.Logger) *RateLimiter {
	rl := &RateLimiter{
		visitors: map[string]*visitor{},
		perSec:   rate.Limit(float64(requestsPerMin) / 60.0),
		burst:    max(burstCapacity, 1),
		now:      time.Now,
		stop:     make(chan struct{}),
		logger:   logger,
	}
	go rl.evictLoop()
	return rl
}

// Allow charges one token to key and reports whether the request may proceed.
// It never blocks.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.perSec, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = rl.now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

// RetryAfter is the whole number of seconds until an empty bucket refills one token
func (rl *RateLimiter) RetryAfter() int {
	if rl.perSec <= 0 {
		return 60
	}
	return int(math.Ceil(1 / float64(rl.perSec)))
}

// GetStats reports the bucket count and configured budget
func (rl *RateLimiter) GetStats() map[string]any {
	rl.mu.Lock()
	active := len(rl.visitors)
	rl.mu.Unlock()

	return map[string]any{
		"active_limiters": active,
		"rate_per_second": float64(rl.perSec),
		"rate_per_minute": float64(rl.perSec) * 60,
		"burst_capacity":  rl.burst,
	}
}

func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle(limiterIdleTTL)
		case <-rl.stop:
			return
		}
	}
}

// evictIdle drops buckets not charged within ttl and returns how many went
func (rl *RateLimiter) evictIdle(ttl time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-ttl)
	evicted := 0
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
			evicted++
		}
	}

	if rl.logger != nil && evicted > 0 {
		rl.logger.Debug("Evicted idle rate limit buckets", "evicted", evicted, "remaining", len(rl.visitors))
	}
	return evicted
}

// Close stops the eviction loop. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.closed.Do(func() { close(rl.stop) })
}

// rateLimitMiddleware rejects requests over the per-key budget with 429
func (s *Server) rateLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimiter == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := getRateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if key == "" {
				next(w, r)
				return
			}

			if !s.RateLimiter.Allow(key) {
				s.Logger.Info("Rate limit exceeded",
					"endpoint", r.URL.Path,
					"client_ip", getClientIP(r),
					"request_id", requestIDFrom(r.Context()))
				w.Header().Set("Retry-After", strconv.Itoa(s.RateLimiter.RetryAfter()))
				writeErrorResponse(w, http.StatusTooManyRequests, ErrorResponse{Error: "Too many requests. Please try again later."})
				return
			}

			next(w, r)
		}
	}
}

// getRateLimitKey picks the bucket a request is charged to
func getRateLimitKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		if apiKey := extractAPIKey(r); apiKey != "" {
			return "api:" + apiKey
		}
	}

	if byIP {
		return "ip:" + getClientIP(r)
	}

	return ""
}

// getClientIP returns the first valid address in X-Forwarded-For, then
// X-Real-IP, then the connection's remote host
func getClientIP(r *http.Request) string {
	for ip := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		if ip = strings.TrimSpace(ip); net.ParseIP(ip) != nil {
			return ip
		}
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
