package api

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rubiojr/cardex/pkg/log"
)

// WindowCounter counts hits for a key inside a fixed window.
type WindowCounter interface {
	// Incr adds one hit to key and returns the count in the current
	// window and the time left until the window resets.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisCounter implements WindowCounter with INCR and EXPIRE.
type RedisCounter struct {
	rdb *redis.Client
}

func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return count, window, err
		}
		return count, window, nil
	}
	ttl, err := c.rdb.TTL(ctx, key).Result()
	if err != nil {
		return count, window, err
	}
	if ttl < 0 {
		// The key lost its expiry (e.g. EXPIRE failed earlier).
		c.rdb.Expire(ctx, key, window)
		ttl = window
	}
	return count, ttl, nil
}

// RateLimiter limits requests per client IP in fixed windows.
type RateLimiter struct {
	counter  WindowCounter
	requests int
	window   time.Duration
	prefix   string
	logger   *log.Logger
}

func NewRateLimiter(counter WindowCounter, requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		counter:  counter,
		requests: requests,
		window:   window,
		prefix:   "cardex:ratelimit",
		logger:   log.ForService("ratelimit"),
	}
}

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int64
	// RetryAfter is the time until the window resets.
	RetryAfter time.Duration
}

// Allow records a hit for client. Counter errors allow the request.
func (l *RateLimiter) Allow(ctx context.Context, client string) Decision {
	key := fmt.Sprintf("%s:%s", l.prefix, client)
	count, ttl, err := l.counter.Incr(ctx, key, l.window)
	if err != nil {
		l.logger.Warnf("rate limit counter unavailable, allowing request: %v", err)
		return Decision{Allowed: true, Limit: l.requests, Remaining: int64(l.requests)}
	}

	remaining := int64(l.requests) - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:    count <= int64(l.requests),
		Limit:      l.requests,
		Remaining:  remaining,
		RetryAfter: ttl,
	}
}

// rateLimit rejects clients over the limit with 429.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := s.limiter.Allow(r.Context(), clientIP(r))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
		if !d.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(d.RetryAfter)))
			s.writeError(w, r, http.StatusTooManyRequests, "Too many requests",
				"try again in "+d.RetryAfter.Round(time.Second).String())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(ttl time.Duration) int {
	secs := int(math.Ceil(ttl.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// clientIP returns the host part of RemoteAddr, which middleware.RealIP
// has already replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
