package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

// RateLimiter counts requests per client in fixed Redis windows, so every
// API replica shares the same budget.
type RateLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	logger *logging.Logger
}

// NewRateLimiter allows limit requests per window for each client key.
func NewRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration, logger *logging.Logger) *RateLimiter {
	if logger == nil {
		logger = logging.Default()
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{client: client, prefix: prefix, limit: limit, window: window, logger: logger}
}

// Allow reports whether key is within its budget and how long until the
// window resets. Redis failures allow the request.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	if rl == nil || rl.client == nil || rl.limit <= 0 {
		return true, 0
	}
	bucket := time.Now().UnixNano() / int64(rl.window)
	redisKey := fmt.Sprintf("%s:%s:%d", rl.prefix, key, bucket)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.logger.Warn("rate limiter unavailable", "error", err)
		return true, 0
	}
	if incr.Val() > int64(rl.limit) {
		reset := time.Duration(bucket+1)*rl.window - time.Duration(time.Now().UnixNano())
		return false, reset
	}
	return true, 0
}

// RateLimit rejects requests over the limiter budget with 429.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry := limiter.Allow(r.Context(), clientIP(r))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
				http.Error(w, `{"error": "rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers X-Real-Ip set by chi's RealIP middleware.
func clientIP(r *http.Request) string {
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
