package middlewares

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/geocoder89/usergraph/internal/actorctx"
	"github.com/gin-gonic/gin"
)

// Counter counts hits for key in a fixed window and reports how long until
// the window resets.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

type RateLimiter struct {
	limit   int64
	window  time.Duration
	counter Counter
	log     *slog.Logger
}

func NewRateLimiter(limit int, window time.Duration, counter Counter, log *slog.Logger) *RateLimiter {
	if counter == nil {
		counter = NewMemoryCounter()
	}
	if log == nil {
		log = slog.Default()
	}

	return &RateLimiter{
		limit:   int64(limit),
		window:  window,
		counter: counter,
		log:     log,
	}
}

// RateLimiterMiddleware enforces the limit for a derived key. Counter errors
// let the request through.
func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)
		if key == "" {
			key = "ip:" + clientIP(c)
		}

		count, resetIn, err := rl.counter.Hit(c.Request.Context(), "ratelimit:"+key, rl.window)
		if err != nil {
			rl.log.WarnContext(c.Request.Context(), "rate_limiter_unavailable", "err", err)
			c.Next()
			return
		}

		if count > rl.limit {
			retryAfter := int(resetIn.Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			abortJSON(c, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again shortly.")
			return
		}

		c.Next()
	}
}

func KeyByIP(c *gin.Context) string {
	return "ip:" + clientIP(c)
}

// KeyByUserOrIP keys authenticated callers by email. Identify must run first.
func KeyByUserOrIP(c *gin.Context) string {
	if id, ok := actorctx.IdentityFrom(c.Request.Context()); ok {
		return "user:" + id.Email
	}

	return KeyByIP(c)
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)
	if err == nil && host != "" {
		return host
	}

	return ip
}

// MemoryCounter keeps windows in process. Expired windows are dropped on
// the next hit for the same key and by an occasional sweep.
type MemoryCounter struct {
	mu      sync.Mutex
	now     func() time.Time
	hits    int
	buckets map[string]*bucket
}

type bucket struct {
	count     int64
	windowEnd time.Time
}

const sweepEvery = 1024

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (m *MemoryCounter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.hits++
	if m.hits%sweepEvery == 0 {
		for k, b := range m.buckets {
			if now.After(b.windowEnd) {
				delete(m.buckets, k)
			}
		}
	}

	b, ok := m.buckets[key]
	if !ok || now.After(b.windowEnd) {
		b = &bucket{windowEnd: now.Add(window)}
		m.buckets[key] = b
	}

	b.count++

	return b.count, b.windowEnd.Sub(now), nil
}
