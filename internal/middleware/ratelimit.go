package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/socialink/pkg/errors"
	"github.com/charlesng35/socialink/pkg/response"
)

// ErrTooManyRequests is written when a client exceeds its request budget.
var ErrTooManyRequests = errors.New("RATE_LIMITED", "Too many requests", http.StatusTooManyRequests)

// RateLimit limits requests per (client IP, route) within a fixed window.
// Counters live in process memory.
func RateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	if maxRequests <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newWindowLimiter(window, time.Now)

	return func(c *gin.Context) {
		count, resetIn := limiter.hit(c.ClientIP() + "|" + c.FullPath())

		remaining := maxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(resetIn.Seconds())))

		if count > maxRequests {
			c.Header("Retry-After", strconv.Itoa(int(resetIn.Seconds())+1))
			response.Error(c, ErrTooManyRequests)
			c.Abort()
			return
		}
		c.Next()
	}
}

type windowCounter struct {
	count     int
	windowEnd time.Time
}

type windowLimiter struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	data   map[string]*windowCounter
	sweep  time.Time
}

func newWindowLimiter(window time.Duration, now func() time.Time) *windowLimiter {
	return &windowLimiter{
		window: window,
		now:    now,
		data:   make(map[string]*windowCounter),
		sweep:  now().Add(window),
	}
}

func (l *windowLimiter) hit(key string) (int, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.After(l.sweep) {
		for k, v := range l.data {
			if now.After(v.windowEnd) {
				delete(l.data, k)
			}
		}
		l.sweep = now.Add(l.window)
	}

	ct, ok := l.data[key]
	if !ok || now.After(ct.windowEnd) {
		ct = &windowCounter{windowEnd: now.Add(l.window)}
		l.data[key] = ct
	}
	ct.count++
	return ct.count, ct.windowEnd.Sub(now)
}
