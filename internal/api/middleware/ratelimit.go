package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"noticeboard/internal/api/response"
)

const maxKeyedBodyBytes = 64 << 10

// KeyFunc picks the bucket a request counts against. An empty key falls back
// to the client IP.
type KeyFunc func(c *gin.Context) string

// Limiter is a sliding-window counter per key. Counters belong to the
// Limiter, so separate routers never share quota.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
}

func NewLimiter(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

// Allow records a hit for key and reports whether it fits in the window.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.hits[key][:0]
	for _, at := range l.hits[key] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}
	if len(recent) >= l.limit {
		l.hits[key] = recent
		return false
	}
	l.hits[key] = append(recent, now)
	l.sweep(cutoff)
	return true
}

// sweep drops idle keys once the map grows; callers hold mu.
func (l *Limiter) sweep(cutoff time.Time) {
	if len(l.hits) < 4096 {
		return
	}
	for key, hits := range l.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(l.hits, key)
		}
	}
}

func (l *Limiter) Middleware(keyFn KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := ""
		if keyFn != nil {
			key = keyFn(c)
		}
		if key == "" {
			key = "ip:" + c.ClientIP()
		}

		if !l.Allow(key) {
			response.Fail(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}

func ClientIPKey(prefix string) KeyFunc {
	return func(c *gin.Context) string {
		return prefix + ":ip:" + c.ClientIP()
	}
}

// JSONFieldKey keys on a string field of the JSON body, lower-cased. The body
// is restored for the handler.
func JSONFieldKey(prefix, field string) KeyFunc {
	return func(c *gin.Context) string {
		value := peekJSONField(c, field)
		if value == "" {
			return ""
		}
		return prefix + ":" + field + ":" + strings.ToLower(value)
	}
}

func peekJSONField(c *gin.Context, field string) string {
	if c.Request == nil || c.Request.Body == nil {
		return ""
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxKeyedBodyBytes))
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	var value string
	if err := json.Unmarshal(payload[field], &value); err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}
