// Package ratelimit throttles the public write endpoints per client.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/metrics"
)

// Limiter decides whether the client identified by key may proceed. When it
// may not, retry is how long the client should wait.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retry time.Duration, err error)
	// Kind labels the limiter in metrics.
	Kind() string
}

// maxMemoryKeys bounds the in-memory limiter; past it, idle keys are dropped.
const maxMemoryKeys = 10000

// Memory is a per-key token bucket that allows n requests per window with
// a burst of n.
type Memory struct {
	limit rate.Limit
	burst int

	mu   sync.Mutex
	keys map[string]*rate.Limiter
}

func NewMemory(n int, window time.Duration) *Memory {
	return &Memory{
		limit: rate.Every(window / time.Duration(n)),
		burst: n,
		keys:  make(map[string]*rate.Limiter),
	}
}

func (m *Memory) Kind() string { return "memory" }

func (m *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	lim := m.limiter(key)
	r := lim.Reserve()
	if d := r.Delay(); d > 0 {
		r.Cancel()
		return false, d, nil
	}
	return true, 0, nil
}

func (m *Memory) limiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lim, ok := m.keys[key]; ok {
		return lim
	}
	if len(m.keys) >= maxMemoryKeys {
		m.pruneLocked()
	}
	lim := rate.NewLimiter(m.limit, m.burst)
	m.keys[key] = lim
	return lim
}

// pruneLocked drops keys whose bucket has refilled, which is the same as
// never having seen them.
func (m *Memory) pruneLocked() {
	for k, lim := range m.keys {
		if lim.Tokens() >= float64(m.burst) {
			delete(m.keys, k)
		}
	}
}

// Len reports the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

// Redis is a fixed-window counter shared by every server instance.
type Redis struct {
	client *redis.Client
	n      int64
	window time.Duration
	now    func() time.Time
}

func NewRedis(client *redis.Client, n int, window time.Duration) *Redis {
	if window < time.Second {
		window = time.Second
	}
	return &Redis{client: client, n: int64(n), window: window, now: time.Now}
}

func (r *Redis) Kind() string { return "redis" }

func (r *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	secs := int64(r.window / time.Second)
	now := r.now().Unix()
	bucket := now / secs
	redisKey := fmt.Sprintf("rl:%s:%d", key, bucket)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, r.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit check failed: %w", err)
	}
	if incr.Val() > r.n {
		retry := time.Duration((bucket+1)*secs-now) * time.Second
		return false, retry, nil
	}
	return true, 0, nil
}

// New returns a Redis limiter when client is set, otherwise an in-memory one.
func New(client *redis.Client, n int, window time.Duration) Limiter {
	if client == nil {
		return NewMemory(n, window)
	}
	return NewRedis(client, n, window)
}

// MsgTooMany is shown to clients over the limit.
const MsgTooMany = "Too many submissions. Please wait a moment and try again."

// RejectFunc writes the response for a request over the limit. retry is
// already rounded up to whole seconds.
type RejectFunc func(c *gin.Context, retry time.Duration)

// RejectJSON aborts with 429 and a JSON error body.
func RejectJSON(c *gin.Context, _ time.Duration) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": MsgTooMany})
}

// Middleware rejects requests over the limit with a 429 JSON response.
func Middleware(l Limiter, log *zap.SugaredLogger) gin.HandlerFunc {
	return MiddlewareWith(l, log, RejectJSON)
}

// MiddlewareWith is Middleware with a custom rejection response. Clients
// are keyed by IP and route so the contact and feedback forms have separate
// budgets. A limiter failure lets the request through. Retry-After is set
// before reject runs.
func MiddlewareWith(l Limiter, log *zap.SugaredLogger, reject RejectFunc) gin.HandlerFunc {
	log = log.Named("ratelimit")
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		key := "ip:" + ip + ":" + c.FullPath()

		ok, retry, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warnw("Rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}
		if !ok {
			secs := int(retry.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			metrics.RateLimitRejected.WithLabelValues(l.Kind()).Inc()
			reject(c, time.Duration(secs)*time.Second)
			c.Abort()
			return
		}
		metrics.RateLimitAllowed.WithLabelValues(l.Kind()).Inc()
		c.Next()
	}
}
