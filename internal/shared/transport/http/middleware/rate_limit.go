package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"Vikings/internal/shared/transport"
)

// UserLimiter 为每个用户维护一个令牌桶，长时间不用的桶会被清理。
type UserLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*bucket
	idleTTL time.Duration
	now     func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewUserLimiter(perSec float64, burst int) *UserLimiter {
	if perSec <= 0 {
		perSec = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &UserLimiter{
		limit:   rate.Limit(perSec),
		burst:   burst,
		buckets: make(map[string]*bucket),
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

func (u *UserLimiter) Allow(key string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	now := u.now()
	b, ok := u.buckets[key]
	if !ok {
		if len(u.buckets) > 4096 {
			u.sweep(now)
		}
		b = &bucket{lim: rate.NewLimiter(u.limit, u.burst)}
		u.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

func (u *UserLimiter) sweep(now time.Time) {
	for k, b := range u.buckets {
		if now.Sub(b.seen) > u.idleTTL {
			delete(u.buckets, k)
		}
	}
}

// RateLimit 需放在 Auth 之后，按用户名限流；未登录时按客户端 IP。
func RateLimit(u *UserLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := Username(c)
		if key == "" {
			key = c.ClientIP()
		}
		if !u.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, transport.Response{Code: transport.RateLimited, Msg: "请求过于频繁"})
			return
		}
		c.Next()
	}
}
