package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/campus-ems/utils"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	idle      time.Duration
	lastSweep time.Time
	visitors  map[string]*visitor
	mu        sync.Mutex
}

func NewRateLimiter(limit rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		burst:    burst,
		idle:      10 * time.Minute,
		lastSweep: time.Now(),
		visitors:  make(map[string]*visitor),
	}
}

// NewStrictRateLimiter is meant for login and registration: 5 attempts per
// minute per IP.
func NewStrictRateLimiter() gin.HandlerFunc {
	return NewRateLimiter(rate.Every(12*time.Second), 5).RateLimit()
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP(), time.Now()) {
			utils.RespondJSON(c, http.StatusTooManyRequests, "Too many requests, please wait a moment", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now

	if now.Sub(rl.lastSweep) >= rl.idle {
		rl.sweep(now)
	}
	return v.limiter.AllowN(now, 1)
}

// sweep drops visitors idle longer than rl.idle. It runs at most once per
// idle period from allow. Callers hold rl.mu.
func (rl *RateLimiter) sweep(now time.Time) int {
	removed := 0
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idle {
			delete(rl.visitors, key)
			removed++
		}
	}
	rl.lastSweep = now
	return removed
}
