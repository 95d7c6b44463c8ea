package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// maxTrackedIPs bounds the limiter map before idle entries are evicted.
const maxTrackedIPs = 4096

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter stores a rate limiter for each IP address.
type IPRateLimiter struct {
	ips     map[string]*visitor
	mu      *sync.Mutex
	r       rate.Limit
	b       int
	maxIdle time.Duration
	now     func() time.Time
}

// NewIPRateLimiter creates a new IPRateLimiter.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips:     make(map[string]*visitor),
		mu:      &sync.Mutex{},
		r:       r,
		b:       b,
		maxIdle: 10 * time.Minute,
		now:     time.Now,
	}
}

// GetLimiter returns the rate limiter for an IP address, creating it on first use.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	if v, exists := i.ips[ip]; exists {
		v.lastSeen = now
		return v.limiter
	}

	if len(i.ips) >= maxTrackedIPs {
		i.evictIdleLocked(now)
	}
	v := &visitor{limiter: rate.NewLimiter(i.r, i.b), lastSeen: now}
	i.ips[ip] = v
	return v.limiter
}

// Len returns the number of tracked IPs.
func (i *IPRateLimiter) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.ips)
}

func (i *IPRateLimiter) evictIdleLocked(now time.Time) {
	for ip, v := range i.ips {
		if now.Sub(v.lastSeen) > i.maxIdle {
			delete(i.ips, ip)
		}
	}
}

// RateLimiter is a middleware for IP-based rate limiting. When ipHeader is
// set (e.g. "X-Real-IP" behind a proxy) it takes precedence over the peer address.
func RateLimiter(r rate.Limit, b int, ipHeader string) gin.HandlerFunc {
	limiter := NewIPRateLimiter(r, b)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ipHeader != "" {
			if h := c.GetHeader(ipHeader); h != "" {
				ip = h
			}
		}
		if !limiter.GetLimiter(ip).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
