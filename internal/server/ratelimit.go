// ratelimit.go - Sliding-window rate limiter by client IP.
//
// Applied to the credential endpoints to slow down brute forcing;
// designed to complement proxy-side limits.
package server

import (
	"net/http"
	"sync"
	"time"
)

// rateLimiter tracks request timestamps per IP address in an in-memory
// map with periodic cleanup.
type rateLimiter struct {
	mu       sync.RWMutex
	visitors map[string]*visitor
	rate     int           // requests allowed per window
	window   time.Duration // time window for rate limiting
}

// visitor tracks request timestamps for a single IP address
type visitor struct {
	mu       sync.Mutex
	requests []time.Time
}

// newRateLimiter creates a limiter that allows 'rate' requests per
// 'window' per IP.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	go rl.cleanup()
	return rl
}

// middleware returns an HTTP middleware that enforces the limit.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(getClientIP(r)) {
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allow checks if a request from the given IP should be allowed.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{}
		rl.visitors[ip] = v
	}
	rl.mu.Unlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	kept := v.requests[:0]
	for _, ts := range v.requests {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	v.requests = kept

	if len(v.requests) >= rl.rate {
		return false
	}
	v.requests = append(v.requests, now)
	return true
}

// cleanup drops idle visitors so the map does not grow without bound.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-rl.window)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			v.mu.Lock()
			idle := len(v.requests) == 0 || !v.requests[len(v.requests)-1].After(cutoff)
			v.mu.Unlock()
			if idle {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}
