package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter throttles chat traffic with a global ceiling plus a
// per-session limiter, so one chatty session cannot starve the rest.
type RateLimiter struct {
	globalLimiter   *rate.Limiter
	sessionLimiters map[string]*rate.Limiter
	mu              sync.RWMutex

	requestsPerSecond float64
	burst             int
}

// NewRateLimiter creates a rate limiter. The global ceiling is scaled to
// ten times the per-session rate.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		globalLimiter:     rate.NewLimiter(rate.Limit(requestsPerSecond*10), burst*10),
		sessionLimiters:   make(map[string]*rate.Limiter),
		requestsPerSecond: requestsPerSecond,
		burst:             burst,
	}
}

// Allow checks if a request for the session should be allowed.
func (rl *RateLimiter) Allow(sessionID string) bool {
	if !rl.globalLimiter.Allow() {
		return false
	}
	return rl.getSessionLimiter(sessionID).Allow()
}

func (rl *RateLimiter) getSessionLimiter(sessionID string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.sessionLimiters[sessionID]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := rl.sessionLimiters[sessionID]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(rl.requestsPerSecond), rl.burst)
	rl.sessionLimiters[sessionID] = limiter
	return limiter
}
