package gateway

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter grants one token-bucket limiter per connected client,
// guarding inbound req frames. Rate set in requests per second (rps<=0
// disables it),
// built on golang.org/x/time/rate instead of a hand-rolled bucket.
type RateLimiter struct {
	rps   float64
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter builds a limiter keyed per client id. rps<=0 disables
// limiting entirely (Allow always returns true).
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 5
	}
	return &RateLimiter{rps: rps, burst: burst, limiters: make(map[string]*rate.Limiter)}
}

func (r *RateLimiter) Enabled() bool { return r.rps > 0 }

// Allow reports whether clientID may send another req frame right now.
func (r *RateLimiter) Allow(clientID string) bool {
	if !r.Enabled() {
		return true
	}
	r.mu.Lock()
	lim, ok := r.limiters[clientID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(r.rps), r.burst)
		r.limiters[clientID] = lim
	}
	r.mu.Unlock()
	return lim.Allow()
}

// Forget drops a disconnected client's limiter state.
func (r *RateLimiter) Forget(clientID string) {
	r.mu.Lock()
	delete(r.limiters, clientID)
	r.mu.Unlock()
}
