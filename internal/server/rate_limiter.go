// Package server throttles new connections per client host with token
// buckets.
package server

import (
	"sync"
	"time"
)

// Idle buckets are pruned once the table grows past this many clients.
const maxTrackedClients = 1024

// bucket is one client's token balance as of updated.
type bucket struct {
	tokens  float64
	updated time.Time
}

// clientLimiter keeps one token bucket per client host. Each bucket holds up
// to burst tokens and refills completely every interval.
type clientLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity float64
	rate     float64 // tokens per second
	interval time.Duration
	now      func() time.Time
}

func newClientLimiter(cfg RateLimitConfig) *clientLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	interval := cfg.RefillInterval
	if interval <= 0 {
		interval = time.Second
	}

	return &clientLimiter{
		buckets:  make(map[string]*bucket),
		capacity: float64(burst),
		rate:     float64(burst) / interval.Seconds(),
		interval: interval,
		now:      time.Now,
	}
}

// allow takes a token from the bucket for host, reporting false when it is
// empty.
func (cl *clientLimiter) allow(host string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := cl.now()
	b, ok := cl.buckets[host]
	if !ok {
		if len(cl.buckets) >= maxTrackedClients {
			cl.pruneLocked(now)
		}
		b = &bucket{tokens: cl.capacity, updated: now}
		cl.buckets[host] = b
	}

	if elapsed := now.Sub(b.updated).Seconds(); elapsed > 0 {
		b.tokens = min(cl.capacity, b.tokens+elapsed*cl.rate)
	}
	b.updated = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// pruneLocked drops buckets idle for a full interval. They would be full
// again, so forgetting them changes no decision.
func (cl *clientLimiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-cl.interval)
	for host, b := range cl.buckets {
		if !b.updated.After(cutoff) {
			delete(cl.buckets, host)
		}
	}
}

func (cl *clientLimiter) size() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.buckets)
}
