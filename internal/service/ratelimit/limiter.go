package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key (host, symbol).
type Limiter struct {
	mu    sync.Mutex
	rps   float64
	burst int
	m     map[string]*rate.Limiter
}

// New returns a limiter allowing rps events per second per key with the
// given burst. rps <= 0 disables limiting.
func New(rps float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{rps: rps, burst: burst, m: make(map[string]*rate.Limiter)}
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.m[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.m[key] = lim
	}
	return lim
}

// Allow reports whether one event for key may happen now.
func (l *Limiter) Allow(key string) bool {
	if l.rps <= 0 {
		return true
	}
	return l.get(key).Allow()
}

// Wait blocks until an event for key is permitted or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if l.rps <= 0 {
		return nil
	}
	return l.get(key).Wait(ctx)
}

// SetRate changes the rate of every existing and future key.
func (l *Limiter) SetRate(rps float64, burst int) {
	if burst <= 0 {
		burst = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rps, l.burst = rps, burst
	for _, lim := range l.m {
		lim.SetLimit(rate.Limit(rps))
		lim.SetBurst(burst)
	}
}
