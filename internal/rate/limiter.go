// Package rate paces calls to downstream services. It does not limit
// clients of the board; it keeps bursts of uploads from overwhelming the
// image classifier.
package rate

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

type Limiter interface {
	// Wait blocks until a call for key may proceed or ctx is done.
	Wait(ctx context.Context, key string) error
}

// MemoryLimiter keeps one token bucket per key.
type MemoryLimiter struct {
	mu    sync.Mutex
	store map[string]*rate.Limiter
	rps   float64
	burst int
}

// NewMemory returns a limiter allowing rps calls per second per key with the
// given burst. A non-positive rps disables pacing.
func NewMemory(rps float64, burst int) *MemoryLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &MemoryLimiter{store: make(map[string]*rate.Limiter), rps: rps, burst: burst}
}

func (m *MemoryLimiter) get(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.store[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(m.rps), m.burst)
		m.store[key] = l
	}
	return l
}

func (m *MemoryLimiter) Wait(ctx context.Context, key string) error {
	if m.rps <= 0 {
		return ctx.Err()
	}
	return m.get(key).Wait(ctx)
}

// Unlimited never blocks.
type Unlimited struct{}

func (Unlimited) Wait(ctx context.Context, _ string) error {
	return ctx.Err()
}
