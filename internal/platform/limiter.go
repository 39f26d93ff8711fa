package platform

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter spaces out requests to the same API host. It is shared by every
// platform so concurrent extractions of different pages still pace one host.
type HostLimiter struct {
	interval time.Duration
	burst    int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHostLimiter allows requests per window for each host. Zero requests or
// window disables limiting.
func NewHostLimiter(requests int, window time.Duration) *HostLimiter {
	if requests <= 0 || window <= 0 {
		return nil
	}
	interval := window / time.Duration(requests)
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &HostLimiter{
		interval: interval,
		burst:    requests,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to host may proceed or ctx is done.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	if h == nil || host == "" {
		return nil
	}
	host = strings.ToLower(host)

	h.mu.Lock()
	limiter, ok := h.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(h.interval), h.burst)
		h.limiters[host] = limiter
	}
	h.mu.Unlock()

	return limiter.Wait(ctx)
}
