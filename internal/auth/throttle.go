package auth

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle implements a token bucket per client key
type Throttle struct {
	requestsPerWindow int           // Maximum requests allowed per window
	windowDuration    time.Duration // Duration of the rate limit window
	burst             int           // Maximum burst size

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewThrottle creates a throttle allowing requestsPerWindow per windowDuration
// for every key, with bursts of up to burst requests
func NewThrottle(requestsPerWindow int, windowDuration time.Duration, burst int) *Throttle {
	if burst <= 0 {
		burst = requestsPerWindow
	}

	return &Throttle{
		requestsPerWindow: requestsPerWindow,
		windowDuration:    windowDuration,
		burst:             burst,
		visitors:          make(map[string]*visitor),
		lastSweep:         time.Now(),
		now:               time.Now,
	}
}

// Allow takes a token for key. When none is available it returns false and
// how long the client should wait before retrying.
func (t *Throttle) Allow(key string) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.sweep(now)

	v, ok := t.visitors[key]
	if !ok {
		every := t.windowDuration / time.Duration(t.requestsPerWindow)
		v = &visitor{limiter: rate.NewLimiter(rate.Every(every), t.burst)}
		t.visitors[key] = v
	}
	v.lastSeen = now

	reservation := v.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, t.windowDuration
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// sweep forgets clients idle for more than one window
func (t *Throttle) sweep(now time.Time) {
	if now.Sub(t.lastSweep) < t.windowDuration {
		return
	}
	for key, v := range t.visitors {
		if now.Sub(v.lastSeen) > t.windowDuration {
			delete(t.visitors, key)
		}
	}
	t.lastSweep = now
}

// String returns a human-readable representation of the throttle
func (t *Throttle) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Throttle(%d req/%s, burst %d, %d clients)",
		t.requestsPerWindow, t.windowDuration, t.burst, len(t.visitors))
}
