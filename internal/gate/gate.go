// Package gate serializes process launches and keeps a minimum spacing
// between them.
//
// The simulator names its output directory after the launch second, so two
// launches inside the same interval would write into the same place. A Gate
// is held by at most one run at a time; the holder waits out the remainder
// of the interval since the previous launch, launches, and then keeps the
// gate until its process has announced where it writes (or has exited).
package gate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Gate is a mutual-exclusion lock combined with a launch-rate limiter.
type Gate struct {
	lock     chan struct{}
	limiter  *rate.Limiter
	interval time.Duration

	mu         sync.Mutex
	lastLaunch time.Time
	granted    int
}

// New creates a Gate enforcing at least interval between granted launches.
// An interval <= 0 disables spacing but keeps mutual exclusion.
func New(interval time.Duration) *Gate {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Gate{
		lock:     make(chan struct{}, 1),
		limiter:  rate.NewLimiter(limit, 1),
		interval: interval,
	}
}

// Interval returns the configured minimum spacing.
func (g *Gate) Interval() time.Duration {
	return g.interval
}

// Acquire blocks until the gate is free and the minimum interval since the
// last granted launch has elapsed. The caller must launch immediately and
// eventually call Release on the returned Ticket.
func (g *Gate) Acquire(ctx context.Context) (*Ticket, error) {
	select {
	case g.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := g.limiter.Wait(ctx); err != nil {
		<-g.lock
		return nil, err
	}

	// Limiter tokens are timed from the reservation, not from the recorded
	// launch; close the remaining gap against lastLaunch.
	g.mu.Lock()
	last := g.lastLaunch
	g.mu.Unlock()
	if !last.IsZero() && g.interval > 0 {
		if wait := g.interval - time.Since(last); wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				<-g.lock
				return nil, ctx.Err()
			}
		}
	}

	now := time.Now()
	g.mu.Lock()
	g.lastLaunch = now
	g.granted++
	g.mu.Unlock()

	return &Ticket{gate: g, grantedAt: now, done: make(chan struct{})}, nil
}

// LastLaunch returns the time of the most recent grant.
func (g *Gate) LastLaunch() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastLaunch
}

// Granted returns the number of launches granted so far.
func (g *Gate) Granted() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.granted
}

// Ticket is a granted launch slot. Release is one-shot: the first call
// frees the gate, later calls are no-ops, so the output-discovery path and
// the process-exit path may both call it.
type Ticket struct {
	gate      *Gate
	grantedAt time.Time
	once      sync.Once
	done      chan struct{}
}

// GrantedAt returns when the launch was granted.
func (t *Ticket) GrantedAt() time.Time {
	return t.grantedAt
}

// Release frees the gate for the next launcher.
func (t *Ticket) Release() {
	t.once.Do(func() {
		close(t.done)
		<-t.gate.lock
	})
}

// Released is closed once Release has been called.
func (t *Ticket) Released() <-chan struct{} {
	return t.done
}
