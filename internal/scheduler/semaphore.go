package scheduler

import "context"

// Semaphore is a counting semaphore bounding the number of live simulator
// processes.
type Semaphore struct {
	ch chan struct{}
}

// NewSemaphore creates a semaphore with the given capacity. Capacities
// below one are raised to one.
func NewSemaphore(n int) *Semaphore {
	if n < 1 {
		n = 1
	}
	return &Semaphore{ch: make(chan struct{}, n)}
}

// Acquire blocks until a slot is available or ctx is cancelled.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases a slot.
func (s *Semaphore) Release() {
	<-s.ch
}

// Capacity returns the semaphore capacity.
func (s *Semaphore) Capacity() int {
	return cap(s.ch)
}

// InUse returns the number of held slots.
func (s *Semaphore) InUse() int {
	return len(s.ch)
}
