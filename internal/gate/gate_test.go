package gate

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestGate_SpacesLaunches(t *testing.T) {
	const interval = 50 * time.Millisecond
	g := New(interval)

	var mu sync.Mutex
	var grants []time.Time
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tk, err := g.Acquire(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			grants = append(grants, tk.GrantedAt())
			mu.Unlock()
			tk.Release()
		}()
	}
	wg.Wait()

	sort.Slice(grants, func(i, j int) bool { return grants[i].Before(grants[j]) })
	// Allow a little slack for timer granularity.
	floor := interval - 5*time.Millisecond
	for i := 1; i < len(grants); i++ {
		if d := grants[i].Sub(grants[i-1]); d < floor {
			t.Errorf("launches %d and %d only %v apart, want >= %v", i-1, i, d, interval)
		}
	}
	if g.Granted() != 5 {
		t.Errorf("Granted() = %d, want 5", g.Granted())
	}
}

func TestGate_MutualExclusionUntilRelease(t *testing.T) {
	g := New(0)

	first, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	acquired := make(chan *Ticket)
	go func() {
		tk, err := g.Acquire(context.Background())
		if err != nil {
			t.Error(err)
			close(acquired)
			return
		}
		acquired <- tk
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire succeeded while gate was held")
	case <-time.After(30 * time.Millisecond):
	}

	first.Release()

	select {
	case tk := <-acquired:
		if tk != nil {
			tk.Release()
		}
	case <-time.After(time.Second):
		t.Fatal("second Acquire did not proceed after Release")
	}
}

func TestTicket_ReleaseIdempotent(t *testing.T) {
	g := New(0)
	tk, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tk.Release()
		}()
	}
	wg.Wait()

	select {
	case <-tk.Released():
	default:
		t.Fatal("Released() not closed after Release")
	}

	// The gate must be free exactly once: a new Acquire succeeds and a
	// third one blocks.
	second, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Acquire(ctx); err == nil {
		t.Fatal("Acquire succeeded while gate held by second ticket")
	}
	second.Release()
}

func TestGate_AcquireCancelled(t *testing.T) {
	g := New(time.Hour)
	tk, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	tk.Release()

	// The next launch would wait an hour; cancellation must free the lock.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Acquire(ctx); err == nil {
		t.Fatal("expected error from cancelled Acquire")
	}

	select {
	case g.lock <- struct{}{}:
		<-g.lock
	default:
		t.Fatal("gate still locked after cancelled Acquire")
	}
}

func TestGate_LastLaunch(t *testing.T) {
	g := New(0)
	if !g.LastLaunch().IsZero() {
		t.Fatal("LastLaunch should be zero before any grant")
	}
	before := time.Now()
	tk, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer tk.Release()
	if g.LastLaunch().Before(before) {
		t.Errorf("LastLaunch %v before %v", g.LastLaunch(), before)
	}
}
