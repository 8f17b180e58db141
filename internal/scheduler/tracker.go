package scheduler

import (
	"strconv"
	"sync"

	"github.com/me/gosweep/pkg/model"
)

// tracker holds the lifecycle state of every run in a batch.
type tracker struct {
	mu     sync.Mutex
	states map[int]model.RunState
}

func newTracker(specs []*model.RunSpec) *tracker {
	t := &tracker{states: make(map[int]model.RunState, len(specs))}
	for _, s := range specs {
		t.states[s.Index] = model.RunStateQueued
	}
	return t
}

// transition moves run index to next, rejecting moves the lifecycle does
// not allow.
func (t *tracker) transition(index int, next model.RunState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur := t.states[index]
	if !cur.CanTransitionTo(next) {
		return &model.InvalidTransitionError{
			Entity: "run",
			ID:     strconv.Itoa(index),
			From:   string(cur),
			To:     string(next),
		}
	}
	t.states[index] = next
	return nil
}

func (t *tracker) state(index int) model.RunState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[index]
}

// counts returns the number of runs in each state.
func (t *tracker) counts() map[model.RunState]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[model.RunState]int, len(model.AllRunStates))
	for _, st := range model.AllRunStates {
		out[st] = 0
	}
	for _, st := range t.states {
		out[st]++
	}
	return out
}
