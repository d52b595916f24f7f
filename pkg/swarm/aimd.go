package swarm

import (
	"sync"
	"time"
)

// AIMD is an additive-increase/multiplicative-decrease concurrency governor.
// Healthy latency grows the worker budget slowly; a throttled AWS call
// halves it immediately.
type AIMD struct {
	mu          sync.Mutex
	concurrency int
	min         int
	max         int
	lastChange  time.Time
}

func NewAIMD(start, min, max int) *AIMD {
	return &AIMD{
		concurrency: start,
		min:         min,
		max:         max,
		lastChange:  time.Now(),
	}
}

func (a *AIMD) Concurrency() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.concurrency
}

// Feedback reports the outcome of one task. Changes are dampened so a burst
// of results cannot oscillate the budget.
func (a *AIMD) Feedback(latency time.Duration, throttled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	if now.Sub(a.lastChange) < 100*time.Millisecond {
		return
	}

	if throttled {
		a.concurrency /= 2
		if a.concurrency < a.min {
			a.concurrency = a.min
		}
		a.lastChange = now
		return
	}

	if latency < 100*time.Millisecond {
		a.concurrency += 2
		if a.concurrency > a.max {
			a.concurrency = a.max
		}
		a.lastChange = now
	}
}
