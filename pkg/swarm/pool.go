// Package swarm runs discovery tasks through a bounded worker pool whose
// concurrency adapts to AWS throttling responses.
package swarm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aws/smithy-go"
)

// Task is one unit of discovery work.
type Task func(ctx context.Context) error

// Pool manages the workers. Submit queues work, Wait blocks until every
// submitted task has finished, Stop tears the workers down.
type Pool struct {
	aimd    *AIMD
	tasks   chan Task
	quit    chan struct{}
	workers sync.WaitGroup
	pending sync.WaitGroup

	mu        sync.Mutex
	active    int
	completed int64
}

// Stats is a point-in-time snapshot of pool state.
type Stats struct {
	ActiveWorkers  int
	Concurrency    int
	TasksCompleted int64
}

// NewPool creates a pool capped at max workers. The AIMD governor starts
// conservatively and grows while the API keeps up.
func NewPool(max int) *Pool {
	if max <= 0 {
		max = 16
	}
	start := 4
	if start > max {
		start = max
	}
	return &Pool{
		aimd:  NewAIMD(start, 1, max),
		tasks: make(chan Task, 256),
		quit:  make(chan struct{}),
	}
}

// Start begins the supervision loop.
func (p *Pool) Start(ctx context.Context) {
	go p.supervise(ctx)
}

// Submit queues a task. Safe from multiple goroutines.
func (p *Pool) Submit(t Task) {
	p.pending.Add(1)
	p.tasks <- t
}

// Wait blocks until all submitted tasks completed.
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Stop shuts the pool down after in-flight tasks finish.
func (p *Pool) Stop() {
	close(p.quit)
	p.workers.Wait()
}

// GetStats returns current counters.
func (p *Pool) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		ActiveWorkers:  p.active,
		Concurrency:    p.aimd.Concurrency(),
		TasksCompleted: p.completed,
	}
}

func (p *Pool) supervise(ctx context.Context) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case <-ticker.C:
			target := p.aimd.Concurrency()
			for p.activeCount() < target {
				p.workers.Add(1)
				go p.worker(ctx)
			}
			// Excess workers exit on their own once they notice the
			// lowered budget.
		}
	}
}

func (p *Pool) activeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *Pool) worker(ctx context.Context) {
	p.mu.Lock()
	p.active++
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
		p.workers.Done()
	}()

	for {
		if p.activeCount() > p.aimd.Concurrency() {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case task := <-p.tasks:
			start := time.Now()
			err := task(ctx)
			p.aimd.Feedback(time.Since(start), IsThrottle(err))

			p.mu.Lock()
			p.completed++
			p.mu.Unlock()
			p.pending.Done()
		}
	}
}

// IsThrottle reports whether the error is an AWS rate-limit response.
func IsThrottle(err error) bool {
	if err == nil {
		return false
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "Throttling", "ThrottlingException", "RequestLimitExceeded", "TooManyRequestsException":
			return true
		}
	}
	return false
}
