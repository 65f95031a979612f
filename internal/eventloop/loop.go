// Package eventloop runs client-side handlers one at a time on a single
// goroutine. Pointer input, transport frames and timers are all posted here,
// so the state they touch needs no locks.
package eventloop

import (
	"context"
	"sync"
)

// Loop is a FIFO of tasks drained by Run.
type Loop struct {
	tasks    chan func()
	done     chan struct{}
	stopOnce sync.Once
}

// New returns a loop whose queue holds up to buffer pending tasks before Post
// blocks.
func New(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	return &Loop{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Run executes tasks until ctx is cancelled or Stop is called. Only one
// goroutine may call Run.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return
		case <-l.done:
			return
		case task := <-l.tasks:
			task()
		}
	}
}

// Post queues task. It returns false if the loop has stopped. Never call
// Post from inside a task with a full queue.
func (l *Loop) Post(task func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.tasks <- task:
		return true
	case <-l.done:
		return false
	}
}

// Call runs task on the loop and waits for it. It returns false without
// running task if the loop has stopped.
func (l *Loop) Call(task func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		task()
	}) {
		return false
	}

	select {
	case <-finished:
		return true
	case <-l.done:
		// Run may have exited with our task still queued.
		select {
		case <-finished:
			return true
		default:
			return false
		}
	}
}

// Stop ends Run. Queued tasks are discarded.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Done is closed once the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
