// Package tasks runs long operations off the tick loop and hands their
// results back to be applied on a later tick.
package tasks

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/navscene/internal/logger"
)

// Runner executes work on goroutines and queues completion handlers.
// Handlers only run inside Drain, on the caller's goroutine.
type Runner struct {
	mu       sync.Mutex
	queue    []func()
	inFlight int
	wg       sync.WaitGroup
}

// NewRunner creates a runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Submit runs work in the background. done receives its result during a later
// Drain. A panicking task is reported to done as an error.
func Submit[T any](r *Runner, name string, work func() (T, error), done func(T, error)) {
	r.mu.Lock()
	r.inFlight++
	r.mu.Unlock()
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		var (
			result T
			err    error
		)
		func() {
			defer func() {
				if p := recover(); p != nil {
					logger.Error("task panicked", zap.String("task", name), zap.Any("panic", p))
					err = fmt.Errorf("task %s panicked: %v", name, p)
				}
			}()
			result, err = work()
		}()

		r.mu.Lock()
		r.inFlight--
		r.queue = append(r.queue, func() { done(result, err) })
		r.mu.Unlock()
	}()
}

// Drain runs every queued completion handler in submission-completion order
// and returns how many ran.
func (r *Runner) Drain() int {
	r.mu.Lock()
	queue := r.queue
	r.queue = nil
	r.mu.Unlock()

	for _, fn := range queue {
		fn()
	}
	return len(queue)
}

// Pending returns the number of tasks still running or awaiting Drain.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight + len(r.queue)
}

// Wait blocks until all running tasks have queued their completions.
func (r *Runner) Wait() {
	r.wg.Wait()
}
