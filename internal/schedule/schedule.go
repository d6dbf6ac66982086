// Package schedule runs cancellable periodic tasks.
package schedule

import (
	"context"
	"sync"
	"time"
)

// Task is a function running on a fixed interval.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Every calls fn immediately and then once per interval until ctx is
// cancelled or Stop is called. Calls never overlap; a tick that arrives
// while fn is still running is skipped. A non-positive interval runs fn
// once.
func Every(ctx context.Context, interval time.Duration, fn func(context.Context)) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		defer cancel()

		fn(ctx)
		if interval <= 0 {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				fn(ctx)
			}
		}
	}()

	return t
}

// Stop cancels the task and waits for a running call to return. Safe to
// call more than once.
func (t *Task) Stop() {
	t.once.Do(t.cancel)
	<-t.done
}

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
