package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Pool runs fire-and-forget tasks with bounded concurrency. Callers get a
// Handle to observe completion; the pool itself never reports task errors.
type Pool struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	log    *logrus.Logger
}

// Handle observes one submitted task.
type Handle struct {
	done chan struct{}
}

// Done is closed when the task finishes or the pool shuts down before it
// runs.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task completes.
func (h *Handle) Wait() {
	<-h.done
}

// NewPool builds a pool running at most workers tasks concurrently.
func NewPool(workers int, log *logrus.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	return &Pool{ctx: ctx, cancel: cancel, group: group, log: log}
}

// Submit schedules fn. The function receives the pool context and must
// honor its cancellation; panics are contained so one bad task cannot take
// down the process.
func (p *Pool) Submit(fn func(ctx context.Context)) *Handle {
	h := &Handle{done: make(chan struct{})}
	p.group.Go(func() error {
		defer close(h.done)
		defer func() {
			if r := recover(); r != nil {
				p.log.WithField("panic", r).Error("background task panicked")
			}
		}()
		if p.ctx.Err() != nil {
			return nil
		}
		fn(p.ctx)
		return nil
	})
	return h
}

// Shutdown cancels the pool context and waits for in-flight tasks.
func (p *Pool) Shutdown() {
	p.cancel()
	p.group.Wait()
}
