package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/hostguard/internal/dependencies/clock"
	"github.com/mcoot/hostguard/internal/model"
)

type loopState int

const (
	loopIdle    loopState = iota // Tasks run inline on the caller
	loopRunning                  // Tasks are queued for the loop goroutine
	loopStopped                  // Tasks are dropped
)

// loop runs every task on a single goroutine, in the order posted
type loop struct {
	mu      sync.Mutex
	state   loopState
	tasks   chan func()
	stopped chan struct{}
	logger  *slog.Logger
}

func newLoop(logger *slog.Logger) *loop {
	return &loop{
		tasks:   make(chan func(), 256),
		stopped: make(chan struct{}),
		logger:  logger,
	}
}

func (l *loop) current() loopState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// post queues fn without waiting for it to run
func (l *loop) post(fn func()) {
	switch l.current() {
	case loopIdle:
		l.exec(fn)
	case loopRunning:
		select {
		case l.tasks <- fn:
		case <-l.stopped:
		}
	}
}

// yield queues fn behind the work already posted. Unlike post it never
// blocks, so the loop goroutine can use it to continue its own work later.
func (l *loop) yield(fn func()) {
	if l.current() == loopIdle {
		l.exec(fn)
		return
	}
	go l.post(fn)
}

// do runs fn on the loop and waits for it to finish
func (l *loop) do(ctx context.Context, fn func()) error {
	switch l.current() {
	case loopIdle:
		l.exec(fn)
		return nil
	case loopStopped:
		return model.ErrEngineStopped
	}

	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}

	select {
	case l.tasks <- task:
	case <-l.stopped:
		return model.ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-l.stopped:
		return model.ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run executes tasks until ctx is done. start runs first on the loop
// goroutine, stop runs last.
func (l *loop) run(ctx context.Context, start, stop func()) error {
	l.mu.Lock()
	if l.state != loopIdle {
		l.mu.Unlock()
		return fmt.Errorf("engine already started")
	}
	l.state = loopRunning
	l.mu.Unlock()

	l.exec(start)
	for {
		select {
		case fn := <-l.tasks:
			l.exec(fn)
		case <-ctx.Done():
			l.exec(stop)
			l.mu.Lock()
			l.state = loopStopped
			l.mu.Unlock()
			close(l.stopped)
			return nil
		}
	}
}

// exec runs fn, recovering panics so one failing task can't stop the loop
func (l *loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked", slog.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}

// serialClock delivers every AfterFunc callback through the loop
type serialClock struct {
	clock.Clock
	loop *loop
}

func (c serialClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	return c.Clock.AfterFunc(d, func() { c.loop.post(f) })
}
