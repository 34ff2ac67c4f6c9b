package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/hostguard/internal/dependencies/mocks"
	"github.com/mcoot/hostguard/internal/model"
	"github.com/mcoot/hostguard/internal/testutil"
)

func TestLoopIdleRunsInline(t *testing.T) {
	l := newLoop(testutil.NopLogger())
	ran := false

	l.post(func() { ran = true })

	assert.True(t, ran)
	assert.NoError(t, l.do(context.Background(), func() {}))
}

func TestLoopRunsTasksInOrder(t *testing.T) {
	l := newLoop(testutil.NopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.run(ctx, func() {}, func() {}) }()
	require.Eventually(t, func() bool { return l.current() == loopRunning }, time.Second, time.Millisecond)

	var order []int
	for i := range 5 {
		l.post(func() { order = append(order, i) })
	}
	require.NoError(t, l.do(context.Background(), func() {}))

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)

	cancel()
	require.NoError(t, <-done)
	assert.ErrorIs(t, l.do(context.Background(), func() {}), model.ErrEngineStopped)
}

func TestLoopYieldRunsAfterQueuedWork(t *testing.T) {
	l := newLoop(testutil.NopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.run(ctx, func() {}, func() {}) }()
	require.Eventually(t, func() bool { return l.current() == loopRunning }, time.Second, time.Millisecond)

	yielded := make(chan struct{})
	require.NoError(t, l.do(context.Background(), func() {
		l.yield(func() { close(yielded) })
	}))

	select {
	case <-yielded:
	case <-time.After(time.Second):
		t.Fatal("yielded task never ran")
	}
}

func TestSerialClockDeliversThroughLoop(t *testing.T) {
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	l := newLoop(testutil.NopLogger())
	serial := serialClock{Clock: clk, loop: l}
	fired := 0

	timer := serial.AfterFunc(time.Second, func() { fired++ })
	serial.AfterFunc(2*time.Second, func() { fired++ })
	timer.Stop()
	clk.Advance(3 * time.Second)

	assert.Equal(t, 1, fired)
}
