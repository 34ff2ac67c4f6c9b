// Package monitor polls the session state and turns it into edge-triggered
// callbacks plus a per-tick callback while in a session.
package monitor

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/hostguard/internal/dependencies/clock"
	"github.com/mcoot/hostguard/internal/session"
)

// DefaultInterval is the polling period
const DefaultInterval = time.Second

// Callbacks are invoked from Poll. Nil callbacks are skipped.
type Callbacks struct {
	OnSessionEnter     func()
	OnSessionLeave     func()
	OnAuthorityChanged func(isAuthority bool)
	OnTick             func()
}

// Monitor is not safe for concurrent use
type Monitor struct {
	state    session.State
	clock    clock.Clock
	interval time.Duration
	cb       Callbacks
	logger   *slog.Logger

	inSession   bool
	isAuthority bool

	timer clock.Timer
	done  chan struct{}
}

// New creates a stopped Monitor
func New(state session.State, clk clock.Clock, interval time.Duration, cb Callbacks, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		state:    state,
		clock:    clk,
		interval: interval,
		cb:       cb,
		logger:   logger.With(slog.String("component", "monitor")),
	}
}

// Start begins polling every interval. Starting a running monitor does
// nothing.
func (m *Monitor) Start() {
	if m.done != nil {
		return
	}
	m.done = make(chan struct{})
	m.schedule(m.done)
}

// Stop ends polling. Stopping a stopped monitor does nothing.
func (m *Monitor) Stop() {
	if m.done == nil {
		return
	}
	close(m.done)
	m.done = nil
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Running reports whether the monitor is polling
func (m *Monitor) Running() bool {
	return m.done != nil
}

// InSession returns the session flag seen by the last poll
func (m *Monitor) InSession() bool {
	return m.inSession
}

// IsAuthority returns the authority flag seen by the last poll
func (m *Monitor) IsAuthority() bool {
	return m.isAuthority
}

func (m *Monitor) schedule(done chan struct{}) {
	m.timer = m.clock.AfterFunc(m.interval, func() {
		select {
		case <-done:
			return
		default:
		}
		m.safePoll()

		select {
		case <-done:
		default:
			m.schedule(done)
		}
	})
}

// safePoll runs Poll, logging a panic instead of letting it end polling
func (m *Monitor) safePoll() {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("poll panicked", slog.String("panic", fmt.Sprint(r)))
		}
	}()
	m.Poll()
}

// Poll samples the session once, fires callbacks for every changed flag,
// then fires OnTick if in a session
func (m *Monitor) Poll() {
	inSession := m.state.InSession()
	isAuthority := inSession && m.state.IsAuthority()

	if inSession != m.inSession {
		m.inSession = inSession
		if inSession {
			m.logger.Info("entered session")
			call(m.cb.OnSessionEnter)
		} else {
			m.logger.Info("left session")
			call(m.cb.OnSessionLeave)
		}
	}

	if isAuthority != m.isAuthority {
		m.isAuthority = isAuthority
		m.logger.Info("authority changed", slog.Bool("is_authority", isAuthority))
		if m.cb.OnAuthorityChanged != nil {
			m.cb.OnAuthorityChanged(isAuthority)
		}
	}

	if inSession {
		call(m.cb.OnTick)
	}
}

func call(f func()) {
	if f != nil {
		f()
	}
}
