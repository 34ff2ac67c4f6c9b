// Package clock abstracts wall time and delayed callbacks so enforcement
// timing can be driven by hand in tests
package clock

import "time"

// Clock is the engine's view of time
type Clock interface {
	Now() time.Time

	// AfterFunc calls f in its own goroutine once d has elapsed
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call
type Timer interface {
	// Stop cancels the call and reports whether it had not yet fired
	Stop() bool
}

// System reads the host clock
type System struct{}

var _ Clock = System{}

// New returns the host clock
func New() Clock {
	return System{}
}

func (System) Now() time.Time { return time.Now() }

func (System) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Elapsed reports how long ago t was according to c
func Elapsed(c Clock, t time.Time) time.Duration {
	return c.Now().Sub(t)
}
