// Package clock abstracts timers so that time-driven components can be
// driven deterministically in tests.
package clock

import "time"

// Timer is a one-shot callback timer.
type Timer interface {
	// Stop prevents the timer from firing. It reports whether the call
	// stopped the timer (false if it already fired or was stopped).
	Stop() bool
}

// Ticker delivers ticks on a channel at a fixed interval.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock is the source of time for the presence engine.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
	NewTicker(d time.Duration) Ticker
}

// Real is a Clock backed by the time package.
type Real struct{}

// New returns the wall clock.
func New() Clock { return Real{} }

// Now returns the current time.
func (Real) Now() time.Time { return time.Now() }

// AfterFunc calls f in its own goroutine after d elapses.
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// NewTicker returns a ticker firing every d.
func (Real) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }
