// Package clock abstracts wall-clock reads and delayed callbacks so the
// countdown engine can be driven by real time in production and by a
// manually advanced fake in tests.
package clock

import "time"

// Clock is the scheduling port used by timers.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time

	// AfterFunc calls f once after d has elapsed and returns a handle that
	// cancels the call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellation handle for a scheduled callback.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or was stopped before.
	Stop() bool
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
