// Package clock abstracts wall time so expiry and queue windows can be
// driven by tests.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

// System reads time.Now
type System struct{}

func New() System {
	return System{}
}

func (System) Now() time.Time {
	return time.Now()
}

// Since is time.Since measured on clk
func Since(clk Clock, t time.Time) time.Duration {
	return clk.Now().Sub(t)
}
