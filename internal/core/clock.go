// AngelaMos | 2026
// clock.go

package core

import (
	"time"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// ClockFunc adapts a plain function, mostly for tests that pin time.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}
