package pcktsim

// vtime.go defines the virtual time carried by events, agents and generators.
// Time is an integer count of microseconds.  Values are immutable; the epoch
// values below are constants and so cannot be altered by any caller.

import (
	"fmt"
	"math"
)

// Time is a point in (or span of) simulation time, in microseconds
type Time int64

// TimeUnit is the number of microseconds in one unit of some time scale
type TimeUnit int64

const (
	Microsecond TimeUnit = 1
	Millisecond TimeUnit = 1000
	Second      TimeUnit = 1000 * Millisecond
	Minute      TimeUnit = 60 * Second
	Hour        TimeUnit = 60 * Minute
)

// epoch values
const (
	Zero      Time = 0
	OneSecond Time = Time(Second)
	OneHour   Time = Time(Hour)
	Infinite  Time = math.MaxInt64

	// Dynamic marks a time the caller has to compute, it is not fixed
	Dynamic Time = -1
)

// TimeOf converts a value expressed in the given unit to a Time.
// Fractions of a microsecond are truncated; a negative value yields Dynamic.
func TimeOf(value float64, unit TimeUnit) Time {
	if value < 0 {
		return Dynamic
	}
	us := value * float64(unit)
	if us >= float64(Infinite) {
		return Infinite
	}
	return Time(us)
}

// Micros returns the number of microseconds represented
func (t Time) Micros() int64 {
	return int64(t)
}

// Millis returns t expressed in milliseconds
func (t Time) Millis() float64 {
	return float64(t) / float64(Millisecond)
}

// Seconds returns t expressed in seconds
func (t Time) Seconds() float64 {
	return float64(t) / float64(Second)
}

// IsDynamic is true iff the value has not been resolved yet
func (t Time) IsDynamic() bool {
	return t < 0
}

// IsInfinite is true for the Infinite epoch value
func (t Time) IsInfinite() bool {
	return t == Infinite
}

// Add returns t+d, saturating at Infinite.  Adding to or from a dynamic value
// leaves the result dynamic.
func (t Time) Add(d Time) Time {
	if t.IsDynamic() || d.IsDynamic() {
		return Dynamic
	}
	if t == Infinite || d == Infinite || t > Infinite-d {
		return Infinite
	}
	return t + d
}

// Sub returns t-d, clamped at Zero
func (t Time) Sub(d Time) Time {
	if t.IsDynamic() || d.IsDynamic() {
		return Dynamic
	}
	if t == Infinite {
		return Infinite
	}
	if d >= t {
		return Zero
	}
	return t - d
}

// Compare returns -1, 0 or 1 as t is before, equal to, or after u
func (t Time) Compare(u Time) int {
	switch {
	case t < u:
		return -1
	case t > u:
		return 1
	}
	return 0
}

func (t Time) Before(u Time) bool { return t < u }
func (t Time) After(u Time) bool  { return t > u }

func (t Time) String() string {
	switch {
	case t == Infinite:
		return "inf"
	case t.IsDynamic():
		return "dynamic"
	}
	return fmt.Sprintf("%dus", int64(t))
}

// maxTime returns the later of two times
func maxTime(a, b Time) Time {
	if a > b {
		return a
	}
	return b
}
