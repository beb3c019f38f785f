package hwm

import (
	"strconv"
	"time"
)

// Step is the size of one batch span. Integer high-water-marks take an
// IntStep, date and timestamp high-water-marks take a DurationStep.
type Step interface {
	// Positive reports whether the step moves forward in the value ordering
	Positive() bool
	// Negate returns the step with its direction reversed
	Negate() Step
	String() string
}

// IntStep is a numeric delta step
type IntStep int64

// Positive implements Step
func (s IntStep) Positive() bool { return s > 0 }

// Negate implements Step
func (s IntStep) Negate() Step { return -s }

func (s IntStep) String() string { return strconv.FormatInt(int64(s), 10) }

// DurationStep is a time delta step
type DurationStep time.Duration

// Positive implements Step
func (s DurationStep) Positive() bool { return s > 0 }

// Negate implements Step
func (s DurationStep) Negate() Step { return -s }

func (s DurationStep) String() string { return time.Duration(s).String() }
