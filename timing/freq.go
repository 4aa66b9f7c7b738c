package timing

import (
	"fmt"
	"time"
)

// FreqInHz is a frame rate.
type FreqInHz uint64

// Defines the unit of frequency.
const (
	Hz  FreqInHz = 1
	KHz FreqInHz = 1e3
)

// DefaultFrameRate matches a display refreshing at 60 frames per second.
const DefaultFrameRate = 60 * Hz

// Period returns the wall-clock time between two consecutive frames.
func (f FreqInHz) Period() time.Duration {
	if f == 0 {
		panic("timing: frequency cannot be 0")
	}

	return time.Second / time.Duration(f)
}

// Cycles returns the number of whole frames that fit into d.
func (f FreqInHz) Cycles(d time.Duration) VTimeInCycle {
	if d <= 0 {
		return 0
	}

	return VTimeInCycle(d / f.Period())
}

func (f FreqInHz) String() string {
	return fmt.Sprintf("%dHz", uint64(f))
}
