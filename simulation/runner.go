package simulation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sarchlab/embedlab/lab"
	"github.com/sarchlab/embedlab/timing"
)

// Runner steps a lab against the wall clock. Inputs submitted from other
// goroutines are queued and applied, in submission order, right before the
// next frame. Every access to the lab holds the same lock, so readers never
// observe a half-stepped frame.
type Runner struct {
	lock      sync.Mutex
	state     *lab.State
	pending   []lab.Input
	scheduled []scheduledInput

	rate      timing.FreqInHz
	maxFrames uint64
	frames    uint64
	progress  ProgressTracker
}

// NewRunner creates a runner that steps the lab rate times per second.
func NewRunner(state *lab.State, rate timing.FreqInHz) *Runner {
	return &Runner{state: state, rate: rate}
}

// Submit queues an input for the next frame.
func (r *Runner) Submit(in lab.Input) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.pending = append(r.pending, in)
}

type scheduledInput struct {
	at    timing.VTimeInCycle
	input lab.Input
}

// ScheduleInput applies in right before the frame that follows frame at.
// Inputs scheduled for a frame that already passed apply at the next frame.
func (r *Runner) ScheduleInput(at timing.VTimeInCycle, in lab.Input) {
	r.lock.Lock()
	defer r.lock.Unlock()

	i := sort.Search(len(r.scheduled), func(i int) bool {
		return r.scheduled[i].at > at
	})

	r.scheduled = append(r.scheduled, scheduledInput{})
	copy(r.scheduled[i+1:], r.scheduled[i:])
	r.scheduled[i] = scheduledInput{at: at, input: in}
}

// Pause stops the lab clock at the next frame.
func (r *Runner) Pause() {
	r.Submit(lab.Pause{})
}

// Continue restarts the lab clock at the next frame.
func (r *Runner) Continue() {
	r.Submit(lab.Resume{})
}

// Snapshot returns the last rendered frame.
func (r *Runner) Snapshot() lab.Snapshot {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.state.Snapshot()
}

// Frame returns the number of frames stepped so far.
func (r *Runner) Frame() uint64 {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.state.Frame
}

// Inspect runs fn between two frames.
func (r *Runner) Inspect(fn func(s *lab.State)) {
	r.lock.Lock()
	defer r.lock.Unlock()

	fn(r.state)
}

// Step applies the due scheduled inputs, then the queued inputs, and steps
// one frame.
func (r *Runner) Step() {
	r.lock.Lock()
	defer r.lock.Unlock()

	now := timing.VTimeInCycle(r.state.Frame)
	due := 0
	for due < len(r.scheduled) && r.scheduled[due].at <= now {
		r.state.Apply(r.scheduled[due].input)
		due++
	}
	r.scheduled = r.scheduled[due:]

	r.state.Apply(r.pending...)
	r.pending = r.pending[:0]

	r.state.Step()
	r.frames++

	if r.progress != nil {
		r.progress.IncrementFinished(1)
	}
}

// Run steps the lab until ctx is done or the frame limit is reached.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.rate.Period())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Step()

			if r.done() {
				return nil
			}
		}
	}
}

func (r *Runner) done() bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.maxFrames > 0 && r.frames >= r.maxFrames
}
