package simulation

import (
	"fmt"

	"github.com/sarchlab/embedlab/lab"
	"github.com/sarchlab/embedlab/timing"
)

// InputEvent carries a user input scheduled on the engine.
type InputEvent struct {
	Input lab.Input
}

// A ProgressTracker is told about every finished frame.
type ProgressTracker interface {
	IncrementFinished(amount uint64)
}

// Driver steps a lab once per engine cycle. Frame ticks are secondary events,
// so inputs scheduled for a cycle are applied before that cycle's frame.
type Driver struct {
	*timing.TickingComponent

	state     *lab.State
	maxFrames uint64
	frames    uint64
	progress  ProgressTracker
}

// NewDriver creates a driver that stops after maxFrames frames. Zero means
// no limit, in which case the engine only stops when paused for good.
func NewDriver(
	engine timing.EventScheduler,
	state *lab.State,
	maxFrames uint64,
) *Driver {
	d := &Driver{state: state, maxFrames: maxFrames}
	d.TickingComponent = timing.NewSecondaryTickingComponent(
		"Driver", engine, d)

	return d
}

// Start schedules the first frame at the current cycle.
func (d *Driver) Start() {
	if d.maxFrames > 0 && d.frames >= d.maxFrames {
		return
	}

	d.TickNow()
}

// Handle applies scheduled inputs and runs frame ticks.
func (d *Driver) Handle(e any) error {
	switch evt := e.(type) {
	case InputEvent:
		d.state.Apply(evt.Input)
		return nil
	case timing.TickEvent:
		return d.TickingComponent.Handle(e)
	default:
		return fmt.Errorf("%s: cannot handle event of type %T", d.Name(), e)
	}
}

// ScheduleInput applies in right before the frame at cycle at.
func (d *Driver) ScheduleInput(at timing.VTimeInCycle, in lab.Input) {
	d.Engine.Schedule(timing.ScheduledEvent{
		Event:   InputEvent{Input: in},
		Time:    at,
		Handler: d,
	})
}

// Tick steps the lab by one frame.
func (d *Driver) Tick() bool {
	d.state.Step()
	d.frames++

	if d.progress != nil {
		d.progress.IncrementFinished(1)
	}

	return d.maxFrames == 0 || d.frames < d.maxFrames
}

// Frames returns the number of frames stepped by this driver.
func (d *Driver) Frames() uint64 {
	return d.frames
}
