// Package lab holds the complete state of the embedded-systems lab and the
// single per-frame step that advances it.
package lab

import (
	"math/rand"

	"github.com/sarchlab/embedlab/hooking"
	"github.com/sarchlab/embedlab/lab/actuator"
	"github.com/sarchlab/embedlab/lab/deadline"
	"github.com/sarchlab/embedlab/lab/interrupt"
	"github.com/sarchlab/embedlab/lab/memory"
	"github.com/sarchlab/embedlab/lab/sensor"
)

// HookPosFrame is raised after every Step with the frame's Snapshot as the
// item.
var HookPosFrame = &hooking.HookPos{Name: "Frame"}

// Clock counts the frames that advanced the models.
type Clock struct {
	Tick    uint64
	Running bool
}

// State is the whole lab. It is not safe for concurrent use; callers that
// share a State serialize Step, Apply and Snapshot themselves.
type State struct {
	*hooking.HookableBase

	Clock Clock
	Frame uint64

	Sensor    *sensor.Model
	Actuator  *actuator.Model
	Scheduler *interrupt.Scheduler
	Deadline  *deadline.Monitor
	Memory    *memory.Model
}

// NewState creates a running lab with every model at its initial value.
// Sensor noise is drawn from a generator seeded with seed.
func NewState(seed int64) *State {
	return NewStateWithNoise(rand.New(rand.NewSource(seed)))
}

// NewStateWithNoise creates a running lab that draws sensor noise from the
// given source.
func NewStateWithNoise(noise sensor.NoiseSource) *State {
	return &State{
		HookableBase: hooking.NewHookableBase(),
		Clock:        Clock{Running: true},
		Sensor:       sensor.New(noise),
		Actuator:     actuator.New(),
		Scheduler:    interrupt.New(),
		Deadline:     deadline.New(),
		Memory:       memory.New(),
	}
}

// AcceptHook registers the hook on the lab and on every model, so that a
// single hook observes frames and all model transitions.
func (s *State) AcceptHook(hook hooking.Hook) {
	s.HookableBase.AcceptHook(hook)
	s.Scheduler.AcceptHook(hook)
	s.Deadline.AcceptHook(hook)
	s.Memory.AcceptHook(hook)
}

// Step advances the lab by one frame. While the clock runs, the tick counter
// and the sensor, actuator, scheduler and deadline models advance, in that
// order. The memory check runs on every frame, paused or not.
func (s *State) Step() FrameEffects {
	var effects FrameEffects

	s.Frame++

	if s.Clock.Running {
		s.Clock.Tick++
		effects.Advanced = true

		s.Sensor.Advance()
		s.Actuator.Advance()
		effects.Scheduler = s.Scheduler.Advance()
		s.Deadline.Advance()
	}

	s.Memory.Advance()

	if s.NumHooks() > 0 {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosFrame,
			Item:   s.Snapshot(),
			Detail: effects,
		})
	}

	return effects
}

// CurrentFrame returns the number of frames stepped so far. Hooks raised
// inside Step see the frame being stepped.
func (s *State) CurrentFrame() uint64 {
	return s.Frame
}

// FrameEffects reports what a single Step did.
type FrameEffects struct {
	// Advanced is false when the clock was paused.
	Advanced bool

	Scheduler interrupt.Effects
}

// Reset reinitializes the models. The clock and the user inputs (setpoint,
// noise, command, mode, ISR length and stack depth) are kept.
func (s *State) Reset() {
	s.Sensor.Reset()
	s.Actuator.Reset()
	s.Scheduler.Reset()
	s.Deadline.Reset()
	s.Memory.Reset()
}
