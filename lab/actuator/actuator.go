// Package actuator models a motor driven by a signed command through a
// first-order lag.
package actuator

import (
	"fmt"
	"math"

	"github.com/sarchlab/embedlab/queueing"
)

// Motor characteristics.
const (
	MaxCommand = 100

	// SpeedGain converts a command into the steady-state speed.
	SpeedGain = 0.5

	// Smoothing is the fraction of the speed error removed every tick.
	Smoothing = 0.05

	// DeadZone is the largest command magnitude that leaves the motor
	// stopped.
	DeadZone = 5

	// DisplayRPMScale converts the internal speed into the displayed RPM.
	DisplayRPMScale = 10

	HistoryLength = 100
)

// Direction is the sense of rotation derived from the command.
type Direction int

// Directions of rotation.
const (
	Stopped Direction = iota
	Forward
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Stopped:
		return "stop"
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		panic(fmt.Sprintf("actuator: unknown direction %d", int(d)))
	}
}

// Model is the motor state advanced once per tick.
type Model struct {
	// Input is the last command written by the user, in [-100, 100].
	Input int

	RPM   float64
	Angle float64

	inputHistory *queueing.Window
}

// New creates a stopped motor.
func New() *Model {
	return &Model{
		inputHistory: queueing.NewWindow(HistoryLength),
	}
}

// Advance moves the speed a fixed fraction towards the commanded speed and
// integrates the rotation angle.
func (m *Model) Advance() (rpm, angle float64) {
	target := float64(m.Input) * SpeedGain
	m.RPM += (target - m.RPM) * Smoothing
	m.Angle += m.RPM
	m.inputHistory.Push(float64(m.Input))

	return m.RPM, m.Angle
}

// Duty returns the normalized command magnitude.
func (m *Model) Duty() float64 {
	return math.Abs(float64(m.Input)) / MaxCommand
}

// Direction returns the rotation sense of the command.
func (m *Model) Direction() Direction {
	switch {
	case m.Input > DeadZone:
		return Forward
	case m.Input < -DeadZone:
		return Reverse
	default:
		return Stopped
	}
}

// DisplayRPM returns the rounded speed magnitude shown to the user.
func (m *Model) DisplayRPM() int {
	return int(math.Round(math.Abs(m.RPM) * DisplayRPMScale))
}

// PWMHigh reports the level of the PWM output at phase in [0, 1) of a
// period. Near-zero and near-full duty cycles are drawn as flat lines.
func (m *Model) PWMHigh(phase float64) bool {
	duty := m.Duty()

	switch {
	case duty <= 0.02:
		return false
	case duty >= 0.98:
		return true
	default:
		return phase < duty
	}
}

// InputHistory returns the recorded commands, oldest first.
func (m *Model) InputHistory() []float64 {
	return m.inputHistory.Values()
}

// Reset stops the motor. The command is a user input and is kept.
func (m *Model) Reset() {
	m.RPM = 0
	m.Angle = 0
}
