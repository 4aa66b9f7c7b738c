// Package sensor models an analog temperature sensor read through a 12-bit
// analog-to-digital converter.
package sensor

import (
	"math"

	"github.com/sarchlab/embedlab/queueing"
)

// Transducer and converter characteristics.
const (
	OffsetVolts     = 0.5
	VoltsPerCelsius = 0.01
	CelsiusPerVolt  = 100.0
	ReferenceVolts  = 3.3
	ADCFullScale    = 4095

	// NoiseSpan is the width of the uniform noise band centered on zero.
	NoiseSpan = 0.1

	HistoryLength   = 50
	DefaultSetpoint = 25.0
)

// A NoiseSource returns uniformly distributed numbers in [0, 1).
// *rand.Rand satisfies it.
type NoiseSource interface {
	Float64() float64
}

// Transduce returns the sensor output for a temperature, clamped to the
// converter's reference range.
func Transduce(celsius float64) float64 {
	return clampVolts(OffsetVolts + celsius*VoltsPerCelsius)
}

func clampVolts(v float64) float64 {
	return math.Max(0, math.Min(ReferenceVolts, v))
}

// Model is the sensor state advanced once per tick.
type Model struct {
	// Setpoint is the temperature applied to the sensor, in Celsius.
	Setpoint float64

	// Noise adds a uniform perturbation to every sample when set.
	Noise bool

	noise   NoiseSource
	history *queueing.Window
}

// New creates a sensor at the default setpoint with an all-zero history.
func New(noise NoiseSource) *Model {
	return &Model{
		Setpoint: DefaultSetpoint,
		noise:    noise,
		history:  queueing.NewWindow(HistoryLength),
	}
}

// Advance samples the sensor once and returns the sensed voltage.
func (m *Model) Advance() float64 {
	v := OffsetVolts + m.Setpoint*VoltsPerCelsius

	if m.Noise && m.noise != nil {
		v += (m.noise.Float64() - 0.5) * NoiseSpan
	}

	v = clampVolts(v)
	m.history.Push(v)

	return v
}

// Voltage returns the most recent sample.
func (m *Model) Voltage() float64 {
	return m.history.Last()
}

// ADCCode returns the converter output code for the most recent sample.
func (m *Model) ADCCode() int {
	return int(math.Floor(m.Voltage() / ReferenceVolts * ADCFullScale))
}

// SensedCelsius converts the most recent sample back to a temperature.
func (m *Model) SensedCelsius() float64 {
	return (m.Voltage() - OffsetVolts) * CelsiusPerVolt
}

// History returns the sample window, oldest first.
func (m *Model) History() []float64 {
	return m.history.Values()
}

// Reset clears the sample history. The setpoint and noise flag are user
// inputs and are kept.
func (m *Model) Reset() {
	m.history.Fill(0)
}
