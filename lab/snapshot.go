package lab

import (
	"github.com/sarchlab/embedlab/lab/deadline"
	"github.com/sarchlab/embedlab/lab/interrupt"
	"github.com/sarchlab/embedlab/lab/memory"
)

// Snapshot is a read-only copy of everything a frame renders.
type Snapshot struct {
	Frame   uint64 `json:"frame"`
	Tick    uint64 `json:"tick"`
	Running bool   `json:"running"`

	Sensor    SensorView    `json:"sensor"`
	Actuator  ActuatorView  `json:"actuator"`
	Scheduler SchedulerView `json:"scheduler"`
	Deadline  DeadlineView  `json:"deadline"`
	Memory    MemoryView    `json:"memory"`
}

// SensorView is the rendered sensor.
type SensorView struct {
	Setpoint      float64   `json:"setpoint"`
	Noise         bool      `json:"noise"`
	Voltage       float64   `json:"voltage"`
	ADCCode       int       `json:"adc_code"`
	SensedCelsius float64   `json:"sensed_celsius"`
	History       []float64 `json:"history"`
}

// ActuatorView is the rendered motor.
type ActuatorView struct {
	Input      int     `json:"input"`
	RPM        float64 `json:"rpm"`
	DisplayRPM int     `json:"display_rpm"`
	Angle      float64 `json:"angle"`
	Duty       float64 `json:"duty"`
	Direction  string  `json:"direction"`
}

// SchedulerView is the rendered event timeline.
type SchedulerView struct {
	Mode         interrupt.Mode    `json:"mode"`
	ISRLen       int               `json:"isr_len"`
	Cursor       int               `json:"cursor"`
	ISRActive    bool              `json:"isr_active"`
	InPollWindow bool              `json:"in_poll_window"`
	Events       []interrupt.Event `json:"events"`
}

// DeadlineView is the rendered deadline bar.
type DeadlineView struct {
	Status   deadline.Status `json:"status"`
	Current  int             `json:"current"`
	Max      int             `json:"max"`
	Load     int             `json:"load"`
	Progress float64         `json:"progress"`
	Overrun  bool            `json:"overrun"`
}

// MemoryView is the rendered memory tower.
type MemoryView struct {
	Stack        int          `json:"stack"`
	Heap         int          `json:"heap"`
	Crashed      bool         `json:"crashed"`
	StackPercent float64      `json:"stack_percent"`
	Usage        memory.Usage `json:"usage"`
}

// Snapshot copies the current state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Frame:   s.Frame,
		Tick:    s.Clock.Tick,
		Running: s.Clock.Running,
		Sensor: SensorView{
			Setpoint:      s.Sensor.Setpoint,
			Noise:         s.Sensor.Noise,
			Voltage:       s.Sensor.Voltage(),
			ADCCode:       s.Sensor.ADCCode(),
			SensedCelsius: s.Sensor.SensedCelsius(),
			History:       s.Sensor.History(),
		},
		Actuator: ActuatorView{
			Input:      s.Actuator.Input,
			RPM:        s.Actuator.RPM,
			DisplayRPM: s.Actuator.DisplayRPM(),
			Angle:      s.Actuator.Angle,
			Duty:       s.Actuator.Duty(),
			Direction:  s.Actuator.Direction().String(),
		},
		Scheduler: SchedulerView{
			Mode:         s.Scheduler.Mode,
			ISRLen:       s.Scheduler.ISRLen,
			Cursor:       s.Scheduler.Cursor,
			ISRActive:    s.Scheduler.ISRActive,
			InPollWindow: s.Scheduler.InPollWindow(),
			Events:       s.Scheduler.Snapshot(),
		},
		Deadline: DeadlineView{
			Status:   s.Deadline.Status,
			Current:  s.Deadline.Current,
			Max:      s.Deadline.Max,
			Load:     s.Deadline.Load,
			Progress: s.Deadline.Progress(),
			Overrun:  s.Deadline.Overrun(),
		},
		Memory: MemoryView{
			Stack:        s.Memory.Stack,
			Heap:         s.Memory.Heap,
			Crashed:      s.Memory.Crashed,
			StackPercent: s.Memory.StackPercent(),
			Usage:        s.Memory.Usage(),
		},
	}
}
