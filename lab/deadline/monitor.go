// Package deadline runs a single simulated task against a deadline and
// reports whether it finished in time.
package deadline

import (
	"fmt"
	"math"
	"sort"

	"github.com/sarchlab/embedlab/hooking"
)

// Defaults of the monitored task.
const (
	DefaultMax  = 100
	DefaultLoad = 30

	// MaxProgress caps the progress bar so that overruns stay visible.
	MaxProgress = 120.0
)

// Status is the outcome of the monitored task.
type Status int

// A task goes from idle to running and ends in success or crash. A new Start
// is required to leave a final status.
const (
	StatusIdle Status = iota
	StatusRunning
	StatusSuccess
	StatusCrash
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusCrash:
		return "crash"
	default:
		panic(fmt.Sprintf("deadline: unknown status %d", int(s)))
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// HookPosStart marks a task being started.
var HookPosStart = &hooking.HookPos{Name: "DeadlineStart"}

// HookPosResolved marks a task reaching success or crash.
var HookPosResolved = &hooking.HookPos{Name: "DeadlineResolved"}

// Monitor drives the task one millisecond per tick.
type Monitor struct {
	*hooking.HookableBase

	Max     int
	Current int
	Load    int
	Status  Status
}

// New creates an idle monitor with the default deadline.
func New() *Monitor {
	return &Monitor{
		HookableBase: hooking.NewHookableBase(),
		Max:          DefaultMax,
		Load:         DefaultLoad,
	}
}

// Start begins a task that needs loadMs ticks to finish.
func (m *Monitor) Start(loadMs int) {
	m.Status = StatusRunning
	m.Current = 0
	m.Load = loadMs

	m.InvokeHook(hooking.HookCtx{Domain: m, Pos: HookPosStart, Item: loadMs})
}

// Advance runs the task for one tick and resolves it once its work is done.
// Meeting the deadline exactly counts as success.
func (m *Monitor) Advance() {
	switch m.Status {
	case StatusRunning:
	case StatusIdle, StatusSuccess, StatusCrash:
		return
	default:
		panic(fmt.Sprintf("deadline: unknown status %d", int(m.Status)))
	}

	m.Current++
	if m.Current < m.Load {
		return
	}

	if m.Current <= m.Max {
		m.Status = StatusSuccess
	} else {
		m.Status = StatusCrash
	}

	m.InvokeHook(hooking.HookCtx{Domain: m, Pos: HookPosResolved, Item: m.Status, Detail: m.Current})
}

// Overrun reports a running task that already passed its deadline.
func (m *Monitor) Overrun() bool {
	return m.Status == StatusRunning && m.Current > m.Max
}

// Progress returns the elapsed time as a percentage of the deadline, capped
// at MaxProgress.
func (m *Monitor) Progress() float64 {
	if m.Max <= 0 {
		return MaxProgress
	}

	return math.Min(MaxProgress, float64(m.Current)/float64(m.Max)*100)
}

// Reset returns the monitor to idle. The deadline and the last load are kept.
func (m *Monitor) Reset() {
	m.Status = StatusIdle
	m.Current = 0
}

// Presets are named task loads, in milliseconds.
var Presets = map[string]int{
	"light":    30,
	"medium":   60,
	"edge":     100,
	"overload": 150,
}

// PresetLoad returns the load of a named preset.
func PresetLoad(name string) (int, error) {
	load, ok := Presets[name]
	if !ok {
		return 0, fmt.Errorf("deadline: unknown preset %q", name)
	}

	return load, nil
}

// PresetNames returns the preset names ordered by load.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool {
		return Presets[names[i]] < Presets[names[j]]
	})

	return names
}
