package lab

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/sarchlab/embedlab/hooking"
	"github.com/sarchlab/embedlab/lab/deadline"
	"github.com/sarchlab/embedlab/lab/interrupt"
	"github.com/sarchlab/embedlab/lab/memory"
)

// Limits of the values accepted by NewInput. Inputs built directly as
// structs are applied as they are.
const (
	MinSetpoint = -50.0
	MaxSetpoint = 150.0
	MinCommand  = -100
	MaxCommand  = 100
	MinISRLen   = 1
	MaxISRLen   = 100
	MinStack    = 1
	MaxStack    = memory.MaxStackLevel
	MinLoad     = 1
	MaxLoad     = 1000
)

// An Input is a user action applied to the lab between frames.
type Input interface {
	// Name identifies the kind of input.
	Name() string

	// Apply writes the input into the state.
	Apply(s *State)

	isInput()
}

// SetSetpoint changes the temperature applied to the sensor.
type SetSetpoint struct{ Celsius float64 }

// SetNoise toggles sensor noise.
type SetNoise struct{ On bool }

// SetCommand changes the motor command.
type SetCommand struct{ Value int }

// SetMode selects polling or interrupt dispatch.
type SetMode struct{ Mode interrupt.Mode }

// SetISRLen changes the handler duration.
type SetISRLen struct{ Len int }

// TriggerEvent queues a new asynchronous event.
type TriggerEvent struct{}

// StartDeadline starts a task that needs Load milliseconds.
type StartDeadline struct{ Load int }

// SetStack changes the recursion depth and clears a memory crash.
type SetStack struct{ Level int }

// AllocateHeap grows the heap by one allocation.
type AllocateHeap struct{}

// Reset reinitializes every model except the clock.
type Reset struct{}

// Pause stops the clock.
type Pause struct{}

// Resume restarts the clock.
type Resume struct{}

func (SetSetpoint) Name() string   { return "setpoint" }
func (SetNoise) Name() string      { return "noise" }
func (SetCommand) Name() string    { return "command" }
func (SetMode) Name() string       { return "mode" }
func (SetISRLen) Name() string     { return "isr_len" }
func (TriggerEvent) Name() string  { return "trigger" }
func (StartDeadline) Name() string { return "deadline" }
func (SetStack) Name() string      { return "stack" }
func (AllocateHeap) Name() string  { return "allocate" }
func (Reset) Name() string         { return "reset" }
func (Pause) Name() string         { return "pause" }
func (Resume) Name() string        { return "resume" }

func (i SetSetpoint) Apply(s *State)   { s.Sensor.Setpoint = i.Celsius }
func (i SetNoise) Apply(s *State)      { s.Sensor.Noise = i.On }
func (i SetCommand) Apply(s *State)    { s.Actuator.Input = i.Value }
func (i SetMode) Apply(s *State)       { s.Scheduler.Mode = i.Mode }
func (i SetISRLen) Apply(s *State)     { s.Scheduler.ISRLen = i.Len }
func (TriggerEvent) Apply(s *State)    { s.Scheduler.Trigger() }
func (i StartDeadline) Apply(s *State) { s.Deadline.Start(i.Load) }
func (i SetStack) Apply(s *State)      { s.Memory.SetStack(i.Level) }
func (AllocateHeap) Apply(s *State)    { s.Memory.AllocateHeap() }
func (Reset) Apply(s *State)           { s.Reset() }
func (Pause) Apply(s *State)           { s.Clock.Running = false }
func (Resume) Apply(s *State)          { s.Clock.Running = true }

func (SetSetpoint) isInput()   {}
func (SetNoise) isInput()      {}
func (SetCommand) isInput()    {}
func (SetMode) isInput()       {}
func (SetISRLen) isInput()     {}
func (TriggerEvent) isInput()  {}
func (StartDeadline) isInput() {}
func (SetStack) isInput()      {}
func (AllocateHeap) isInput()  {}
func (Reset) isInput()         {}
func (Pause) isInput()         {}
func (Resume) isInput()        {}

// HookPosInput is raised right before an input is applied, with the input as
// the item.
var HookPosInput = &hooking.HookPos{Name: "Input"}

// Apply applies the inputs in order.
func (s *State) Apply(inputs ...Input) {
	for _, in := range inputs {
		s.InvokeHook(hooking.HookCtx{Domain: s, Pos: HookPosInput, Item: in})
		in.Apply(s)
	}
}

type inputParser func(value any) (Input, error)

var inputParsers = map[string]inputParser{
	"setpoint": func(v any) (Input, error) {
		c, err := toFloat(v)
		if err != nil {
			return nil, err
		}

		if math.IsNaN(c) || c < MinSetpoint || c > MaxSetpoint {
			return nil, fmt.Errorf("setpoint %g outside [%g, %g]",
				c, MinSetpoint, MaxSetpoint)
		}

		return SetSetpoint{Celsius: c}, nil
	},
	"noise": func(v any) (Input, error) {
		on, err := toBool(v)
		if err != nil {
			return nil, err
		}

		return SetNoise{On: on}, nil
	},
	"command": func(v any) (Input, error) {
		n, err := toIntInRange(v, MinCommand, MaxCommand)
		if err != nil {
			return nil, err
		}

		return SetCommand{Value: n}, nil
	},
	"mode": func(v any) (Input, error) {
		name, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("mode must be a string, got %T", v)
		}

		m, err := interrupt.ParseMode(name)
		if err != nil {
			return nil, err
		}

		return SetMode{Mode: m}, nil
	},
	"isr_len": func(v any) (Input, error) {
		n, err := toIntInRange(v, MinISRLen, MaxISRLen)
		if err != nil {
			return nil, err
		}

		return SetISRLen{Len: n}, nil
	},
	"trigger": func(any) (Input, error) { return TriggerEvent{}, nil },
	"deadline": func(v any) (Input, error) {
		if name, ok := v.(string); ok {
			if load, err := deadline.PresetLoad(name); err == nil {
				return StartDeadline{Load: load}, nil
			}
		}

		n, err := toIntInRange(v, MinLoad, MaxLoad)
		if err != nil {
			return nil, err
		}

		return StartDeadline{Load: n}, nil
	},
	"stack": func(v any) (Input, error) {
		n, err := toIntInRange(v, MinStack, MaxStack)
		if err != nil {
			return nil, err
		}

		return SetStack{Level: n}, nil
	},
	"allocate": func(any) (Input, error) { return AllocateHeap{}, nil },
	"reset":    func(any) (Input, error) { return Reset{}, nil },
	"pause":    func(any) (Input, error) { return Pause{}, nil },
	"resume":   func(any) (Input, error) { return Resume{}, nil },
}

// NewInput builds a validated input from its name and a loosely typed value,
// as decoded from JSON or YAML. Inputs without a value ignore it.
func NewInput(name string, value any) (Input, error) {
	parse, ok := inputParsers[name]
	if !ok {
		return nil, fmt.Errorf("lab: unknown input %q", name)
	}

	in, err := parse(value)
	if err != nil {
		return nil, fmt.Errorf("lab: input %s: %w", name, err)
	}

	return in, nil
}

// InputNames lists the names accepted by NewInput.
func InputNames() []string {
	names := make([]string, 0, len(inputParsers))
	for name := range inputParsers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, err
		}

		return f, nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func toIntInRange(v any, lo, hi int) (int, error) {
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}

	if f != math.Trunc(f) {
		return 0, fmt.Errorf("expected an integer, got %g", f)
	}

	if f < float64(lo) || f > float64(hi) {
		return 0, fmt.Errorf("%g outside [%d, %d]", f, lo, hi)
	}

	return int(f), nil
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(x)
	default:
		return false, fmt.Errorf("expected a boolean, got %T", v)
	}
}

// InputValue formats the value carried by an input, or "" when it carries
// none. NewInput accepts the result back.
func InputValue(in Input) string {
	switch i := in.(type) {
	case SetSetpoint:
		return strconv.FormatFloat(i.Celsius, 'g', -1, 64)
	case SetNoise:
		return strconv.FormatBool(i.On)
	case SetCommand:
		return strconv.Itoa(i.Value)
	case SetMode:
		return i.Mode.String()
	case SetISRLen:
		return strconv.Itoa(i.Len)
	case StartDeadline:
		return strconv.Itoa(i.Load)
	case SetStack:
		return strconv.Itoa(i.Level)
	case TriggerEvent, AllocateHeap, Reset, Pause, Resume:
		return ""
	default:
		panic(fmt.Sprintf("lab: unknown input %T", in))
	}
}
