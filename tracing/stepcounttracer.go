package tracing

import (
	"sync"

	"github.com/sarchlab/embedlab/hooking"
	"github.com/sarchlab/embedlab/lab"
	"github.com/sarchlab/embedlab/lab/deadline"
	"github.com/sarchlab/embedlab/lab/interrupt"
	"github.com/sarchlab/embedlab/lab/memory"
)

// StepCountTracer counts lab transitions by name. Names look like
// "deadline:success", "isr:trigger" or "input:stack".
type StepCountTracer struct {
	lock      sync.Mutex
	stepNames []string
	stepCount map[string]uint64
}

// NewStepCountTracer creates a new StepCountTracer.
func NewStepCountTracer() *StepCountTracer {
	return &StepCountTracer{
		stepCount: make(map[string]uint64),
	}
}

// Func counts the step the hook position stands for. Frames are not counted.
func (t *StepCountTracer) Func(ctx hooking.HookCtx) {
	name := stepName(ctx)
	if name == "" {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.stepCount[name]; !ok {
		t.stepNames = append(t.stepNames, name)
	}

	t.stepCount[name]++
}

func stepName(ctx hooking.HookCtx) string {
	switch ctx.Pos {
	case lab.HookPosInput:
		return "input:" + ctx.Item.(lab.Input).Name()
	case interrupt.HookPosTrigger:
		return "isr:trigger"
	case interrupt.HookPosDispatch:
		return "isr:dispatch"
	case interrupt.HookPosComplete:
		return "isr:complete"
	case deadline.HookPosStart:
		return "deadline:start"
	case deadline.HookPosResolved:
		return "deadline:" + ctx.Item.(deadline.Status).String()
	case memory.HookPosOverflow:
		return "memory:overflow"
	default:
		return ""
	}
}

// GetStepNames returns the names seen so far, in the order first seen.
func (t *StepCountTracer) GetStepNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]string(nil), t.stepNames...)
}

// GetStepCount returns how many times the named step happened.
func (t *StepCountTracer) GetStepCount(stepName string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.stepCount[stepName]
}

var _ hooking.Hook = (*StepCountTracer)(nil)
