package datarecording

import (
	"github.com/sarchlab/embedlab/hooking"
	"github.com/sarchlab/embedlab/lab"
	"github.com/sarchlab/embedlab/lab/deadline"
	"github.com/sarchlab/embedlab/lab/interrupt"
	"github.com/sarchlab/embedlab/lab/memory"
)

// Table names written by the Tracer.
const (
	FrameTable    = "frames"
	ISRTable      = "isr_events"
	DeadlineTable = "deadline_tasks"
	OverflowTable = "memory_overflows"
	InputTable    = "inputs"
)

// FrameEntry is one rendered frame.
type FrameEntry struct {
	Frame           uint64
	Tick            uint64
	Running         bool
	Voltage         float64
	ADCCode         int
	RPM             float64
	Angle           float64
	Cursor          int
	ISRActive       bool
	Events          int
	DeadlineStatus  string
	DeadlineCurrent int
	Stack           int
	Heap            int
	Crashed         bool
}

// ISREntry is a change of an interrupt event.
type ISREntry struct {
	Frame   uint64
	EventID uint64
	What    string
	Mode    string
	StartX  int
	EndX    int
	Latency int
}

// DeadlineEntry is a started or resolved deadline task.
type DeadlineEntry struct {
	Frame   uint64
	What    string
	Load    int
	Elapsed int
	Status  string
}

// OverflowEntry is a collision between the stack and the heap.
type OverflowEntry struct {
	Frame       uint64
	StackPixels float64
	HeapPixels  float64
}

// InputEntry is a user input applied before a frame.
type InputEntry struct {
	Frame uint64
	Name  string
	Value string
}

// A FrameTeller tells the frame being stepped.
type FrameTeller interface {
	CurrentFrame() uint64
}

// Tracer is a hook that records frames and model transitions. Register it on
// a lab.State with AcceptHook.
type Tracer struct {
	recorder DataRecorder
	frames   FrameTeller

	// SkipFrames disables the per-frame table, keeping only transitions.
	SkipFrames bool
}

// NewTracer creates the trace tables on the recorder.
func NewTracer(recorder DataRecorder, frames FrameTeller) *Tracer {
	recorder.CreateTable(FrameTable, FrameEntry{})
	recorder.CreateTable(ISRTable, ISREntry{})
	recorder.CreateTable(DeadlineTable, DeadlineEntry{})
	recorder.CreateTable(OverflowTable, OverflowEntry{})
	recorder.CreateTable(InputTable, InputEntry{})

	return &Tracer{recorder: recorder, frames: frames}
}

// Func records a hook site.
func (t *Tracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case lab.HookPosFrame:
		if !t.SkipFrames {
			t.recordFrame(ctx.Item.(lab.Snapshot))
		}
	case lab.HookPosInput:
		in := ctx.Item.(lab.Input)
		t.recorder.InsertData(InputTable, InputEntry{
			Frame: t.frames.CurrentFrame(),
			Name:  in.Name(),
			Value: lab.InputValue(in),
		})
	case interrupt.HookPosTrigger:
		t.recordISR("trigger", ctx.Item.(interrupt.Event), "", 0)
	case interrupt.HookPosDispatch:
		detail := ctx.Detail.(interrupt.DispatchDetail)
		t.recordISR("dispatch", ctx.Item.(interrupt.Event),
			detail.Mode.String(), detail.Latency)
	case interrupt.HookPosComplete:
		t.recordISR("complete", ctx.Item.(interrupt.Event), "", 0)
	case deadline.HookPosStart:
		t.recorder.InsertData(DeadlineTable, DeadlineEntry{
			Frame:  t.frames.CurrentFrame(),
			What:   "start",
			Load:   ctx.Item.(int),
			Status: deadline.StatusRunning.String(),
		})
	case deadline.HookPosResolved:
		monitor := ctx.Domain.(*deadline.Monitor)
		t.recorder.InsertData(DeadlineTable, DeadlineEntry{
			Frame:   t.frames.CurrentFrame(),
			What:    "resolve",
			Load:    monitor.Load,
			Elapsed: ctx.Detail.(int),
			Status:  ctx.Item.(deadline.Status).String(),
		})
	case memory.HookPosOverflow:
		usage := ctx.Item.(memory.Usage)
		t.recorder.InsertData(OverflowTable, OverflowEntry{
			Frame:       t.frames.CurrentFrame(),
			StackPixels: usage.StackPixels,
			HeapPixels:  usage.HeapPixels,
		})
	}
}

func (t *Tracer) recordFrame(snap lab.Snapshot) {
	t.recorder.InsertData(FrameTable, FrameEntry{
		Frame:           snap.Frame,
		Tick:            snap.Tick,
		Running:         snap.Running,
		Voltage:         snap.Sensor.Voltage,
		ADCCode:         snap.Sensor.ADCCode,
		RPM:             snap.Actuator.RPM,
		Angle:           snap.Actuator.Angle,
		Cursor:          snap.Scheduler.Cursor,
		ISRActive:       snap.Scheduler.ISRActive,
		Events:          len(snap.Scheduler.Events),
		DeadlineStatus:  snap.Deadline.Status.String(),
		DeadlineCurrent: snap.Deadline.Current,
		Stack:           snap.Memory.Stack,
		Heap:            snap.Memory.Heap,
		Crashed:         snap.Memory.Crashed,
	})
}

func (t *Tracer) recordISR(what string, e interrupt.Event, mode string, latency int) {
	t.recorder.InsertData(ISRTable, ISREntry{
		Frame:   t.frames.CurrentFrame(),
		EventID: e.ID,
		What:    what,
		Mode:    mode,
		StartX:  e.StartX,
		EndX:    e.EndX,
		Latency: latency,
	})
}

var _ hooking.Hook = (*Tracer)(nil)
