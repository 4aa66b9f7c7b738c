// Package interrupt models a single interrupt-service routine shared by
// asynchronous events, dispatched either by polling or by interrupt.
package interrupt

import (
	"fmt"

	"github.com/sarchlab/embedlab/hooking"
)

// Timeline geometry. The cursor moves CursorStep positions per tick and wraps
// at WrapAt. Polling only looks for ready events during the first PollWindow
// positions of every PollPeriod.
const (
	CursorStep  = 2
	WrapAt      = 800
	PollPeriod  = 200
	PollWindow  = 5
	TriggerLead = 200

	// ISRScale is the number of cursor positions per unit of ISR length.
	ISRScale = 4

	DefaultISRLen = 10
)

// HookPosTrigger marks a new event being queued.
var HookPosTrigger = &hooking.HookPos{Name: "ISRTrigger"}

// HookPosDispatch marks an event entering the handler.
var HookPosDispatch = &hooking.HookPos{Name: "ISRDispatch"}

// HookPosComplete marks an event leaving the handler.
var HookPosComplete = &hooking.HookPos{Name: "ISRComplete"}

// Effects reports what a single Advance did.
type Effects struct {
	Dispatched *Event
	Completed  *Event

	// Latency is the distance between where the dispatched event became
	// ready and where it was dispatched.
	Latency int
}

// Scheduler holds the event queue and the moving cursor. At most one event is
// running at any time, and ISRActive is true exactly when one is.
type Scheduler struct {
	*hooking.HookableBase

	Mode      Mode
	ISRLen    int
	Cursor    int
	Events    []*Event
	ISRActive bool

	nextID uint64
}

// New creates an idle scheduler in polling mode.
func New() *Scheduler {
	return &Scheduler{
		HookableBase: hooking.NewHookableBase(),
		Mode:         ModePolling,
		ISRLen:       DefaultISRLen,
	}
}

// Trigger queues an event that becomes ready TriggerLead positions ahead of
// the cursor.
func (s *Scheduler) Trigger() *Event {
	s.nextID++
	e := &Event{
		ID:     s.nextID,
		StartX: s.Cursor + TriggerLead,
		State:  EventPending,
	}
	s.Events = append(s.Events, e)

	s.InvokeHook(hooking.HookCtx{Domain: s, Pos: HookPosTrigger, Item: *e})

	return e
}

// Advance moves the cursor one step, then either completes the running event
// or dispatches the first ready pending event.
func (s *Scheduler) Advance() Effects {
	s.Cursor = (s.Cursor + CursorStep) % WrapAt
	s.evictStale()

	if running := s.running(); running != nil {
		return s.completeIfDone(running)
	}

	for _, e := range s.Events {
		if e.State != EventPending || !s.ready(e) {
			continue
		}

		return s.dispatch(e)
	}

	return Effects{}
}

// evictStale drops events that fell more than a full wrap behind the cursor.
// Since the cursor never exceeds WrapAt and StartX is never negative, nothing
// is evicted in practice and finished events stay in the queue until Reset.
func (s *Scheduler) evictStale() {
	kept := s.Events[:0]
	for _, e := range s.Events {
		if e.StartX > s.Cursor-WrapAt {
			kept = append(kept, e)
		}
	}

	for i := len(kept); i < len(s.Events); i++ {
		s.Events[i] = nil
	}

	s.Events = kept
}

func (s *Scheduler) running() *Event {
	for _, e := range s.Events {
		if e.State == EventRunning {
			return e
		}
	}

	return nil
}

func (s *Scheduler) completeIfDone(e *Event) Effects {
	if s.Cursor < e.EndX {
		return Effects{}
	}

	e.State = EventDone
	s.ISRActive = false

	s.InvokeHook(hooking.HookCtx{Domain: s, Pos: HookPosComplete, Item: *e})

	return Effects{Completed: e}
}

func (s *Scheduler) ready(e *Event) bool {
	if s.Cursor < e.StartX {
		return false
	}

	switch s.Mode {
	case ModeInterrupt:
		return true
	case ModePolling:
		return s.InPollWindow()
	default:
		panic(fmt.Sprintf("interrupt: unknown mode %d", int(s.Mode)))
	}
}

func (s *Scheduler) dispatch(e *Event) Effects {
	e.State = EventRunning
	e.EndX = s.Cursor + s.ISRLen*ISRScale
	s.ISRActive = true

	latency := s.Cursor - e.StartX
	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    HookPosDispatch,
		Item:   *e,
		Detail: DispatchDetail{Mode: s.Mode, Latency: latency},
	})

	return Effects{Dispatched: e, Latency: latency}
}

// DispatchDetail is attached to HookPosDispatch.
type DispatchDetail struct {
	Mode    Mode
	Latency int
}

// InPollWindow reports whether the cursor is inside a poll window.
func (s *Scheduler) InPollWindow() bool {
	return s.Cursor%PollPeriod < PollWindow
}

// Running returns a copy of the running event, if any.
func (s *Scheduler) Running() (Event, bool) {
	if e := s.running(); e != nil {
		return *e, true
	}

	return Event{}, false
}

// Snapshot returns copies of all queued events in insertion order.
func (s *Scheduler) Snapshot() []Event {
	out := make([]Event, 0, len(s.Events))
	for _, e := range s.Events {
		out = append(out, *e)
	}

	return out
}

// Reset rewinds the cursor and drops every event. Mode and ISR length are user
// inputs and are kept.
func (s *Scheduler) Reset() {
	s.Cursor = 0
	s.Events = nil
	s.ISRActive = false
}
