// Package timing provides the discrete event engine that drives simulations
// in whole frames.
package timing

import "github.com/sarchlab/embedlab/hooking"

// VTimeInCycle is a point on the simulation timeline, counted in frames.
type VTimeInCycle uint64

// Handler processes events of various types. Events are plain data; handlers
// use type switches to tell them apart:
//
//	func (h *MyHandler) Handle(event any) error {
//	    switch e := event.(type) {
//	    case *MyEvent:
//	        // handle MyEvent
//	    default:
//	        return fmt.Errorf("unknown event type: %T", e)
//	    }
//	    return nil
//	}
type Handler interface {
	Handle(event any) error
}

// TimeTeller exposes the current simulation cycle.
type TimeTeller interface {
	CurrentTime() VTimeInCycle
}

// EventScheduler schedules events in the simulation timeline.
type EventScheduler interface {
	TimeTeller
	Schedule(event ScheduledEvent)
}

// An Engine keeps the discrete event simulation running.
type Engine interface {
	hooking.Hookable
	EventScheduler

	// Run processes all the events until no event is left.
	Run() error

	// Pause stops dispatching events until Continue is called.
	Pause()

	// Continue resumes a paused engine.
	Continue()
}

// ScheduledEvent is the engine-facing wrapper for user-defined events.
type ScheduledEvent struct {
	// Event is the payload delivered to the handler.
	Event any

	// Time is the cycle when the event should be processed.
	Time VTimeInCycle

	// Handler is the component that will process this event.
	Handler Handler

	// IsSecondary marks events that run after all the primary events of the
	// same cycle. Frame ticks are secondary so that user input scheduled for
	// a cycle always lands before the frame of that cycle.
	IsSecondary bool

	seq uint64
}

// HookPosBeforeEvent is triggered right before an event is handled.
var HookPosBeforeEvent = &hooking.HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent is triggered right after an event is handled.
var HookPosAfterEvent = &hooking.HookPos{Name: "AfterEvent"}
