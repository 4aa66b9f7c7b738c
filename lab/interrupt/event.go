package interrupt

import "fmt"

// EventState is the lifecycle stage of an Event.
type EventState int

// An Event moves from pending to running to done, never backwards.
const (
	EventPending EventState = iota
	EventRunning
	EventDone
)

func (s EventState) String() string {
	switch s {
	case EventPending:
		return "pending"
	case EventRunning:
		return "running"
	case EventDone:
		return "done"
	default:
		panic(fmt.Sprintf("interrupt: unknown event state %d", int(s)))
	}
}

// MarshalText encodes the state by name.
func (s EventState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// An Event is an asynchronous request for the handler. StartX is the cursor
// position at which the request becomes ready; EndX is only meaningful once
// the event is running.
type Event struct {
	ID     uint64     `json:"id"`
	StartX int        `json:"start_x"`
	EndX   int        `json:"end_x"`
	State  EventState `json:"state"`
}

func (e Event) String() string {
	return fmt.Sprintf("event#%d[%s start=%d end=%d]", e.ID, e.State, e.StartX, e.EndX)
}
