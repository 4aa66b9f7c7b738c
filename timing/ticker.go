package timing

import (
	"fmt"
	"sync"
)

// TickEvent is a generic event that a component uses to update its state once
// per frame.
type TickEvent struct {
	Time VTimeInCycle
}

// A Ticker is an object that updates states with ticks. Tick returns false
// once the ticker has nothing more to do, which stops further ticks.
type Ticker interface {
	Tick() bool
}

// TickScheduler can help schedule tick events.
type TickScheduler struct {
	lock      sync.Mutex
	handler   Handler
	Engine    EventScheduler
	secondary bool

	hasScheduled bool
	nextTickTime VTimeInCycle
}

// NewTickScheduler creates a scheduler for tick events.
func NewTickScheduler(handler Handler, engine EventScheduler) *TickScheduler {
	return &TickScheduler{
		handler: handler,
		Engine:  engine,
	}
}

// NewSecondaryTickScheduler creates a scheduler that always schedules
// secondary tick events.
func NewSecondaryTickScheduler(
	handler Handler,
	engine EventScheduler,
) *TickScheduler {
	ticker := NewTickScheduler(handler, engine)
	ticker.secondary = true

	return ticker
}

// TickNow schedules a tick event at the current cycle.
func (t *TickScheduler) TickNow() {
	t.scheduleAt(t.CurrentTime())
}

// TickLater schedules a tick event at the cycle after the current one.
func (t *TickScheduler) TickLater() {
	t.scheduleAt(t.CurrentTime() + 1)
}

func (t *TickScheduler) scheduleAt(time VTimeInCycle) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.hasScheduled && t.nextTickTime >= time {
		return
	}

	t.hasScheduled = true
	t.nextTickTime = time

	t.Engine.Schedule(ScheduledEvent{
		Event:       TickEvent{Time: time},
		Time:        time,
		Handler:     t.handler,
		IsSecondary: t.secondary,
	})
}

// CurrentTime returns the current time of the engine.
func (t *TickScheduler) CurrentTime() VTimeInCycle {
	return t.Engine.CurrentTime()
}

// TickingComponent is a component that updates its state from frame to
// frame. A programmer only needs to provide the Tick function.
type TickingComponent struct {
	*TickScheduler

	name   string
	ticker Ticker
}

// NewTickingComponent creates a new ticking component.
func NewTickingComponent(
	name string,
	engine EventScheduler,
	ticker Ticker,
) *TickingComponent {
	tc := &TickingComponent{name: name, ticker: ticker}
	tc.TickScheduler = NewTickScheduler(tc, engine)

	return tc
}

// NewSecondaryTickingComponent creates a ticking component whose ticks run
// after all the primary events of the same cycle.
func NewSecondaryTickingComponent(
	name string,
	engine EventScheduler,
	ticker Ticker,
) *TickingComponent {
	tc := &TickingComponent{name: name, ticker: ticker}
	tc.TickScheduler = NewSecondaryTickScheduler(tc, engine)

	return tc
}

// Name returns the name of the component.
func (c *TickingComponent) Name() string {
	return c.name
}

// Handle triggers the tick function of the TickingComponent.
func (c *TickingComponent) Handle(e any) error {
	switch e.(type) {
	case TickEvent:
		if c.ticker.Tick() {
			c.TickLater()
		}
	default:
		return fmt.Errorf("%s: cannot handle event of type %T", c.name, e)
	}

	return nil
}
