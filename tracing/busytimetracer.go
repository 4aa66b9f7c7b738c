package tracing

import (
	"sync"

	"github.com/sarchlab/embedlab/hooking"
	"github.com/sarchlab/embedlab/lab"
	"github.com/sarchlab/embedlab/lab/interrupt"
)

// BusyTimeTracer counts the frames the interrupt handler spends serving
// events. The handler serves one event at a time, so intervals never overlap.
type BusyTimeTracer struct {
	frameTeller FrameTeller

	lock       sync.Mutex
	inflight   map[uint64]uint64
	busyFrames uint64
	served     uint64
}

// NewBusyTimeTracer creates a new BusyTimeTracer.
func NewBusyTimeTracer(frameTeller FrameTeller) *BusyTimeTracer {
	return &BusyTimeTracer{
		frameTeller: frameTeller,
		inflight:    make(map[uint64]uint64),
	}
}

// Func opens an interval on dispatch and closes it on completion. A reset
// drops the open interval since the handler is cleared without completing.
func (t *BusyTimeTracer) Func(ctx hooking.HookCtx) {
	t.lock.Lock()
	defer t.lock.Unlock()

	switch ctx.Pos {
	case interrupt.HookPosDispatch:
		e := ctx.Item.(interrupt.Event)
		t.inflight[e.ID] = t.frameTeller.CurrentFrame()
	case interrupt.HookPosComplete:
		e := ctx.Item.(interrupt.Event)

		start, ok := t.inflight[e.ID]
		if !ok {
			return
		}

		delete(t.inflight, e.ID)
		t.busyFrames += t.frameTeller.CurrentFrame() - start
		t.served++
	case lab.HookPosInput:
		if _, ok := ctx.Item.(lab.Reset); ok {
			clear(t.inflight)
		}
	}
}

// BusyFrames returns the number of frames spent on completed events.
func (t *BusyTimeTracer) BusyFrames() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.busyFrames
}

// Served returns the number of completed events.
func (t *BusyTimeTracer) Served() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.served
}

// InFlight returns the number of dispatched events not completed yet.
func (t *BusyTimeTracer) InFlight() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return len(t.inflight)
}

var _ hooking.Hook = (*BusyTimeTracer)(nil)
