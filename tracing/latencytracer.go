package tracing

import (
	"sync"

	"github.com/sarchlab/embedlab/hooking"
	"github.com/sarchlab/embedlab/lab/interrupt"
)

type latencyStat struct {
	count   uint64
	average float64
	max     int
}

// LatencyTracer collects the dispatch latency of interrupt events, per
// scheduling mode.
type LatencyTracer struct {
	lock  sync.Mutex
	modes []interrupt.Mode
	stats map[interrupt.Mode]*latencyStat
}

// NewLatencyTracer creates a new LatencyTracer.
func NewLatencyTracer() *LatencyTracer {
	return &LatencyTracer{
		stats: make(map[interrupt.Mode]*latencyStat),
	}
}

// Func records dispatches and ignores every other position.
func (t *LatencyTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != interrupt.HookPosDispatch {
		return
	}

	detail := ctx.Detail.(interrupt.DispatchDetail)

	t.lock.Lock()
	defer t.lock.Unlock()

	s, ok := t.stats[detail.Mode]
	if !ok {
		s = &latencyStat{}
		t.stats[detail.Mode] = s
		t.modes = append(t.modes, detail.Mode)
	}

	s.average = (s.average*float64(s.count) + float64(detail.Latency)) /
		float64(s.count+1)
	s.count++
	s.max = max(s.max, detail.Latency)
}

// Modes returns the modes that dispatched at least once, in the order they
// were first seen.
func (t *LatencyTracer) Modes() []interrupt.Mode {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]interrupt.Mode(nil), t.modes...)
}

// TotalCount returns the number of dispatches in mode.
func (t *LatencyTracer) TotalCount(mode interrupt.Mode) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	if s, ok := t.stats[mode]; ok {
		return s.count
	}

	return 0
}

// AverageLatency returns the mean latency in pixels of dispatches in mode.
func (t *LatencyTracer) AverageLatency(mode interrupt.Mode) float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	if s, ok := t.stats[mode]; ok {
		return s.average
	}

	return 0
}

// MaxLatency returns the worst latency in pixels of dispatches in mode.
func (t *LatencyTracer) MaxLatency(mode interrupt.Mode) int {
	t.lock.Lock()
	defer t.lock.Unlock()

	if s, ok := t.stats[mode]; ok {
		return s.max
	}

	return 0
}

var _ hooking.Hook = (*LatencyTracer)(nil)
