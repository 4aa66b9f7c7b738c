// Package tracing provides hooks that aggregate lab transitions in memory.
// Unlike the data recorder, they keep only running statistics.
package tracing

// A FrameTeller tells the frame being stepped.
type FrameTeller interface {
	CurrentFrame() uint64
}
