// Package memory models a stack and a heap growing towards each other inside
// a fixed-size memory tower.
package memory

import (
	"github.com/sarchlab/embedlab/hooking"
)

// Tower geometry, in pixels.
const (
	TowerHeight  = 300
	HeaderHeight = 40

	// Capacity is the drawable height shared by the stack and the heap.
	Capacity = TowerHeight - HeaderHeight

	PixelsPerStackLevel = 40
	BytesPerPixel       = 5

	// AllocationSize is the number of bytes added by AllocateHeap.
	AllocationSize = 256

	MaxStackLevel = 10
	DefaultStack  = 1
)

// HookPosOverflow marks the stack and the heap colliding.
var HookPosOverflow = &hooking.HookPos{Name: "MemoryOverflow"}

// Usage is the pixel footprint computed by the latest Advance.
type Usage struct {
	StackPixels float64 `json:"stack_px"`
	HeapPixels  float64 `json:"heap_px"`
}

// Total returns the combined height of the stack and the heap.
func (u Usage) Total() float64 {
	return u.StackPixels + u.HeapPixels
}

// Model keeps the stack depth and the heap size. Once crashed it stays
// crashed until the stack is changed or the model is reset.
type Model struct {
	*hooking.HookableBase

	Stack   int
	Heap    int
	Crashed bool

	usage Usage
}

// New creates a model with a single stack frame and an empty heap.
func New() *Model {
	m := &Model{
		HookableBase: hooking.NewHookableBase(),
		Stack:        DefaultStack,
	}
	m.usage = m.measure()

	return m
}

// SetStack sets the recursion depth and clears a crash.
func (m *Model) SetStack(level int) {
	m.Stack = level
	m.Crashed = false
}

// AllocateHeap grows the heap by AllocationSize.
func (m *Model) AllocateHeap() {
	m.Allocate(AllocationSize)
}

// Allocate grows the heap by amount bytes. A crashed model ignores
// allocations.
func (m *Model) Allocate(amount int) {
	if m.Crashed {
		return
	}

	m.Heap += amount
}

// Advance measures the footprint and crashes the model when the stack and
// the heap need more room than the tower has.
func (m *Model) Advance() Usage {
	m.usage = m.measure()

	if !m.Crashed && m.usage.Total() > Capacity {
		m.Crashed = true
		m.InvokeHook(hooking.HookCtx{Domain: m, Pos: HookPosOverflow, Item: m.usage})
	}

	return m.usage
}

func (m *Model) measure() Usage {
	return Usage{
		StackPixels: float64(m.Stack * PixelsPerStackLevel),
		HeapPixels:  float64(m.Heap) / BytesPerPixel,
	}
}

// Usage returns the footprint computed by the latest Advance.
func (m *Model) Usage() Usage {
	return m.usage
}

// StackPercent returns the stack depth as a percentage of MaxStackLevel.
func (m *Model) StackPercent() float64 {
	return float64(m.Stack) / MaxStackLevel * 100
}

// Reset frees the heap and clears a crash. The stack depth is a user input
// and is kept.
func (m *Model) Reset() {
	m.Heap = 0
	m.Crashed = false
	m.usage = m.measure()
}
