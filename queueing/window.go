// Package queueing provides the fixed-size sample queues used by the models.
package queueing

// A Window is a fixed-length sliding window of samples. Pushing a sample
// evicts the oldest one, so the length never changes.
type Window struct {
	samples []float64
	oldest  int
}

// NewWindow creates a window holding size zero-valued samples.
func NewWindow(size int) *Window {
	if size <= 0 {
		panic("queueing: window size must be positive")
	}

	return &Window{samples: make([]float64, size)}
}

// Push appends v as the most recent sample and drops the oldest one.
func (w *Window) Push(v float64) {
	w.samples[w.oldest] = v
	w.oldest = (w.oldest + 1) % len(w.samples)
}

// Len returns the number of samples in the window.
func (w *Window) Len() int {
	return len(w.samples)
}

// At returns the i-th sample, counting from the oldest one.
func (w *Window) At(i int) float64 {
	if i < 0 || i >= len(w.samples) {
		panic("queueing: window index out of range")
	}

	return w.samples[(w.oldest+i)%len(w.samples)]
}

// Last returns the most recent sample.
func (w *Window) Last() float64 {
	return w.At(len(w.samples) - 1)
}

// Values returns a copy of the samples, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.samples))
	for i := range out {
		out[i] = w.At(i)
	}

	return out
}

// Fill overwrites every sample with v.
func (w *Window) Fill(v float64) {
	for i := range w.samples {
		w.samples[i] = v
	}

	w.oldest = 0
}
