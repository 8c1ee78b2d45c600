package stats

import "fmt"

// Window is a fixed-capacity ring buffer of frame samples. Once full, each
// push evicts the oldest sample, so the retained samples are always the most
// recently inserted ones regardless of their timestamps.
type Window struct {
	data  []FrameSample
	head  int // index of the oldest sample
	count int
}

// NewWindow returns a new Window with the given capacity.
//
// NewWindow will panic if capacity is less than 1.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		panic(fmt.Sprintf("nonpositive Window capacity: %d", capacity))
	}
	return &Window{
		data: make([]FrameSample, capacity),
	}
}

// Push appends the sample to the tail of the window. It reports whether the
// oldest sample was evicted to make room for it.
func (w *Window) Push(sample FrameSample) bool {
	capacity := len(w.data)
	if w.count < capacity {
		w.data[(w.head+w.count)%capacity] = sample
		w.count++
		return false
	}

	// overwrite the oldest sample and move the head forward
	w.data[w.head] = sample
	w.head = (w.head + 1) % capacity
	return true
}

// Len returns the number of samples in the window.
func (w *Window) Len() int {
	return w.count
}

// Cap returns the capacity of the window.
func (w *Window) Cap() int {
	return len(w.data)
}

// Each calls fn for every sample in insertion order, oldest first.
func (w *Window) Each(fn func(FrameSample)) {
	capacity := len(w.data)
	for i := 0; i < w.count; i++ {
		fn(w.data[(w.head+i)%capacity])
	}
}

// Samples returns a copy of the window contents, oldest first.
func (w *Window) Samples() []FrameSample {
	if w.count == 0 {
		return nil
	}
	out := make([]FrameSample, w.count)
	if w.head+w.count <= len(w.data) {
		copy(out, w.data[w.head:w.head+w.count])
	} else {
		n := copy(out, w.data[w.head:])
		copy(out[n:], w.data[:w.count-n])
	}
	return out
}
